package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// DimStyle repaints background content behind an overlay box. Existing
// ANSI codes are stripped and a gray applied because SGR 2 does not
// reliably combine with color codes across terminals.
var DimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))

// maxLineWidth returns the maximum visual width of the given lines.
func maxLineWidth(lines []string) int {
	max := 0
	for _, line := range lines {
		if w := ansi.StringWidth(line); w > max {
			max = w
		}
	}
	return max
}

// dimLine strips ANSI codes and applies the dim style.
func dimLine(s string) string {
	return DimStyle.Render(ansi.Strip(s))
}

// overlayRow splices boxLine into bgLine at startX: dimmed left segment,
// the box row untouched, dimmed right segment.
func overlayRow(bgLine, boxLine string, startX, boxWidth, totalWidth int) string {
	var out strings.Builder

	stripped := ansi.Strip(bgLine)
	bgWidth := ansi.StringWidth(stripped)

	if startX > 0 {
		left := ansi.Truncate(stripped, startX, "")
		leftWidth := ansi.StringWidth(left)
		out.WriteString(DimStyle.Render(left))
		if leftWidth < startX {
			out.WriteString(strings.Repeat(" ", startX-leftWidth))
		}
	}

	out.WriteString(boxLine)

	rightStart := startX + boxWidth
	if rightStart < totalWidth && bgWidth > rightStart {
		out.WriteString(DimStyle.Render(ansi.Cut(stripped, rightStart, bgWidth)))
	}

	return out.String()
}

// OverlayBox composites box centered over a dimmed background of the
// given dimensions. Rows the box does not cover come back fully dimmed.
func OverlayBox(background, box string, width, height int) string {
	bgLines := strings.Split(background, "\n")
	boxLines := strings.Split(box, "\n")

	boxWidth := maxLineWidth(boxLines)
	boxHeight := len(boxLines)
	startX := (width - boxWidth) / 2
	startY := (height - boxHeight) / 2
	if startX < 0 {
		startX = 0
	}
	if startY < 0 {
		startY = 0
	}

	for len(bgLines) < height {
		bgLines = append(bgLines, "")
	}

	out := make([]string, 0, height)
	for y := 0; y < height; y++ {
		bgLine := ""
		if y < len(bgLines) {
			bgLine = bgLines[y]
		}

		row := y - startY
		if row >= 0 && row < boxHeight {
			out = append(out, overlayRow(bgLine, boxLines[row], startX, boxWidth, width))
		} else {
			out = append(out, dimLine(bgLine))
		}
	}

	return strings.Join(out, "\n")
}
