package styles

import "github.com/charmbracelet/lipgloss"

// Color palette - default dark theme
var (
	// Primary colors
	Primary   = lipgloss.Color("#7C3AED") // Purple
	Secondary = lipgloss.Color("#3B82F6") // Blue
	Accent    = lipgloss.Color("#F59E0B") // Amber

	// Status colors
	Success = lipgloss.Color("#10B981") // Green
	Warning = lipgloss.Color("#F59E0B") // Amber
	Error   = lipgloss.Color("#EF4444") // Red
	Info    = lipgloss.Color("#3B82F6") // Blue

	// Text colors
	TextPrimary   = lipgloss.Color("#F9FAFB")
	TextSecondary = lipgloss.Color("#9CA3AF")
	TextMuted     = lipgloss.Color("#6B7280")
	TextSubtle    = lipgloss.Color("#4B5563")

	// Background colors
	BgSecondary = lipgloss.Color("#1F2937")
	BgTertiary  = lipgloss.Color("#374151")

	// Border colors
	BorderNormal = lipgloss.Color("#374151")
	BorderActive = lipgloss.Color("#7C3AED")
)

// Panel styles
var (
	// Active panel with highlighted border
	PanelActive = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderActive).
			Padding(0, 1)

	// Inactive panel with subtle border
	PanelInactive = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderNormal).
			Padding(0, 1)

	// Panel header
	PanelHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextPrimary).
			MarginBottom(1)
)

// Text styles
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary)

	Body = lipgloss.NewStyle().
		Foreground(TextPrimary)

	Muted = lipgloss.NewStyle().
		Foreground(TextMuted)

	Subtle = lipgloss.NewStyle().
		Foreground(TextSubtle)

	KeyHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Background(BgTertiary).
		Padding(0, 1)
)

// Tree node styles
var (
	// Directory names - bold blue
	TreeDir = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true)

	// Regular file names
	TreeFile = lipgloss.NewStyle().
			Foreground(TextPrimary)

	// Informational placeholder rows
	TreeMessage = lipgloss.NewStyle().
			Foreground(TextMuted).
			Italic(true)

	// Expanders and kind icons (>, +)
	TreeIcon = lipgloss.NewStyle().
			Foreground(TextMuted)
)

// Status indicator styles
var (
	GitStaged = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	GitUnstaged = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	GitUntracked = lipgloss.NewStyle().
			Foreground(TextMuted)

	GitConflict = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	ClipCopied = lipgloss.NewStyle().
			Foreground(Info).
			Bold(true)

	ClipCut = lipgloss.NewStyle().
		Foreground(Warning).
		Bold(true)

	// Toast styles for status messages
	ToastSuccess = lipgloss.NewStyle().
			Background(Success).
			Foreground(lipgloss.Color("#000000")).
			Bold(true).
			Padding(0, 1)

	ToastError = lipgloss.NewStyle().
			Background(Error).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)
)

// List item styles
var (
	ListItemSelected = lipgloss.NewStyle().
				Foreground(TextPrimary).
				Background(BgTertiary)

	ListCursor = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)
)

// Prompt styles
var (
	PromptBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1)

	PromptTitle = lipgloss.NewStyle().
			Foreground(TextPrimary).
			Bold(true)

	PromptError = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)
)

// Footer hint line
var Footer = lipgloss.NewStyle().
	Foreground(TextMuted).
	Background(BgSecondary)

// RenderPanel frames content in the panel border. width and height are
// the outer dimensions including the border.
func RenderPanel(content string, width, height int, active bool) string {
	style := PanelInactive
	if active {
		style = PanelActive
	}
	return style.Width(width - 2).Height(height - 2).Render(content)
}
