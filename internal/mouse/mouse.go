// Package mouse translates bubbletea mouse events into panel actions.
// Views rebuild a hit map of clickable regions on every render; the
// handler resolves presses against it and tracks double clicks and
// drags across events.
package mouse

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// doubleClickInterval is the longest gap between two presses on the
// same region that still counts as a double click.
const doubleClickInterval = 400 * time.Millisecond

// wheelStep is how many rows one wheel notch scrolls.
const wheelStep = 3

// Rect is a screen-space rectangle. The right and bottom edges are
// exclusive, so a zero width or height contains no points.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Region is one clickable area. Data carries whatever the view needs to
// act on a hit, typically a node ID or row index.
type Region struct {
	ID   string
	Rect Rect
	Data any
}

// HitMap holds the regions of the current frame in add order. When
// regions overlap, the one added last wins, so views add backgrounds
// before the widgets drawn on top of them.
type HitMap struct {
	regions []Region
}

func NewHitMap() *HitMap {
	return &HitMap{}
}

// Add registers a region.
func (hm *HitMap) Add(id string, r Rect, data any) {
	hm.regions = append(hm.regions, Region{ID: id, Rect: r, Data: data})
}

// AddRect registers a region from bare coordinates.
func (hm *HitMap) AddRect(id string, x, y, w, h int, data any) {
	hm.Add(id, Rect{X: x, Y: y, W: w, H: h}, data)
}

// Test returns the topmost region containing the point, or nil.
func (hm *HitMap) Test(x, y int) *Region {
	for i := len(hm.regions) - 1; i >= 0; i-- {
		if hm.regions[i].Rect.Contains(x, y) {
			r := hm.regions[i]
			return &r
		}
	}
	return nil
}

// Clear drops all regions. Call at the start of each render.
func (hm *HitMap) Clear() {
	hm.regions = hm.regions[:0]
}

// Regions returns a copy of the registered regions.
func (hm *HitMap) Regions() []Region {
	out := make([]Region, len(hm.regions))
	copy(out, hm.regions)
	return out
}

// ActionType classifies what a mouse event asks the view to do.
type ActionType int

const (
	ActionNone ActionType = iota
	ActionClick
	ActionDoubleClick
	ActionScrollUp
	ActionScrollDown
	ActionScrollLeft
	ActionScrollRight
	ActionDrag
	ActionDragEnd
	ActionHover
)

// Action is the interpreted result of one mouse event.
type Action struct {
	Type   ActionType
	Region *Region
	// Delta is the scroll distance in rows, negative for up.
	Delta int
	// DragDX and DragDY are offsets from the drag anchor.
	DragDX, DragDY int
}

// ClickResult reports what a press resolved to.
type ClickResult struct {
	Region        *Region
	IsDoubleClick bool
}

// Handler resolves mouse events against a hit map and keeps the state
// that spans events: pending double clicks and an active drag.
type Handler struct {
	HitMap *HitMap

	lastClickID string
	lastClickAt time.Time

	dragging       bool
	dragX, dragY   int
	dragRegion     string
	dragStartValue int
}

func NewHandler() *Handler {
	return &Handler{HitMap: NewHitMap()}
}

// Clear drops the hit map regions. Drag and click state survive, since
// a drag outlives the frames rendered while it is in progress.
func (h *Handler) Clear() {
	h.HitMap.Clear()
}

// HandleClick resolves a press at the point. Two presses on the same
// region within the double click interval report IsDoubleClick on the
// second; the third press starts over.
func (h *Handler) HandleClick(x, y int) ClickResult {
	region := h.HitMap.Test(x, y)
	if region == nil {
		h.lastClickID = ""
		return ClickResult{}
	}
	now := time.Now()
	if region.ID == h.lastClickID && now.Sub(h.lastClickAt) <= doubleClickInterval {
		h.lastClickID = ""
		return ClickResult{Region: region, IsDoubleClick: true}
	}
	h.lastClickID = region.ID
	h.lastClickAt = now
	return ClickResult{Region: region}
}

// StartDrag anchors a drag at the point. startValue is the quantity
// being adjusted, so the view can apply deltas against the original.
func (h *Handler) StartDrag(x, y int, regionID string, startValue int) {
	h.dragging = true
	h.dragX, h.dragY = x, y
	h.dragRegion = regionID
	h.dragStartValue = startValue
}

func (h *Handler) IsDragging() bool { return h.dragging }

func (h *Handler) DragRegion() string { return h.dragRegion }

func (h *Handler) DragStartValue() int { return h.dragStartValue }

// DragDelta returns the offset of the point from the drag anchor.
func (h *Handler) DragDelta(x, y int) (dx, dy int) {
	return x - h.dragX, y - h.dragY
}

// EndDrag clears the drag state.
func (h *Handler) EndDrag() {
	h.dragging = false
	h.dragRegion = ""
	h.dragStartValue = 0
}

// HandleMouse interprets one bubbletea mouse event. Shift+wheel scrolls
// horizontally; native horizontal wheel buttons are flipped to match
// trackpad direction on macOS.
func (h *Handler) HandleMouse(m tea.MouseMsg) Action {
	switch m.Action {
	case tea.MouseActionPress:
		switch m.Button {
		case tea.MouseButtonWheelUp:
			if m.Shift {
				return Action{Type: ActionScrollLeft, Region: h.HitMap.Test(m.X, m.Y)}
			}
			return Action{Type: ActionScrollUp, Delta: -wheelStep, Region: h.HitMap.Test(m.X, m.Y)}
		case tea.MouseButtonWheelDown:
			if m.Shift {
				return Action{Type: ActionScrollRight, Region: h.HitMap.Test(m.X, m.Y)}
			}
			return Action{Type: ActionScrollDown, Delta: wheelStep, Region: h.HitMap.Test(m.X, m.Y)}
		case tea.MouseButtonWheelLeft:
			return Action{Type: ActionScrollRight}
		case tea.MouseButtonWheelRight:
			return Action{Type: ActionScrollLeft}
		case tea.MouseButtonLeft:
			result := h.HandleClick(m.X, m.Y)
			if result.Region == nil {
				return Action{Type: ActionNone}
			}
			if result.IsDoubleClick {
				return Action{Type: ActionDoubleClick, Region: result.Region}
			}
			return Action{Type: ActionClick, Region: result.Region}
		}
		return Action{Type: ActionNone}

	case tea.MouseActionMotion:
		if h.dragging {
			dx, dy := h.DragDelta(m.X, m.Y)
			return Action{Type: ActionDrag, DragDX: dx, DragDY: dy}
		}
		return Action{Type: ActionHover, Region: h.HitMap.Test(m.X, m.Y)}

	case tea.MouseActionRelease:
		if h.dragging {
			h.EndDrag()
			return Action{Type: ActionDragEnd}
		}
	}
	return Action{Type: ActionNone}
}
