package dashboard

import (
	"math"
	"sync"
)

// ActivationDistance is how far the pointer must travel from pointer-down before
// a press becomes a drag.
const ActivationDistance = 8.0

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is the measured bounding box of a rendered section.
type Rect struct {
	ID     SectionID `json:"id"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
}

func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// ClosestCenter returns the id whose rect center is nearest p, skipping exclude
// and any id for which eligible returns false. Ties go to the earlier rect.
func ClosestCenter(p Point, rects []Rect, exclude SectionID, eligible func(SectionID) bool) (SectionID, bool) {
	var (
		best     SectionID
		bestDist = math.Inf(1)
		found    bool
	)
	for _, r := range rects {
		if r.ID == exclude {
			continue
		}
		if eligible != nil && !eligible(r.ID) {
			continue
		}
		c := r.Center()
		d := math.Hypot(c.X-p.X, c.Y-p.Y)
		if d < bestDist {
			best, bestDist, found = r.ID, d, true
		}
	}
	return best, found
}

// DropSurface is what a drag reorders. Controller implements it.
type DropSurface interface {
	IsVisible(id SectionID) bool
	Next(id SectionID) (SectionID, bool)
	Reorder(id SectionID, before *SectionID) error
}

type DragState string

const (
	DragIdle     DragState = "idle"
	DragPending  DragState = "pending"
	DragDragging DragState = "dragging"
)

// DragController tracks a single pointer drag over the dashboard sections.
type DragController struct {
	mu         sync.Mutex
	surface    DropSurface
	activation float64

	state     DragState
	active    SectionID
	origin    Point
	pointer   Point
	rects     []Rect
	target    SectionID
	hasTarget bool
}

// NewDragController builds a controller over surface. A non-positive activation
// falls back to ActivationDistance.
func NewDragController(surface DropSurface, activation float64) *DragController {
	if activation <= 0 {
		activation = ActivationDistance
	}
	return &DragController{surface: surface, activation: activation, state: DragIdle}
}

// PointerDown arms a drag on a visible section. It is ignored while another
// press or drag is in progress.
func (d *DragController) PointerDown(id SectionID, p Point, rects []Rect) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != DragIdle {
		return false
	}
	if !d.surface.IsVisible(id) {
		return false
	}
	d.state = DragPending
	d.active = id
	d.origin = p
	d.pointer = p
	d.rects = append([]Rect(nil), rects...)
	d.target, d.hasTarget = "", false
	return true
}

// PointerMove updates the pointer. Once past the activation distance the press
// becomes a drag, and from then on every move recomputes the drop target.
func (d *DragController) PointerMove(p Point, rects []Rect) (SectionID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if rects != nil {
		d.rects = append([]Rect(nil), rects...)
	}
	if d.state != DragIdle {
		d.pointer = p
	}
	switch d.state {
	case DragIdle:
		return "", false
	case DragPending:
		if math.Hypot(p.X-d.origin.X, p.Y-d.origin.Y) < d.activation {
			return "", false
		}
		d.state = DragDragging
	}
	d.target, d.hasTarget = ClosestCenter(p, d.rects, d.active, d.surface.IsVisible)
	return d.target, d.hasTarget
}

// PointerUp ends the gesture. It reorders only when a drag is active, a target
// was resolved, and the active section does not already sit right before it.
// Releasing a section past the center of the last visible section below it
// moves it to the end, the one slot no "before" target can reach.
func (d *DragController) PointerUp() (bool, SectionID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	defer d.clear()

	if d.state != DragDragging || !d.hasTarget {
		return false, "", nil
	}
	active, target := d.active, d.target
	if !d.surface.IsVisible(active) || !d.surface.IsVisible(target) {
		return false, "", nil
	}
	if d.dropsAtEnd(target) {
		if err := d.surface.Reorder(active, nil); err != nil {
			return false, target, err
		}
		return true, target, nil
	}
	if next, ok := d.surface.Next(active); ok && next == target {
		return false, target, nil
	}
	if err := d.surface.Reorder(active, &target); err != nil {
		return false, target, err
	}
	return true, target, nil
}

// Cancel drops the gesture without touching the order.
func (d *DragController) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clear()
}

// State reports the gesture state and the active section, if any.
func (d *DragController) State() (DragState, SectionID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state, d.active
}

func (d *DragController) dropsAtEnd(target SectionID) bool {
	var center Point
	found := false
	for _, r := range d.rects {
		if r.ID == target {
			center, found = r.Center(), true
			break
		}
	}
	if !found || d.pointer.Y <= center.Y || !d.precedes(d.active, target) {
		return false
	}
	for id := target; ; {
		next, ok := d.surface.Next(id)
		if !ok {
			return true
		}
		if d.surface.IsVisible(next) {
			return false
		}
		id = next
	}
}

func (d *DragController) precedes(a, b SectionID) bool {
	for id := a; ; {
		next, ok := d.surface.Next(id)
		if !ok {
			return false
		}
		if next == b {
			return true
		}
		id = next
	}
}

func (d *DragController) clear() {
	d.state = DragIdle
	d.active = ""
	d.pointer = Point{}
	d.rects = nil
	d.target, d.hasTarget = "", false
}
