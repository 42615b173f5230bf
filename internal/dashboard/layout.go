package dashboard

// Layout holds the section order and per-section visibility for the current
// result. It is not safe for concurrent use; Controller serializes access.
type Layout struct {
	order    []SectionID
	hidden   map[SectionID]bool
	sections map[SectionID]Section
}

// NewLayout returns an empty layout.
func NewLayout() *Layout {
	return &Layout{
		hidden:   make(map[SectionID]bool),
		sections: make(map[SectionID]Section),
	}
}

// Rebuild replaces the set of sections. Ids present before and after keep their
// relative order, new ids are appended in builder order, and missing ids are
// dropped. Every section becomes visible again.
func (l *Layout) Rebuild(sections []Section) {
	next := make(map[SectionID]Section, len(sections))
	for _, s := range sections {
		next[s.ID] = s
	}

	order := make([]SectionID, 0, len(sections))
	seen := make(map[SectionID]bool, len(sections))
	for _, id := range l.order {
		if _, ok := next[id]; ok && !seen[id] {
			order = append(order, id)
			seen[id] = true
		}
	}
	for _, s := range sections {
		if !seen[s.ID] {
			order = append(order, s.ID)
			seen[s.ID] = true
		}
	}

	l.order = order
	l.sections = next
	l.hidden = make(map[SectionID]bool)
}

// Reset empties the layout.
func (l *Layout) Reset() {
	l.order = nil
	l.sections = make(map[SectionID]Section)
	l.hidden = make(map[SectionID]bool)
}

// Reorder moves id to immediately precede before, or to the end when before is nil.
// Moving an id before itself is a no-op.
func (l *Layout) Reorder(id SectionID, before *SectionID) error {
	from := l.index(id)
	if from < 0 {
		return ErrUnknownSection
	}
	if before != nil {
		if *before == id {
			return nil
		}
		if l.index(*before) < 0 {
			return ErrUnknownSection
		}
	}

	rest := make([]SectionID, 0, len(l.order))
	rest = append(rest, l.order[:from]...)
	rest = append(rest, l.order[from+1:]...)

	if before == nil {
		l.order = append(rest, id)
		return nil
	}

	out := make([]SectionID, 0, len(l.order))
	for _, existing := range rest {
		if existing == *before {
			out = append(out, id)
		}
		out = append(out, existing)
	}
	l.order = out
	return nil
}

// Hide marks id as not visible. There is no way back short of a rebuild or reset.
func (l *Layout) Hide(id SectionID) error {
	if l.index(id) < 0 {
		return ErrUnknownSection
	}
	l.hidden[id] = true
	return nil
}

// Project returns the visible ids in order.
func (l *Layout) Project() []SectionID {
	out := make([]SectionID, 0, len(l.order))
	for _, id := range l.order {
		if !l.hidden[id] {
			out = append(out, id)
		}
	}
	return out
}

// VisibleSections returns the projected sections with their payloads.
func (l *Layout) VisibleSections() []Section {
	ids := l.Project()
	out := make([]Section, 0, len(ids))
	for _, id := range ids {
		s := l.sections[id]
		s.Visible = true
		out = append(out, s)
	}
	return out
}

// Order returns every id in order, hidden ones included.
func (l *Layout) Order() []SectionID {
	return append([]SectionID(nil), l.order...)
}

func (l *Layout) IsVisible(id SectionID) bool {
	return l.index(id) >= 0 && !l.hidden[id]
}

// Next returns the id that directly follows id in the order.
func (l *Layout) Next(id SectionID) (SectionID, bool) {
	i := l.index(id)
	if i < 0 || i+1 >= len(l.order) {
		return "", false
	}
	return l.order[i+1], true
}

func (l *Layout) index(id SectionID) int {
	for i, existing := range l.order {
		if existing == id {
			return i
		}
	}
	return -1
}
