package kernel

// History records, for the entities of an operation's inputs, which
// entities of its result were generated from them and which are
// modifications of them. It implements Operation.
type History struct {
	generated map[TShapeID][]TShapeID
	modified  map[TShapeID][]TShapeID
}

var _ Operation = (*History)(nil)

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{
		generated: make(map[TShapeID][]TShapeID),
		modified:  make(map[TShapeID][]TShapeID),
	}
}

// AddGenerated records that to was generated from from.
func (h *History) AddGenerated(from, to TShapeID) {
	h.generated[from] = append(h.generated[from], to)
}

// AddModified records that to is a modification of from.
func (h *History) AddModified(from, to TShapeID) {
	h.modified[from] = append(h.modified[from], to)
}

// Generated returns the result entities generated from id.
func (h *History) Generated(id TShapeID) []TShapeID {
	if h == nil {
		return nil
	}
	return h.generated[id]
}

// Modified returns the result entities that are modifications of id.
func (h *History) Modified(id TShapeID) []TShapeID {
	if h == nil {
		return nil
	}
	return h.modified[id]
}

// Len returns the number of input entities with at least one record.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	seen := make(map[TShapeID]struct{}, len(h.generated)+len(h.modified))
	for id := range h.generated {
		seen[id] = struct{}{}
	}
	for id := range h.modified {
		seen[id] = struct{}{}
	}
	return len(seen)
}
