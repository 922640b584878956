package trajectory

// ModeKind discriminates the selection mode variants.
type ModeKind string

const (
	ModeSingle ModeKind = "single"
	ModeMulti  ModeKind = "multi"
)

// SelectionSet is an ordered set of object designations. Insertion order is
// preserved, duplicates are ignored, and the empty set is valid.
type SelectionSet struct {
	ids []string
}

// NewSelectionSet builds a set from ids, dropping duplicates while keeping
// first-occurrence order.
func NewSelectionSet(ids ...string) *SelectionSet {
	s := &SelectionSet{}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add appends id unless already present. Reports whether the set changed.
func (s *SelectionSet) Add(id string) bool {
	if id == "" || s.Contains(id) {
		return false
	}
	s.ids = append(s.ids, id)
	return true
}

// Remove deletes id from the set. Reports whether the set changed.
func (s *SelectionSet) Remove(id string) bool {
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports membership.
func (s *SelectionSet) Contains(id string) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

// IDs returns the members in insertion order. The slice is a copy.
func (s *SelectionSet) IDs() []string {
	return append([]string(nil), s.ids...)
}

// Len returns the member count.
func (s *SelectionSet) Len() int { return len(s.ids) }

// SelectionMode is a tagged variant: single-object mode holds at most one
// designation, multi-object mode holds an ordered set. The variant makes
// illegal states unrepresentable; there is no separate boolean to fall out
// of sync with the selection contents.
type SelectionMode struct {
	kind   ModeKind
	single string
	multi  *SelectionSet
}

// SingleSelection returns single mode with the given object, or with
// nothing selected when id is empty.
func SingleSelection(id string) SelectionMode {
	return SelectionMode{kind: ModeSingle, single: id}
}

// MultiSelection returns multi mode over the given objects.
func MultiSelection(ids ...string) SelectionMode {
	return SelectionMode{kind: ModeMulti, multi: NewSelectionSet(ids...)}
}

// Kind returns the variant tag. The zero value is single mode with
// nothing selected.
func (m SelectionMode) Kind() ModeKind {
	if m.kind == "" {
		return ModeSingle
	}
	return m.kind
}

// Objects returns the selected designations in order: zero or one in
// single mode, the set contents in multi mode.
func (m SelectionMode) Objects() []string {
	switch m.Kind() {
	case ModeMulti:
		if m.multi == nil {
			return nil
		}
		return m.multi.IDs()
	default:
		if m.single == "" {
			return nil
		}
		return []string{m.single}
	}
}

// Primary returns the object whose trajectory paces the animation clock:
// the single selection, or the first member of the multi set.
func (m SelectionMode) Primary() (string, bool) {
	objects := m.Objects()
	if len(objects) == 0 {
		return "", false
	}
	return objects[0], true
}

// Empty reports whether nothing is selected.
func (m SelectionMode) Empty() bool {
	return len(m.Objects()) == 0
}
