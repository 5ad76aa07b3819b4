package prompt

import (
	"fmt"

	"github.com/Strob0t/PromptForge/internal/domain"
)

// CompositionSet is a snapshot of compositions with at most one active
// member. The active composition is tracked by id; the IsActive flags of
// stored compositions are derived from it and never consulted after
// construction.
//
// A CompositionSet is not safe for concurrent use.
type CompositionSet struct {
	items     []Composition
	activeID  int
	hasActive bool
}

// NewCompositionSet builds a set from a backend listing. If several
// compositions claim to be active, the first one wins.
func NewCompositionSet(items []Composition) *CompositionSet {
	s := &CompositionSet{items: make([]Composition, len(items))}
	copy(s.items, items)
	if active := FindActive(items); active != nil {
		s.activeID = active.ID
		s.hasActive = true
	}
	return s
}

// Len returns the number of compositions.
func (s *CompositionSet) Len() int { return len(s.items) }

// All returns a copy of the compositions with IsActive set only on the
// active one.
func (s *CompositionSet) All() []Composition {
	out := make([]Composition, len(s.items))
	for i := range s.items {
		out[i] = s.items[i]
		out[i].IsActive = s.hasActive && s.items[i].ID == s.activeID
	}
	return out
}

// Get returns the composition with the given id.
func (s *CompositionSet) Get(id int) (Composition, bool) {
	for i := range s.items {
		if s.items[i].ID == id {
			c := s.items[i]
			c.IsActive = s.hasActive && c.ID == s.activeID
			return c, true
		}
	}
	return Composition{}, false
}

// Activate makes id the only active composition.
func (s *CompositionSet) Activate(id int) error {
	if _, ok := s.Get(id); !ok {
		return fmt.Errorf("composition %d: %w", id, domain.ErrNotFound)
	}
	s.activeID = id
	s.hasActive = true
	return nil
}

// Add appends c. An active c takes over the active slot.
func (s *CompositionSet) Add(c Composition) {
	s.items = append(s.items, c)
	if c.IsActive {
		s.activeID = c.ID
		s.hasActive = true
	}
}

// CheckRemovable returns ErrNotFound for an unknown id and ErrProtected for
// the active composition.
func (s *CompositionSet) CheckRemovable(id int) error {
	if _, ok := s.Get(id); !ok {
		return fmt.Errorf("composition %d: %w", id, domain.ErrNotFound)
	}
	if s.hasActive && s.activeID == id {
		return fmt.Errorf("composition %d is active: %w", id, domain.ErrProtected)
	}
	return nil
}

// Remove deletes the composition with the given id. The active composition
// cannot be removed.
func (s *CompositionSet) Remove(id int) error {
	if err := s.CheckRemovable(id); err != nil {
		return err
	}
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			break
		}
	}
	return nil
}
