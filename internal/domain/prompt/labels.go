package prompt

import (
	"sort"
	"strconv"
	"strings"
)

// NoFragmentsLabel is shown for a composition without fragments.
const NoFragmentsLabel = "No fragments"

// placeholderLabel names an entity that could not be resolved.
func placeholderLabel(id int) string {
	return "ID: " + strconv.Itoa(id)
}

// PersonaName returns the persona's name, or "ID: <n>" when the persona is
// not in the index.
func (ix *Index) PersonaName(id int) string {
	if p := ix.Persona(id); p != nil {
		return p.Name
	}
	return placeholderLabel(id)
}

// FragmentNames returns the comma separated fragment names in stored order.
// Unknown ids render as "ID: <n>".
func (ix *Index) FragmentNames(ids []int) string {
	if len(ids) == 0 {
		return NoFragmentsLabel
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		if f := ix.Fragment(id); f != nil {
			names[i] = f.Name
		} else {
			names[i] = placeholderLabel(id)
		}
	}
	return strings.Join(names, ", ")
}

// GroupPersonas splits personas into user-created ones, newest (highest id)
// first, and system ones in alphabetical order. The input is not modified.
func GroupPersonas(personas []Persona) (user, system []Persona) {
	for i := range personas {
		if personas[i].IsSystem {
			system = append(system, personas[i])
		} else {
			user = append(user, personas[i])
		}
	}
	sort.SliceStable(user, func(i, j int) bool { return user[i].ID > user[j].ID })
	sort.SliceStable(system, func(i, j int) bool { return system[i].Name < system[j].Name })
	return user, system
}

// Selection is the persona and ordered fragment choice of a composition
// being built.
type Selection struct {
	PersonaID   int   `json:"ethical_persona_id"`
	FragmentIDs []int `json:"fragment_ids"`
}

// Toggle removes id from the selection if present, otherwise appends it.
func (s *Selection) Toggle(id int) {
	for i, existing := range s.FragmentIDs {
		if existing == id {
			s.FragmentIDs = append(s.FragmentIDs[:i:i], s.FragmentIDs[i+1:]...)
			return
		}
	}
	s.FragmentIDs = append(s.FragmentIDs, id)
}

// Contains reports whether the fragment id is selected.
func (s *Selection) Contains(id int) bool {
	for _, existing := range s.FragmentIDs {
		if existing == id {
			return true
		}
	}
	return false
}

// Request converts the selection into a creation request with the given
// name. The fragment ids are copied.
func (s *Selection) Request(name string) CreateCompositionRequest {
	ids := make([]int, len(s.FragmentIDs))
	copy(ids, s.FragmentIDs)
	return CreateCompositionRequest{
		Name:             name,
		EthicalPersonaID: s.PersonaID,
		FragmentIDs:      ids,
	}
}
