package prompt

import (
	"strings"
	"unicode/utf16"
)

// Assemble joins the persona content and the content of each fragment, in
// the given order, with Separator. Nil fragments are references that did
// not resolve and are skipped. A nil persona yields the empty prompt.
//
// Assemble never modifies its arguments.
func Assemble(persona *Persona, fragments []*Fragment) AssembledPrompt {
	if persona == nil {
		return AssembledPrompt{}
	}

	parts := make([]string, 0, 1+len(fragments))
	parts = append(parts, persona.Content)
	for _, f := range fragments {
		if f == nil {
			continue
		}
		parts = append(parts, f.Content)
	}

	text := strings.Join(parts, Separator)
	return AssembledPrompt{
		Text:      text,
		PartCount: len(parts),
		CharCount: CharCount(text),
	}
}

// CharCount is the character length shown for prompt text, counted in
// UTF-16 code units like the console's character counter. Characters
// outside the Basic Multilingual Plane, such as most emoji, count as two.
func CharCount(text string) int {
	n := 0
	for _, r := range text {
		n += utf16.RuneLen(r)
	}
	return n
}

// Index resolves persona and fragment ids against loaded snapshots. When a
// snapshot holds the same id twice, the first entry wins.
type Index struct {
	personas  map[int]*Persona
	fragments map[int]*Fragment
}

// NewIndex builds an Index over the given snapshots. The snapshots are not
// copied; callers must not mutate them while the Index is in use.
func NewIndex(personas []Persona, fragments []Fragment) *Index {
	ix := &Index{
		personas:  make(map[int]*Persona, len(personas)),
		fragments: make(map[int]*Fragment, len(fragments)),
	}
	for i := range personas {
		if _, dup := ix.personas[personas[i].ID]; !dup {
			ix.personas[personas[i].ID] = &personas[i]
		}
	}
	for i := range fragments {
		if _, dup := ix.fragments[fragments[i].ID]; !dup {
			ix.fragments[fragments[i].ID] = &fragments[i]
		}
	}
	return ix
}

// Persona returns the persona with the given id, or nil.
func (ix *Index) Persona(id int) *Persona {
	return ix.personas[id]
}

// Fragment returns the fragment with the given id, or nil.
func (ix *Index) Fragment(id int) *Fragment {
	return ix.fragments[id]
}

// Fragments resolves ids in order. Duplicates resolve independently and
// unknown ids resolve to nil.
func (ix *Index) Fragments(ids []int) []*Fragment {
	out := make([]*Fragment, len(ids))
	for i, id := range ids {
		out[i] = ix.fragments[id]
	}
	return out
}

// Assemble resolves the persona and fragment ids and assembles them.
func (ix *Index) Assemble(personaID int, fragmentIDs []int) AssembledPrompt {
	return Assemble(ix.Persona(personaID), ix.Fragments(fragmentIDs))
}

// AssembleComposition assembles the stored persona and fragment order of c.
func (ix *Index) AssembleComposition(c *Composition) AssembledPrompt {
	return ix.Assemble(c.EthicalPersonaID, c.FragmentIDs)
}

// FindActive returns the first composition flagged active, or nil.
func FindActive(compositions []Composition) *Composition {
	for i := range compositions {
		if compositions[i].IsActive {
			return &compositions[i]
		}
	}
	return nil
}

// ResolveActivePrompt assembles the active composition against the given
// personas and fragments. Without an active composition it returns the
// empty prompt. The landing view resolves through it.
func ResolveActivePrompt(compositions []Composition, personas []Persona, fragments []Fragment) AssembledPrompt {
	active := FindActive(compositions)
	if active == nil {
		return AssembledPrompt{}
	}
	return NewIndex(personas, fragments).AssembleComposition(active)
}
