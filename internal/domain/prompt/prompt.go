// Package prompt holds the prompt building blocks (personas and fragments),
// the compositions that pair them, and the pure logic that assembles a
// composition into the final prompt text.
package prompt

import "time"

// Separator joins the parts of an assembled prompt.
const Separator = "\n\n"

// Fragment is a reusable block of instruction text that modifies or extends
// a persona's behavior.
type Fragment struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Content  string `json:"content"`
	IsSystem bool   `json:"is_system"`
}

// Deletable reports whether an end user may delete the fragment.
func (f *Fragment) Deletable() bool { return !f.IsSystem }

// Persona is a reusable block of instruction text establishing the ethical
// or behavioral framing of the evaluation agent.
type Persona struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Content   string     `json:"content"`
	IsSystem  bool       `json:"is_system"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Deletable reports whether an end user may delete the persona.
func (p *Persona) Deletable() bool { return !p.IsSystem }

// Composition pairs exactly one persona with an ordered list of fragments.
// FragmentIDs may contain duplicates and ids of fragments that no longer
// exist; both are tolerated when the composition is assembled.
type Composition struct {
	ID               int        `json:"id"`
	Name             string     `json:"name"`
	EthicalPersonaID int        `json:"ethical_persona_id"`
	FragmentIDs      []int      `json:"fragment_ids"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
}

// AssembledPrompt is the derived prompt text of a persona and its fragments.
type AssembledPrompt struct {
	Text      string `json:"text"`
	PartCount int    `json:"part_count"`
	CharCount int    `json:"char_count"`
}

// Empty reports whether no persona could be resolved for the prompt.
func (a AssembledPrompt) Empty() bool { return a.PartCount == 0 }

// CreateEntryRequest is the body for creating a persona or a fragment.
type CreateEntryRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// CreateCompositionRequest is the body for creating a composition.
type CreateCompositionRequest struct {
	Name             string `json:"name"`
	EthicalPersonaID int    `json:"ethical_persona_id"`
	FragmentIDs      []int  `json:"fragment_ids"`
}
