package prompt

import "time"

// Activation records that a composition was made active, together with the
// prompt it resolved to at that moment.
type Activation struct {
	ID              int64           `json:"id"`
	CompositionID   int             `json:"composition_id"`
	CompositionName string          `json:"composition_name"`
	Prompt          AssembledPrompt `json:"prompt"`
	RequestID       string          `json:"request_id,omitempty"`
	ActivatedAt     time.Time       `json:"activated_at"`
}
