package messagequeue

import "time"

// CompositionActivatedPayload is the schema for composition.activated
// messages. It carries the assembled prompt so that the evaluation backend
// can switch without another round trip.
type CompositionActivatedPayload struct {
	CompositionID int       `json:"composition_id"`
	Name          string    `json:"name"`
	Prompt        string    `json:"prompt"`
	PartCount     int       `json:"part_count"`
	CharCount     int       `json:"char_count"`
	ActivatedAt   time.Time `json:"activated_at"`
}

// EntityChangedPayload is the schema for the created/deleted messages of
// personas, fragments and compositions.
type EntityChangedPayload struct {
	Kind string `json:"kind"` // "persona", "fragment", "composition"
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}
