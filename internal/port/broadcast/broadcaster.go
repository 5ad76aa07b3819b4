// Package broadcast defines the port for broadcasting real-time events to
// connected console clients.
package broadcast

import "context"

// Event types broadcast to console clients.
const (
	EventPersonaCreated       = "prompt.persona.created"
	EventPersonaDeleted       = "prompt.persona.deleted"
	EventFragmentCreated      = "prompt.fragment.created"
	EventFragmentDeleted      = "prompt.fragment.deleted"
	EventCompositionCreated   = "prompt.composition.created"
	EventCompositionDeleted   = "prompt.composition.deleted"
	EventCompositionActivated = "prompt.composition.activated"
)

// Broadcaster sends real-time events to all connected clients.
type Broadcaster interface {
	// BroadcastEvent sends a typed event to all connected clients.
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
