// Package journal defines the port for recording composition activations.
package journal

import (
	"context"

	"github.com/Strob0t/PromptForge/internal/domain/prompt"
)

// DefaultListLimit bounds List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Journal is the port interface for the activation history.
type Journal interface {
	// Record stores a and fills in its ID.
	Record(ctx context.Context, a *prompt.Activation) error

	// List returns the most recent activations, newest first.
	List(ctx context.Context, limit int) ([]prompt.Activation, error)
}
