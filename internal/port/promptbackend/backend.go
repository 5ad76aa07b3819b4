// Package promptbackend defines the port for the external service that
// owns personas, fragments and compositions.
package promptbackend

import (
	"context"

	"github.com/Strob0t/PromptForge/internal/domain/prompt"
)

// Backend is the port interface for the prompt backend. Every call is a
// single request/response with no retries.
type Backend interface {
	ListFragments(ctx context.Context) ([]prompt.Fragment, error)
	CreateFragment(ctx context.Context, req prompt.CreateEntryRequest) (*prompt.Fragment, error)
	DeleteFragment(ctx context.Context, id int) error

	ListPersonas(ctx context.Context) ([]prompt.Persona, error)
	CreatePersona(ctx context.Context, req prompt.CreateEntryRequest) (*prompt.Persona, error)
	DeletePersona(ctx context.Context, id int) error

	ListCompositions(ctx context.Context) ([]prompt.Composition, error)
	CreateComposition(ctx context.Context, req prompt.CreateCompositionRequest) (*prompt.Composition, error)
	// ActivateComposition marks the composition active, deactivating all others.
	ActivateComposition(ctx context.Context, id int) error
	DeleteComposition(ctx context.Context, id int) error

	// Evaluate submits an article to the evaluation agent.
	Evaluate(ctx context.Context, req prompt.EvaluateRequest) (*prompt.Evaluation, error)
}
