package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/PromptForge/internal/domain/prompt"
	"github.com/Strob0t/PromptForge/internal/port/journal"
)

// Store implements journal.Journal using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Record inserts an activation and fills in its ID. A zero ActivatedAt is
// set to the current time.
func (s *Store) Record(ctx context.Context, a *prompt.Activation) error {
	if a.ActivatedAt.IsZero() {
		a.ActivatedAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO composition_activations
		   (composition_id, composition_name, prompt_text, part_count, char_count, request_id, activated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		a.CompositionID, a.CompositionName, a.Prompt.Text, a.Prompt.PartCount, a.Prompt.CharCount,
		a.RequestID, a.ActivatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("record activation: %w", err)
	}
	return nil
}

// List returns the most recent activations, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]prompt.Activation, error) {
	if limit <= 0 {
		limit = journal.DefaultListLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, composition_id, composition_name, prompt_text, part_count, char_count, request_id, activated_at
		 FROM composition_activations
		 ORDER BY activated_at DESC, id DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list activations: %w", err)
	}
	defer rows.Close()

	var out []prompt.Activation
	for rows.Next() {
		a, err := scanActivation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activations: %w", err)
	}
	return orEmpty(out), nil
}

func scanActivation(row scannable) (prompt.Activation, error) {
	var a prompt.Activation
	err := row.Scan(&a.ID, &a.CompositionID, &a.CompositionName,
		&a.Prompt.Text, &a.Prompt.PartCount, &a.Prompt.CharCount,
		&a.RequestID, &a.ActivatedAt)
	if err != nil {
		return a, fmt.Errorf("scan activation: %w", err)
	}
	return a, nil
}
