package prompt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformed marks a backend record that is missing a required field or
// carries a field of the wrong type.
var ErrMalformed = errors.New("malformed record")

// timestampLayouts are the created_at formats accepted from the backend.
// Python backends commonly omit the zone offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

type wireEntry struct {
	ID        *int    `json:"id"`
	Name      *string `json:"name"`
	Content   *string `json:"content"`
	IsSystem  *bool   `json:"is_system"`
	CreatedAt *string `json:"created_at"`
}

type wireComposition struct {
	ID               *int    `json:"id"`
	Name             *string `json:"name"`
	EthicalPersonaID *int    `json:"ethical_persona_id"`
	FragmentIDs      []int   `json:"fragment_ids"`
	IsActive         *bool   `json:"is_active"`
	CreatedAt        *string `json:"created_at"`
}

// ParseFragments decodes a backend fragment listing. Records that fail to
// parse are left out and reported in the returned error; the remaining
// records are still returned.
func ParseFragments(data []byte) ([]Fragment, error) {
	return parseList(data, "fragment", ParseFragment)
}

// ParseFragment decodes a single fragment.
func ParseFragment(data []byte) (Fragment, error) {
	e, err := decodeEntry(data)
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{ID: *e.ID, Name: *e.Name, Content: *e.Content, IsSystem: boolOr(e.IsSystem)}, nil
}

// ParsePersonas decodes a backend persona listing with the same partial
// failure semantics as ParseFragments.
func ParsePersonas(data []byte) ([]Persona, error) {
	return parseList(data, "persona", ParsePersona)
}

// ParsePersona decodes a single persona.
func ParsePersona(data []byte) (Persona, error) {
	e, err := decodeEntry(data)
	if err != nil {
		return Persona{}, err
	}
	return Persona{
		ID:        *e.ID,
		Name:      *e.Name,
		Content:   *e.Content,
		IsSystem:  boolOr(e.IsSystem),
		CreatedAt: parseTimestamp(e.CreatedAt),
	}, nil
}

// ParseCompositions decodes a backend composition listing with the same
// partial failure semantics as ParseFragments.
func ParseCompositions(data []byte) ([]Composition, error) {
	return parseList(data, "composition", ParseComposition)
}

// ParseComposition decodes a single composition. A null fragment_ids list
// becomes an empty list.
func ParseComposition(data []byte) (Composition, error) {
	var w wireComposition
	if err := json.Unmarshal(data, &w); err != nil {
		return Composition{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch {
	case w.ID == nil:
		return Composition{}, fmt.Errorf("%w: missing id", ErrMalformed)
	case w.Name == nil:
		return Composition{}, fmt.Errorf("%w: missing name", ErrMalformed)
	case w.EthicalPersonaID == nil:
		return Composition{}, fmt.Errorf("%w: missing ethical_persona_id", ErrMalformed)
	}
	ids := w.FragmentIDs
	if ids == nil {
		ids = []int{}
	}
	return Composition{
		ID:               *w.ID,
		Name:             *w.Name,
		EthicalPersonaID: *w.EthicalPersonaID,
		FragmentIDs:      ids,
		IsActive:         boolOr(w.IsActive),
		CreatedAt:        parseTimestamp(w.CreatedAt),
	}, nil
}

// parseList decodes a JSON array record by record. A top-level object of
// the form {"detail": "Not Found"} is treated as an empty listing.
func parseList[T any](data []byte, kind string, parse func([]byte) (T, error)) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var d struct {
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(trimmed, &d); err == nil && d.Detail == "Not Found" {
			return []T{}, nil
		}
		return nil, fmt.Errorf("%s list: %w: expected array", kind, ErrMalformed)
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, fmt.Errorf("%s list: %w: %v", kind, ErrMalformed, err)
	}

	out := make([]T, 0, len(raws))
	var errs []error
	for i, raw := range raws {
		v, err := parse(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s #%d: %w", kind, i, err))
			continue
		}
		out = append(out, v)
	}
	return out, errors.Join(errs...)
}

func decodeEntry(data []byte) (wireEntry, error) {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return w, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch {
	case w.ID == nil:
		return w, fmt.Errorf("%w: missing id", ErrMalformed)
	case w.Name == nil:
		return w, fmt.Errorf("%w: missing name", ErrMalformed)
	case w.Content == nil:
		return w, fmt.Errorf("%w: missing content", ErrMalformed)
	}
	return w, nil
}

func boolOr(b *bool) bool {
	return b != nil && *b
}

// parseTimestamp returns nil for absent or unparseable timestamps; the
// field is informational only.
func parseTimestamp(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			return &t
		}
	}
	return nil
}
