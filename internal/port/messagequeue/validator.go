package messagequeue

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the subject's suffix. Unknown subjects pass validation.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	var target any
	switch {
	case hasSuffix(subject, SubjectCompositionActivated):
		target = &CompositionActivatedPayload{}
	case hasSuffix(subject, SubjectCompositionCreated),
		hasSuffix(subject, SubjectCompositionDeleted),
		hasSuffix(subject, SubjectPersonaCreated),
		hasSuffix(subject, SubjectPersonaDeleted),
		hasSuffix(subject, SubjectFragmentCreated),
		hasSuffix(subject, SubjectFragmentDeleted):
		target = &EntityChangedPayload{}
	default:
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}
	return nil
}

func hasSuffix(subject, suffix string) bool {
	return subject == suffix || strings.HasSuffix(subject, "."+suffix)
}
