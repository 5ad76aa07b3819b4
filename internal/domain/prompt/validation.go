package prompt

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/Strob0t/PromptForge/internal/domain"
)

const maxNameLength = 255

// ValidateCreateEntry validates a persona or fragment creation request.
// Name and content are trimmed in place.
func ValidateCreateEntry(req *CreateEntryRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Content = strings.TrimSpace(req.Content)
	if req.Name == "" || req.Content == "" {
		return fmt.Errorf("%w: Please fill in both name and content", domain.ErrValidation)
	}
	return validateName(req.Name)
}

// ValidateCreateComposition validates a composition creation request. A nil
// fragment list is normalized to an empty one.
func ValidateCreateComposition(req *CreateCompositionRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.EthicalPersonaID <= 0 {
		return fmt.Errorf("%w: Please enter name and select a persona", domain.ErrValidation)
	}
	if req.FragmentIDs == nil {
		req.FragmentIDs = []int{}
	}
	for _, id := range req.FragmentIDs {
		if id <= 0 {
			return fmt.Errorf("%w: invalid fragment id %d", domain.ErrValidation, id)
		}
	}
	return validateName(req.Name)
}

func validateName(name string) error {
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", domain.ErrValidation, maxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: name contains control characters", domain.ErrValidation)
		}
	}
	return nil
}
