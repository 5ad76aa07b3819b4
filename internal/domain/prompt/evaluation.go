package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Strob0t/PromptForge/internal/domain"
)

// EvaluateRequest submits an article to the evaluation agent, which judges
// it with the currently active prompt.
type EvaluateRequest struct {
	Title   string `json:"title"`
	Article string `json:"article"`
}

// Validate trims the request in place and requires both fields.
func (r *EvaluateRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Article = strings.TrimSpace(r.Article)
	if r.Title == "" || r.Article == "" {
		return fmt.Errorf("%w: title and article text are required", domain.ErrValidation)
	}
	return nil
}

// Evaluation is the evaluation agent's verdict. Only Status is always
// present; the remaining fields are optional and kept as pointers so that
// absent and false/zero stay distinguishable. Raw keeps the full response.
type Evaluation struct {
	Status            string          `json:"status"`
	EditorialDecision json.RawMessage `json:"editorial_decision,omitempty"`
	Featured          *bool           `json:"featured,omitempty"`
	InterviewNeeded   *bool           `json:"interview_needed,omitempty"`
	IssuesCount       *int            `json:"issues_count,omitempty"`
	Reasoning         string          `json:"reasoning,omitempty"`
	PromptUsed        string          `json:"prompt_used,omitempty"`
	Raw               json.RawMessage `json:"raw,omitempty"`
}

// ParseEvaluation decodes an evaluation response and keeps the raw body.
func ParseEvaluation(data []byte) (*Evaluation, error) {
	var ev Evaluation
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: evaluation: %v", ErrMalformed, err)
	}
	ev.Raw = append(json.RawMessage(nil), data...)
	return &ev, nil
}
