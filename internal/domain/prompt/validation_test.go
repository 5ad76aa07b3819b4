package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/Strob0t/PromptForge/internal/domain"
)

func TestValidateCreateEntry(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateEntryRequest
		wantErr bool
		errMsg  string
	}{
		{name: "valid", req: CreateEntryRequest{Name: "Utilitarian Editor", Content: "You are..."}},
		{name: "missing name", req: CreateEntryRequest{Content: "x"}, wantErr: true, errMsg: "both name and content"},
		{name: "blank content", req: CreateEntryRequest{Name: "x", Content: "  \n"}, wantErr: true, errMsg: "both name and content"},
		{name: "name too long", req: CreateEntryRequest{Name: strings.Repeat("a", 256), Content: "x"}, wantErr: true, errMsg: "exceeds"},
		{name: "control chars", req: CreateEntryRequest{Name: "a\x00b", Content: "x"}, wantErr: true, errMsg: "control"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCreateEntry(&tt.req)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, domain.ErrValidation) {
					t.Errorf("expected ErrValidation, got: %v", err)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error %q does not contain %q", err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateCreateEntryTrims(t *testing.T) {
	req := CreateEntryRequest{Name: "  Editor ", Content: "\nBe fair.\n"}
	if err := ValidateCreateEntry(&req); err != nil {
		t.Fatal(err)
	}
	if req.Name != "Editor" || req.Content != "Be fair." {
		t.Errorf("not trimmed: %+v", req)
	}
}

func TestValidateCreateComposition(t *testing.T) {
	req := CreateCompositionRequest{Name: "News", EthicalPersonaID: 1}
	if err := ValidateCreateComposition(&req); err != nil {
		t.Fatal(err)
	}
	if req.FragmentIDs == nil {
		t.Error("nil fragment ids should be normalized")
	}

	for _, bad := range []CreateCompositionRequest{
		{EthicalPersonaID: 1},
		{Name: "News"},
		{Name: "News", EthicalPersonaID: 1, FragmentIDs: []int{0}},
	} {
		if err := ValidateCreateComposition(&bad); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%+v: expected ErrValidation, got %v", bad, err)
		}
	}
}

func TestEvaluateRequestValidate(t *testing.T) {
	r := EvaluateRequest{Title: " T ", Article: " body "}
	if err := r.Validate(); err != nil {
		t.Fatal(err)
	}
	if r.Title != "T" || r.Article != "body" {
		t.Errorf("not trimmed: %+v", r)
	}
	empty := EvaluateRequest{Title: "T"}
	if err := empty.Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
