package prompt

import (
	"errors"
	"testing"
)

func TestParseFragments(t *testing.T) {
	data := []byte(`[
		{"id": 1, "name": "Concise", "content": "Be concise.", "is_system": true},
		{"id": 2, "name": "Finnish", "content": "Answer in Finnish."},
		{"id": "3", "name": "bad id", "content": "x"},
		{"name": "no id", "content": "x"}
	]`)

	got, err := ParseFragments(data)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for bad records, got %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 valid fragments, got %d", len(got))
	}
	if !got[0].IsSystem || got[1].IsSystem {
		t.Errorf("is_system not parsed: %+v", got)
	}
	if got[1].Content != "Answer in Finnish." {
		t.Errorf("content = %q", got[1].Content)
	}
}

func TestParseListNotFoundDetail(t *testing.T) {
	got, err := ParseCompositions([]byte(`{"detail": "Not Found"}`))
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", got)
	}
}

func TestParseListRejectsObjects(t *testing.T) {
	_, err := ParsePersonas([]byte(`{"detail": "Internal Server Error"}`))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	_, err = ParsePersonas([]byte(`not json`))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestParsePersonaTimestamps(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantNil bool
	}{
		{"rfc3339", `{"id":1,"name":"a","content":"b","created_at":"2025-03-01T10:00:00Z"}`, false},
		{"python naive", `{"id":1,"name":"a","content":"b","created_at":"2025-03-01T10:00:00.123456"}`, false},
		{"space separated", `{"id":1,"name":"a","content":"b","created_at":"2025-03-01 10:00:00"}`, false},
		{"absent", `{"id":1,"name":"a","content":"b"}`, true},
		{"garbage", `{"id":1,"name":"a","content":"b","created_at":"yesterday"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePersona([]byte(tt.data))
			if err != nil {
				t.Fatal(err)
			}
			if (p.CreatedAt == nil) != tt.wantNil {
				t.Errorf("CreatedAt = %v, wantNil %v", p.CreatedAt, tt.wantNil)
			}
		})
	}
}

func TestParseComposition(t *testing.T) {
	c, err := ParseComposition([]byte(`{"id":4,"name":"News","ethical_persona_id":1,"fragment_ids":null,"is_active":true}`))
	if err != nil {
		t.Fatal(err)
	}
	if c.FragmentIDs == nil || len(c.FragmentIDs) != 0 {
		t.Errorf("null fragment_ids should become empty, got %#v", c.FragmentIDs)
	}
	if !c.IsActive || c.EthicalPersonaID != 1 {
		t.Errorf("unexpected composition %+v", c)
	}

	_, err = ParseComposition([]byte(`{"id":4,"name":"News"}`))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("missing persona id: expected ErrMalformed, got %v", err)
	}

	_, err = ParseComposition([]byte(`{"id":4,"name":"News","ethical_persona_id":1,"fragment_ids":["a"]}`))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("bad fragment ids: expected ErrMalformed, got %v", err)
	}
}

func TestParseEvaluation(t *testing.T) {
	ev, err := ParseEvaluation([]byte(`{"status":"ok","featured":false,"issues_count":2,"prompt_used":"P","extra":1}`))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Featured == nil || *ev.Featured {
		t.Errorf("featured = %v", ev.Featured)
	}
	if ev.InterviewNeeded != nil {
		t.Errorf("interview_needed should be absent")
	}
	if ev.IssuesCount == nil || *ev.IssuesCount != 2 {
		t.Errorf("issues_count = %v", ev.IssuesCount)
	}
	if len(ev.Raw) == 0 {
		t.Error("raw body not kept")
	}
}
