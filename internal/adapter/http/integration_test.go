//go:build integration

// Integration tests run the console API against a real PostgreSQL journal
// and a stub prompt backend served over HTTP.
// Run with: DATABASE_URL=... go test -tags=integration ./internal/adapter/http/...
package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	pfhttp "github.com/Strob0t/PromptForge/internal/adapter/http"
	"github.com/Strob0t/PromptForge/internal/adapter/postgres"
	"github.com/Strob0t/PromptForge/internal/adapter/promptapi"
	"github.com/Strob0t/PromptForge/internal/config"
	"github.com/Strob0t/PromptForge/internal/domain/prompt"
	"github.com/Strob0t/PromptForge/internal/middleware"
	"github.com/Strob0t/PromptForge/internal/service"
)

// stubBackend serves the prompt backend REST API from memory.
func stubBackend(t *testing.T) string {
	t.Helper()
	var mu sync.Mutex
	active := 1
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/ethical-personas", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"name":"Utilitarian","content":"Be fair.","is_system":true}]`))
	})
	mux.HandleFunc("GET /api/prompt-fragments", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":10,"name":"Concise","content":"Short."}]`))
	})
	mux.HandleFunc("GET /api/prompt-compositions", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "name": "News", "ethical_persona_id": 1, "fragment_ids": []int{10}, "is_active": active == 1},
			{"id": 2, "name": "Bare", "ethical_persona_id": 1, "fragment_ids": []int{}, "is_active": active == 2},
		})
	})
	mux.HandleFunc("PUT /api/prompt-compositions/{id}/activate", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.PathValue("id") {
		case "1":
			active = 1
		case "2":
			active = 2
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Composition not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestIntegrationActivationJournal(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()

	cfg := config.Defaults()
	cfg.Postgres.DSN = dsn
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	prompts := service.NewPromptService(promptapi.NewClient(stubBackend(t), promptapi.Options{}), nil)
	prompts.SetJournal(postgres.NewStore(pool))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	pfhttp.MountRoutes(r, &pfhttp.Handlers{Prompts: prompts}, nil)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	req, _ := http.NewRequestWithContext(ctx, http.MethodPut, srv.URL+"/api/v1/compositions/2/activate", http.NoBody)
	req.Header.Set(middleware.HeaderRequestID, "integration-activate")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("activate: expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/v1/activations?limit=1")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var items []prompt.Activation
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 activation, got %d", len(items))
	}
	got := items[0]
	if got.CompositionID != 2 || got.Prompt.Text != "Be fair." || got.RequestID != "integration-activate" {
		t.Errorf("unexpected journal entry: %+v", got)
	}

	resp2, err := http.Get(srv.URL + "/api/v1/active")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp2.Body.Close() }()
	var view service.ActiveView
	if err := json.NewDecoder(resp2.Body).Decode(&view); err != nil {
		t.Fatal(err)
	}
	if view.Composition == nil || !strings.EqualFold(view.Composition.Name, "Bare") {
		t.Errorf("expected Bare active, got %+v", view.Composition)
	}
}
