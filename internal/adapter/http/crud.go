package http

import (
	"context"
	"net/http"
)

// ---------------------------------------------------------------------------
// Generic CRUD handler factories
// ---------------------------------------------------------------------------

// handleList creates a handler that lists resources and returns JSON.
func handleList[T any](listFn func(ctx context.Context) ([]T, error), failMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := listFn(r.Context())
		if err != nil {
			writeDomainError(w, err, failMsg)
			return
		}
		if items == nil {
			items = []T{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// handleCreate creates a handler that decodes a JSON body and creates a resource.
func handleCreate[Req any, Res any](createFn func(ctx context.Context, req Req) (*Res, error), failMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := readJSON[Req](w, r)
		if !ok {
			return
		}
		res, err := createFn(r.Context(), req)
		if err != nil {
			writeDomainError(w, err, failMsg)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

// handleDelete creates a handler that deletes a resource by URL param "id".
func handleDelete(deleteFn func(ctx context.Context, id int) error, failMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		if err := deleteFn(r.Context(), id); err != nil {
			writeDomainError(w, err, failMsg)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
