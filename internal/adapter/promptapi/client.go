// Package promptapi provides an HTTP client for the prompt backend that owns
// personas, fragments and compositions.
package promptapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Strob0t/PromptForge/internal/domain"
	"github.com/Strob0t/PromptForge/internal/domain/prompt"
	"github.com/Strob0t/PromptForge/internal/resilience"
)

const (
	fragmentsPath    = "/api/prompt-fragments"
	personasPath     = "/api/ethical-personas"
	compositionsPath = "/api/prompt-compositions"

	// DefaultEvaluatePath is the test article endpoint of the evaluation agent.
	DefaultEvaluatePath = "/api/test-article-simple"

	maxResponseBytes = 4 << 20
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	Timeout      time.Duration // 0 disables the client timeout
	EvaluatePath string
	Transport    http.RoundTripper // wrapped with otelhttp
	Logger       *slog.Logger
	// Breaker, when set, fails calls fast while the backend is down.
	Breaker *resilience.Breaker
}

// Client talks to the prompt backend REST API.
type Client struct {
	baseURL      string
	evaluatePath string
	httpClient   *http.Client
	breaker      *resilience.Breaker
	log          *slog.Logger
}

// NewClient creates a new prompt backend client.
func NewClient(baseURL string, opts Options) *Client {
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	evalPath := opts.EvaluatePath
	if evalPath == "" {
		evalPath = DefaultEvaluatePath
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		evaluatePath: evalPath,
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		breaker: opts.Breaker,
		log:     log,
	}
}

// NewBreaker returns a circuit breaker that opens on backend outages only.
// Error responses such as a 404 or a validation failure leave it closed.
func NewBreaker(maxFailures int, timeout time.Duration) *resilience.Breaker {
	return resilience.NewBreaker(maxFailures, timeout, func(err error) bool {
		return errors.Is(err, domain.ErrUnavailable)
	})
}

// BreakerState reports the circuit state, "closed" without a breaker.
func (c *Client) BreakerState() string { return c.breaker.State() }

// ListFragments returns all fragments. Malformed records are skipped and
// logged.
func (c *Client) ListFragments(ctx context.Context) ([]prompt.Fragment, error) {
	data, err := c.doRequest(ctx, "load fragments", http.MethodGet, fragmentsPath, nil)
	if err != nil {
		return nil, err
	}
	return listResult(c, "load fragments", data, prompt.ParseFragments)
}

// CreateFragment creates a fragment and returns the stored record.
func (c *Client) CreateFragment(ctx context.Context, req prompt.CreateEntryRequest) (*prompt.Fragment, error) {
	return create(ctx, c, "save fragment", fragmentsPath, req, prompt.ParseFragment)
}

// DeleteFragment deletes a fragment by id.
func (c *Client) DeleteFragment(ctx context.Context, id int) error {
	_, err := c.doRequest(ctx, "delete fragment", http.MethodDelete, itemPath(fragmentsPath, id), nil)
	return err
}

// ListPersonas returns all personas.
func (c *Client) ListPersonas(ctx context.Context) ([]prompt.Persona, error) {
	data, err := c.doRequest(ctx, "load personas", http.MethodGet, personasPath, nil)
	if err != nil {
		return nil, err
	}
	return listResult(c, "load personas", data, prompt.ParsePersonas)
}

// CreatePersona creates a persona and returns the stored record.
func (c *Client) CreatePersona(ctx context.Context, req prompt.CreateEntryRequest) (*prompt.Persona, error) {
	return create(ctx, c, "save persona", personasPath, req, prompt.ParsePersona)
}

// DeletePersona deletes a persona by id.
func (c *Client) DeletePersona(ctx context.Context, id int) error {
	_, err := c.doRequest(ctx, "delete persona", http.MethodDelete, itemPath(personasPath, id), nil)
	return err
}

// ListCompositions returns all compositions.
func (c *Client) ListCompositions(ctx context.Context) ([]prompt.Composition, error) {
	data, err := c.doRequest(ctx, "load compositions", http.MethodGet, compositionsPath, nil)
	if err != nil {
		return nil, err
	}
	return listResult(c, "load compositions", data, prompt.ParseCompositions)
}

// CreateComposition creates a composition and returns the stored record.
func (c *Client) CreateComposition(ctx context.Context, req prompt.CreateCompositionRequest) (*prompt.Composition, error) {
	return create(ctx, c, "save composition", compositionsPath, req, prompt.ParseComposition)
}

// ActivateComposition marks the composition active. The backend deactivates
// every other composition in the same operation.
func (c *Client) ActivateComposition(ctx context.Context, id int) error {
	_, err := c.doRequest(ctx, "activate composition", http.MethodPut, itemPath(compositionsPath, id)+"/activate", nil)
	return err
}

// DeleteComposition deletes a composition by id. The backend rejects
// deleting the active composition.
func (c *Client) DeleteComposition(ctx context.Context, id int) error {
	_, err := c.doRequest(ctx, "delete composition", http.MethodDelete, itemPath(compositionsPath, id), nil)
	return err
}

// Evaluate submits a test article. Some backend versions expect the body
// under "content" instead of "article"; a rejected first attempt is retried
// once with that field name. Transport failures are not retried. Both
// attempts count as one call for the circuit breaker.
func (c *Client) Evaluate(ctx context.Context, req prompt.EvaluateRequest) (*prompt.Evaluation, error) {
	const op = "evaluate article"
	primary, err := json.Marshal(map[string]string{"title": req.Title, "article": req.Article})
	if err != nil {
		return nil, fmt.Errorf("marshal evaluate: %w", err)
	}
	fallback, err := json.Marshal(map[string]string{"title": req.Title, "content": req.Article})
	if err != nil {
		return nil, fmt.Errorf("marshal evaluate: %w", err)
	}

	var data []byte
	err = c.guard(op, func() error {
		var err error
		data, err = c.send(ctx, op, http.MethodPost, c.evaluatePath, primary)
		if err == nil || !IsAPIError(err) {
			return err
		}
		c.log.Debug("evaluate rejected, retrying with content field", "error", err)
		data, err = c.send(ctx, op, http.MethodPost, c.evaluatePath, fallback)
		return err
	})
	if err != nil {
		return nil, err
	}
	return prompt.ParseEvaluation(data)
}

// Health reports whether the backend answers the fragment listing.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, "health check", http.MethodGet, fragmentsPath, nil)
	return err
}

func listResult[T any](c *Client, op string, data []byte, parse func([]byte) ([]T, error)) ([]T, error) {
	items, err := parse(data)
	if items == nil && err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err != nil {
		c.log.Warn("skipped malformed backend records", "op", op, "error", err)
	}
	return items, nil
}

func create[T any](ctx context.Context, c *Client, op, path string, req any, parse func([]byte) (T, error)) (*T, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", op, err)
	}
	data, err := c.doRequest(ctx, op, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	v, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &v, nil
}

func itemPath(base string, id int) string {
	return base + "/" + strconv.Itoa(id)
}

func (c *Client) doRequest(ctx context.Context, op, method, path string, body []byte) ([]byte, error) {
	var data []byte
	err := c.guard(op, func() error {
		var err error
		data, err = c.send(ctx, op, method, path, body)
		return err
	})
	return data, err
}

// guard runs fn as one call through the circuit breaker.
func (c *Client) guard(op string, fn func() error) error {
	err := c.breaker.Execute(fn)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrUnavailable, err)
	}
	return err
}

func (c *Client) send(ctx context.Context, op, method, path string, body []byte) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", op, ctxErr)
		}
		c.log.Warn("prompt backend unreachable", "op", op, "error", err)
		return nil, fmt.Errorf("%s: %w: %v", op, domain.ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w: %v", op, domain.ErrUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Op: op, Status: resp.StatusCode, Detail: detailOf(data)}
		c.log.Warn("prompt backend error", "op", op, "status", resp.StatusCode, "detail", apiErr.Detail)
		return nil, apiErr
	}
	return data, nil
}
