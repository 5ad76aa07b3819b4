// Package service implements business logic on top of ports.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	pfotel "github.com/Strob0t/PromptForge/internal/adapter/otel"
	"github.com/Strob0t/PromptForge/internal/domain"
	"github.com/Strob0t/PromptForge/internal/domain/prompt"
	"github.com/Strob0t/PromptForge/internal/logger"
	"github.com/Strob0t/PromptForge/internal/port/broadcast"
	"github.com/Strob0t/PromptForge/internal/port/cache"
	"github.com/Strob0t/PromptForge/internal/port/journal"
	"github.com/Strob0t/PromptForge/internal/port/messagequeue"
	"github.com/Strob0t/PromptForge/internal/port/promptbackend"
)

// Cache keys of the backend list snapshots.
const (
	cacheKeyPersonas     = "prompt:personas"
	cacheKeyFragments    = "prompt:fragments"
	cacheKeyCompositions = "prompt:compositions"
)

// PreviewPlaceholder is shown instead of a preview when no persona is selected.
const PreviewPlaceholder = "Select a persona to see preview..."

// PersonaListing groups personas the way the console lists them.
type PersonaListing struct {
	User   []prompt.Persona `json:"user"`
	System []prompt.Persona `json:"system"`
}

// CompositionView is a composition decorated with display labels and its
// assembled prompt.
type CompositionView struct {
	prompt.Composition
	PersonaName   string                 `json:"persona_name"`
	FragmentNames string                 `json:"fragment_names"`
	Prompt        prompt.AssembledPrompt `json:"prompt"`
}

// ActiveView is the landing view: the active composition, if any, and the
// prompt the evaluation backend currently uses.
type ActiveView struct {
	Composition *prompt.Composition    `json:"composition"`
	Prompt      prompt.AssembledPrompt `json:"prompt"`
}

// Preview is the live preview of a selection.
type Preview struct {
	Prompt      prompt.AssembledPrompt `json:"prompt"`
	Placeholder string                 `json:"placeholder,omitempty"`
}

// PromptService orchestrates the prompt backend. It keeps the last
// successfully loaded snapshot of each list; a failed call never alters a
// snapshot.
type PromptService struct {
	backend promptbackend.Backend
	log     *slog.Logger

	cache    cache.Cache
	cacheTTL time.Duration
	queue    messagequeue.Queue
	prefix   string
	hub      broadcast.Broadcaster
	journal  journal.Journal
	metrics  *pfotel.Metrics

	mu               sync.RWMutex
	personas         []prompt.Persona
	fragments        []prompt.Fragment
	compositions     *prompt.CompositionSet
	personasLoaded   bool
	fragmentsLoaded  bool
	compositionsSeen bool
}

// NewPromptService creates a PromptService backed by the given backend.
func NewPromptService(backend promptbackend.Backend, log *slog.Logger) *PromptService {
	if log == nil {
		log = slog.Default()
	}
	return &PromptService{
		backend:      backend,
		log:          log,
		compositions: prompt.NewCompositionSet(nil),
	}
}

// SetCache enables list snapshot caching. A non-positive ttl disables it.
func (s *PromptService) SetCache(c cache.Cache, ttl time.Duration) {
	if ttl <= 0 {
		c = nil
	}
	s.cache, s.cacheTTL = c, ttl
}

// SetQueue enables event publishing under the given subject prefix.
func (s *PromptService) SetQueue(q messagequeue.Queue, prefix string) {
	s.queue, s.prefix = q, prefix
}

// SetBroadcaster sets the live console event broadcaster.
func (s *PromptService) SetBroadcaster(b broadcast.Broadcaster) { s.hub = b }

// SetJournal enables recording of activations.
func (s *PromptService) SetJournal(j journal.Journal) { s.journal = j }

// SetMetrics sets the metric instruments.
func (s *PromptService) SetMetrics(m *pfotel.Metrics) { s.metrics = m }

// --- Loading ---

// LoadAll loads personas, fragments and compositions concurrently. Each
// list that loads is applied; the first failure is returned.
func (s *PromptService) LoadAll(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return s.refreshPersonas(ctx) })
	g.Go(func() error { return s.refreshFragments(ctx) })
	g.Go(func() error { return s.refreshCompositions(ctx) })
	return g.Wait()
}

func (s *PromptService) refreshPersonas(ctx context.Context) error {
	items, err := fetchList(ctx, s, cacheKeyPersonas, "load personas", s.backend.ListPersonas)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.personas, s.personasLoaded = items, true
	s.mu.Unlock()
	return nil
}

func (s *PromptService) refreshFragments(ctx context.Context) error {
	items, err := fetchList(ctx, s, cacheKeyFragments, "load fragments", s.backend.ListFragments)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.fragments, s.fragmentsLoaded = items, true
	s.mu.Unlock()
	return nil
}

func (s *PromptService) refreshCompositions(ctx context.Context) error {
	items, err := fetchList(ctx, s, cacheKeyCompositions, "load compositions", s.backend.ListCompositions)
	if err != nil {
		return err
	}
	set := prompt.NewCompositionSet(items)
	s.mu.Lock()
	s.compositions, s.compositionsSeen = set, true
	s.mu.Unlock()
	return nil
}

// fetchList reads a list through the cache, falling back to the backend.
func fetchList[T any](ctx context.Context, s *PromptService, key, op string, load func(context.Context) ([]T, error)) ([]T, error) {
	if s.cache != nil {
		if items, ok, err := cache.GetJSON[[]T](ctx, s.cache, key); err == nil && ok {
			return items, nil
		}
	}

	var items []T
	err := s.call(ctx, op, func(ctx context.Context) error {
		var err error
		items, err = load(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}

	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, key, items, s.cacheTTL); err != nil {
			logger.From(ctx, s.log).Warn("cache list snapshot", "key", key, "error", err)
		}
	}
	return items, nil
}

// call runs a single backend operation inside a span and records it.
func (s *PromptService) call(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := pfotel.StartBackendSpan(ctx, op)
	err := fn(ctx)
	pfotel.EndSpan(span, err)
	s.metrics.RecordBackendCall(ctx, op, err)
	return err
}

func (s *PromptService) invalidate(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		logger.From(ctx, s.log).Warn("cache invalidate", "key", key, "error", err)
	}
}

// index builds a resolver over the current persona and fragment snapshots.
func (s *PromptService) index() *prompt.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return prompt.NewIndex(s.personas, s.fragments)
}

// --- Personas ---

// Personas loads the personas, user-created ones newest first followed by
// system ones in alphabetical order.
func (s *PromptService) Personas(ctx context.Context) (PersonaListing, error) {
	if err := s.refreshPersonas(ctx); err != nil {
		return PersonaListing{}, err
	}
	s.mu.RLock()
	user, system := prompt.GroupPersonas(s.personas)
	s.mu.RUnlock()
	return PersonaListing{User: orEmpty(user), System: orEmpty(system)}, nil
}

// CreatePersona validates and creates a persona.
func (s *PromptService) CreatePersona(ctx context.Context, req prompt.CreateEntryRequest) (*prompt.Persona, error) {
	if err := prompt.ValidateCreateEntry(&req); err != nil {
		return nil, err
	}
	var created *prompt.Persona
	err := s.call(ctx, "save persona", func(ctx context.Context) error {
		var err error
		created, err = s.backend.CreatePersona(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cacheKeyPersonas)
	s.mu.Lock()
	if s.personasLoaded {
		s.personas = append(append([]prompt.Persona(nil), s.personas...), *created)
	}
	s.mu.Unlock()

	s.emitEntity(ctx, "persona", messagequeue.SubjectPersonaCreated, broadcast.EventPersonaCreated, created.ID, created.Name)
	return created, nil
}

// DeletePersona deletes a user persona. System personas are rejected with
// ErrProtected before the backend is contacted.
func (s *PromptService) DeletePersona(ctx context.Context, id int) error {
	if err := s.refreshPersonas(ctx); err != nil {
		return err
	}
	s.mu.RLock()
	var target *prompt.Persona
	for i := range s.personas {
		if s.personas[i].ID == id {
			p := s.personas[i]
			target = &p
			break
		}
	}
	s.mu.RUnlock()
	if target != nil && !target.Deletable() {
		return fmt.Errorf("persona %q is a system persona: %w", target.Name, domain.ErrProtected)
	}

	if err := s.call(ctx, "delete persona", func(ctx context.Context) error {
		return s.backend.DeletePersona(ctx, id)
	}); err != nil {
		return err
	}

	s.invalidate(ctx, cacheKeyPersonas)
	s.mu.Lock()
	s.personas = removeByID(s.personas, id, func(p prompt.Persona) int { return p.ID })
	s.mu.Unlock()

	name := ""
	if target != nil {
		name = target.Name
	}
	s.emitEntity(ctx, "persona", messagequeue.SubjectPersonaDeleted, broadcast.EventPersonaDeleted, id, name)
	return nil
}

// --- Fragments ---

// Fragments loads the fragments in backend order.
func (s *PromptService) Fragments(ctx context.Context) ([]prompt.Fragment, error) {
	if err := s.refreshFragments(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]prompt.Fragment{}, s.fragments...), nil
}

// CreateFragment validates and creates a fragment.
func (s *PromptService) CreateFragment(ctx context.Context, req prompt.CreateEntryRequest) (*prompt.Fragment, error) {
	if err := prompt.ValidateCreateEntry(&req); err != nil {
		return nil, err
	}
	var created *prompt.Fragment
	err := s.call(ctx, "save fragment", func(ctx context.Context) error {
		var err error
		created, err = s.backend.CreateFragment(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cacheKeyFragments)
	s.mu.Lock()
	if s.fragmentsLoaded {
		s.fragments = append(append([]prompt.Fragment(nil), s.fragments...), *created)
	}
	s.mu.Unlock()

	s.emitEntity(ctx, "fragment", messagequeue.SubjectFragmentCreated, broadcast.EventFragmentCreated, created.ID, created.Name)
	return created, nil
}

// DeleteFragment deletes a user fragment. System fragments are rejected
// with ErrProtected before the backend is contacted.
func (s *PromptService) DeleteFragment(ctx context.Context, id int) error {
	if err := s.refreshFragments(ctx); err != nil {
		return err
	}
	s.mu.RLock()
	var target *prompt.Fragment
	for i := range s.fragments {
		if s.fragments[i].ID == id {
			f := s.fragments[i]
			target = &f
			break
		}
	}
	s.mu.RUnlock()
	if target != nil && !target.Deletable() {
		return fmt.Errorf("fragment %q is a system fragment: %w", target.Name, domain.ErrProtected)
	}

	if err := s.call(ctx, "delete fragment", func(ctx context.Context) error {
		return s.backend.DeleteFragment(ctx, id)
	}); err != nil {
		return err
	}

	s.invalidate(ctx, cacheKeyFragments)
	s.mu.Lock()
	s.fragments = removeByID(s.fragments, id, func(f prompt.Fragment) int { return f.ID })
	s.mu.Unlock()

	name := ""
	if target != nil {
		name = target.Name
	}
	s.emitEntity(ctx, "fragment", messagequeue.SubjectFragmentDeleted, broadcast.EventFragmentDeleted, id, name)
	return nil
}

// --- Compositions ---

// loadCompositionsDegraded refreshes the compositions together with the
// personas and fragments they reference. Only a compositions failure is
// returned; the other two lists are logged and leave references unresolved.
func (s *PromptService) loadCompositionsDegraded(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		if err := s.refreshPersonas(ctx); err != nil {
			logger.From(ctx, s.log).Warn("personas unavailable, persona references stay unresolved", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.refreshFragments(ctx); err != nil {
			logger.From(ctx, s.log).Warn("fragments unavailable, fragment references stay unresolved", "error", err)
		}
		return nil
	})
	g.Go(func() error { return s.refreshCompositions(ctx) })
	return g.Wait()
}

// Compositions loads all three lists and returns the compositions with
// their labels and assembled prompts. Only a composition listing failure is
// returned; persona or fragment failures degrade labels to "ID: <n>".
func (s *PromptService) Compositions(ctx context.Context) ([]CompositionView, error) {
	if err := s.loadCompositionsDegraded(ctx); err != nil {
		return nil, err
	}

	ix := s.index()
	s.mu.RLock()
	all := s.compositions.All()
	s.mu.RUnlock()

	views := make([]CompositionView, len(all))
	for i := range all {
		views[i] = CompositionView{
			Composition:   all[i],
			PersonaName:   ix.PersonaName(all[i].EthicalPersonaID),
			FragmentNames: ix.FragmentNames(all[i].FragmentIDs),
			Prompt:        ix.AssembleComposition(&all[i]),
		}
	}
	return views, nil
}

// CreateComposition validates and creates a composition.
func (s *PromptService) CreateComposition(ctx context.Context, req prompt.CreateCompositionRequest) (*prompt.Composition, error) {
	if err := prompt.ValidateCreateComposition(&req); err != nil {
		return nil, err
	}
	var created *prompt.Composition
	err := s.call(ctx, "save composition", func(ctx context.Context) error {
		var err error
		created, err = s.backend.CreateComposition(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cacheKeyCompositions)
	s.mu.Lock()
	if s.compositionsSeen {
		set := prompt.NewCompositionSet(s.compositions.All())
		set.Add(*created)
		s.compositions = set
	}
	s.mu.Unlock()

	s.emitEntity(ctx, "composition", messagequeue.SubjectCompositionCreated, broadcast.EventCompositionCreated, created.ID, created.Name)
	return created, nil
}

// DeleteComposition deletes a composition. The active composition is
// rejected with ErrProtected before the backend is contacted.
func (s *PromptService) DeleteComposition(ctx context.Context, id int) error {
	if err := s.refreshCompositions(ctx); err != nil {
		return err
	}
	s.mu.RLock()
	c, known := s.compositions.Get(id)
	checkErr := s.compositions.CheckRemovable(id)
	s.mu.RUnlock()
	if errors.Is(checkErr, domain.ErrProtected) {
		return checkErr
	}

	if err := s.call(ctx, "delete composition", func(ctx context.Context) error {
		return s.backend.DeleteComposition(ctx, id)
	}); err != nil {
		return err
	}

	s.invalidate(ctx, cacheKeyCompositions)
	if known {
		s.mu.Lock()
		set := prompt.NewCompositionSet(s.compositions.All())
		_ = set.Remove(id)
		s.compositions = set
		s.mu.Unlock()
	}

	s.emitEntity(ctx, "composition", messagequeue.SubjectCompositionDeleted, broadcast.EventCompositionDeleted, id, c.Name)
	return nil
}

// ActivateComposition makes the composition with the given id the only
// active one, then records, publishes and broadcasts the activation.
// Side-effect failures are logged and do not fail the activation.
func (s *PromptService) ActivateComposition(ctx context.Context, id int) (*prompt.Activation, error) {
	ctx, span := pfotel.StartActivationSpan(ctx, id)
	act, err := s.activate(ctx, id)
	pfotel.EndSpan(span, err)
	return act, err
}

func (s *PromptService) activate(ctx context.Context, id int) (*prompt.Activation, error) {
	if err := s.call(ctx, "activate composition", func(ctx context.Context) error {
		return s.backend.ActivateComposition(ctx, id)
	}); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cacheKeyCompositions)

	s.mu.Lock()
	set := prompt.NewCompositionSet(s.compositions.All())
	if set.Activate(id) == nil {
		s.compositions = set
	}
	s.mu.Unlock()

	// The backend listing is authoritative; the local activation above only
	// covers a failed reload.
	log := logger.From(ctx, s.log)
	if err := s.LoadAll(ctx); err != nil {
		log.Warn("reload lists after activation", "composition_id", id, "error", err)
	}

	ix := s.index()
	s.mu.RLock()
	comp, ok := s.compositions.Get(id)
	s.mu.RUnlock()

	act := &prompt.Activation{
		CompositionID: id,
		RequestID:     logger.RequestID(ctx),
		ActivatedAt:   time.Now().UTC(),
	}
	if ok {
		act.CompositionName = comp.Name
		act.Prompt = ix.AssembleComposition(&comp)
	}

	s.metrics.RecordActivation(ctx, id, act.Prompt.CharCount)
	if s.journal != nil {
		if err := s.journal.Record(ctx, act); err != nil {
			log.Warn("record activation", "composition_id", id, "error", err)
		}
	}
	s.publish(ctx, messagequeue.SubjectCompositionActivated, messagequeue.CompositionActivatedPayload{
		CompositionID: id,
		Name:          act.CompositionName,
		Prompt:        act.Prompt.Text,
		PartCount:     act.Prompt.PartCount,
		CharCount:     act.Prompt.CharCount,
		ActivatedAt:   act.ActivatedAt,
	})
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, broadcast.EventCompositionActivated, act)
	}
	log.Info("composition activated", "composition_id", id, "name", act.CompositionName, "char_count", act.Prompt.CharCount)
	return act, nil
}

// Active resolves the prompt of the active composition. Only a
// compositions failure is returned; personas or fragments that could not
// be loaded resolve like any other missing reference.
func (s *PromptService) Active(ctx context.Context) (ActiveView, error) {
	if err := s.loadCompositionsDegraded(ctx); err != nil {
		return ActiveView{}, err
	}
	s.mu.RLock()
	all := s.compositions.All()
	personas, fragments := s.personas, s.fragments
	s.mu.RUnlock()

	active := prompt.FindActive(all)
	if active == nil {
		return ActiveView{}, nil
	}
	return ActiveView{Composition: active, Prompt: prompt.ResolveActivePrompt(all, personas, fragments)}, nil
}

// Preview assembles a selection against the loaded snapshots, loading them
// first if they were never loaded. Fragments appear in selection order.
func (s *PromptService) Preview(ctx context.Context, sel prompt.Selection) (Preview, error) {
	s.mu.RLock()
	loaded := s.personasLoaded && s.fragmentsLoaded
	s.mu.RUnlock()
	if !loaded {
		var g errgroup.Group
		g.Go(func() error { return s.refreshPersonas(ctx) })
		g.Go(func() error { return s.refreshFragments(ctx) })
		if err := g.Wait(); err != nil {
			return Preview{}, err
		}
	}

	p := s.index().Assemble(sel.PersonaID, sel.FragmentIDs)
	if p.Empty() {
		return Preview{Prompt: p, Placeholder: PreviewPlaceholder}, nil
	}
	return Preview{Prompt: p}, nil
}

// Evaluate submits a test article to the evaluation agent.
func (s *PromptService) Evaluate(ctx context.Context, req prompt.EvaluateRequest) (*prompt.Evaluation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var ev *prompt.Evaluation
	err := s.call(ctx, "evaluate article", func(ctx context.Context) error {
		var err error
		ev, err = s.backend.Evaluate(ctx, req)
		return err
	})
	return ev, err
}

// Activations lists recent activations, newest first. Without a journal
// the history is empty.
func (s *PromptService) Activations(ctx context.Context, limit int) ([]prompt.Activation, error) {
	if s.journal == nil {
		return []prompt.Activation{}, nil
	}
	items, err := s.journal.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	return orEmpty(items), nil
}

// --- Events ---

func (s *PromptService) emitEntity(ctx context.Context, kind, subject, event string, id int, name string) {
	payload := messagequeue.EntityChangedPayload{Kind: kind, ID: id, Name: name}
	s.publish(ctx, subject, payload)
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, event, payload)
	}
}

func (s *PromptService) publish(ctx context.Context, suffix string, payload any) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		logger.From(ctx, s.log).Error("marshal event", "subject", suffix, "error", err)
		return
	}
	subject := messagequeue.Subject(s.prefix, suffix)
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		logger.From(ctx, s.log).Warn("publish event", "subject", subject, "error", err)
	}
}

func removeByID[T any](items []T, id int, idOf func(T) int) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if idOf(it) != id {
			out = append(out, it)
		}
	}
	return out
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
