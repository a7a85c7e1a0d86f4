package tactic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Registry maps model names to generators and forwards calls. It optionally
// caches results, rate limits each model and retries transport failures.
type Registry struct {
	mu          sync.RWMutex
	models      map[string]*registered
	cache       *SuggestionCache
	retry       RetryConfig
	concurrency int
	log         *slog.Logger
}

type registered struct {
	gen     Generator
	limiter *rate.Limiter
}

// NewRegistry creates an empty registry with no cache and no retries.
func NewRegistry() *Registry {
	return &Registry{
		models:      make(map[string]*registered),
		retry:       DefaultRetryConfig,
		concurrency: 4,
		log:         slog.Default(),
	}
}

// WithCache enables result caching.
func (r *Registry) WithCache(c *SuggestionCache) *Registry {
	r.cache = c
	return r
}

// WithRetry sets the transport retry policy applied around every call.
func (r *Registry) WithRetry(cfg RetryConfig) *Registry {
	r.retry = cfg
	return r
}

// WithConcurrency bounds how many models GenerateMany queries at once.
func (r *Registry) WithConcurrency(n int) *Registry {
	if n > 0 {
		r.concurrency = n
	}
	return r
}

func (r *Registry) WithLogger(l *slog.Logger) *Registry {
	if l != nil {
		r.log = l
	}
	return r
}

// Register adds a generator under name. A positive requestsPerMinute limits
// how often the generator is called.
func (r *Registry) Register(name string, g Generator, requestsPerMinute int) error {
	if name == "" || g == nil {
		return fmt.Errorf("tactic: register needs a name and a generator")
	}
	entry := &registered{gen: g}
	if requestsPerMinute > 0 {
		entry.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.models[name]; dup {
		return fmt.Errorf("tactic: model %q registered twice", name)
	}
	r.models[name] = entry
	return nil
}

// RegisterProfiles builds an adapter per profile through client and registers it.
func (r *Registry) RegisterProfiles(ctx context.Context, client *Client, profiles []ModelProfile) error {
	for _, p := range profiles {
		p = p.withDefaults()
		g, err := client.Adapter(ctx, p)
		if err != nil {
			return fmt.Errorf("tactic: profile %q: %w", p.Name, err)
		}
		if err := r.Register(p.Name, g, p.RequestsPerMinute); err != nil {
			return err
		}
		r.log.Info("registered model", "name", p.Name, "model", p.Model, "provider", p.Provider, "mode", p.Mode)
	}
	return nil
}

// Models returns the registered names in sorted order.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.models))
	for n := range r.models {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Generate dispatches to the generator registered under name.
func (r *Registry) Generate(ctx context.Context, name, state, prefix string) ([]Candidate, error) {
	r.mu.RLock()
	entry, ok := r.models[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}

	if r.cache != nil {
		if cands, hit := r.cache.Get(name, state, prefix); hit {
			r.log.Debug("suggestion cache hit", "name", name)
			return cands, nil
		}
	}
	if entry.limiter != nil {
		if err := entry.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("tactic: rate limit wait for %q: %w", name, err)
		}
	}

	cands, err := RetryingGenerator(entry.gen, r.retry).Generate(ctx, state, prefix)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, fmt.Errorf("%w: %q returned no candidates", ErrNoStructuredOutput, name)
	}
	if r.cache != nil {
		r.cache.Set(name, state, prefix, cands)
	}
	return cands, nil
}

// ModelError is one failed model of a GenerateMany call.
type ModelError struct {
	Name string
	Err  error
}

func (e *ModelError) Error() string { return fmt.Sprintf("%s: %v", e.Name, e.Err) }

func (e *ModelError) Unwrap() error { return e.Err }

// GenerateMany queries several models concurrently with the same state. It
// returns every successful result; failures are reported as *ModelError values
// joined into the error.
func (r *Registry) GenerateMany(ctx context.Context, names []string, state, prefix string) (map[string][]Candidate, error) {
	var (
		mu      sync.Mutex
		results = make(map[string][]Candidate, len(names))
		errs    = make([]error, len(names))
	)

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, name := range names {
		g.Go(func() error {
			cands, err := r.Generate(ctx, name, state, prefix)
			if err != nil {
				errs[i] = &ModelError{Name: name, Err: err}
				return nil
			}
			mu.Lock()
			results[name] = cands
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results, joinErrors(errs)
}

func joinErrors(errs []error) error {
	var kept []error
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return fmt.Errorf("tactic: %d model(s) failed: %w", len(kept), errors.Join(kept...))
}
