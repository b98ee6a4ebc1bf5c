package guard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
	"github.com/pandodao/sac-wallet/core"
	"golang.org/x/sync/semaphore"
)

const (
	PolicyWait     = "wait"
	PolicyFailFast = "fail-fast"

	ScopeFamily = "family"
	ScopeUser   = "user"
)

type Config struct {
	Policy string `valid:"in(wait|fail-fast)"`
	Scope  string `valid:"in(family|user)"`
}

func New(logger *slog.Logger, cfg Config) *Guard {
	if cfg.Policy == "" {
		cfg.Policy = PolicyWait
	}

	if cfg.Scope == "" {
		cfg.Scope = ScopeFamily
	}

	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	return &Guard{
		keys:   map[string]*entry{},
		logger: logger,
		cfg:    cfg,
	}
}

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

type Guard struct {
	mux    sync.Mutex
	keys   map[string]*entry
	logger *slog.Logger
	cfg    Config
}

var _ core.Guard = (*Guard)(nil)

func (g *Guard) Key(family string, userID int64) string {
	if g.cfg.Scope == ScopeUser {
		return fmt.Sprintf("%s:%d", family, userID)
	}

	return family
}

func (g *Guard) Do(ctx context.Context, key string, fn core.GuardFunc) error {
	e := g.retain(key)
	defer g.unretain(key, e)

	if err := g.acquire(ctx, e); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	defer e.sem.Release(1)

	traceID := uuid.NewString()
	logger := g.logger.With("op", key, "trace", traceID)

	start := time.Now()
	logger.Debug("lock acquired")

	err := fn(ctx, logger, traceID)
	logger.Debug("lock released", "dur", time.Since(start), "err", err)
	return err
}

func (g *Guard) acquire(ctx context.Context, e *entry) error {
	if g.cfg.Policy == PolicyFailFast {
		if !e.sem.TryAcquire(1) {
			return core.ErrBusy
		}

		return nil
	}

	return e.sem.Acquire(ctx, 1)
}

func (g *Guard) retain(key string) *entry {
	g.mux.Lock()
	defer g.mux.Unlock()

	e, ok := g.keys[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		g.keys[key] = e
	}

	e.refs++
	return e
}

func (g *Guard) unretain(key string, e *entry) {
	g.mux.Lock()
	defer g.mux.Unlock()

	if e.refs--; e.refs == 0 {
		delete(g.keys, key)
	}
}

// Held reports whether a call holds or waits for key.
func (g *Guard) Held(key string) bool {
	g.mux.Lock()
	defer g.mux.Unlock()

	_, ok := g.keys[key]
	return ok
}
