package collection

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/vecrag/internal/domain"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	"github.com/kailas-cloud/vecrag/internal/domain/record"
	"github.com/kailas-cloud/vecrag/internal/domain/retrieval"
)

// openTimeout bounds a shared lookup, which no single caller can cancel.
const openTimeout = 10 * time.Second

// Manager owns the collection lifecycle and the name -> handle cache.
//
// Per-name locking: creation, deletion and eviction take the exclusive side,
// writes and opens take the shared side. Different names never contend.
type Manager struct {
	repo   Repository
	logger *zap.Logger

	locks   keyedRWMutex
	opens   singleflight.Group
	mu      sync.RWMutex
	handles map[string]*Handle
}

// Handle is an open collection.
type Handle struct {
	col domcol.Collection
	m   *Manager
}

// NewManager creates a collection manager.
func NewManager(repo Repository, logger *zap.Logger) *Manager {
	return &Manager{
		repo:    repo,
		logger:  logger,
		handles: make(map[string]*Handle),
	}
}

// Collection returns the collection descriptor.
func (h *Handle) Collection() domcol.Collection { return h.col }

// Search runs a nearest-neighbor query. A collection deleted behind the
// manager's back evicts the handle and reports domain.ErrNotFound.
func (h *Handle) Search(ctx context.Context, vector []float32, k int) ([]retrieval.Hit, error) {
	if err := h.col.Accepts(len(vector)); err != nil {
		return nil, err
	}
	hits, err := h.m.repo.Search(ctx, h.col, vector, k)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.m.evict(h)
		}
		return nil, fmt.Errorf("search %q: %w", h.col.Name(), err)
	}
	return hits, nil
}

// EnsureAndWrite stores records in the named collection, creating it sized to
// the records' dimension when absent. All records land or none do. Concurrent
// calls for the same new name create it exactly once.
func (m *Manager) EnsureAndWrite(ctx context.Context, name string, records []record.Record) (bool, error) {
	if err := domcol.ValidateName(name); err != nil {
		return false, err
	}
	if len(records) == 0 {
		return false, domain.NewValidationError("records", "at least one record is required")
	}
	dim, err := record.Dimension(records)
	if err != nil {
		return false, err
	}

	unlock := m.locks.RLock(name)
	h, err := m.open(ctx, name)
	if err == nil {
		defer unlock()
		return false, m.write(ctx, h, records)
	}
	unlock()
	if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}

	unlock = m.locks.Lock(name)
	defer unlock()

	h, created, err := m.ensure(ctx, name, dim)
	if err != nil {
		return false, err
	}
	if err := m.write(ctx, h, records); err != nil {
		if created {
			m.rollback(ctx, h)
		}
		return false, err
	}
	return created, nil
}

// Open returns the cached handle for name, opening it on first use.
func (m *Manager) Open(ctx context.Context, name string) (*Handle, error) {
	if err := domcol.ValidateName(name); err != nil {
		return nil, err
	}
	unlock := m.locks.RLock(name)
	defer unlock()
	return m.open(ctx, name)
}

// Delete removes the collection with all its records and evicts its handle.
func (m *Manager) Delete(ctx context.Context, name string) error {
	if err := domcol.ValidateName(name); err != nil {
		return err
	}
	unlock := m.locks.Lock(name)
	defer unlock()

	err := m.repo.Delete(ctx, name)
	m.mu.Lock()
	delete(m.handles, name)
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("delete collection %q: %w", name, err)
	}

	m.logger.Info("collection deleted", zap.String("collection", name))
	return nil
}

// List returns all collections ordered by creation time, then name.
func (m *Manager) List(ctx context.Context) ([]domcol.Collection, error) {
	cols, err := m.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	slices.SortFunc(cols, func(a, b domcol.Collection) int {
		if c := cmp.Compare(a.CreatedAt(), b.CreatedAt()); c != 0 {
			return c
		}
		return cmp.Compare(a.Name(), b.Name())
	})
	return cols, nil
}

// open serves from cache or loads once per name. Caller holds the name lock.
// The load is shared by every waiter, so it runs detached from the first
// caller's cancellation.
func (m *Manager) open(ctx context.Context, name string) (*Handle, error) {
	if h := m.cached(name); h != nil {
		return h, nil
	}
	v, err, _ := m.opens.Do(name, func() (any, error) {
		if h := m.cached(name); h != nil {
			return h, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), openTimeout)
		defer cancel()
		col, err := m.repo.Get(loadCtx, name)
		if err != nil {
			return nil, err
		}
		return m.store(col), nil
	})
	if err != nil {
		return nil, fmt.Errorf("open collection %q: %w", name, err)
	}
	return v.(*Handle), nil
}

// ensure returns the collection, creating it if still absent. Caller holds the exclusive name lock.
func (m *Manager) ensure(ctx context.Context, name string, dim int) (*Handle, bool, error) {
	if h := m.cached(name); h != nil {
		return h, false, nil
	}
	col, err := m.repo.Get(ctx, name)
	if err == nil {
		return m.store(col), false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, fmt.Errorf("get collection %q: %w", name, err)
	}

	col, err = domcol.New(name, dim)
	if err != nil {
		return nil, false, err
	}
	if err := m.repo.Create(ctx, col); err != nil {
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return nil, false, fmt.Errorf("create collection %q: %w", name, err)
		}
		// another process won the race
		existing, gerr := m.repo.Get(ctx, name)
		if gerr != nil {
			return nil, false, fmt.Errorf("get collection %q: %w", name, gerr)
		}
		return m.store(existing), false, nil
	}

	m.logger.Info("collection created",
		zap.String("collection", name),
		zap.Int("vector_dim", dim),
	)
	return m.store(col), true, nil
}

func (m *Manager) write(ctx context.Context, h *Handle, records []record.Record) error {
	for _, r := range records {
		if err := h.col.Accepts(len(r.Vector())); err != nil {
			return err
		}
	}
	if err := m.repo.Upsert(ctx, h.col, records); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			m.dropCached(h)
		}
		return fmt.Errorf("write %d records to %q: %w", len(records), h.col.Name(), err)
	}
	return nil
}

// rollback removes a collection this call created but failed to fill.
// Caller holds the exclusive name lock.
func (m *Manager) rollback(ctx context.Context, h *Handle) {
	m.dropCached(h)
	if err := m.repo.Delete(context.WithoutCancel(ctx), h.col.Name()); err != nil && !errors.Is(err, domain.ErrNotFound) {
		m.logger.Warn("rollback of empty collection failed",
			zap.String("collection", h.col.Name()),
			zap.Error(err),
		)
	}
}

// evict drops a stale handle found outside any name lock.
func (m *Manager) evict(h *Handle) {
	unlock := m.locks.Lock(h.col.Name())
	defer unlock()
	m.dropCached(h)
}

// dropCached removes h only if it is still the cached handle for its name.
func (m *Manager) dropCached(h *Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handles[h.col.Name()] == h {
		delete(m.handles, h.col.Name())
	}
}

func (m *Manager) cached(name string) *Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handles[name]
}

func (m *Manager) store(col domcol.Collection) *Handle {
	h := &Handle{col: col, m: m}
	m.mu.Lock()
	m.handles[col.Name()] = h
	m.mu.Unlock()
	return h
}
