package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/videolens/server/internal/domain/plan"
	"go.uber.org/zap"
)

type entry struct {
	rec       *Reconciler
	owner     uuid.UUID
	createdAt time.Time
}

// Manager owns the reconcilers of in-progress checkout returns.
// Each reconciliation runs in its own goroutine and lives until dismissed,
// swept or the manager stops. Nothing survives a restart.
type Manager struct {
	backend  Backend
	resolver *plan.Resolver
	cfg      Config
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*entry
	stopped  bool
	wg       sync.WaitGroup
}

// NewManager creates a new reconciliation manager.
func NewManager(backend Backend, resolver *plan.Resolver, cfg Config, recorder Recorder, logger *zap.Logger) *Manager {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		backend:  backend,
		resolver: resolver,
		cfg:      cfg.withDefaults(),
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*entry),
	}
}

// Start registers a reconciliation and begins confirming it in the background.
func (m *Manager) Start(req Request) (uuid.UUID, Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return uuid.Nil, Snapshot{}, ErrManagerStopped
	}

	id := uuid.New()
	rec := NewReconciler(m.backend, m.resolver, m.cfg, req,
		WithLogger(m.logger.With(zap.String("reconciliation_id", id.String()))),
		WithListener(m.observe),
		WithClock(m.now),
	)
	gen, err := rec.begin(false)
	if err != nil {
		return uuid.Nil, Snapshot{}, err
	}

	m.sessions[id] = &entry{rec: rec, owner: req.UserID, createdAt: m.now()}
	m.recorder.SetActiveReconciliations(len(m.sessions))
	m.spawn(rec, gen)

	m.logger.Info("checkout reconciliation started",
		zap.String("reconciliation_id", id.String()),
		zap.String("user_id", req.UserID.String()),
		zap.Bool("has_session_ref", req.SessionRef != ""),
	)
	return id, rec.Snapshot(), nil
}

// Get returns the current snapshot of a reconciliation owned by owner.
func (m *Manager) Get(id, owner uuid.UUID) (Snapshot, error) {
	rec, err := m.lookup(id, owner)
	if err != nil {
		return Snapshot{}, err
	}
	return rec.Snapshot(), nil
}

// Retry restarts a reconciliation that failed or exhausted its attempts.
func (m *Manager) Retry(id, owner uuid.UUID) (Snapshot, error) {
	rec, err := m.lookup(id, owner)
	if err != nil {
		return Snapshot{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return Snapshot{}, ErrManagerStopped
	}
	gen, err := rec.begin(true)
	if err != nil {
		return rec.Snapshot(), err
	}
	m.spawn(rec, gen)
	return rec.Snapshot(), nil
}

// Dismiss closes a reconciliation, as when its owner navigates away.
func (m *Manager) Dismiss(id, owner uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok || e.owner != owner {
		return ErrReconciliationNotFound
	}
	e.rec.Close()
	delete(m.sessions, id)
	m.recorder.SetActiveReconciliations(len(m.sessions))
	return nil
}

// Sweep closes reconciliations older than maxAge and returns how many were removed.
func (m *Manager) Sweep(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	removed := 0
	for id, e := range m.sessions {
		if e.createdAt.After(cutoff) {
			continue
		}
		e.rec.Close()
		delete(m.sessions, id)
		removed++
	}
	if removed > 0 {
		m.recorder.SetActiveReconciliations(len(m.sessions))
		m.logger.Info("swept abandoned checkout reconciliations", zap.Int("count", removed))
	}
	return removed
}

// Active returns the number of registered reconciliations.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Stop closes every reconciliation and waits for their goroutines to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopped = true
	for id, e := range m.sessions {
		e.rec.Close()
		delete(m.sessions, id)
	}
	m.recorder.SetActiveReconciliations(0)
	m.mu.Unlock()

	m.wg.Wait()
}

func (m *Manager) lookup(id, owner uuid.UUID) (*Reconciler, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok || e.owner != owner {
		return nil, ErrReconciliationNotFound
	}
	return e.rec, nil
}

// spawn runs a claimed reconciler. The caller holds m.mu.
func (m *Manager) spawn(rec *Reconciler, gen uint64) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		rec.run(context.Background(), gen)
	}()
}

func (m *Manager) observe(s Snapshot) {
	switch {
	case s.State == StateSuccess, s.State == StateError:
		m.recorder.RecordReconciliation(s.State.String(), s.Attempts, false)
	case s.Exhausted:
		m.recorder.RecordReconciliation(s.State.String(), s.Attempts, true)
	}
}
