package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/videolens/server/internal/domain/plan"
	"go.uber.org/zap"
)

// FailureMessage is shown to the user when the first confirmation attempt fails.
const FailureMessage = "We could not confirm your payment. Your card was not charged twice; please try again."

// Config controls the confirmation retry policy.
type Config struct {
	// RetryInterval is the pause between attempts.
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	// MaxAttempts counts every attempt including the first.
	MaxAttempts int `mapstructure:"max_attempts"`
	// RedirectDelay is the countdown shown after success before leaving the page.
	RedirectDelay time.Duration `mapstructure:"redirect_delay"`
}

// DefaultConfig returns the production retry policy.
func DefaultConfig() Config {
	return Config{
		RetryInterval: 2 * time.Second,
		MaxAttempts:   5,
		RedirectDelay: 5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RetryInterval <= 0 {
		c.RetryInterval = d.RetryInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.RedirectDelay < 0 {
		c.RedirectDelay = 0
	}
	return c
}

// Request identifies what is being reconciled.
type Request struct {
	UserID uuid.UUID
	// SessionRef is the provider checkout session reference. Empty means none was returned.
	SessionRef string
	// PlanHint is the plan the user was purchasing, for display only.
	PlanHint plan.ID
	// Baseline is the plan held before checkout. Empty means the lowest tier.
	Baseline plan.ID
}

// Snapshot is a point-in-time copy of a reconciliation.
type Snapshot struct {
	State      State      `json:"state"`
	Plan       plan.ID    `json:"plan,omitempty"`
	PlanHint   plan.ID    `json:"plan_hint,omitempty"`
	Attempts   int        `json:"attempts"`
	Exhausted  bool       `json:"exhausted"`
	Message    string     `json:"message,omitempty"`
	RedirectAt *time.Time `json:"redirect_at,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
	// Err is the cause of the error state, kept for diagnostics only.
	Err error `json:"-"`
}

// Retryable reports whether a manual retry may restart the reconciliation.
func (s Snapshot) Retryable() bool {
	return s.State == StateError || (s.State == StateProcessing && s.Exhausted)
}

// Listener is called on every state change while the reconciler lock is held.
// It must not call back into the reconciler.
type Listener func(Snapshot)

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithListener registers a state change listener.
func WithListener(l Listener) Option {
	return func(r *Reconciler) {
		r.listener = l
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// Reconciler confirms that a returning checkout has been applied to the account.
//
// Attempts run strictly one after another. Once Close returns, the reconciler
// never changes state or calls its listener again.
type Reconciler struct {
	backend  Backend
	resolver *plan.Resolver
	cfg      Config
	req      Request
	listener Listener
	logger   *zap.Logger
	now      func() time.Time

	lifetime context.Context
	cancel   context.CancelFunc

	mu       sync.Mutex
	snap     Snapshot
	baseline plan.ID
	gen      uint64
	running  bool
	closed   bool
}

// NewReconciler creates a reconciler in the loading state.
func NewReconciler(backend Backend, resolver *plan.Resolver, cfg Config, req Request, opts ...Option) *Reconciler {
	if resolver == nil {
		resolver = plan.NewResolver(nil)
	}

	r := &Reconciler{
		backend:  backend,
		resolver: resolver,
		cfg:      cfg.withDefaults(),
		req:      req,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.baseline = resolver.Lowest()
	if req.Baseline != "" {
		r.baseline = resolver.Normalize(string(req.Baseline))
	}

	r.lifetime, r.cancel = context.WithCancel(context.Background())
	r.snap = Snapshot{
		State:     StateLoading,
		PlanHint:  req.PlanHint,
		UpdatedAt: r.now(),
	}
	return r
}

// Snapshot returns the current state.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// Request returns what the reconciler was created for.
func (r *Reconciler) Request() Request {
	return r.req
}

// Confirm runs the confirmation procedure and blocks until it settles:
// success, error after a failed first attempt, processing once every
// attempt is spent, or cancellation of ctx or the reconciler.
func (r *Reconciler) Confirm(ctx context.Context) (Snapshot, error) {
	gen, err := r.begin(false)
	if err != nil {
		return r.Snapshot(), err
	}
	r.run(ctx, gen)
	return r.Snapshot(), nil
}

// Retry restarts the procedure with a fresh set of attempts. It is allowed from
// the error state and from processing once the attempts are exhausted.
func (r *Reconciler) Retry(ctx context.Context) (Snapshot, error) {
	gen, err := r.begin(true)
	if err != nil {
		return r.Snapshot(), err
	}
	r.run(ctx, gen)
	return r.Snapshot(), nil
}

// Close cancels any pending wait or in-flight call and silences the reconciler.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	r.cancel()
}

// Closed reports whether Close has been called.
func (r *Reconciler) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// begin claims the reconciler for one procedure run and returns its generation.
func (r *Reconciler) begin(retry bool) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, ErrReconcilerClosed
	}
	if r.running {
		return 0, ErrReconciliationInFlight
	}

	if retry {
		if !r.snap.Retryable() {
			return 0, ErrNotRetryable
		}
		r.setLocked(StateLoading, func(s *Snapshot) {
			s.Attempts = 0
			s.Message = ""
			s.Err = nil
			s.Exhausted = false
		})
	} else if r.snap.State != StateLoading || r.snap.Attempts > 0 {
		return 0, ErrAlreadyStarted
	}

	r.gen++
	r.running = true
	return r.gen, nil
}

func (r *Reconciler) run(parent context.Context, gen uint64) {
	defer func() {
		r.mu.Lock()
		if r.gen == gen {
			r.running = false
		}
		r.mu.Unlock()
	}()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	stop := context.AfterFunc(r.lifetime, cancel)
	defer stop()

	logger := r.logger.With(
		zap.String("user_id", r.req.UserID.String()),
		zap.String("session_ref", r.req.SessionRef),
	)

	confirmed, err := r.attempt(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		logger.Warn("checkout confirmation failed", zap.Error(err))
		r.set(StateError, func(s *Snapshot) {
			s.Message = FailureMessage
			s.Err = err
		})
		return
	}
	if confirmed != "" {
		r.succeed(confirmed)
		return
	}

	if !r.set(StateProcessing, nil) {
		return
	}

	for r.Snapshot().Attempts < r.cfg.MaxAttempts {
		if !r.wait(ctx) {
			return
		}

		confirmed, err = r.attempt(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Debug("checkout confirmation retry failed", zap.Error(err))
			continue
		}
		if confirmed != "" {
			r.succeed(confirmed)
			return
		}
	}

	logger.Info("checkout confirmation attempts exhausted",
		zap.Int("attempts", r.cfg.MaxAttempts),
	)
	r.update(func(s *Snapshot) {
		s.Exhausted = true
	})
}

// attempt runs one confirmation. It returns the confirmed plan, or "" if the
// change has not landed yet.
func (r *Reconciler) attempt(ctx context.Context) (plan.ID, error) {
	if !r.update(func(s *Snapshot) { s.Attempts++ }) {
		return "", ErrReconcilerClosed
	}

	if r.req.SessionRef != "" {
		label, err := r.backend.ConfirmCheckoutSession(ctx, r.req.SessionRef)
		if err != nil {
			return "", fmt.Errorf("confirm checkout session: %w", err)
		}
		if id := r.resolver.Normalize(label); id != plan.Default {
			return id, nil
		}
	}

	profile, err := r.backend.RefreshCurrentUserProfile(ctx, r.req.UserID, true)
	if err != nil {
		return "", fmt.Errorf("refresh profile: %w", err)
	}
	if profile == nil {
		return "", nil
	}
	if id := r.resolver.Normalize(profile.PlanLabel); id != r.baseline {
		return id, nil
	}
	return "", nil
}

func (r *Reconciler) succeed(id plan.ID) {
	r.set(StateSuccess, func(s *Snapshot) {
		s.Plan = id
		s.Exhausted = false
		redirect := r.now().Add(r.cfg.RedirectDelay)
		s.RedirectAt = &redirect
	})
}

// wait pauses for the retry interval. It returns false if cancelled.
func (r *Reconciler) wait(ctx context.Context) bool {
	timer := time.NewTimer(r.cfg.RetryInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// set transitions to state and notifies the listener. It returns false if the
// reconciler is closed or the transition is not allowed.
func (r *Reconciler) set(state State, mutate func(*Snapshot)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setLocked(state, mutate)
}

func (r *Reconciler) setLocked(state State, mutate func(*Snapshot)) bool {
	if r.closed {
		return false
	}
	if !r.snap.State.CanTransitionTo(state) {
		r.logger.Error("rejected checkout state transition",
			zap.String("from", r.snap.State.String()),
			zap.String("to", state.String()),
			zap.Error(ErrInvalidTransition),
		)
		return false
	}
	r.snap.State = state
	if mutate != nil {
		mutate(&r.snap)
	}
	if state == StateSuccess || state == StateError {
		r.running = false
	}
	r.snap.UpdatedAt = r.now()
	if r.listener != nil {
		r.listener(r.snap)
	}
	return true
}

// update mutates the snapshot without a state change. Exhaustion is reported to the listener.
func (r *Reconciler) update(mutate func(*Snapshot)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	wasExhausted := r.snap.Exhausted
	mutate(&r.snap)
	if r.snap.Exhausted {
		r.running = false
	}
	r.snap.UpdatedAt = r.now()
	if r.snap.Exhausted && !wasExhausted && r.listener != nil {
		r.listener(r.snap)
	}
	return true
}
