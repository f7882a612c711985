// Package stage implements the workflow state machine: stage guards, the
// busy flag around gateway calls, and persistence after every committed
// mutation.
package stage

import (
	"context"
	"sync"
	"time"

	"ideaspark/internal/export"
	"ideaspark/internal/gateway"
	"ideaspark/internal/session"
	"ideaspark/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultCallTimeout bounds a single gateway call.
const DefaultCallTimeout = 120 * time.Second

// Controller owns the session state. All methods are safe for concurrent use;
// at most one gateway call is outstanding at a time.
type Controller struct {
	mu    sync.Mutex
	state session.State

	busy     bool
	busyOp   string
	token    string
	cancelFn context.CancelFunc

	store       storage.Store
	gw          gateway.Gateway
	logger      zerolog.Logger
	callTimeout time.Duration
	newToken    func() string
}

// Option configures a Controller.
type Option func(*Controller)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithCallTimeout sets the per-call gateway timeout. Zero disables it.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.callTimeout = d
		}
	}
}

// WithTokenSource replaces the request token generator.
func WithTokenSource(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newToken = fn
		}
	}
}

// New hydrates the controller from store. Load never fails; an unreadable
// snapshot yields the empty state.
func New(store storage.Store, gw gateway.Gateway, opts ...Option) *Controller {
	c := &Controller{
		store:       store,
		gw:          gw,
		logger:      zerolog.Nop(),
		callTimeout: DefaultCallTimeout,
		newToken:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = store.Load().Normalize()
	c.logger.Debug().Str("stage", c.state.Stage.String()).Msg("session loaded")
	return c
}

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() session.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Busy reports whether a gateway call is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// BusyOp names the intent holding the busy flag, or "".
func (c *Controller) BusyOp() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busyOp
}

// Export renders the plain-text summary of the current state.
func (c *Controller) Export() string {
	return export.Summary(c.Snapshot())
}

// Cancel abandons the in-flight gateway call, if any. Its response will be
// discarded with ErrStaleResponse.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.busy {
		return false
	}
	if c.cancelFn != nil {
		c.cancelFn()
	}
	c.logger.Info().Str("intent", c.busyOp).Msg("request cancelled")
	c.clearBusy()
	return true
}

func (c *Controller) clearBusy() {
	c.busy = false
	c.busyOp = ""
	c.token = ""
	c.cancelFn = nil
}

// mutate applies a pure, synchronous intent and persists the result.
func (c *Controller) mutate(intent string, fn func(s *session.State) error) (session.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return c.state.Clone(), &BusyError{Intent: intent}
	}
	next := c.state.Clone()
	if err := fn(&next); err != nil {
		return c.state.Clone(), err
	}
	c.commit(intent, next)
	return c.state.Clone(), nil
}

// commit installs next and saves it. Must hold mu.
func (c *Controller) commit(intent string, next session.State) {
	c.state = next
	if err := c.store.Save(next); err != nil {
		// The in-memory state stays authoritative; the next commit retries.
		c.logger.Warn().Err(err).Str("intent", intent).Msg("save progress failed")
	}
}

// begin claims the busy flag after checking the guard against the current
// state. It returns a snapshot for building the request and the call's token.
func (c *Controller) begin(ctx context.Context, intent string, guard func(session.State) error) (session.State, string, context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return session.State{}, "", nil, &BusyError{Intent: intent}
	}
	if guard != nil {
		if err := guard(c.state); err != nil {
			return session.State{}, "", nil, err
		}
	}

	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if c.callTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, c.callTimeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	c.busy = true
	c.busyOp = intent
	c.token = c.newToken()
	c.cancelFn = cancel
	c.logger.Info().Str("intent", intent).Str("stage", c.state.Stage.String()).Str("token", c.token).Msg("request started")
	return c.state.Clone(), c.token, callCtx, nil
}

// finish releases the busy flag and applies the result if token is still
// current. A nil apply commits nothing.
func (c *Controller) finish(intent, token string, callErr error, apply func(s *session.State) error) (session.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.busy || c.token != token {
		c.logger.Warn().Str("intent", intent).Str("token", token).Msg("stale response discarded")
		return c.state.Clone(), ErrStaleResponse
	}
	if c.cancelFn != nil {
		c.cancelFn()
	}
	c.clearBusy()

	if callErr != nil {
		c.logger.Error().Err(callErr).Str("intent", intent).Msg("request failed")
		return c.state.Clone(), callErr
	}
	if apply == nil {
		return c.state.Clone(), nil
	}
	next := c.state.Clone()
	if err := apply(&next); err != nil {
		return c.state.Clone(), err
	}
	c.commit(intent, next)
	c.logger.Info().Str("intent", intent).Str("stage", next.Stage.String()).Msg("request applied")
	return c.state.Clone(), nil
}

// call runs one gateway request under the busy flag.
func call[T any](
	c *Controller,
	ctx context.Context,
	intent string,
	guard func(session.State) error,
	do func(ctx context.Context, snap session.State) (T, error),
	apply func(s *session.State, v T) error,
) (session.State, error) {
	snap, token, callCtx, err := c.begin(ctx, intent, guard)
	if err != nil {
		return c.Snapshot(), err
	}
	v, callErr := do(callCtx, snap)
	var applyFn func(*session.State) error
	if apply != nil {
		applyFn = func(s *session.State) error { return apply(s, v) }
	}
	return c.finish(intent, token, callErr, applyFn)
}

// atStage guards an intent to a single stage.
func atStage(want session.Stage) func(session.State) error {
	return func(s session.State) error {
		if s.Stage != want {
			return invalid(s.Stage, "only available at the %s stage", want)
		}
		return nil
	}
}

func allOf(guards ...func(session.State) error) func(session.State) error {
	return func(s session.State) error {
		for _, g := range guards {
			if err := g(s); err != nil {
				return err
			}
		}
		return nil
	}
}
