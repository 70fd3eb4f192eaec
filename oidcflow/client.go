// Package oidcflow implements the OAuth 2.0 / OpenID Connect public-client
// flow state machine: authorization, a single token-endpoint exchange,
// and eager refresh scheduling with back-off. See Client.
package oidcflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mediamonks/oidcflow/clock"
	"github.com/mediamonks/oidcflow/pkg/log"
	"github.com/mediamonks/oidcflow/storage"
	"github.com/mediamonks/oidcflow/transport"
)

// DefaultEagerRefreshInterval is how long before an access token's
// expiry the scheduler proactively starts a refresh, per spec.md §4.3.
const DefaultEagerRefreshInterval = 120 * time.Second

// Client drives a single OAuth2/OIDC public-client flow: Start begins
// it, HandleAuthorizationRedirect/HandleAuthorizationFailure complete
// the browser leg, and a background refresh scheduler keeps the
// resulting credentials fresh until Cancel or End.
//
// Every exported method must be invoked from one designated scheduling
// context (spec.md §5). This is realized with a non-reentrant mutex:
// concurrent or reentrant calls panic rather than silently interleave,
// since no pack library models "assert single-threaded access" any
// better than that.
type Client struct {
	mu sync.Mutex

	store     storage.Store
	transport transport.RoundTripper
	clock     clock.Clock
	logger    log.Logger

	eagerRefreshInterval time.Duration

	// ctx is the context most recently handed to a public method that
	// can originate an outbound request (Start, HandleAuthorizationRedirect).
	// Asynchronous continuations of that request — the refresh timer,
	// retry scheduling — run under it too, since they have no caller of
	// their own to supply a fresher one.
	ctx context.Context

	state State
	flow  *flowState

	requestCookie uint64

	refreshTimer             clock.Timer
	refreshWaitingAfterError bool
	refreshRequestInFlight   bool
	lastBackoff              time.Duration

	subsMu    sync.Mutex
	subs      map[int]func(State)
	nextSubID int

	metrics *metrics
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithEagerRefreshInterval overrides DefaultEagerRefreshInterval.
func WithEagerRefreshInterval(d time.Duration) Option {
	return func(c *Client) { c.eagerRefreshInterval = d }
}

// WithLogger overrides the default logger, which wraps
// logrus.StandardLogger().
func WithLogger(logger log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient builds an idle Client. store, rt, and clk are held as
// shared, never-owning references per spec.md §9 — the Client makes no
// assumption about their identity or lifetime across calls.
func NewClient(store storage.Store, rt transport.RoundTripper, clk clock.Clock, opts ...Option) *Client {
	c := &Client{
		store:                store,
		transport:            rt,
		clock:                clk,
		logger:               log.NewLogrusLogger(logrus.StandardLogger()),
		eagerRefreshInterval: DefaultEagerRefreshInterval,
		ctx:                  context.Background(),
		state:                idleState(),
		subs:                 make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// enter acquires the designated-context guard. exit releases it.
func (c *Client) enter() {
	if !c.mu.TryLock() {
		panic("oidcflow: concurrent or reentrant call violates the designated scheduling context")
	}
}

func (c *Client) exit() { c.mu.Unlock() }

// State returns the current observable state.
func (c *Client) State() State {
	c.enter()
	defer c.exit()
	return c.state
}

// Subscribe registers fn to be invoked synchronously, on the caller's
// designated context, after every state assignment — including
// assignments whose value equals the previous one (spec.md §5, §8).
// The returned func deregisters fn; calling it more than once is safe.
func (c *Client) Subscribe(fn func(State)) (unsubscribe func()) {
	c.subsMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = fn
	c.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subsMu.Lock()
			delete(c.subs, id)
			c.subsMu.Unlock()
		})
	}
}

// setState assigns the new state and fires didChange synchronously,
// unconditionally — spec.md §5 requires this even when the new value
// equals the old one, since callers rely on observing e.g. a
// failed-to-failed restart.
func (c *Client) setState(s State) {
	c.state = s
	c.metrics.observeTransition(s.Phase)
	c.subsMu.Lock()
	fns := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subsMu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

// bumpCookie invalidates every in-flight request's completion: cookie
// mismatches are dropped silently by their callbacks (spec.md §4.3, §5).
func (c *Client) bumpCookie() uint64 {
	c.requestCookie++
	return c.requestCookie
}

func (c *Client) cancelRefreshTimer() {
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
	c.refreshWaitingAfterError = false
	c.refreshRequestInFlight = false
}

// Cancel aborts any in-progress flow. Valid in any state except
// authorized, where it is a no-op and any scheduled refresh keeps
// running (use End to log out). Transitions to cancelled and clears flow-scoped state.
func (c *Client) Cancel() {
	c.enter()
	defer c.exit()
	c.cancelLocked()
}

func (c *Client) cancelLocked() {
	if c.state.Phase == PhaseAuthorized {
		return
	}
	c.bumpCookie()
	c.cancelRefreshTimer()
	c.flow = nil
	c.setState(cancelledState())
}

// End logs out: in authorized, deletes stored credentials for the
// current client identifier and enters cancelled. Otherwise behaves
// exactly like Cancel.
func (c *Client) End(ctx context.Context) {
	c.enter()
	defer c.exit()

	if c.state.Phase != PhaseAuthorized {
		c.cancelLocked()
		return
	}

	// flow stays alive through PhaseAuthorized (unlike the other
	// terminal transitions, which clear it) specifically so End and the
	// refresh scheduler keep a clientIdentifier to act against.
	clientID := ""
	if c.flow != nil {
		clientID = c.flow.config.ClientIdentifier
	}
	c.bumpCookie()
	c.cancelRefreshTimer()
	if clientID != "" {
		if err := c.store.Delete(ctx, clientID); err != nil {
			c.logger.Warnf("oidcflow: deleting stored credentials on end: %v", fmt.Errorf("%w: %v", ErrStorage, err))
		}
	}
	c.flow = nil
	c.setState(cancelledState())
}
