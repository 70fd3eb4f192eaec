package oidcflow

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/mediamonks/oidcflow/clock"
	"github.com/mediamonks/oidcflow/credentials"
)

const (
	backoffMin        = time.Second
	backoffMax        = 7200 * time.Second
	backoffMultiplier = 2
)

// transitionToAuthorized implements spec.md §4.3's common "enter
// authorized" path: persist, cancel any existing timer, then classify
// the new credentials' expiration and (re)schedule accordingly. Every
// route into PhaseAuthorized — storage reuse on Start, a fresh code or
// implicit exchange, and a successful refresh — funnels through here.
func (c *Client) transitionToAuthorized(creds credentials.Credentials) {
	c.persistCredentials(creds)
	c.cancelRefreshTimer()

	expiresAt, hasExpiry := creds.EarliestExpirationDate()
	tokenEndpoint := ""
	if c.flow != nil {
		tokenEndpoint = c.flow.config.TokenEndpoint
	}
	canRefresh := creds.HasRefreshToken() && tokenEndpoint != ""

	if !hasExpiry {
		c.setState(authorizedState(creds, false))
		return
	}

	if !c.clock.Now().Before(expiresAt) {
		// Already expired.
		if !canRefresh {
			c.flow = nil
			c.setState(failedState(fmt.Errorf("%w: credentials expired and cannot be refreshed", ErrTokenExchange)))
			return
		}
		c.setState(authorizedState(creds, true))
		c.scheduleRefresh(0)
		return
	}

	if canRefresh {
		c.setState(authorizedState(creds, false))
		c.scheduleRefresh(clock.IntervalUntil(c.clock, expiresAt.Add(-c.eagerRefreshInterval)))
		return
	}

	// Valid but not refreshable: schedule a check that fails the flow
	// once the access token has actually expired.
	c.setState(authorizedState(creds, false))
	c.scheduleExpiryCheck(clock.IntervalUntil(c.clock, expiresAt))
}

func (c *Client) persistCredentials(creds credentials.Credentials) {
	if c.flow == nil {
		return
	}
	blob, err := json.Marshal(creds)
	if err != nil {
		c.logger.Warnf("oidcflow: encoding credentials for storage: %v", fmt.Errorf("%w: %v", ErrStorage, err))
		return
	}
	if err := c.store.Put(c.ctx, c.flow.config.ClientIdentifier, blob); err != nil {
		c.logger.Warnf("oidcflow: persisting credentials: %v", fmt.Errorf("%w: %v", ErrStorage, err))
	}
}

// scheduleRefresh arms the refresh timer to fire after d. The cookie
// captured at scheduling time catches a cancellation that happens
// while the timer is still pending.
func (c *Client) scheduleRefresh(d time.Duration) {
	cookie := c.requestCookie
	c.refreshTimer = c.clock.AfterFunc(d, func() {
		c.enter()
		defer c.exit()
		if cookie != c.requestCookie {
			return
		}
		c.performRefresh()
	})
}

// scheduleExpiryCheck arms a timer that fails the flow once a
// non-refreshable token's expiry arrives.
func (c *Client) scheduleExpiryCheck(d time.Duration) {
	cookie := c.requestCookie
	c.refreshTimer = c.clock.AfterFunc(d, func() {
		c.enter()
		defer c.exit()
		if cookie != c.requestCookie {
			return
		}
		c.flow = nil
		c.setState(failedState(fmt.Errorf("%w: access token expired with no refresh path", ErrTokenExchange)))
	})
}

func (c *Client) performRefresh() {
	f := c.flow
	if f == nil {
		return
	}
	c.refreshRequestInFlight = true
	c.refreshWaitingAfterError = false

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", c.state.Credentials.RefreshToken)

	req := buildTokenRequest(f.config, data)
	cookie := c.requestCookie

	c.transport.PerformTokenRequest(c.ctx, req, func(result map[string]interface{}, err error) {
		c.enter()
		defer c.exit()
		if cookie != c.requestCookie {
			return
		}
		c.handleRefreshResult(f, result, err)
	})
}

func (c *Client) handleRefreshResult(f *flowState, result map[string]interface{}, err error) {
	// This request is now settled one way or another; bump the cookie
	// so a duplicate completion on the same logical request (a
	// misbehaving transport calling back twice) is rejected by the
	// cookie check performRefresh's closure already performs.
	c.bumpCookie()
	c.refreshRequestInFlight = false

	if err != nil {
		c.metrics.observeRefreshOutcome("transient")
		c.logger.Warnf("oidcflow: refresh attempt failed, will retry: %v", fmt.Errorf("%w: %v", ErrRefreshTransient, err))
		c.refreshWaitingAfterError = true
		c.setState(authorizedState(c.state.Credentials, true))
		c.scheduleBackoffRetry()
		return
	}

	if errVal, ok := result["error"]; ok {
		c.metrics.observeRefreshOutcome("permanent_oauth_error")
		if delErr := c.store.Delete(c.ctx, f.config.ClientIdentifier); delErr != nil {
			c.logger.Warnf("oidcflow: deleting credentials after permanent refresh error: %v", fmt.Errorf("%w: %v", ErrStorage, delErr))
		}
		c.flow = nil
		c.setState(failedState(backoff.Permanent(oauthErrorFieldAs(errVal, result, ErrRefreshPermanent))))
		return
	}

	newCreds, exErr := extractCredentials(result, sourceTokenEndpoint, f, c.clock.Now())
	if exErr != nil {
		c.metrics.observeRefreshOutcome("permanent_extraction_error")
		// Preserved source quirk (spec.md §9): extraction failure on
		// refresh does not delete stored credentials, unlike a
		// server-declared OAuth error.
		c.flow = nil
		c.setState(failedState(backoff.Permanent(fmt.Errorf("%w: %v", ErrRefreshPermanent, exErr))))
		return
	}
	if !newCreds.HasRefreshToken() {
		newCreds.RefreshToken = c.state.Credentials.RefreshToken
	}
	c.metrics.observeRefreshOutcome("success")
	c.lastBackoff = 0
	c.transitionToAuthorized(newCreds)
}

// scheduleBackoffRetry computes the next retry delay per spec.md
// §4.3's jitter formula and reschedules the refresh timer.
func (c *Client) scheduleBackoffRetry() {
	c.lastBackoff = nextBackoff(c.lastBackoff)
	c.scheduleRefresh(c.lastBackoff)
}

// nextBackoff implements clamp(random_uniform(0,last) + last*2, min,
// max). The first call passes last=0, so the random term is 0 and the
// result clamps straight to min.
func nextBackoff(last time.Duration) time.Duration {
	var jitter time.Duration
	if last > 0 {
		jitter = time.Duration(rand.Int63n(int64(last)))
	}
	next := jitter + last*backoffMultiplier
	if next < backoffMin {
		return backoffMin
	}
	if next > backoffMax {
		return backoffMax
	}
	return next
}

// NudgeToRefresh preempts the back-off timer, per spec.md §4.3. Only
// meaningful when the state is authorized with refreshing=true;
// otherwise a no-op.
func (c *Client) NudgeToRefresh() {
	c.enter()
	defer c.exit()
	if c.state.Phase != PhaseAuthorized || !c.state.Refreshing {
		return
	}
	switch {
	case c.refreshWaitingAfterError:
		if c.refreshTimer != nil {
			c.refreshTimer.Stop()
		}
		c.bumpCookie()
		c.lastBackoff = 0
		c.refreshWaitingAfterError = false
		c.scheduleRefresh(0)
	case c.refreshRequestInFlight:
		c.lastBackoff = 0
	}
}
