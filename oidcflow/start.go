package oidcflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mediamonks/oidcflow/credentials"
	"github.com/mediamonks/oidcflow/storage"
)

// Start begins a flow, per spec.md §4.1. Preconditions: responseType is
// non-empty, and the current state is idle, failed, or cancelled — a
// violation returns an error without touching state, since it reflects
// a caller bug rather than anything the flow itself can fail at.
func (c *Client) Start(ctx context.Context, cfg Config, mode Mode, responseType credentials.ResponseTypeSet, scope credentials.ScopeSet, opts ...StartOption) error {
	c.enter()
	defer c.exit()
	c.ctx = ctx

	if len(responseType) == 0 {
		return fmt.Errorf("oidcflow: start: response type set must not be empty")
	}
	switch c.state.Phase {
	case PhaseIdle, PhaseFailed, PhaseCancelled:
	default:
		return fmt.Errorf("oidcflow: start: invalid from state %s", c.state.Phase)
	}

	stateStr, err := randomToken()
	if err != nil {
		return err
	}
	nonceStr, err := randomToken()
	if err != nil {
		return err
	}

	f := &flowState{
		config:       cfg,
		mode:         mode,
		scope:        scope,
		responseType: responseType,
		stateString:  stateStr,
		nonceString:  nonceStr,
	}
	for _, opt := range opts {
		opt(f)
	}
	c.flow = f

	if reused, ok := c.tryReuseStoredCredentials(ctx, f); ok {
		c.transitionToAuthorized(reused)
		return nil
	}

	if mode == ModeSilent {
		c.flow = nil
		c.setState(cancelledState())
		return nil
	}

	if cfg.requiresTokenEndpoint(responseType) && cfg.TokenEndpoint == "" {
		c.flow = nil
		c.setState(failedState(fmt.Errorf("%w: token endpoint required for response type %q", ErrConfig, responseType.SpaceJoined())))
		return nil
	}

	if err := cfg.validateAuthorizationEndpoint(); err != nil {
		c.flow = nil
		c.setState(failedState(err))
		return nil
	}

	authURL := buildAuthorizationURL(f)
	c.setState(authorizingState(authURL, cfg.RedirectURL))
	return nil
}

// tryReuseStoredCredentials implements spec.md §4.1 step 2: fetch,
// decode, and judge whether the stored credentials can be reused
// as-is for the requested response type.
func (c *Client) tryReuseStoredCredentials(ctx context.Context, f *flowState) (credentials.Credentials, bool) {
	blob, err := c.store.Get(ctx, f.config.ClientIdentifier)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Warnf("oidcflow: reading stored credentials: %v", fmt.Errorf("%w: %v", ErrStorage, err))
		}
		return credentials.Credentials{}, false
	}

	var creds credentials.Credentials
	if err := json.Unmarshal(blob, &creds); err != nil {
		c.logger.Warnf("oidcflow: decoding stored credentials, treating as absent: %v", fmt.Errorf("%w: %v", ErrStorage, err))
		return credentials.Credentials{}, false
	}

	if !creds.ResponseType.Equal(f.responseType) {
		return credentials.Credentials{}, false
	}
	if !creds.Scope.IsSupersetOf(f.scope) {
		c.logger.Warn("oidcflow: stored credentials' scope is not a superset of the requested scope")
	}

	expiresAt, hasExpiry := creds.EarliestExpirationDate()
	if !hasExpiry {
		return creds, true // validForever
	}
	if c.clock.Now().Before(expiresAt) {
		return creds, true // valid
	}
	canRefresh := creds.HasRefreshToken() && f.config.TokenEndpoint != ""
	if canRefresh {
		return creds, true // expired, refreshable
	}
	return credentials.Credentials{}, false // expired, not refreshable: ignore
}
