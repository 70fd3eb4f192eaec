package oidcflow

import (
	"context"
	"fmt"

	"github.com/mediamonks/oidcflow/credentials"
	"github.com/mediamonks/oidcflow/urlutil"
)

var codeOnly = credentials.NewResponseTypeSet(credentials.ResponseTypeCode)

// HandleAuthorizationRedirect completes the browser leg of a flow, per
// spec.md §4.1. Only valid while the state is authorizing; otherwise
// silently ignored, since a stale or duplicate browser callback must
// not disturb whatever the flow has moved on to.
func (c *Client) HandleAuthorizationRedirect(ctx context.Context, redirectURL string) {
	c.enter()
	defer c.exit()
	if c.state.Phase != PhaseAuthorizing {
		return
	}
	c.ctx = ctx
	f := c.flow

	var params map[string]string
	var err error
	if f.responseType.Equal(codeOnly) {
		params, err = urlutil.ParseQueryParams(redirectURL)
	} else {
		params, err = urlutil.ParseFragmentParams(redirectURL)
	}
	if err != nil {
		c.flow = nil
		c.setState(failedState(fmt.Errorf("%w: parsing redirect URL: %v", ErrAuthorization, err)))
		return
	}

	// The state check precedes error extraction: an attacker-crafted
	// redirect must not be trusted even to report an error.
	if stateVal, ok := params["state"]; !ok || stateVal != f.stateString {
		c.flow = nil
		c.setState(failedState(fmt.Errorf("%w: state mismatch", ErrAuthorization)))
		return
	}

	if errVal, ok := params["error"]; ok {
		msg := errVal
		if desc := params["error_description"]; desc != "" {
			msg = errVal + ": " + desc
		}
		c.flow = nil
		c.setState(failedState(fmt.Errorf("%w: %s", ErrAuthorization, msg)))
		return
	}

	if f.responseType.Has(credentials.ResponseTypeCode) {
		code, ok := params["code"]
		if !ok || code == "" {
			c.flow = nil
			c.setState(failedState(fmt.Errorf("%w: missing code", ErrAuthorization)))
			return
		}
		c.setState(fetchingTokenState())
		c.performCodeExchange(f, code)
		return
	}

	generic := make(map[string]interface{}, len(params))
	for k, v := range params {
		generic[k] = v
	}
	creds, err := extractCredentials(generic, sourceAuthorizationEndpoint, f, c.clock.Now())
	if err != nil {
		c.flow = nil
		c.setState(failedState(err))
		return
	}
	c.transitionToAuthorized(creds)
}

// HandleAuthorizationFailure reports that the browser agent itself
// failed (e.g., the user dismissed it, or a network error occurred
// before any redirect arrived). Only valid in authorizing.
func (c *Client) HandleAuthorizationFailure(err error) {
	c.enter()
	defer c.exit()
	if c.state.Phase != PhaseAuthorizing {
		return
	}
	c.flow = nil
	c.setState(failedState(fmt.Errorf("%w: %v", ErrAuthorization, err)))
}
