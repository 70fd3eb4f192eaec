package oidcflow

import (
	"fmt"
	"net/url"

	"github.com/mediamonks/oidcflow/credentials"
)

// Config is the caller-provided, already-resolved endpoint configuration
// for a flow, per spec.md §3. It is not itself validated against a
// response-type set until Start is called — the "token endpoint
// required if response-type contains code" invariant depends on the
// requested response types.
type Config struct {
	AuthorizationEndpoint string
	TokenEndpoint         string // empty means none
	ClientIdentifier      string
	ClientSecret          string // empty means none
	RedirectURL           string
}

// requiresTokenEndpoint reports whether rt demands config.TokenEndpoint
// be present, per spec.md §3's invariant.
func (c Config) requiresTokenEndpoint(rt credentials.ResponseTypeSet) bool {
	return rt.Has(credentials.ResponseTypeCode)
}

// validateAuthorizationEndpoint rejects a malformed authorization
// endpoint URL, per the ConfigError kind in spec.md §7.
func (c Config) validateAuthorizationEndpoint() error {
	if _, err := url.Parse(c.AuthorizationEndpoint); err != nil {
		return fmt.Errorf("%w: authorization endpoint: %v", ErrConfig, err)
	}
	return nil
}

// Mode selects whether the flow may show UI to the user.
type Mode int

const (
	// ModeInteractive permits browser interaction.
	ModeInteractive Mode = iota
	// ModeSilent forbids it: Start either reuses stored credentials or
	// ends in Cancelled.
	ModeSilent
)
