package oidcflow

import "errors"

// Error kinds from spec.md §7. The core never surfaces a structured
// discriminant to callers — State.Failed carries a cause chain via
// %w-wrapping — but these sentinels let tests and internal branches
// distinguish error kinds with errors.Is.
var (
	// ErrConfig covers a missing token endpoint when the response-type
	// set demands one, or a malformed authorization endpoint URL.
	ErrConfig = errors.New("oidcflow: config error")

	// ErrAuthorization covers an unparsable redirect URL, a state
	// mismatch, or a server-declared error field on the redirect.
	ErrAuthorization = errors.New("oidcflow: authorization error")

	// ErrTokenExchange covers transport failure, a non-JSON body, an
	// unexpected status code, or a malformed token response.
	ErrTokenExchange = errors.New("oidcflow: token exchange error")

	// ErrRefreshTransient marks a refresh failure that back-off should
	// retry: transport failure or a response that doesn't parse.
	ErrRefreshTransient = errors.New("oidcflow: transient refresh error")

	// ErrRefreshPermanent marks a refresh failure that ends the flow:
	// a server-declared OAuth error, or an extraction failure.
	ErrRefreshPermanent = errors.New("oidcflow: permanent refresh error")

	// ErrStorage is non-fatal: logged, never surfaced as a failed state.
	ErrStorage = errors.New("oidcflow: storage error")
)
