package oidcflow

// StartOption configures the optional OpenID settings on a single
// authorization URL, per spec.md §4.1.
type StartOption func(*flowState)

// WithDisplay sets the "display" parameter: one of page, popup, touch.
// Unvalidated here — an unrecognized value is passed through verbatim,
// since the authorization server, not this client, is authoritative
// on which values it supports.
func WithDisplay(display string) StartOption {
	return func(f *flowState) { f.display = display }
}

// WithPrompt sets the "prompt" parameter to a space-joined subset of
// none, login, consent, select_account.
func WithPrompt(prompt ...string) StartOption {
	return func(f *flowState) { f.prompt = prompt }
}
