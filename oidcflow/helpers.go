package oidcflow

import "fmt"

// wrapTokenExchangeErr classifies a transport-level failure (network
// error, non-JSON body, unexpected status) as a TokenExchangeError.
func wrapTokenExchangeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrTokenExchange, err)
}

// oauthErrorField renders a server-declared OAuth error field (and its
// optional error_description) as a TokenExchangeError.
func oauthErrorField(errVal interface{}, result map[string]interface{}) error {
	return oauthErrorFieldAs(errVal, result, ErrTokenExchange)
}

// oauthErrorFieldAs is oauthErrorField with a caller-chosen sentinel,
// for the refresh path's distinct RefreshError(permanent) kind.
func oauthErrorFieldAs(errVal interface{}, result map[string]interface{}, kind error) error {
	msg := fmt.Sprint(errVal)
	if desc, ok := result["error_description"].(string); ok && desc != "" {
		msg = msg + ": " + desc
	}
	return fmt.Errorf("%w: %s", kind, msg)
}
