package oidcflow

import (
	"encoding/base64"
	"net/http"
	"net/url"

	"github.com/mediamonks/oidcflow/transport"
)

// performCodeExchange issues the single token-endpoint POST for the
// authorization-code grant, per spec.md §4.2. f is captured by value
// (the pointer) at the moment fetchingToken was entered; a cancellation
// in the meantime is caught by the cookie check in the completion, not
// by re-reading c.flow, which may already be nil by the time this runs.
func (c *Client) performCodeExchange(f *flowState, code string) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("client_id", f.config.ClientIdentifier)
	data.Set("redirect_uri", f.config.RedirectURL)

	req := buildTokenRequest(f.config, data)
	cookie := c.requestCookie

	c.transport.PerformTokenRequest(c.ctx, req, func(result map[string]interface{}, err error) {
		c.enter()
		defer c.exit()
		if cookie != c.requestCookie {
			return
		}
		c.handleCodeExchangeResult(f, result, err)
	})
}

func (c *Client) handleCodeExchangeResult(f *flowState, result map[string]interface{}, err error) {
	// This request is now settled one way or another; bump the cookie
	// so a duplicate completion on the same logical request (a
	// misbehaving transport calling back twice) is rejected by the
	// cookie check performCodeExchange's closure already performs.
	c.bumpCookie()

	if err != nil {
		c.flow = nil
		c.setState(failedState(wrapTokenExchangeErr(err)))
		return
	}
	if errVal, ok := result["error"]; ok {
		c.flow = nil
		c.setState(failedState(oauthErrorField(errVal, result)))
		return
	}
	creds, err := extractCredentials(result, sourceTokenEndpoint, f, c.clock.Now())
	if err != nil {
		c.flow = nil
		c.setState(failedState(err))
		return
	}
	c.transitionToAuthorized(creds)
}

// buildTokenRequest constructs the common POST shape shared by the
// code exchange and the refresh request, per spec.md §4.2-§4.3: a
// form-encoded body, and HTTP Basic auth when a client secret is
// configured.
func buildTokenRequest(cfg Config, body url.Values) transport.Request {
	req := transport.Request{
		Method: http.MethodPost,
		URL:    cfg.TokenEndpoint,
		Header: map[string][]string{
			"Content-Type": {"application/x-www-form-urlencoded"},
		},
		Body: []byte(body.Encode()),
	}
	if cfg.ClientSecret != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(cfg.ClientIdentifier + ":" + cfg.ClientSecret))
		req.Header["Authorization"] = []string{"Basic " + creds}
	}
	return req
}
