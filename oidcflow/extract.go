package oidcflow

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mediamonks/oidcflow/credentials"
	"github.com/mediamonks/oidcflow/idtoken"
)

// tokenSource names where a result map came from, since spec.md §4.2
// applies different required-ness rules to each.
type tokenSource int

const (
	sourceAuthorizationEndpoint tokenSource = iota
	sourceTokenEndpoint
)

// extractCredentials implements "token extraction" from spec.md §4.2,
// shared between the implicit redirect path (params come from the
// fragment, already strings) and the token-endpoint exchange path
// (params come from a JSON-decoded map, so expires_in may arrive as a
// number rather than a string).
func extractCredentials(params map[string]interface{}, source tokenSource, f *flowState, now time.Time) (credentials.Credentials, error) {
	scope := f.scope
	if v, ok := params["scope"]; ok {
		s, ok := v.(string)
		if !ok || s == "" {
			return credentials.Credentials{}, fmt.Errorf("%w: scope must be a non-empty string", ErrTokenExchange)
		}
		scope = credentials.ParseScope(s)
	}

	accessTokenApplies := source == sourceTokenEndpoint ||
		(source == sourceAuthorizationEndpoint && f.responseType.Has(credentials.ResponseTypeToken))

	var accessToken string
	var expiresAt *time.Time
	if accessTokenApplies {
		atRaw, ok := params["access_token"]
		at, _ := atRaw.(string)
		if !ok || at == "" {
			return credentials.Credentials{}, fmt.Errorf("%w: missing access_token", ErrTokenExchange)
		}
		accessToken = at

		ttRaw, ok := params["token_type"]
		tt, _ := ttRaw.(string)
		if !ok || strings.ToLower(tt) != "bearer" {
			return credentials.Credentials{}, fmt.Errorf("%w: unsupported token_type %q", ErrTokenExchange, tt)
		}

		if eiRaw, ok := params["expires_in"]; ok {
			secs, err := parseExpiresIn(eiRaw)
			if err != nil {
				return credentials.Credentials{}, err
			}
			if secs <= 0 {
				return credentials.Credentials{}, fmt.Errorf("%w: expires_in must be positive", ErrTokenExchange)
			}
			t := now.Add(time.Duration(secs) * time.Second)
			expiresAt = &t
		}
	}

	var refreshToken string
	if source == sourceTokenEndpoint {
		if rtRaw, ok := params["refresh_token"]; ok {
			rt, ok := rtRaw.(string)
			if !ok || rt == "" {
				return credentials.Credentials{}, fmt.Errorf("%w: refresh_token must be a non-empty string", ErrTokenExchange)
			}
			refreshToken = rt
		}
	}

	idTokenApplies := (source == sourceAuthorizationEndpoint && f.responseType.Has(credentials.ResponseTypeIDToken)) ||
		(source == sourceTokenEndpoint && f.scope.Has("openid"))

	var idTok *idtoken.IDToken
	if idTokenApplies {
		itRaw, ok := params["id_token"]
		it, _ := itRaw.(string)
		if !ok || it == "" {
			return credentials.Credentials{}, fmt.Errorf("%w: missing id_token", ErrTokenExchange)
		}
		parsed, err := idtoken.Parse(it)
		if err != nil {
			return credentials.Credentials{}, fmt.Errorf("%w: parsing id_token: %v", ErrTokenExchange, err)
		}
		if source == sourceAuthorizationEndpoint {
			if nonce, present := parsed.Nonce(); present && nonce != f.nonceString {
				return credentials.Credentials{}, fmt.Errorf("%w: id_token nonce mismatch", ErrTokenExchange)
			}
		}
		idTok = parsed
	}

	return credentials.Credentials{
		Scope:                scope,
		ResponseType:         f.responseType,
		AccessToken:          accessToken,
		AccessTokenExpiresAt: expiresAt,
		RefreshToken:         refreshToken,
		IDToken:              idTok,
	}, nil
}

// parseExpiresIn accepts expires_in as a JSON number (from a
// token-endpoint body) or a numeric string (from a redirect query or
// fragment, where everything arrives as a string), per spec.md §4.2.
func parseExpiresIn(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case string:
		i, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: expires_in is not an integer", ErrTokenExchange)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%w: expires_in has an unsupported type", ErrTokenExchange)
	}
}
