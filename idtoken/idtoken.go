// Package idtoken implements a minimal JWT-shaped decoder for OpenID
// Connect ID Tokens. It extracts the claims a client needs to track
// token expiration and identify the subject. It does not, and will
// never, verify a signature — that's a resource server's job.
package idtoken

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed is returned when the input doesn't look like a JWT
	// (fewer than two dot-separated segments, or a segment that isn't
	// valid base64url / JSON).
	ErrMalformed = errors.New("idtoken: malformed token")

	// ErrMissingClaim is returned when a required claim is absent or
	// of the wrong type.
	ErrMissingClaim = errors.New("idtoken: missing or invalid required claim")
)

// IDToken is a parsed, unverified ID Token.
type IDToken struct {
	raw     string
	header  map[string]interface{}
	payload jwt.MapClaims

	Issuer    string
	Subject   string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Parse splits raw at '.', base64url-decodes the header and payload
// segments, and extracts the required claims. Grounded on the manual
// unverified-segment decode connector/oauth.oauthConnector.addGroupsFromToken
// performs by hand; here it's generalized into a first-class parser and
// paired with golang-jwt/jwt/v5's MapClaims accessors, which already
// handle "aud" as either a bare string or a string array.
func Parse(raw string) (*IDToken, error) {
	parts := strings.Split(raw, ".")
	if len(parts) < 2 {
		return nil, ErrMalformed
	}

	headerBytes, err := decodeSegment(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	payloadBytes, err := decodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrMalformed, err)
	}

	var header map[string]interface{}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("%w: header is not a JSON object: %v", ErrMalformed, err)
	}

	var payload jwt.MapClaims
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object: %v", ErrMalformed, err)
	}

	tok := &IDToken{raw: raw, header: header, payload: payload}

	tok.Issuer, err = stringClaim(payload, "iss")
	if err != nil {
		return nil, err
	}
	tok.Subject, err = stringClaim(payload, "sub")
	if err != nil {
		return nil, err
	}

	aud, err := payload.GetAudience()
	if err != nil || len(aud) == 0 {
		return nil, fmt.Errorf("%w: aud", ErrMissingClaim)
	}
	tok.Audience = []string(aud)

	exp, err := payload.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: exp", ErrMissingClaim)
	}
	tok.ExpiresAt = exp.Time

	iat, err := payload.GetIssuedAt()
	if err != nil || iat == nil {
		return nil, fmt.Errorf("%w: iat", ErrMissingClaim)
	}
	tok.IssuedAt = iat.Time

	return tok, nil
}

func stringClaim(payload jwt.MapClaims, key string) (string, error) {
	v, ok := payload[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingClaim, key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingClaim, key)
	}
	return s, nil
}

// decodeSegment converts a URL-safe base64 segment to standard
// encoding, re-pads it, and decodes it, per spec.md §4.5.
func decodeSegment(seg string) ([]byte, error) {
	seg = strings.NewReplacer("-", "+", "_", "/").Replace(seg)
	if n := len(seg) % 4; n != 0 {
		seg += strings.Repeat("=", 4-n)
	}
	return base64.StdEncoding.DecodeString(seg)
}

// String returns the raw token value, byte-for-byte as parsed.
func (t *IDToken) String() string { return t.raw }

// Equal compares two ID Tokens by raw string value.
func (t *IDToken) Equal(other *IDToken) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.raw == other.raw
}

// Nonce returns the "nonce" claim, if present and a string.
func (t *IDToken) Nonce() (string, bool) { return t.stringClaim("nonce") }

// Name returns the "name" claim, if present and a string.
func (t *IDToken) Name() (string, bool) { return t.stringClaim("name") }

// Email returns the "email" claim, if present and a string.
func (t *IDToken) Email() (string, bool) { return t.stringClaim("email") }

// Picture returns the "picture" claim, if present and a string.
func (t *IDToken) Picture() (string, bool) { return t.stringClaim("picture") }

// GivenName returns the "given_name" claim, if present and a string.
func (t *IDToken) GivenName() (string, bool) { return t.stringClaim("given_name") }

// FamilyName returns the "family_name" claim, if present and a string.
func (t *IDToken) FamilyName() (string, bool) { return t.stringClaim("family_name") }

func (t *IDToken) stringClaim(key string) (string, bool) {
	v, ok := t.payload[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// MarshalJSON encodes the token as its raw string value.
func (t IDToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.raw)
}

// UnmarshalJSON re-parses the token from its raw string value.
func (t *IDToken) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

