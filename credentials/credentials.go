// Package credentials holds the immutable snapshot of tokens a flow
// produces: scope, response types, access token and expiry, refresh
// token, and optional ID token.
package credentials

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/mediamonks/oidcflow/idtoken"
)

// ResponseType is one member of the closed response_type variant set.
type ResponseType string

const (
	ResponseTypeCode    ResponseType = "code"
	ResponseTypeToken   ResponseType = "token"
	ResponseTypeIDToken ResponseType = "id_token"
)

// ResponseTypeSet is an unordered set of response types.
type ResponseTypeSet map[ResponseType]struct{}

// NewResponseTypeSet builds a set from the given response types.
func NewResponseTypeSet(types ...ResponseType) ResponseTypeSet {
	s := make(ResponseTypeSet, len(types))
	for _, t := range types {
		s[t] = struct{}{}
	}
	return s
}

// Has reports whether rt is a member of the set.
func (s ResponseTypeSet) Has(rt ResponseType) bool {
	_, ok := s[rt]
	return ok
}

// Equal reports whether the two sets contain exactly the same members.
func (s ResponseTypeSet) Equal(other ResponseTypeSet) bool {
	if len(s) != len(other) {
		return false
	}
	for rt := range s {
		if _, ok := other[rt]; !ok {
			return false
		}
	}
	return true
}

// SortedStrings returns the set's members as lowercase strings, sorted.
func (s ResponseTypeSet) SortedStrings() []string {
	out := make([]string, 0, len(s))
	for rt := range s {
		out = append(out, string(rt))
	}
	sort.Strings(out)
	return out
}

// SpaceJoined renders the set per the authorization URL's response_type
// parameter: space-joined, sorted, lowercase.
func (s ResponseTypeSet) SpaceJoined() string {
	return strings.Join(s.SortedStrings(), " ")
}

func (s ResponseTypeSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.SortedStrings())
}

func (s *ResponseTypeSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	set := make(ResponseTypeSet, len(raw))
	for _, v := range raw {
		set[ResponseType(v)] = struct{}{}
	}
	*s = set
	return nil
}

// ScopeSet is an unordered set of raw scope tokens.
type ScopeSet map[string]struct{}

// NewScopeSet builds a set from raw scope tokens, splitting any
// space-separated entries.
func NewScopeSet(tokens ...string) ScopeSet {
	s := make(ScopeSet)
	for _, t := range tokens {
		for _, part := range strings.Fields(t) {
			s[part] = struct{}{}
		}
	}
	return s
}

// ParseScope splits a space-separated scope string into a ScopeSet.
func ParseScope(raw string) ScopeSet {
	return NewScopeSet(strings.Fields(raw)...)
}

func (s ScopeSet) Has(token string) bool {
	_, ok := s[token]
	return ok
}

func (s ScopeSet) Len() int { return len(s) }

// IsSupersetOf reports whether s contains every member of other.
func (s ScopeSet) IsSupersetOf(other ScopeSet) bool {
	for token := range other {
		if _, ok := s[token]; !ok {
			return false
		}
	}
	return true
}

func (s ScopeSet) SortedStrings() []string {
	out := make([]string, 0, len(s))
	for token := range s {
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}

func (s ScopeSet) SpaceJoined() string {
	return strings.Join(s.SortedStrings(), " ")
}

func (s ScopeSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.SortedStrings())
}

func (s *ScopeSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NewScopeSet(raw...)
	return nil
}

// Credentials is an immutable-by-value snapshot of a flow's outcome.
type Credentials struct {
	Scope                ScopeSet
	ResponseType         ResponseTypeSet
	AccessToken          string // empty means absent
	AccessTokenExpiresAt *time.Time
	RefreshToken         string // empty means absent
	IDToken              *idtoken.IDToken
}

// HasAccessToken reports whether an access token is present.
func (c Credentials) HasAccessToken() bool { return c.AccessToken != "" }

// HasRefreshToken reports whether a refresh token is present.
func (c Credentials) HasRefreshToken() bool { return c.RefreshToken != "" }

// EarliestExpirationDate is the min of the access-token and ID-token
// expiries, whichever are present; the zero value's ok flag is false
// when neither carries an expiry.
func (c Credentials) EarliestExpirationDate() (time.Time, bool) {
	var candidates []time.Time
	if c.AccessTokenExpiresAt != nil {
		candidates = append(candidates, *c.AccessTokenExpiresAt)
	}
	if c.IDToken != nil {
		candidates = append(candidates, c.IDToken.ExpiresAt)
	}
	if len(candidates) == 0 {
		return time.Time{}, false
	}
	earliest := candidates[0]
	for _, t := range candidates[1:] {
		if t.Before(earliest) {
			earliest = t
		}
	}
	return earliest, true
}

// Equal reports value equality, matching the spec's equality-comparable
// invariant. Expiry comparison uses time.Time.Equal so differing
// monotonic readings of the same instant still compare equal.
func (c Credentials) Equal(other Credentials) bool {
	if len(c.Scope) != len(other.Scope) || !scopeEqual(c.Scope, other.Scope) {
		return false
	}
	if !c.ResponseType.Equal(other.ResponseType) {
		return false
	}
	if c.AccessToken != other.AccessToken || c.RefreshToken != other.RefreshToken {
		return false
	}
	if !timeEqual(c.AccessTokenExpiresAt, other.AccessTokenExpiresAt) {
		return false
	}
	switch {
	case c.IDToken == nil && other.IDToken == nil:
	case c.IDToken == nil || other.IDToken == nil:
		return false
	default:
		if !c.IDToken.Equal(other.IDToken) {
			return false
		}
	}
	return true
}

func scopeEqual(a, b ScopeSet) bool {
	if len(a) != len(b) {
		return false
	}
	for token := range a {
		if _, ok := b[token]; !ok {
			return false
		}
	}
	return true
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// wireFormat is the JSON shape specified for the storage blob (spec.md §6).
type wireFormat struct {
	Scope        []string `json:"scope"`
	ResponseType []string `json:"responseType"`
	AccessToken  *string  `json:"accessToken"`
	ExpiresAt    *int64   `json:"expiresAt"`
	RefreshToken *string  `json:"refreshToken"`
	IDToken      *string  `json:"idToken"`
}

// MarshalJSON encodes the credentials to the wire format from spec.md §6.
func (c Credentials) MarshalJSON() ([]byte, error) {
	w := wireFormat{
		Scope:        c.Scope.SortedStrings(),
		ResponseType: c.ResponseType.SortedStrings(),
	}
	if c.AccessToken != "" {
		w.AccessToken = &c.AccessToken
	}
	if c.AccessTokenExpiresAt != nil {
		epoch := c.AccessTokenExpiresAt.Unix()
		w.ExpiresAt = &epoch
	}
	if c.RefreshToken != "" {
		w.RefreshToken = &c.RefreshToken
	}
	if c.IDToken != nil {
		raw := c.IDToken.String()
		w.IDToken = &raw
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire format from spec.md §6. A malformed
// embedded ID Token makes UnmarshalJSON return the parse error rather
// than silently dropping the token.
func (c *Credentials) UnmarshalJSON(data []byte) error {
	var w wireFormat
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := Credentials{
		Scope:        NewScopeSet(w.Scope...),
		ResponseType: NewResponseTypeSet(),
	}
	for _, rt := range w.ResponseType {
		out.ResponseType[ResponseType(rt)] = struct{}{}
	}
	if w.AccessToken != nil {
		out.AccessToken = *w.AccessToken
	}
	if w.ExpiresAt != nil {
		t := time.Unix(*w.ExpiresAt, 0).UTC()
		out.AccessTokenExpiresAt = &t
	}
	if w.RefreshToken != nil {
		out.RefreshToken = *w.RefreshToken
	}
	if w.IDToken != nil && *w.IDToken != "" {
		tok, err := idtoken.Parse(*w.IDToken)
		if err != nil {
			return err
		}
		out.IDToken = tok
	}
	*c = out
	return nil
}
