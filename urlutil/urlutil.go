// Package urlutil implements the query/fragment helpers spec.md §4.4
// needs: preserving pre-existing items while appending new ones,
// flattening query-shaped strings into maps, and the loose
// redirect-URL comparison the browser-agent side uses to recognize a
// return to the app. Grounded on pkg/http.MergeQuery and
// pkg/net.URLEqual in the teacher, generalized to fragments and to the
// full set of components spec.md names.
package urlutil

import (
	"net/url"
)

// AppendQuery returns rawURL with params appended to its existing
// query string. Existing items — including duplicates and
// empty-valued ones — are preserved byte-for-byte in position;
// params are appended after them.
func AppendQuery(rawURL string, params url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	u.RawQuery = appendValues(u.RawQuery, params)
	return u.String(), nil
}

// AppendFragment parses u's fragment as if it were a query string,
// appends params, and re-serializes the result back into the
// fragment. The query component is untouched.
func AppendFragment(rawURL string, params url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	u.RawFragment = ""
	u.Fragment = appendValues(u.Fragment, params)
	return u.String(), nil
}

// appendValues merges params onto the end of an existing raw query
// string, leaving every existing key=value pair (including ones with
// no '=' or an empty value) exactly where it was.
func appendValues(existingRawQuery string, params url.Values) string {
	var out string
	if existingRawQuery != "" {
		out = existingRawQuery
	}
	extra := params.Encode()
	if extra == "" {
		return out
	}
	if out == "" {
		return extra
	}
	return out + "&" + extra
}

// ParseFlat flattens query-encoded values into a map, keeping the
// first occurrence of each key and normalizing missing values to the
// empty string, per spec.md §4.4.
func ParseFlat(rawQuery string) (map[string]string, error) {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) == 0 {
			out[k] = ""
			continue
		}
		out[k] = vs[0]
	}
	return out, nil
}

// ParseQueryParams flattens a URL's query component.
func ParseQueryParams(rawURL string) (map[string]string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return ParseFlat(u.RawQuery)
}

// ParseFragmentParams parses a URL's fragment as if it were a query
// string and flattens it.
func ParseFragmentParams(rawURL string) (map[string]string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return ParseFlat(u.Fragment)
}

// LooksAlike reports whether two URLs "look alike" per spec.md §4.4:
// scheme, userinfo, host, port, and path are byte-equal. Query and
// fragment are ignored. Generalizes pkg/net.URLEqual, which in the
// teacher only compares host+path.
func LooksAlike(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.Scheme == ub.Scheme &&
		ua.User.String() == ub.User.String() &&
		ua.Host == ub.Host &&
		ua.Path == ub.Path
}
