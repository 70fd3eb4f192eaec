package oidcflow_test

import (
	"encoding/base64"
	"encoding/json"
)

// fakeIDToken builds an unsigned, JWT-shaped string with the given
// payload claims. idtoken.Parse never checks the signature, so an
// empty third segment is sufficient.
func fakeIDToken(claims map[string]interface{}) string {
	header := map[string]interface{}{"alg": "none", "typ": "JWT"}
	return segment(header) + "." + segment(claims) + "."
}

func segment(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
