package oidcflow

import (
	"strings"

	"golang.org/x/oauth2"

	"github.com/mediamonks/oidcflow/credentials"
)

// buildAuthorizationURL constructs the authorization endpoint URL per
// spec.md §4.1. golang.org/x/oauth2's Config.AuthCodeURL already
// preserves whatever raw query config.AuthorizationEndpoint carries
// and appends the new parameters after it, which is exactly the
// "preserve pre-existing query items exactly" rule this needs — so
// the authorization-URL path reuses it directly rather than
// reimplementing query merging that urlutil already solves for the
// general case. AuthCodeURL hardcodes response_type=code, overridden
// here via SetAuthURLParam since url.Values.Set replaces rather than
// appends.
func buildAuthorizationURL(f *flowState) string {
	oa := oauth2.Config{
		ClientID:    f.config.ClientIdentifier,
		RedirectURL: f.config.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL: f.config.AuthorizationEndpoint,
		},
	}
	if f.scope.Len() > 0 {
		oa.Scopes = f.scope.SortedStrings()
	}

	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("response_type", f.responseType.SpaceJoined()),
	}
	if f.responseType.Has(credentials.ResponseTypeIDToken) {
		opts = append(opts, oauth2.SetAuthURLParam("nonce", f.nonceString))
	}
	if f.display != "" {
		opts = append(opts, oauth2.SetAuthURLParam("display", f.display))
	}
	if len(f.prompt) > 0 {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", strings.Join(f.prompt, " ")))
	}

	return oa.AuthCodeURL(f.stateString, opts...)
}
