// Command example-app is a minimal web front-end for oidcflow: it
// starts a browser-based authorization code flow against a configured
// issuer, completes it on its own callback endpoint, and displays the
// resulting credentials. Grounded on cmd/example-app in the teacher,
// rebuilt against oidcflow.Client instead of ericchiang/oidc +
// golang.org/x/oauth2 directly.
package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mediamonks/oidcflow"
	"github.com/mediamonks/oidcflow/clock"
	"github.com/mediamonks/oidcflow/credentials"
	"github.com/mediamonks/oidcflow/oidcflow"
	"github.com/mediamonks/oidcflow/pkg/log"
	"github.com/mediamonks/oidcflow/storage"
	"github.com/mediamonks/oidcflow/storage/memory"
	redisstore "github.com/mediamonks/oidcflow/storage/redis"
	"github.com/mediamonks/oidcflow/transport"
)

type app struct {
	client      *oidcflow.Client
	config      oidcflow.Config
	redirectURI string
}

func cmd() *cobra.Command {
	var (
		clientID      string
		clientSecret  string
		redirectURI   string
		authEndpoint  string
		tokenEndpoint string
		listen        string
		rootCAs       []string
		redisAddr     string
	)
	c := &cobra.Command{
		Use:   "example-app",
		Short: "A minimal web front-end driving oidcflow.Client",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("surplus arguments provided")
			}

			listenURL, err := url.Parse(listen)
			if err != nil {
				return fmt.Errorf("parse listen address: %w", err)
			}

			rt, err := transport.NewHTTPRoundTripper(rootCAs, false)
			if err != nil {
				return fmt.Errorf("build HTTP transport: %w", err)
			}

			var store storage.Store
			if redisAddr != "" {
				redisCfg := redisstore.Config{Addrs: []string{redisAddr}}
				store = redisCfg.Open()
			} else {
				store = memory.New()
			}

			logger := log.NewLogrusLogger(logrus.StandardLogger())
			client := oidcflow.NewClient(store, rt, clock.NewReal(), oidcflow.WithLogger(logger))

			a := &app{client: client, redirectURI: redirectURI}
			a.config = oidcflow.Config{
				AuthorizationEndpoint: authEndpoint,
				TokenEndpoint:         tokenEndpoint,
				ClientIdentifier:      clientID,
				ClientSecret:          clientSecret,
				RedirectURL:           redirectURI,
			}

			client.Subscribe(func(s oidcflow.State) {
				logger.Infof("oidcflow: state changed to %s", s.Phase)
			})

			mux := http.NewServeMux()
			mux.HandleFunc("/", a.handleIndex)
			mux.HandleFunc("/login", a.handleLogin)
			mux.HandleFunc(redirectPath(redirectURI), a.handleCallback)

			logger.Infof("listening on %s", listen)
			return http.ListenAndServe(listenURL.Host, mux)
		},
	}
	c.Flags().StringVar(&clientID, "client-id", "example-app", "OAuth2/OIDC client identifier of this application.")
	c.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth2 client secret of this application, if confidential.")
	c.Flags().StringVar(&redirectURI, "redirect-uri", "http://127.0.0.1:5555/callback", "Callback URL for authorization responses.")
	c.Flags().StringVar(&authEndpoint, "authorization-endpoint", "", "Authorization endpoint of the identity provider.")
	c.Flags().StringVar(&tokenEndpoint, "token-endpoint", "", "Token endpoint of the identity provider.")
	c.Flags().StringVar(&listen, "listen", "http://127.0.0.1:5555", "HTTP address to listen at.")
	c.Flags().StringArrayVar(&rootCAs, "issuer-root-ca", nil, "Additional root certificate authorities for the issuer, in addition to the system trust store.")
	c.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address for the credential cache. Defaults to an in-process store.")
	_ = c.MarkFlagRequired("authorization-endpoint")
	_ = c.MarkFlagRequired("token-endpoint")
	return c
}

func redirectPath(redirectURI string) string {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Path == "" {
		return "/callback"
	}
	return u.Path
}

func main() {
	if err := cmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}

func (a *app) handleIndex(w http.ResponseWriter, r *http.Request) {
	st := a.client.State()
	renderIndex(w, st.Phase)
}

func (a *app) handleLogin(w http.ResponseWriter, r *http.Request) {
	rt := credentials.NewResponseTypeSet(credentials.ResponseTypeCode)
	scope := credentials.NewScopeSet("openid", "profile", "email", "offline_access")

	if err := a.client.Start(r.Context(), a.config, oidcflow.ModeInteractive, rt, scope); err != nil {
		http.Error(w, fmt.Sprintf("starting flow: %v", err), http.StatusInternalServerError)
		return
	}

	st := a.client.State()
	if st.IsFailed() {
		http.Error(w, fmt.Sprintf("starting flow: %v", st.Err), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, st.AuthorizationURL, http.StatusSeeOther)
}

func (a *app) handleCallback(w http.ResponseWriter, r *http.Request) {
	redirectURL := a.redirectURI + "?" + r.URL.RawQuery
	a.client.HandleAuthorizationRedirect(r.Context(), redirectURL)

	st := a.client.State()
	switch st.Phase {
	case oidcflow.PhaseFetchingToken:
		// The code exchange runs on its own goroutine; give it a beat
		// and re-check once, since this handler has no subscription of
		// its own to block on.
		for i := 0; i < 50 && a.client.State().Phase == oidcflow.PhaseFetchingToken; i++ {
			time.Sleep(20 * time.Millisecond)
		}
		st = a.client.State()
	}

	switch st.Phase {
	case oidcflow.PhaseAuthorized:
		renderToken(w, st.Credentials)
	case oidcflow.PhaseFailed:
		http.Error(w, fmt.Sprintf("authorization failed: %v", st.Err), http.StatusBadRequest)
	default:
		http.Error(w, fmt.Sprintf("unexpected state %s after callback", st.Phase), http.StatusInternalServerError)
	}
}
