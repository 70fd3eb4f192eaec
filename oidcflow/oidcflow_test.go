package oidcflow_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediamonks/oidcflow/clock"
	"github.com/mediamonks/oidcflow/credentials"
	"github.com/mediamonks/oidcflow/oidcflow"
	"github.com/mediamonks/oidcflow/storage/memory"
)

func testConfig() oidcflow.Config {
	return oidcflow.Config{
		AuthorizationEndpoint: "https://idp.example.com/authorize?audience=api",
		TokenEndpoint:         "https://idp.example.com/token",
		ClientIdentifier:      "client-123",
		ClientSecret:          "shh",
		RedirectURL:           "app://callback",
	}
}

func newTestClient(t *testing.T) (*oidcflow.Client, *fakeTransport, clockwork.FakeClock, *memory.Store) {
	t.Helper()
	store := memory.New()
	tr := &fakeTransport{}
	fc := clock.NewFake()
	c := oidcflow.NewClient(store, tr, fc)
	return c, tr, fc, store
}

// collects every state a Client reports via Subscribe, in order,
// including duplicates of the same phase.
func recordStates(c *oidcflow.Client) *[]oidcflow.State {
	states := &[]oidcflow.State{}
	c.Subscribe(func(s oidcflow.State) {
		*states = append(*states, s)
	})
	return states
}

func codeSet() credentials.ResponseTypeSet {
	return credentials.NewResponseTypeSet(credentials.ResponseTypeCode)
}

// --- S1: happy path, authorization code flow ---

func TestHappyCodeFlow(t *testing.T) {
	c, tr, _, store := newTestClient(t)
	states := recordStates(c)

	err := c.Start(context.Background(), testConfig(), oidcflow.ModeInteractive, codeSet(), credentials.NewScopeSet("profile"))
	require.NoError(t, err)

	st := c.State()
	require.Equal(t, oidcflow.PhaseAuthorizing, st.Phase)

	u, err := url.Parse(st.AuthorizationURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "api", q.Get("audience"), "pre-existing query item must survive byte-exact")
	assert.Equal(t, "code", q.Get("response_type"))
	stateParam := q.Get("state")
	assert.NotEmpty(t, stateParam)

	redirect := "app://callback?state=" + stateParam + "&code=authcode123"
	c.HandleAuthorizationRedirect(context.Background(), redirect)
	assert.Equal(t, oidcflow.PhaseFetchingToken, c.State().Phase)
	require.Equal(t, 1, tr.count())

	req := tr.call(0).req
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "https://idp.example.com/token", req.URL)
	assert.Contains(t, req.Header["Authorization"][0], "Basic ")
	body, err := url.ParseQuery(string(req.Body))
	require.NoError(t, err)
	assert.Equal(t, "authorization_code", body.Get("grant_type"))
	assert.Equal(t, "authcode123", body.Get("code"))

	tr.resolve(0, map[string]interface{}{
		"access_token":  "at-1",
		"token_type":    "Bearer",
		"expires_in":    float64(3600),
		"refresh_token": "rt-1",
	}, nil)

	final := c.State()
	require.Equal(t, oidcflow.PhaseAuthorized, final.Phase)
	assert.Equal(t, "at-1", final.Credentials.AccessToken)
	assert.Equal(t, "rt-1", final.Credentials.RefreshToken)
	assert.False(t, final.Refreshing)

	blob, err := store.Get(context.Background(), "client-123")
	require.NoError(t, err)
	assert.Contains(t, string(blob), "at-1")

	assert.GreaterOrEqual(t, len(*states), 3)
}

// --- S2: silent restart, reused from storage ---

func TestSilentRestartFromStorage(t *testing.T) {
	c, tr, fc, store := newTestClient(t)

	creds := credentials.Credentials{
		Scope:        credentials.NewScopeSet("openid"),
		ResponseType: codeSet(),
		AccessToken:  "stored-at",
		RefreshToken: "stored-rt",
	}
	future := fc.Now().Add(time.Hour)
	creds.AccessTokenExpiresAt = &future
	blob, err := creds.MarshalJSON()
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), "client-123", blob))

	err = c.Start(context.Background(), testConfig(), oidcflow.ModeSilent, codeSet(), credentials.NewScopeSet("openid"))
	require.NoError(t, err)

	st := c.State()
	require.Equal(t, oidcflow.PhaseAuthorized, st.Phase)
	assert.Equal(t, "stored-at", st.Credentials.AccessToken)
	assert.Equal(t, 0, tr.count(), "reused credentials must not hit the network")
}

func TestSilentModeWithNoStoredCredentialsCancels(t *testing.T) {
	c, _, _, _ := newTestClient(t)
	err := c.Start(context.Background(), testConfig(), oidcflow.ModeSilent, codeSet(), credentials.NewScopeSet("openid"))
	require.NoError(t, err)
	assert.Equal(t, oidcflow.PhaseCancelled, c.State().Phase)
}

// --- S3: implicit token flow ---

func TestImplicitTokenFlow(t *testing.T) {
	c, tr, _, _ := newTestClient(t)
	rt := credentials.NewResponseTypeSet(credentials.ResponseTypeToken)

	cfg := testConfig()
	cfg.TokenEndpoint = "" // not required for implicit token
	err := c.Start(context.Background(), cfg, oidcflow.ModeInteractive, rt, credentials.NewScopeSet("profile"))
	require.NoError(t, err)

	st := c.State()
	require.Equal(t, oidcflow.PhaseAuthorizing, st.Phase)
	u, _ := url.Parse(st.AuthorizationURL)
	stateParam := u.Query().Get("state")

	frag := url.Values{}
	frag.Set("state", stateParam)
	frag.Set("access_token", "implicit-at")
	frag.Set("token_type", "Bearer")
	frag.Set("expires_in", "3600")

	c.HandleAuthorizationRedirect(context.Background(), "app://callback#"+frag.Encode())

	final := c.State()
	require.Equal(t, oidcflow.PhaseAuthorized, final.Phase)
	assert.Equal(t, "implicit-at", final.Credentials.AccessToken)
	assert.Equal(t, 0, tr.count(), "implicit flow never hits the token endpoint")
}

// --- S4: implicit id_token flow, with nonce verification ---

func TestImplicitIDTokenFlow(t *testing.T) {
	c, _, fc, _ := newTestClient(t)
	rt := credentials.NewResponseTypeSet(credentials.ResponseTypeIDToken)

	cfg := testConfig()
	cfg.TokenEndpoint = ""
	err := c.Start(context.Background(), cfg, oidcflow.ModeInteractive, rt, credentials.NewScopeSet("openid"))
	require.NoError(t, err)

	st := c.State()
	u, _ := url.Parse(st.AuthorizationURL)
	stateParam := u.Query().Get("state")
	nonceParam := u.Query().Get("nonce")
	require.NotEmpty(t, nonceParam)

	idTok := fakeIDToken(map[string]interface{}{
		"iss":   "https://idp.example.com",
		"sub":   "user-1",
		"aud":   "client-123",
		"exp":   fc.Now().Add(time.Hour).Unix(),
		"iat":   fc.Now().Unix(),
		"nonce": nonceParam,
	})

	frag := url.Values{}
	frag.Set("state", stateParam)
	frag.Set("id_token", idTok)
	c.HandleAuthorizationRedirect(context.Background(), "app://callback#"+frag.Encode())

	final := c.State()
	require.Equal(t, oidcflow.PhaseAuthorized, final.Phase)
	require.NotNil(t, final.Credentials.IDToken)
	assert.Equal(t, "user-1", final.Credentials.IDToken.Subject)
}

func TestImplicitIDTokenNonceMismatchFails(t *testing.T) {
	c, _, fc, _ := newTestClient(t)
	rt := credentials.NewResponseTypeSet(credentials.ResponseTypeIDToken)
	cfg := testConfig()
	cfg.TokenEndpoint = ""
	require.NoError(t, c.Start(context.Background(), cfg, oidcflow.ModeInteractive, rt, credentials.NewScopeSet("openid")))

	st := c.State()
	u, _ := url.Parse(st.AuthorizationURL)
	stateParam := u.Query().Get("state")

	idTok := fakeIDToken(map[string]interface{}{
		"iss": "https://idp.example.com", "sub": "user-1", "aud": "client-123",
		"exp": fc.Now().Add(time.Hour).Unix(), "iat": fc.Now().Unix(),
		"nonce": "wrong-nonce",
	})
	frag := url.Values{}
	frag.Set("state", stateParam)
	frag.Set("id_token", idTok)
	c.HandleAuthorizationRedirect(context.Background(), "app://callback#"+frag.Encode())

	assert.True(t, c.State().IsFailed())
}

// --- S5: CSRF defense, state mismatch ---

func TestStateMismatchDefense(t *testing.T) {
	c, tr, _, _ := newTestClient(t)
	require.NoError(t, c.Start(context.Background(), testConfig(), oidcflow.ModeInteractive, codeSet(), credentials.NewScopeSet("openid")))

	c.HandleAuthorizationRedirect(context.Background(), "app://callback?state=not-the-real-state&code=abc")

	assert.True(t, c.State().IsFailed())
	assert.Equal(t, 0, tr.count(), "a state mismatch must never reach the token endpoint")
}

// --- S6: error field wins over an otherwise-present code ---

func TestErrorWinsOverSuccess(t *testing.T) {
	c, tr, _, _ := newTestClient(t)
	require.NoError(t, c.Start(context.Background(), testConfig(), oidcflow.ModeInteractive, codeSet(), credentials.NewScopeSet("openid")))

	st := c.State()
	u, _ := url.Parse(st.AuthorizationURL)
	stateParam := u.Query().Get("state")

	redirect := "app://callback?state=" + stateParam + "&error=access_denied&error_description=user+said+no&code=shouldnt-matter"
	c.HandleAuthorizationRedirect(context.Background(), redirect)

	final := c.State()
	assert.True(t, final.IsFailed())
	assert.ErrorIs(t, final.Err, oidcflow.ErrAuthorization)
	assert.Equal(t, 0, tr.count())
}

// --- S7: token endpoint rejects the exchange; a stale completion is dropped ---

func TestTokenEndpointRejectsExchange(t *testing.T) {
	c, tr, _, store := newTestClient(t)
	require.NoError(t, c.Start(context.Background(), testConfig(), oidcflow.ModeInteractive, codeSet(), credentials.NewScopeSet("openid")))

	st := c.State()
	u, _ := url.Parse(st.AuthorizationURL)
	stateParam := u.Query().Get("state")
	c.HandleAuthorizationRedirect(context.Background(), "app://callback?state="+stateParam+"&code=abc")
	require.Equal(t, 1, tr.count())

	tr.resolve(0, map[string]interface{}{
		"error":             "invalid_grant",
		"error_description": "code already used",
	}, nil)

	final := c.State()
	assert.True(t, final.IsFailed())
	assert.ErrorIs(t, final.Err, oidcflow.ErrTokenExchange)

	_, err := store.Get(context.Background(), "client-123")
	assert.Error(t, err)
}

// TestDuplicateCompletionAfterFailureIsIgnored is the literal scenario
// spec.md §4.4's S7 describes: complete with an error, assert failed,
// then complete the same logical request again with a valid body and
// assert the state remains failed rather than flipping to authorized.
func TestDuplicateCompletionAfterFailureIsIgnored(t *testing.T) {
	c, tr, _, _ := newTestClient(t)
	require.NoError(t, c.Start(context.Background(), testConfig(), oidcflow.ModeInteractive, codeSet(), credentials.NewScopeSet("openid")))

	st := c.State()
	u, _ := url.Parse(st.AuthorizationURL)
	stateParam := u.Query().Get("state")
	c.HandleAuthorizationRedirect(context.Background(), "app://callback?state="+stateParam+"&code=abc")
	require.Equal(t, 1, tr.count())

	tr.resolve(0, map[string]interface{}{
		"error":             "invalid_grant",
		"error_description": "code already used",
	}, nil)
	require.True(t, c.State().IsFailed())

	tr.resolve(0, map[string]interface{}{
		"access_token": "should-not-apply",
		"token_type":   "Bearer",
		"expires_in":   float64(3600),
	}, nil)

	final := c.State()
	assert.True(t, final.IsFailed())
}

func TestStaleCompletionAfterCancelIsDropped(t *testing.T) {
	c, tr, _, _ := newTestClient(t)
	require.NoError(t, c.Start(context.Background(), testConfig(), oidcflow.ModeInteractive, codeSet(), credentials.NewScopeSet("openid")))

	st := c.State()
	u, _ := url.Parse(st.AuthorizationURL)
	stateParam := u.Query().Get("state")
	c.HandleAuthorizationRedirect(context.Background(), "app://callback?state="+stateParam+"&code=abc")
	require.Equal(t, 1, tr.count())

	c.Cancel()
	assert.Equal(t, oidcflow.PhaseCancelled, c.State().Phase)

	// The in-flight request's completion finally arrives, but the
	// request cookie captured before Cancel no longer matches, so the
	// cancelled state must not be disturbed.
	tr.resolve(0, map[string]interface{}{
		"access_token": "at-1", "token_type": "Bearer",
	}, nil)

	assert.Equal(t, oidcflow.PhaseCancelled, c.State().Phase, "a stale completion must not overwrite a newer state")
}

// --- S8: malformed token responses ---

func TestInvalidTokenResponses(t *testing.T) {
	cases := []struct {
		name   string
		result map[string]interface{}
		scope  credentials.ScopeSet
	}{
		{"empty map", map[string]interface{}{}, credentials.NewScopeSet("profile")},
		{"missing token_type", map[string]interface{}{"access_token": "at"}, credentials.NewScopeSet("profile")},
		{"negative expires_in", map[string]interface{}{"access_token": "at", "token_type": "Bearer", "expires_in": float64(-1)}, credentials.NewScopeSet("profile")},
		{"missing id_token for openid scope", map[string]interface{}{"access_token": "at", "token_type": "Bearer"}, credentials.NewScopeSet("openid")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, tr, _, _ := newTestClient(t)
			require.NoError(t, c.Start(context.Background(), testConfig(), oidcflow.ModeInteractive, codeSet(), tc.scope))

			st := c.State()
			u, _ := url.Parse(st.AuthorizationURL)
			stateParam := u.Query().Get("state")
			c.HandleAuthorizationRedirect(context.Background(), "app://callback?state="+stateParam+"&code=abc")

			tr.resolve(0, tc.result, nil)

			assert.True(t, c.State().IsFailed(), "case %q must fail", tc.name)
		})
	}
}

// --- invariant: didChange fires synchronously and unconditionally ---

func TestDidChangeFiresOnEveryAssignmentEvenWhenUnchanged(t *testing.T) {
	c, _, _, _ := newTestClient(t)
	var n int
	c.Subscribe(func(oidcflow.State) { n++ })

	require.NoError(t, c.Start(context.Background(), testConfig(), oidcflow.ModeInteractive, codeSet(), credentials.NewScopeSet("openid")))
	require.Equal(t, 1, n)

	c.Cancel()
	require.Equal(t, 2, n)

	// Cancel from idle/cancelled is itself a no-op transition into the
	// same phase, but must still notify.
	c.Cancel()
	assert.Equal(t, 3, n)
}

func TestSubscribeUnsubscribeStopsNotifications(t *testing.T) {
	c, _, _, _ := newTestClient(t)
	var n int
	unsub := c.Subscribe(func(oidcflow.State) { n++ })
	unsub()
	c.Cancel()
	assert.Equal(t, 0, n)
}

// --- invariant: state/nonce are not reused across Start calls ---

func TestStartGeneratesFreshStateAndNonceEachCall(t *testing.T) {
	c, _, _, _ := newTestClient(t)
	rt := credentials.NewResponseTypeSet(credentials.ResponseTypeIDToken)
	cfg := testConfig()
	cfg.TokenEndpoint = ""

	require.NoError(t, c.Start(context.Background(), cfg, oidcflow.ModeInteractive, rt, credentials.NewScopeSet("openid")))
	first := c.State().AuthorizationURL
	c.Cancel()

	require.NoError(t, c.Start(context.Background(), cfg, oidcflow.ModeInteractive, rt, credentials.NewScopeSet("openid")))
	second := c.State().AuthorizationURL

	assert.NotEqual(t, first, second)
}

// --- eager refresh scheduling ---

func TestEagerRefreshFiresBeforeExpiry(t *testing.T) {
	c, tr, fc, _ := newTestClient(t)
	require.NoError(t, c.Start(context.Background(), testConfig(), oidcflow.ModeInteractive, codeSet(), credentials.NewScopeSet("profile")))

	st := c.State()
	u, _ := url.Parse(st.AuthorizationURL)
	stateParam := u.Query().Get("state")
	c.HandleAuthorizationRedirect(context.Background(), "app://callback?state="+stateParam+"&code=abc")

	tr.resolve(0, map[string]interface{}{
		"access_token": "at-1", "token_type": "Bearer",
		"expires_in": float64(3600), "refresh_token": "rt-1",
	}, nil)
	require.Equal(t, oidcflow.PhaseAuthorized, c.State().Phase)
	require.Equal(t, 1, tr.count())

	fc.BlockUntil(1)
	fc.Advance(3600*time.Second - oidcflow.DefaultEagerRefreshInterval)

	require.Equal(t, 2, tr.count(), "the eager refresh must have fired its own token request")
	tr.resolve(1, map[string]interface{}{
		"access_token": "at-2", "token_type": "Bearer", "expires_in": float64(3600),
	}, nil)

	final := c.State()
	assert.Equal(t, "at-2", final.Credentials.AccessToken)
	assert.Equal(t, "rt-1", final.Credentials.RefreshToken, "a refresh response without refresh_token inherits the old one")
	assert.False(t, final.Refreshing)
}

func TestRefreshTransientErrorRetriesWithBackoff(t *testing.T) {
	c, tr, fc, _ := newTestClient(t)
	require.NoError(t, c.Start(context.Background(), testConfig(), oidcflow.ModeInteractive, codeSet(), credentials.NewScopeSet("profile")))
	st := c.State()
	u, _ := url.Parse(st.AuthorizationURL)
	stateParam := u.Query().Get("state")
	c.HandleAuthorizationRedirect(context.Background(), "app://callback?state="+stateParam+"&code=abc")
	tr.resolve(0, map[string]interface{}{
		"access_token": "at-1", "token_type": "Bearer",
		"expires_in": float64(3600), "refresh_token": "rt-1",
	}, nil)

	fc.BlockUntil(1)
	fc.Advance(3600*time.Second - oidcflow.DefaultEagerRefreshInterval)
	require.Equal(t, 2, tr.count())

	tr.resolve(1, nil, assert.AnError)

	mid := c.State()
	require.Equal(t, oidcflow.PhaseAuthorized, mid.Phase)
	assert.True(t, mid.Refreshing, "a transient refresh failure keeps refreshing=true while backing off")

	fc.BlockUntil(1)
	fc.Advance(time.Hour)
	require.Equal(t, 3, tr.count(), "back-off timer must have retried the refresh")
}

func TestRefreshPermanentOAuthErrorEndsFlowAndClearsStorage(t *testing.T) {
	c, tr, fc, store := newTestClient(t)
	require.NoError(t, c.Start(context.Background(), testConfig(), oidcflow.ModeInteractive, codeSet(), credentials.NewScopeSet("profile")))
	st := c.State()
	u, _ := url.Parse(st.AuthorizationURL)
	stateParam := u.Query().Get("state")
	c.HandleAuthorizationRedirect(context.Background(), "app://callback?state="+stateParam+"&code=abc")
	tr.resolve(0, map[string]interface{}{
		"access_token": "at-1", "token_type": "Bearer",
		"expires_in": float64(3600), "refresh_token": "rt-1",
	}, nil)

	fc.BlockUntil(1)
	fc.Advance(3600*time.Second - oidcflow.DefaultEagerRefreshInterval)
	require.Equal(t, 2, tr.count())

	tr.resolve(1, map[string]interface{}{"error": "invalid_grant"}, nil)

	final := c.State()
	assert.True(t, final.IsFailed())
	assert.ErrorIs(t, final.Err, oidcflow.ErrRefreshPermanent)

	_, err := store.Get(context.Background(), "client-123")
	assert.Error(t, err)
}

func TestNudgeToRefreshPreemptsBackoff(t *testing.T) {
	c, tr, fc, _ := newTestClient(t)
	require.NoError(t, c.Start(context.Background(), testConfig(), oidcflow.ModeInteractive, codeSet(), credentials.NewScopeSet("openid")))
	st := c.State()
	u, _ := url.Parse(st.AuthorizationURL)
	stateParam := u.Query().Get("state")
	c.HandleAuthorizationRedirect(context.Background(), "app://callback?state="+stateParam+"&code=abc")
	tr.resolve(0, map[string]interface{}{
		"access_token": "at-1", "token_type": "Bearer",
		"expires_in": float64(3600), "refresh_token": "rt-1",
		"id_token": fakeIDToken(map[string]interface{}{
			"iss": "https://idp.example.com", "sub": "user-1", "aud": "client-123",
			"exp": fc.Now().Add(2 * time.Hour).Unix(), "iat": fc.Now().Unix(),
		}),
	}, nil)

	fc.BlockUntil(1)
	fc.Advance(3600*time.Second - oidcflow.DefaultEagerRefreshInterval)
	require.Equal(t, 2, tr.count())
	tr.resolve(1, nil, assert.AnError)
	require.True(t, c.State().Refreshing)

	c.NudgeToRefresh()
	fc.BlockUntil(1)
	fc.Advance(0)
	require.Equal(t, 3, tr.count(), "nudging must re-arm the refresh at a near-zero delay")
}

// --- Cancel / End ---

func TestCancelIsANoOpOnceAuthorized(t *testing.T) {
	c, tr, _, _ := newTestClient(t)
	require.NoError(t, c.Start(context.Background(), testConfig(), oidcflow.ModeInteractive, codeSet(), credentials.NewScopeSet("profile")))
	st := c.State()
	u, _ := url.Parse(st.AuthorizationURL)
	stateParam := u.Query().Get("state")
	c.HandleAuthorizationRedirect(context.Background(), "app://callback?state="+stateParam+"&code=abc")
	tr.resolve(0, map[string]interface{}{"access_token": "at-1", "token_type": "Bearer"}, nil)
	require.Equal(t, oidcflow.PhaseAuthorized, c.State().Phase)

	c.Cancel()
	assert.Equal(t, oidcflow.PhaseAuthorized, c.State().Phase, "Cancel must be a no-op once authorized")
}

func TestEndDeletesStoredCredentials(t *testing.T) {
	c, tr, _, store := newTestClient(t)
	require.NoError(t, c.Start(context.Background(), testConfig(), oidcflow.ModeInteractive, codeSet(), credentials.NewScopeSet("profile")))
	st := c.State()
	u, _ := url.Parse(st.AuthorizationURL)
	stateParam := u.Query().Get("state")
	c.HandleAuthorizationRedirect(context.Background(), "app://callback?state="+stateParam+"&code=abc")
	tr.resolve(0, map[string]interface{}{"access_token": "at-1", "token_type": "Bearer", "refresh_token": "rt-1", "expires_in": float64(3600)}, nil)
	require.Equal(t, oidcflow.PhaseAuthorized, c.State().Phase)

	c.End(context.Background())
	assert.Equal(t, oidcflow.PhaseCancelled, c.State().Phase)

	_, err := store.Get(context.Background(), "client-123")
	assert.Error(t, err)
}

// --- designated scheduling context ---

func TestReentrantCallPanics(t *testing.T) {
	c, _, _, _ := newTestClient(t)
	c.Subscribe(func(oidcflow.State) {
		c.State() // re-entering from inside a didChange callback
	})
	assert.Panics(t, func() {
		_ = c.Start(context.Background(), testConfig(), oidcflow.ModeInteractive, codeSet(), credentials.NewScopeSet("openid"))
	})
}

// --- config validation ---

func TestStartFailsWhenCodeResponseTypeHasNoTokenEndpoint(t *testing.T) {
	c, _, _, _ := newTestClient(t)
	cfg := testConfig()
	cfg.TokenEndpoint = ""
	require.NoError(t, c.Start(context.Background(), cfg, oidcflow.ModeInteractive, codeSet(), credentials.NewScopeSet("openid")))
	assert.True(t, c.State().IsFailed())
}

func TestStartRejectsEmptyResponseTypeSet(t *testing.T) {
	c, _, _, _ := newTestClient(t)
	err := c.Start(context.Background(), testConfig(), oidcflow.ModeInteractive, credentials.NewResponseTypeSet(), credentials.NewScopeSet("openid"))
	assert.Error(t, err)
	assert.Equal(t, oidcflow.PhaseIdle, c.State().Phase, "a precondition violation must not touch state")
}
