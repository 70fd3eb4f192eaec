package transport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediamonks/oidcflow/transport"
)

func TestPerformTokenRequestDecodes200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"token:12345","token_type":"bearer"}`))
	}))
	defer srv.Close()

	rt := transport.NewDefaultHTTPRoundTripper()

	var wg sync.WaitGroup
	wg.Add(1)
	var got map[string]interface{}
	var gotErr error
	rt.PerformTokenRequest(context.Background(), transport.Request{
		Method: http.MethodPost,
		URL:    srv.URL,
	}, func(result map[string]interface{}, err error) {
		got, gotErr = result, err
		wg.Done()
	})
	wg.Wait()

	require.NoError(t, gotErr)
	assert.Equal(t, "token:12345", got["access_token"])
}

func TestPerformTokenRequestDecodes400AsResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	rt := transport.NewDefaultHTTPRoundTripper()

	var wg sync.WaitGroup
	wg.Add(1)
	var got map[string]interface{}
	var gotErr error
	rt.PerformTokenRequest(context.Background(), transport.Request{
		Method: http.MethodPost,
		URL:    srv.URL,
	}, func(result map[string]interface{}, err error) {
		got, gotErr = result, err
		wg.Done()
	})
	wg.Wait()

	require.NoError(t, gotErr)
	assert.Equal(t, "invalid_grant", got["error"])
}

func TestPerformTokenRequestRejectsOtherStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	rt := transport.NewDefaultHTTPRoundTripper()

	var wg sync.WaitGroup
	wg.Add(1)
	var gotErr error
	rt.PerformTokenRequest(context.Background(), transport.Request{
		Method: http.MethodPost,
		URL:    srv.URL,
	}, func(result map[string]interface{}, err error) {
		gotErr = err
		wg.Done()
	})
	wg.Wait()

	assert.Error(t, gotErr)
}
