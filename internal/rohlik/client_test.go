package rohlik

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTestClient(t *testing.T, baseURL string) *Client {
	c, err := MakeClient(Credentials{
		Username:    "user@example.com",
		Password:    "hunter2",
		CountryCode: "cz",
	}, MakeRequestPacer(time.Millisecond))
	require.NoError(t, err)
	c.baseURL = baseURL
	return c
}

func writeLoginOK(w http.ResponseWriter) {
	w.Header().Set("Set-Cookie", "frontend=abc123; Path=/; HttpOnly")
	fmt.Fprint(w, `{"data":{"user":{"id":42},"address":{"id":7}}}`)
}

func TestExecuteReloginsOnceAndRetries(t *testing.T) {
	var loginCalls, dataCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case loginPath:
			atomic.AddInt32(&loginCalls, 1)
			writeLoginOK(w)
		case bagAmountPath:
			n := atomic.AddInt32(&dataCalls, 1)
			if n == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			// The retried call must carry the cookie captured at login.
			assert.Contains(t, r.Header.Get("Cookie"), "frontend=abc123")
			fmt.Fprint(w, `{"amount":3}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := makeTestClient(t, srv.URL)
	count, ok, err := c.BagBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, count)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loginCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&dataCalls))
}

func TestExecutePersistentAuthFailure(t *testing.T) {
	var loginCalls, dataCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case loginPath:
			atomic.AddInt32(&loginCalls, 1)
			writeLoginOK(w)
		default:
			atomic.AddInt32(&dataCalls, 1)
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	c := makeTestClient(t, srv.URL)
	_, _, err := c.BagBalance(context.Background())
	require.Error(t, err)
	authErr, ok := err.(*AuthError)
	require.True(t, ok, "expected AuthError, got %T: %v", err, err)
	assert.Equal(t, http.StatusForbidden, authErr.Status)
	// Exactly one login attempt; the retry never recurses.
	assert.Equal(t, int32(1), atomic.LoadInt32(&loginCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&dataCalls))
}

func TestExecuteHttpErrorDoesNotRelogin(t *testing.T) {
	var loginCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == loginPath {
			atomic.AddInt32(&loginCalls, 1)
			writeLoginOK(w)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := makeTestClient(t, srv.URL)
	_, _, err := c.BagBalance(context.Background())
	require.Error(t, err)
	httpErr, ok := err.(*HttpError)
	require.True(t, ok, "expected HttpError, got %T: %v", err, err)
	assert.Equal(t, http.StatusInternalServerError, httpErr.Status)
	assert.Equal(t, int32(0), atomic.LoadInt32(&loginCalls))
}

func TestLoginRejectedCarriesUpstreamMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"messages":[{"content":"bad credentials"}]}`)
	}))
	defer srv.Close()

	c := makeTestClient(t, srv.URL)
	err := c.Login(context.Background())
	require.Error(t, err)
	loginErr, ok := err.(*LoginError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, loginErr.Status)
	assert.Equal(t, "bad credentials", loginErr.Message)
	assert.False(t, c.session.Populated())
}

func TestLoginAcceptedWithoutUserIDIsProtocolViolation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{}}`)
	}))
	defer srv.Close()

	c := makeTestClient(t, srv.URL)
	err := c.Login(context.Background())
	require.Error(t, err)
	_, ok := err.(*LoginError)
	assert.True(t, ok)
	assert.False(t, c.session.Populated())
}

func TestLoginPopulatesSessionIdentifiers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, loginPath, r.URL.Path)
		writeLoginOK(w)
	}))
	defer srv.Close()

	c := makeTestClient(t, srv.URL)
	require.NoError(t, c.Login(context.Background()))
	userID, addressID := c.session.Identifiers()
	assert.Equal(t, "42", userID)
	assert.Equal(t, "7", addressID)
	assert.Contains(t, c.session.CookieHeader(), "frontend=abc123")
}

func TestLogoutClearsSessionEvenWhenCallFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == loginPath {
			writeLoginOK(w)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := makeTestClient(t, srv.URL)
	require.NoError(t, c.Login(context.Background()))
	require.True(t, c.session.Populated())

	_ = c.Logout(context.Background())
	assert.False(t, c.session.Populated())
	assert.Equal(t, "", c.session.CookieHeader())
}

func TestUnknownCountryCodeRejected(t *testing.T) {
	_, err := MakeClient(Credentials{Username: "u", Password: "p", CountryCode: "xx"}, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "country code"))
}

func TestJoinSetCookiesDropsAttributes(t *testing.T) {
	joined := joinSetCookies([]string{
		"frontend=abc; Path=/; HttpOnly",
		"region=cz; Secure",
	})
	assert.Equal(t, "frontend=abc; region=cz", joined)
}
