package commands

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diatrack-dev/diatrack/internal/cli/client"
)

func newSessionServer(t *testing.T, body string) *client.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/session" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return client.New(srv.URL)
}

func TestEnsureRouteAdmin(t *testing.T) {
	api := newSessionServer(t, `{"success":true,"authenticated":true,"user":{"id":"u1","username":"root","role":"admin"}}`)

	assert.NoError(t, ensureRoute(api, adminUsersRoute))
}

func TestEnsureRouteRejectsNonAdmin(t *testing.T) {
	api := newSessionServer(t, `{"success":true,"authenticated":true,"user":{"id":"u1","username":"alice","role":"user"}}`)

	err := ensureRoute(api, adminStatsRoute)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin access")
}

func TestEnsureRouteRejectsUnauthenticated(t *testing.T) {
	api := newSessionServer(t, `{"success":true,"authenticated":false,"user":null}`)

	err := ensureRoute(api, adminDocsRoute)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "diatrack login")
}

func TestFetchReturnsValue(t *testing.T) {
	got, err := fetch("things", func() ([]string, error) {
		return []string{"a", "b"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestFetchPropagatesError(t *testing.T) {
	boom := errors.New("server unavailable")

	got, err := fetch("things", func() ([]string, error) {
		return nil, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, got)
}
