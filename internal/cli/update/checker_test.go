package update

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNewer(t *testing.T) {
	tests := []struct {
		current string
		latest  string
		want    bool
	}{
		{"1.0.0", "1.0.1", true},
		{"1.0.0", "1.1.0", true},
		{"1.9.0", "2.0.0", true},
		{"1.0.0", "1.0.0", false},
		{"1.2.0", "1.1.9", false},
		{"2.0.0", "1.9.9", false},
		{"v1.0.0", "v1.0.1", true},
		{"dev", "0.0.1", true},
		{"nightly-2024", "nightly-2025", true}, // unparsable falls back to inequality
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isNewer(tt.current, tt.latest),
			"current=%s latest=%s", tt.current, tt.latest)
	}
}

func TestCheckerLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		w.Write([]byte(`{"tag_name":"v1.4.0","name":"1.4.0","html_url":"https://example.com"}`))
	}))
	defer srv.Close()

	ck := &Checker{APIURL: srv.URL, Client: &http.Client{Timeout: time.Second}}

	release, err := ck.Latest()
	require.NoError(t, err)
	assert.Equal(t, "v1.4.0", release.TagName)
}

func TestCheckerLatestRejectsEmptyTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ck := &Checker{APIURL: srv.URL, Client: &http.Client{Timeout: time.Second}}

	_, err := ck.Latest()
	require.Error(t, err)
}

func TestCheckForUpdate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tag_name":"v2.0.0"}`))
	}))
	defer srv.Close()

	ck := &Checker{APIURL: srv.URL, Client: &http.Client{Timeout: time.Second}}

	available, latest, err := ck.CheckForUpdate("1.0.0")
	require.NoError(t, err)
	assert.True(t, available)
	assert.Equal(t, "v2.0.0", latest)
}
