package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diatrack-dev/diatrack/internal/cli/client"
)

// mockTokenStore is a simple in-memory token store for testing
type mockTokenStore struct {
	tokens map[string]string
}

func newMockTokenStore() *mockTokenStore {
	return &mockTokenStore{
		tokens: make(map[string]string),
	}
}

func (m *mockTokenStore) SaveToken(origin, token string) error {
	m.tokens[origin] = token
	return nil
}

func (m *mockTokenStore) LoadToken(origin string) (string, error) {
	token, exists := m.tokens[origin]
	if !exists {
		return "", fmt.Errorf("not authenticated. Please run 'diatrack login' first")
	}
	return token, nil
}

func (m *mockTokenStore) DeleteToken(origin string) error {
	delete(m.tokens, origin)
	return nil
}

// mockAuthServer stands in for the DiaTrack auth gateway
func mockAuthServer(t *testing.T, username, password, token string) *httptest.Server {
	t.Helper()

	authenticated := false

	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("unexpected method: %s", r.Method)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var loginReq struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if loginReq.Username != username || loginReq.Password != password {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"message":"Invalid credentials"}`))
			return
		}

		http.SetCookie(w, &http.Cookie{Name: client.SessionCookieName, Value: token})
		authenticated = true
		w.Write([]byte(`{"success":true,"message":"Login successful","role":"user","redirect":"/user/predict"}`))
	})
	mux.HandleFunc("/api/session", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		cookie, err := r.Cookie(client.SessionCookieName)
		if !authenticated || err != nil || cookie.Value != token {
			w.Write([]byte(`{"success":true,"authenticated":false,"user":null}`))
			return
		}
		w.Write([]byte(`{"success":true,"authenticated":true,"user":{"id":"u1","username":"` + username + `","full_name":"Alice A","role":"user"}}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPerformLoginSavesTokenAndReturnsSessionUser(t *testing.T) {
	srv := mockAuthServer(t, "alice", "secret123", "tok-123")
	tokens := newMockTokenStore()

	apiClient := client.New(srv.URL)
	user, err := performLogin(apiClient, tokens, srv.URL, "alice", "secret123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if user.Username != "alice" {
		t.Errorf("username = %q, want %q", user.Username, "alice")
	}
	if user.ID != "u1" {
		t.Errorf("id = %q, want %q", user.ID, "u1")
	}

	saved, err := tokens.LoadToken(srv.URL)
	if err != nil {
		t.Fatalf("token was not saved: %v", err)
	}
	if saved != "tok-123" {
		t.Errorf("saved token = %q, want %q", saved, "tok-123")
	}
}

func TestPerformLoginInvalidCredentials(t *testing.T) {
	srv := mockAuthServer(t, "alice", "secret123", "tok-123")
	tokens := newMockTokenStore()

	apiClient := client.New(srv.URL)
	_, err := performLogin(apiClient, tokens, srv.URL, "alice", "wrong")
	if err == nil {
		t.Fatal("expected error for invalid credentials")
	}
	if err.Error() != "Invalid credentials" {
		t.Errorf("error = %q, want %q", err.Error(), "Invalid credentials")
	}

	if _, err := tokens.LoadToken(srv.URL); err == nil {
		t.Error("no token should be saved after a failed login")
	}
}

func TestPerformLoginUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	origin := srv.URL
	srv.Close()

	tokens := newMockTokenStore()
	apiClient := client.New(origin)

	_, err := performLogin(apiClient, tokens, origin, "alice", "secret123")
	if err == nil {
		t.Fatal("expected error for unreachable server")
	}
}
