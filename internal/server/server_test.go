package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/diatrack-dev/diatrack/internal/auth"
	"github.com/diatrack-dev/diatrack/internal/config"
	"github.com/diatrack-dev/diatrack/internal/inference"
	"github.com/diatrack-dev/diatrack/internal/models"
	"github.com/diatrack-dev/diatrack/internal/predictions"
	"github.com/diatrack-dev/diatrack/internal/rag"
	"github.com/diatrack-dev/diatrack/internal/reports"
	"github.com/diatrack-dev/diatrack/internal/risk"
	"github.com/diatrack-dev/diatrack/internal/session"
)

// fakeSessions keeps session records in a map so handler tests need no Redis
type fakeSessions struct {
	mu      sync.Mutex
	records map[string]*session.Record
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{records: make(map[string]*session.Record)}
}

func (f *fakeSessions) key(userID, sessionID string) string {
	return userID + ":" + sessionID
}

func (f *fakeSessions) Create(ctx context.Context, userID, username, role string, ttl time.Duration) (*session.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := &session.Record{
		SessionID: ulid.Make().String(),
		UserID:    userID,
		Username:  username,
		Role:      role,
		LoginAt:   time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}
	f.records[f.key(userID, rec.SessionID)] = rec
	return rec, nil
}

func (f *fakeSessions) Get(ctx context.Context, userID, sessionID string) (*session.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[f.key(userID, sessionID)]
	if !ok {
		return nil, session.ErrNotFound
	}
	return rec, nil
}

func (f *fakeSessions) Invalidate(ctx context.Context, userID, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, f.key(userID, sessionID))
	return nil
}

func (f *fakeSessions) InvalidateAllForUser(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.records {
		if strings.HasPrefix(k, userID+":") {
			delete(f.records, k)
		}
	}
	return nil
}

func (f *fakeSessions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// fakeQueue records enqueued tasks and can be told to fail
type fakeQueue struct {
	mu       sync.Mutex
	enqueued []*asynq.Task
	failWith error
}

func (q *fakeQueue) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failWith != nil {
		return nil, q.failWith
	}
	q.enqueued = append(q.enqueued, task)
	return &asynq.TaskInfo{}, nil
}

func (q *fakeQueue) Close() error { return nil }

func newTestServer(t *testing.T) (*Server, *fakeSessions, *fakeQueue) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Each connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.AutoMigrate(db))

	auth.InitializeSigning(strings.Repeat("ab", 32))

	cfg := &config.Config{
		Session: config.SessionConfig{
			CookieName: "diatrack_session",
			TTL:        time.Hour,
		},
		UploadDir:      t.TempDir(),
		FrontendOrigin: "http://localhost:5173",
	}

	zlog := zerolog.Nop()
	sessions := newFakeSessions()
	queue := &fakeQueue{}

	inferenceClient := inference.New("http://127.0.0.1:1")
	ragClient := rag.New("http://127.0.0.1:1")

	s := &Server{
		db:                 db,
		config:             cfg,
		logger:             zlog,
		validator:          newValidator(),
		asynqClient:        queue,
		sessions:           sessions,
		predictionsService: predictions.NewService(db, inferenceClient, risk.DefaultThresholds(), zlog),
		reportsService:     reports.NewService(db, zlog),
		inferenceClient:    inferenceClient,
		ragClient:          ragClient,
		version:            "test",
		startedAt:          time.Now(),
	}
	s.setupRouter()
	return s, sessions, queue
}

func createUser(t *testing.T, s *Server, username, role string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		FullName:     "Test " + username,
		Role:         role,
	}
	require.NoError(t, s.db.Create(user).Error)
	return user
}

func doJSON(s *Server, method, path string, body interface{}, cookie *http.Cookie, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func loginAs(t *testing.T, s *Server, username string) *http.Cookie {
	t.Helper()
	w := doJSON(s, "POST", "/api/login", map[string]string{
		"username": username,
		"password": "secret123",
	}, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	for _, c := range w.Result().Cookies() {
		if c.Name == "diatrack_session" && c.Value != "" {
			return c
		}
	}
	t.Fatal("login response did not set the session cookie")
	return nil
}

func TestLoginSetsCookieAndRedirect(t *testing.T) {
	s, _, _ := newTestServer(t)
	createUser(t, s, "alice", models.RoleUser)

	w := doJSON(s, "POST", "/api/login", map[string]string{
		"username": "alice",
		"password": "secret123",
	}, nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Login successful", body["message"])
	assert.Equal(t, "user", body["role"])
	assert.Equal(t, "/user/predict", body["redirect"])

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "diatrack_session" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
}

func TestLoginAdminRedirectsToDashboard(t *testing.T) {
	s, _, _ := newTestServer(t)
	createUser(t, s, "root", models.RoleAdmin)

	w := doJSON(s, "POST", "/api/login", map[string]string{
		"username": "root",
		"password": "secret123",
	}, nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "/admin/dashboard", body["redirect"])
}

func TestLoginInvalidPassword(t *testing.T) {
	s, _, _ := newTestServer(t)
	createUser(t, s, "alice", models.RoleUser)

	w := doJSON(s, "POST", "/api/login", map[string]string{
		"username": "alice",
		"password": "wrong-password",
	}, nil, nil)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Invalid credentials", body["message"])
}

func TestLoginUnknownUser(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := doJSON(s, "POST", "/api/login", map[string]string{
		"username": "ghost",
		"password": "secret123",
	}, nil, nil)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", decodeBody(t, w)["message"])
}

func TestRegisterThenLogin(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := doJSON(s, "POST", "/api/register", map[string]string{
		"username":  "bob",
		"email":     "bob@example.com",
		"password":  "secret123",
		"full_name": "Bob B",
	}, nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Registration successful. Please log in.", body["message"])
	assert.Equal(t, "/login", body["redirect"])

	loginAs(t, s, "bob")
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	s, _, _ := newTestServer(t)
	createUser(t, s, "alice", models.RoleUser)

	w := doJSON(s, "POST", "/api/register", map[string]string{
		"username":  "alice",
		"email":     "other@example.com",
		"password":  "secret123",
		"full_name": "Other",
	}, nil, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Username or email already registered", decodeBody(t, w)["message"])
}

func TestSessionWithoutCookieFailsClosed(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := doJSON(s, "GET", "/api/session", nil, nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["authenticated"])
	assert.Nil(t, body["user"])
}

func TestSessionWithGarbageCookieFailsClosed(t *testing.T) {
	s, _, _ := newTestServer(t)

	cookie := &http.Cookie{Name: "diatrack_session", Value: "not-a-token"}
	w := doJSON(s, "GET", "/api/session", nil, cookie, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["authenticated"])
}

func TestSessionAuthenticated(t *testing.T) {
	s, _, _ := newTestServer(t)
	createUser(t, s, "alice", models.RoleUser)
	cookie := loginAs(t, s, "alice")

	w := doJSON(s, "GET", "/api/session", nil, cookie, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["authenticated"])
	user, ok := body["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "user", user["role"])
}

func TestLogoutRevokesSessionAndClearsCookie(t *testing.T) {
	s, sessions, _ := newTestServer(t)
	createUser(t, s, "alice", models.RoleUser)
	cookie := loginAs(t, s, "alice")
	require.Equal(t, 1, sessions.count())

	w := doJSON(s, "POST", "/api/logout", nil, cookie, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["success"])
	assert.Equal(t, 0, sessions.count())

	var cleared *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "diatrack_session" {
			cleared = c
		}
	}
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	// The old cookie no longer authenticates
	w = doJSON(s, "GET", "/api/session", nil, cookie, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["authenticated"])
}

func TestLogoutWithoutSessionStillSucceeds(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := doJSON(s, "POST", "/api/logout", nil, nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["success"])
}

func TestProtectedRouteWithoutCredentials(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := doJSON(s, "GET", "/api/profile", nil, nil, nil)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Authentication required", decodeBody(t, w)["error"])
}

func TestAdminRouteRejectsRegularUser(t *testing.T) {
	s, _, _ := newTestServer(t)
	createUser(t, s, "alice", models.RoleUser)
	cookie := loginAs(t, s, "alice")

	w := doJSON(s, "GET", "/api/admin/users", nil, cookie, nil)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Admin access required", decodeBody(t, w)["error"])
}

func TestDeleteUserIdempotencyReplay(t *testing.T) {
	s, _, _ := newTestServer(t)
	createUser(t, s, "root", models.RoleAdmin)
	victim := createUser(t, s, "alice", models.RoleUser)
	cookie := loginAs(t, s, "root")

	key := ulid.Make().String()
	headers := map[string]string{"Idempotency-Key": key}

	w := doJSON(s, "DELETE", "/api/admin/users/"+victim.ID, nil, cookie, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["success"])

	// Retrying with the same key replays instead of 404ing on the
	// already-deleted row
	w = doJSON(s, "DELETE", "/api/admin/users/"+victim.ID, nil, cookie, headers)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["replayed"])
}

func TestDeleteUserIdempotencyConflict(t *testing.T) {
	s, _, _ := newTestServer(t)
	createUser(t, s, "root", models.RoleAdmin)
	first := createUser(t, s, "alice", models.RoleUser)
	second := createUser(t, s, "bob", models.RoleUser)
	cookie := loginAs(t, s, "root")

	key := ulid.Make().String()
	headers := map[string]string{"Idempotency-Key": key}

	w := doJSON(s, "DELETE", "/api/admin/users/"+first.ID, nil, cookie, headers)
	require.Equal(t, http.StatusOK, w.Code)

	// Same key against a different resource must not replay
	w = doJSON(s, "DELETE", "/api/admin/users/"+second.ID, nil, cookie, headers)
	require.Equal(t, http.StatusConflict, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Idempotency key was used for a different resource", body["message"])

	// The second user survived the conflicting request
	var count int64
	require.NoError(t, s.db.Model(&models.User{}).Where("id = ?", second.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDeleteUserRevokesTheirSessions(t *testing.T) {
	s, sessions, _ := newTestServer(t)
	createUser(t, s, "root", models.RoleAdmin)
	victim := createUser(t, s, "alice", models.RoleUser)

	victimCookie := loginAs(t, s, "alice")
	adminCookie := loginAs(t, s, "root")
	require.Equal(t, 2, sessions.count())

	w := doJSON(s, "DELETE", "/api/admin/users/"+victim.ID, nil, adminCookie, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, sessions.count())

	w = doJSON(s, "GET", "/api/session", nil, victimCookie, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["authenticated"])
}

func uploadRequest(t *testing.T, path, filename, content string, cookie *http.Cookie) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	return req
}

func TestUploadDocumentQueuesIngestion(t *testing.T) {
	s, _, queue := newTestServer(t)
	createUser(t, s, "root", models.RoleAdmin)
	cookie := loginAs(t, s, "root")

	req := uploadRequest(t, "/api/admin/chatbot/upload", "guide.txt", "fiber intake", cookie)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Len(t, queue.enqueued, 1)

	var doc models.Document
	require.NoError(t, s.db.First(&doc).Error)
	assert.Equal(t, "guide.txt", doc.Filename)
	assert.Equal(t, models.DocumentStatusUploaded, doc.Status)
}

func TestUploadDocumentEnqueueFailure(t *testing.T) {
	s, _, queue := newTestServer(t)
	createUser(t, s, "root", models.RoleAdmin)
	cookie := loginAs(t, s, "root")
	queue.failWith = errors.New("redis is down")

	req := uploadRequest(t, "/api/admin/chatbot/upload", "guide.txt", "fiber intake", cookie)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to queue ingestion", decodeBody(t, w)["message"])

	// The document must not be left looking queued
	var doc models.Document
	require.NoError(t, s.db.First(&doc).Error)
	assert.Equal(t, models.DocumentStatusFailed, doc.Status)
	assert.NotEmpty(t, doc.Error)

	// The spooled file is gone
	entries, err := os.ReadDir(s.config.UploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries, fmt.Sprintf("upload dir should be empty, found %d entries", len(entries)))
}

func TestHealthCheck(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := doJSON(s, "GET", "/health", nil, nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
}
