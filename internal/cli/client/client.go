package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SessionCookieName is the cookie the server issues on login.
const SessionCookieName = "diatrack_session"

// APIError represents an error response from the DiaTrack API.
// Message carries the server's "message" field when present, falling
// back to its "error" field.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed (status %d): %s", e.StatusCode, e.Body)
}

// Client represents an HTTP client for the DiaTrack API.
// The base URL is fixed at construction; all requests carry the
// session token as a cookie when one has been set.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a new API client for the given server origin
func New(origin string) *Client {
	return &Client{
		baseURL: strings.TrimRight(origin, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// SetToken sets the session token attached to subsequent requests
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the current session token, if any
func (c *Client) Token() string {
	return c.token
}

// BaseURL returns the origin the client was constructed with
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) newRequest(method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: c.token})
	}
	return req, nil
}

// do sends the request and decodes the response into out (when non-nil).
// Non-2xx responses are returned as *APIError with the server's message.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body)}
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Message != "" {
			apiErr.Message = parsed.Message
		} else if parsed.Error != "" {
			apiErr.Message = parsed.Error
		}
	}
	return apiErr
}

// User represents the authenticated user as reported by the server
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Role     string `json:"role"`
	Redirect string `json:"redirect"`
}

// Login authenticates the user. On success the session cookie issued
// by the server is captured and attached to subsequent requests.
func (c *Client) Login(username, password string) (*LoginResponse, error) {
	reqBody := map[string]string{
		"username": username,
		"password": password,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := c.newRequest("POST", "/api/login", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp.StatusCode, data)
	}

	var loginResp LoginResponse
	if err := json.Unmarshal(data, &loginResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == SessionCookieName {
			c.token = cookie.Value
		}
	}

	return &loginResp, nil
}

// Logout ends the session on the server and drops the local token
func (c *Client) Logout() error {
	req, err := c.newRequest("POST", "/api/logout", nil)
	if err != nil {
		return err
	}
	err = c.do(req, nil)
	c.token = ""
	return err
}

// SessionResponse represents the session introspection response
type SessionResponse struct {
	Success       bool  `json:"success"`
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user"`
}

// GetSession asks the server who we are. Unauthenticated sessions are
// a normal 200 response with authenticated=false, not an error.
func (c *Client) GetSession() (*SessionResponse, error) {
	req, err := c.newRequest("GET", "/api/session", nil)
	if err != nil {
		return nil, err
	}
	var sessionResp SessionResponse
	if err := c.do(req, &sessionResp); err != nil {
		return nil, err
	}
	return &sessionResp, nil
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Contact  string `json:"contact,omitempty"`
	Address  string `json:"address,omitempty"`
}

// Register creates a new patient account
func (c *Client) Register(reqBody RegisterRequest) error {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := c.newRequest("POST", "/api/register", bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Profile represents the user profile
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Contact  string `json:"contact"`
	Address  string `json:"address"`
	Role     string `json:"role"`
}

// GetProfile fetches the authenticated user's profile
func (c *Client) GetProfile() (*Profile, error) {
	req, err := c.newRequest("GET", "/api/profile", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Profile Profile `json:"profile"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp.Profile, nil
}

// PredictRequest represents the clinical features sent for scoring
type PredictRequest struct {
	Pregnancies   int     `json:"pregnancies"`
	Glucose       float64 `json:"glucose"`
	BloodPressure float64 `json:"blood_pressure"`
	SkinThickness float64 `json:"skin_thickness"`
	Insulin       float64 `json:"insulin"`
	BMI           float64 `json:"bmi"`
	Pedigree      float64 `json:"diabetes_pedigree_function"`
	Age           int     `json:"age"`
}

// Prediction represents a stored risk assessment
type Prediction struct {
	ID          string  `json:"id"`
	Probability float64 `json:"probability"`
	RiskLevel   string  `json:"risk_level"`
	ModelName   string  `json:"model_name"`
	CreatedAt   string  `json:"created_at"`
}

// Predict submits clinical features and returns the risk assessment
func (c *Client) Predict(reqBody PredictRequest) (*Prediction, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := c.newRequest("POST", "/api/predict", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	var resp struct {
		Prediction Prediction `json:"prediction"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp.Prediction, nil
}

// ListPredictions returns the user's prediction history
func (c *Client) ListPredictions() ([]Prediction, error) {
	req, err := c.newRequest("GET", "/api/user/all_predictions", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Predictions []Prediction `json:"predictions"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Predictions, nil
}

// Report represents a generated report
type Report struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	ReadyAt   string `json:"ready_at,omitempty"`
}

// GenerateReport requests a new report build
func (c *Client) GenerateReport() (*Report, error) {
	req, err := c.newRequest("POST", "/api/generate_report", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Report Report `json:"report"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp.Report, nil
}

// ListReports returns the user's reports
func (c *Client) ListReports() ([]Report, error) {
	req, err := c.newRequest("GET", "/api/user/reports", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Reports []Report `json:"reports"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Reports, nil
}

// DeleteReport deletes a report by ID
func (c *Client) DeleteReport(reportID string) error {
	req, err := c.newRequest("DELETE", fmt.Sprintf("/api/reports/%s", reportID), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// ChatResponse represents the chatbot answer
type ChatResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"`
}

// Ask sends a message to the health assistant
func (c *Client) Ask(message string) (*ChatResponse, error) {
	jsonData, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := c.newRequest("POST", "/api/chatbot", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	var chatResp ChatResponse
	if err := c.do(req, &chatResp); err != nil {
		return nil, err
	}
	return &chatResp, nil
}

// ListUsers returns all patient accounts (admin only)
func (c *Client) ListUsers() ([]User, error) {
	req, err := c.newRequest("GET", "/api/admin/users", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Users []User `json:"users"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// DeleteUser deletes a patient account (admin only). The idempotency
// key lets a retried delete replay safely instead of failing.
func (c *Client) DeleteUser(userID, idempotencyKey string) error {
	req, err := c.newRequest("DELETE", fmt.Sprintf("/api/admin/users/%s", userID), nil)
	if err != nil {
		return err
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	return c.do(req, nil)
}

// Stats represents aggregate platform statistics (admin only)
type Stats struct {
	TotalUsers       int64   `json:"total_users"`
	TotalPredictions int64   `json:"total_predictions"`
	TotalReports     int64   `json:"total_reports"`
	HighRiskCount    int64   `json:"high_risk_count"`
	AvgProbability   float64 `json:"avg_probability"`
}

// GetStats returns aggregate platform statistics (admin only)
func (c *Client) GetStats() (*Stats, error) {
	req, err := c.newRequest("GET", "/api/admin/stats", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Stats Stats `json:"stats"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp.Stats, nil
}

// Document represents a knowledge-base document (admin only)
type Document struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// ListDocuments returns the chatbot knowledge-base documents (admin only)
func (c *Client) ListDocuments() ([]Document, error) {
	req, err := c.newRequest("GET", "/api/admin/chatbot/documents", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Documents []Document `json:"documents"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

// UploadDocument uploads a file into the chatbot knowledge base (admin only)
func (c *Client) UploadDocument(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+"/api/admin/chatbot/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: c.token})
	}

	var resp struct {
		Document Document `json:"document"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp.Document, nil
}
