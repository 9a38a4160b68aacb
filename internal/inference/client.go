// Package inference wraps the external diabetes risk model service.
// The model itself is opaque to this repository; only the request
// plumbing lives here.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Features is the clinical feature vector forwarded to the model service
type Features struct {
	Pregnancies   int     `json:"pregnancies"`
	Glucose       float64 `json:"glucose"`
	BloodPressure float64 `json:"blood_pressure"`
	SkinThickness float64 `json:"skin_thickness"`
	Insulin       float64 `json:"insulin"`
	BMI           float64 `json:"bmi"`
	PedigreeFunc  float64 `json:"diabetes_pedigree_function"`
	Age           int     `json:"age"`
}

// Result is the model service's scoring response
type Result struct {
	Probability float64 `json:"probability"`
	ModelName   string  `json:"model_name"`
}

// Client talks to the inference service
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates an inference client for the given base URL
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// Predict submits a feature vector and returns the model's probability
func (c *Client) Predict(ctx context.Context, features Features) (*Result, error) {
	jsonData, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/predict", c.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("inference failed (status %d): %s", resp.StatusCode, string(body))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if result.Probability < 0 || result.Probability > 1 {
		return nil, fmt.Errorf("inference returned probability out of range: %v", result.Probability)
	}

	return &result, nil
}

// Healthy reports whether the inference service is reachable
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
