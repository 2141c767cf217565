// Package apiclient is an HTTP implementation of engine.TestService
// against the student REST surface.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/proctorly/backend/internal/engine"
)

// Client talks to the attempt service with a student bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a Client for the given base URL (e.g. "http://localhost:8080")
// and student JWT.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Login authenticates a student and returns a Client bound to the issued
// token.
func Login(ctx context.Context, baseURL, email, password string) (*Client, error) {
	c := &Client{baseURL: baseURL, http: &http.Client{Timeout: 15 * time.Second}}

	var data struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/student/login", map[string]string{
		"email":    email,
		"password": password,
	}, &data)
	if err != nil {
		return nil, err
	}

	c.token = data.Token
	return c, nil
}

// GetCurrentAttempt returns the student's open attempt for a test, or nil
// if none exists.
func (c *Client) GetCurrentAttempt(ctx context.Context, testID uuid.UUID) (*engine.AttemptRef, error) {
	var data struct {
		Attempt *struct {
			ID uuid.UUID `json:"id"`
		} `json:"attempt"`
	}
	path := fmt.Sprintf("/api/v1/student/tests/%s/attempt", testID)
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	if data.Attempt == nil {
		return nil, nil
	}
	return &engine.AttemptRef{AttemptID: data.Attempt.ID}, nil
}

// StartAttempt opens (or idempotently resumes) the student's attempt.
func (c *Client) StartAttempt(ctx context.Context, testID uuid.UUID) (*engine.AttemptRef, error) {
	var data struct {
		Attempt struct {
			ID uuid.UUID `json:"id"`
		} `json:"attempt"`
	}
	path := fmt.Sprintf("/api/v1/student/tests/%s/attempt", testID)
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &data); err != nil {
		return nil, err
	}
	return &engine.AttemptRef{AttemptID: data.Attempt.ID}, nil
}

// GetQuestions returns the attempt's content payload.
func (c *Client) GetQuestions(ctx context.Context, attemptID uuid.UUID) (*engine.AttemptContent, error) {
	var content engine.AttemptContent
	path := fmt.Sprintf("/api/v1/student/attempts/%s/content", attemptID)
	if err := c.do(ctx, http.MethodGet, path, nil, &content); err != nil {
		return nil, err
	}
	return &content, nil
}

// ListProgrammingLanguages returns the language catalog.
func (c *Client) ListProgrammingLanguages(ctx context.Context) ([]engine.Language, error) {
	var data struct {
		Languages []engine.Language `json:"languages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/student/languages", nil, &data); err != nil {
		return nil, err
	}
	return data.Languages, nil
}

// SubmitCoding records one problem's code and returns the pass/fail signal.
func (c *Client) SubmitCoding(ctx context.Context, attemptID uuid.UUID, sol engine.CodingSolution) (bool, error) {
	var data struct {
		Passed bool `json:"passed"`
	}
	path := fmt.Sprintf("/api/v1/student/attempts/%s/solutions", attemptID)
	if err := c.do(ctx, http.MethodPost, path, sol, &data); err != nil {
		return false, err
	}
	return data.Passed, nil
}

// Submit finalizes the attempt with its full payload.
func (c *Client) Submit(ctx context.Context, attemptID uuid.UUID, payload engine.SubmitPayload) error {
	body := struct {
		Answers   map[string][]string     `json:"answers,omitempty"`
		Solutions []engine.CodingSolution `json:"solutions,omitempty"`
	}{
		Solutions: payload.Solutions,
	}
	if len(payload.Answers) > 0 {
		body.Answers = make(map[string][]string, len(payload.Answers))
		for q, opts := range payload.Answers {
			ids := make([]string, 0, len(opts))
			for _, o := range opts {
				ids = append(ids, o.String())
			}
			body.Answers[q.String()] = ids
		}
	}

	path := fmt.Sprintf("/api/v1/student/attempts/%s/submit", attemptID)
	return c.do(ctx, http.MethodPost, path, body, nil)
}

// RecordMalpractice appends one violation record.
func (c *Client) RecordMalpractice(ctx context.Context, attemptID uuid.UUID, vtype engine.ViolationType) error {
	path := fmt.Sprintf("/api/v1/student/attempts/%s/malpractice", attemptID)
	return c.do(ctx, http.MethodPost, path, map[string]string{"type": string(vtype)}, nil)
}

// do performs one request, unwraps the response envelope, and decodes its
// data into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: decode response (status %d): %w", method, path, resp.StatusCode, err)
	}
	if env.Error != nil {
		return fmt.Errorf("%s %s: %w", method, path, env.Error)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return nil
}
