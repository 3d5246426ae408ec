package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// TokenSource supplies the bearer token for authenticated requests.
// Token issuance itself belongs to the auth collaborator.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource is a TokenSource backed by a fixed token.
type StaticTokenSource string

// Token returns the fixed token.
func (s StaticTokenSource) Token(_ context.Context) (string, error) {
	return string(s), nil
}

// APIError is returned for non-2xx responses and malformed response
// bodies. Callers unwrap it with errors.As to branch on Status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d message=%s", e.Status, e.Message)
}

// Options controls per-request behavior.
type Options struct {
	RequiresAuth bool
	Headers      map[string]string
}

// FilePart is a single file in a multipart payload.
type FilePart struct {
	Field    string
	Filename string
	Content  []byte
}

// Client wraps outbound requests to the commerce backend with
// auth-header injection, a fixed timeout and envelope decoding.
// Requests are never retried; callers decide.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *zap.Logger
}

// New creates a backend client. baseURL must not end with a slash.
func New(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		logger:  util.GetLogger(),
	}
}

// envelope is the `{ "data": ... }` wrapper every backend endpoint uses.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Get issues a GET and decodes the data envelope into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}, opts Options) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out, opts)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}, opts Options) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out, opts)
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out interface{}, opts Options) error {
	return c.doJSON(ctx, http.MethodPatch, path, body, out, opts)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out interface{}, opts Options) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, out, opts)
}

// PostForm issues a POST with a multipart/form-data body, used by the
// image-bearing dashboard payloads (product create/edit).
func (c *Client) PostForm(ctx context.Context, path string, fields map[string]string, files []FilePart, out interface{}, opts Options) error {
	return c.doForm(ctx, http.MethodPost, path, fields, files, out, opts)
}

// PatchForm issues a PATCH with a multipart/form-data body.
func (c *Client) PatchForm(ctx context.Context, path string, fields map[string]string, files []FilePart, out interface{}, opts Options) error {
	return c.doForm(ctx, http.MethodPatch, path, fields, files, out, opts)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}, opts Options) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	return c.do(ctx, method, path, reader, "application/json", out, opts)
}

func (c *Client) doForm(ctx context.Context, method, path string, fields map[string]string, files []FilePart, out interface{}, opts Options) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("failed to write form field %s: %w", k, err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			return fmt.Errorf("failed to create form file %s: %w", f.Field, err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return fmt.Errorf("failed to write form file %s: %w", f.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}
	return c.do(ctx, method, path, &buf, w.FormDataContentType(), out, opts)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}, opts Options) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	if opts.RequiresAuth {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve access token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		util.BackendRequestsTotal.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	util.BackendRequestLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	util.BackendRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := extractMessage(raw)
		c.logger.Warn("Backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{Status: resp.StatusCode, Message: "malformed response body"}
	}
	data := env.Data
	if data == nil {
		// Some endpoints return the payload without the envelope.
		data = raw
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Status: resp.StatusCode, Message: "malformed response body"}
	}
	return nil
}

func extractMessage(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		return env.Message
	}
	if len(raw) == 0 {
		return "request failed"
	}
	msg := string(raw)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
