// Package collab provides the HTTP client of the remote document service.
package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/capitalize-ai/docchat/internal/model"
	"github.com/capitalize-ai/docchat/pkg/metrics"
	"github.com/capitalize-ai/docchat/pkg/tracing"
)

// UploadField is the multipart field name the service expects the document under.
const UploadField = "pdf"

// maxErrorBody bounds how much of an error response is kept for the error message.
const maxErrorBody = 512

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Client talks to the document service.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithToken attaches a bearer token to every call.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-call timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: d}
	}
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("document service URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid document service URL: %w", err)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		tracer:     tracing.Tracer("docchat/collab"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithBearer returns a copy of the client that authenticates with token.
func (c *Client) WithBearer(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// ListDocuments returns the directory of uploaded documents.
func (c *Client) ListDocuments(ctx context.Context) ([]model.DocumentDescriptor, error) {
	var docs []model.DocumentDescriptor
	err := c.call(ctx, "list_documents", http.MethodGet, "/chat/history", nil, "", &docs)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// ListThreads returns the persisted threads of one document.
func (c *Client) ListThreads(ctx context.Context, documentID string) ([]model.PersistedThread, error) {
	var threads []model.PersistedThread
	path := "/chat/history/" + url.PathEscape(documentID)
	err := c.call(ctx, "list_threads", http.MethodGet, path, nil, "", &threads)
	if err != nil {
		return nil, err
	}
	return threads, nil
}

// Upload sends a document as multipart form data.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (*model.UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(UploadField, filename)
	if err != nil {
		return nil, fmt.Errorf("upload: failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("upload: failed to read document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("upload: failed to finish form: %w", err)
	}

	var resp model.UploadResponse
	if err := c.call(ctx, "upload", http.MethodPost, "/pdf/upload", &buf, mw.FormDataContentType(), &resp); err != nil {
		return nil, err
	}
	if resp.DocumentID == "" {
		return nil, errors.New("upload: response carried no document id")
	}
	return &resp, nil
}

// Ask sends a question about a document.
func (c *Client) Ask(ctx context.Context, req *model.AskRequest) (*model.AskResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("ask: failed to marshal request: %w", err)
	}

	var resp model.AskResponse
	if err := c.call(ctx, "ask", http.MethodPost, "/chat/ask", bytes.NewReader(body), "application/json", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) call(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "collab."+op, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	))
	start := time.Now()
	defer func() {
		metrics.RecordCollaboratorCall(op, err, time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Operation: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}
