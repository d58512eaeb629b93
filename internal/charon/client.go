// Package charon pushes tracking documents to the Charon REST service.
//
// Every document is addressed by its doctype and key chain:
//
//	GET/PUT /api/v1/{doctype}/{keys...}
//	POST    /api/v1/{doctype}/{parent keys...}
//
// A push reads the stored document first. A missing document is created, an
// existing one is merged with the local one and replaced only when the merge
// changed something.
package charon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/trace"

	"github.com/NationalGenomicsInfrastructure/acheron/internal/document"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/hierarchy"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/httpclient"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/otel"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/reconcile"
)

const (
	// TokenHeader carries the API token on every request
	TokenHeader = "X-Charon-API-token"

	apiPrefix = "/api/v1"
)

var (
	// ErrNotFound is returned by Fetch when Charon has no such document
	ErrNotFound = errors.New("document not found")

	// ErrMissingURL is returned when no Charon base URL is configured
	ErrMissingURL = errors.New("charon base URL is required")

	// ErrMissingToken is returned when no Charon API token is configured
	ErrMissingToken = errors.New("charon API token is required")
)

// RejectionError is returned when Charon answers with an unexpected status
type RejectionError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("charon rejected %s %s with status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Outcome is the result of pushing one document
type Outcome string

// Push outcomes
const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeFailed    Outcome = "failed"
)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the transport. The client must already send the
// API token header.
func WithHTTPClient(c httpclient.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithTimeout sets the per-request timeout of the default transport
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.timeout = d
	}
}

// WithTracer enables tracing of pushes
func WithTracer(tracer trace.Tracer) Option {
	return func(cl *Client) {
		cl.tracer = tracer
	}
}

// Client talks to one Charon instance
type Client struct {
	baseURL string
	http    httpclient.Client
	timeout time.Duration
	tracer  trace.Tracer
	logger  *slog.Logger
}

var _ hierarchy.RemoteState = (*Client)(nil)

// NewClient creates a Client for the Charon instance at baseURL
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrMissingURL
	}
	if token == "" {
		return nil, ErrMissingToken
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid charon base URL %q: %w", baseURL, err)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.NewDefaultClient(c.timeout, httpclient.WithHeader(TokenHeader, token))
	}
	return c, nil
}

// WithLogger returns a copy of the client logging to logger
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	cp := *c
	cp.logger = logger
	return &cp
}

// DocumentURL is the address of the stored document
func (c *Client) DocumentURL(doc document.Document) string {
	return c.url(string(doc.Doctype()), doc.Keys()...)
}

// CollectionURL is where the document is created
func (c *Client) CollectionURL(doc document.Document) string {
	keys := doc.Keys()
	return c.url(string(doc.Doctype()), keys[:len(keys)-1]...)
}

func (c *Client) url(resource string, keys ...string) string {
	var sb strings.Builder
	sb.WriteString(c.baseURL)
	sb.WriteString(apiPrefix)
	sb.WriteString("/")
	sb.WriteString(resource)
	for _, k := range keys {
		sb.WriteString("/")
		sb.WriteString(url.PathEscape(k))
	}
	return sb.String()
}

// Fetch returns the stored version of doc, or ErrNotFound
func (c *Client) Fetch(ctx context.Context, doc document.Document) (map[string]any, error) {
	return c.get(ctx, c.DocumentURL(doc))
}

func (c *Client) get(ctx context.Context, target string) (map[string]any, error) {
	resp, err := c.http.Do(ctx, httpclient.Request{Method: http.MethodGet, URL: target})
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, &RejectionError{Method: http.MethodGet, URL: target, StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	var stored map[string]any
	if err := json.Unmarshal(resp.Body, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", target, err)
	}
	return stored, nil
}

// Create posts doc as a new document
func (c *Client) Create(ctx context.Context, doc document.Document) error {
	body, err := json.Marshal(doc.Fields())
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", document.ID(doc), err)
	}
	return c.send(ctx, http.MethodPost, c.CollectionURL(doc), body, http.StatusCreated)
}

// Replace overwrites the stored document with fields
func (c *Client) Replace(ctx context.Context, doc document.Document, fields map[string]any) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", document.ID(doc), err)
	}
	return c.send(ctx, http.MethodPut, c.DocumentURL(doc), body, http.StatusNoContent)
}

func (c *Client) send(ctx context.Context, method, target string, body []byte, expected int) error {
	resp, err := c.http.Do(ctx, httpclient.Request{Method: method, URL: target, Body: body})
	if err != nil {
		return err
	}
	if resp.StatusCode != expected {
		return &RejectionError{Method: method, URL: target, StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	return nil
}

// Push creates or reconciles one document. Failures, including panics while
// encoding the document, are logged with the payload and reported as
// OutcomeFailed; they never propagate further.
func (c *Client) Push(ctx context.Context, doc document.Document) (outcome Outcome, err error) {
	id := document.ID(doc)
	ctx, span := otel.StartSpan(ctx, c.tracer, "charon.Push",
		trace.WithAttributes(
			otel.AttrDoctype.String(string(doc.Doctype())),
			otel.AttrDocumentID.String(id),
		))

	defer func() {
		if r := recover(); r != nil {
			outcome, err = OutcomeFailed, fmt.Errorf("panic while pushing %s: %v", id, r)
		}
		if err != nil {
			otel.RecordError(span, err)
			c.logger.ErrorContext(ctx, "Failed to push document",
				"doctype", doc.Doctype(),
				"id", id,
				"payload", payload(doc),
				"error", err)
		}
		span.SetAttributes(otel.AttrOutcome.String(string(outcome)))
		span.End()
	}()

	remote, err := c.Fetch(ctx, doc)
	switch {
	case errors.Is(err, ErrNotFound):
		if err := c.Create(ctx, doc); err != nil {
			return OutcomeFailed, err
		}
		c.logger.InfoContext(ctx, "Created document", "doctype", doc.Doctype(), "id", id)
		return OutcomeCreated, nil
	case err != nil:
		return OutcomeFailed, err
	}

	merged := reconcile.Merge(remote, doc)
	if reconcile.Equal(merged, remote) {
		c.logger.DebugContext(ctx, "Document unchanged", "doctype", doc.Doctype(), "id", id)
		return OutcomeUnchanged, nil
	}
	if err := c.Replace(ctx, doc, merged); err != nil {
		return OutcomeFailed, err
	}
	c.logger.InfoContext(ctx, "Updated document", "doctype", doc.Doctype(), "id", id)
	return OutcomeUpdated, nil
}

// payload renders the document for logs without panicking a second time
func payload(doc document.Document) (s string) {
	defer func() {
		if recover() != nil {
			s = "<unencodable>"
		}
	}()
	b, err := json.Marshal(doc.Fields())
	if err != nil {
		return "<unencodable>"
	}
	return string(b)
}

// RemoteSample implements hierarchy.RemoteState
func (c *Client) RemoteSample(ctx context.Context, projectID, sampleID string) (map[string]any, bool, error) {
	stored, err := c.get(ctx, c.url(string(document.DoctypeSample), projectID, sampleID))
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return stored, true, nil
}

// RemoteSeqRunIDs implements hierarchy.RemoteState. A sample Charon does not
// know has no sequencing runs.
func (c *Client) RemoteSeqRunIDs(ctx context.Context, projectID, sampleID string) (document.IDSet, error) {
	target := c.url("seqruns", projectID, sampleID)
	resp, err := c.http.Do(ctx, httpclient.Request{Method: http.MethodGet, URL: target})
	if err != nil {
		return nil, err
	}

	ids := document.NewIDSet()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ids, nil
	default:
		return nil, &RejectionError{Method: http.MethodGet, URL: target, StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	if !gjson.ValidBytes(resp.Body) {
		return nil, fmt.Errorf("invalid seqrun listing from %s", target)
	}
	gjson.GetBytes(resp.Body, "seqruns.#.seqrunid").ForEach(func(_, value gjson.Result) bool {
		ids.Add(value.String())
		return true
	})
	return ids, nil
}
