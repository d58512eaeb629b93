package httpclient_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NationalGenomicsInfrastructure/acheron/internal/httpclient"
)

const projectPath = "/api/v1/project/P1001"

// newTestServer disables keep-alives so closing one server does not
// disturb parallel tests sharing the default transport.
func newTestServer(handler http.Handler) *httptest.Server {
	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	return server
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestDefaultClient_Do_StatusPassthrough(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		request      httpclient.Request
		status       int
		responseBody string
	}{
		{
			name:         "GET found",
			request:      httpclient.Request{Method: http.MethodGet},
			status:       http.StatusOK,
			responseBody: `{"projectid":"P1001","status":"OPEN"}`,
		},
		{
			name:         "GET not found is a response, not an error",
			request:      httpclient.Request{Method: http.MethodGet},
			status:       http.StatusNotFound,
			responseBody: `{"message":"no such project"}`,
		},
		{
			name:    "POST created",
			request: httpclient.Request{Method: http.MethodPost, Body: []byte(`{"projectid":"P1001"}`)},
			status:  http.StatusCreated,
		},
		{
			name:         "PUT rejected",
			request:      httpclient.Request{Method: http.MethodPut, Body: []byte(`{"status":"BOGUS"}`)},
			status:       http.StatusBadRequest,
			responseBody: "invalid status value",
		},
		{
			name:    "PUT no content",
			request: httpclient.Request{Method: http.MethodPut, Body: []byte(`{}`)},
			status:  http.StatusNoContent,
		},
		{
			name:         "server error",
			request:      httpclient.Request{Method: http.MethodGet},
			status:       http.StatusInternalServerError,
			responseBody: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var (
				gotMethod string
				gotPath   string
				gotBody   []byte
			)
			server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				gotPath = r.URL.Path
				gotBody, _ = io.ReadAll(r.Body)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.responseBody))
			}))
			defer server.Close()

			req := tt.request
			req.URL = server.URL + projectPath

			resp, err := httpclient.NewDefaultClient(5*time.Second).Do(context.Background(), req)
			require.NoError(t, err)

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.responseBody, string(resp.Body))
			assert.Equal(t, tt.request.Method, gotMethod)
			assert.Equal(t, projectPath, gotPath)
			assert.Equal(t, string(tt.request.Body), string(gotBody))
		})
	}
}

func TestDefaultClient_Do_Headers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		request     httpclient.Request
		contentType string
	}{
		{
			name:    "GET has no content type",
			request: httpclient.Request{Method: http.MethodGet},
		},
		{
			name:        "POST with body is JSON",
			request:     httpclient.Request{Method: http.MethodPost, Body: []byte(`{}`)},
			contentType: "application/json",
		},
		{
			name:        "PUT with empty body is still JSON",
			request:     httpclient.Request{Method: http.MethodPut, Body: []byte{}},
			contentType: "application/json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got http.Header
			server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Clone()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := httpclient.NewDefaultClient(0, httpclient.WithHeader("X-Charon-API-token", "secret"))
			req := tt.request
			req.URL = server.URL + projectPath

			_, err := client.Do(context.Background(), req)
			require.NoError(t, err)

			assert.Equal(t, httpclient.UserAgent, got.Get("User-Agent"))
			assert.Equal(t, "application/json", got.Get("Accept"))
			assert.Equal(t, "secret", got.Get("X-Charon-API-token"))
			assert.Equal(t, tt.contentType, got.Get("Content-Type"))
		})
	}
}

func TestDefaultClient_Do_SizeLimit(t *testing.T) {
	t.Parallel()

	writeMB := func(w http.ResponseWriter, n int) {
		chunk := make([]byte, 1024*1024)
		for range n {
			_, _ = w.Write(chunk)
		}
	}
	limitMB := httpclient.MaxResponseSize / (1024 * 1024)

	tests := []struct {
		name          string
		handler       http.HandlerFunc
		wantLen       int
		errorContains []string
	}{
		{
			name: "exactly at the limit",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
				writeMB(w, limitMB)
			},
			wantLen: httpclient.MaxResponseSize,
		},
		{
			name: "declared Content-Length over the limit",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Length", fmt.Sprintf("%d", httpclient.MaxResponseSize+1024))
				w.WriteHeader(http.StatusOK)
			},
			errorContains: []string{"exceeds maximum allowed size", "16.00 MB"},
		},
		{
			name: "streamed content over the limit",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
				writeMB(w, limitMB+1)
			},
			errorContains: []string{"exceeds maximum allowed size"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := newTestServer(tt.handler)
			defer server.Close()

			resp, err := httpclient.NewDefaultClient(30*time.Second).Do(context.Background(),
				httpclient.Request{Method: http.MethodGet, URL: server.URL + projectPath})

			if len(tt.errorContains) > 0 {
				require.Error(t, err)
				for _, s := range tt.errorContains {
					assert.Contains(t, err.Error(), s)
				}
				return
			}
			require.NoError(t, err)
			assert.Len(t, resp.Body, tt.wantLen)
		})
	}
}

func TestDefaultClient_Do_Errors(t *testing.T) {
	t.Parallel()

	failing := httpclient.WithTransport(roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, assert.AnError
	}))

	tests := []struct {
		name          string
		client        httpclient.Client
		url           string
		errorContains string
		wrapsAnError  bool
	}{
		{
			name:          "malformed URL",
			client:        httpclient.NewDefaultClient(0),
			url:           "://charon",
			errorContains: "failed to create request",
		},
		{
			name:          "transport failure",
			client:        httpclient.NewDefaultClient(0, failing),
			url:           "http://charon.invalid" + projectPath,
			errorContains: "failed to execute request",
			wrapsAnError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := tt.client.Do(context.Background(), httpclient.Request{Method: http.MethodGet, URL: tt.url})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
			if tt.wrapsAnError {
				assert.ErrorIs(t, err, assert.AnError)
			}
		})
	}
}

func TestDefaultClient_Do_ContextCancelled(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := httpclient.NewDefaultClient(30*time.Second).Do(ctx,
		httpclient.Request{Method: http.MethodGet, URL: server.URL + projectPath})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
