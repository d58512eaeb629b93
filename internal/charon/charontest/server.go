// Package charontest provides an in-memory Charon for tests.
//
// The fake stores documents by path, checks the API token, refuses to create
// a document whose parent is missing and records every request it serves.
package charontest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Request is a request served by the fake
type Request struct {
	Method string
	Path   string
}

// keyFields lists the identifying fields of each doctype, outermost first
var keyFields = map[string][]string{
	"project": {"projectid"},
	"sample":  {"projectid", "sampleid"},
	"libprep": {"projectid", "sampleid", "libprepid"},
	"seqrun":  {"projectid", "sampleid", "libprepid", "seqrunid"},
}

// parentDoctype is the doctype holding a document's parent
var parentDoctype = map[string]string{
	"sample":  "project",
	"libprep": "sample",
	"seqrun":  "libprep",
}

type failure struct {
	status int
	body   string
}

// Server is a fake Charon
type Server struct {
	token string

	mu       sync.Mutex
	docs     map[string]map[string]any
	requests []Request
	failures map[string]failure
}

// NewServer creates a fake accepting token
func NewServer(token string) *Server {
	return &Server{
		token:    token,
		docs:     make(map[string]map[string]any),
		failures: make(map[string]failure),
	}
}

// Start serves the fake on a local listener for the duration of the test and
// returns its base URL
func (s *Server) Start(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(s.Handler())
	server.Config.SetKeepAlivesEnabled(false)
	t.Cleanup(server.Close)
	return server.URL
}

// Handler returns the HTTP handler of the fake
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.record, s.authenticate, s.inject)
		r.Get("/seqruns/{projectid}/{sampleid}", s.listSeqRuns)
		r.Get("/{doctype}/*", s.get)
		r.Put("/{doctype}/*", s.put)
		r.Post("/{doctype}", s.post)
		r.Post("/{doctype}/*", s.post)
	})
	return r
}

// Put stores a document directly, bypassing the API
func (s *Server) Put(path string, doc map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[strings.Trim(path, "/")] = doc
}

// Document returns a stored document by path, e.g. "sample/P1/P1_101"
func (s *Server) Document(path string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[strings.Trim(path, "/")]
	return doc, ok
}

// Len is the number of stored documents
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// Requests returns the requests served so far, in order
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Writes returns the POST and PUT requests served so far, in order
func (s *Server) Writes() []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			out = append(out, r)
		}
	}
	return out
}

// ResetRequests forgets the recorded requests
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// FailOn makes every request with method to path answer status with body
func (s *Server) FailOn(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, body: body}
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Charon-API-token") != s.token {
			writeError(w, "invalid API token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		f, ok := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if ok {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(f.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func docPath(r *http.Request) string {
	return chi.URLParam(r, "doctype") + "/" + strings.Trim(chi.URLParam(r, "*"), "/")
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.Document(docPath(r))
	if !ok {
		writeError(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, doc, http.StatusOK)
}

func (s *Server) put(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	doc, err := decode(r.Body)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[path]; !ok {
		writeError(w, "not found", http.StatusNotFound)
		return
	}
	s.docs[path] = doc
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) post(w http.ResponseWriter, r *http.Request) {
	doctype := chi.URLParam(r, "doctype")
	fields, ok := keyFields[doctype]
	if !ok {
		writeError(w, "unknown doctype "+doctype, http.StatusNotFound)
		return
	}

	doc, err := decode(r.Body)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	keys := make([]string, len(fields))
	for i, f := range fields {
		v, _ := doc[f].(string)
		if v == "" {
			writeError(w, "missing "+f, http.StatusBadRequest)
			return
		}
		keys[i] = v
	}

	parentKeys := strings.Trim(chi.URLParam(r, "*"), "/")
	if parentKeys != strings.Join(keys[:len(keys)-1], "/") {
		writeError(w, "document keys do not match URL", http.StatusBadRequest)
		return
	}

	path := doctype + "/" + strings.Join(keys, "/")

	s.mu.Lock()
	defer s.mu.Unlock()
	if parent, ok := parentDoctype[doctype]; ok {
		if _, exists := s.docs[parent+"/"+parentKeys]; !exists {
			writeError(w, "no such "+parent, http.StatusBadRequest)
			return
		}
	}
	if _, exists := s.docs[path]; exists {
		writeError(w, doctype+" already exists", http.StatusBadRequest)
		return
	}
	s.docs[path] = doc
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) listSeqRuns(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectid")
	sampleID := chi.URLParam(r, "sampleid")

	s.mu.Lock()
	if _, ok := s.docs["sample/"+projectID+"/"+sampleID]; !ok {
		s.mu.Unlock()
		writeError(w, "not found", http.StatusNotFound)
		return
	}
	prefix := "seqrun/" + projectID + "/" + sampleID + "/"
	runs := []map[string]any{}
	for path, doc := range s.docs {
		if strings.HasPrefix(path, prefix) {
			runs = append(runs, doc)
		}
	}
	s.mu.Unlock()

	writeJSON(w, map[string]any{"seqruns": runs}, http.StatusOK)
}

func decode(body io.Reader) (map[string]any, error) {
	var doc map[string]any
	if err := json.NewDecoder(body).Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, map[string]string{"error": message}, statusCode)
}
