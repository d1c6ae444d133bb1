// Package apitest runs an in-memory booking API for handler tests.
package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/wolfman30/store-dashboard/internal/apiclient"
	"github.com/wolfman30/store-dashboard/pkg/logging"
)

// Prefix is the base path the fake API is served under.
const Prefix = "/api"

// Request is one call received by the fake.
type Request struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   []byte
}

type failure struct {
	code    int
	message string
}

// Server answers with the {code, message, data} envelope. Collections hold
// JSON objects keyed by id; documents are single values such as a store's
// settings or a canned login response.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	collections map[string]*collection
	docs        map[string]json.RawMessage
	failures    map[string]failure
	requests    []Request
	nextID      int
}

type collection struct {
	order []string
	items map[string]map[string]any
}

// New starts a server that is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		collections: map[string]*collection{},
		docs:        map[string]json.RawMessage{},
		failures:    map[string]failure{},
		nextID:      100,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Client returns an API client pointed at the fake.
func (s *Server) Client() *apiclient.Client {
	return apiclient.New(s.URL+Prefix, apiclient.WithLogger(logging.Discard()))
}

func clean(p string) string {
	p = "/" + strings.Trim(p, "/")
	return path.Clean(p)
}

func (s *Server) coll(p string) *collection {
	c, ok := s.collections[p]
	if !ok {
		c = &collection{items: map[string]map[string]any{}}
		s.collections[p] = c
	}
	return c
}

// Seed adds item to the collection at p under id.
func (s *Server) Seed(p, id string, item any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj := toObject(item)
	obj["id"] = id
	c := s.coll(clean(p))
	if _, exists := c.items[id]; !exists {
		c.order = append(c.order, id)
	}
	c.items[id] = obj
}

// SetDoc stores a single document served on GET p and returned by POST p.
func (s *Server) SetDoc(p string, doc any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, _ := json.Marshal(doc)
	s.docs[clean(p)] = raw
}

// Doc returns the document last stored at p.
func (s *Server) Doc(p string) json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[clean(p)]
}

// Fail makes method p answer with an envelope carrying code and message.
func (s *Server) Fail(method, p string, code int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+clean(p)] = failure{code: code, message: message}
}

// Has reports whether the collection at p holds id.
func (s *Server) Has(p, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[clean(p)]
	if !ok {
		return false
	}
	_, ok = c.items[id]
	return ok
}

// Requests returns every call received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many calls matched method and p.
func (s *Server) Count(method, p string) int {
	p = clean(p)
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && clean(r.Path) == p {
			n++
		}
	}
	return n
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	p := strings.TrimPrefix(r.URL.Path, Prefix)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   p,
		Query:  r.URL.RawQuery,
		Auth:   r.Header.Get("Authorization"),
		Body:   body,
	})

	p = clean(p)
	if f, ok := s.failures[r.Method+" "+p]; ok {
		writeEnvelope(w, f.code, f.message, nil)
		return
	}

	parent, id := path.Split(p)
	parent = clean(parent)
	member := s.member(parent, id)

	switch r.Method {
	case http.MethodGet:
		switch {
		case s.collections[p] != nil:
			c := s.collections[p]
			items := make([]map[string]any, 0, len(c.order))
			for _, itemID := range c.order {
				items = append(items, c.items[itemID])
			}
			writeEnvelope(w, http.StatusOK, "ok", items)
		case member != nil:
			writeEnvelope(w, http.StatusOK, "ok", member)
		case s.docs[p] != nil:
			writeEnvelope(w, http.StatusOK, "ok", s.docs[p])
		case s.collections[parent] != nil:
			writeEnvelope(w, http.StatusNotFound, "not found", nil)
		default:
			writeEnvelope(w, http.StatusOK, "ok", nil)
		}
	case http.MethodPost:
		if doc, ok := s.docs[p]; ok {
			writeEnvelope(w, http.StatusOK, "ok", doc)
			return
		}
		obj := toObject(json.RawMessage(body))
		s.nextID++
		newID := strconv.Itoa(s.nextID)
		obj["id"] = newID
		c := s.coll(p)
		c.order = append(c.order, newID)
		c.items[newID] = obj
		writeEnvelope(w, http.StatusOK, "created", obj)
	case http.MethodPut:
		if member != nil {
			obj := toObject(json.RawMessage(body))
			obj["id"] = id
			s.collections[parent].items[id] = obj
			writeEnvelope(w, http.StatusOK, "updated", obj)
			return
		}
		s.docs[p] = append(json.RawMessage(nil), body...)
		writeEnvelope(w, http.StatusOK, "updated", json.RawMessage(body))
	case http.MethodDelete:
		if member == nil {
			writeEnvelope(w, http.StatusNotFound, "not found", nil)
			return
		}
		c := s.collections[parent]
		delete(c.items, id)
		for i, itemID := range c.order {
			if itemID == id {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
		writeEnvelope(w, http.StatusOK, "deleted", nil)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) member(parent, id string) map[string]any {
	c, ok := s.collections[parent]
	if !ok {
		return nil
	}
	return c.items[id]
}

func toObject(v any) map[string]any {
	raw, ok := v.(json.RawMessage)
	if !ok {
		raw, _ = json.Marshal(v)
	}
	obj := map[string]any{}
	_ = json.Unmarshal(raw, &obj)
	return obj
}

func writeEnvelope(w http.ResponseWriter, code int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"code": code, "message": message, "data": data})
}
