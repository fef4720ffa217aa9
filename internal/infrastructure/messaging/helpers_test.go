package messaging_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// countingServer fails the first failFirst requests with 502.
type countingServer struct {
	mu        sync.Mutex
	hits      int
	failFirst int
	srv       *httptest.Server
}

func newCountingServer(t *testing.T, failFirst int) *countingServer {
	t.Helper()
	cs := &countingServer{failFirst: failFirst}
	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.mu.Lock()
		cs.hits++
		fail := cs.hits <= cs.failFirst
		cs.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(cs.srv.Close)
	return cs
}

func (cs *countingServer) URL() string { return cs.srv.URL }

func (cs *countingServer) Hits() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.hits
}

func contains(s, sub string) bool { return strings.Contains(s, sub) }
