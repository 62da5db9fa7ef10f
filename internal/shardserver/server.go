// Package shardserver implements the storage node's HTTP surface:
// spec.md §6.1's content-addressed blob store. Explicitly out of
// scope for correctness per spec.md §1 ("a trivial content-addressed
// blob store over PUT/GET/DELETE") — implemented on net/http's
// ServeMux rather than any third-party router, since four static
// unauthenticated routes don't exercise anything a router earns its
// keep on.
package shardserver

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	log "github.com/sirupsen/logrus"
)

// validShardID matches the shard storage identifier shape from
// spec.md §3 ("{filename}_shard_{i}") loosely enough to allow any
// filename, but rejects path traversal.
var validShardID = regexp.MustCompile(`^[^/\\]+$`)

// Server is a filesystem-backed shard blob store. It never interprets
// shard contents (spec.md §6.1, "Nodes ... MUST NOT interpret shard
// contents").
type Server struct {
	dir string
	mux *http.ServeMux
}

// New builds a Server that stores shards under dir (spec.md §6.3:
// "storage/{node_id}/{filename}_shard_{i}" — dir is the per-node
// "storage/{node_id}" root).
func New(dir string) (*Server, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &Server{dir: dir, mux: http.NewServeMux()}
	s.mux.HandleFunc("/store/", s.handleStore)
	s.mux.HandleFunc("/retrieve/", s.handleRetrieve)
	s.mux.HandleFunc("/delete/", s.handleDelete)
	s.mux.HandleFunc("/health", s.handleHealth)
	return s, nil
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) shardPath(id string) (string, bool) {
	if !validShardID.MatchString(id) {
		return "", false
	}
	return filepath.Join(s.dir, id), true
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Path[len("/store/"):]
	path, ok := s.shardPath(id)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Warnf("shardserver: reading body for %s: %v", id, err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		log.Errorf("shardserver: writing shard %s: %v", id, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	log.Debugf("shardserver: stored shard %s (%d bytes)", id, len(body))
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Path[len("/retrieve/"):]
	path, ok := s.shardPath(id)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		log.Errorf("shardserver: reading shard %s: %v", id, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Path[len("/delete/"):]
	path, ok := s.shardPath(id)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		log.Errorf("shardserver: deleting shard %s: %v", id, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
