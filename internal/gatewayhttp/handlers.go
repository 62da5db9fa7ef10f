// Package gatewayhttp implements the client-facing HTTP surface of
// spec.md §6.2. Explicitly out of scope for correctness per spec.md
// §1 ("the HTTP façade exposed to end users"); implemented on
// net/http for the same reason as internal/shardserver — the route
// set is small and fixed.
package gatewayhttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/cryptoshard/internal/domain"
	apperr "github.com/zzenonn/cryptoshard/internal/errors"
	"github.com/zzenonn/cryptoshard/internal/orchestrator"
)

// Orchestrator is the subset of *orchestrator.Orchestrator the gateway
// needs, declared locally so handlers are testable against a fake.
type Orchestrator interface {
	Upload(ctx context.Context, filename string, plaintext []byte) (domain.Manifest, error)
	Download(ctx context.Context, filename string) ([]byte, error)
	List(ctx context.Context) ([]domain.PublicSummary, error)
	Health(ctx context.Context) orchestrator.HealthReport
}

// Handlers wires the gateway's HTTP routes to an Orchestrator.
type Handlers struct {
	orch Orchestrator
}

// New builds a Handlers bound to orch and registers routes on mux.
func New(mux *http.ServeMux, orch Orchestrator) *Handlers {
	h := &Handlers{orch: orch}
	mux.HandleFunc("/upload", h.handleUpload)
	mux.HandleFunc("/files", h.handleFiles)
	mux.HandleFunc("/download/", h.handleDownload)
	mux.HandleFunc("/metadata/", h.handleMetadata)
	mux.HandleFunc("/health", h.handleHealth)
	return h
}

// uploadResponse is spec.md §6.2's success shape for POST /upload —
// the per-file key is never included.
type uploadResponse struct {
	Filename           string `json:"filename"`
	ShardsDistributed   int    `json:"shards_distributed"`
	RecoveryThreshold   int    `json:"recovery_threshold"`
}

func (h *Handlers) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing multipart field \"file\"")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload body")
		return
	}

	manifest, err := h.orch.Upload(r.Context(), header.Filename, data)
	if err != nil {
		h.writeOrchestratorError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Filename:          manifest.Filename,
		ShardsDistributed: manifest.MTotal,
		RecoveryThreshold: manifest.KRequired,
	})
}

func (h *Handlers) handleFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	summaries, err := h.orch.List(r.Context())
	if err != nil {
		log.Errorf("gatewayhttp: listing files: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list files")
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handlers) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	filename := strings.TrimPrefix(r.URL.Path, "/download/")
	if filename == "" {
		writeError(w, http.StatusBadRequest, "missing filename")
		return
	}

	plaintext, err := h.orch.Download(r.Context(), filename)
	if err != nil {
		h.writeOrchestratorError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	w.Write(plaintext)
}

func (h *Handlers) handleMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	filename := strings.TrimPrefix(r.URL.Path, "/metadata/")
	if filename == "" {
		writeError(w, http.StatusBadRequest, "missing filename")
		return
	}

	summaries, err := h.orch.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load metadata")
		return
	}
	for _, s := range summaries {
		if s.Filename == filename {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeError(w, http.StatusNotFound, "no manifest for this filename")
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.orch.Health(r.Context()))
}

// writeOrchestratorError maps the flat error taxonomy of spec.md §7 to
// HTTP status codes — a mapping spec.md explicitly notes is "not part
// of the core spec", so it lives only here.
func (h *Handlers) writeOrchestratorError(w http.ResponseWriter, err error) {
	var tampered *apperr.Tampered
	var uploadFailed *apperr.UploadFailed
	var persistFailed *apperr.ManifestPersistFailed
	var unavailable *apperr.Unavailable

	switch {
	case errors.Is(err, apperr.ErrUnknownFile):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrEmptyFile):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrNodeUnavailable), errors.As(err, &unavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &uploadFailed), errors.As(err, &persistFailed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &tampered):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, apperr.ErrVaultSchema):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Errorf("gatewayhttp: unmapped orchestrator error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("gatewayhttp: encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
