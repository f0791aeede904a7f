package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"funlight/internal/history"
	"funlight/internal/model"
	"funlight/internal/session"
	"funlight/internal/util"
)

const keepaliveInterval = 15 * time.Second

// Lister reads past jobs; *history.Store implements it.
type Lister interface {
	List(ctx context.Context, limit int) ([]history.Entry, error)
}

// Handler serves the API.
type Handler struct {
	sess          *session.Session
	history       Lister
	defaultOutDir string
	logger        *slog.Logger
}

// NewHandler creates a Handler. hist may be nil when history is disabled.
func NewHandler(sess *session.Session, hist Lister, defaultOutDir string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{sess: sess, history: hist, defaultOutDir: defaultOutDir, logger: logger}
}

// CreateJobRequest is the body of POST /api/v1/jobs. Trim markers accept
// seconds ("90") or clock values ("1:30").
type CreateJobRequest struct {
	URL     string `json:"url"`
	Format  string `json:"format"`
	Quality string `json:"quality,omitempty"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
	OutDir  string `json:"out_dir,omitempty"`
}

// FormatInfo describes one output kind for selectors.
type FormatInfo struct {
	Format         string   `json:"format"`
	Label          string   `json:"label"`
	Audio          bool     `json:"audio"`
	DefaultQuality string   `json:"default_quality,omitempty"`
	Qualities      []string `json:"qualities"`
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"busy":    h.sess.Busy(),
		"running": h.sess.Running(),
	})
}

// Formats handles GET /api/v1/formats.
func (h *Handler) Formats(w http.ResponseWriter, r *http.Request) {
	out := make([]FormatInfo, 0, len(model.Kinds))
	for _, k := range model.Kinds {
		qs := model.QualityOptions(k)
		if qs == nil {
			qs = []string{}
		}
		out = append(out, FormatInfo{
			Format:         string(k),
			Label:          k.Label(),
			Audio:          k.IsAudio(),
			DefaultQuality: model.DefaultQuality(k),
			Qualities:      qs,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

// CreateJob handles POST /api/v1/jobs.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var body CreateJobRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req, err := h.toRequest(body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.sess.Start(req)
	switch {
	case errors.Is(err, session.ErrBusy):
		h.writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Info("job accepted", "job_id", job.ID, "url", job.Request.URL, "kind", job.Request.Kind)
	w.Header().Set("Location", "/api/v1/jobs/"+job.ID)
	h.writeJSON(w, http.StatusAccepted, job)
}

func (h *Handler) toRequest(body CreateJobRequest) (model.JobRequest, error) {
	url, err := util.NormalizeURL(body.URL)
	if err != nil {
		return model.JobRequest{}, err
	}
	kind := body.Format
	if kind == "" {
		kind = string(model.KindMP3)
	}
	k, err := model.ParseKind(kind)
	if err != nil {
		return model.JobRequest{}, err
	}
	start, err := model.ParseSeconds(body.Start)
	if err != nil {
		return model.JobRequest{}, fmt.Errorf("start: %w", err)
	}
	end, err := model.ParseSeconds(body.End)
	if err != nil {
		return model.JobRequest{}, fmt.Errorf("end: %w", err)
	}
	outDir := body.OutDir
	if outDir == "" {
		outDir = h.defaultOutDir
	}
	return model.JobRequest{URL: url, Kind: k, Quality: body.Quality, Start: start, End: end, OutDir: outDir}, nil
}

// GetJob handles GET /api/v1/jobs/{jobID}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.sess.Get(chi.URLParam(r, "jobID"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, job)
}

// Events handles GET /api/v1/jobs/{jobID}/events as a server-sent event
// stream. The stream ends after the job's result event.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	events, cancel, err := h.sess.Subscribe(jobID)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Warn("failed to serialize event", "job_id", jobID, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

// History handles GET /api/v1/history?limit=N.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, http.StatusServiceUnavailable, "history is disabled")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	entries, err := h.history.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("list history", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
