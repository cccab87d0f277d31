package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/vainnor/flightlog/codec"
	"github.com/vainnor/flightlog/session"
	"github.com/vainnor/flightlog/summary"
)

const (
	uploadField     = "file"
	uploadSuffix    = ".bin"
	defaultLimit    = 100
	maxLimit        = 10000
	multipartMemory = 8 << 20
)

type handlers struct {
	collector      Collector
	sessions       Sessions
	analyst        Analyst
	archive        UploadLister
	keys           KeyStore
	master         KeySet
	maxUploadBytes int64
	logger         *slog.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// uploadSource lets the collector reopen the spooled multipart file.
type uploadSource struct {
	name string
	file multipart.File
}

func (s uploadSource) Name() string { return s.name }

func (s uploadSource) Open() (io.ReadCloser, error) {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.NopCloser(s.file), nil
}

func (h *handlers) upload(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Missing %q field", uploadField))
		return
	}
	defer file.Close()

	if !strings.HasSuffix(header.Filename, uploadSuffix) {
		writeError(w, http.StatusBadRequest, "Only .bin files are supported")
		return
	}

	sess, sum, err := h.collector.Ingest(r.Context(), header.Filename, uploadSource{name: header.Filename, file: file})
	if err != nil {
		// A log that cannot be decoded is reported in the body, not the status.
		writeJSON(w, http.StatusOK, UploadResponse{
			Filename: header.Filename,
			Summary:  UploadSummary{Error: fmt.Sprintf("Error processing file: %v", err)},
		})
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Filename: header.Filename,
		Summary:  UploadSummary{Summary: &sum, SessionID: sess.ID},
	})
}

func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sessionID, query := req.normalize()
	if sessionID == "" || query == "" {
		writeError(w, http.StatusBadRequest, "session_id and user_query are required")
		return
	}

	sess, err := h.sessions.Get(sessionID)
	if err != nil {
		writeJSON(w, http.StatusOK, ErrorResponse{Error: "No data found for this session"})
		return
	}

	writeJSON(w, http.StatusOK, h.analyst.Answer(r.Context(), sess.ID, sess.Messages, query))
}

// lookup writes a 404 and returns nil when the session is unknown.
func (h *handlers) lookup(w http.ResponseWriter, r *http.Request) *session.Session {
	id := mux.Vars(r)["id"]
	sess, err := h.sessions.Get(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrNoID) {
			writeError(w, http.StatusNotFound, "No data found for this session")
			return nil
		}
		h.logger.Error("session lookup failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return nil
	}
	return sess
}

func (h *handlers) sessionSummary(w http.ResponseWriter, r *http.Request) {
	sess := h.lookup(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, SessionSummaryResponse{
		SessionID: sess.ID,
		Filename:  sess.Filename,
		Digest:    sess.Digest,
		CreatedAt: sess.CreatedAt,
		Summary:   summary.WithSkipped(summary.Summarize(sess.Messages), sess.Skipped),
	})
}

func (h *handlers) sessionTypes(w http.ResponseWriter, r *http.Request) {
	sess := h.lookup(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, SessionTypesResponse{
		SessionID: sess.ID,
		Types:     summary.Types(sess.Messages),
	})
}

func (h *handlers) sessionMessages(w http.ResponseWriter, r *http.Request) {
	sess := h.lookup(w, r)
	if sess == nil {
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	messageType := r.URL.Query().Get("type")

	messages := summary.Filter(sess.Messages, messageType, limit)
	writeJSON(w, http.StatusOK, SessionMessagesResponse{
		SessionID: sess.ID,
		Type:      messageType,
		Count:     len(messages),
		Messages:  messages,
	})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxLimit {
		return 0, fmt.Errorf("limit must be between 1 and %d", maxLimit)
	}
	return limit, nil
}

func (h *handlers) sessionExport(w http.ResponseWriter, r *http.Request) {
	sess := h.lookup(w, r)
	if sess == nil {
		return
	}
	w.Header().Set("Content-Type", codec.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sess.ID+".cbor.zst"))
	if err := codec.Write(w, sess); err != nil {
		// Headers are already sent; all that is left is to log.
		h.logger.Error("export failed", "session_id", sess.ID, "error", err)
	}
}

func (h *handlers) recentUploads(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "Upload archive is not configured")
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	uploads, err := h.archive.RecentUploads(r.Context(), limit)
	if err != nil {
		h.logger.Error("listing uploads", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, UploadsResponse{Uploads: uploads})
}

func (h *handlers) collectorStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.collector.GetStats())
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Sessions: h.sessions.Len()})
}
