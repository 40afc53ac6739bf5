package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/farmledger/internal/common"
	"github.com/dmitrijs2005/farmledger/internal/logging"
	"github.com/dmitrijs2005/farmledger/internal/server/models"
	"github.com/dmitrijs2005/farmledger/internal/server/services"
)

const (
	defaultQueryLimit = 100
	maxQueryLimit     = 1000
	maxBatchEntries   = 1000
)

type handler struct {
	users     *services.UserService
	documents *services.DocumentService
	backups   *services.BackupService
	secretKey []byte
	log       logging.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps service errors to HTTP statuses without leaking internals.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, common.ErrDuplicateKey):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "already exists"})
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	default:
		h.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (h *handler) ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type registerRequest struct {
	Username string `json:"username"`
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Username == "" || len(req.Salt) == 0 || len(req.Verifier) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "username, salt and verifier are required"})
		return
	}

	if err := h.users.Register(r.Context(), req.Username, req.Salt, req.Verifier); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, nil)
}

func (h *handler) getSalt(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "username is required"})
		return
	}

	salt, err := h.users.GetSalt(r.Context(), username)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]byte{"salt": salt})
}

type loginRequest struct {
	Username string `json:"username"`
	Verifier []byte `json:"verifier"`
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	token, err := h.users.Login(r.Context(), req.Username, req.Verifier)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": token})
}

type batchEntry struct {
	Collection string          `json:"collection"`
	RecordID   int64           `json:"recordId"`
	Record     json.RawMessage `json:"record"`
}

type batchWriteRequest struct {
	Entries []batchEntry `json:"entries"`
}

// recordTimes extracts the client-side modification timestamps from the
// record payload; the rest of the payload is opaque to the server.
type recordTimes struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (h *handler) batchWrite(w http.ResponseWriter, r *http.Request) {
	var req batchWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if len(req.Entries) == 0 {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if len(req.Entries) > maxBatchEntries {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "batch too large"})
		return
	}

	docs := make([]models.Document, 0, len(req.Entries))
	for _, e := range req.Entries {
		if e.Collection == "" || len(e.Record) == 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "collection and record are required"})
			return
		}

		var t recordTimes
		if err := json.Unmarshal(e.Record, &t); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid record payload"})
			return
		}
		updatedAt := t.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = t.CreatedAt
		}

		docs = append(docs, models.Document{
			Collection: e.Collection,
			RecordID:   e.RecordID,
			Payload:    e.Record,
			UpdatedAt:  updatedAt,
		})
	}

	if err := h.documents.BatchWrite(r.Context(), userIDFromContext(r.Context()), docs); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type documentResponse struct {
	Collection string          `json:"collection"`
	RecordID   int64           `json:"recordId"`
	Record     json.RawMessage `json:"record"`
	LastSynced time.Time       `json:"lastSynced"`
}

func (h *handler) queryRecent(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	limit := defaultQueryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxQueryLimit {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	var after *time.Time
	if raw := r.URL.Query().Get("after"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid after timestamp"})
			return
		}
		after = &t
	}

	docs, err := h.documents.QueryRecent(r.Context(), userIDFromContext(r.Context()), collection, limit, after)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentResponse{
			Collection: d.Collection,
			RecordID:   d.RecordID,
			Record:     d.Payload,
			LastSynced: d.LastSynced,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (h *handler) deleteCollection(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	if err := h.documents.DeleteCollection(r.Context(), userIDFromContext(r.Context()), collection); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *handler) deleteUserData(w http.ResponseWriter, r *http.Request) {
	if err := h.documents.DeleteAll(r.Context(), userIDFromContext(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *handler) putSettings(w http.ResponseWriter, r *http.Request) {
	var settings map[string]string
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := h.users.SetSettings(r.Context(), userIDFromContext(r.Context()), settings); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *handler) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.users.Settings(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *handler) presignBackup(w http.ResponseWriter, r *http.Request) {
	if !h.backups.Enabled() {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "backups are not configured"})
		return
	}

	key, url, err := h.backups.GetPresignedPutUrl(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "url": url})
}
