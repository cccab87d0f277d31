package api

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/vainnor/flightlog/db"
	"github.com/vainnor/flightlog/types"
)

// KeySet holds the API keys whose holders bypass rate limiting.
type KeySet struct {
	keys [][]byte
}

func NewKeySet(keys []string) KeySet {
	var ks KeySet
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			ks.keys = append(ks.keys, []byte(k))
		}
	}
	return ks
}

// Valid checks an Authorization header value, with or without a Bearer prefix.
func (ks KeySet) Valid(header string) bool {
	candidate := []byte(bearerToken(header))
	if len(candidate) == 0 {
		return false
	}
	for _, k := range ks.keys {
		if subtle.ConstantTimeCompare(candidate, k) == 1 {
			return true
		}
	}
	return false
}

func bearerToken(header string) string {
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// KeyStore persists keys issued through /api/keys.
type KeyStore interface {
	CreateAPIKey(ctx context.Context, key, description string) (types.APIKey, error)
	ListAPIKeys(ctx context.Context) ([]types.APIKey, error)
	DeleteAPIKey(ctx context.Context, id int) error
	ValidateAPIKey(ctx context.Context, key string) (bool, error)
}

// generateAPIKey generates a random 32-byte hex string
func generateAPIKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// authorizeMaster writes the error response and returns false unless the
// request carries the master key and key storage is available.
func (h *handlers) authorizeMaster(w http.ResponseWriter, r *http.Request) bool {
	if h.keys == nil {
		writeError(w, http.StatusServiceUnavailable, "API key storage is not configured")
		return false
	}
	if !h.master.Valid(r.Header.Get("Authorization")) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return false
	}
	return true
}

func (h *handlers) createKey(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeMaster(w, r) {
		return
	}

	var req CreateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	key, err := generateAPIKey()
	if err != nil {
		h.logger.Error("generating api key", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate API key")
		return
	}

	apiKey, err := h.keys.CreateAPIKey(r.Context(), key, req.Description)
	if err != nil {
		h.logger.Error("storing api key", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create API key")
		return
	}
	h.logger.Info("api key created", "id", apiKey.ID, "description", apiKey.Description)
	writeJSON(w, http.StatusCreated, apiKey)
}

func (h *handlers) listKeys(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeMaster(w, r) {
		return
	}

	keys, err := h.keys.ListAPIKeys(r.Context())
	if err != nil {
		h.logger.Error("listing api keys", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list API keys")
		return
	}
	writeJSON(w, http.StatusOK, KeysResponse{Keys: keys})
}

func (h *handlers) deleteKey(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeMaster(w, r) {
		return
	}

	var req DeleteKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.keys.DeleteAPIKey(r.Context(), req.ID); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			writeError(w, http.StatusNotFound, "API key not found")
			return
		}
		h.logger.Error("deleting api key", "id", req.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete API key")
		return
	}
	h.logger.Info("api key deleted", "id", req.ID)
	w.WriteHeader(http.StatusNoContent)
}
