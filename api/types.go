package api

import (
	"time"

	"github.com/vainnor/flightlog/types"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// UploadSummary is the summary block of an upload response. On a decode
// failure only Error is set.
type UploadSummary struct {
	*types.Summary
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type UploadResponse struct {
	Filename string        `json:"filename"`
	Summary  UploadSummary `json:"summary"`
}

// ChatRequest accepts both snake_case and camelCase keys.
type ChatRequest struct {
	SessionID      string `json:"session_id"`
	UserQuery      string `json:"user_query"`
	SessionIDCamel string `json:"sessionId"`
	UserQueryCamel string `json:"userQuery"`
}

func (c ChatRequest) normalize() (sessionID, query string) {
	sessionID, query = c.SessionID, c.UserQuery
	if sessionID == "" {
		sessionID = c.SessionIDCamel
	}
	if query == "" {
		query = c.UserQueryCamel
	}
	return sessionID, query
}

type SessionSummaryResponse struct {
	SessionID string        `json:"session_id"`
	Filename  string        `json:"filename"`
	Digest    string        `json:"digest"`
	CreatedAt time.Time     `json:"created_at"`
	Summary   types.Summary `json:"summary"`
}

type SessionTypesResponse struct {
	SessionID string   `json:"session_id"`
	Types     []string `json:"types"`
}

type SessionMessagesResponse struct {
	SessionID string                 `json:"session_id"`
	Type      string                 `json:"type,omitempty"`
	Count     int                    `json:"count"`
	Messages  []types.DecodedMessage `json:"messages"`
}

type UploadsResponse struct {
	Uploads []types.UploadRecord `json:"uploads"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

type CreateKeyRequest struct {
	Description string `json:"description"`
}

type DeleteKeyRequest struct {
	ID int `json:"id"`
}

type KeysResponse struct {
	Keys []types.APIKey `json:"keys"`
}
