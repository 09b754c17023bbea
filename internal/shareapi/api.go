// Package shareapi holds the JSON contract of the share service: request and
// response bodies, error codes, stream event names and the client id header.
// The server handlers and the HTTP client both build on it.
package shareapi

import (
	"time"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
)

// ClientIDHeader carries the caller's persisted client identifier.
const ClientIDHeader = "X-Client-ID"

// Error codes carried in ErrorDetail.Code.
const (
	CodeNotFound        = "not_found"
	CodeValidation      = "validation_error"
	CodeForbidden       = "forbidden"
	CodeBanned          = "banned"
	CodeShareDisabled   = "share_disabled"
	CodeMissingClientID = "missing_client_id"
	CodeTooLarge        = "payload_too_large"
	CodeInternal        = "internal_error"
)

// Event names written on the streams.
const (
	EventSnapshot = "snapshot"
	EventMessages = "messages"
)

// ErrorDetail is the machine-readable part of an error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// CreateShareRequest is the body of POST /shares. The owner is the caller's
// X-Client-ID.
type CreateShareRequest struct {
	Payload      *domain.Payload `json:"payload"`
	PasswordHash string          `json:"passwordHash,omitempty"`
	OwnerName    string          `json:"ownerName,omitempty"`
}

// CreateShareResponse is the body of a successful POST /shares.
type CreateShareResponse struct {
	ShareID   string    `json:"shareId"`
	TripID    string    `json:"tripId"`
	CreatedAt time.Time `json:"createdAt"`
}

// UpdatePayloadResponse is the body of a successful PUT /shares/{id}/payload.
type UpdatePayloadResponse struct {
	UpdatedAt time.Time `json:"updatedAt"`
}

// SetEnabledRequest is the body of PUT /shares/{id}/enabled.
type SetEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// SetEnabledResponse echoes the stored flag.
type SetEnabledResponse struct {
	Enabled bool `json:"enabled"`
}

// BanRequest is the body of POST /shares/{id}/bans.
type BanRequest struct {
	MemberID string `json:"memberId"`
}

// JoinRequest is the body of PUT /shares/{id}/members/me.
type JoinRequest struct {
	Name string `json:"name"`
}

// SendMessageRequest is the body of POST /shares/{id}/messages.
type SendMessageRequest struct {
	User string `json:"user"`
	Text string `json:"text"`
}

// MessageList is the body of GET /shares/{id}/messages and of each
// "messages" event on the message stream.
type MessageList struct {
	Data []domain.Message `json:"data"`
}

// RecordLogRequest is the body of POST /shares/{id}/logs.
type RecordLogRequest struct {
	ID       string    `json:"id,omitempty"`
	User     string    `json:"user"`
	Action   string    `json:"action"`
	ClientTS time.Time `json:"clientTs"`
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
}

// LogList is the body of GET /shares/{id}/logs.
type LogList struct {
	Data       []domain.LogEntry `json:"data"`
	Pagination Pagination        `json:"pagination"`
}

// HealthResponse is the body of GET /healthz. PayloadVersion is the newest
// trip payload schema this build knows.
type HealthResponse struct {
	Status         string `json:"status"`
	PayloadVersion int    `json:"payloadVersion"`
}
