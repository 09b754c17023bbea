package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing trip id, empty chat message).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrForbidden is returned when the caller is not allowed to perform an
// owner-only action such as disabling a share or banning a member.
// Handlers should map this to HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrBanned is returned when the caller's client id is on the share's ban list.
// Handlers should map this to HTTP 403 with a distinct error code.
var ErrBanned = errors.New("client is banned from this share")

// ErrShareDisabled is returned when a payload push targets a disabled share.
// Handlers should map this to HTTP 409 Conflict.
var ErrShareDisabled = errors.New("share is disabled")
