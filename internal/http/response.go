package http

import (
	"encoding/json"
	"errors"
	"net/http"

	applog "forestgrant/internal/log"
	"forestgrant/internal/services"
)

// Error codes returned in the envelope's code field.
const (
	CodeInvalidID     = "invalid_id"
	CodeNotFound      = "not_found"
	CodeNotDraft      = "not_draft"
	CodeUnauthorized  = "unauthorized"
	CodeInvalidBody   = "invalid_body"
	CodeBodyTooLarge  = "body_too_large"
	CodeRateLimited   = "rate_limited"
	CodeInternalError = "internal_error"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// JSONResponse builds one enveloped API response.
type JSONResponse struct {
	status int
	body   envelope
}

// OK starts a successful 200 response.
func OK() *JSONResponse {
	return &JSONResponse{status: http.StatusOK, body: envelope{Success: true}}
}

// Fail starts an error response with the given status and code.
func Fail(status int, code, message string) *JSONResponse {
	return &JSONResponse{status: status, body: envelope{Code: code, Message: message}}
}

func (b *JSONResponse) Status(code int) *JSONResponse {
	b.status = code
	return b
}

func (b *JSONResponse) Message(msg string) *JSONResponse {
	b.body.Message = msg
	return b
}

func (b *JSONResponse) Data(data any) *JSONResponse {
	b.body.Data = data
	return b
}

// Write encodes the envelope. Encoding failures can only be logged since
// the status line is already out.
func (b *JSONResponse) Write(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.status)
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode response", applog.FieldError, err)
	}
}

// writeError maps service errors onto status codes. Anything unrecognised
// is logged and reported as a 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidID):
		Fail(http.StatusBadRequest, CodeInvalidID, "Invalid application id").Write(w, r)
	case errors.Is(err, services.ErrNotFound):
		Fail(http.StatusNotFound, CodeNotFound, "Application not found").Write(w, r)
	case errors.Is(err, services.ErrNotDraft):
		Fail(http.StatusConflict, CodeNotDraft, "Application is not editable").Write(w, r)
	case errors.Is(err, services.ErrUserNotFound):
		writeUnauthorized(w, r)
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
		writeInternalError(w, r)
	}
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	Fail(http.StatusUnauthorized, CodeUnauthorized, "User not found").Write(w, r)
}

func writeInternalError(w http.ResponseWriter, r *http.Request) {
	Fail(http.StatusInternalServerError, CodeInternalError, "Internal server error").Write(w, r)
}

func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	Fail(http.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded. Please try again later.").Write(w, r)
}
