package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"forestgrant/internal/finance"
)

// HeaderUserID carries the authenticated user. An upstream gateway is
// expected to set it.
const HeaderUserID = "X-User-ID"

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

var (
	errMissingUser  = errors.New("missing or invalid user id")
	errBodyTooLarge = errors.New("request body too large")
	errMalformed    = errors.New("malformed JSON body")
)

// userFromRequest returns the caller's id from HeaderUserID.
func userFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if raw == "" {
		return uuid.Nil, errMissingUser
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errMissingUser
	}
	return id, nil
}

// decodePayload reads a financial-information body. An empty body is the
// same as {}, so every field is reported as missing.
func decodePayload(w http.ResponseWriter, r *http.Request) (finance.RawPayload, error) {
	var p finance.RawPayload
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return p, errBodyTooLarge
		}
		return p, errMalformed
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(body, &p); err != nil {
		return p, errMalformed
	}
	return p, nil
}

// writeDecodeError answers a failed decodePayload.
func writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errBodyTooLarge) {
		Fail(http.StatusRequestEntityTooLarge, CodeBodyTooLarge, "Request body too large").Write(w, r)
		return
	}
	Fail(http.StatusBadRequest, CodeInvalidBody, "Request body must be a JSON object").Write(w, r)
}
