package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/and161185/keepsake/internal/errs"
	"go.uber.org/zap"
)

const (
	maxBodyBytes   = 1 << 20
	unknownMessage = "Unknown error occured."
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any, log *zap.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("encode response", zap.Error(err))
	}
}

// statusOf maps a service error to its HTTP status and default message.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest, "Missing parameters"
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized, "User not authenticated"
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden, "Not allowed"
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, errs.ErrAlreadyExists), errors.Is(err, errs.ErrVersionConflict):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests. Please try again later."
	default:
		return http.StatusInternalServerError, unknownMessage
	}
}

// writeError is the single place service errors become HTTP responses.
// Internal errors are logged and never leak their text.
func writeError(w http.ResponseWriter, r *http.Request, err error, log *zap.Logger) {
	status, msg := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		msg = errs.Message(err, msg)
	}
	writeJSON(w, status, errorBody{Error: msg}, log)
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errs.New(errs.ErrValidation, "Missing parameters")
		}
		return errs.New(errs.ErrValidation, "Malformed JSON body")
	}
	return s.v.Validate(dst)
}
