package server

import (
	"encoding/json"
	"net/http"

	"github.com/edustack/registrar/internal/errs"
)

// respond writes a JSON body with the given status.
func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.ErrorErr("response encode failed", err)
	}
}

// respondError maps an error kind onto an HTTP status and writes the
// standard error envelope.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	status := statusFor(kind)

	if status >= http.StatusInternalServerError {
		s.log.ErrorErr("request failed", err)
	}

	s.respond(w, status, map[string]any{
		"error": map[string]string{
			"kind":    kind.String(),
			"message": err.Error(),
		},
	})
}

// statusFor maps error kinds onto HTTP status codes.
func statusFor(kind errs.ErrKind) int {
	switch kind {
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindNotConnected, errs.ErrKindConstraintViolation:
		return http.StatusConflict
	case errs.ErrKindConnectionFailed:
		return http.StatusBadGateway
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
