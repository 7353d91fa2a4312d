package httpapi

import (
	"errors"
	"net/http"

	"github.com/daianaegermichels/financas/internal/common"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrAlreadyExists),
		errors.Is(err, common.ErrAuthentication),
		errors.Is(err, common.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as a plain-text message. Unexpected errors are
// logged and hidden behind a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err, "request_id", RequestID(r.Context()))
		http.Error(w, "internal error", code)
		return
	}
	http.Error(w, common.Message(err), code)
}
