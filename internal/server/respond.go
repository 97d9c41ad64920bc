package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/attribution-cli/internal/attribution"
	"github.com/sells-group/attribution-cli/internal/store"
)

// errBadRequest marks a malformed body or query parameter.
var errBadRequest = eris.New("server: bad request")

// errBodyTooLarge marks a request body over the configured cap.
var errBodyTooLarge = eris.New("server: request body too large")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return eris.Wrapf(errBodyTooLarge, "server: limit %d bytes", tooLarge.Limit)
		}
		return eris.Wrapf(errBadRequest, "server: decode body: %s", err.Error())
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, attribution.ErrInvalidModel),
		errors.Is(err, errBadRequest),
		errors.Is(err, store.ErrInvalidBatch):
		return http.StatusBadRequest
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, store.ErrBatchNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("server: request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.Error(err),
		)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}
