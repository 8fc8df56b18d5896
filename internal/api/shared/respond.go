package shared

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/positionhq/position-api/internal/platform/logger"
)

// RespondWithJSON writes payload as JSON with the given status. Encoding
// failures are logged; by then the status line is already on the wire, so
// nothing more can be sent to the client.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.FromContext(r.Context()).Error("failed to encode response",
			slog.String("error", err.Error()),
			slog.Int("status", status))
	}
}
