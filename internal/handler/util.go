package handler

import (
	"encoding/json"
	"net/http"

	"github.com/capitalize-ai/docchat/internal/middleware"
	"github.com/capitalize-ai/docchat/internal/registry"
	"github.com/capitalize-ai/docchat/internal/service"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// session returns the caller's session, creating it on first use.
func session(sessions *registry.Registry, r *http.Request) *service.Session {
	ctx := r.Context()
	return sessions.Get(ctx, middleware.GetUserID(ctx), middleware.GetToken(ctx))
}

// outcomeStatus maps a submission outcome to an HTTP status code.
func outcomeStatus(kind service.OutcomeKind) int {
	switch kind {
	case service.OutcomeBusy, service.OutcomeAlreadyBound:
		return http.StatusConflict
	case service.OutcomeNotFound:
		return http.StatusNotFound
	case service.OutcomeUploadFailed, service.OutcomeAskFailed:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}
