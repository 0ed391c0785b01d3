package http

import (
	"net/http"

	"github.com/fjod/storefront/internal/notify"
)

type DiagnosticsHandler struct {
	email notify.Diagnostics
}

func NewDiagnosticsHandler(email notify.Diagnostics) *DiagnosticsHandler {
	return &DiagnosticsHandler{email: email}
}

// GET /email/diagnostics
func (h *DiagnosticsHandler) Email(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.email)
}

// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
