package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/Thommy96/BaRiStA/internal/service"
	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service errors to status codes. Unclassified errors
// are reported as fallback without leaking their text.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrDialogueNotFound),
		errors.Is(err, service.ErrEntityNotFound),
		errors.Is(err, service.ErrDayNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidUserAct),
		errors.Is(err, service.ErrUnknownSlot),
		errors.Is(err, service.ErrNoEntitySelected):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrStructuralMismatch):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// pathParam returns a decoded URL parameter. chi matches on the raw path when
// one is present, leaving escapes in place.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}
