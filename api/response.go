package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"betledger/domain/entities"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the shared error taxonomy onto HTTP statuses
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var funds *entities.InsufficientFundsError
	switch {
	case errors.As(err, &funds):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":     err.Error(),
			"available": funds.Available,
			"requested": funds.Requested,
		})
	case errors.Is(err, entities.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, entities.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, entities.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, entities.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, entities.ErrExternalProvider):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		log.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("Request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return entities.ValidationErrorf("invalid request body: %v", err)
	}
	return nil
}

func pathInt64(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, entities.ValidationErrorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// queryLimit reads ?limit, falling back to def and capping at 500
func queryLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, entities.ValidationErrorf("invalid limit %q", raw)
	}
	return min(limit, 500), nil
}

// accountIDHeader carries the acting account for game routes
const accountIDHeader = "X-Account-ID"

func actingAccount(r *http.Request) (int64, error) {
	raw := r.Header.Get(accountIDHeader)
	if raw == "" {
		return 0, entities.ValidationErrorf("missing %s header", accountIDHeader)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, entities.ValidationErrorf("invalid %s header %q", accountIDHeader, raw)
	}
	return id, nil
}
