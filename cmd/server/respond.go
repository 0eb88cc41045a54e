package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/quaynav/quay/internal/archive"
	"github.com/quaynav/quay/internal/database"
	"github.com/quaynav/quay/internal/policy"
	"github.com/quaynav/quay/internal/remote"
	"github.com/quaynav/quay/internal/restore"
	"github.com/quaynav/quay/internal/vault"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// respondError maps domain sentinel errors onto HTTP status codes. The
// actual error text is returned to the operator UI, which is a trusted
// single-user surface.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, database.ErrNotFound),
		errors.Is(err, archive.ErrNotFound),
		errors.Is(err, remote.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, policy.ErrValidation),
		errors.Is(err, restore.ErrExtraction):
		status = http.StatusBadRequest
	case errors.Is(err, remote.ErrNotConfigured):
		status = http.StatusConflict
	case errors.Is(err, remote.ErrUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, vault.ErrDecrypt):
		status = http.StatusInternalServerError
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
