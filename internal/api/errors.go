// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"assistbridge/internal/blobstore"
	"assistbridge/internal/metrics"
	"assistbridge/internal/warehouse"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError writes a JSON error body with the given status code
func respondError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeUnauthorized(w http.ResponseWriter) {
	respondError(w, http.StatusUnauthorized, "unauthorized")
}

func writeNotFound(w http.ResponseWriter) {
	respondError(w, http.StatusNotFound, "not found")
}

// respondQueryError maps warehouse sentinels to HTTP statuses. Client
// mistakes are 400, everything else is an opaque 500.
func respondQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, warehouse.ErrEmptyQuery),
		errors.Is(err, warehouse.ErrForbiddenQuery),
		errors.Is(err, warehouse.ErrTooManyRows):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "query execution failed")
	}
}

// respondPresignError maps presign verification failures. The reason label
// feeds the denial counter so tampering shows up on dashboards.
func respondPresignError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, blobstore.ErrLinkExpired):
		metrics.IncPresignedDenied("expired")
		respondError(w, http.StatusForbidden, "link expired")
	case errors.Is(err, blobstore.ErrSignatureMismatch):
		metrics.IncPresignedDenied("signature")
		respondError(w, http.StatusForbidden, "invalid signature")
	case errors.Is(err, blobstore.ErrMalformedLink):
		metrics.IncPresignedDenied("signature")
		respondError(w, http.StatusBadRequest, "malformed link")
	default:
		respondError(w, http.StatusInternalServerError, "file retrieval failed")
	}
}
