// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"assistbridge/internal/blobstore"
	"assistbridge/internal/log"
	"assistbridge/internal/metrics"
)

// handleFileDownload serves a stored blob after verifying the presigned
// signature. This route is deliberately outside the token middleware: the
// signature is the credential.
func (s *Server) handleFileDownload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	expires := r.URL.Query().Get("expires")
	sig := r.URL.Query().Get("sig")

	if err := s.deps.Presigner.Verify(key, expires, sig); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "files")
		logger.Warn().
			Str("event", "files.denied").
			Str(log.FieldBlobKey, key).
			Err(err).
			Msg("presigned link rejected")
		respondPresignError(w, err)
		return
	}

	obj, data, err := s.deps.Blobs.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			metrics.IncPresignedDenied("not_found")
			writeNotFound(w)
			return
		}
		respondError(w, http.StatusInternalServerError, "file retrieval failed")
		return
	}

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+key+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
