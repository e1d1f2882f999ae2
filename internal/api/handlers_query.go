// SPDX-License-Identifier: MIT

package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"assistbridge/internal/log"
)

// queryRequest is the body of POST /api/v1/query.
type queryRequest struct {
	Query string `json:"query"`
}

// queryResponse lists the presigned URLs of the exported files (one CSV per
// query today).
type queryResponse struct {
	Files     []string  `json:"files"`
	Key       string    `json:"key"`
	Rows      int       `json:"rows"`
	Columns   []string  `json:"columns"`
	ExpiresIn string    `json:"expires_in"`
	CreatedAt time.Time `json:"created_at"`
}

// handleQuery runs a read-only SQL query, writes the result set as CSV into
// the blob store and answers with a presigned download URL.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := s.snapshotConfig()
	logger := log.WithComponentFromContext(r.Context(), "api")

	rs, err := s.deps.Executor.ExecuteQuery(r.Context(), req.Query)
	if err != nil {
		logger.Warn().
			Str("event", "query.rejected").
			Str(log.FieldQueryHash, hashQuery(req.Query)).
			Err(err).
			Msg("query failed")
		respondQueryError(w, err)
		return
	}

	data, err := rs.CSVBytes()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "csv encoding failed")
		return
	}

	key := "query-" + uuid.NewString() + ".csv"
	obj, err := s.deps.Blobs.Put(r.Context(), key, "text/csv", data)
	if err != nil {
		logger.Error().Str("event", "query.upload_failed").Err(err).Msg("blob upload failed")
		respondError(w, http.StatusInternalServerError, "result upload failed")
		return
	}

	logger.Info().
		Str("event", "query.exported").
		Str(log.FieldQueryHash, hashQuery(req.Query)).
		Str(log.FieldBlobKey, key).
		Int(log.FieldRows, len(rs.Rows)).
		Int64(log.FieldSizeBytes, obj.Size).
		Msg("query result exported")

	writeJSON(w, http.StatusOK, queryResponse{
		Files:     []string{s.deps.Presigner.SignURL(key)},
		Key:       key,
		Rows:      len(rs.Rows),
		Columns:   rs.Columns,
		ExpiresIn: cfg.Presign.TTL.String(),
		CreatedAt: obj.CreatedAt,
	})
}

// hashQuery keeps raw SQL out of the logs while still letting repeated
// statements be correlated.
func hashQuery(q string) string {
	sum := sha256.Sum256([]byte(q))
	return hex.EncodeToString(sum[:8])
}
