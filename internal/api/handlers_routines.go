// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"assistbridge/internal/article"
	"assistbridge/internal/log"
	"assistbridge/internal/routines"
)

// generateRequest is the body of POST /api/v1/routines/generate. An empty
// category list means every loaded article.
type generateRequest struct {
	Categories []string `json:"categories,omitempty"`
}

// generateResponse reports the run and points at the exported CSV.
type generateResponse struct {
	URL       string             `json:"url,omitempty"`
	Key       string             `json:"key,omitempty"`
	Generated int                `json:"generated"`
	Cached    int                `json:"cached"`
	Failed    int                `json:"failed"`
	Duration  string             `json:"duration"`
	Routines  []routines.Routine `json:"routines"`
}

// handleGenerateRoutines fans the loaded articles out to the language model
// and returns the full routine table plus a presigned CSV export.
func (s *Server) handleGenerateRoutines(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	articles := s.deps.Articles()
	articles = article.FilterByCategories(articles, req.Categories)
	if len(articles) == 0 {
		respondError(w, http.StatusBadRequest, "no articles match the requested categories")
		return
	}

	logger := log.WithComponentFromContext(r.Context(), "api")

	result, err := s.deps.Pipeline.Run(r.Context(), articles)
	if err != nil {
		logger.Error().Str("event", "routines.run_failed").Err(err).Msg("pipeline run failed")
		respondError(w, http.StatusInternalServerError, "routine generation failed")
		return
	}
	s.setLastRun(result)

	resp := generateResponse{
		Generated: result.Generated,
		Cached:    result.Cached,
		Failed:    result.Failed,
		Duration:  result.Duration.String(),
		Routines:  result.Routines,
	}

	var buf bytes.Buffer
	if err := routines.WriteCSV(&buf, result.Routines); err == nil {
		key := "routines-" + uuid.NewString() + ".csv"
		if _, err := s.deps.Blobs.Put(r.Context(), key, "text/csv", buf.Bytes()); err == nil {
			resp.URL = s.deps.Presigner.SignURL(key)
			resp.Key = key
		} else {
			logger.Warn().Str("event", "routines.export_failed").Err(err).Msg("csv export skipped")
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleGetRoutines returns the most recent run, if any.
func (s *Server) handleGetRoutines(w http.ResponseWriter, r *http.Request) {
	last := s.getLastRun()
	if last == nil {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, last)
}
