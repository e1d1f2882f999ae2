// Licensed under the PolyForm Noncommercial License 1.0.0

// Package routines converts knowledge base articles into step-numbered,
// machine-executable routines by fanning out independent completion requests.
package routines

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Routine is one generated row of the output table: the article's category
// label, its source text, and the generated routine, plus provenance fields.
type Routine struct {
	ArticleID   string    `json:"article_id"`
	Category    string    `json:"category"`
	Source      string    `json:"source"`
	Generated   string    `json:"generated"`
	Model       string    `json:"model"`
	GeneratedAt time.Time `json:"generated_at"`
	Cached      bool      `json:"cached,omitempty"`
	Err         string    `json:"error,omitempty"`
}

// Result is the outcome of one pipeline run.
type Result struct {
	Routines  []Routine     `json:"routines"`
	Generated int           `json:"generated"`
	Cached    int           `json:"cached"`
	Failed    int           `json:"failed"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// cacheKey derives a deterministic, collision-resistant cache key from the
// model and the article content. Using a hash keeps the key stable across
// runs and avoids issues with special characters in the source text.
func cacheKey(model, category, content string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + category + "\x00" + content))
	return "routine:" + hex.EncodeToString(sum[:])
}
