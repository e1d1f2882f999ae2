// SPDX-License-Identifier: MIT

package routines

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	xblog "assistbridge/internal/log"

	"github.com/google/renameio/v2"
)

var csvHeader = []string{"article_id", "category", "source", "generated", "model", "generated_at", "cached", "error"}

// WriteCSV serializes the routine table as CSV.
func WriteCSV(w io.Writer, routines []Routine) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("routines: write csv header: %w", err)
	}
	for _, r := range routines {
		generatedAt := ""
		if !r.GeneratedAt.IsZero() {
			generatedAt = r.GeneratedAt.Format(time.RFC3339)
		}
		rec := []string{
			r.ArticleID,
			r.Category,
			r.Source,
			r.Generated,
			r.Model,
			generatedAt,
			strconv.FormatBool(r.Cached),
			r.Err,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("routines: write csv row for %q: %w", r.ArticleID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("routines: flush csv: %w", err)
	}
	return nil
}

// ExportCSV writes the routine table to path atomically and durably.
// renameio handles temp file creation, fsync, atomic rename, and cleanup.
func ExportCSV(ctx context.Context, path string, routines []Routine) error {
	logger := xblog.FromContext(ctx)

	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("routines: create pending csv file: %w", err)
	}
	defer func() {
		if cerr := pendingFile.Cleanup(); cerr != nil {
			logger.Debug().Err(cerr).Msg("cleanup pending csv file")
		}
	}()

	if err := WriteCSV(pendingFile, routines); err != nil {
		return err
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("routines: atomically replace csv file: %w", err)
	}

	logger.Info().
		Str("event", "routines.exported").
		Str(xblog.FieldPath, path).
		Int("rows", len(routines)).
		Msg("routine table exported")
	return nil
}
