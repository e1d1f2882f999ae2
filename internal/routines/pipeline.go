// Licensed under the PolyForm Noncommercial License 1.0.0

package routines

import (
	"context"
	"fmt"
	"time"

	"assistbridge/internal/article"
	"assistbridge/internal/cache"
	"assistbridge/internal/llm"
	xblog "assistbridge/internal/log"
	"assistbridge/internal/metrics"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Deps holds all dependencies for a pipeline run.
type Deps struct {
	Completer   llm.Completer
	Model       string
	Cache       cache.Cache // optional; nil disables caching
	CacheTTL    time.Duration
	Parallelism int // fan-out width (0 selects a default of 4)
	Clock       func() time.Time
}

// Pipeline fans out one completion request per article and recollects the
// results positionally. Workers share no mutable state: each writes only its
// own slot in the output slice.
type Pipeline struct {
	deps Deps
}

// New validates deps and builds a Pipeline.
func New(deps Deps) (*Pipeline, error) {
	if deps.Completer == nil {
		return nil, fmt.Errorf("routines: completer is required")
	}
	if deps.Parallelism <= 0 {
		deps.Parallelism = 4
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.CacheTTL <= 0 {
		deps.CacheTTL = 24 * time.Hour
	}
	return &Pipeline{deps: deps}, nil
}

// Run processes the article list and returns the assembled table. Item
// failures are caught, logged, and recorded on the row; the run itself fails
// only on invalid input or context cancellation.
func (p *Pipeline) Run(ctx context.Context, articles []article.Article) (*Result, error) {
	if err := article.ValidateSet(articles); err != nil {
		metrics.IncPipelineRun("failure")
		return nil, err
	}

	jobID := uuid.NewString()
	ctx = xblog.ContextWithJobID(ctx, jobID)
	logger := xblog.WithComponentFromContext(ctx, "routines")

	tracer := otel.Tracer("assistbridge/routines")
	ctx, span := tracer.Start(ctx, "routines.Run")
	span.SetAttributes(
		attribute.Int("articles.count", len(articles)),
		attribute.String("job.id", jobID),
	)
	defer span.End()

	start := p.deps.Clock()
	logger.Info().
		Str("event", "pipeline.start").
		Int("articles", len(articles)).
		Int("parallelism", p.deps.Parallelism).
		Msg("starting routine generation")

	result := &Result{
		Routines:  make([]Routine, len(articles)),
		StartedAt: start,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.deps.Parallelism)

	for i, a := range articles {
		g.Go(func() error {
			result.Routines[i] = p.generateOne(gctx, a)
			return gctx.Err()
		})
	}

	// Barrier: all workers finish before the table is assembled.
	if err := g.Wait(); err != nil {
		metrics.IncPipelineRun("failure")
		return nil, fmt.Errorf("routines: pipeline interrupted: %w", err)
	}

	for _, r := range result.Routines {
		switch {
		case r.Err != "":
			result.Failed++
		case r.Cached:
			result.Cached++
		default:
			result.Generated++
		}
	}
	result.Duration = p.deps.Clock().Sub(start)

	outcome := "success"
	if result.Failed > 0 {
		outcome = "partial"
	}
	metrics.IncPipelineRun(outcome)
	metrics.ObservePipeline(result.Duration)
	metrics.RecordRoutinesGenerated(result.Generated + result.Cached)

	logger.Info().
		Str("event", "pipeline.done").
		Int("generated", result.Generated).
		Int("cached", result.Cached).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("routine generation completed")

	return result, nil
}

// generateOne converts a single article. Failures are recorded on the row,
// never propagated: the batch continues.
func (p *Pipeline) generateOne(ctx context.Context, a article.Article) Routine {
	ctx = xblog.ContextWithArticleID(ctx, a.ID)
	logger := xblog.WithComponentFromContext(ctx, "routines")

	row := Routine{
		ArticleID: a.ID,
		Category:  a.Category,
		Source:    a.Content,
		Model:     p.deps.Model,
	}

	key := cacheKey(p.deps.Model, a.Category, a.Content)
	if p.deps.Cache != nil {
		if cached, ok := p.deps.Cache.Get(key); ok {
			metrics.IncLLMRequest("cached")
			row.Generated = cached
			row.GeneratedAt = p.deps.Clock().UTC()
			row.Cached = true
			return row
		}
	}

	out, err := p.deps.Completer.Complete(ctx, llm.RoutinePrompt(a.Category, a.Content))
	if err != nil {
		metrics.IncLLMRequest("error")
		logger.Error().
			Err(err).
			Str("event", "routine.failed").
			Str(xblog.FieldCategory, a.Category).
			Msg("routine generation failed, continuing with next article")
		row.Err = err.Error()
		return row
	}

	metrics.IncLLMRequest("success")
	row.Generated = out
	row.GeneratedAt = p.deps.Clock().UTC()

	if p.deps.Cache != nil {
		p.deps.Cache.Set(key, out, p.deps.CacheTTL)
	}

	logger.Debug().
		Str("event", "routine.generated").
		Str(xblog.FieldCategory, a.Category).
		Int("chars", len(out)).
		Msg("routine generated")
	return row
}
