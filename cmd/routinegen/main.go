// SPDX-License-Identifier: MIT

// routinegen converts a knowledge base CSV into a routine table offline,
// without running the full service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"assistbridge/internal/article"
	"assistbridge/internal/cache"
	"assistbridge/internal/config"
	"assistbridge/internal/llm"
	ablog "assistbridge/internal/log"
	"assistbridge/internal/routines"
)

func main() {
	in := flag.String("articles", "articles.csv", "path to the knowledge base CSV (id,category,content)")
	out := flag.String("out", "routines.csv", "output path for the routine table")
	categories := flag.String("categories", "", "comma-separated category filter (empty = all)")
	model := flag.String("model", config.ParseString("AB_LLM_MODEL", "gpt-4o-mini"), "model name")
	parallel := flag.Int("parallel", config.ParseInt("AB_LLM_MAX_PARALLEL", 4), "fan-out width")
	flag.Parse()

	ablog.Configure(ablog.Config{Level: "info", Service: "routinegen"})
	logger := ablog.WithComponent("routinegen")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	arts, err := article.Load(*in)
	if err != nil {
		logger.Fatal().Err(err).Str(ablog.FieldPath, *in).Msg("failed to load articles")
	}

	var filter []string
	if *categories != "" {
		filter = strings.Split(*categories, ",")
	}
	arts = article.FilterByCategories(arts, filter)
	if len(arts) == 0 {
		logger.Fatal().Msg("no articles to process")
	}

	var completer llm.Completer
	apiKey := config.ParseString("AB_LLM_API_KEY", "")
	if apiKey != "" {
		client, err := llm.NewOpenAIClient(llm.Settings{
			APIKey:     apiKey,
			Model:      *model,
			BaseURL:    config.ParseString("AB_LLM_BASE_URL", ""),
			RequestsPS: config.ParseFloat("AB_LLM_RPS", 2),
			Burst:      config.ParseInt("AB_LLM_BURST", 4),
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("llm client")
		}
		completer = client
	} else {
		logger.Warn().Str("event", "llm.mock_mode").Msg("AB_LLM_API_KEY not set, using canned responses")
		completer = &llm.Mock{}
		*model = "mock"
	}

	pipeline, err := routines.New(routines.Deps{
		Completer:   completer,
		Model:       *model,
		Cache:       cache.NewNoOp(),
		Parallelism: *parallel,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("pipeline")
	}

	start := time.Now()
	result, err := pipeline.Run(ctx, arts)
	if err != nil {
		logger.Fatal().Err(err).Msg("generation failed")
	}

	if err := routines.ExportCSV(ctx, *out, result.Routines); err != nil {
		logger.Fatal().Err(err).Str(ablog.FieldPath, *out).Msg("export failed")
	}

	logger.Info().
		Str("event", "routinegen.done").
		Int("generated", result.Generated).
		Int("failed", result.Failed).
		Dur("duration", time.Since(start)).
		Str(ablog.FieldPath, *out).
		Msg("routine table written")

	if result.Failed > 0 {
		fmt.Fprintf(os.Stderr, "%d article(s) failed, see log for details\n", result.Failed)
		os.Exit(1)
	}
}
