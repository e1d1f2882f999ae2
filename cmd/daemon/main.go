// Licensed under the PolyForm Noncommercial License 1.0.0

// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"assistbridge/internal/api"
	"assistbridge/internal/article"
	"assistbridge/internal/blobstore"
	"assistbridge/internal/cache"
	"assistbridge/internal/config"
	"assistbridge/internal/daemon"
	"assistbridge/internal/health"
	"assistbridge/internal/llm"
	ablog "assistbridge/internal/log"
	"assistbridge/internal/routines"
	"assistbridge/internal/warehouse"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Configure logger with safe defaults until config is loaded
	ablog.Configure(ablog.Config{
		Level:   "info",
		Service: "assistbridge",
		Version: version,
	})

	logger := ablog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Determine config path:
	// - Explicit via --config
	// - Otherwise auto-load ${AB_DATA}/config.yaml if it exists
	effectiveConfigPath := strings.TrimSpace(*configPath)
	if effectiveConfigPath == "" {
		dataDir := strings.TrimSpace(config.ParseString("AB_DATA", "/var/lib/assistbridge"))
		autoPath := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(autoPath); err == nil {
			effectiveConfigPath = autoPath
		}
	}

	// Load configuration with precedence: ENV > File > Defaults
	loader := config.NewLoader(effectiveConfigPath, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	// Re-configure logger with loaded configuration
	ablog.Configure(ablog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})

	if effectiveConfigPath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str(ablog.FieldPath, effectiveConfigPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env").
			Msg("loaded configuration from environment")
	}

	api.SetTrustedProxies(cfg.TrustedProxies)

	if err := run(ctx, logger, loader, effectiveConfigPath, cfg); err != nil {
		logger.Fatal().Err(err).Str("event", "daemon.failed").Msg("daemon terminated with error")
	}
}

func run(ctx context.Context, logger zerolog.Logger, loader *config.Loader, cfgPath string, cfg config.AppConfig) error {
	// Warehouse
	db, err := warehouse.Open(cfg.Warehouse.DBPath, warehouse.DefaultConfig())
	if err != nil {
		return fmt.Errorf("open warehouse: %w", err)
	}
	executor := warehouse.NewExecutor(db, cfg.Warehouse.QueryTimeout, cfg.Warehouse.MaxResultRows)

	// Blob store
	blobs, err := blobstore.Open(cfg.Blobstore.Dir, cfg.Blobstore.ObjectTTL)
	if err != nil {
		return fmt.Errorf("open blobstore: %w", err)
	}

	presigner, err := blobstore.NewPresigner(cfg.Presign.Secret, cfg.Presign.TTL, cfg.Presign.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("presigner: %w", err)
	}

	// Routine cache: Redis when configured, in-process otherwise.
	var routineCache cache.Cache
	var redisCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		redisCache, err = cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, ablog.WithComponent("cache"))
		if err != nil {
			return fmt.Errorf("redis cache: %w", err)
		}
		routineCache = redisCache
	} else {
		routineCache = cache.NewMemory(10 * time.Minute)
	}

	// Language model client: hosted when a key is configured, mock otherwise
	// so the service stays usable in development.
	var completer llm.Completer
	model := cfg.LLM.Model
	if cfg.LLM.APIKey != "" {
		client, err := llm.NewOpenAIClient(llm.Settings{
			APIKey:     cfg.LLM.APIKey,
			Model:      cfg.LLM.Model,
			BaseURL:    cfg.LLM.BaseURL,
			RequestsPS: cfg.LLM.RequestsPS,
			Burst:      cfg.LLM.Burst,
		})
		if err != nil {
			return fmt.Errorf("llm client: %w", err)
		}
		completer = client
	} else {
		logger.Warn().Str("event", "llm.mock_mode").Msg("no LLM API key configured, using canned responses")
		completer = &llm.Mock{}
		model = "mock"
	}

	pipeline, err := routines.New(routines.Deps{
		Completer:   completer,
		Model:       model,
		Cache:       routineCache,
		CacheTTL:    cfg.Blobstore.ObjectTTL,
		Parallelism: cfg.LLM.MaxParallel,
	})
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	// Articles are loaded once at startup and swapped on config reload.
	articles := loadArticles(logger, cfg.ArticlesPath)
	var articleMu sync.RWMutex
	articleSource := func() []article.Article {
		articleMu.RLock()
		defer articleMu.RUnlock()
		return articles
	}

	// Health checks
	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.CheckerFunc{CheckerName: "warehouse", Fn: db.PingContext})
	hm.RegisterChecker(health.CheckerFunc{CheckerName: "blobstore", Fn: blobs.HealthCheck})
	if redisCache != nil {
		hm.RegisterChecker(health.CheckerFunc{CheckerName: "redis", Fn: redisCache.HealthCheck})
	}

	apiServer := api.New(cfg, api.Deps{
		Executor:  executor,
		Blobs:     blobs,
		Presigner: presigner,
		Pipeline:  pipeline,
		Articles:  articleSource,
		Health:    hm,
	})

	serverCfg := config.ParseServerConfig()
	serverCfg.ListenAddr = cfg.ListenAddr

	deps := daemon.Deps{
		Logger:     ablog.WithComponent("daemon"),
		APIHandler: apiServer.Handler(),
	}
	if cfg.MetricsEnabled {
		deps.MetricsHandler = promhttp.Handler()
		deps.MetricsAddr = cfg.MetricsAddr
	}

	manager, err := daemon.NewManager(serverCfg, deps)
	if err != nil {
		return fmt.Errorf("daemon manager: %w", err)
	}

	manager.RegisterShutdownHook("warehouse", func(ctx context.Context) error {
		return db.Close()
	})
	manager.RegisterShutdownHook("blobstore", func(ctx context.Context) error {
		return blobs.Close()
	})
	if redisCache != nil {
		manager.RegisterShutdownHook("redis", func(ctx context.Context) error {
			return redisCache.Close()
		})
	}

	holder := config.NewHolder(cfg, loader, cfgPath)
	reloadCh := make(chan config.AppConfig, 1)
	holder.RegisterListener(reloadCh)
	go watchArticleReloads(ctx, logger, reloadCh, func(fresh []article.Article) {
		articleMu.Lock()
		articles = fresh
		articleMu.Unlock()
	})

	app := daemon.NewApp(ablog.WithComponent("app"), manager, holder, apiServer)
	return app.Run(ctx)
}

// watchArticleReloads re-reads the article CSV on every config swap and hands
// the fresh set to apply. Returns when ctx is cancelled.
func watchArticleReloads(ctx context.Context, logger zerolog.Logger, ch <-chan config.AppConfig, apply func([]article.Article)) {
	for {
		select {
		case <-ctx.Done():
			return
		case next := <-ch:
			apply(loadArticles(logger, next.ArticlesPath))
		}
	}
}

func loadArticles(logger zerolog.Logger, path string) []article.Article {
	if path == "" {
		return nil
	}
	arts, err := article.Load(path)
	if err != nil {
		logger.Error().
			Err(err).
			Str("event", "articles.load_failed").
			Str(ablog.FieldPath, path).
			Msg("failed to load knowledge base articles")
		return nil
	}
	logger.Info().
		Str("event", "articles.loaded").
		Int("count", len(arts)).
		Str(ablog.FieldPath, path).
		Msg("knowledge base articles loaded")
	return arts
}
