package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"
)

// Loader resolves AppConfig with precedence ENV > file > defaults.
type Loader struct {
	path    string
	version string
}

// NewLoader creates a Loader for the given config file path. An empty path
// skips the file layer entirely.
func NewLoader(path, version string) *Loader {
	return &Loader{path: path, version: version}
}

// Load resolves and validates the configuration.
func (l *Loader) Load() (AppConfig, error) {
	cfg := defaults(l.version)

	fc, err := LoadFile(l.path)
	if err != nil {
		return AppConfig{}, err
	}
	if fc != nil {
		mergeFile(&cfg, fc)
	}

	mergeEnv(&cfg)

	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func defaults(version string) AppConfig {
	return AppConfig{
		Version:           version,
		LogLevel:          "info",
		LogService:        "assistbridge",
		ListenAddr:        ":8080",
		MetricsEnabled:    true,
		MetricsAddr:       ":9090",
		RateLimitEnabled:  true,
		RateLimitRequests: 60,
		RateLimitWindow:   time.Minute,
		DataDir:           "/var/lib/assistbridge",
		Warehouse: WarehouseConfig{
			QueryTimeout:  30 * time.Second,
			MaxResultRows: 100000,
		},
		Blobstore: BlobstoreConfig{
			ObjectTTL: 24 * time.Hour,
		},
		Presign: PresignConfig{
			TTL: 15 * time.Minute,
		},
		LLM: LLMConfig{
			RequestsPS:  2,
			Burst:       4,
			MaxParallel: 4,
		},
	}
}

func mergeFile(cfg *AppConfig, fc *FileConfig) {
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.API.ListenAddr != "" {
		cfg.ListenAddr = fc.API.ListenAddr
	}
	if fc.API.Token != "" {
		cfg.APIToken = fc.API.Token
	}
	if fc.API.TrustedProxies != "" {
		cfg.TrustedProxies = fc.API.TrustedProxies
	}
	if fc.Metrics.Enabled != nil {
		cfg.MetricsEnabled = *fc.Metrics.Enabled
	}
	if fc.Metrics.Addr != "" {
		cfg.MetricsAddr = fc.Metrics.Addr
	}
	if fc.RateLimit.Enabled != nil {
		cfg.RateLimitEnabled = *fc.RateLimit.Enabled
	}
	if fc.RateLimit.Requests > 0 {
		cfg.RateLimitRequests = fc.RateLimit.Requests
	}
	if fc.RateLimit.Window > 0 {
		cfg.RateLimitWindow = fc.RateLimit.Window
	}
	if fc.DataDir != "" {
		cfg.DataDir = fc.DataDir
	}
	if fc.ArticlesPath != "" {
		cfg.ArticlesPath = fc.ArticlesPath
	}
	if fc.Warehouse.DBPath != "" {
		cfg.Warehouse.DBPath = fc.Warehouse.DBPath
	}
	if fc.Warehouse.QueryTimeout > 0 {
		cfg.Warehouse.QueryTimeout = fc.Warehouse.QueryTimeout
	}
	if fc.Warehouse.MaxResultRows > 0 {
		cfg.Warehouse.MaxResultRows = fc.Warehouse.MaxResultRows
	}
	if fc.Blobstore.Dir != "" {
		cfg.Blobstore.Dir = fc.Blobstore.Dir
	}
	if fc.Blobstore.ObjectTTL > 0 {
		cfg.Blobstore.ObjectTTL = fc.Blobstore.ObjectTTL
	}
	if fc.Presign.Secret != "" {
		cfg.Presign.Secret = fc.Presign.Secret
	}
	if fc.Presign.TTL > 0 {
		cfg.Presign.TTL = fc.Presign.TTL
	}
	if fc.Presign.PublicBaseURL != "" {
		cfg.Presign.PublicBaseURL = fc.Presign.PublicBaseURL
	}
	if fc.LLM.BaseURL != "" {
		cfg.LLM.BaseURL = fc.LLM.BaseURL
	}
	if fc.LLM.APIKey != "" {
		cfg.LLM.APIKey = fc.LLM.APIKey
	}
	if fc.LLM.Model != "" {
		cfg.LLM.Model = fc.LLM.Model
	}
	if fc.LLM.RequestsPS > 0 {
		cfg.LLM.RequestsPS = fc.LLM.RequestsPS
	}
	if fc.LLM.Burst > 0 {
		cfg.LLM.Burst = fc.LLM.Burst
	}
	if fc.LLM.MaxParallel > 0 {
		cfg.LLM.MaxParallel = fc.LLM.MaxParallel
	}
	if fc.Redis.Addr != "" {
		cfg.Redis.Addr = fc.Redis.Addr
		cfg.Redis.Password = fc.Redis.Password
		cfg.Redis.DB = fc.Redis.DB
	}
}

func mergeEnv(cfg *AppConfig) {
	cfg.LogLevel = ParseString("AB_LOG_LEVEL", cfg.LogLevel)
	cfg.ListenAddr = ParseString("AB_LISTEN", cfg.ListenAddr)
	cfg.MetricsEnabled = ParseBool("AB_METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.MetricsAddr = ParseString("AB_METRICS_ADDR", cfg.MetricsAddr)
	cfg.TrustedProxies = ParseString("AB_TRUSTED_PROXIES", cfg.TrustedProxies)
	cfg.APIToken = ParseString("AB_API_TOKEN", cfg.APIToken)
	cfg.AuthAnonymous = ParseBool("AB_AUTH_ANONYMOUS", cfg.AuthAnonymous)
	cfg.RateLimitEnabled = ParseBool("AB_RATE_LIMIT_ENABLED", cfg.RateLimitEnabled)
	cfg.RateLimitRequests = ParseInt("AB_RATE_LIMIT_REQUESTS", cfg.RateLimitRequests)
	cfg.RateLimitWindow = ParseDuration("AB_RATE_LIMIT_WINDOW", cfg.RateLimitWindow)
	cfg.DataDir = ParseString("AB_DATA", cfg.DataDir)
	cfg.ArticlesPath = ParseString("AB_ARTICLES", cfg.ArticlesPath)
	cfg.Warehouse.DBPath = ParseString("AB_DB_PATH", cfg.Warehouse.DBPath)
	cfg.Warehouse.QueryTimeout = ParseDuration("AB_QUERY_TIMEOUT", cfg.Warehouse.QueryTimeout)
	cfg.Warehouse.MaxResultRows = ParseInt("AB_MAX_RESULT_ROWS", cfg.Warehouse.MaxResultRows)
	cfg.Blobstore.Dir = ParseString("AB_BLOBSTORE_DIR", cfg.Blobstore.Dir)
	cfg.Blobstore.ObjectTTL = ParseDuration("AB_OBJECT_TTL", cfg.Blobstore.ObjectTTL)
	cfg.Presign.Secret = ParseString("AB_PRESIGN_SECRET", cfg.Presign.Secret)
	cfg.Presign.TTL = ParseDuration("AB_PRESIGN_TTL", cfg.Presign.TTL)
	cfg.Presign.PublicBaseURL = ParseString("AB_PUBLIC_BASE_URL", cfg.Presign.PublicBaseURL)
	cfg.LLM.BaseURL = ParseString("AB_LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = ParseString("AB_LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = ParseString("AB_LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.RequestsPS = ParseFloat("AB_LLM_RPS", cfg.LLM.RequestsPS)
	cfg.LLM.Burst = ParseInt("AB_LLM_BURST", cfg.LLM.Burst)
	cfg.LLM.MaxParallel = ParseInt("AB_LLM_MAX_PARALLEL", cfg.LLM.MaxParallel)
	cfg.Redis.Addr = ParseString("AB_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = ParseString("AB_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = ParseInt("AB_REDIS_DB", cfg.Redis.DB)
}

// Validate rejects configurations that cannot produce a working daemon.
func Validate(cfg AppConfig) error {
	if _, _, err := net.SplitHostPort(strings.TrimPrefix(cfg.ListenAddr, "unix:")); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", cfg.ListenAddr, err)
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("data dir must not be empty")
	}
	if !filepath.IsAbs(cfg.DataDir) {
		return fmt.Errorf("data dir %q must be absolute", cfg.DataDir)
	}
	if cfg.Presign.Secret != "" && len(cfg.Presign.Secret) < 16 {
		return fmt.Errorf("presign secret too short: need at least 16 bytes, got %d", len(cfg.Presign.Secret))
	}
	if cfg.Presign.TTL <= 0 {
		return fmt.Errorf("presign TTL must be positive, got %s", cfg.Presign.TTL)
	}
	if cfg.LLM.MaxParallel < 1 {
		return fmt.Errorf("llm max parallel must be at least 1, got %d", cfg.LLM.MaxParallel)
	}
	if cfg.LLM.APIKey != "" && cfg.LLM.Model == "" {
		return fmt.Errorf("llm model is required when an API key is configured")
	}
	if cfg.RateLimitEnabled && cfg.RateLimitRequests < 1 {
		return fmt.Errorf("rate limit requests must be at least 1, got %d", cfg.RateLimitRequests)
	}
	return nil
}
