// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads and validates assistbridge configuration with
// precedence ENV > config file > defaults.
package config

import "time"

// AppConfig is the fully resolved runtime configuration.
type AppConfig struct {
	Version string

	// Logging
	LogLevel   string
	LogService string

	// HTTP
	ListenAddr     string
	MetricsEnabled bool
	MetricsAddr    string
	TrustedProxies string // CSV of CIDRs allowed to set X-Forwarded-For

	// Auth
	APIToken      string
	AuthAnonymous bool // explicit opt-out of auth when no token is configured

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Data
	DataDir      string
	ArticlesPath string // CSV of knowledge base articles

	Warehouse WarehouseConfig
	Blobstore BlobstoreConfig
	Presign   PresignConfig
	LLM       LLMConfig
	Redis     RedisConfig
}

// WarehouseConfig configures the query execution engine.
type WarehouseConfig struct {
	DBPath        string
	QueryTimeout  time.Duration
	MaxResultRows int
}

// BlobstoreConfig configures the local object store.
type BlobstoreConfig struct {
	Dir       string
	ObjectTTL time.Duration
}

// PresignConfig configures presigned download URLs.
type PresignConfig struct {
	Secret        string
	TTL           time.Duration
	PublicBaseURL string // external base URL presented to clients
}

// LLMConfig configures the hosted text-generation client.
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	RequestsPS  float64 // client-side requests per second toward the vendor
	Burst       int
	MaxParallel int // fan-out width of the routine pipeline
}

// RedisConfig configures the optional Redis routine cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ServerConfig holds HTTP server transport parameters.
type ServerConfig struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
}

// ParseServerConfig builds ServerConfig from the environment.
func ParseServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:      ParseString("AB_LISTEN", ":8080"),
		ReadTimeout:     ParseDuration("AB_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    ParseDuration("AB_WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:     ParseDuration("AB_IDLE_TIMEOUT", 120*time.Second),
		ShutdownTimeout: ParseDuration("AB_SHUTDOWN_TIMEOUT", 20*time.Second),
		MaxHeaderBytes:  ParseInt("AB_MAX_HEADER_BYTES", 1<<20),
	}
}
