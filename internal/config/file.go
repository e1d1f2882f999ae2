package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the YAML config file layout. All fields are optional;
// zero values mean "not set" and fall through to defaults or ENV.
type FileConfig struct {
	LogLevel string `yaml:"logLevel"`

	API struct {
		ListenAddr     string `yaml:"listenAddr"`
		Token          string `yaml:"token"`
		TrustedProxies string `yaml:"trustedProxies"`
	} `yaml:"api"`

	Metrics struct {
		Enabled *bool  `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`

	RateLimit struct {
		Enabled  *bool         `yaml:"enabled"`
		Requests int           `yaml:"requests"`
		Window   time.Duration `yaml:"window"`
	} `yaml:"rateLimit"`

	DataDir      string `yaml:"dataDir"`
	ArticlesPath string `yaml:"articlesPath"`

	Warehouse struct {
		DBPath        string        `yaml:"dbPath"`
		QueryTimeout  time.Duration `yaml:"queryTimeout"`
		MaxResultRows int           `yaml:"maxResultRows"`
	} `yaml:"warehouse"`

	Blobstore struct {
		Dir       string        `yaml:"dir"`
		ObjectTTL time.Duration `yaml:"objectTTL"`
	} `yaml:"blobstore"`

	Presign struct {
		Secret        string        `yaml:"secret"`
		TTL           time.Duration `yaml:"ttl"`
		PublicBaseURL string        `yaml:"publicBaseURL"`
	} `yaml:"presign"`

	LLM struct {
		BaseURL     string  `yaml:"baseURL"`
		APIKey      string  `yaml:"apiKey"`
		Model       string  `yaml:"model"`
		RequestsPS  float64 `yaml:"requestsPerSecond"`
		Burst       int     `yaml:"burst"`
		MaxParallel int     `yaml:"maxParallel"`
	} `yaml:"llm"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// LoadFile reads and parses the YAML config file at path.
// A missing file is not an error; it returns a nil FileConfig.
func LoadFile(path string) (*FileConfig, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path) // #nosec G304 -- operator supplied path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	var fc FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return &fc, nil
}
