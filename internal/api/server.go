// SPDX-License-Identifier: MIT

// Package api implements the HTTP surface of the service: SQL export,
// routine generation, presigned file retrieval and health endpoints.
package api

import (
	"context"
	"net/http"
	"sync"

	"assistbridge/internal/article"
	"assistbridge/internal/blobstore"
	"assistbridge/internal/config"
	"assistbridge/internal/health"
	"assistbridge/internal/routines"
	"assistbridge/internal/warehouse"
)

// QueryExecutor runs read-only SQL against the warehouse.
type QueryExecutor interface {
	ExecuteQuery(ctx context.Context, query string) (*warehouse.ResultSet, error)
}

// BlobStore persists exported files and serves them back by key.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (blobstore.Object, error)
	Get(ctx context.Context, key string) (blobstore.Object, []byte, error)
}

// RoutineRunner converts a set of articles into routines.
type RoutineRunner interface {
	Run(ctx context.Context, articles []article.Article) (*routines.Result, error)
}

// ArticleSource returns the current article snapshot.
type ArticleSource func() []article.Article

// Deps carries the collaborators a Server needs. The server never closes
// them; lifecycle belongs to the caller.
type Deps struct {
	Executor  QueryExecutor
	Blobs     BlobStore
	Presigner *blobstore.Presigner
	Pipeline  RoutineRunner
	Articles  ArticleSource
	Health    *health.Manager
}

// Server hosts the HTTP API. Config is swappable at runtime via ApplyConfig,
// guarded by mu like every other read of s.cfg.
type Server struct {
	mu   sync.RWMutex
	cfg  config.AppConfig
	deps Deps

	lastRun *routines.Result

	handler http.Handler
}

// New constructs a Server and builds its routes.
func New(cfg config.AppConfig, deps Deps) *Server {
	s := &Server{cfg: cfg, deps: deps}
	s.handler = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// ApplyConfig swaps the active configuration. Only fields that are safe to
// change at runtime take effect; listen addresses require a restart.
func (s *Server) ApplyConfig(cfg config.AppConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *Server) snapshotConfig() config.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Server) setLastRun(res *routines.Result) {
	s.mu.Lock()
	s.lastRun = res
	s.mu.Unlock()
}

func (s *Server) getLastRun() *routines.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}
