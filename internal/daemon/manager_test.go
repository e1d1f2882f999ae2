// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"

	"assistbridge/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		ListenAddr:      "127.0.0.1:0",
		ReadTimeout:     2 * time.Second,
		WriteTimeout:    2 * time.Second,
		IdleTimeout:     2 * time.Second,
		ShutdownTimeout: 2 * time.Second,
		MaxHeaderBytes:  1 << 20,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewManagerRequiresAPIHandler(t *testing.T) {
	_, err := NewManager(testServerConfig(), Deps{Logger: zerolog.Nop()})
	if err == nil {
		t.Fatal("expected error for missing API handler")
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	m, err := NewManager(testServerConfig(), Deps{
		Logger:     zerolog.Nop(),
		APIHandler: okHandler(),
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not shut down in time")
	}
}

func TestShutdownHooksRunInReverseOrder(t *testing.T) {
	m, err := NewManager(testServerConfig(), Deps{
		Logger:     zerolog.Nop(),
		APIHandler: okHandler(),
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	var order []string
	m.RegisterShutdownHook("first", func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	m.RegisterShutdownHook("second", func(ctx context.Context) error {
		order = append(order, "second")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not shut down in time")
	}

	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Fatalf("hooks ran in order %v, want [second first]", order)
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	m, err := NewManager(testServerConfig(), Deps{
		Logger:     zerolog.Nop(),
		APIHandler: okHandler(),
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if err := m.Shutdown(context.Background()); err != ErrManagerNotStarted {
		t.Fatalf("Shutdown before Start = %v, want ErrManagerNotStarted", err)
	}
}
