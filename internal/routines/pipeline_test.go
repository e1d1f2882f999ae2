package routines

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"assistbridge/internal/article"
	"assistbridge/internal/cache"
	"assistbridge/internal/llm"
)

func testArticles(n int) []article.Article {
	articles := make([]article.Article, 0, n)
	for i := 0; i < n; i++ {
		articles = append(articles, article.Article{
			ID:       fmt.Sprintf("kb-%d", i),
			Category: "billing",
			Content:  fmt.Sprintf("article body %d", i),
		})
	}
	return articles
}

func TestRunCollectsPositionally(t *testing.T) {
	completer := &llm.Mock{
		CompleteFn: func(_ context.Context, prompt llm.Prompt) (string, error) {
			return "routine for: " + prompt.User, nil
		},
	}
	p, err := New(Deps{Completer: completer, Model: "test-model", Parallelism: 3})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	articles := testArticles(10)
	result, err := p.Run(context.Background(), articles)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Routines) != 10 {
		t.Fatalf("rows: got %d, want 10", len(result.Routines))
	}
	// Completion order is unordered, but recollection is positional.
	for i, r := range result.Routines {
		if r.ArticleID != articles[i].ID {
			t.Errorf("row %d: got article %q, want %q", i, r.ArticleID, articles[i].ID)
		}
		if !strings.Contains(r.Generated, articles[i].Content) {
			t.Errorf("row %d: generated text does not reference its own article", i)
		}
	}
	if result.Generated != 10 || result.Failed != 0 {
		t.Errorf("counters: %+v", result)
	}
}

func TestRunContinuesPastItemFailures(t *testing.T) {
	var calls atomic.Int64
	completer := &llm.Mock{
		CompleteFn: func(_ context.Context, prompt llm.Prompt) (string, error) {
			n := calls.Add(1)
			if n%2 == 0 {
				return "", errors.New("vendor unavailable")
			}
			return "1. Do the thing.", nil
		},
	}
	p, err := New(Deps{Completer: completer, Model: "test-model"})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	result, err := p.Run(context.Background(), testArticles(6))
	if err != nil {
		t.Fatalf("run must not fail on item errors: %v", err)
	}
	if result.Failed != 3 || result.Generated != 3 {
		t.Errorf("expected 3 failed / 3 generated, got %+v", result)
	}
	for _, r := range result.Routines {
		if r.Err == "" && r.Generated == "" {
			t.Errorf("row %q has neither output nor recorded error", r.ArticleID)
		}
	}
}

func TestRunHonorsParallelismLimit(t *testing.T) {
	var mu sync.Mutex
	inflight, peak := 0, 0

	completer := &llm.Mock{
		CompleteFn: func(ctx context.Context, _ llm.Prompt) (string, error) {
			mu.Lock()
			inflight++
			if inflight > peak {
				peak = inflight
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			inflight--
			mu.Unlock()
			return "ok", nil
		},
	}
	p, err := New(Deps{Completer: completer, Model: "m", Parallelism: 2})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	if _, err := p.Run(context.Background(), testArticles(8)); err != nil {
		t.Fatalf("run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if peak > 2 {
		t.Errorf("parallelism exceeded: peak %d, limit 2", peak)
	}
}

func TestRunUsesCache(t *testing.T) {
	completer := &llm.Mock{}
	c := cache.NewMemory(0)
	p, err := New(Deps{Completer: completer, Model: "m", Cache: c, CacheTTL: time.Hour})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	articles := testArticles(3)
	if _, err := p.Run(context.Background(), articles); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstCalls := completer.Calls()

	result, err := p.Run(context.Background(), articles)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if completer.Calls() != firstCalls {
		t.Errorf("second run issued %d extra completions", completer.Calls()-firstCalls)
	}
	if result.Cached != 3 {
		t.Errorf("expected 3 cached rows, got %+v", result)
	}
}

func TestRunRejectsDuplicateIDs(t *testing.T) {
	p, err := New(Deps{Completer: &llm.Mock{}, Model: "m"})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	articles := []article.Article{
		{ID: "dup", Category: "a", Content: "x"},
		{ID: "dup", Category: "b", Content: "y"},
	}
	if _, err := p.Run(context.Background(), articles); !errors.Is(err, article.ErrDuplicateID) {
		t.Errorf("got %v, want ErrDuplicateID", err)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	completer := &llm.Mock{
		CompleteFn: func(ctx context.Context, _ llm.Prompt) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	p, err := New(Deps{Completer: completer, Model: "m", Parallelism: 2})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := p.Run(ctx, testArticles(4)); err == nil {
		t.Fatal("expected error when context is cancelled")
	}
}

func TestNewRequiresCompleter(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Fatal("expected error for missing completer")
	}
}

func TestExportCSVWritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routines.csv")
	routines := []Routine{
		{ArticleID: "kb-1", Category: "billing", Source: "src", Generated: "1. Step.", Model: "m", GeneratedAt: time.Unix(1_900_000_000, 0).UTC()},
		{ArticleID: "kb-2", Category: "shipping", Source: "src2", Err: "vendor unavailable"},
	}

	if err := ExportCSV(context.Background(), path, routines); err != nil {
		t.Fatalf("export: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	out := string(data)
	if !strings.HasPrefix(out, "article_id,category,source,generated,model,generated_at,cached,error") {
		t.Errorf("missing header: %q", out)
	}
	if !strings.Contains(out, "kb-1") || !strings.Contains(out, "vendor unavailable") {
		t.Errorf("rows missing from export: %q", out)
	}
}
