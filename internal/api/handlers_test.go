// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"assistbridge/internal/article"
	"assistbridge/internal/blobstore"
	"assistbridge/internal/cache"
	"assistbridge/internal/config"
	"assistbridge/internal/health"
	"assistbridge/internal/llm"
	"assistbridge/internal/routines"
	"assistbridge/internal/warehouse"
)

const testToken = "test-token-123456"

func testArticles() []article.Article {
	return []article.Article{
		{ID: "a-1", Category: "billing", Content: "How to update a payment method."},
		{ID: "a-2", Category: "account", Content: "How to reset a password."},
	}
}

func seedWarehouse(t *testing.T) *sql.DB {
	t.Helper()
	db, err := warehouse.Open(filepath.Join(t.TempDir(), "wh.db"), warehouse.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE tickets (id INTEGER PRIMARY KEY, subject TEXT, state TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO tickets (subject, state) VALUES ('refund request', 'open'), ('login issue', 'closed')`)
	require.NoError(t, err)
	return db
}

func newTestServer(t *testing.T, mutate func(*config.AppConfig)) (*Server, *httptest.Server) {
	t.Helper()

	db := seedWarehouse(t)

	blobs, err := blobstore.Open(t.TempDir(), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobs.Close() })

	presigner, err := blobstore.NewPresigner("unit-test-secret-0123456789", 15*time.Minute, "http://files.local")
	require.NoError(t, err)

	pipeline, err := routines.New(routines.Deps{
		Completer:   &llm.Mock{},
		Model:       "mock-model",
		Cache:       cache.NewNoOp(),
		Parallelism: 2,
	})
	require.NoError(t, err)

	cfg := config.AppConfig{
		Version:  "test",
		APIToken: testToken,
		Warehouse: config.WarehouseConfig{
			QueryTimeout:  5 * time.Second,
			MaxResultRows: 1000,
		},
		Presign: config.PresignConfig{TTL: 15 * time.Minute},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	srv := New(cfg, Deps{
		Executor:  warehouse.NewExecutor(db, cfg.Warehouse.QueryTimeout, cfg.Warehouse.MaxResultRows),
		Blobs:     blobs,
		Presigner: presigner,
		Pipeline:  pipeline,
		Articles:  testArticles,
		Health:    health.NewManager("test"),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func doJSON(t *testing.T, method, rawURL, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, rawURL, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestQueryExportsCSVAndPresignsURL(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/query", testToken,
		map[string]string{"query": "SELECT id, subject FROM tickets ORDER BY id"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var qr queryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&qr))
	require.Equal(t, 2, qr.Rows)
	require.Equal(t, []string{"id", "subject"}, qr.Columns)
	require.Len(t, qr.Files, 1)
	require.Contains(t, qr.Files[0], "/files/")
	require.Contains(t, qr.Files[0], "sig=")

	// Follow the presigned link against the same handler.
	u, err := url.Parse(qr.Files[0])
	require.NoError(t, err)
	dl, err := http.Get(ts.URL + u.Path + "?" + u.RawQuery)
	require.NoError(t, err)
	defer dl.Body.Close()
	require.Equal(t, http.StatusOK, dl.StatusCode)
	require.Equal(t, "text/csv", dl.Header.Get("Content-Type"))

	var body bytes.Buffer
	_, err = body.ReadFrom(dl.Body)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(body.String(), "id,subject\n"))
	require.Contains(t, body.String(), "refund request")
}

func TestQueryRejectsWrites(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/query", testToken,
		map[string]string{"query": "DELETE FROM tickets"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQueryRejectsEmpty(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/query", testToken,
		map[string]string{"query": "   "})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQueryRequiresToken(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/query", "",
		map[string]string{"query": "SELECT 1"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/query", "wrong-token",
		map[string]string{"query": "SELECT 1"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthFailsClosedWithoutToken(t *testing.T) {
	_, ts := newTestServer(t, func(cfg *config.AppConfig) { cfg.APIToken = "" })

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/query", "",
		map[string]string{"query": "SELECT 1"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthAnonymousOptOut(t *testing.T) {
	_, ts := newTestServer(t, func(cfg *config.AppConfig) {
		cfg.APIToken = ""
		cfg.AuthAnonymous = true
	})

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/query", "",
		map[string]string{"query": "SELECT count(*) FROM tickets"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGenerateRoutines(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/routines/generate", testToken, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var gr generateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&gr))
	require.Equal(t, 2, gr.Generated)
	require.Zero(t, gr.Failed)
	require.Len(t, gr.Routines, 2)
	require.Equal(t, "a-1", gr.Routines[0].ArticleID)
	require.Equal(t, "a-2", gr.Routines[1].ArticleID)
	require.Contains(t, gr.URL, "/files/")

	// The run is now retrievable.
	last := doJSON(t, http.MethodGet, ts.URL+"/api/v1/routines", testToken, nil)
	defer last.Body.Close()
	require.Equal(t, http.StatusOK, last.StatusCode)
}

func TestGenerateRoutinesCategoryFilter(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/routines/generate", testToken,
		map[string][]string{"categories": {"billing"}})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var gr generateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&gr))
	require.Len(t, gr.Routines, 1)
	require.Equal(t, "billing", gr.Routines[0].Category)
}

func TestGenerateRoutinesUnknownCategory(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/routines/generate", testToken,
		map[string][]string{"categories": {"nonexistent"}})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetRoutinesBeforeAnyRun(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/routines", testToken, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFileDownloadRejectsTamperedSignature(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/query", testToken,
		map[string]string{"query": "SELECT 1 AS one"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var qr queryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&qr))
	require.Len(t, qr.Files, 1)

	u, err := url.Parse(qr.Files[0])
	require.NoError(t, err)
	q := u.Query()
	q.Set("sig", strings.Repeat("0", len(q.Get("sig"))))
	dl, err := http.Get(ts.URL + u.Path + "?" + q.Encode())
	require.NoError(t, err)
	defer dl.Body.Close()
	require.Equal(t, http.StatusForbidden, dl.StatusCode)
}

func TestFileDownloadMissingParams(t *testing.T) {
	_, ts := newTestServer(t, nil)

	dl, err := http.Get(ts.URL + "/files/nope.csv")
	require.NoError(t, err)
	defer dl.Body.Close()
	require.Equal(t, http.StatusBadRequest, dl.StatusCode)
}

func TestHealthAndReadiness(t *testing.T) {
	_, ts := newTestServer(t, nil)

	hz, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer hz.Body.Close()
	require.Equal(t, http.StatusOK, hz.StatusCode)

	rz, err := http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	defer rz.Body.Close()
	require.Equal(t, http.StatusOK, rz.StatusCode)
}

func TestApplyConfigSwapsToken(t *testing.T) {
	srv, ts := newTestServer(t, nil)

	cfg := srv.snapshotConfig()
	cfg.APIToken = "rotated-token-654321"
	srv.ApplyConfig(cfg)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/query", testToken,
		map[string]string{"query": "SELECT 1"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/query", "rotated-token-654321",
		map[string]string{"query": "SELECT 1"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
