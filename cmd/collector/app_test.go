package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/247void/twitterScraper/api/handlers"
	"github.com/247void/twitterScraper/config"
	"github.com/247void/twitterScraper/internal/clock"
	"github.com/247void/twitterScraper/platform"
	"github.com/247void/twitterScraper/testutil"
)

var nsSeq atomic.Int64

// uniqueNamespace 指标注册在默认 registry 上，每个 App 需要独立命名空间
func uniqueNamespace() string {
	return fmt.Sprintf("app_test_%d", nsSeq.Add(1))
}

func dryRunConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	accounts := filepath.Join(dir, "accounts_alpha.txt")
	require.NoError(t, os.WriteFile(accounts, []byte("# watchlist\n@alice\nbob\ncarol\n"), 0o644))

	cfg := config.DefaultConfig()
	cfg.Server.HTTPPort = 0
	cfg.Database.Name = filepath.Join(dir, "collector.db")
	cfg.RateLimit.Ledger = config.LedgerMemory
	cfg.Collectors = []config.CollectorConfig{
		{ID: "alpha", DryRun: true, AccountsFile: accounts, Seed: 7},
		{ID: "beta", DryRun: true, AccountsFile: filepath.Join(dir, "missing.txt")},
	}
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	app, err := NewApp(context.Background(), cfg, zap.NewNop(), AppOptions{
		Clock:            clock.NewFake(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
		MetricsNamespace: uniqueNamespace(),
	})
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, handlers.Response) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	var resp handlers.Response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func TestNewApp_DryRun(t *testing.T) {
	app := newTestApp(t, dryRunConfig(t))
	h := app.Handler()

	require.Len(t, app.Collectors(), 2)
	assert.Equal(t, 3, app.Collectors()[0].Status(0).Accounts)
	assert.Zero(t, app.Collectors()[1].Status(0).Accounts)

	w, _ := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(handlers.RequestIDHeader))

	w, _ = get(t, h, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp := get(t, h, "/collectors")
	require.Equal(t, http.StatusOK, w.Code)
	list, ok := resp.Data.([]any)
	require.True(t, ok, w.Body.String())
	assert.Len(t, list, 2)

	w, _ = get(t, h, "/collectors/gamma")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewApp_SearchThenTweets(t *testing.T) {
	app := newTestApp(t, dryRunConfig(t))
	h := app.Handler()

	w, resp := get(t, h, "/search?search_type=ticker&term=BTC&collector_id=beta")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := resp.Data.(map[string]any)
	assert.Equal(t, false, data["cached"])
	assert.Equal(t, "beta", data["collector_id"])
	metrics := data["metrics"].(map[string]any)
	assert.Equal(t, "BTC", metrics["term"])

	w, resp = get(t, h, "/search?search_type=ticker&term=BTC")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp.Data.(map[string]any)["cached"])

	w, resp = get(t, h, "/tweets?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	tweets := resp.Data.(map[string]any)
	assert.EqualValues(t, 5, tweets["count"])
}

func TestNewApp_LiveClientRejected(t *testing.T) {
	cfg := dryRunConfig(t)
	cfg.Collectors[0].DryRun = false
	cfg.Collectors[0].Username = "bot"

	_, err := NewApp(context.Background(), cfg, zap.NewNop(), AppOptions{MetricsNamespace: uniqueNamespace()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dry_run")
}

func TestNewApp_ClientFactoryReceivesTransport(t *testing.T) {
	cfg := dryRunConfig(t)
	verify := false
	cfg.Collectors[0].DryRun = false
	cfg.Collectors[0].Username = "bot"
	cfg.Collectors[0].VerifySSL = &verify
	cfg.Collectors[0].Proxy = platform.ProxyConfig{Host: "proxy", Port: "8080"}

	var (
		gotID        string
		gotTransport *http.Transport
	)
	app, err := NewApp(context.Background(), cfg, zap.NewNop(), AppOptions{
		MetricsNamespace: uniqueNamespace(),
		ClientFactory: func(cc config.CollectorConfig, tr *http.Transport) (platform.Client, error) {
			gotID, gotTransport = cc.ID, tr
			return platform.NewSimulated(1), nil
		},
	})
	require.NoError(t, err)
	t.Cleanup(app.Close)

	assert.Equal(t, "alpha", gotID)
	require.NotNil(t, gotTransport)
	assert.True(t, gotTransport.TLSClientConfig.InsecureSkipVerify)
	pu, err := gotTransport.Proxy(httptest.NewRequest(http.MethodGet, "https://example.com", nil))
	require.NoError(t, err)
	assert.Equal(t, "proxy:8080", pu.Host)
	assert.Len(t, app.Collectors(), 2)
}

func TestNewApp_ClientFactoryError(t *testing.T) {
	cfg := dryRunConfig(t)
	cfg.Collectors[0].DryRun = false

	_, err := NewApp(context.Background(), cfg, zap.NewNop(), AppOptions{
		MetricsNamespace: uniqueNamespace(),
		ClientFactory: func(config.CollectorConfig, *http.Transport) (platform.Client, error) {
			return nil, errors.New("no session cookie")
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no session cookie")
	assert.Contains(t, err.Error(), "alpha")
}

func TestNewApp_UnknownPreset(t *testing.T) {
	cfg := dryRunConfig(t)
	cfg.Collectors[1].Workflow = "does_not_exist"

	_, err := NewApp(context.Background(), cfg, zap.NewNop(), AppOptions{MetricsNamespace: uniqueNamespace()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "beta")
}

func TestNewApp_ControlSecret(t *testing.T) {
	cfg := dryRunConfig(t)
	cfg.Server.ControlSecret = "operator-secret"
	app := newTestApp(t, cfg)
	h := app.Handler()

	post := func(path, token string) int {
		r := httptest.NewRequest(http.MethodPost, path, nil)
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, post("/collectors/alpha/pause", ""))
	assert.False(t, app.Collectors()[0].Paused())

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("operator-secret"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, post("/collectors/alpha/pause", token))
	assert.True(t, app.Collectors()[0].Paused())
	assert.Equal(t, http.StatusOK, post("/collectors/alpha/resume", token))
	assert.False(t, app.Collectors()[0].Paused())

	// 读接口不需要令牌
	w, _ := get(t, h, "/collectors/alpha")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	cfg := dryRunConfig(t)
	app, err := NewApp(context.Background(), cfg, zap.NewNop(), AppOptions{MetricsNamespace: uniqueNamespace()})
	require.NoError(t, err)
	defer app.Close()

	ctx, cancel := context.WithCancel(testutil.TestContext(t))
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool { return app.server.IsRunning() }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
