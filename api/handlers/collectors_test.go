package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/247void/twitterScraper/collector"
	"github.com/247void/twitterScraper/types"
)

// fakeCollector 记录调用次数，Search 返回固定结果
type fakeCollector struct {
	id string

	mu       sync.Mutex
	paused   bool
	searches int
	err      error
}

func (f *fakeCollector) ID() string { return f.id }

func (f *fakeCollector) Search(_ context.Context, searchType, term string) (*collector.SearchMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	if f.err != nil {
		return nil, f.err
	}
	return &collector.SearchMetrics{
		SearchType: searchType,
		Term:       term,
		TopTweets:  collector.SectionMetrics{TotalTweets: f.searches},
	}, nil
}

func (f *fakeCollector) Pause() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	changed := !f.paused
	f.paused = true
	return changed
}

func (f *fakeCollector) Resume() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	changed := f.paused
	f.paused = false
	return changed
}

func (f *fakeCollector) Status(int) collector.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return collector.Status{ID: f.id, Paused: f.paused}
}

func (f *fakeCollector) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searches
}

func TestCollectors_Resolve(t *testing.T) {
	a, b := &fakeCollector{id: "a"}, &fakeCollector{id: "b"}

	set := NewCollectors("b", a, b, &fakeCollector{id: "a"})
	assert.Equal(t, 2, set.Len())

	c, ok := set.Resolve("a")
	require.True(t, ok)
	assert.Equal(t, "a", c.ID())

	// 未知 id 退回默认
	c, ok = set.Resolve("zzz")
	require.True(t, ok)
	assert.Equal(t, "b", c.ID())

	// 默认不存在时取第一个
	c, ok = NewCollectors("missing", a, b).Resolve("")
	require.True(t, ok)
	assert.Equal(t, "a", c.ID())

	_, ok = NewCollectors("").Resolve("a")
	assert.False(t, ok)

	_, ok = set.Get("zzz")
	assert.False(t, ok)
}

func newCollectorMux(set *Collectors) *http.ServeMux {
	h := NewCollectorHandler(set, zap.NewNop())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /collectors", h.HandleList)
	mux.HandleFunc("GET /collectors/{id}", h.HandleGet)
	mux.HandleFunc("POST /collectors/{id}/pause", h.HandlePause)
	mux.HandleFunc("POST /collectors/{id}/resume", h.HandleResume)
	return mux
}

func doRequest(mux http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestCollectorHandler_PauseResume(t *testing.T) {
	a := &fakeCollector{id: "alpha"}
	mux := newCollectorMux(NewCollectors("", a))

	w := doRequest(mux, http.MethodPost, "/collectors/alpha/pause")
	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Data PauseResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, PauseResult{ID: "alpha", Paused: true, Changed: true}, env.Data)

	// 再次暂停不改变状态
	w = doRequest(mux, http.MethodPost, "/collectors/alpha/pause")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.False(t, env.Data.Changed)

	w = doRequest(mux, http.MethodPost, "/collectors/alpha/resume")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, PauseResult{ID: "alpha", Paused: false, Changed: true}, env.Data)
	assert.False(t, a.Status(0).Paused)
}

func TestCollectorHandler_ListAndGet(t *testing.T) {
	mux := newCollectorMux(NewCollectors("", &fakeCollector{id: "alpha"}, &fakeCollector{id: "beta", paused: true}))

	w := doRequest(mux, http.MethodGet, "/collectors")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []collector.Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 2)
	assert.Equal(t, "alpha", list.Data[0].ID)
	assert.True(t, list.Data[1].Paused)

	w = doRequest(mux, http.MethodGet, "/collectors/beta")
	require.Equal(t, http.StatusOK, w.Code)
	var one struct {
		Data collector.Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &one))
	assert.Equal(t, "beta", one.Data.ID)
}

func TestCollectorHandler_NotFound(t *testing.T) {
	mux := newCollectorMux(NewCollectors(""))

	for _, target := range []string{"/collectors/nope", "/collectors/nope/pause"} {
		method := http.MethodGet
		if target != "/collectors/nope" {
			method = http.MethodPost
		}
		w := doRequest(mux, method, target)
		assert.Equal(t, http.StatusNotFound, w.Code, target)
		var resp Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, string(types.ErrNotFound), resp.Error.Code)
	}
}

func TestCollectorHandler_MethodNotAllowed(t *testing.T) {
	mux := newCollectorMux(NewCollectors("", &fakeCollector{id: "alpha"}))
	w := doRequest(mux, http.MethodGet, "/collectors/alpha/pause")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
