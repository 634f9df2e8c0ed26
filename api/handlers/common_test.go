package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/247void/twitterScraper/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Common 函数测试
// =============================================================================

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusAccepted, []int{1, 2, 3})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.JSONEq(t, `[1,2,3]`, w.Body.String())
}

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set(RequestIDHeader, "req-1")

	WriteSuccess(w, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, map[string]any{"key": "value"}, resp.Data)
	assert.Nil(t, resp.Error)
	assert.False(t, resp.Timestamp.IsZero())
	assert.Equal(t, "req-1", resp.RequestID)
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   types.ErrorCode
	}{
		{"invalid request", types.NewError(types.ErrInvalidRequest, "term is required"), http.StatusBadRequest, types.ErrInvalidRequest},
		{"not found", types.NewError(types.ErrNotFound, "collector not found"), http.StatusNotFound, types.ErrNotFound},
		{"action required", types.NewError(types.ErrActionRequired, "verify"), http.StatusConflict, types.ErrActionRequired},
		{"rate limited", types.NewError(types.ErrRateLimited, "slow down"), http.StatusTooManyRequests, types.ErrRateLimited},
		{"platform", types.NewError(types.ErrPlatform, "upstream"), http.StatusBadGateway, types.ErrPlatform},
		{"unavailable", types.NewError(types.ErrServiceUnavailable, "none"), http.StatusServiceUnavailable, types.ErrServiceUnavailable},
		{"persistence", types.NewError(types.ErrPersistence, "db"), http.StatusInternalServerError, types.ErrPersistence},
		{"explicit status wins", types.NewError(types.ErrInternalError, "x").WithHTTPStatus(http.StatusTeapot), http.StatusTeapot, types.ErrInternalError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, types.ErrInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err, zap.NewNop())

			assert.Equal(t, tt.expectedStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Nil(t, resp.Data)
			require.NotNil(t, resp.Error)
			assert.Equal(t, string(tt.expectedCode), resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestWriteError_HidesPlainErrorText(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, errors.New("dial tcp 10.0.0.1: secret"), nil)

	resp := decodeResponse(t, w)
	assert.Equal(t, "internal error", resp.Error.Message)
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestWriteError_CarriesCollector(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, types.NewError(types.ErrPlatform, "down").WithCollector("alpha").WithRetryable(true), nil)

	resp := decodeResponse(t, w)
	assert.Equal(t, "alpha", resp.Error.Collector)
	assert.True(t, resp.Error.Retryable)
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 50, false},
		{"n=10", 10, false},
		{"n=1", 1, false},
		{"n=1000", 1000, false},
		{"n=0", 0, true},
		{"n=1001", 0, true},
		{"n=abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/x?"+tt.query, nil)
			got, err := QueryInt(r, "n", 50, 1, 1000)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryBool(t *testing.T) {
	for query, want := range map[string]bool{"": false, "f=true": true, "f=1": true, "f=false": false} {
		r := httptest.NewRequest(http.MethodGet, "/x?"+query, nil)
		got, err := QueryBool(r, "f")
		require.NoError(t, err, query)
		assert.Equal(t, want, got, query)
	}

	r := httptest.NewRequest(http.MethodGet, "/x?f=maybe", nil)
	_, err := QueryBool(r, "f")
	assert.Error(t, err)
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec)

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusOK) // 第二次忽略
	_, _ = rw.Write([]byte("x"))

	assert.Equal(t, http.StatusNotFound, rw.StatusCode)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, rw.Written)
}
