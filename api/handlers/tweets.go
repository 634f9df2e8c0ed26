package handlers

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/247void/twitterScraper/store"
	"github.com/247void/twitterScraper/types"
)

// TweetQuerier 读取已存储的推文
type TweetQuerier interface {
	QueryTweets(ctx context.Context, f store.TweetFilter) ([]store.Tweet, error)
}

// TweetHandler 提供 GET /tweets
type TweetHandler struct {
	store  TweetQuerier
	now    func() time.Time
	logger *zap.Logger
}

// TweetList /tweets 的返回数据
type TweetList struct {
	Tweets []store.Tweet `json:"tweets"`
	Count  int           `json:"count"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// NewTweetHandler 创建处理器
func NewTweetHandler(q TweetQuerier, logger *zap.Logger) *TweetHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TweetHandler{store: q, now: time.Now, logger: logger.With(zap.String("handler", "tweets"))}
}

// HandleList GET /tweets?limit&offset&hours&username&min_likes，按发布时间倒序
func (h *TweetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	f, err := h.parseFilter(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	tweets, err := h.store.QueryTweets(r.Context(), f)
	if err != nil {
		WriteError(w, types.NewError(types.ErrPersistence, "query tweets failed").WithCause(err), h.logger)
		return
	}
	if tweets == nil {
		tweets = []store.Tweet{}
	}

	WriteSuccess(w, TweetList{Tweets: tweets, Count: len(tweets), Limit: f.Limit, Offset: f.Offset})
}

func (h *TweetHandler) parseFilter(r *http.Request) (store.TweetFilter, error) {
	var f store.TweetFilter
	var err error
	if f.Limit, err = QueryInt(r, "limit", 50, 1, store.MaxQueryLimit); err != nil {
		return f, err
	}
	if f.Offset, err = QueryInt(r, "offset", 0, 0, math.MaxInt32); err != nil {
		return f, err
	}
	if f.Hours, err = QueryInt(r, "hours", 0, 0, math.MaxInt32); err != nil {
		return f, err
	}
	if f.MinLikes, err = QueryInt(r, "min_likes", 0, 0, math.MaxInt32); err != nil {
		return f, err
	}
	f.Username = strings.TrimPrefix(strings.TrimSpace(r.URL.Query().Get("username")), "@")
	f.Now = h.now()
	return f, nil
}
