package collector

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/247void/twitterScraper/platform"
	"github.com/247void/twitterScraper/types"
)

// SearchTypeTicker searches prefix the term with "$".
const SearchTypeTicker = "ticker"

// TimeRange is the span of tweet timestamps in a result section.
type TimeRange struct {
	Oldest *time.Time `json:"oldest"`
	Newest *time.Time `json:"newest"`
}

// PerTweet is an average engagement figure.
type PerTweet struct {
	Likes    float64 `json:"likes"`
	Retweets float64 `json:"retweets"`
}

// SectionMetrics summarizes one search ordering.
type SectionMetrics struct {
	TotalTweets        int       `json:"total_tweets"`
	UniqueAuthors      int       `json:"unique_authors"`
	TimeRange          TimeRange `json:"time_range"`
	TimespanHours      float64   `json:"timespan_hours"`
	TweetsPerHour      float64   `json:"tweets_per_hour"`
	EngagementPerTweet PerTweet  `json:"engagement_per_tweet"`
}

// SearchMetadata describes how a search was run.
type SearchMetadata struct {
	PagesFetched  int     `json:"pages_fetched"`
	TweetsPerPage float64 `json:"tweets_per_page"`
}

// SearchMetrics is the result of an interactive search.
type SearchMetrics struct {
	SearchType      string         `json:"search_type"`
	Term            string         `json:"term"`
	SearchTimestamp time.Time      `json:"search_timestamp"`
	TopTweets       SectionMetrics `json:"top_tweets"`
	RecentTweets    SectionMetrics `json:"recent_tweets"`
	Metadata        SearchMetadata `json:"metadata"`
}

// Search runs an interactive search while the workflow is held, signing in
// first when the collector has not connected yet. Searches on one collector
// are serialized; the workflow is resumed on return unless it was already
// paused before the search started.
func (c *Collector) Search(ctx context.Context, searchType, term string) (*SearchMetrics, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "search term is required").WithHTTPStatus(http.StatusBadRequest)
	}

	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	c.searchMu.Lock()
	defer c.searchMu.Unlock()

	if c.pause.Pause() {
		defer c.pause.Resume()
	}

	log := c.logger.With(zap.String("search_type", searchType), zap.String("term", term))
	if _, err := c.limiter.ThrottleCheck(ctx, c.id); err != nil {
		return nil, err
	}

	query := term
	if searchType == SearchTypeTicker {
		query = "$" + strings.TrimPrefix(term, "$")
	}
	pages := max(1, c.settings.SearchPages)

	if err := c.logCall(ctx, "search/"+query+"/top"); err != nil {
		return nil, err
	}
	top, err := c.client.Search(ctx, query, pages, platform.SearchTop)
	if err != nil {
		return nil, err
	}
	if err := c.logCall(ctx, "search/"+query+"/recent"); err != nil {
		return nil, err
	}
	recent, err := c.client.Search(ctx, query, pages, platform.SearchLatest)
	if err != nil {
		return nil, err
	}

	c.storeTweets(ctx, append(append([]platform.Tweet(nil), top...), recent...), false)

	m := &SearchMetrics{
		SearchType:      searchType,
		Term:            term,
		SearchTimestamp: c.clock.Now().UTC(),
		TopTweets:       sectionMetrics(top),
		RecentTweets:    sectionMetrics(recent),
		Metadata: SearchMetadata{
			PagesFetched:  pages,
			TweetsPerPage: round2(float64(len(top)+len(recent)) / float64(2*pages)),
		},
	}
	log.Info("search complete", zap.Int("top", len(top)), zap.Int("recent", len(recent)))
	return m, nil
}

func sectionMetrics(tweets []platform.Tweet) SectionMetrics {
	var (
		m        SectionMetrics
		authors  = make(map[string]bool)
		likes    int
		retweets int
		oldest   time.Time
		newest   time.Time
	)
	for _, t := range tweets {
		if t.ID == "" {
			continue
		}
		m.TotalTweets++
		authors[t.AuthorUsername] = true
		likes += t.Likes
		retweets += t.Retweets
		if oldest.IsZero() || t.CreatedAt.Before(oldest) {
			oldest = t.CreatedAt
		}
		if newest.IsZero() || t.CreatedAt.After(newest) {
			newest = t.CreatedAt
		}
	}
	m.UniqueAuthors = len(authors)
	if m.TotalTweets == 0 {
		return m
	}

	oldest, newest = oldest.UTC(), newest.UTC()
	m.TimeRange = TimeRange{Oldest: &oldest, Newest: &newest}
	hours := newest.Sub(oldest).Hours()
	m.TimespanHours = round2(hours)
	if hours > 0 {
		m.TweetsPerHour = round2(float64(m.TotalTweets) / hours)
	}
	m.EngagementPerTweet = PerTweet{
		Likes:    round2(float64(likes) / float64(m.TotalTweets)),
		Retweets: round2(float64(retweets) / float64(m.TotalTweets)),
	}
	return m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
