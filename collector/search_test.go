package collector

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/247void/twitterScraper/platform"
	"github.com/247void/twitterScraper/store"
	"github.com/247void/twitterScraper/types"
)

func TestSearch_Metrics(t *testing.T) {
	h := newHarness(t, Config{Constants: map[string]any{"SEARCH_PAGES": 2}})

	m, err := h.c.Search(context.Background(), SearchTypeTicker, "sol")
	require.NoError(t, err)

	assert.Equal(t, SearchTypeTicker, m.SearchType)
	assert.Equal(t, "sol", m.Term)
	assert.Equal(t, testStart, m.SearchTimestamp.Truncate(time.Hour))
	assert.Equal(t, 2, m.Metadata.PagesFetched)
	assert.Equal(t, float64(platform.PageSize), m.Metadata.TweetsPerPage)

	assert.Equal(t, 2*platform.PageSize, m.TopTweets.TotalTweets)
	assert.Equal(t, 2*platform.PageSize, m.RecentTweets.TotalTweets)
	assert.Positive(t, m.TopTweets.UniqueAuthors)
	require.NotNil(t, m.TopTweets.TimeRange.Oldest)
	assert.False(t, m.TopTweets.TimeRange.Newest.Before(*m.TopTweets.TimeRange.Oldest))
	assert.GreaterOrEqual(t, m.TopTweets.EngagementPerTweet.Likes, 200.0, "top results carry boosted engagement")

	assert.Equal(t, 2, h.sim.Calls(platform.OpSearch))
	assert.Equal(t, 2, h.ledger.Len("c1"))
	assert.Equal(t, int64(4*platform.PageSize), h.count(t, &store.Tweet{}, "1 = 1"))

	var texts []string
	require.NoError(t, h.st.DB().Model(&store.Tweet{}).Limit(5).Pluck("text", &texts).Error)
	for _, text := range texts {
		assert.True(t, strings.Contains(text, "$sol"), text)
	}
}

func TestSearch_PausesAndResumes(t *testing.T) {
	h := newHarness(t, Config{})

	var pausedDuring bool
	h.clock.OnSleep(func(time.Duration) { pausedDuring = pausedDuring || h.c.Paused() })

	_, err := h.c.Search(context.Background(), "keyword", "golang")
	require.NoError(t, err)
	assert.True(t, pausedDuring, "the workflow is held while searching")
	assert.False(t, h.c.Paused())

	// An operator pause survives a search.
	h.c.Pause()
	_, err = h.c.Search(context.Background(), "keyword", "golang")
	require.NoError(t, err)
	assert.True(t, h.c.Paused())
}

func TestSearch_EmptyTerm(t *testing.T) {
	h := newHarness(t, Config{})
	_, err := h.c.Search(context.Background(), "keyword", "   ")
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
	assert.Zero(t, h.sim.Calls(platform.OpSearch))
}

func TestSearch_PlatformErrorResumes(t *testing.T) {
	h := newHarness(t, Config{})
	h.sim.FailNext(platform.OpSearch, platform.Wrap(string(platform.OpSearch), 429, assert.AnError))

	_, err := h.c.Search(context.Background(), "keyword", "x")
	require.Error(t, err)
	assert.Equal(t, types.ErrRateLimited, types.GetErrorCode(err))
	assert.False(t, h.c.Paused())
}

func TestSectionMetrics(t *testing.T) {
	assert.Equal(t, SectionMetrics{}, sectionMetrics(nil))

	m := sectionMetrics([]platform.Tweet{
		{ID: "1", AuthorUsername: "a", CreatedAt: testStart, Likes: 10, Retweets: 1},
		{ID: "2", AuthorUsername: "a", CreatedAt: testStart.Add(2 * time.Hour), Likes: 20, Retweets: 2},
		{ID: "3", AuthorUsername: "b", CreatedAt: testStart.Add(time.Hour), Likes: 1, Retweets: 0},
	})
	assert.Equal(t, 3, m.TotalTweets)
	assert.Equal(t, 2, m.UniqueAuthors)
	assert.Equal(t, 2.0, m.TimespanHours)
	assert.Equal(t, 1.5, m.TweetsPerHour)
	assert.Equal(t, 10.33, m.EngagementPerTweet.Likes)
	assert.Equal(t, 1.0, m.EngagementPerTweet.Retweets)
	assert.Equal(t, testStart, *m.TimeRange.Oldest)
	assert.Equal(t, testStart.Add(2*time.Hour), *m.TimeRange.Newest)

	single := sectionMetrics([]platform.Tweet{{ID: "1", AuthorUsername: "a", CreatedAt: testStart}})
	assert.Zero(t, single.TweetsPerHour)
	assert.Zero(t, single.TimespanHours)
}
