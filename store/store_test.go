package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/247void/twitterScraper/testutil"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(testutil.NewSQLiteDB(t, Models()...), zap.NewNop())
}

func tweet(id, author string, likes, rts int, posted time.Time) Tweet {
	return Tweet{
		ID:             id,
		AuthorUsername: author,
		Text:           "text " + id,
		PostedAt:       posted,
		CollectedAt:    posted,
		Likes:          likes,
		Retweets:       rts,
		ConversationID: id,
	}
}

func TestStore_InsertTweetsIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.InsertTweets(ctx, []Tweet{tweet("1", "alice", 1, 0, t0), tweet("2", "alice", 2, 0, t0)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.InsertTweets(ctx, []Tweet{tweet("2", "alice", 2, 0, t0), tweet("3", "bob", 3, 0, t0)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "only tweet 3 is new")

	ok, err := s.TweetExists(ctx, "3")
	require.NoError(t, err)
	assert.True(t, ok)

	count, err := s.CountTweetsByAuthor(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestStore_LinkOriginal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertTweets(ctx, []Tweet{tweet("10", "alice", 0, 0, t0), tweet("11", "bob", 0, 0, t0)})
	require.NoError(t, err)
	require.NoError(t, s.LinkOriginal(ctx, "10", "11", "bob", false))

	got, err := s.GetTweet(ctx, "10")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsQuote)
	assert.False(t, got.IsRetweet)
	assert.Equal(t, "11", got.OriginalTweetID)
	assert.Equal(t, "bob", got.OriginalAuthor)

	missing, err := s.GetTweet(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_QueryTweets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertTweets(ctx, []Tweet{
		tweet("1", "alice", 5, 0, t0.Add(-5*time.Hour)),
		tweet("2", "alice", 50, 0, t0.Add(-2*time.Hour)),
		tweet("3", "bob", 500, 0, t0.Add(-30*time.Minute)),
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter TweetFilter
		want   []string
	}{
		{"all newest first", TweetFilter{Now: t0}, []string{"3", "2", "1"}},
		{"by username", TweetFilter{Now: t0, Username: "alice"}, []string{"2", "1"}},
		{"by hours", TweetFilter{Now: t0, Hours: 3}, []string{"3", "2"}},
		{"by min likes", TweetFilter{Now: t0, MinLikes: 50}, []string{"3", "2"}},
		{"limit and offset", TweetFilter{Now: t0, Limit: 1, Offset: 1}, []string{"2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := s.QueryTweets(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(rows))
			for _, r := range rows {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestStore_Following(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordFollow(ctx, "alice", "c1", t0.Add(-26*time.Hour)))
	require.NoError(t, s.RecordFollow(ctx, "bob", "c1", t0.Add(-time.Hour)))
	require.NoError(t, s.RecordFollow(ctx, "bob", "c1", t0), "duplicate follow is ignored")
	require.NoError(t, s.RecordFollow(ctx, "carol", "c2", t0))

	ok, err := s.IsFollowing(ctx, "alice", "c1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.IsFollowing(ctx, "alice", "c2")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.CountFollowsSince(ctx, "c1", t0.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	inserted, err := s.InsertFollowings(ctx, []AccountFollowing{
		{Follower: "alice", Following: "x", FollowingID: "100", DiscoveredAt: t0},
		{Follower: "alice", Following: "y", FollowingID: "101", DiscoveredAt: t0},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), inserted)

	require.NoError(t, s.LogFollowingCheck(ctx, "alice", 1, t0))
	require.NoError(t, s.LogFollowingCheck(ctx, "alice", 1, t0.Add(time.Minute)))
}

func TestStore_ViralTweets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// 3 is blacklisted, 4 is below threshold, 5 is too old, 6 is already checked.
	_, err := s.InsertTweets(ctx, []Tweet{
		tweet("1", "alice", 80, 30, t0.Add(-time.Hour)),
		tweet("2", "bob", 300, 10, t0.Add(-time.Hour)),
		tweet("3", "blocked", 900, 0, t0.Add(-time.Hour)),
		tweet("4", "carol", 60, 0, t0.Add(-time.Hour)),
		tweet("5", "dave", 500, 0, t0.Add(-48*time.Hour)),
		tweet("6", "erin", 200, 0, t0.Add(-time.Hour)),
	})
	require.NoError(t, err)
	require.NoError(t, s.MarkEngagement(ctx, "6", "other", EngagementChecked, t0))

	got, err := s.ViralTweets(ctx, ViralQuery{
		Since:         t0.Add(-24 * time.Hour),
		MinEngagement: 100,
		Exclude:       []string{"blocked"},
		Limit:         5,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "1", got[1].ID)

	limited, err := s.ViralTweets(ctx, ViralQuery{Since: t0.Add(-24 * time.Hour), MinEngagement: 100, Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "3", limited[0].ID)
}

func TestStore_PendingDeepEngagement(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.MarkEngagement(ctx, "a", "c1", EngagementChecked, t0))
	require.NoError(t, s.MarkEngagement(ctx, "b", "c1", EngagementChecked, t0.Add(time.Minute)))
	require.NoError(t, s.MarkEngagement(ctx, "a", "c1", EngagementDeep, t0.Add(2*time.Minute)))
	require.NoError(t, s.MarkEngagement(ctx, "z", "c2", EngagementChecked, t0))

	ids, err := s.PendingDeepEngagement(ctx, "c1", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

func TestStore_RepliesAndThreads(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	root := tweet("100", "alice", 0, 0, t0)
	replies := []Tweet{}
	for i, author := range []string{"bob", "bob", "bob", "carol"} {
		r := tweet(string(rune('a'+i)), author, i*10, 0, t0.Add(time.Duration(i+1)*time.Minute))
		r.InReplyToID = "100"
		r.ConversationID = "100"
		replies = append(replies, r)
	}
	_, err := s.InsertTweets(ctx, append([]Tweet{root}, replies...))
	require.NoError(t, err)

	branch, err := s.HasBranchReplies(ctx, "100")
	require.NoError(t, err)
	assert.True(t, branch, "bob replied three times")

	branch, err = s.HasBranchReplies(ctx, "a")
	require.NoError(t, err)
	assert.False(t, branch)

	top, err := s.RepliesTo(ctx, "100", 20, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, 30, top[0].Likes)

	author, ok, err := s.ParentAuthor(ctx, "100")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", author)

	_, ok, err = s.ParentAuthor(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	earlier, err := s.CountEarlierInConversation(ctx, "100", t0.Add(150*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(3), earlier, "root plus two replies precede 2m30s")

	_, ok, err = s.ThreadRoot(ctx, "100")
	require.NoError(t, err)
	assert.False(t, ok)

	isNew, err := s.InsertThread(ctx, &Thread{TweetID: "100", ConversationID: "100", ThreadType: ThreadRoot, RootTweetID: "100", DiscoveredAt: t0, CollectorID: "c1"})
	require.NoError(t, err)
	assert.True(t, isNew)

	rootID, ok, err := s.ThreadRoot(ctx, "100")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "100", rootID)
}

func TestStore_SearchCacheFreshness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutSearchCache(ctx, &SearchCache{SearchType: "ticker", Term: "BTC", Metrics: `{"a":1}`, LastSearchedAt: t0}))

	row, err := s.GetSearchCache(ctx, "ticker", "BTC", t0.Add(-30*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, `{"a":1}`, row.Metrics)

	row, err = s.GetSearchCache(ctx, "ticker", "BTC", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Nil(t, row, "stale entry is not returned")

	require.NoError(t, s.PutSearchCache(ctx, &SearchCache{SearchType: "ticker", Term: "BTC", Metrics: `{"a":2}`, LastSearchedAt: t0.Add(time.Hour)}))
	row, err = s.GetSearchCache(ctx, "ticker", "BTC", t0)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, `{"a":2}`, row.Metrics)
}

func TestStore_UsersAndMentions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureUsers(ctx, []string{"alice", "bob"}))
	require.NoError(t, s.EnsureUser(ctx, "alice"))

	id := "42"
	require.NoError(t, s.UpsertUser(ctx, &User{Username: "alice", TwitterID: &id, FollowingCount: 120}))
	u, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, 120, u.FollowingCount)

	require.NoError(t, s.TouchTweetCheck(ctx, "alice", t0))
	u, err = s.GetUser(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, u.LastTweetCheck)

	n, err := s.InsertMentions(ctx, []Mention{
		{TweetID: "1", MentionedUsername: "bob", AuthorUsername: "alice", MentionType: MentionDirect, DiscoveredAt: t0, CollectorID: "c1"},
		{TweetID: "1", MentionedUsername: "bob", AuthorUsername: "alice", MentionType: MentionDirect, DiscoveredAt: t0, CollectorID: "c1"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.InsertTokenMentions(ctx, []TokenMention{
		{TweetID: "1", TokenSymbol: "BTC", AuthorUsername: "alice", MentionedAt: t0, CollectorID: "c1"},
		{TweetID: "1", TokenSymbol: "ETH", AuthorUsername: "alice", MentionedAt: t0, CollectorID: "c1"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, s.Ping(ctx))
}
