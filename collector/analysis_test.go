package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/247void/twitterScraper/store"
)

func TestExtractMentions(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"no handles here", nil},
		{"hi @Alice and @bob", []string{"alice", "bob"}},
		{"@ALICE @alice @Alice", []string{"alice"}},
		{"mail me at x@example.com", []string{"example"}},
		{"@under_score_1!", []string{"under_score_1"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractMentions(tt.text), tt.text)
	}
}

func TestExtractTokens(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"nothing", nil},
		{"buying $sol and $SOL", []string{"SOL"}},
		{"#btc to the moon, $eth too", []string{"BTC", "ETH"}},
		{"$x is too short, $ABCDEFGHIJK is cut", []string{"ABCDEFGHIJ"}},
		{"price $100", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractTokens(tt.text), tt.text)
	}
}

func TestExtractMentions_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[a-zA-Z @_#$]{0,60}`).Draw(t, "text")
		got := ExtractMentions(text)
		seen := make(map[string]bool)
		for _, m := range got {
			if seen[m] {
				t.Fatalf("duplicate mention %q in %v", m, got)
			}
			seen[m] = true
			if m == "" {
				t.Fatalf("empty mention")
			}
		}
	})
}

func TestMentionType(t *testing.T) {
	tests := []struct {
		name  string
		tweet store.Tweet
		want  string
	}{
		{"reply wins", store.Tweet{ID: "2", InReplyToID: "1", IsQuote: true, ConversationID: "1"}, store.MentionReply},
		{"quote", store.Tweet{ID: "2", IsQuote: true}, store.MentionQuote},
		{"thread", store.Tweet{ID: "2", ConversationID: "1"}, store.MentionThread},
		{"own conversation", store.Tweet{ID: "2", ConversationID: "2"}, store.MentionDirect},
		{"direct", store.Tweet{ID: "2"}, store.MentionDirect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MentionType(tt.tweet))
		})
	}
}

func TestProcessThread(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	at := func(m int) time.Time { return testStart.Add(time.Duration(m) * time.Minute) }

	tweets := []store.Tweet{
		{ID: "root", AuthorUsername: "alice", ConversationID: "root", PostedAt: at(0)},
		{ID: "cont", AuthorUsername: "alice", ConversationID: "root", InReplyToID: "root", PostedAt: at(1)},
		{ID: "reply", AuthorUsername: "bob", ConversationID: "root", InReplyToID: "root", PostedAt: at(2)},
		{ID: "branch", AuthorUsername: "carol", ConversationID: "root", InReplyToID: "cont", PostedAt: at(3)},
		{ID: "b1", AuthorUsername: "dave", ConversationID: "root", InReplyToID: "branch", PostedAt: at(4)},
		{ID: "b2", AuthorUsername: "dave", ConversationID: "root", InReplyToID: "branch", PostedAt: at(5)},
		{ID: "b3", AuthorUsername: "dave", ConversationID: "root", InReplyToID: "branch", PostedAt: at(6)},
		{ID: "orphan", AuthorUsername: "erin", ConversationID: "gone", InReplyToID: "gone", PostedAt: at(7)},
	}
	for i := range tweets {
		tweets[i].CollectedAt = testStart
		tweets[i].CollectorID = "c1"
	}
	_, err := h.st.InsertTweets(ctx, tweets)
	require.NoError(t, err)

	for _, tw := range tweets {
		created, err := h.c.processThread(ctx, tw)
		require.NoError(t, err)
		assert.True(t, created, tw.ID)
	}

	load := func(id string) store.Thread {
		var th store.Thread
		require.NoError(t, h.st.DB().Where("tweet_id = ?", id).Take(&th).Error)
		return th
	}

	root := load("root")
	assert.Equal(t, store.ThreadRoot, root.ThreadType)
	assert.Equal(t, 0, root.ThreadPosition)
	assert.Equal(t, "root", root.RootTweetID)

	cont := load("cont")
	assert.Equal(t, store.ThreadContinuation, cont.ThreadType)
	assert.Equal(t, 1, cont.ThreadPosition)
	assert.Equal(t, "root", cont.RootTweetID)
	assert.Equal(t, "root", cont.ParentTweetID)

	reply := load("reply")
	assert.Equal(t, store.ThreadReply, reply.ThreadType)
	assert.Equal(t, 2, reply.ThreadPosition)

	branch := load("branch")
	assert.Equal(t, store.ThreadBranch, branch.ThreadType)
	assert.Equal(t, 3, branch.ThreadPosition)

	orphan := load("orphan")
	assert.Equal(t, store.ThreadReply, orphan.ThreadType)
	assert.Equal(t, 1, orphan.ThreadPosition)
	assert.Equal(t, "gone", orphan.RootTweetID)

	created, err := h.c.processThread(ctx, tweets[0])
	require.NoError(t, err)
	assert.False(t, created)
}

func TestProcessRecentActions(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	_, err := h.st.InsertTweets(ctx, []store.Tweet{
		{ID: "1", AuthorUsername: "a", Text: "hey @b and @c", PostedAt: testStart, CollectedAt: testStart.Add(-time.Hour), CollectorID: "c1"},
		{ID: "2", AuthorUsername: "a", Text: "@d", PostedAt: testStart, CollectedAt: testStart.Add(-30 * time.Hour), CollectorID: "c1"},
		{ID: "3", AuthorUsername: "a", Text: "@e", PostedAt: testStart, CollectedAt: testStart.Add(-time.Hour), CollectorID: "c2"},
	})
	require.NoError(t, err)

	n, err := h.c.ProcessRecent(ctx, 24, h.c.processMentions)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = h.c.ProcessRecent(ctx, 24, h.c.processMentions)
	require.NoError(t, err)
	assert.Zero(t, n, "mentions are stored once")

	n, err = h.c.ProcessRecent(ctx, 48, h.c.processMentions)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
