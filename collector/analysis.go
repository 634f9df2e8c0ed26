package collector

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/247void/twitterScraper/store"
	"github.com/247void/twitterScraper/workflow"
)

var (
	mentionPattern = regexp.MustCompile(`@(\w+)`)
	tokenPattern   = regexp.MustCompile(`[$#]([A-Z]{2,10})`)
)

// recentScanLimit caps how many stored tweets one analysis action scans.
const recentScanLimit = 500

func (c *Collector) processMentionsAction(ctx context.Context, p workflow.Params) (workflow.Result, error) {
	n, err := c.ProcessRecent(ctx, p.Int("hours", 24), c.processMentions)
	return workflow.Count(n), err
}

func (c *Collector) processThreadAction(ctx context.Context, p workflow.Params) (workflow.Result, error) {
	n, err := c.ProcessRecent(ctx, p.Int("hours", 24), func(ctx context.Context, t store.Tweet) (int, error) {
		ok, err := c.processThread(ctx, t)
		if ok {
			return 1, err
		}
		return 0, err
	})
	return workflow.Count(n), err
}

// ProcessRecent runs fn over the tweets this collector stored in the last
// hours and sums what it reports as newly stored.
func (c *Collector) ProcessRecent(ctx context.Context, hours int, fn func(context.Context, store.Tweet) (int, error)) (int, error) {
	if hours <= 0 {
		hours = 24
	}
	since := c.clock.Now().Add(-time.Duration(hours) * time.Hour)
	tweets, err := c.store.RecentTweets(ctx, c.id, since, recentScanLimit)
	if err != nil {
		c.persistFailed("recent_tweets", err)
		return 0, nil
	}
	total := 0
	for _, t := range tweets {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := fn(ctx, t)
		if err != nil {
			c.persistFailed("analyze", err, zap.String("tweet_id", t.ID))
			continue
		}
		total += n
	}
	return total, nil
}

// analyzeTweet extracts mentions, thread placement and token mentions.
// Failures are logged and do not affect the caller.
func (c *Collector) analyzeTweet(ctx context.Context, t store.Tweet) {
	if _, err := c.processMentions(ctx, t); err != nil {
		c.persistFailed("mentions", err, zap.String("tweet_id", t.ID))
	}
	if _, err := c.processThread(ctx, t); err != nil {
		c.persistFailed("thread", err, zap.String("tweet_id", t.ID))
	}
	if _, err := c.processTokens(ctx, t); err != nil {
		c.persistFailed("tokens", err, zap.String("tweet_id", t.ID))
	}
}

// ExtractMentions returns the lower-cased, de-duplicated @handles in text.
func ExtractMentions(text string) []string {
	return uniqueMatches(mentionPattern, text, strings.ToLower)
}

// ExtractTokens returns the de-duplicated $SYMBOL and #SYMBOL references
// in text, matched case-insensitively and reported upper-case.
func ExtractTokens(text string) []string {
	return uniqueMatches(tokenPattern, strings.ToUpper(text), nil)
}

func uniqueMatches(re *regexp.Regexp, text string, norm func(string) string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		v := m[1]
		if norm != nil {
			v = norm(v)
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// MentionType classifies how a tweet mentions others.
func MentionType(t store.Tweet) string {
	switch {
	case t.InReplyToID != "":
		return store.MentionReply
	case t.IsQuote:
		return store.MentionQuote
	case t.ConversationID != "" && t.ConversationID != t.ID:
		return store.MentionThread
	}
	return store.MentionDirect
}

func (c *Collector) processMentions(ctx context.Context, t store.Tweet) (int, error) {
	handles := ExtractMentions(t.Text)
	if len(handles) == 0 {
		return 0, nil
	}
	now := c.clock.Now().UTC()
	kind := MentionType(t)
	rows := make([]store.Mention, 0, len(handles))
	for _, h := range handles {
		rows = append(rows, store.Mention{
			TweetID:           t.ID,
			MentionedUsername: h,
			AuthorUsername:    t.AuthorUsername,
			MentionType:       kind,
			DiscoveredAt:      now,
			CollectorID:       c.id,
		})
	}
	n, err := c.store.InsertMentions(ctx, rows)
	c.metrics.RecordStored(c.id, "mentions", int(n))
	return int(n), err
}

// threadType places t in its conversation: root without a parent,
// continuation when the parent has the same author, branch when some
// author replied to t more than twice, reply otherwise.
func (c *Collector) threadType(ctx context.Context, t store.Tweet) (string, error) {
	if t.InReplyToID == "" {
		return store.ThreadRoot, nil
	}
	parent, ok, err := c.store.ParentAuthor(ctx, t.InReplyToID)
	if err != nil {
		return "", err
	}
	if ok && parent == t.AuthorUsername {
		return store.ThreadContinuation, nil
	}
	branch, err := c.store.HasBranchReplies(ctx, t.ID)
	if err != nil {
		return "", err
	}
	if branch {
		return store.ThreadBranch, nil
	}
	return store.ThreadReply, nil
}

func (c *Collector) processThread(ctx context.Context, t store.Tweet) (bool, error) {
	kind, err := c.threadType(ctx, t)
	if err != nil {
		return false, err
	}
	conversation := t.ConversationID
	if conversation == "" {
		conversation = t.ID
	}

	position := 0
	if t.InReplyToID != "" {
		earlier, err := c.store.CountEarlierInConversation(ctx, conversation, t.PostedAt)
		if err != nil {
			return false, err
		}
		position = max(1, int(earlier))
	}

	root := t.ID
	if kind != store.ThreadRoot {
		if id, ok, err := c.store.ThreadRoot(ctx, conversation); err != nil {
			return false, err
		} else if ok {
			root = id
		} else {
			root = conversation
		}
	}

	created, err := c.store.InsertThread(ctx, &store.Thread{
		TweetID:        t.ID,
		ConversationID: conversation,
		ThreadType:     kind,
		ThreadPosition: position,
		ParentTweetID:  t.InReplyToID,
		RootTweetID:    root,
		DiscoveredAt:   c.clock.Now().UTC(),
		CollectorID:    c.id,
	})
	if created {
		c.metrics.RecordStored(c.id, "threads", 1)
	}
	return created, err
}

func (c *Collector) processTokens(ctx context.Context, t store.Tweet) (int, error) {
	symbols := ExtractTokens(t.Text)
	if len(symbols) == 0 {
		return 0, nil
	}
	now := c.clock.Now().UTC()
	rows := make([]store.TokenMention, 0, len(symbols))
	for _, sym := range symbols {
		rows = append(rows, store.TokenMention{
			TweetID:        t.ID,
			TokenSymbol:    sym,
			AuthorUsername: t.AuthorUsername,
			MentionedAt:    now,
			CollectorID:    c.id,
		})
	}
	n, err := c.store.InsertTokenMentions(ctx, rows)
	c.metrics.RecordStored(c.id, "tokens", int(n))
	return int(n), err
}
