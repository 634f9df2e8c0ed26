package collector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/247void/twitterScraper/internal/clock"
	"github.com/247void/twitterScraper/platform"
	"github.com/247void/twitterScraper/store"
	"github.com/247void/twitterScraper/workflow"
)

func (c *Collector) checkEngagementAction(ctx context.Context, p workflow.Params) (workflow.Result, error) {
	err := c.CheckEngagement(ctx,
		p.Int("max_depth", c.settings.MaxTweetsPerBatch),
		p.Int("min_engagement", c.settings.MinEngagement),
		p.Int("min_reply_likes", c.settings.MinReplyLikes),
	)
	return workflow.Bool(true), err
}

func (c *Collector) processTweetEngagementAction(ctx context.Context, p workflow.Params) (workflow.Result, error) {
	n, err := c.ProcessTweetEngagement(ctx,
		p.Int("max_depth", c.settings.MaxDepthPerTweet),
		p.Int("min_reply_likes", c.settings.MinReplyLikes),
		p.Range("delay_range", c.settings.CommentPageDelay),
	)
	return workflow.Bool(n > 0), err
}

// CheckEngagement reads the replies of up to maxDepth viral tweets
// (likes+retweets above minEngagement, collected inside ViralWindow, not
// yet checked, authors outside the blacklist). Replies with at least
// minReplyLikes likes are kept, others with ReplyKeepChance; busy replies
// are dived into with ReplyDiveChance. Each tweet is marked checked.
func (c *Collector) CheckEngagement(ctx context.Context, maxDepth, minEngagement, minReplyLikes int) error {
	log := c.actionLogger(ctx, ActionCheckEngagement)

	viral, err := c.store.ViralTweets(ctx, store.ViralQuery{
		Since:         c.clock.Now().Add(-c.settings.ViralWindow),
		MinEngagement: minEngagement,
		Exclude:       c.settings.EngagementBlacklist,
		Limit:         maxDepth,
	})
	if err != nil {
		c.persistFailed("viral_tweets", err)
		return nil
	}
	log.Info("checking viral tweets", zap.Int("tweets", len(viral)))

	for _, tweet := range viral {
		replies, err := c.readReplies(ctx, tweet.ID, minReplyLikes)
		if err != nil {
			return err
		}
		c.storeEngagement(ctx, tweet.ID, replies)
		if err := c.store.MarkEngagement(ctx, tweet.ID, c.id, store.EngagementChecked, c.clock.Now()); err != nil {
			c.persistFailed("mark_checked", err, zap.String("tweet_id", tweet.ID))
		}
		log.Info("viral tweet checked",
			zap.String("tweet_id", tweet.ID),
			zap.String("author", tweet.AuthorUsername),
			zap.Int("engagement", tweet.Engagement()),
			zap.Int("replies_kept", len(replies)),
		)

		if err := c.sleep(ctx, c.settings.ViralTweetGap); err != nil {
			return err
		}
	}
	return nil
}

// readReplies pages through a tweet's replies.
func (c *Collector) readReplies(ctx context.Context, tweetID string, minReplyLikes int) ([]platform.Tweet, error) {
	s := c.settings
	pages := s.CommentPagesMin
	if spread := s.CommentPagesMax - s.CommentPagesMin; spread > 0 {
		pages += c.rnd.IntN(spread + 1)
	}

	seen := make(map[string]bool)
	var kept []platform.Tweet
	add := func(t platform.Tweet, parent string) {
		if t.ID == "" || seen[t.ID] {
			return
		}
		seen[t.ID] = true
		if t.InReplyToID == "" {
			t.InReplyToID = parent
		}
		if t.ConversationID == "" || t.ConversationID == t.ID {
			t.ConversationID = tweetID
		}
		kept = append(kept, t)
	}

	for page := 0; page < pages; page++ {
		if err := c.logCall(ctx, fmt.Sprintf("tweet_comments/%s/page/%d", tweetID, page)); err != nil {
			return kept, err
		}
		if page > 0 {
			if err := c.sleep(ctx, s.CommentPageDelay); err != nil {
				return kept, err
			}
		}
		replies, err := c.client.Comments(ctx, tweetID, 1)
		if err != nil {
			return kept, err
		}
		if len(replies) == 0 {
			break
		}

		for _, r := range replies {
			if seen[r.ID] {
				continue
			}
			if r.Likes < minReplyLikes && !c.chance(s.ReplyKeepChance) {
				continue
			}
			add(r, tweetID)

			if r.Replies > s.ReplyDiveMinReplies && c.chance(s.ReplyDiveChance) {
				if err := c.sleep(ctx, s.ReplyDiveDelay); err != nil {
					return kept, err
				}
				if err := c.logCall(ctx, "tweet_comments/"+r.ID); err != nil {
					return kept, err
				}
				thread, err := c.client.Comments(ctx, r.ID, 1)
				if err != nil {
					return kept, err
				}
				for _, sub := range thread {
					add(sub, r.ID)
				}
			}
		}
	}
	return kept, nil
}

// storeEngagement stores replies as tweets and links their authors to the
// root tweet.
func (c *Collector) storeEngagement(ctx context.Context, rootID string, replies []platform.Tweet) {
	if len(replies) == 0 {
		return
	}
	c.storeTweets(ctx, replies, true)

	now := c.clock.Now().UTC()
	rows := make([]store.Engagement, 0, len(replies))
	for _, r := range replies {
		rows = append(rows, store.Engagement{
			TweetID:        rootID,
			CollectorID:    c.id,
			EngagementType: store.EngagementReply,
			AuthorUsername: r.AuthorUsername,
			EngagedAt:      now,
		})
	}
	if err := c.store.InsertEngagements(ctx, rows); err != nil {
		c.persistFailed("insert_engagements", err, zap.String("tweet_id", rootID))
	}
	c.metrics.RecordStored(c.id, "engagements", len(rows))
}

// ProcessTweetEngagement deep-processes viral tweets this collector already
// checked: for up to MaxTweetsPerBatch of them it fetches the replies to
// their top maxDepth stored replies with at least minReplyLikes likes,
// pausing delay between fetches, and marks each tweet deep. It returns
// how many tweets were processed.
func (c *Collector) ProcessTweetEngagement(ctx context.Context, maxDepth, minReplyLikes int, delay clock.Range) (int, error) {
	log := c.actionLogger(ctx, ActionProcessTweetEngagement)

	ids, err := c.store.PendingDeepEngagement(ctx, c.id, c.settings.MaxTweetsPerBatch)
	if err != nil {
		c.persistFailed("pending_deep_engagement", err)
		return 0, nil
	}

	processed := 0
	for _, id := range ids {
		replies, err := c.store.RepliesTo(ctx, id, minReplyLikes, maxDepth)
		if err != nil {
			c.persistFailed("replies_to", err, zap.String("tweet_id", id))
			continue
		}

		var collected []platform.Tweet
		for _, reply := range replies {
			if err := c.sleep(ctx, delay); err != nil {
				return processed, err
			}
			if err := c.logCall(ctx, "tweet_comments/"+reply.ID); err != nil {
				return processed, err
			}
			thread, err := c.client.Comments(ctx, reply.ID, 1)
			if err != nil {
				return processed, err
			}
			for _, t := range thread {
				if t.InReplyToID == "" {
					t.InReplyToID = reply.ID
				}
				if t.ConversationID == "" || t.ConversationID == t.ID {
					t.ConversationID = id
				}
				collected = append(collected, t)
			}
		}

		c.storeEngagement(ctx, id, collected)
		if err := c.store.MarkEngagement(ctx, id, c.id, store.EngagementDeep, c.clock.Now()); err != nil {
			c.persistFailed("mark_deep", err, zap.String("tweet_id", id))
		}
		processed++
		log.Info("deep engagement processed",
			zap.String("tweet_id", id),
			zap.Int("replies", len(replies)),
			zap.Int("sub_replies", len(collected)),
		)
	}
	return processed, nil
}
