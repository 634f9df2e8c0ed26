package collector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/247void/twitterScraper/platform"
	"github.com/247void/twitterScraper/store"
	"github.com/247void/twitterScraper/workflow"
)

func (c *Collector) fetchTweetsAction(ctx context.Context, p workflow.Params) (workflow.Result, error) {
	account := p.String("account", "")
	if account == "" {
		batch := c.batches.CurrentBatch()
		if len(batch) == 0 {
			return workflow.Bool(false), nil
		}
		account = batch[c.rnd.IntN(len(batch))]
	}
	ok, err := c.FetchAccountTweets(ctx, account)
	return workflow.Bool(ok), err
}

// FetchAccountTweets reads one page of account's tweets, stores them with
// their retweet/quote originals and hashtags, runs mention, thread and
// token extraction and may follow the account. It reports whether any
// tweets were returned.
func (c *Collector) FetchAccountTweets(ctx context.Context, account string) (bool, error) {
	log := c.actionLogger(ctx, ActionFetchTweets).With(zap.String("account", account))

	if _, err := c.limiter.PreCallCheck(ctx, c.id); err != nil {
		return false, err
	}
	if err := c.logCall(ctx, "tweets/"+account); err != nil {
		return false, err
	}
	tweets, err := c.client.AccountTweets(ctx, account, 1)
	if err != nil {
		return false, err
	}
	if len(tweets) == 0 {
		log.Info("no tweets found")
		return false, nil
	}

	if err := c.store.EnsureUser(ctx, account); err != nil {
		c.persistFailed("ensure_user", err, zap.String("account", account))
	}
	stored := c.storeTweets(ctx, tweets, true)
	if err := c.store.TouchTweetCheck(ctx, account, c.clock.Now()); err != nil {
		c.persistFailed("touch_tweet_check", err, zap.String("account", account))
	}
	log.Info("account tweets stored", zap.Int("fetched", len(tweets)), zap.Int("new", stored))

	if c.chance(c.settings.FollowChance) {
		follow, err := c.ShouldFollow(ctx, account)
		if err != nil {
			c.persistFailed("should_follow", err, zap.String("account", account))
		} else if follow {
			if err := c.Follow(ctx, account); err != nil {
				return true, err
			}
		}
	}
	return true, nil
}

// storeTweets inserts tweets and their embedded originals and returns how
// many top-level tweets were new. With analyze set every tweet also goes
// through mention, thread and token extraction.
func (c *Collector) storeTweets(ctx context.Context, tweets []platform.Tweet, analyze bool) int {
	now := c.clock.Now()

	authors := make([]string, 0, len(tweets))
	for _, t := range tweets {
		authors = append(authors, t.AuthorUsername)
		if t.Retweeted != nil {
			authors = append(authors, t.Retweeted.AuthorUsername)
		}
		if t.Quoted != nil {
			authors = append(authors, t.Quoted.AuthorUsername)
		}
	}
	if err := c.store.EnsureUsers(ctx, authors); err != nil {
		c.persistFailed("ensure_users", err)
	}

	var stored int
	var hashtags []store.Hashtag
	for _, t := range tweets {
		if t.ID == "" {
			continue
		}
		for _, orig := range []*platform.Tweet{t.Retweeted, t.Quoted} {
			if orig == nil {
				continue
			}
			rows := []store.Tweet{storedTweet(*orig, c.id, now)}
			if _, err := c.store.InsertTweets(ctx, rows); err != nil {
				c.persistFailed("insert_original", err, zap.String("tweet_id", orig.ID))
			}
		}

		row := storedTweet(t, c.id, now)
		rows := []store.Tweet{row}
		n, err := c.store.InsertTweets(ctx, rows)
		if err != nil {
			c.persistFailed("insert_tweet", err, zap.String("tweet_id", t.ID))
			continue
		}
		stored += int(n)
		if n == 0 && row.OriginalTweetID != "" {
			if err := c.store.LinkOriginal(ctx, row.ID, row.OriginalTweetID, row.OriginalAuthor, row.IsRetweet); err != nil {
				c.persistFailed("link_original", err, zap.String("tweet_id", t.ID))
			}
		}
		hashtags = append(hashtags, hashtagRows(t, now)...)

		if analyze {
			c.analyzeTweet(ctx, rows[0])
		}
	}
	if err := c.store.InsertHashtags(ctx, hashtags); err != nil {
		c.persistFailed("insert_hashtags", err)
	}
	c.metrics.RecordStored(c.id, "tweets", stored)
	return stored
}

// ShouldFollow applies the follow policy: not yet followed by this
// collector, under the daily cap, and enough stored tweets by the account.
func (c *Collector) ShouldFollow(ctx context.Context, account string) (bool, error) {
	following, err := c.store.IsFollowing(ctx, account, c.id)
	if err != nil || following {
		return false, err
	}
	now := c.clock.Now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	today, err := c.store.CountFollowsSince(ctx, c.id, day)
	if err != nil || today >= int64(c.settings.MaxFollowsPerDay) {
		return false, err
	}
	tweets, err := c.store.CountTweetsByAuthor(ctx, account)
	if err != nil {
		return false, err
	}
	return tweets >= int64(c.settings.MustHaveTweets), nil
}

// Follow follows account, records it and pauses FollowDelay.
func (c *Collector) Follow(ctx context.Context, account string) error {
	if err := c.logCall(ctx, "follow/"+account); err != nil {
		return err
	}
	if err := c.client.Follow(ctx, account); err != nil {
		return err
	}
	if err := c.store.RecordFollow(ctx, account, c.id, c.clock.Now()); err != nil {
		c.persistFailed("record_follow", err, zap.String("account", account))
	}
	c.metrics.RecordStored(c.id, "follows", 1)
	c.logger.Info("followed account", zap.String("account", account))
	return c.sleep(ctx, c.settings.FollowDelay)
}
