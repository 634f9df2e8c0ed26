package collector

import (
	"context"

	"go.uber.org/zap"

	"github.com/247void/twitterScraper/store"
	"github.com/247void/twitterScraper/workflow"
)

func (c *Collector) fetchFollowingAction(ctx context.Context, p workflow.Params) (workflow.Result, error) {
	account := p.String("account", "")
	if account == "" {
		batch := c.batches.CurrentBatch()
		if len(batch) == 0 {
			return workflow.Bool(false), nil
		}
		account = batch[c.rnd.IntN(len(batch))]
	}
	ok, err := c.FetchFollowings(ctx, account, p.Bool("deep_crawl", false))
	return workflow.Bool(ok), err
}

// FollowingPages returns how many followings pages a crawl reads for an
// account following total others.
func (s Settings) FollowingPages(total int, deep bool) int {
	limit := s.MaxFollowingPages
	if deep {
		limit *= s.DeepCrawlFactor
	}
	pages := (total + s.FollowingPageSize - 1) / s.FollowingPageSize
	return max(0, min(limit, pages))
}

// FetchFollowings crawls the accounts account follows, storing the edges,
// a check log entry per page and the refreshed profile. Deep crawls read
// DeepCrawlFactor times more pages.
func (c *Collector) FetchFollowings(ctx context.Context, account string, deep bool) (bool, error) {
	log := c.actionLogger(ctx, ActionFetchFollowing).With(zap.String("account", account), zap.Bool("deep", deep))

	if err := c.logCall(ctx, "user_info/"+account); err != nil {
		return false, err
	}
	info, err := c.client.UserInfo(ctx, account)
	if err != nil {
		return false, err
	}
	if info == nil {
		log.Info("user not found")
		return false, nil
	}

	profile := storedUser(*info)
	profile.Username = account
	if prev, err := c.store.GetUser(ctx, account); err == nil && prev != nil {
		profile.LastTweetCheck = prev.LastTweetCheck
	}

	pages := c.settings.FollowingPages(info.FollowingCount, deep)
	seen := make(map[string]bool)
	var cursor string
	var stored int64
	for page := 0; page < pages; page++ {
		if err := c.sleep(ctx, c.settings.FollowingPageDelay); err != nil {
			return false, err
		}
		if err := c.logCall(ctx, "followings/"+account); err != nil {
			return false, err
		}
		res, err := c.client.Followings(ctx, account, 1, cursor)
		if err != nil {
			return false, err
		}
		if len(res.Users) == 0 {
			break
		}

		now := c.clock.Now()
		edges := make([]store.AccountFollowing, 0, len(res.Users))
		for _, u := range res.Users {
			key := u.ID
			if key == "" {
				key = u.Username
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			edges = append(edges, store.AccountFollowing{
				Follower:     account,
				Following:    u.Username,
				FollowingID:  u.ID,
				DiscoveredAt: now.UTC(),
			})
		}

		n, err := c.store.InsertFollowings(ctx, edges)
		if err != nil {
			c.persistFailed("insert_followings", err, zap.String("account", account))
		}
		stored += n
		if err := c.store.LogFollowingCheck(ctx, account, page+1, now); err != nil {
			c.persistFailed("log_following_check", err, zap.String("account", account))
		}
		checked := now.UTC()
		profile.LastFollowingCheck = &checked
		if err := c.store.UpsertUser(ctx, &profile); err != nil {
			c.persistFailed("upsert_user", err, zap.String("account", account))
		}

		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}

	c.metrics.RecordStored(c.id, "followings", int(stored))
	log.Info("followings crawled", zap.Int("pages", pages), zap.Int("unique", len(seen)), zap.Int64("new_edges", stored))
	if err := c.sleep(ctx, c.settings.FollowingCooldown); err != nil {
		return true, err
	}
	return true, nil
}
