package collector

import (
	"context"

	"go.uber.org/zap"

	"github.com/247void/twitterScraper/platform"
	"github.com/247void/twitterScraper/workflow"
)

func (c *Collector) fetchTimelineAction(ctx context.Context, p workflow.Params) (workflow.Result, error) {
	ok, err := c.FetchTimeline(ctx, p.Int("max_pages", c.settings.MaxTimelinePages))
	return workflow.Bool(ok), err
}

// FetchTimeline scrolls a randomly chosen home timeline. Pages with at
// least QualityPageRatio new tweets are read slowly, others skimmed; the
// scroll stops after MaxLowQualityPages low pages in a row or when the
// cursor ends. Checks closer than MinTimelineInterval are skipped, and a
// scroll with fewer than MinNewTweets new tweets defers the next one to
// MaxTimelineInterval. It reports whether anything new was stored.
func (c *Collector) FetchTimeline(ctx context.Context, maxPages int) (bool, error) {
	log := c.actionLogger(ctx, ActionFetchTimeline)
	if maxPages <= 0 {
		maxPages = c.settings.MaxTimelinePages
	}

	start := c.clock.Now()
	c.timelineMu.Lock()
	last := c.lastTimelineCheck
	c.timelineMu.Unlock()
	if !last.IsZero() && start.Sub(last) < c.settings.MinTimelineInterval {
		log.Debug("timeline checked recently", zap.Duration("since", start.Sub(last)))
		return false, nil
	}

	if _, err := c.limiter.ThrottleCheck(ctx, c.id); err != nil {
		return false, err
	}

	kind := platform.TimelineForYou
	if c.rnd.IntN(2) == 1 {
		kind = platform.TimelineFollowing
	}
	log = log.With(zap.String("timeline", string(kind)))

	var (
		cursor   string
		newTotal int
		lowPages int
	)
	for page := 0; page < maxPages; page++ {
		if err := c.logCall(ctx, "home_timeline"); err != nil {
			return newTotal > 0, err
		}
		res, err := c.client.HomeTimeline(ctx, kind, 1, cursor)
		if err != nil {
			return newTotal > 0, err
		}

		fresh := c.storeTweets(ctx, res.Tweets, false)
		newTotal += fresh

		ratio := 0.0
		if len(res.Tweets) > 0 {
			ratio = float64(fresh) / float64(len(res.Tweets))
		}
		pause := c.settings.ScrollTimeOld
		if ratio >= c.settings.QualityPageRatio {
			pause = c.settings.ScrollTimeNew
			lowPages = 0
		} else {
			lowPages++
		}
		log.Debug("timeline page", zap.Int("page", page+1), zap.Int("tweets", len(res.Tweets)), zap.Int("new", fresh))

		if lowPages >= c.settings.MaxLowQualityPages {
			log.Info("too many low quality pages, moving on", zap.Int("page", page+1))
			break
		}
		if err := c.sleep(ctx, pause); err != nil {
			return newTotal > 0, err
		}
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}

	next := start
	if newTotal < c.settings.MinNewTweets {
		next = start.Add(c.settings.MaxTimelineInterval - c.settings.MinTimelineInterval)
	}
	c.timelineMu.Lock()
	c.lastTimelineCheck = next
	c.timelineMu.Unlock()

	log.Info("timeline scroll complete", zap.Int("new_tweets", newTotal))
	return newTotal > 0, nil
}
