package collector

import (
	"context"

	"go.uber.org/zap"

	"github.com/247void/twitterScraper/workflow"
)

func (c *Collector) processBatchAction(ctx context.Context, _ workflow.Params) (workflow.Result, error) {
	return workflow.Bool(true), c.ProcessBatch(ctx)
}

// ProcessBatch fetches tweets for every account of the current batch,
// crawls followings with FollowingCheckChance, pauses AccountDelay between
// accounts and then rotates to the next batch. Per-account platform errors
// are logged and skipped so one bad account does not stall the batch.
func (c *Collector) ProcessBatch(ctx context.Context) error {
	log := c.actionLogger(ctx, ActionProcessBatch)
	accounts := c.batches.CurrentBatch()
	log.Info("processing batch",
		zap.Int("batch", c.batches.Index()+1),
		zap.Int("total_batches", c.batches.TotalBatches()),
		zap.Int("accounts", len(accounts)),
	)

	for _, account := range accounts {
		if _, err := c.FetchAccountTweets(ctx, account); err != nil {
			if ctx.Err() != nil {
				return err
			}
			log.Warn("fetch tweets failed", zap.String("account", account), zap.Error(err))
		}

		if c.chance(c.settings.FollowingCheckChance) {
			if _, err := c.FetchFollowings(ctx, account, true); err != nil {
				if ctx.Err() != nil {
					return err
				}
				log.Warn("fetch followings failed", zap.String("account", account), zap.Error(err))
			}
		}

		if err := c.sleep(ctx, c.settings.AccountDelay); err != nil {
			return err
		}
	}

	c.batches.Rotate()
	c.metrics.RecordBatchRotation(c.id)
	log.Info("rotated batch", zap.Int("batch", c.batches.Index()+1))
	return nil
}
