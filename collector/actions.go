package collector

import "github.com/247void/twitterScraper/workflow"

// Action names a workflow step can reference.
const (
	ActionFetchTimeline          = "fetch_timeline"
	ActionProcessBatch           = "process_batch"
	ActionFetchTweets            = "fetch_tweets"
	ActionFetchFollowing         = "fetch_following"
	ActionCheckEngagement        = "check_engagement"
	ActionProcessTweetEngagement = "process_tweet_engagement"
	ActionProcessMentions        = "process_mentions"
	ActionProcessThread          = "process_thread"
)

func (c *Collector) registerActions() error {
	actions := []workflow.Action{
		{
			Name:    ActionFetchTimeline,
			Params:  []workflow.ParamSpec{{Name: "max_pages", Kind: workflow.KindInt}},
			Handler: c.fetchTimelineAction,
		},
		{
			Name:    ActionProcessBatch,
			Handler: c.processBatchAction,
		},
		{
			Name:    ActionFetchTweets,
			Params:  []workflow.ParamSpec{{Name: "account", Kind: workflow.KindString}},
			Handler: c.fetchTweetsAction,
		},
		{
			Name: ActionFetchFollowing,
			Params: []workflow.ParamSpec{
				{Name: "account", Kind: workflow.KindString},
				{Name: "deep_crawl", Kind: workflow.KindBool},
			},
			Handler: c.fetchFollowingAction,
		},
		{
			Name: ActionCheckEngagement,
			Params: []workflow.ParamSpec{
				{Name: "max_depth", Kind: workflow.KindInt},
				{Name: "min_engagement", Kind: workflow.KindInt},
				{Name: "min_reply_likes", Kind: workflow.KindInt},
			},
			Handler: c.checkEngagementAction,
		},
		{
			Name: ActionProcessTweetEngagement,
			Params: []workflow.ParamSpec{
				{Name: "max_depth", Kind: workflow.KindInt},
				{Name: "min_reply_likes", Kind: workflow.KindInt},
				{Name: "delay_range", Kind: workflow.KindRange},
			},
			Handler: c.processTweetEngagementAction,
		},
		{
			Name:    ActionProcessMentions,
			Params:  []workflow.ParamSpec{{Name: "hours", Kind: workflow.KindInt}},
			Handler: c.processMentionsAction,
		},
		{
			Name:    ActionProcessThread,
			Params:  []workflow.ParamSpec{{Name: "hours", Kind: workflow.KindInt}},
			Handler: c.processThreadAction,
		},
	}
	for _, a := range actions {
		if err := c.registry.Register(a); err != nil {
			return err
		}
	}
	return nil
}
