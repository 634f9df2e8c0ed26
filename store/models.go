package store

import "time"

// Mention types recorded in tweet_mentions.
const (
	MentionDirect = "direct_mention"
	MentionReply  = "reply_mention"
	MentionQuote  = "quote_mention"
	MentionThread = "thread_mention"
)

// Thread roles recorded in tweet_threads.
const (
	ThreadRoot         = "thread_root"
	ThreadBranch       = "thread_branch"
	ThreadContinuation = "thread_cont"
	ThreadReply        = "thread_reply"
)

// Engagement markers recorded in tweet_engagements.
const (
	EngagementReply   = "reply"
	EngagementQuote   = "quote"
	EngagementChecked = "checked"
	EngagementDeep    = "deep"
)

// User is a platform account profile.
type User struct {
	Username           string     `gorm:"primaryKey;size:64" json:"username"`
	TwitterID          *string    `gorm:"uniqueIndex;size:32" json:"twitter_id,omitempty"`
	FollowingCount     int        `json:"following_count"`
	FollowersCount     int        `json:"followers_count"`
	TweetCount         int        `json:"tweet_count"`
	ListedCount        int        `json:"listed_count"`
	AccountCreatedAt   *time.Time `json:"account_created_at,omitempty"`
	Description        string     `json:"description,omitempty"`
	Location           string     `json:"location,omitempty"`
	URL                string     `gorm:"column:url" json:"url,omitempty"`
	Verified           bool       `json:"verified"`
	ProfileImageURL    string     `gorm:"column:profile_image_url" json:"profile_image_url,omitempty"`
	ProfileBannerURL   string     `gorm:"column:profile_banner_url" json:"profile_banner_url,omitempty"`
	LastTweetCheck     *time.Time `json:"last_tweet_check,omitempty"`
	LastFollowingCheck *time.Time `json:"last_following_check,omitempty"`
}

// APICall is one outbound platform call. Rows are append-only.
type APICall struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	Timestamp   time.Time `gorm:"not null;index:idx_api_calls_collector_ts,priority:2" json:"timestamp"`
	Endpoint    string    `gorm:"size:255;index:idx_api_calls_endpoint" json:"endpoint"`
	CollectorID string    `gorm:"size:64;not null;index:idx_api_calls_collector_ts,priority:1" json:"collector_id"`
}

// Tweet is a stored post. PostedAt maps to the created_at column.
type Tweet struct {
	ID                string    `gorm:"primaryKey;size:32" json:"id"`
	AuthorID          string    `gorm:"size:32" json:"author_id,omitempty"`
	AuthorUsername    string    `gorm:"size:64;index:idx_tweets_author" json:"author_username"`
	Text              string    `json:"text"`
	PostedAt          time.Time `gorm:"column:created_at;index:idx_tweets_created" json:"created_at"`
	CollectedAt       time.Time `gorm:"index:idx_tweets_collected" json:"collected_at"`
	CollectorID       string    `gorm:"size:64" json:"collector_id,omitempty"`
	Likes             int       `gorm:"index:idx_tweets_engagement,priority:1" json:"likes"`
	Retweets          int       `gorm:"index:idx_tweets_engagement,priority:2" json:"retweets"`
	Views             int       `json:"views"`
	BookmarkCount     int       `json:"bookmark_count"`
	ReplyCount        int       `gorm:"column:reply_counts" json:"reply_counts"`
	QuoteCount        int       `gorm:"column:quote_counts" json:"quote_counts"`
	Source            string    `json:"source,omitempty"`
	Language          string    `json:"language,omitempty"`
	ConversationID    string    `gorm:"size:32;index:idx_tweets_conversation" json:"conversation_id,omitempty"`
	InReplyToID       string    `gorm:"size:32;index:idx_tweets_in_reply_to" json:"in_reply_to_id,omitempty"`
	PossiblySensitive bool      `json:"possibly_sensitive"`
	IsRetweet         bool      `json:"is_retweet"`
	IsQuote           bool      `json:"is_quote"`
	OriginalTweetID   string    `gorm:"size:32" json:"original_tweet_id,omitempty"`
	OriginalAuthor    string    `gorm:"size:64" json:"original_author,omitempty"`
	HasMedia          bool      `json:"has_media"`
	MediaType         string    `json:"media_type,omitempty"`
	MediaURL          string    `gorm:"column:media_url" json:"media_url,omitempty"`
	PlaceID           string    `json:"place_id,omitempty"`
	PlaceFullName     string    `json:"place_full_name,omitempty"`
	CoordinatesLat    *float64  `json:"coordinates_lat,omitempty"`
	CoordinatesLong   *float64  `json:"coordinates_long,omitempty"`
	EditHistory       string    `gorm:"column:edit_history_tweet_ids" json:"edit_history_tweet_ids,omitempty"`
}

// Engagement returns likes plus retweets.
func (t *Tweet) Engagement() int { return t.Likes + t.Retweets }

// Mention is one @-mention found in a tweet's text.
type Mention struct {
	TweetID           string    `gorm:"primaryKey;size:32" json:"tweet_id"`
	MentionedUsername string    `gorm:"primaryKey;size:64;index:idx_mentions_username" json:"mentioned_username"`
	AuthorUsername    string    `gorm:"size:64;not null" json:"author_username"`
	MentionType       string    `gorm:"size:32;not null" json:"mention_type"`
	DiscoveredAt      time.Time `gorm:"not null" json:"discovered_at"`
	CollectorID       string    `gorm:"size:64;not null" json:"collector_id"`
}

func (Mention) TableName() string { return "tweet_mentions" }

// Thread places a tweet inside its conversation.
type Thread struct {
	TweetID        string    `gorm:"primaryKey;size:32" json:"tweet_id"`
	ConversationID string    `gorm:"size:32;not null;index:idx_threads_conversation" json:"conversation_id"`
	ThreadType     string    `gorm:"size:32;not null" json:"thread_type"`
	ThreadPosition int       `gorm:"not null" json:"thread_position"`
	ParentTweetID  string    `gorm:"size:32" json:"parent_tweet_id,omitempty"`
	RootTweetID    string    `gorm:"size:32;not null;index:idx_threads_root" json:"root_tweet_id"`
	DiscoveredAt   time.Time `gorm:"not null" json:"discovered_at"`
	CollectorID    string    `gorm:"size:64;not null" json:"collector_id"`
}

func (Thread) TableName() string { return "tweet_threads" }

// TokenMention is a $TICKER or #TICKER reference.
type TokenMention struct {
	TweetID        string    `gorm:"primaryKey;size:32" json:"tweet_id"`
	TokenSymbol    string    `gorm:"primaryKey;size:16;index:idx_token_mentions_symbol" json:"token_symbol"`
	AuthorUsername string    `gorm:"size:64;not null;index:idx_token_mentions_author" json:"author_username"`
	MentionedAt    time.Time `gorm:"not null" json:"mentioned_at"`
	CollectorID    string    `gorm:"size:64;not null" json:"collector_id"`
}

// AccountFollowing is a follower -> following edge discovered by a crawl.
type AccountFollowing struct {
	Follower     string    `gorm:"primaryKey;size:64;index:idx_followings_follower" json:"follower"`
	Following    string    `gorm:"primaryKey;size:64" json:"following"`
	FollowingID  string    `gorm:"size:32" json:"following_id"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// OurFollowing is an account a collector followed.
type OurFollowing struct {
	Username    string    `gorm:"primaryKey;size:64" json:"username"`
	CollectorID string    `gorm:"primaryKey;size:64" json:"collector_id"`
	FollowedAt  time.Time `gorm:"index" json:"followed_at"`
}

func (OurFollowing) TableName() string { return "our_following" }

// FollowingCheck logs which followings pages were read for an account.
type FollowingCheck struct {
	Username    string    `gorm:"primaryKey;size:64" json:"username"`
	PageChecked int       `gorm:"primaryKey" json:"page_checked"`
	CheckedAt   time.Time `json:"checked_at"`
}

func (FollowingCheck) TableName() string { return "following_check_log" }

// Engagement links a viral tweet to a reply/quote author, or marks the tweet
// as processed (AuthorUsername empty).
type Engagement struct {
	TweetID        string    `gorm:"primaryKey;size:32" json:"tweet_id"`
	CollectorID    string    `gorm:"primaryKey;size:64" json:"collector_id"`
	EngagementType string    `gorm:"primaryKey;size:16" json:"engagement_type"`
	AuthorUsername string    `gorm:"primaryKey;size:64" json:"author_username"`
	EngagedAt      time.Time `gorm:"index:idx_engagements_time" json:"engaged_at"`
}

func (Engagement) TableName() string { return "tweet_engagements" }

// Hashtag is a lower-cased hashtag attached to a tweet.
type Hashtag struct {
	TweetID      string    `gorm:"primaryKey;size:32" json:"tweet_id"`
	Hashtag      string    `gorm:"primaryKey;size:140;index:idx_hashtags" json:"hashtag"`
	DiscoveredAt time.Time `gorm:"index:idx_hashtags_time" json:"discovered_at"`
}

func (Hashtag) TableName() string { return "tweet_hashtags" }

// SearchCache keeps the last computed metrics for a search term.
type SearchCache struct {
	SearchType     string    `gorm:"primaryKey;size:32" json:"search_type"`
	Term           string    `gorm:"primaryKey;size:255" json:"term"`
	Metrics        string    `json:"metrics"`
	LastSearchedAt time.Time `json:"last_searched_at"`
}

func (SearchCache) TableName() string { return "search_cache" }

// Models lists every table owned by the collector, in migration order.
func Models() []any {
	return []any{
		&User{},
		&APICall{},
		&Tweet{},
		&Mention{},
		&Thread{},
		&TokenMention{},
		&AccountFollowing{},
		&OurFollowing{},
		&FollowingCheck{},
		&Engagement{},
		&Hashtag{},
		&SearchCache{},
	}
}
