package platform

import (
	"context"
	"time"
)

// TimelineKind selects which home timeline is read.
type TimelineKind string

const (
	TimelineForYou    TimelineKind = "for_you"
	TimelineFollowing TimelineKind = "following"
)

// SearchMode selects the ordering of search results.
type SearchMode string

const (
	SearchTop    SearchMode = "Top"
	SearchLatest SearchMode = "Latest"
)

// Credentials identify the account a collector signs in with.
type Credentials struct {
	Username string
	Password string
}

// Media is one attachment of a tweet.
type Media struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Place is the geotag attached to a tweet.
type Place struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
}

// Tweet is a post as returned by the platform.
type Tweet struct {
	ID                string    `json:"id"`
	AuthorID          string    `json:"author_id"`
	AuthorUsername    string    `json:"author_username"`
	Text              string    `json:"text"`
	CreatedAt         time.Time `json:"created_at"`
	Likes             int       `json:"likes"`
	Retweets          int       `json:"retweets"`
	Views             int       `json:"views"`
	Bookmarks         int       `json:"bookmarks"`
	Replies           int       `json:"replies"`
	Quotes            int       `json:"quotes"`
	Source            string    `json:"source,omitempty"`
	Language          string    `json:"language,omitempty"`
	ConversationID    string    `json:"conversation_id,omitempty"`
	InReplyToID       string    `json:"in_reply_to_id,omitempty"`
	PossiblySensitive bool      `json:"possibly_sensitive"`
	Hashtags          []string  `json:"hashtags,omitempty"`
	Media             []Media   `json:"media,omitempty"`
	Place             *Place    `json:"place,omitempty"`
	Latitude          *float64  `json:"latitude,omitempty"`
	Longitude         *float64  `json:"longitude,omitempty"`
	EditHistory       []string  `json:"edit_history,omitempty"`

	// Retweeted is set when the tweet is a retweet, Quoted when it quotes
	// another tweet.
	Retweeted *Tweet `json:"retweeted,omitempty"`
	Quoted    *Tweet `json:"quoted,omitempty"`

	// Author is the embedded author profile when the response carries one.
	Author *User `json:"author,omitempty"`
}

// User is an account profile as returned by the platform.
type User struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	FollowingCount   int       `json:"following_count"`
	FollowersCount   int       `json:"followers_count"`
	TweetCount       int       `json:"tweet_count"`
	ListedCount      int       `json:"listed_count"`
	CreatedAt        time.Time `json:"created_at"`
	Description      string    `json:"description,omitempty"`
	Location         string    `json:"location,omitempty"`
	URL              string    `json:"url,omitempty"`
	Verified         bool      `json:"verified"`
	ProfileImageURL  string    `json:"profile_image_url,omitempty"`
	ProfileBannerURL string    `json:"profile_banner_url,omitempty"`
}

// TweetPage is one page of a cursor-paginated tweet listing. An empty
// NextCursor means the listing is exhausted.
type TweetPage struct {
	Tweets     []Tweet
	NextCursor string
}

// UserPage is one page of a cursor-paginated user listing.
type UserPage struct {
	Users      []User
	NextCursor string
}

// Client is the platform surface the collector drives. Implementations
// must be safe for use by one collector goroutine plus concurrent searches.
type Client interface {
	// SignIn authenticates. It returns ErrActionRequired when the platform
	// asks for a verification code.
	SignIn(ctx context.Context, creds Credentials) error
	SubmitVerification(ctx context.Context, code string) error

	HomeTimeline(ctx context.Context, kind TimelineKind, pages int, cursor string) (TweetPage, error)
	AccountTweets(ctx context.Context, account string, pages int) ([]Tweet, error)
	UserInfo(ctx context.Context, account string) (*User, error)
	Followings(ctx context.Context, account string, pages int, cursor string) (UserPage, error)
	Comments(ctx context.Context, tweetID string, pages int) ([]Tweet, error)
	Follow(ctx context.Context, account string) error
	Search(ctx context.Context, query string, pages int, mode SearchMode) ([]Tweet, error)
}
