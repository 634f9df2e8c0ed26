package collector

import (
	"strings"
	"time"

	"github.com/247void/twitterScraper/platform"
	"github.com/247void/twitterScraper/store"
)

// storedTweet maps a platform tweet onto its row. Retweet and quote links
// point at the embedded original.
func storedTweet(t platform.Tweet, collectorID string, now time.Time) store.Tweet {
	row := store.Tweet{
		ID:                t.ID,
		AuthorID:          t.AuthorID,
		AuthorUsername:    t.AuthorUsername,
		Text:              t.Text,
		PostedAt:          t.CreatedAt,
		CollectedAt:       now,
		CollectorID:       collectorID,
		Likes:             t.Likes,
		Retweets:          t.Retweets,
		Views:             t.Views,
		BookmarkCount:     t.Bookmarks,
		ReplyCount:        t.Replies,
		QuoteCount:        t.Quotes,
		Source:            t.Source,
		Language:          t.Language,
		ConversationID:    t.ConversationID,
		InReplyToID:       t.InReplyToID,
		PossiblySensitive: t.PossiblySensitive,
		CoordinatesLat:    t.Latitude,
		CoordinatesLong:   t.Longitude,
		EditHistory:       strings.Join(t.EditHistory, ","),
	}
	if row.PostedAt.IsZero() {
		row.PostedAt = now
	}
	if len(t.Media) > 0 {
		row.HasMedia = true
		row.MediaType = t.Media[0].Type
		row.MediaURL = t.Media[0].URL
	}
	if t.Place != nil {
		row.PlaceID = t.Place.ID
		row.PlaceFullName = t.Place.FullName
	}
	switch {
	case t.Retweeted != nil:
		row.IsRetweet = true
		row.OriginalTweetID = t.Retweeted.ID
		row.OriginalAuthor = t.Retweeted.AuthorUsername
	case t.Quoted != nil:
		row.IsQuote = true
		row.OriginalTweetID = t.Quoted.ID
		row.OriginalAuthor = t.Quoted.AuthorUsername
	}
	return row
}

// storedUser maps a platform profile onto its row.
func storedUser(u platform.User) store.User {
	row := store.User{
		Username:         u.Username,
		FollowingCount:   u.FollowingCount,
		FollowersCount:   u.FollowersCount,
		TweetCount:       u.TweetCount,
		ListedCount:      u.ListedCount,
		Description:      u.Description,
		Location:         u.Location,
		URL:              u.URL,
		Verified:         u.Verified,
		ProfileImageURL:  u.ProfileImageURL,
		ProfileBannerURL: u.ProfileBannerURL,
	}
	if u.ID != "" {
		id := u.ID
		row.TwitterID = &id
	}
	if !u.CreatedAt.IsZero() {
		created := u.CreatedAt.UTC()
		row.AccountCreatedAt = &created
	}
	return row
}

// hashtagRows lower-cases and dedupes a tweet's hashtags.
func hashtagRows(t platform.Tweet, now time.Time) []store.Hashtag {
	seen := make(map[string]bool, len(t.Hashtags))
	var rows []store.Hashtag
	for _, tag := range t.Hashtags {
		tag = strings.ToLower(strings.TrimPrefix(tag, "#"))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		rows = append(rows, store.Hashtag{TweetID: t.ID, Hashtag: tag, DiscoveredAt: now})
	}
	return rows
}
