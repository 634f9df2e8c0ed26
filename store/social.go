package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// =============================================================================
// Following
// =============================================================================

// IsFollowing reports whether collectorID already follows username.
func (s *Store) IsFollowing(ctx context.Context, username, collectorID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&OurFollowing{}).
		Where("username = ? AND collector_id = ?", username, collectorID).
		Count(&n).Error
	return n > 0, err
}

// CountFollowsSince counts follows made by collectorID at or after since.
func (s *Store) CountFollowsSince(ctx context.Context, collectorID string, since time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&OurFollowing{}).
		Where("collector_id = ? AND followed_at >= ?", collectorID, since.UTC()).
		Count(&n).Error
	return n, err
}

// RecordFollow stores a follow made by a collector.
func (s *Store) RecordFollow(ctx context.Context, username, collectorID string, at time.Time) error {
	_, err := s.insertIgnore(ctx, &OurFollowing{Username: username, CollectorID: collectorID, FollowedAt: at.UTC()})
	return err
}

// InsertFollowings stores crawled edges and returns how many were new.
func (s *Store) InsertFollowings(ctx context.Context, rows []AccountFollowing) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	return s.insertIgnore(ctx, &rows)
}

// LogFollowingCheck records that page of username's followings was read.
func (s *Store) LogFollowingCheck(ctx context.Context, username string, page int, at time.Time) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&FollowingCheck{Username: username, PageChecked: page, CheckedAt: at.UTC()}).Error
}

// =============================================================================
// Engagement
// =============================================================================

// ViralQuery selects viral tweets for engagement checks.
type ViralQuery struct {
	Since         time.Time
	MinEngagement int
	Exclude       []string
	Limit         int
}

// ViralTweets returns tweets collected since q.Since whose likes+retweets
// exceed q.MinEngagement and that no collector has marked checked, most
// engaged first.
func (s *Store) ViralTweets(ctx context.Context, q ViralQuery) ([]Tweet, error) {
	checked := s.db.Model(&Engagement{}).
		Select("tweet_id").
		Where("engagement_type = ?", EngagementChecked)

	tx := s.db.WithContext(ctx).
		Where("collected_at > ?", q.Since.UTC()).
		Where("(likes + retweets) > ?", q.MinEngagement).
		Where("id NOT IN (?)", checked)
	if len(q.Exclude) > 0 {
		tx = tx.Where("author_username NOT IN ?", q.Exclude)
	}

	var out []Tweet
	err := tx.Order("(likes + retweets) DESC").Limit(q.Limit).Find(&out).Error
	return out, err
}

// InsertEngagements stores engagement rows, ignoring duplicates.
func (s *Store) InsertEngagements(ctx context.Context, rows []Engagement) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := s.insertIgnore(ctx, &rows)
	return err
}

// MarkEngagement stores a marker row (checked, deep) for tweetID.
func (s *Store) MarkEngagement(ctx context.Context, tweetID, collectorID, kind string, at time.Time) error {
	_, err := s.insertIgnore(ctx, &Engagement{
		TweetID:        tweetID,
		CollectorID:    collectorID,
		EngagementType: kind,
		EngagedAt:      at.UTC(),
	})
	return err
}

// PendingDeepEngagement returns tweets collectorID checked but has not yet
// deep-processed, oldest check first.
func (s *Store) PendingDeepEngagement(ctx context.Context, collectorID string, limit int) ([]string, error) {
	deep := s.db.Model(&Engagement{}).
		Select("tweet_id").
		Where("collector_id = ? AND engagement_type = ?", collectorID, EngagementDeep)

	var ids []string
	err := s.db.WithContext(ctx).Model(&Engagement{}).
		Where("collector_id = ? AND engagement_type = ?", collectorID, EngagementChecked).
		Where("tweet_id NOT IN (?)", deep).
		Order("engaged_at ASC").
		Limit(limit).
		Pluck("tweet_id", &ids).Error
	return ids, err
}

// RepliesTo returns stored replies to tweetID with at least minLikes likes.
func (s *Store) RepliesTo(ctx context.Context, tweetID string, minLikes, limit int) ([]Tweet, error) {
	var out []Tweet
	err := s.db.WithContext(ctx).
		Where("in_reply_to_id = ? AND likes >= ?", tweetID, minLikes).
		Order("likes DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// =============================================================================
// Mentions, threads, tokens
// =============================================================================

// InsertMentions stores mention rows and returns how many were new.
func (s *Store) InsertMentions(ctx context.Context, rows []Mention) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	return s.insertIgnore(ctx, &rows)
}

// InsertThread stores a thread row and reports whether it was new.
func (s *Store) InsertThread(ctx context.Context, row *Thread) (bool, error) {
	n, err := s.insertIgnore(ctx, row)
	return n > 0, err
}

// InsertTokenMentions stores token mention rows and returns how many were new.
func (s *Store) InsertTokenMentions(ctx context.Context, rows []TokenMention) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	return s.insertIgnore(ctx, &rows)
}

// ParentAuthor returns the author of tweetID if it is stored.
func (s *Store) ParentAuthor(ctx context.Context, tweetID string) (string, bool, error) {
	var authors []string
	err := s.db.WithContext(ctx).Model(&Tweet{}).
		Where("id = ?", tweetID).
		Limit(1).
		Pluck("author_username", &authors).Error
	if err != nil || len(authors) == 0 {
		return "", false, err
	}
	return authors[0], true, nil
}

// ThreadRoot returns the stored root tweet of a conversation.
func (s *Store) ThreadRoot(ctx context.Context, conversationID string) (string, bool, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&Thread{}).
		Where("conversation_id = ? AND thread_type = ?", conversationID, ThreadRoot).
		Limit(1).
		Pluck("tweet_id", &ids).Error
	if err != nil || len(ids) == 0 {
		return "", false, err
	}
	return ids[0], true, nil
}

// CountEarlierInConversation counts stored tweets of a conversation posted
// before at.
func (s *Store) CountEarlierInConversation(ctx context.Context, conversationID string, at time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Tweet{}).
		Where("conversation_id = ? AND created_at < ?", conversationID, at.UTC()).
		Count(&n).Error
	return n, err
}

// HasBranchReplies reports whether any single author replied to tweetID more
// than twice.
func (s *Store) HasBranchReplies(ctx context.Context, tweetID string) (bool, error) {
	var authors []string
	err := s.db.WithContext(ctx).Model(&Tweet{}).
		Where("in_reply_to_id = ?", tweetID).
		Group("author_username").
		Having("COUNT(*) > ?", 2).
		Limit(1).
		Pluck("author_username", &authors).Error
	return len(authors) > 0, err
}

// =============================================================================
// Search cache
// =============================================================================

// GetSearchCache returns the cached metrics for (searchType, term) if they
// were computed after notBefore.
func (s *Store) GetSearchCache(ctx context.Context, searchType, term string, notBefore time.Time) (*SearchCache, error) {
	var row SearchCache
	err := s.db.WithContext(ctx).
		Where("search_type = ? AND term = ? AND last_searched_at > ?", searchType, term, notBefore.UTC()).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// PutSearchCache replaces the cached metrics for (searchType, term).
func (s *Store) PutSearchCache(ctx context.Context, row *SearchCache) error {
	row.LastSearchedAt = row.LastSearchedAt.UTC()
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(row).Error
}
