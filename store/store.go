package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxQueryLimit caps QueryTweets page sizes.
const MaxQueryLimit = 1000

// Store is the gorm-backed persistence layer. Every write is an idempotent
// upsert keyed by the natural identifier of the row.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New wraps db.
func New(db *gorm.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger.With(zap.String("component", "store"))}
}

// DB exposes the underlying handle for ledgers sharing the connection.
func (s *Store) DB() *gorm.DB { return s.db }

// AutoMigrate creates or updates every collector table.
func (s *Store) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) insertIgnore(ctx context.Context, rows any) (int64, error) {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rows)
	return res.RowsAffected, res.Error
}

// =============================================================================
// Users
// =============================================================================

// EnsureUser inserts a bare user row if the username is unknown.
func (s *Store) EnsureUser(ctx context.Context, username string) error {
	_, err := s.insertIgnore(ctx, &User{Username: username})
	return err
}

// EnsureUsers is the batch form of EnsureUser.
func (s *Store) EnsureUsers(ctx context.Context, usernames []string) error {
	seen := make(map[string]bool, len(usernames))
	rows := make([]User, 0, len(usernames))
	for _, u := range usernames {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		rows = append(rows, User{Username: u})
	}
	if len(rows) == 0 {
		return nil
	}
	_, err := s.insertIgnore(ctx, &rows)
	return err
}

// UpsertUser writes a full profile, replacing any stored one.
func (s *Store) UpsertUser(ctx context.Context, u *User) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(u).Error
}

// GetUser loads a profile by username.
func (s *Store) GetUser(ctx context.Context, username string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// TouchTweetCheck records when an account's tweets were last fetched.
func (s *Store) TouchTweetCheck(ctx context.Context, username string, at time.Time) error {
	at = at.UTC()
	return s.db.WithContext(ctx).Model(&User{}).
		Where("username = ?", username).
		Update("last_tweet_check", at).Error
}

// =============================================================================
// Tweets
// =============================================================================

// InsertTweets stores tweets that are not yet known and reports how many
// rows were new.
func (s *Store) InsertTweets(ctx context.Context, tweets []Tweet) (int64, error) {
	if len(tweets) == 0 {
		return 0, nil
	}
	var inserted int64
	// Row-by-row so RowsAffected is exact on every driver.
	for i := range tweets {
		tweets[i].PostedAt = tweets[i].PostedAt.UTC()
		tweets[i].CollectedAt = tweets[i].CollectedAt.UTC()
		n, err := s.insertIgnore(ctx, &tweets[i])
		if err != nil {
			return inserted, fmt.Errorf("insert tweet %s: %w", tweets[i].ID, err)
		}
		inserted += n
	}
	return inserted, nil
}

// TweetExists reports whether id is stored.
func (s *Store) TweetExists(ctx context.Context, id string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Tweet{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// GetTweet loads one tweet, nil when missing.
func (s *Store) GetTweet(ctx context.Context, id string) (*Tweet, error) {
	var t Tweet
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// LinkOriginal marks tweetID as a retweet or quote of originalID.
func (s *Store) LinkOriginal(ctx context.Context, tweetID, originalID, originalAuthor string, retweet bool) error {
	return s.db.WithContext(ctx).Model(&Tweet{}).
		Where("id = ?", tweetID).
		Updates(map[string]any{
			"original_tweet_id": originalID,
			"original_author":   originalAuthor,
			"is_retweet":        retweet,
			"is_quote":          !retweet,
		}).Error
}

// CountTweetsByAuthor counts stored tweets written by username.
func (s *Store) CountTweetsByAuthor(ctx context.Context, username string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Tweet{}).Where("author_username = ?", username).Count(&n).Error
	return n, err
}

// TweetFilter narrows QueryTweets.
type TweetFilter struct {
	Limit    int
	Offset   int
	Hours    int
	Username string
	MinLikes int
	Now      time.Time
}

// QueryTweets returns stored tweets newest first.
func (s *Store) QueryTweets(ctx context.Context, f TweetFilter) ([]Tweet, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > MaxQueryLimit {
		f.Limit = MaxQueryLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Now.IsZero() {
		f.Now = time.Now()
	}

	q := s.db.WithContext(ctx).Model(&Tweet{})
	if f.Hours > 0 {
		q = q.Where("created_at > ?", f.Now.Add(-time.Duration(f.Hours)*time.Hour).UTC())
	}
	if f.Username != "" {
		q = q.Where("author_username = ?", f.Username)
	}
	if f.MinLikes > 0 {
		q = q.Where("likes >= ?", f.MinLikes)
	}

	var out []Tweet
	err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&out).Error
	return out, err
}

// RecentTweets returns tweets collected by collectorID since the given time.
func (s *Store) RecentTweets(ctx context.Context, collectorID string, since time.Time, limit int) ([]Tweet, error) {
	var out []Tweet
	q := s.db.WithContext(ctx).
		Where("collected_at > ?", since.UTC())
	if collectorID != "" {
		q = q.Where("collector_id = ?", collectorID)
	}
	err := q.Order("collected_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

// InsertHashtags stores hashtag rows, ignoring duplicates.
func (s *Store) InsertHashtags(ctx context.Context, rows []Hashtag) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := s.insertIgnore(ctx, &rows)
	return err
}
