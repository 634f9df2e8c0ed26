package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/247void/twitterScraper/store"
)

// CallRecord is one outbound platform call.
type CallRecord struct {
	Timestamp   time.Time
	Endpoint    string
	CollectorID string
}

// CallLedger is the append-only log the limiter counts against. Records are
// partitioned by collector id.
type CallLedger interface {
	Append(ctx context.Context, rec CallRecord) error
	// CountSince counts records of collectorID with Timestamp strictly after since.
	CountSince(ctx context.Context, collectorID string, since time.Time) (int, error)
}

// =============================================================================
// Memory
// =============================================================================

// MemoryLedger keeps records in process. Used for dry runs and tests.
// Records older than the retention window are dropped on Append.
type MemoryLedger struct {
	mu        sync.Mutex
	records   map[string][]time.Time
	retention time.Duration
}

// MemoryLedgerOption configures a MemoryLedger.
type MemoryLedgerOption func(*MemoryLedger)

// WithMemoryRetention sets how long records are kept (default 24h).
func WithMemoryRetention(d time.Duration) MemoryLedgerOption {
	return func(l *MemoryLedger) {
		if d > 0 {
			l.retention = d
		}
	}
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger(opts ...MemoryLedgerOption) *MemoryLedger {
	l := &MemoryLedger{
		records:   make(map[string][]time.Time),
		retention: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *MemoryLedger) Append(_ context.Context, rec CallRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := rec.Timestamp.Add(-l.retention)
	kept := l.records[rec.CollectorID][:0]
	for _, ts := range l.records[rec.CollectorID] {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.records[rec.CollectorID] = append(kept, rec.Timestamp)
	return nil
}

func (l *MemoryLedger) CountSince(_ context.Context, collectorID string, since time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ts := range l.records[collectorID] {
		if ts.After(since) {
			n++
		}
	}
	return n, nil
}

// Len returns how many records collectorID has.
func (l *MemoryLedger) Len(collectorID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records[collectorID])
}

// =============================================================================
// Gorm
// =============================================================================

// GormLedger stores records in the api_calls table.
type GormLedger struct {
	db *gorm.DB
}

// NewGormLedger wraps db. The api_calls table must already be migrated.
func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) Append(ctx context.Context, rec CallRecord) error {
	row := store.APICall{
		Timestamp:   rec.Timestamp.UTC(),
		Endpoint:    rec.Endpoint,
		CollectorID: rec.CollectorID,
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("append api call: %w", err)
	}
	return nil
}

func (l *GormLedger) CountSince(ctx context.Context, collectorID string, since time.Time) (int, error) {
	var n int64
	err := l.db.WithContext(ctx).Model(&store.APICall{}).
		Where("collector_id = ? AND timestamp > ?", collectorID, since.UTC()).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count api calls: %w", err)
	}
	return int(n), nil
}
