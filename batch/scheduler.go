package batch

import (
	"sync"

	"github.com/247void/twitterScraper/internal/clock"
)

// Scheduler partitions a shuffled account list into fixed-size batches and
// rotates through them cyclically. It is safe for concurrent use.
type Scheduler struct {
	mu       sync.RWMutex
	accounts []string
	size     int
	index    int
}

// New copies accounts, shuffles them once with rnd and returns a scheduler
// positioned at batch 0. A size below 1 is treated as 1.
func New(accounts []string, size int, rnd clock.Random) *Scheduler {
	if size < 1 {
		size = 1
	}
	if rnd == nil {
		rnd = clock.DefaultRandom()
	}
	shuffled := make([]string, len(accounts))
	copy(shuffled, accounts)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rnd.IntN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return &Scheduler{accounts: shuffled, size: size}
}

// TotalBatches returns ceil(len(accounts)/size).
func (s *Scheduler) TotalBatches() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total()
}

func (s *Scheduler) total() int {
	return (len(s.accounts) + s.size - 1) / s.size
}

// Index returns the current batch index.
func (s *Scheduler) Index() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// Size returns the configured batch size.
func (s *Scheduler) Size() int { return s.size }

// CurrentBatch returns a copy of the accounts at the current index. The
// last batch may be short; an empty list yields an empty batch.
func (s *Scheduler) CurrentBatch() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current()
}

func (s *Scheduler) current() []string {
	lo := s.index * s.size
	if lo >= len(s.accounts) {
		return []string{}
	}
	hi := min(lo+s.size, len(s.accounts))
	out := make([]string, hi-lo)
	copy(out, s.accounts[lo:hi])
	return out
}

// Rotate advances to the next batch, wrapping to 0 after the last one, and
// returns the new current batch. It is a no-op when there are no accounts.
func (s *Scheduler) Rotate() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if total := s.total(); total > 0 {
		s.index = (s.index + 1) % total
	}
	return s.current()
}

// Accounts returns a copy of the shuffled account list.
func (s *Scheduler) Accounts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.accounts))
	copy(out, s.accounts)
	return out
}
