package platform

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/247void/twitterScraper/internal/clock"
)

// Op names a Client method for fault injection and call accounting.
type Op string

const (
	OpSignIn        Op = "sign_in"
	OpVerify        Op = "verify"
	OpHomeTimeline  Op = "home_timeline"
	OpAccountTweets Op = "account_tweets"
	OpUserInfo      Op = "user_info"
	OpFollowings    Op = "followings"
	OpComments      Op = "comments"
	OpFollow        Op = "follow"
	OpSearch        Op = "search"
)

// Page sizes of the simulated listings.
const (
	PageSize          = 20
	FollowingPageSize = 50
)

var simAuthors = []string{
	"alpha_trader", "cryptowhale", "marketwatcher", "onchain_anna",
	"degen_dan", "solana_sam", "btc_maxi", "eth_ella", "macro_mike", "nft_nora",
}

var simTickers = []string{"BTC", "ETH", "SOL", "DOGE", "AAPL", "TSLA", "NVDA"}

var simTags = []string{"crypto", "markets", "defi", "stocks", "ai"}

var simPhrases = []string{
	"gm, long day ahead",
	"watching the charts closely",
	"this move was obvious in hindsight",
	"volume is picking up again",
	"not financial advice but",
	"new thread on fundamentals",
	"liquidity is thin this week",
}

var errNotSignedIn = errors.New("not signed in")

// Simulated is a deterministic in-process Client. It synthesizes tweets,
// users and followings from a seed, and accepts fixtures and injected
// faults so handlers can be exercised without a network.
type Simulated struct {
	mu    sync.Mutex
	rnd   clock.Random
	clock clock.Clock

	verificationCode string
	verified         bool
	signedIn         bool

	nextID        uint64
	timelinePages int
	repeatRatio   float64
	seen          []Tweet

	tweets     map[string][]Tweet
	users      map[string]*User
	followings map[string][]User
	comments   map[string][]Tweet
	follows    map[string]bool

	faults map[Op][]error
	calls  map[Op]int
}

// SimOption configures a Simulated client.
type SimOption func(*Simulated)

// WithSimClock sets the clock used for tweet timestamps.
func WithSimClock(c clock.Clock) SimOption { return func(s *Simulated) { s.clock = c } }

// WithVerificationCode makes SignIn return ErrActionRequired until code is
// submitted.
func WithVerificationCode(code string) SimOption {
	return func(s *Simulated) { s.verificationCode = code }
}

// WithTimelinePages sets how many timeline pages exist before the cursor
// runs out.
func WithTimelinePages(n int) SimOption { return func(s *Simulated) { s.timelinePages = n } }

// WithRepeatRatio sets the share of timeline entries that repeat tweets
// already served.
func WithRepeatRatio(r float64) SimOption { return func(s *Simulated) { s.repeatRatio = r } }

// NewSimulated creates a simulated client. The same seed and call sequence
// always yield the same data.
func NewSimulated(seed uint64, opts ...SimOption) *Simulated {
	s := &Simulated{
		rnd:           clock.Seeded(seed),
		clock:         clock.Real(),
		nextID:        1_790_000_000_000_000_000,
		timelinePages: 5,
		tweets:        make(map[string][]Tweet),
		users:         make(map[string]*User),
		followings:    make(map[string][]User),
		comments:      make(map[string][]Tweet),
		follows:       make(map[string]bool),
		faults:        make(map[Op][]error),
		calls:         make(map[Op]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// Fixtures
// =============================================================================

// AddTweets fixes the tweets AccountTweets returns for account.
func (s *Simulated) AddTweets(account string, tweets ...Tweet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tweets[account] = append(s.tweets[account], tweets...)
}

// AddUser fixes the profile UserInfo returns.
func (s *Simulated) AddUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Username] = &u
}

// AddFollowings fixes the followings of account.
func (s *Simulated) AddFollowings(account string, users ...User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.followings[account] = append(s.followings[account], users...)
}

// AddComments fixes the replies Comments returns for tweetID.
func (s *Simulated) AddComments(tweetID string, replies ...Tweet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[tweetID] = append(s.comments[tweetID], replies...)
}

// FailNext queues err as the result of the next call to op.
func (s *Simulated) FailNext(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = append(s.faults[op], err)
}

// Calls returns how many times op was invoked.
func (s *Simulated) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Followed reports whether Follow was called for account.
func (s *Simulated) Followed(account string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.follows[account]
}

// =============================================================================
// Client
// =============================================================================

func (s *Simulated) SignIn(ctx context.Context, creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpSignIn, false); err != nil {
		return err
	}
	if creds.Username == "" {
		return Wrap(string(OpSignIn), http.StatusUnauthorized, errors.New("username is required"))
	}
	if s.verificationCode != "" && !s.verified {
		return ErrActionRequired
	}
	s.signedIn = true
	return nil
}

func (s *Simulated) SubmitVerification(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpVerify, false); err != nil {
		return err
	}
	if s.verificationCode == "" || code != s.verificationCode {
		return Wrap(string(OpVerify), http.StatusUnauthorized, errors.New("invalid verification code"))
	}
	s.verified = true
	return nil
}

func (s *Simulated) HomeTimeline(ctx context.Context, kind TimelineKind, pages int, cursor string) (TweetPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpHomeTimeline, true); err != nil {
		return TweetPage{}, err
	}
	page, err := parseCursor("tl", cursor)
	if err != nil {
		return TweetPage{}, Wrap(string(OpHomeTimeline), http.StatusBadRequest, err)
	}
	if pages < 1 {
		pages = 1
	}

	var out TweetPage
	for i := 0; i < pages && page < s.timelinePages; i++ {
		for j := 0; j < PageSize; j++ {
			if len(s.seen) > 0 && s.rnd.Float64() < s.repeatRatio {
				out.Tweets = append(out.Tweets, s.seen[s.rnd.IntN(len(s.seen))])
				continue
			}
			t := s.newTweet("", "")
			if kind == TimelineFollowing {
				t.Likes /= 2
			}
			s.seen = append(s.seen, t)
			out.Tweets = append(out.Tweets, t)
		}
		page++
	}
	if page < s.timelinePages {
		out.NextCursor = "tl:" + strconv.Itoa(page)
	}
	return out, nil
}

func (s *Simulated) AccountTweets(ctx context.Context, account string, pages int) ([]Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpAccountTweets, true); err != nil {
		return nil, err
	}
	if cached, ok := s.tweets[account]; ok {
		return append([]Tweet(nil), cached...), nil
	}
	if pages < 1 {
		pages = 1
	}
	out := make([]Tweet, 0, pages*PageSize)
	for i := 0; i < pages*PageSize; i++ {
		t := s.newTweet(account, "")
		switch r := s.rnd.Float64(); {
		case r < 0.1:
			orig := s.newTweet("", "")
			t.Text = "RT @" + orig.AuthorUsername + ": " + orig.Text
			t.Retweeted = &orig
		case r < 0.2:
			q := s.newTweet("", "")
			t.Quoted = &q
		}
		out = append(out, t)
	}
	s.tweets[account] = out
	return append([]Tweet(nil), out...), nil
}

func (s *Simulated) UserInfo(ctx context.Context, account string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpUserInfo, true); err != nil {
		return nil, err
	}
	u := s.user(account)
	cp := *u
	return &cp, nil
}

func (s *Simulated) Followings(ctx context.Context, account string, pages int, cursor string) (UserPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpFollowings, true); err != nil {
		return UserPage{}, err
	}
	offset, err := parseCursor("fw", cursor)
	if err != nil {
		return UserPage{}, Wrap(string(OpFollowings), http.StatusBadRequest, err)
	}
	all, ok := s.followings[account]
	if !ok {
		n := s.user(account).FollowingCount
		all = make([]User, 0, n)
		for i := 0; i < n; i++ {
			all = append(all, *s.user(fmt.Sprintf("%s_f%03d", account, i)))
		}
		s.followings[account] = all
	}
	if pages < 1 {
		pages = 1
	}
	end := min(offset+pages*FollowingPageSize, len(all))
	if offset >= end {
		return UserPage{}, nil
	}
	out := UserPage{Users: append([]User(nil), all[offset:end]...)}
	if end < len(all) {
		out.NextCursor = "fw:" + strconv.Itoa(end)
	}
	return out, nil
}

func (s *Simulated) Comments(ctx context.Context, tweetID string, pages int) ([]Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpComments, true); err != nil {
		return nil, err
	}
	if cached, ok := s.comments[tweetID]; ok {
		return append([]Tweet(nil), cached...), nil
	}
	if pages < 1 {
		pages = 1
	}
	out := make([]Tweet, 0, pages*PageSize)
	for i := 0; i < pages*PageSize; i++ {
		t := s.newTweet("", "")
		t.InReplyToID = tweetID
		t.ConversationID = tweetID
		t.Likes = s.rnd.IntN(40)
		out = append(out, t)
	}
	s.comments[tweetID] = out
	return append([]Tweet(nil), out...), nil
}

func (s *Simulated) Follow(ctx context.Context, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpFollow, true); err != nil {
		return err
	}
	s.follows[account] = true
	return nil
}

func (s *Simulated) Search(ctx context.Context, query string, pages int, mode SearchMode) ([]Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpSearch, true); err != nil {
		return nil, err
	}
	if pages < 1 {
		pages = 1
	}
	out := make([]Tweet, 0, pages*PageSize)
	for i := 0; i < pages*PageSize; i++ {
		t := s.newTweet("", query)
		if mode == SearchTop {
			t.Likes += 200 + s.rnd.IntN(800)
			t.Retweets += 20 + s.rnd.IntN(100)
		}
		out = append(out, t)
	}
	return out, nil
}

// =============================================================================
// Generators
// =============================================================================

func (s *Simulated) begin(ctx context.Context, op Op, needSession bool) error {
	s.calls[op]++
	if err := ctx.Err(); err != nil {
		return err
	}
	if q := s.faults[op]; len(q) > 0 {
		s.faults[op] = q[1:]
		return q[0]
	}
	if needSession && !s.signedIn {
		return Wrap(string(op), http.StatusUnauthorized, errNotSignedIn)
	}
	return nil
}

func (s *Simulated) now() time.Time { return s.clock.Now() }

func (s *Simulated) newTweet(author, topic string) Tweet {
	if author == "" {
		author = simAuthors[s.rnd.IntN(len(simAuthors))]
	}
	s.nextID++
	id := strconv.FormatUint(s.nextID, 10)

	parts := []string{simPhrases[s.rnd.IntN(len(simPhrases))]}
	if topic != "" {
		parts = append(parts, topic)
	}
	if s.rnd.Float64() < 0.3 {
		parts = append(parts, "$"+simTickers[s.rnd.IntN(len(simTickers))])
	}
	if s.rnd.Float64() < 0.25 {
		parts = append(parts, "@"+simAuthors[s.rnd.IntN(len(simAuthors))])
	}
	var tags []string
	if s.rnd.Float64() < 0.2 {
		tag := simTags[s.rnd.IntN(len(simTags))]
		tags = append(tags, tag)
		parts = append(parts, "#"+tag)
	}

	likes := s.rnd.IntN(120)
	if s.rnd.Float64() < 0.1 {
		likes += 500 + s.rnd.IntN(5000)
	}
	return Tweet{
		ID:             id,
		AuthorID:       userID(author),
		AuthorUsername: author,
		Text:           strings.Join(parts, " "),
		CreatedAt:      s.now().Add(-time.Duration(s.rnd.IntN(180)) * time.Minute).UTC(),
		Likes:          likes,
		Retweets:       likes / (2 + s.rnd.IntN(8)),
		Views:          likes * (20 + s.rnd.IntN(80)),
		Bookmarks:      s.rnd.IntN(30),
		Replies:        s.rnd.IntN(25),
		Quotes:         s.rnd.IntN(5),
		Source:         "simulated",
		Language:       "en",
		ConversationID: id,
		Hashtags:       tags,
		EditHistory:    []string{id},
	}
}

func (s *Simulated) user(username string) *User {
	if u, ok := s.users[username]; ok {
		return u
	}
	u := &User{
		ID:             userID(username),
		Username:       username,
		FollowingCount: 20 + s.rnd.IntN(180),
		FollowersCount: s.rnd.IntN(50_000),
		TweetCount:     s.rnd.IntN(20_000),
		ListedCount:    s.rnd.IntN(200),
		CreatedAt:      time.Date(2012+s.rnd.IntN(10), time.Month(1+s.rnd.IntN(12)), 1, 0, 0, 0, 0, time.UTC),
		Description:    "simulated account",
		Verified:       s.rnd.Float64() < 0.05,
	}
	s.users[username] = u
	return u
}

func userID(username string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(username))
	return strconv.FormatUint(h.Sum64()%1_000_000_000_000, 10)
}

func parseCursor(prefix, cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	rest, ok := strings.CutPrefix(cursor, prefix+":")
	if !ok {
		return 0, fmt.Errorf("malformed cursor %q", cursor)
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("malformed cursor %q", cursor)
	}
	return n, nil
}

var _ Client = (*Simulated)(nil)
