package collector

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/247void/twitterScraper/internal/clock"
	"github.com/247void/twitterScraper/workflow"
)

// Settings are the per-collector behavior constants. Each field is
// addressable by the names in its const tag; workflow constants and config
// overrides are applied on top of DefaultSettings.
type Settings struct {
	// Timeline
	MinTimelineInterval time.Duration `const:"MIN_TIMELINE_INTERVAL"`
	MaxTimelineInterval time.Duration `const:"MAX_TIMELINE_INTERVAL"`
	ScrollTimeNew       clock.Range   `const:"SCROLL_TIME_NEW"`
	ScrollTimeOld       clock.Range   `const:"SCROLL_TIME_OLD"`
	MaxTimelinePages    int           `const:"MAX_TIMELINE_PAGES"`
	MinNewTweets        int           `const:"MIN_NEW_TWEETS,MIN_NEW_TWEETS_TO_CONTINUE"`
	QualityPageRatio    float64       `const:"QUALITY_PAGE_RATIO"`
	MaxLowQualityPages  int           `const:"MAX_LOW_QUALITY_PAGES"`

	// Account batches
	AccountsPerBatch     int         `const:"ACCOUNTS_PER_BATCH"`
	AccountDelay         clock.Range `const:"ACCOUNT_DELAY"`
	FollowingCheckChance float64     `const:"FOLLOWING_CHECK_CHANCE"`

	// Following
	FollowChance       float64     `const:"FOLLOW_CHANCE"`
	MaxFollowsPerDay   int         `const:"MAX_FOLLOWS_PER_DAY"`
	MustHaveTweets     int         `const:"MUST_HAVE_TWEETS"`
	FollowDelay        clock.Range `const:"FOLLOW_DELAY"`
	MaxFollowingPages  int         `const:"MAX_FOLLOWING_PAGES"`
	DeepCrawlFactor    int         `const:"DEEP_CRAWL_FACTOR"`
	FollowingPageSize  int         `const:"FOLLOWING_PAGE_SIZE"`
	FollowingPageDelay clock.Range `const:"FOLLOWING_PAGE_DELAY"`
	FollowingCooldown  clock.Range `const:"FOLLOWING_COOLDOWN"`

	// Engagement
	MinEngagement       int           `const:"MIN_ENGAGEMENT"`
	MinReplyLikes       int           `const:"MIN_REPLY_LIKES"`
	MaxTweetsPerBatch   int           `const:"MAX_TWEETS_PER_BATCH"`
	MaxDepthPerTweet    int           `const:"MAX_DEPTH_PER_TWEET"`
	ViralWindow         time.Duration `const:"VIRAL_WINDOW"`
	EngagementBlacklist []string      `const:"ENGAGEMENT_BLACKLIST"`
	CommentPagesMin     int           `const:"COMMENT_PAGES_MIN"`
	CommentPagesMax     int           `const:"COMMENT_PAGES_MAX"`
	CommentPageDelay    clock.Range   `const:"COMMENT_PAGE_DELAY"`
	ReplyKeepChance     float64       `const:"REPLY_KEEP_CHANCE"`
	ReplyDiveChance     float64       `const:"REPLY_DIVE_CHANCE"`
	ReplyDiveMinReplies int           `const:"REPLY_DIVE_MIN_REPLIES"`
	ReplyDiveDelay      clock.Range   `const:"REPLY_DIVE_DELAY"`
	ViralTweetGap       clock.Range   `const:"VIRAL_TWEET_GAP"`

	// Search
	SearchPages int `const:"SEARCH_PAGES"`
}

// DefaultSettings returns the built-in constants.
func DefaultSettings() Settings {
	return Settings{
		MinTimelineInterval: 300 * time.Second,
		MaxTimelineInterval: 480 * time.Second,
		ScrollTimeNew:       clock.Seconds(5, 20),
		ScrollTimeOld:       clock.Seconds(2, 5),
		MaxTimelinePages:    15,
		MinNewTweets:        3,
		QualityPageRatio:    0.3,
		MaxLowQualityPages:  2,

		AccountsPerBatch:     20,
		AccountDelay:         clock.Seconds(10, 20),
		FollowingCheckChance: 0.3,

		FollowChance:       0.1,
		MaxFollowsPerDay:   20,
		MustHaveTweets:     3,
		FollowDelay:        clock.Seconds(10, 30),
		MaxFollowingPages:  5,
		DeepCrawlFactor:    3,
		FollowingPageSize:  50,
		FollowingPageDelay: clock.Seconds(8, 12),
		FollowingCooldown:  clock.Seconds(30, 60),

		MinEngagement:       100,
		MinReplyLikes:       10,
		MaxTweetsPerBatch:   3,
		MaxDepthPerTweet:    50,
		ViralWindow:         24 * time.Hour,
		EngagementBlacklist: []string{"elonmusk"},
		CommentPagesMin:     3,
		CommentPagesMax:     5,
		CommentPageDelay:    clock.Seconds(10, 25),
		ReplyKeepChance:     0.2,
		ReplyDiveChance:     0.3,
		ReplyDiveMinReplies: 5,
		ReplyDiveDelay:      clock.Seconds(5, 10),
		ViralTweetGap:       clock.Seconds(15, 45),

		SearchPages: 3,
	}
}

// ResolveSettings layers workflow constants and then config overrides on
// top of the defaults.
func ResolveSettings(workflowConstants, overrides map[string]any) (Settings, error) {
	s := DefaultSettings()
	if err := s.Apply(workflowConstants); err != nil {
		return s, fmt.Errorf("workflow constants: %w", err)
	}
	if err := s.Apply(overrides); err != nil {
		return s, fmt.Errorf("constant overrides: %w", err)
	}
	return s, s.Validate()
}

// Apply sets the named constants. Unknown names and values of the wrong
// type are errors; valid entries are applied even when others fail.
func (s *Settings) Apply(values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	index := settingIndex()
	rv := reflect.ValueOf(s).Elem()

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		i, ok := index[strings.ToUpper(name)]
		if !ok {
			errs = append(errs, fmt.Errorf("unknown constant %q", name))
			continue
		}
		if err := setField(rv.Field(i), values[name]); err != nil {
			errs = append(errs, fmt.Errorf("constant %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Validate checks value ranges.
func (s Settings) Validate() error {
	var errs []error
	rv := reflect.ValueOf(s)
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		name := primaryName(rt.Field(i))
		switch v := rv.Field(i).Interface().(type) {
		case clock.Range:
			if !v.Valid() {
				errs = append(errs, fmt.Errorf("%s: invalid range %v..%v", name, v.Min, v.Max))
			}
		case float64:
			if v < 0 || v > 1 {
				errs = append(errs, fmt.Errorf("%s: probability %v outside [0, 1]", name, v))
			}
		case int:
			if v < 0 {
				errs = append(errs, fmt.Errorf("%s: must not be negative", name))
			}
		case time.Duration:
			if v < 0 {
				errs = append(errs, fmt.Errorf("%s: must not be negative", name))
			}
		}
	}
	if s.MaxTimelineInterval < s.MinTimelineInterval {
		errs = append(errs, fmt.Errorf("MAX_TIMELINE_INTERVAL must not be below MIN_TIMELINE_INTERVAL"))
	}
	if s.CommentPagesMax < s.CommentPagesMin {
		errs = append(errs, fmt.Errorf("COMMENT_PAGES_MAX must not be below COMMENT_PAGES_MIN"))
	}
	if s.AccountsPerBatch < 1 {
		errs = append(errs, fmt.Errorf("ACCOUNTS_PER_BATCH must be at least 1"))
	}
	if s.FollowingPageSize < 1 {
		errs = append(errs, fmt.Errorf("FOLLOWING_PAGE_SIZE must be at least 1"))
	}
	return errors.Join(errs...)
}

// SettingNames lists every accepted constant name.
func SettingNames() []string {
	index := settingIndex()
	names := make([]string, 0, len(index))
	for name := range index {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	indexOnce sync.Once
	indexMap  map[string]int
)

func settingIndex() map[string]int {
	indexOnce.Do(func() {
		indexMap = make(map[string]int)
		rt := reflect.TypeFor[Settings]()
		for i := 0; i < rt.NumField(); i++ {
			tag := rt.Field(i).Tag.Get("const")
			for _, name := range strings.Split(tag, ",") {
				if name = strings.TrimSpace(name); name != "" {
					indexMap[name] = i
				}
			}
		}
	})
	return indexMap
}

func primaryName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("const"), ",")
	return name
}

var (
	durationType = reflect.TypeFor[time.Duration]()
	rangeType    = reflect.TypeFor[clock.Range]()
)

// setField assigns v to field. Durations and ranges are read as seconds;
// durations also accept Go duration strings such as "24h".
func setField(field reflect.Value, v any) error {
	p := workflow.Params{"v": v}
	switch {
	case field.Type() == durationType:
		if str, ok := v.(string); ok {
			d, err := time.ParseDuration(str)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		if !workflow.Conforms(v, workflow.KindFloat) {
			return fmt.Errorf("want seconds, got %T", v)
		}
		field.SetInt(int64(p.Float("v", 0) * float64(time.Second)))
	case field.Type() == rangeType:
		if !workflow.Conforms(v, workflow.KindRange) {
			return fmt.Errorf("want [min, max] seconds, got %v", v)
		}
		field.Set(reflect.ValueOf(p.Range("v", clock.Range{})))
	case field.Kind() == reflect.Int:
		if !workflow.Conforms(v, workflow.KindInt) {
			return fmt.Errorf("want int, got %T", v)
		}
		field.SetInt(int64(p.Int("v", 0)))
	case field.Kind() == reflect.Float64:
		if !workflow.Conforms(v, workflow.KindFloat) {
			return fmt.Errorf("want number, got %T", v)
		}
		field.SetFloat(p.Float("v", 0))
	case field.Kind() == reflect.Bool:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("want bool, got %T", v)
		}
		field.SetBool(b)
	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		list, err := stringList(v)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(list))
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

func stringList(v any) ([]string, error) {
	switch l := v.(type) {
	case []string:
		return append([]string(nil), l...), nil
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("want list of strings, got element %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		var out []string
		for _, part := range strings.Split(l, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("want list of strings, got %T", v)
}
