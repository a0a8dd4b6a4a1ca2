package rules

import (
	"encoding/json"
	"math"
	"regexp"
	"slices"
	"time"
)

// Unbounded is the effective max-age of a feed exempted by an
// only-feed restriction. No entry age can exceed it.
const Unbounded = time.Duration(math.MaxInt64)

type titleRule struct {
	pattern *regexp.Regexp
	value   int
}

// Store holds the global default max-age plus all per-feed and
// per-title-pattern overrides. Populate it with AddRules before any
// evaluation; it is read-only afterwards.
type Store struct {
	defaultMaxAge int // days
	onlyFeedID    *int64
	feedMaxAge    map[int64]int
	feedKeepN     map[int64]int
	titleMaxAge   []titleRule
	titleKeepN    []titleRule
}

// NewStore creates a store with the given default max-age in days.
// When onlyFeedID is non-nil, every other feed is exempt from both
// rule families.
func NewStore(defaultMaxAgeDays int, onlyFeedID *int64) *Store {
	return &Store{
		defaultMaxAge: defaultMaxAgeDays,
		onlyFeedID:    onlyFeedID,
		feedMaxAge:    make(map[int64]int),
		feedKeepN:     make(map[int64]int),
	}
}

// AddRules merges a rules document into the store. Per-feed and
// per-pattern rules accumulate across calls; the global max_age key,
// when present, overwrites the current default (last call wins).
func (s *Store) AddRules(doc Document) error {
	if doc.FeedSpecific == nil && doc.TitleRegex == nil {
		return specErrorf("document must contain a feed_specific or title_regex rules list")
	}

	if doc.MaxAge != nil {
		if *doc.MaxAge < 0 {
			return specErrorf("max_age must be non-negative, got %d", *doc.MaxAge)
		}
		s.defaultMaxAge = *doc.MaxAge
	}

	for _, rule := range doc.FeedSpecific {
		if rule.FeedID == nil {
			return specErrorf("feed rule %s must include a feed_id", renderRule(rule))
		}
		if rule.MaxAge == nil && rule.KeepN == nil {
			return specErrorf("feed rule %s must include a max_age or keep_n", renderRule(rule))
		}
		if err := checkThresholds(rule.MaxAge, rule.KeepN); err != nil {
			return err
		}
		if rule.MaxAge != nil {
			s.feedMaxAge[*rule.FeedID] = *rule.MaxAge
		}
		if rule.KeepN != nil {
			s.feedKeepN[*rule.FeedID] = *rule.KeepN
		}
	}

	for _, rule := range doc.TitleRegex {
		if rule.TitleRegex == "" {
			return specErrorf("title rule %s must include a title_regex", renderRule(rule))
		}
		if rule.MaxAge == nil && rule.KeepN == nil {
			return specErrorf("title rule %s must include a max_age or keep_n", renderRule(rule))
		}
		if err := checkThresholds(rule.MaxAge, rule.KeepN); err != nil {
			return err
		}
		pattern, err := regexp.Compile(rule.TitleRegex)
		if err != nil {
			return specErrorf("title_regex %q does not compile: %v", rule.TitleRegex, err)
		}
		if rule.MaxAge != nil {
			s.titleMaxAge = append(s.titleMaxAge, titleRule{pattern: pattern, value: *rule.MaxAge})
		}
		if rule.KeepN != nil {
			s.titleKeepN = append(s.titleKeepN, titleRule{pattern: pattern, value: *rule.KeepN})
		}
	}

	return nil
}

// Validate checks every feed ID referenced by a feed rule or the
// only-feed restriction against the given subscription feed IDs and
// returns a ValidationError listing all unknown ones. It does not
// mutate the store.
func (s *Store) Validate(knownFeedIDs []int64) error {
	known := make(map[int64]bool, len(knownFeedIDs))
	for _, id := range knownFeedIDs {
		known[id] = true
	}

	referenced := make(map[int64]bool, len(s.feedMaxAge)+len(s.feedKeepN)+1)
	for id := range s.feedMaxAge {
		referenced[id] = true
	}
	for id := range s.feedKeepN {
		referenced[id] = true
	}
	if s.onlyFeedID != nil {
		referenced[*s.onlyFeedID] = true
	}

	var missing []int64
	for id := range referenced {
		if !known[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return &ValidationError{MissingFeedIDs: missing}
}

// MaxAge returns the effective max-age for a feed: the minimum of the
// default, the feed-specific override and every title pattern matching
// feedTitle. Feeds excluded by an only-feed restriction get Unbounded.
func (s *Store) MaxAge(feedID int64, feedTitle string) time.Duration {
	if s.excluded(feedID) {
		return Unbounded
	}

	days := s.defaultMaxAge
	if v, ok := s.feedMaxAge[feedID]; ok && v < days {
		days = v
	}
	for _, rule := range s.titleMaxAge {
		if matches(rule, feedTitle) && rule.value < days {
			days = rule.value
		}
	}
	return time.Duration(days) * 24 * time.Hour
}

// KeepN returns the effective retention count for a feed: the minimum
// of the feed-specific value and every matching title pattern value.
// ok is false when no keep-n rule applies (there is no global
// default), or when an only-feed restriction excludes the feed.
func (s *Store) KeepN(feedID int64, feedTitle string) (n int, ok bool) {
	if s.excluded(feedID) {
		return 0, false
	}

	if v, found := s.feedKeepN[feedID]; found {
		n, ok = v, true
	}
	for _, rule := range s.titleKeepN {
		if matches(rule, feedTitle) && (!ok || rule.value < n) {
			n, ok = rule.value, true
		}
	}
	return n, ok
}

// UsesKeepN reports whether any keep-n rule applies to the feed. The
// only-feed restriction is deliberately ignored here; exclusion is
// handled by KeepN itself.
func (s *Store) UsesKeepN(feedID int64, feedTitle string) bool {
	if _, ok := s.feedKeepN[feedID]; ok {
		return true
	}
	for _, rule := range s.titleKeepN {
		if matches(rule, feedTitle) {
			return true
		}
	}
	return false
}

// UsesMaxAge reports whether the max-age family applies to the feed.
// Max-age is the fallback policy: it applies whenever no keep-n rule
// claims the feed, and additionally whenever an explicit max-age rule
// exists, so both families can trigger on the same feed.
func (s *Store) UsesMaxAge(feedID int64, feedTitle string) bool {
	if !s.UsesKeepN(feedID, feedTitle) {
		return true
	}
	if _, ok := s.feedMaxAge[feedID]; ok {
		return true
	}
	for _, rule := range s.titleMaxAge {
		if matches(rule, feedTitle) {
			return true
		}
	}
	return false
}

func (s *Store) excluded(feedID int64) bool {
	return s.onlyFeedID != nil && feedID != *s.onlyFeedID
}

// Title matching is an unanchored regexp search, so a pattern matches
// anywhere in the title. Case sensitivity is up to the pattern itself
// (inline flags like (?i) work).
func matches(rule titleRule, feedTitle string) bool {
	return feedTitle != "" && rule.pattern.MatchString(feedTitle)
}

func checkThresholds(maxAge, keepN *int) error {
	if maxAge != nil && *maxAge < 0 {
		return specErrorf("max_age must be non-negative, got %d", *maxAge)
	}
	if keepN != nil && *keepN < 0 {
		return specErrorf("keep_n must be non-negative, got %d", *keepN)
	}
	return nil
}

func renderRule(rule any) string {
	data, err := json.Marshal(rule)
	if err != nil {
		return "<unencodable>"
	}
	return string(data)
}
