package archiver

import (
	"fmt"
	"sort"
	"time"

	"github.com/lysyi3m/feedbin-archiver/app/feedbin"
	"github.com/lysyi3m/feedbin-archiver/app/rules"
)

// Engine decides, entry by entry, what should be archived. It is a
// total function over its inputs: a validated store and a materialized
// entry snapshot never produce an error at evaluation time.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Run evaluates the full unread snapshot and returns one decision per
// entry, newest first. feedTitle resolves a feed id to its title and
// may return "" for feeds without one.
//
// Entries are traversed in descending publish order so that the
// per-feed counter implements "keep the N most recent": the first N
// entries of a feed stay, everything after them trips the keep-n
// trigger. Counters are scoped to this call.
func (e *Engine) Run(entries []feedbin.Entry, store *rules.Store, feedTitle func(feedID int64) string, now time.Time) []Decision {
	sorted := make([]feedbin.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Published.After(sorted[j].Published)
	})

	seen := make(map[int64]int)
	decisions := make([]Decision, 0, len(sorted))

	for _, entry := range sorted {
		title := feedTitle(entry.FeedID)
		decision := Decision{Entry: entry}

		if store.UsesKeepN(entry.FeedID, title) {
			seen[entry.FeedID]++
			if n, ok := store.KeepN(entry.FeedID, title); ok && seen[entry.FeedID] > n {
				decision.Archive = true
				decision.Reasons = append(decision.Reasons,
					fmt.Sprintf("keeping only %d most recent entries", n))
			}
		}

		// Both families can trigger on the same entry; reasons
		// accumulate but the verdict stays a single boolean.
		if store.UsesMaxAge(entry.FeedID, title) {
			maxAge := store.MaxAge(entry.FeedID, title)
			if age := now.Sub(entry.Published); age > maxAge {
				decision.Archive = true
				decision.Reasons = append(decision.Reasons,
					fmt.Sprintf("%d days old (max age is %d days)", days(age), days(maxAge)))
			}
		}

		decisions = append(decisions, decision)
	}

	return decisions
}

func days(d time.Duration) int {
	return int(d / (24 * time.Hour))
}
