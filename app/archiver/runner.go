package archiver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/lysyi3m/feedbin-archiver/app/feedbin"
	"github.com/lysyi3m/feedbin-archiver/app/rules"
)

// Client is the slice of the Feedbin API the runner needs.
type Client interface {
	UnreadEntries(ctx context.Context) ([]feedbin.Entry, error)
	Subscriptions(ctx context.Context) ([]feedbin.Subscription, error)
	Feed(ctx context.Context, feedID int64) (*feedbin.Feed, error)
	MarkRead(ctx context.Context, entryID int64) error
}

// Runner drives one archival pass: fetch the unread snapshot, resolve
// feed titles, evaluate the rules and perform (or report) the
// mark-read side effects.
type Runner struct {
	client Client
	engine *Engine
	store  *rules.Store
	out    io.Writer
}

func NewRunner(client Client, store *rules.Store) *Runner {
	return &Runner{
		client: client,
		engine: NewEngine(),
		store:  store,
		out:    os.Stdout,
	}
}

// Run performs one archival pass. With dryRun the decisions are
// printed but no entry is marked read.
func (r *Runner) Run(ctx context.Context, dryRun bool) error {
	if dryRun {
		fmt.Fprintln(r.out, "Listing entries which would be archived...")
	} else {
		fmt.Fprintln(r.out, "Archiving old entries...")
	}

	now := time.Now().UTC()

	entries, err := r.client.UnreadEntries(ctx)
	if err != nil {
		return err
	}
	slog.Debug("Unread snapshot fetched", "entries", len(entries))

	titles, err := r.resolveTitles(ctx, entries)
	if err != nil {
		return err
	}

	decisions := r.engine.Run(entries, r.store, func(feedID int64) string {
		return titles[feedID]
	}, now)

	count := 0
	for _, decision := range decisions {
		if !decision.Archive {
			continue
		}

		fmt.Fprintln(r.out)
		fmt.Fprintf(r.out, "%s: %s\n", titles[decision.Entry.FeedID], DisplayTitle(decision.Entry))
		fmt.Fprintln(r.out, strings.Join(decision.Reasons, "; "))
		fmt.Fprintln(r.out, decision.Entry.URL)

		if !dryRun {
			if err := r.client.MarkRead(ctx, decision.Entry.ID); err != nil {
				return err
			}
			slog.Debug("Entry marked as read", "entry_id", decision.Entry.ID)
		}
		count++
	}

	fmt.Fprintln(r.out)
	fmt.Fprintf(r.out, "%d entries affected.\n", count)
	return nil
}

// ListFeeds prints all subscriptions sorted by title.
func (r *Runner) ListFeeds(ctx context.Context) error {
	feeds, err := r.client.Subscriptions(ctx)
	if err != nil {
		return err
	}

	sort.Slice(feeds, func(i, j int) bool {
		return strings.ToLower(feeds[i].Title) < strings.ToLower(feeds[j].Title)
	})

	for _, feed := range feeds {
		fmt.Fprintf(r.out, "%d\t\t%s  -  %s\n", feed.FeedID, feed.Title, feed.SiteURL)
	}
	return nil
}

// resolveTitles fetches the title of every distinct feed present in
// the batch, one API call per feed. The engine needs a complete
// feed-title snapshot up front so that title-pattern rules apply
// uniformly to every entry.
func (r *Runner) resolveTitles(ctx context.Context, entries []feedbin.Entry) (map[int64]string, error) {
	titles := make(map[int64]string)
	for _, entry := range entries {
		if _, ok := titles[entry.FeedID]; ok {
			continue
		}
		feed, err := r.client.Feed(ctx, entry.FeedID)
		if err != nil {
			return nil, err
		}
		titles[entry.FeedID] = feed.Title
	}
	slog.Debug("Feed titles resolved", "feeds", len(titles))
	return titles, nil
}
