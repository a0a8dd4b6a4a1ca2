package archiver

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/lysyi3m/feedbin-archiver/app/feedbin"
	"github.com/lysyi3m/feedbin-archiver/app/rules"
)

type fakeClient struct {
	entries       []feedbin.Entry
	subscriptions []feedbin.Subscription
	feedTitles    map[int64]string

	feedCalls  map[int64]int
	markedRead []int64
}

func (f *fakeClient) UnreadEntries(ctx context.Context) ([]feedbin.Entry, error) {
	return f.entries, nil
}

func (f *fakeClient) Subscriptions(ctx context.Context) ([]feedbin.Subscription, error) {
	return f.subscriptions, nil
}

func (f *fakeClient) Feed(ctx context.Context, feedID int64) (*feedbin.Feed, error) {
	if f.feedCalls == nil {
		f.feedCalls = make(map[int64]int)
	}
	f.feedCalls[feedID]++
	title, ok := f.feedTitles[feedID]
	if !ok {
		return nil, fmt.Errorf("unknown feed %d", feedID)
	}
	return &feedbin.Feed{ID: feedID, Title: title}, nil
}

func (f *fakeClient) MarkRead(ctx context.Context, entryID int64) error {
	f.markedRead = append(f.markedRead, entryID)
	return nil
}

func newTestRunner(client Client, store *rules.Store) (*Runner, *bytes.Buffer) {
	runner := NewRunner(client, store)
	out := &bytes.Buffer{}
	runner.out = out
	return runner, out
}

func oldEntriesStore(t *testing.T) *rules.Store {
	t.Helper()
	store := rules.NewStore(30, nil)
	if err := store.AddRules(rules.Document{FeedSpecific: []rules.FeedRule{}}); err != nil {
		t.Fatalf("AddRules failed: %v", err)
	}
	return store
}

func TestRunner_DryRunDoesNotMarkRead(t *testing.T) {
	client := &fakeClient{
		entries: []feedbin.Entry{
			entry(1, 100, 45),
			entry(2, 100, 2),
		},
		feedTitles: map[int64]string{100: "Example Feed"},
	}
	runner, out := newTestRunner(client, oldEntriesStore(t))

	if err := runner.Run(context.Background(), true); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(client.markedRead) != 0 {
		t.Errorf("Dry run must not mark anything read, marked %v", client.markedRead)
	}
	if !strings.Contains(out.String(), "Listing entries which would be archived...") {
		t.Errorf("Expected dry-run banner, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "1 entries affected.") {
		t.Errorf("Expected summary line, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "45 days old (max age is 30 days)") {
		t.Errorf("Expected max-age reason in output, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Example Feed:") {
		t.Errorf("Expected feed title in output, got:\n%s", out.String())
	}
}

func TestRunner_MarksArchivedEntriesRead(t *testing.T) {
	client := &fakeClient{
		entries: []feedbin.Entry{
			entry(1, 100, 45),
			entry(2, 100, 40),
			entry(3, 100, 2),
		},
		feedTitles: map[int64]string{100: "Example Feed"},
	}
	runner, out := newTestRunner(client, oldEntriesStore(t))

	if err := runner.Run(context.Background(), false); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(client.markedRead) != 2 {
		t.Fatalf("Expected 2 entries marked read, got %v", client.markedRead)
	}
	marked := map[int64]bool{client.markedRead[0]: true, client.markedRead[1]: true}
	if !marked[1] || !marked[2] {
		t.Errorf("Expected entries 1 and 2 marked read, got %v", client.markedRead)
	}
	if !strings.Contains(out.String(), "Archiving old entries...") {
		t.Errorf("Expected archive banner, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "2 entries affected.") {
		t.Errorf("Expected summary line, got:\n%s", out.String())
	}
}

func TestRunner_ResolvesEachFeedTitleOnce(t *testing.T) {
	client := &fakeClient{
		entries: []feedbin.Entry{
			entry(1, 100, 1),
			entry(2, 100, 2),
			entry(3, 200, 3),
			entry(4, 200, 4),
		},
		feedTitles: map[int64]string{100: "Feed A", 200: "Feed B"},
	}
	runner, _ := newTestRunner(client, oldEntriesStore(t))

	if err := runner.Run(context.Background(), true); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for feedID, calls := range client.feedCalls {
		if calls != 1 {
			t.Errorf("Feed %d resolved %d times, expected once", feedID, calls)
		}
	}
	if len(client.feedCalls) != 2 {
		t.Errorf("Expected 2 distinct feed lookups, got %d", len(client.feedCalls))
	}
}

func TestRunner_ListFeedsSortedByTitle(t *testing.T) {
	client := &fakeClient{
		subscriptions: []feedbin.Subscription{
			{ID: 1, FeedID: 100, Title: "zebra news", SiteURL: "https://zebra.example"},
			{ID: 2, FeedID: 200, Title: "Alpha Blog", SiteURL: "https://alpha.example"},
			{ID: 3, FeedID: 300, Title: "midway", SiteURL: "https://midway.example"},
		},
	}
	runner, out := newTestRunner(client, nil)

	if err := runner.ListFeeds(context.Background()); err != nil {
		t.Fatalf("ListFeeds failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d:\n%s", len(lines), out.String())
	}
	// Case-insensitive title sort
	if !strings.Contains(lines[0], "Alpha Blog") || !strings.Contains(lines[1], "midway") || !strings.Contains(lines[2], "zebra news") {
		t.Errorf("Feeds not sorted by title:\n%s", out.String())
	}
	if !strings.HasPrefix(lines[0], "200\t\t") {
		t.Errorf("Expected feed ID column, got %q", lines[0])
	}
	if !strings.Contains(lines[0], "  -  https://alpha.example") {
		t.Errorf("Expected site URL column, got %q", lines[0])
	}
}
