package feedbin

import (
	"time"
)

// API response types

// Entry is one unread article as returned by GET /entries.json.
// Title, Summary and Content are pointers because Feedbin returns
// null for entries without them.
type Entry struct {
	ID        int64     `json:"id"`
	FeedID    int64     `json:"feed_id"`
	Title     *string   `json:"title"`
	Summary   *string   `json:"summary"`
	Content   *string   `json:"content"`
	URL       string    `json:"url"`
	Published time.Time `json:"published"`
}

type Subscription struct {
	ID      int64  `json:"id"`
	FeedID  int64  `json:"feed_id"`
	Title   string `json:"title"`
	FeedURL string `json:"feed_url"`
	SiteURL string `json:"site_url"`
}

type Feed struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	FeedURL string `json:"feed_url"`
	SiteURL string `json:"site_url"`
}
