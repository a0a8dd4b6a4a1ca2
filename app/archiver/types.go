package archiver

import (
	"strings"

	"github.com/lysyi3m/feedbin-archiver/app/feedbin"
)

// Decision is the engine's verdict for one entry. Reasons holds one
// human-readable string per triggered rule family.
type Decision struct {
	Entry   feedbin.Entry
	Archive bool
	Reasons []string
}

const displayTitleLimit = 70

// DisplayTitle returns the entry title, falling back to a truncated
// summary and then truncated content for entries without one. Display
// only; it never feeds into the archival decision.
func DisplayTitle(entry feedbin.Entry) string {
	if entry.Title != nil && *entry.Title != "" {
		return *entry.Title
	}
	if entry.Summary != nil && *entry.Summary != "" {
		return truncate(*entry.Summary, displayTitleLimit)
	}
	if entry.Content != nil && *entry.Content != "" {
		return truncate(*entry.Content, displayTitleLimit)
	}
	return "[no title]"
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
