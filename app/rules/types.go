package rules

import (
	"fmt"
	"strings"
)

// Rules document types. Pointer fields distinguish "absent" from an
// explicit zero, which matters for keep_n (keep_n: 0 archives
// everything on the feed, while no keep_n disables the counter).

type Document struct {
	MaxAge       *int        `json:"max_age"`
	FeedSpecific []FeedRule  `json:"feed_specific"`
	TitleRegex   []TitleRule `json:"title_regex"`
}

type FeedRule struct {
	FeedID *int64 `json:"feed_id"`
	MaxAge *int   `json:"max_age"`
	KeepN  *int   `json:"keep_n"`
}

type TitleRule struct {
	TitleRegex string `json:"title_regex"`
	MaxAge     *int   `json:"max_age"`
	KeepN      *int   `json:"keep_n"`
}

// SpecError reports a structurally invalid rules document. It is
// always fatal to the load step.
type SpecError struct {
	Reason string
}

func (e *SpecError) Error() string {
	return "invalid rules: " + e.Reason
}

func specErrorf(format string, args ...any) *SpecError {
	return &SpecError{Reason: fmt.Sprintf(format, args...)}
}

// ValidationError reports rules that reference feed IDs the account
// is not subscribed to. The caller decides whether it is fatal.
type ValidationError struct {
	MissingFeedIDs []int64
}

func (e *ValidationError) Error() string {
	ids := make([]string, len(e.MissingFeedIDs))
	for i, id := range e.MissingFeedIDs {
		ids[i] = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("rules reference feed IDs with no matching subscription: %s", strings.Join(ids, ", "))
}
