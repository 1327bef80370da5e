package memory

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tailored-agentic-units/spicy/core/protocol"
)

// Option configures a Store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Timestamp renders t as Unix milliseconds, the index timestamp format.
func Timestamp(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// ParseTimestamp reads a timestamp written by Timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return time.UnixMilli(ms), nil
}

// SanitizeDocument maps a document path to a single path segment by replacing
// separators, characters reserved on common filesystems, and spaces with '_'.
func SanitizeDocument(document string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, document)
}

func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// upsertMeta applies a save to an index: new sessions are inserted at the
// front, existing ones keep created_at and position.
func upsertMeta(index []protocol.SessionMeta, session protocol.SessionData, now string) []protocol.SessionMeta {
	for i := range index {
		if index[i].ID == session.ID {
			index[i].Title = session.Title
			index[i].UpdatedAt = now
			index[i].MessageCount = len(session.Messages)
			return index
		}
	}

	meta := protocol.SessionMeta{
		ID:           session.ID,
		Title:        session.Title,
		CreatedAt:    now,
		UpdatedAt:    now,
		MessageCount: len(session.Messages),
	}
	return append([]protocol.SessionMeta{meta}, index...)
}

func removeMeta(index []protocol.SessionMeta, id string) []protocol.SessionMeta {
	return slices.DeleteFunc(index, func(m protocol.SessionMeta) bool {
		return m.ID == id
	})
}

// sortNewestFirst orders by updated_at descending. The sort is stable, so
// sessions updated in the same millisecond keep their index order.
func sortNewestFirst(index []protocol.SessionMeta) {
	slices.SortStableFunc(index, func(a, b protocol.SessionMeta) int {
		return compareTimestamps(b.UpdatedAt, a.UpdatedAt)
	})
}

func compareTimestamps(a, b string) int {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}
