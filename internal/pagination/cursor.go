package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// Cursor marks the last row of a page in (timestamp, id) order.
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

// PageResult is one page of a newest-first listing.
type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

var ErrInvalidCursor = errors.New("invalid cursor format")

const separator = "|"

// EncodeCursor returns an opaque, URL-safe token for the row (lastID, timestamp).
func EncodeCursor(lastID string, timestamp time.Time) string {
	if lastID == "" {
		return ""
	}
	raw := timestamp.UTC().Format(time.RFC3339Nano) + separator + lastID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token from EncodeCursor. An empty token means the
// first page and decodes to nil.
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	ts, id, ok := strings.Cut(string(decoded), separator)
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}

	timestamp, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{LastID: id, Timestamp: timestamp}, nil
}

// ClampLimit applies the default page size to non-positive limits and caps
// the rest at max.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// Paginate trims rows fetched with limit+1 to one page and sets the next
// cursor when the extra row was present.
func Paginate[T any](rows []T, limit int, getID func(T) string, getTimestamp func(T) time.Time) *PageResult[T] {
	if rows == nil {
		rows = []T{}
	}
	page := &PageResult[T]{Items: rows}
	if len(rows) <= limit {
		return page
	}
	page.Items = rows[:limit]
	page.HasMore = true
	last := page.Items[limit-1]
	page.Cursor = EncodeCursor(getID(last), getTimestamp(last))
	return page
}

// Map converts the items of a page, keeping its cursor.
func Map[T, U any](page *PageResult[T], fn func(T) U) *PageResult[U] {
	out := &PageResult[U]{
		Items:   make([]U, len(page.Items)),
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	}
	for i, item := range page.Items {
		out.Items[i] = fn(item)
	}
	return out
}
