// Package pagination pages order history newest first on a (created_at, id)
// keyset. Cursors are opaque to clients.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100

	cursorVersion = "o1"
)

// ErrInvalidCursor is returned for any cursor this package did not issue.
var ErrInvalidCursor = errors.New("invalid cursor")

// Params are the list inputs as received from the client.
type Params struct {
	Limit  int
	Cursor string
}

// PageSize is the number of rows returned to the client.
func (p Params) PageSize() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	}
	return p.Limit
}

// FetchSize reads one extra row so the caller can tell whether a next page exists.
func (p Params) FetchSize() int {
	return p.PageSize() + 1
}

// Cursor is the last row of the previous page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// EncodeCursor renders c as "o1.<unix micros>.<id>" in URL-safe base64.
// Order timestamps are stored with microsecond precision.
func EncodeCursor(c Cursor) string {
	raw := cursorVersion + "." + strconv.FormatInt(c.CreatedAt.UTC().UnixMicro(), 10) + "." + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor returns nil for a blank value, meaning the first page.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: not base64", ErrInvalidCursor)
	}
	parts := strings.Split(string(raw), ".")
	if len(parts) != 3 || parts[0] != cursorVersion {
		return nil, fmt.Errorf("%w: unknown format", ErrInvalidCursor)
	}
	micros, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || micros <= 0 {
		return nil, fmt.Errorf("%w: bad timestamp", ErrInvalidCursor)
	}
	id, err := uuid.Parse(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: bad order id", ErrInvalidCursor)
	}
	return &Cursor{CreatedAt: time.UnixMicro(micros).UTC(), ID: id}, nil
}

// Trim cuts rows fetched with FetchSize down to one page and returns the
// cursor for the next page, or "" when rows was the last page.
func Trim[T any](rows []T, p Params, key func(T) Cursor) ([]T, string) {
	size := p.PageSize()
	if len(rows) <= size {
		return rows, ""
	}
	rows = rows[:size]
	return rows, EncodeCursor(key(rows[size-1]))
}
