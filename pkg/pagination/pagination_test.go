package pagination

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorKeepsMicrosecondOrderKey(t *testing.T) {
	placed := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	in := Cursor{CreatedAt: placed, ID: uuid.New()}
	out, err := ParseCursor(EncodeCursor(in))
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if !out.CreatedAt.Equal(placed.Truncate(time.Microsecond)) || out.ID != in.ID {
		t.Fatalf("cursor mismatch: %+v vs %+v", out, in)
	}
}

func TestParseCursorRejectsForeignTokens(t *testing.T) {
	if c, err := ParseCursor("  "); err != nil || c != nil {
		t.Fatalf("blank cursor should mean first page")
	}
	foreign := []string{
		"!!!",
		base64.RawURLEncoding.EncodeToString([]byte("2026-03-01T12:00:00Z|" + uuid.NewString())),
		base64.RawURLEncoding.EncodeToString([]byte("o2.1772366400000000." + uuid.NewString())),
		base64.RawURLEncoding.EncodeToString([]byte("o1.-5." + uuid.NewString())),
		base64.RawURLEncoding.EncodeToString([]byte("o1.1772366400000000.order-42")),
	}
	for _, value := range foreign {
		if _, err := ParseCursor(value); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("expected ErrInvalidCursor for %q, got %v", value, err)
		}
	}
}

func TestPageSizeBounds(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -3: DefaultLimit, 5: 5, MaxLimit: MaxLimit, 1000: MaxLimit}
	for limit, want := range cases {
		if got := (Params{Limit: limit}).PageSize(); got != want {
			t.Fatalf("limit %d: expected %d, got %d", limit, want, got)
		}
	}
	if (Params{Limit: 5}).FetchSize() != 6 {
		t.Fatalf("expected one extra row")
	}
}

func TestTrimIssuesCursorOnlyWhenMoreRowsExist(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	key := func(i int) Cursor { return Cursor{CreatedAt: base.Add(-time.Duration(i) * time.Minute), ID: ids[i]} }

	page, next := Trim([]int{0, 1, 2}, Params{Limit: 2}, key)
	if len(page) != 2 || next == "" {
		t.Fatalf("expected a full page and a cursor, got %v %q", page, next)
	}
	c, err := ParseCursor(next)
	if err != nil || c.ID != ids[1] {
		t.Fatalf("cursor should point at the last returned row: %+v %v", c, err)
	}

	page, next = Trim([]int{0, 1}, Params{Limit: 2}, key)
	if len(page) != 2 || next != "" {
		t.Fatalf("last page must not carry a cursor, got %q", next)
	}
}
