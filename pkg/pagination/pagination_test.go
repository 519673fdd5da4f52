package pagination

import (
	"errors"
	"testing"
	"time"

	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/google/uuid"
)

type row struct {
	id        uuid.UUID
	createdAt time.Time
}

func rowCursor(r row) Cursor {
	return Cursor{SortTime: r.createdAt, ID: r.id}
}

func makeRows(n int) []row {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := make([]row, n)
	for i := range rows {
		// Newest first, mirroring a created_at DESC scope.
		rows[i] = row{id: uuid.New(), createdAt: base.Add(-time.Duration(i) * time.Minute)}
	}
	return rows
}

func TestCursorRoundTrip(t *testing.T) {
	cases := []Cursor{
		{SortTime: time.Date(2026, 1, 2, 3, 4, 5, 678900000, time.UTC), ID: uuid.New()},
		{SortTime: time.Unix(0, 1).UTC(), ID: uuid.New()},
		{SortTime: time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC), ID: uuid.Nil},
	}
	for _, c := range cases {
		decoded, err := ParseCursor(EncodeCursor(c))
		if err != nil {
			t.Fatalf("round trip failed: %v", err)
		}
		if !decoded.SortTime.Equal(c.SortTime) || decoded.ID != c.ID {
			t.Fatalf("expected %+v, got %+v", c, decoded)
		}
	}
}

func TestParseCursorEmptyIsNil(t *testing.T) {
	cursor, err := ParseCursor("  ")
	if err != nil || cursor != nil {
		t.Fatalf("expected nil cursor without error, got %v / %v", cursor, err)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	for _, value := range []string{"not-base64!!", "aGVsbG8=", "MjAyNnxub3QtYS11dWlk"} {
		_, err := ParseCursor(value)
		if !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("expected ErrInvalidCursor for %q, got %v", value, err)
		}
		// Clients see a 400, not an internal error.
		if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeValidation {
			t.Fatalf("expected %s for %q, got %s", pkgerrors.CodeValidation, value, code)
		}
	}
}

func TestDecodeRejectsBeforeAndAfterTogether(t *testing.T) {
	c := EncodeCursor(Cursor{SortTime: time.Now(), ID: uuid.New()})
	_, _, err := Params{After: c, Before: c}.Decode()
	if !errors.Is(err, ErrConflictingCursors) {
		t.Fatalf("expected ErrConflictingCursors, got %v", err)
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeValidation {
		t.Fatalf("expected %s, got %s", pkgerrors.CodeValidation, code)
	}
}

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{
		0:   DefaultLimit,
		-5:  DefaultLimit,
		1:   1,
		50:  50,
		999: MaxLimit,
	}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
	if LimitWithBuffer(10) != 11 {
		t.Fatalf("expected buffer of one extra row")
	}
}

func TestBuildPageWalksScopeWithoutGapsOrDuplicates(t *testing.T) {
	rows := makeRows(5)
	params := Params{Limit: 2}

	// First page: rows 1-2 with a next cursor at row 2.
	page := BuildPage(append([]row{}, rows[:3]...), params, false, rowCursor)
	if len(page.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(page.Records))
	}
	if page.NextCursor == nil {
		t.Fatalf("expected next cursor on first page")
	}
	if page.PrevCursor != nil {
		t.Fatalf("unexpected prev cursor on first page")
	}
	next, err := ParseCursor(*page.NextCursor)
	if err != nil {
		t.Fatalf("next cursor parse: %v", err)
	}
	if next.ID != rows[1].id {
		t.Fatalf("next cursor should point at the last returned row")
	}

	// Second page: rows 3-4.
	params2 := Params{Limit: 2, After: *page.NextCursor}
	page2 := BuildPage(append([]row{}, rows[2:5]...), params2, false, rowCursor)
	if len(page2.Records) != 2 || page2.Records[0].id != rows[2].id {
		t.Fatalf("expected rows 3-4, got %+v", page2.Records)
	}
	if page2.NextCursor == nil || page2.PrevCursor == nil {
		t.Fatalf("expected both cursors on a middle page")
	}

	// Final page: row 5 only, no next cursor.
	params3 := Params{Limit: 2, After: *page2.NextCursor}
	page3 := BuildPage(append([]row{}, rows[4:]...), params3, false, rowCursor)
	if len(page3.Records) != 1 || page3.Records[0].id != rows[4].id {
		t.Fatalf("expected final row, got %+v", page3.Records)
	}
	if page3.NextCursor != nil {
		t.Fatalf("expected nil next cursor at end of scope")
	}

	seen := map[uuid.UUID]bool{}
	for _, r := range append(append(page.Records, page2.Records...), page3.Records...) {
		if seen[r.id] {
			t.Fatalf("row %s returned twice", r.id)
		}
		seen[r.id] = true
	}
	if len(seen) != 5 {
		t.Fatalf("expected all 5 rows exactly once, saw %d", len(seen))
	}
}

func TestBuildPageEmptyScope(t *testing.T) {
	page := BuildPage(nil, Params{Limit: 10}, false, rowCursor)
	if len(page.Records) != 0 || page.NextCursor != nil || page.PrevCursor != nil {
		t.Fatalf("expected empty page with nil cursors, got %+v", page)
	}
}

func TestBuildPageBackwardRestoresDisplayOrder(t *testing.T) {
	rows := makeRows(4)
	// Backward fetch returns ascending order: rows 4,3,2 plus buffer row 1.
	fetched := []row{rows[3], rows[2], rows[1], rows[0]}

	params := Params{Limit: 3, Before: EncodeCursor(rowCursor(rows[3]))}
	page := BuildPage(fetched, params, true, rowCursor)

	if len(page.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(page.Records))
	}
	// Display order is newest first again.
	if page.Records[0].id != rows[1].id || page.Records[2].id != rows[3].id {
		t.Fatalf("backward page not flipped to display order: %+v", page.Records)
	}
	if page.NextCursor == nil {
		t.Fatalf("a backward page always has a next page")
	}
	if page.PrevCursor == nil {
		t.Fatalf("expected prev cursor when the buffer row was hit")
	}
}
