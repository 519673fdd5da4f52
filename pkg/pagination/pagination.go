package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any cursor query can request.
	MaxLimit = 50
)

var (
	// ErrInvalidCursor marks cursors that cannot be decoded. Surfaced to
	// clients as a validation error, never a crash.
	ErrInvalidCursor = errors.New("invalid cursor")
	// ErrConflictingCursors marks requests that set before and after together.
	ErrConflictingCursors = errors.New("before and after cursors are mutually exclusive")
)

// Params holds cursor pagination inputs from controllers or services.
// After resumes forward from a cursor, Before pages backward; they are
// mutually exclusive.
type Params struct {
	Limit  int
	After  string
	Before string
}

// HasCursor reports whether the request resumes from a cursor.
func (p Params) HasCursor() bool {
	return strings.TrimSpace(p.After) != "" || strings.TrimSpace(p.Before) != ""
}

// Cursor is the resume point in an ordered result set: the sort key value of
// a row plus its id as the tiebreak. Encoding then decoding a cursor must
// reproduce the exact pair.
type Cursor struct {
	SortTime time.Time
	ID       uuid.UUID
}

// Page is one bounded slice of an ordered scope plus resume cursors.
// NextCursor resumes immediately after the last record; PrevCursor
// immediately before the first. Either may be nil at the edges.
type Page[T any] struct {
	Records    []T
	NextCursor *string
	PrevCursor *string
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer returns the normalization result plus one to detect the next page.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeCursor builds a base64 cursor string from the provided values.
func EncodeCursor(cursor Cursor) string {
	payload := fmt.Sprintf("%s|%s", cursor.SortTime.UTC().Format(time.RFC3339Nano), cursor.ID.String())
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes the cursor string back into its components.
func ParseCursor(value string) (*Cursor, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, invalidCursor(fmt.Errorf("%w: decode: %v", ErrInvalidCursor, err))
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return nil, invalidCursor(fmt.Errorf("%w: malformed payload", ErrInvalidCursor))
	}

	t, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, invalidCursor(fmt.Errorf("%w: timestamp: %v", ErrInvalidCursor, err))
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, invalidCursor(fmt.Errorf("%w: id: %v", ErrInvalidCursor, err))
	}
	return &Cursor{
		SortTime: t,
		ID:       id,
	}, nil
}

// invalidCursor wraps a cursor failure as a validation error so it surfaces
// to clients as a 400, never an internal 500. errors.Is still matches the
// sentinel through the wrap.
func invalidCursor(cause error) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, cause, "invalid cursor")
}

// Decode validates the params and returns the parsed cursors.
func (p Params) Decode() (after, before *Cursor, err error) {
	if strings.TrimSpace(p.After) != "" && strings.TrimSpace(p.Before) != "" {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrConflictingCursors, "before and after cursors are mutually exclusive")
	}
	if after, err = ParseCursor(p.After); err != nil {
		return nil, nil, err
	}
	if before, err = ParseCursor(p.Before); err != nil {
		return nil, nil, err
	}
	return after, before, nil
}

// Apply configures a newest-first scope for one page fetch: the compound
// (created_at, id) comparison (never an OFFSET, so concurrent inserts and
// deletes elsewhere in the table cannot shift the window) plus ordering and
// the limit+1 buffer. The scope's table must be deterministically ordered by
// (created_at, id); id breaks created_at ties.
//
// The second return is true when paging backward: rows come back in reverse
// order and must be flipped by BuildPage.
func Apply(query *gorm.DB, p Params) (*gorm.DB, bool, error) {
	after, before, err := p.Decode()
	if err != nil {
		return nil, false, err
	}

	limit := LimitWithBuffer(p.Limit)

	switch {
	case before != nil:
		query = query.
			Where("(created_at, id) > (?, ?)", before.SortTime, before.ID).
			Order("created_at ASC, id ASC").
			Limit(limit)
		return query, true, nil
	case after != nil:
		query = query.Where("(created_at, id) < (?, ?)", after.SortTime, after.ID)
		fallthrough
	default:
		query = query.
			Order("created_at DESC, id DESC").
			Limit(limit)
		return query, false, nil
	}
}

// BuildPage trims the lookahead row, restores display order for backward
// fetches, and derives the resume cursors from the first and last returned
// rows. hadCursor tells it whether the request resumed mid-scope (a previous
// page exists even when this fetch was not backward).
func BuildPage[T any](rows []T, p Params, reversed bool, cursorOf func(T) Cursor) Page[T] {
	limit := NormalizeLimit(p.Limit)

	more := len(rows) > limit
	if more {
		rows = rows[:limit]
	}
	if len(rows) == 0 {
		return Page[T]{Records: rows}
	}

	if reversed {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}

	first := EncodeCursor(cursorOf(rows[0]))
	last := EncodeCursor(cursorOf(rows[len(rows)-1]))

	page := Page[T]{Records: rows}
	if reversed {
		// Backward fetch: we resumed from somewhere after these rows, so a
		// next page always exists; a previous one only if the buffer hit.
		page.NextCursor = &last
		if more {
			page.PrevCursor = &first
		}
		return page
	}

	if more {
		page.NextCursor = &last
	}
	if p.HasCursor() {
		page.PrevCursor = &first
	}
	return page
}
