package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/pagination"
)

// ParsePagination reads the standard cursor query parameters. Cursor
// decoding happens later in the repo; this only rejects what is structurally
// wrong at the edge.
func ParsePagination(r *http.Request) (pagination.Params, error) {
	params := pagination.Params{
		After:  strings.TrimSpace(r.URL.Query().Get("after")),
		Before: strings.TrimSpace(r.URL.Query().Get("before")),
	}
	if params.After != "" && params.Before != "" {
		return pagination.Params{}, pkgerrors.New(pkgerrors.CodeValidation, "before and after cursors are mutually exclusive")
	}

	// A limit that is absent, non-numeric or non-positive falls back to the
	// default; only conflicting cursors are worth a rejection here.
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			params.Limit = value
		}
	}
	return params, nil
}

func ParseQueryBool(r *http.Request, key string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "invalid boolean query parameter").
			WithDetails(map[string]any{"field": key})
	}
	return value, nil
}
