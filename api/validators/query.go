package validators

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/creatorhub-backend/pkg/pagination"
	"github.com/angelmondragon/creatorhub-backend/pkg/schema"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
)

// QueryInt reads an integer query parameter in [min, max], returning def
// when the parameter is absent.
func QueryInt(r *http.Request, key string, def, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, schema.NewViolation(key, "must be an integer")
	}
	if n < min || n > max {
		return 0, schema.NewViolation(key, fmt.Sprintf("must be between %d and %d", min, max))
	}
	return n, nil
}

// ParsePageParams reads limit and cursor. The cursor is checked here so a
// tampered token fails before any query runs.
func ParsePageParams(r *http.Request) (pagination.Params, error) {
	limit, err := QueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))
	if _, err := pagination.ParseCursor(cursor); err != nil {
		return pagination.Params{}, schema.NewViolation("cursor", "is not a valid page cursor")
	}
	return pagination.Params{Limit: limit, Cursor: cursor}, nil
}

// ParseObjectIDParam reads a hex object id from the named route parameter.
func ParseObjectIDParam(r *http.Request, name string) (types.ObjectID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return types.NilObjectID, schema.NewViolation(name, "is required")
	}
	id, err := types.ParseObjectID(raw)
	if err != nil {
		return types.NilObjectID, schema.NewViolation(name, "must be a 24 character hex id")
	}
	return id, nil
}
