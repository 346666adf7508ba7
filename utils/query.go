package utils

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// ListParams carries the documented list query parameters: page, limit, search, sort.
type ListParams struct {
	Page   int
	Limit  int
	Skip   int
	Search string
	Sort   string // "field:dir" as received, resolve with OrderClause
}

// ParseListParams reads pagination and search parameters with the given
// defaults. Page floors at 1; limit clamps into [1, maxLimit].
func ParseListParams(ctx *gin.Context, defaultLimit, maxLimit int) ListParams {
	page := 1
	if v := strings.TrimSpace(ctx.Query("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	limit := defaultLimit
	if v := strings.TrimSpace(ctx.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	return ListParams{
		Page:   page,
		Limit:  limit,
		Skip:   (page - 1) * limit,
		Search: strings.TrimSpace(ctx.Query("search")),
		Sort:   strings.TrimSpace(ctx.Query("sort")),
	}
}

// OrderClause resolves the sort parameter against a whitelist of sortable
// columns and returns a SQL order expression, or fallback when the field is
// unknown or no sort was requested. Direction defaults to ascending.
func (p ListParams) OrderClause(allowed map[string]string, fallback string) string {
	if p.Sort == "" {
		return fallback
	}
	field, dir, _ := strings.Cut(p.Sort, ":")
	col, ok := allowed[field]
	if !ok {
		return fallback
	}
	if strings.EqualFold(dir, "desc") {
		return col + " DESC"
	}
	return col + " ASC"
}

// TotalPages computes page count for a total row count at the given limit.
func TotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
