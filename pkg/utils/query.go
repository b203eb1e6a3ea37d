package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Pagination query defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// PageParams reads page and limit. Missing or malformed values fall back to defaults;
// callers clamp the range.
func PageParams(c *gin.Context) (page, limit int) {
	page, limit = DefaultPage, DefaultLimit
	if v, err := strconv.Atoi(c.Query("page")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil {
		limit = v
	}
	return page, limit
}

// QueryTime parses an RFC 3339 timestamp or a YYYY-MM-DD date. Absent values return nil.
func QueryTime(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	t, err := ParseTime(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &t, nil
}

// ParseTime accepts RFC 3339 with or without fractional seconds, or a plain date.
func ParseTime(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

// QueryInt parses an integer parameter. Absent values return nil.
func QueryInt(c *gin.Context, key string) (*int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", key)
	}
	return &v, nil
}
