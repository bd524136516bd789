// Package filter turns listing query parameters into typed store filters.
//
// Every filter renders itself to a MongoDB filter document with BSON and can
// evaluate itself against a single document with Match, so the in-memory store
// and the MongoDB store select exactly the same documents.
package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidParam is wrapped by every parse error caused by caller input.
var ErrInvalidParam = errors.New("invalid query parameter")

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidParam, fmt.Sprintf(format, args...))
}

// substring builds a case-insensitive pattern matching search literally.
func substring(search string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// positiveInt parses value as a positive integer, returning def when value is
// empty.
func positiveInt(name, value string, def int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, invalid("%s must be a positive integer, got %q", name, value)
	}
	return n, nil
}
