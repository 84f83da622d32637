package common

import (
	"strconv"
	"strings"
)

// ParseID converts a path parameter into an int64 identifier, returning 0
// when parsing fails.
func ParseID(value string) int64 {
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
