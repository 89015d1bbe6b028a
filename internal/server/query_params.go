package server

import (
	"strconv"
	"strings"
)

// parseOptionalInt returns 0 for a blank value.
func parseOptionalInt(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	return strconv.Atoi(trimmed)
}
