// Package masking redacts secrets before they reach the audit trail.
package masking

import "strings"

const (
	maskToken  = "****"
	keepSuffix = 4
)

// MaskSecret keeps only a short suffix of value so support staff can match
// an audit row against a link without the row itself being a capability.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	prefix, remainder := splitPrefix(trimmed)
	if len(remainder) <= keepSuffix*2 {
		return prefix + maskToken
	}
	return prefix + maskToken + remainder[len(remainder)-keepSuffix:]
}

func splitPrefix(value string) (string, string) {
	lastUnderscore := strings.LastIndex(value, "_")
	if lastUnderscore == -1 || lastUnderscore == len(value)-1 {
		return "", value
	}
	return value[:lastUnderscore+1], value[lastUnderscore+1:]
}
