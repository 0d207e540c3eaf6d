package logging

import (
	"strings"
)

// MaskChar is the character used for masking.
const MaskChar = "*"

// sensitiveKeywords mark field names whose values must never be logged.
var sensitiveKeywords = []string{
	"token",
	"secret",
	"password",
	"authorization",
	"bearer",
	"credential",
}

// MaskValue masks a sensitive value completely.
func MaskValue(value string) string {
	if value == "" {
		return ""
	}
	return strings.Repeat(MaskChar, min(len(value), 8))
}

// IsSensitiveField checks if a field name indicates sensitive data.
func IsSensitiveField(fieldName string) bool {
	lower := strings.ToLower(fieldName)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// MaskArgs masks sensitive values in a slice of logging arguments.
// Arguments are expected in key-value pairs: key1, value1, key2, value2, ...
func MaskArgs(args []any) []any {
	if len(args) < 2 {
		return args
	}

	var result []any
	for i := 0; i < len(args)-1; i += 2 {
		key, ok := args[i].(string)
		if !ok || !IsSensitiveField(key) {
			continue
		}
		if result == nil {
			result = make([]any, len(args))
			copy(result, args)
		}
		if strVal, ok := args[i+1].(string); ok {
			result[i+1] = MaskValue(strVal)
		} else {
			result[i+1] = strings.Repeat(MaskChar, 8)
		}
	}

	if result == nil {
		return args
	}
	return result
}
