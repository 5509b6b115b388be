package logger

import "strings"

const redacted = "[REDACTED]"

// sensitiveKeywords mark field keys whose values never reach the log output
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "authorization", "cookie", "credential",
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	if k == "token_file" || k == "token_path" {
		return false
	}
	for _, kw := range sensitiveKeywords {
		if strings.Contains(k, kw) {
			return true
		}
	}
	return false
}
