package chat

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/qiuethan/RT1M-sub001/models"
)

const DefaultMaxInputLength = 2000

// ErrUnsafeInput marks messages rejected by the sensitive-content filter.
var ErrUnsafeInput = errors.New("message contains potentially sensitive content")

var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:api[\s_-]?key|secret|password|token|credential|auth[\s_-]?token)\b`),
	regexp.MustCompile(`\b[A-Za-z0-9]{20,}\b`),
	regexp.MustCompile(`\$\{.*?\}`),
	regexp.MustCompile(`(?i)-----BEGIN.*?-----`),
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-_]+`),
	regexp.MustCompile(`(?is)<script.*?>.*?</script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)data:.*?base64`),
	regexp.MustCompile(`(?i)file://`),
	regexp.MustCompile(`(?i)localhost:\d+`),
	regexp.MustCompile(`\b(?:127\.0\.0\.1|0\.0\.0\.0)\b`),
}

// Sanitize trims the message and rejects empty, oversized or unsafe input
// with a KindValidation error.
func Sanitize(message string, maxLen int) (string, error) {
	if maxLen <= 0 {
		maxLen = DefaultMaxInputLength
	}
	msg := strings.TrimSpace(message)
	if msg == "" {
		return "", models.Errorf(models.KindValidation, "sanitize", "message is required")
	}
	if n := utf8.RuneCountInString(msg); n > maxLen {
		return "", models.Errorf(models.KindValidation, "sanitize", "message too long: %d characters, maximum %d", n, maxLen)
	}
	for _, p := range sensitivePatterns {
		if p.MatchString(msg) {
			return "", models.NewError(models.KindValidation, "sanitize", fmt.Errorf("%w: matched %q", ErrUnsafeInput, p.String()))
		}
	}
	return msg, nil
}
