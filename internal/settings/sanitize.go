package settings

import (
	"regexp"
	"strings"
	"unicode"

	strip "github.com/grokify/html-strip-tags-go"

	"newsletter-gate/internal/common/validation"
)

var (
	// StripTags keeps the text of raw text elements, so their bodies go first.
	// An unclosed element swallows the rest of the value.
	rawTextPattern    = regexp.MustCompile(`(?is)<(script|style)\b[^>]*>.*?(</(script|style)\s*>|$)`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// SanitizeText drops script and style elements, strips the remaining tags
// and control characters and collapses whitespace.
func SanitizeText(value string) string {
	value = rawTextPattern.ReplaceAllString(value, " ")
	value = strip.StripTags(value)
	value = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, value)
	value = whitespacePattern.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// parseBool accepts the usual checkbox spellings and returns "1" or "0"
func parseBool(value string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return "1", true
	case "", "0", "false", "off", "no":
		return "0", true
	}
	return "", false
}

// normalize sanitizes value for f and records validation failures on v.
// An empty value is always accepted and clears the setting.
func normalize(f Field, value string, v *validation.FluentValidator) string {
	switch f.Kind {
	case KindBool:
		b, ok := parseBool(value)
		if !ok {
			v.RequireOneOf(value, []string{"0", "1"}, f.Key)
		}
		return b

	case KindColor:
		value = strings.TrimSpace(value)
		if value != "" {
			v.RequireHexColor(value, f.Key)
		}
		return value

	case KindURL:
		value = strings.TrimSpace(value)
		if value != "" {
			v.RequireURL(value, f.Key)
		}
		return value

	case KindSecret:
		value = strings.TrimSpace(value)
		v.RequireMaxLength(value, 512, f.Key)
		return value

	default:
		value = SanitizeText(value)
		v.RequireMaxLength(value, 500, f.Key)
		return value
	}
}
