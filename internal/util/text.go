package util

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reSpaces       = regexp.MustCompile(`\s+`)
	reIllegalChars = regexp.MustCompile(`[\\/:*?"<>|]`)
)

// NormalizeKey removes all whitespace and folds case. It is the single
// matching rule for header discovery and template labels.
func NormalizeKey(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// SanitizeName strips characters that are illegal in file names on common
// filesystems. The result may be empty.
func SanitizeName(input string) string {
	s := NormalizeSpaces(reIllegalChars.ReplaceAllString(input, ""))
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.Trim(s, ". ")
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
