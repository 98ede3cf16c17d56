/*
Package slug generates ASCII-safe directory and file identifiers from
arbitrary Unicode strings.

It handles everything from accent removal (normalization) to character
sanitization, ensuring that a source tag or post title like "Sólo Leveling"
becomes "solo-leveling" and is therefore safe to use as a scratch
subdirectory name regardless of the host filesystem's encoding.

Transformation Pipeline:

 1. NFD Normalization: Decomposes accented chars (é -> e + accent).
 2. Accent Stripping: Removes combining marks.
 3. Lowercasing: Ensures filesystem uniformity.
 4. Sanitization: Replaces non-alphanumeric chars with hyphens.
 5. Clean-up: Collapses multiple hyphens and trims boundaries.
*/
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// # Common RegEx

var (
	// nonAlphanumeric matches any sequence of non-alphanumeric, non-hyphen characters.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9-]+`)

	// multiHyphen collapses multiple consecutive hyphens into one.
	multiHyphen = regexp.MustCompile(`-{2,}`)
)

// # Public API

// From converts an arbitrary Unicode string into a filesystem-safe ASCII slug.
func From(s string) string {

	// 1. Normalize and remove accents (e.g. "é" becomes "e")
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn))
	result, _, _ := transform.String(t, s)

	// 2. Convert to Lowercase for uniformity
	result = strings.ToLower(result)

	// 3. Replace non-standard characters with hyphens
	result = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '-'
	}, result)

	// 4. Final cleaning: collapse multiple hyphens and trim boundaries
	result = nonAlphanumeric.ReplaceAllString(result, "-")
	result = multiHyphen.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")

	if result == "" {
		return "untitled"
	}

	return result
}

// # Internal Helpers

// isMn reports whether r is a Unicode non-spacing mark (e.g. accents).
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
