package source

import (
	"regexp"

	"github.com/corvid-labs/boorusync/internal/core/resource"
)

// URLPatterns is a ready-made [Validator] built from one regular expression
// per [resource.SourceType] a source cares to distinguish. A nil pattern
// for a given type means this source never produces URLs of that type.
type URLPatterns struct {
	Post   *regexp.Regexp
	Author *regexp.Regexp
	Pool   *regexp.Regexp
	Global *regexp.Regexp
}

// Matches implements [Validator].
func (p URLPatterns) Matches(url string) bool {
	return p.Classify(url) != resource.SourceTypeUnknown
}

// Classify implements [Validator], checking patterns in Post, Author, Pool,
// Global order — the same precedence order the original validator plugins
// checked their regexes in.
func (p URLPatterns) Classify(url string) resource.SourceType {
	switch {
	case p.Post != nil && p.Post.MatchString(url):
		return resource.SourceTypePost
	case p.Author != nil && p.Author.MatchString(url):
		return resource.SourceTypeAuthor
	case p.Pool != nil && p.Pool.MatchString(url):
		return resource.SourceTypePool
	case p.Global != nil && p.Global.MatchString(url):
		return resource.SourceTypeGlobal
	default:
		return resource.SourceTypeUnknown
	}
}
