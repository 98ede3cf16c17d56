/*
Package ingest drives the per-URL ingestion pipeline: downloading sidecars
page by page, normalizing and filtering them, reconciling each surviving
post against a destination, and propagating tag/pool state alongside it.

The pipeline is the one component in this repo that ties every other
package together — registry lookups, the download manager, and a
destination adapter — so it never imports [internal/platform/config]
directly. It only ever accepts the already-resolved [Config] value the
loader produced, keeping the CLI/environment boundary out of the core.
*/
package ingest

import (
	"time"

	"github.com/corvid-labs/boorusync/internal/core/resource"
	"github.com/corvid-labs/boorusync/internal/platform/constants"
)

// TagGroup is one element of a blacklisted/required tag list. A plain
// string matches a single tag name; a group of more than one name is an
// AND-group that matches only when every member is present on the post.
type TagGroup []string

// Matches reports whether every name in g is among postTags.
func (g TagGroup) Matches(postTags []string) bool {
	for _, name := range g {
		if !containsString(postTags, name) {
			return false
		}
	}
	return len(g) > 0
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// Config is the fully-resolved set of tunables the ingestion pipeline
// reads; [internal/platform/config] is the out-of-scope loader that
// builds one from the environment.
type Config struct {
	// Destination is the registry name of the destination adapter to
	// reconcile posts against.
	Destination string

	// BlacklistedTags rejects a post if any group matches its tag set.
	BlacklistedTags []TagGroup
	// RequiredTags rejects a post unless every group matches its tag set.
	RequiredTags []TagGroup
	// AllowedSafety restricts posts to this subset; empty means all.
	AllowedSafety []resource.Safety
	// MinimumScore rejects a post whose score is below this floor. Zero
	// disables the check.
	MinimumScore int

	// AllowedBlankPages is how many consecutive pages with no new items the
	// pipeline tolerates before stopping a URL. Zero stops at the first
	// blank page.
	AllowedBlankPages int
	// DownloadPageSize bounds the downloader's --range window per page.
	DownloadPageSize int
	// LimitPerHost caps concurrent HTTP connections/requests against any
	// one host.
	LimitPerHost int
	// CookiesFile, if set, is passed through to the downloader.
	CookiesFile string

	// TempFolder is where the download manager scratch-writes pages.
	TempFolder string
	// RootFolder is the installation root, used only to locate bundled
	// thumbnails for formats that need a registered default.
	RootFolder string

	// TagConflictRetryDelay is how long a tag push waits before retrying
	// after losing a primary-name race.
	TagConflictRetryDelay time.Duration
	// TagNameCap bounds how many alternate names a pushed tag may carry.
	TagNameCap int
}

// WithDefaults returns a copy of c with zero-valued tunables replaced by
// the platform defaults.
func (c Config) WithDefaults() Config {
	if c.TagConflictRetryDelay <= 0 {
		c.TagConflictRetryDelay = constants.DefaultTagConflictRetryDelay
	}
	if c.TagNameCap <= 0 {
		c.TagNameCap = constants.DefaultTagNameCap
	}
	if c.TempFolder == "" {
		c.TempFolder = "./tmp"
	}
	return c
}

func (c Config) allowsSafety(s resource.Safety) bool {
	if len(c.AllowedSafety) == 0 {
		return true
	}
	for _, allowed := range c.AllowedSafety {
		if allowed == s {
			return true
		}
	}
	return false
}
