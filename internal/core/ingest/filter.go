package ingest

import "github.com/corvid-labs/boorusync/internal/core/resource"

// AllowedPost implements the allowed-post predicate: reject a post whose
// tag set trips a blacklisted group, that fails to satisfy every required
// group, whose safety falls outside the configured subset, whose score
// falls below the floor, or that the source marked deleted.
//
// Score and the deleted flag are sidecar-only fields a source's metadata
// plugin never promotes onto [resource.Post] itself, so both are read
// straight out of post.Metadata the way a source-specific field always is.
func (c Config) AllowedPost(post resource.Post) (bool, string) {
	tags := post.StrTags()

	for _, group := range c.BlacklistedTags {
		if group.Matches(tags) {
			return false, "blacklisted tag group matched"
		}
	}

	for _, group := range c.RequiredTags {
		if !group.Matches(tags) {
			return false, "missing required tag group"
		}
	}

	if !c.allowsSafety(post.Safety) {
		return false, "safety not in allowed set"
	}

	if c.MinimumScore > 0 && postScore(post) < c.MinimumScore {
		return false, "score below minimum"
	}

	if postDeleted(post) {
		return false, "marked deleted at source"
	}

	return true, ""
}

func postScore(post resource.Post) int {
	switch v := post.Metadata.Get("score").(type) {
	case float64:
		return int(v)
	case int:
		return v
	case map[string]any:
		if total, ok := v["total"].(float64); ok {
			return int(total)
		}
	}
	return 0
}

func postDeleted(post resource.Post) bool {
	switch v := post.Metadata.Get("deleted").(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}
