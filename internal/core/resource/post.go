package resource

import "time"

// Post is the canonical representation of a single media item, whether it
// was just parsed from a source sidecar or read back from a destination
// during reconciliation.
type Post struct {
	// ID is the post's identifier within its Origin site. Identity is
	// (Origin, ID, Category), as [Post.Is] compares it; ID alone is only
	// meaningful when comparing posts from the same Origin.
	ID int
	// Origin names the source or destination adapter this post's data came
	// from (e.g. "e621", "szurubooru").
	Origin string

	Category    string
	Description string
	Tags        []Tag
	Sources     UniqueSlice[string]
	Relations   Relationship
	Safety      Safety
	SHA1        string
	MD5         string
	PostURL     string
	Pools       []Pool

	CreatedAt time.Time
	UpdatedAt time.Time

	// LocalFile is the filesystem path to the downloaded media, populated
	// by the download manager once the post's file has been fetched.
	LocalFile string

	Plugins  Plugins
	Metadata Metadata
}

// Is reports whether p and other are the same post: equal (Origin, ID) and
// equal Category, mirroring the destination's own notion of post identity
// (the same id can be reused for a different category of resource).
func (p Post) Is(other Post) bool {
	return p.Origin == other.Origin && p.ID == other.ID && p.Category == other.Category
}

// StrTags returns the deduplicated union of every name across all of p's tags.
func (p Post) StrTags() []string {
	var names UniqueSlice[string]
	for _, tag := range p.Tags {
		names = names.AddAll(tag.Names)
	}
	return []string(names)
}

// ContainsAnyTags reports whether p carries at least one of the given tag
// names or tags (matched against every name + implication of each).
func (p Post) ContainsAnyTags(tags ...any) bool {
	postTags := p.StrTags()
	for _, tag := range tags {
		switch t := tag.(type) {
		case string:
			if containsName(postTags, t) {
				return true
			}
		case Tag:
			for _, name := range t.AllNames() {
				if containsName(postTags, name) {
					return true
				}
			}
		}
	}
	return false
}

// ContainsAllTags reports whether p carries every one of the given tag
// names or tags.
func (p Post) ContainsAllTags(tags ...any) bool {
	postTags := p.StrTags()
	for _, tag := range tags {
		switch t := tag.(type) {
		case string:
			if !containsName(postTags, t) {
				return false
			}
		case Tag:
			matched := false
			for _, name := range t.AllNames() {
				if containsName(postTags, name) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
	}
	return true
}

// SourcesOfType returns the subset of p.Sources whose [SourceType], as
// classified by classify, equals desired. classify is supplied by the
// registry so this package never depends on a specific validator adapter.
func (p Post) SourcesOfType(desired SourceType, classify func(url string) SourceType) []string {
	var found []string
	for _, src := range p.Sources {
		if classify(src) == desired {
			found = append(found, src)
		}
	}
	return found
}

// MergedWith folds update's non-zero fields onto a copy of p. Zero-valued
// scalar fields and empty slices on update never overwrite p's existing
// value; Tags and Sources are unioned rather than replaced, and Plugins/
// Metadata are never carried across a merge since they describe provenance
// of a single snapshot, not accumulated state.
func (p Post) MergedWith(update Post) Post {
	merged := p

	if update.Category != "" {
		merged.Category = update.Category
	}
	if update.Description != "" {
		merged.Description = update.Description
	}
	if len(update.Tags) > 0 {
		merged.Tags = mergeTags(p.Tags, update.Tags)
	}
	if len(update.Sources) > 0 {
		merged.Sources = p.Sources.AddAll([]string(update.Sources))
	}
	if update.Relations.ParentID != nil || len(update.Relations.Children) > 0 {
		merged.Relations = update.Relations
	}
	if update.Safety != "" {
		merged.Safety = update.Safety
	}
	if update.SHA1 != "" {
		merged.SHA1 = update.SHA1
	}
	if update.MD5 != "" {
		merged.MD5 = update.MD5
	}
	if update.PostURL != "" {
		merged.PostURL = update.PostURL
	}
	if len(update.Pools) > 0 {
		merged.Pools = update.Pools
	}
	if !update.CreatedAt.IsZero() {
		merged.CreatedAt = update.CreatedAt
	}
	if !update.UpdatedAt.IsZero() {
		merged.UpdatedAt = update.UpdatedAt
	}
	if update.LocalFile != "" {
		merged.LocalFile = update.LocalFile
	}

	return merged
}

func mergeTags(existing, incoming []Tag) []Tag {
	merged := append([]Tag(nil), existing...)
	for _, tag := range incoming {
		found := false
		for i, candidate := range merged {
			if candidate.Is(tag) {
				merged[i] = candidate.MergedWith(tag)
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, tag)
		}
	}
	return merged
}

// Diff returns the set of fields on p that differ from other, keyed by
// field name, for every field not in ignoreFields. Provenance fields
// (Plugins, Metadata, Relations) are always ignored, matching the original
// reconciliation's refusal to treat provenance drift as a content change.
func (p Post) Diff(other Post, ignoreFields ...string) map[string]any {
	ignored := map[string]bool{"Plugins": true, "Metadata": true, "Relations": true}
	for _, f := range ignoreFields {
		ignored[f] = true
	}

	diff := map[string]any{}

	if !ignored["Category"] && p.Category != other.Category {
		diff["Category"] = p.Category
	}
	if !ignored["Description"] && p.Description != other.Description {
		diff["Description"] = p.Description
	}
	if !ignored["Safety"] && p.Safety != other.Safety {
		diff["Safety"] = p.Safety
	}
	if !ignored["MD5"] && p.MD5 != other.MD5 {
		diff["MD5"] = p.MD5
	}
	if !ignored["SHA1"] && p.SHA1 != other.SHA1 {
		diff["SHA1"] = p.SHA1
	}
	if !ignored["PostURL"] && p.PostURL != other.PostURL {
		diff["PostURL"] = p.PostURL
	}
	if !ignored["Sources"] {
		if extra := diffStrings(p.Sources, other.Sources); len(extra) > 0 {
			diff["Sources"] = extra
		}
	}
	if !ignored["Tags"] {
		if extra := diffTags(p.Tags, other.Tags); len(extra) > 0 {
			diff["Tags"] = extra
		}
	}

	return diff
}

func diffStrings(self, other []string) []string {
	var extra []string
	for _, v := range self {
		if !containsName(other, v) {
			extra = append(extra, v)
		}
	}
	return extra
}

func diffTags(self, other []Tag) []Tag {
	var extra []Tag
	for _, tag := range self {
		found := false
		for _, candidate := range other {
			if candidate.Is(tag) {
				found = true
				break
			}
		}
		if !found {
			extra = append(extra, tag)
		}
	}
	return extra
}
