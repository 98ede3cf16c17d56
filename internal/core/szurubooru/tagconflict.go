package szurubooru

import (
	"context"
	"net/url"

	"github.com/corvid-labs/boorusync/internal/core/resource"
	"github.com/corvid-labs/boorusync/internal/platform/apperr"
)

// desiredTagState is the names/category/implications [PushTag] wants the
// primary tag to carry after reconciling against an incoming [resource.Tag].
type desiredTagState struct {
	names        []string
	category     string
	implications []string
}

// resolveTagConflicts implements spec §4.7.4 steps 1-3: query the
// destination by every distinct name in names, collect the distinct
// destination tags that came back (a "conflicting tag" set), elect the
// first as primary, delete any other conflicting tag with zero usages, and
// merge the rest into the primary. It returns nil if no destination tag
// shares any name with names.
func (a *Adapter) resolveTagConflicts(ctx context.Context, names []string) (*wireTag, error) {
	conflicting, err := a.findConflictingTags(ctx, names)
	if err != nil {
		return nil, err
	}
	if len(conflicting) == 0 {
		return nil, nil
	}

	primary := conflicting[0]
	for _, other := range conflicting[1:] {
		if other.Usages == 0 {
			if err := a.deleteTag(ctx, other); err != nil {
				return nil, err
			}
			continue
		}
		merged, err := a.mergeTag(ctx, primary, other)
		if err != nil {
			return nil, err
		}
		primary = merged
	}
	return &primary, nil
}

// findConflictingTags queries the destination once per distinct name in
// names and returns the distinct destination tags found, in first-seen
// order. Two lookups that resolve to the same destination tag (because
// both names belong to it) contribute one entry, identified by the tag's
// own first name.
func (a *Adapter) findConflictingTags(ctx context.Context, names []string) ([]wireTag, error) {
	seen := map[string]bool{}
	var conflicting []wireTag

	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true

		found, err := a.getTag(ctx, n)
		if err != nil {
			return nil, err
		}
		if found == nil {
			continue
		}
		if !containsTagIdentity(conflicting, *found) {
			conflicting = append(conflicting, *found)
		}
	}
	return conflicting, nil
}

func containsTagIdentity(tags []wireTag, candidate wireTag) bool {
	for _, t := range tags {
		if len(t.Names) > 0 && len(candidate.Names) > 0 && t.Names[0] == candidate.Names[0] {
			return true
		}
	}
	return false
}

// desiredTagFor merges primary's current state with incoming, the way
// [resource.Tag.MergedWith] merges any partial update onto a base value,
// then caps the resulting name list at limit (spec §4.7.4 step 4; the
// cap works around known destination breakage past a fixed name count).
func desiredTagFor(primary wireTag, incoming resource.Tag, limit int) desiredTagState {
	merged := primary.toResource().MergedWith(incoming)
	return desiredTagState{
		names:        capNames(merged.Names, limit),
		category:     string(merged.Category),
		implications: flattenImplicationNames(merged.Implications),
	}
}

func flattenImplicationNames(implications []resource.Tag) []string {
	seen := map[string]bool{}
	var names []string
	for _, tag := range implications {
		for _, n := range tag.AllNames() {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

// updateTagConflictAware PUTs desired onto primary, recovering from the
// three destination-specific failure modes spec §4.7.4 step 5 calls out.
// Each recovery is attempted once; a failure that survives the recovery
// attempt is returned as-is (including an unrelated [apperr.KindConflict],
// which [PushTag]'s own outer loop handles by re-resolving from scratch).
func (a *Adapter) updateTagConflictAware(ctx context.Context, primary wireTag, desired desiredTagState) (wireTag, error) {
	updated, err := a.updateTagFull(ctx, primary.Names[0], primary.Version, desired.names, desired.category, desired.implications)
	if err == nil {
		return updated, nil
	}

	ae := apperr.As(err)
	if ae == nil {
		return wireTag{}, err
	}

	switch {
	case ae.Kind == apperr.KindNotFound && ae.ServerName == "TagNotFoundError":
		// The primary's first name no longer resolves: it was reordered
		// away from position 0 server-side between our read and this
		// write. Relocate the name we know exists to the front and retry.
		relocated := relocateFirst(desired.names, primary.Names[0])
		return a.updateTagFull(ctx, primary.Names[0], primary.Version, relocated, desired.category, desired.implications)

	case ae.ServerName == "IntegrityError":
		// An implication is already one of the tag's own names/aliases,
		// which the destination refuses as a cycle. Prune those names out
		// of the implication list and retry.
		pruned := pruneImplicationNames(desired.implications, desired.names)
		return a.updateTagFull(ctx, primary.Names[0], primary.Version, desired.names, desired.category, pruned)

	case ae.ServerName == "TagAlreadyExistsError":
		// One of the merged names collides with a tag the destination
		// created between our resolution pass and this write. Shrink to
		// just the primary name first, then re-expand in a second update.
		shrunk, err := a.updateTagFull(ctx, primary.Names[0], primary.Version, []string{primary.Names[0]}, desired.category, nil)
		if err != nil {
			return wireTag{}, err
		}
		return a.updateTagFull(ctx, shrunk.Names[0], shrunk.Version, desired.names, desired.category, desired.implications)

	default:
		return wireTag{}, err
	}
}

func (a *Adapter) updateTagFull(ctx context.Context, pathName string, version int, names []string, category string, implications []string) (wireTag, error) {
	var out wireTag
	body := map[string]any{"version": version, "category": category, "names": names}
	if implications != nil {
		body["implications"] = implications
	}
	err := a.do(ctx, "PUT", "/api/tag/"+url.PathEscape(pathName), nil, body, &out)
	return out, err
}

func (a *Adapter) deleteTag(ctx context.Context, t wireTag) error {
	body := map[string]any{"version": t.Version}
	return a.do(ctx, "DELETE", "/api/tag/"+url.PathEscape(t.Names[0]), nil, body, nil)
}

// mergeTag merges other into primary atomically via the destination's
// tag-merge endpoint, which validates both versions before applying the
// merge, and returns primary's post-merge representation.
func (a *Adapter) mergeTag(ctx context.Context, primary, other wireTag) (wireTag, error) {
	var out wireTag
	body := map[string]any{
		"remove":         other.Names[0],
		"removeVersion":  other.Version,
		"mergeTo":        primary.Names[0],
		"mergeToVersion": primary.Version,
	}
	err := a.do(ctx, "POST", "/api/tag-merge/", nil, body, &out)
	return out, err
}

// relocateFirst reorders names so want leads, preserving the relative
// order of the rest.
func relocateFirst(names []string, want string) []string {
	out := make([]string, 0, len(names)+1)
	out = append(out, want)
	for _, n := range names {
		if n != want {
			out = append(out, n)
		}
	}
	return out
}

// pruneImplicationNames drops any implication name that also appears in
// names, the destination's own definition of an integrity conflict.
func pruneImplicationNames(implications, names []string) []string {
	isName := make(map[string]bool, len(names))
	for _, n := range names {
		isName[n] = true
	}
	var pruned []string
	for _, imp := range implications {
		if !isName[imp] {
			pruned = append(pruned, imp)
		}
	}
	return pruned
}
