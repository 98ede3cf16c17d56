/*
Package e621 implements the [source.Adapter] for e621.net-style sidecars:
a nested "category -> [tag names]" tags map, a "relationships" block
carrying parent/child ids, and a required md5 under "file.md5".
*/
package e621

import (
	"context"
	"fmt"

	"github.com/corvid-labs/boorusync/internal/core/registry"
	"github.com/corvid-labs/boorusync/internal/core/resource"
	"github.com/corvid-labs/boorusync/internal/core/source"
	"github.com/corvid-labs/boorusync/internal/platform/apperr"
)

const name = "e621"

const urlBase = "https://e621.net"

// categoryMap translates e621's numeric tag category ids into the
// platform's own [resource.TagCategory] values.
var categoryMap = map[string]resource.TagCategory{
	"0": resource.TagCategoryGeneral,
	"1": resource.TagCategoryArtist,
	"2": resource.TagCategoryContributor,
	"3": resource.TagCategoryCopyright,
	"4": resource.TagCategoryCharacter,
	"5": resource.TagCategorySpecies,
	"6": resource.TagCategoryInvalid,
	"7": resource.TagCategoryMeta,
	"8": resource.TagCategoryLore,
}

// safetyMap translates both e621's full rating words and their single-letter
// raw codes ("s"/"q"/"e") into [resource.Safety].
var safetyMap = map[string]resource.Safety{
	"safe":         resource.SafetySafe,
	"s":            resource.SafetySafe,
	"questionable": resource.SafetySketchy,
	"q":            resource.SafetySketchy,
	"explicit":     resource.SafetyUnsafe,
	"e":            resource.SafetyUnsafe,
}

func init() {
	registry.RegisterSource(name, New)
}

// adapter implements [source.Adapter].
type adapter struct {
	deps source.Dependencies
}

// New constructs the e621 [source.Adapter]; it satisfies [source.Factory].
func New(deps source.Dependencies) source.Adapter {
	return &adapter{deps: deps}
}

func (a *adapter) Name() string { return name }

func (a *adapter) Validator() source.Validator {
	return source.URLPatterns{
		Post:   postURLPattern,
		Global: globalURLPattern,
	}
}

func (a *adapter) Parser() source.Parser {
	return parser{}
}

type parser struct{}

func (parser) Parse(_ context.Context, meta resource.Metadata) (resource.Post, error) {
	id, ok := meta.Get("id").(float64)
	if !ok {
		if intID, ok := meta.Get("id").(int); ok {
			id = float64(intID)
		} else {
			return resource.Post{}, apperr.MissingData("id")
		}
	}

	md5, err := extractMD5(meta)
	if err != nil {
		return resource.Post{}, err
	}

	post := resource.Post{
		ID:          int(id),
		Origin:      name,
		Description: meta.GetString("description"),
		Tags:        parseTags(meta),
		Sources:     resource.NewUniqueSlice(parseSources(meta)...),
		Relations:   parseRelations(meta),
		Safety:      parseSafety(meta),
		MD5:         md5,
		PostURL:     fmt.Sprintf("%s/posts/%d", urlBase, int(id)),
		Pools:       parsePools(meta, int(id)),
		Metadata:    meta,
	}

	return post, nil
}

func extractMD5(meta resource.Metadata) (string, error) {
	file, ok := meta.Get("file").(map[string]any)
	if !ok {
		return "", apperr.MissingData("file.md5")
	}
	md5, ok := file["md5"].(string)
	if !ok || md5 == "" {
		return "", apperr.MissingData("file.md5")
	}
	return md5, nil
}

func parseSources(meta resource.Metadata) []string {
	raw, ok := meta.Get("sources").([]any)
	if !ok {
		return nil
	}
	sources := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			sources = append(sources, s)
		}
	}
	return sources
}

func parseTags(meta resource.Metadata) []resource.Tag {
	tagsByCategory, ok := meta.Get("tags").(map[string]any)
	if !ok {
		return nil
	}

	var tags []resource.Tag
	for category, rawNames := range tagsByCategory {
		names, ok := rawNames.([]any)
		if !ok {
			continue
		}
		resolved := categoryMap[category]
		if resolved == "" {
			resolved = resource.TagCategoryDefault
		}
		for _, rawName := range names {
			n, ok := rawName.(string)
			if !ok {
				continue
			}
			tags = append(tags, resource.Tag{Names: []string{n}, Category: resolved})
		}
	}
	return tags
}

func parseRelations(meta resource.Metadata) resource.Relationship {
	rel, ok := meta.Get("relationships").(map[string]any)
	if !ok {
		return resource.Relationship{}
	}

	var parentID *int
	if pid, ok := rel["parent_id"].(float64); ok {
		id := int(pid)
		parentID = &id
	}

	var children []int
	if raw, ok := rel["children"].([]any); ok {
		for _, v := range raw {
			if f, ok := v.(float64); ok {
				children = append(children, int(f))
			}
		}
	}

	return resource.Relationship{ParentID: parentID, Children: children}
}

func parseSafety(meta resource.Metadata) resource.Safety {
	rating := meta.GetString("rating")
	if safety, ok := safetyMap[rating]; ok {
		return safety
	}
	return resource.SafetyDefault
}

func parsePools(meta resource.Metadata, postID int) []resource.Pool {
	raw, ok := meta.Get("pools").([]any)
	if !ok {
		return nil
	}
	pools := make([]resource.Pool, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(float64); ok {
			pools = append(pools, resource.Pool{ID: int(f), Origin: name, Posts: []resource.Post{{ID: postID, Origin: name}}})
		}
	}
	return pools
}
