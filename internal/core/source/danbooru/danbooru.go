/*
Package danbooru implements the [source.Adapter] for danbooru.donmai.us-style
sidecars: tags spread across multiple "tags_<category>" list fields instead
of one combined field, and no pool membership in the base sidecar.
*/
package danbooru

import (
	"context"
	"fmt"
	"strings"

	"github.com/corvid-labs/boorusync/internal/core/registry"
	"github.com/corvid-labs/boorusync/internal/core/resource"
	"github.com/corvid-labs/boorusync/internal/core/source"
	"github.com/corvid-labs/boorusync/internal/platform/apperr"
)

const name = "danbooru"

const urlBase = "https://danbooru.donmai.us"

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

type adapter struct {
	deps source.Dependencies
}

// New constructs the danbooru [source.Adapter]; it satisfies [source.Factory].
func New(deps source.Dependencies) source.Adapter {
	return &adapter{deps: deps}
}

func (a *adapter) Name() string { return name }

func (a *adapter) Validator() source.Validator {
	return source.URLPatterns{Post: postURLPattern, Global: globalURLPattern}
}

func (a *adapter) Parser() source.Parser { return parser{} }

type parser struct{}

func (parser) Parse(_ context.Context, meta resource.Metadata) (resource.Post, error) {
	rawID, ok := meta.Get("id").(float64)
	if !ok {
		return resource.Post{}, apperr.MissingData("id")
	}
	id := int(rawID)

	var sources []string
	if src := meta.GetString("source"); src != "" {
		sources = []string{src}
	}

	post := resource.Post{
		ID:          id,
		Origin:      name,
		Description: meta.GetString("description"),
		Tags:        parseTags(meta),
		Sources:     resource.NewUniqueSlice(sources...),
		Safety:      parseSafety(meta),
		MD5:         meta.GetString("md5"),
		PostURL:     fmt.Sprintf("%s/posts/%d", urlBase, id),
		Metadata:    meta,
	}

	return post, nil
}

func parseTags(meta resource.Metadata) []resource.Tag {
	var tags []resource.Tag
	for key, raw := range meta.Data {
		if !strings.HasPrefix(key, "tags_") {
			continue
		}
		names, ok := raw.([]any)
		if !ok {
			continue
		}
		category := resource.TagCategory(strings.TrimPrefix(key, "tags_"))
		for _, v := range names {
			if n, ok := v.(string); ok {
				tags = append(tags, resource.Tag{Names: []string{n}, Category: category})
			}
		}
	}
	return tags
}

func parseSafety(meta resource.Metadata) resource.Safety {
	rating := meta.GetString("rating")
	if safety, ok := safetyMap[rating]; ok {
		return safety
	}
	return resource.SafetyDefault
}
