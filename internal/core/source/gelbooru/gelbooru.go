/*
Package gelbooru implements the [source.Adapter] for gelbooru.com-style
sidecars: a single space-separated "tags" string with no category, html-escaped
tag names, and a "%a %b %d %H:%M:%S %z %Y"-formatted created_at.
*/
package gelbooru

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/corvid-labs/boorusync/internal/core/registry"
	"github.com/corvid-labs/boorusync/internal/core/resource"
	"github.com/corvid-labs/boorusync/internal/core/source"
	"github.com/corvid-labs/boorusync/internal/platform/apperr"
)

const name = "gelbooru"

const urlBase = "https://gelbooru.com"

const timestampLayout = "Mon Jan 2 15:04:05 -0700 2006"

var safetyMap = map[string]resource.Safety{
	"general":   resource.SafetySafe,
	"g":         resource.SafetySafe,
	"sensitive": resource.SafetySketchy,
	"s":         resource.SafetySketchy,
	"explicit":  resource.SafetyUnsafe,
	"e":         resource.SafetyUnsafe,
}

func init() {
	registry.RegisterSource(name, New)
}

type adapter struct {
	deps source.Dependencies
}

// New constructs the gelbooru [source.Adapter]; it satisfies [source.Factory].
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
	postURL := fmt.Sprintf("%s/index.php?page=post&s=view&id=%d", urlBase, id)

	sources := []string{postURL}
	if raw := meta.GetString("source"); raw != "" {
		sources = append(strings.Fields(raw), postURL)
	}

	post := resource.Post{
		ID:        id,
		Origin:    name,
		Tags:      parseTags(meta),
		Sources:   resource.NewUniqueSlice(sources...),
		Safety:    parseSafety(meta),
		MD5:       meta.GetString("md5"),
		PostURL:   postURL,
		CreatedAt: parseCreatedAt(meta),
		Metadata:  meta,
	}
	post.UpdatedAt = post.CreatedAt

	return post, nil
}

func parseTags(meta resource.Metadata) []resource.Tag {
	raw := meta.GetString("tags")
	if raw == "" {
		return nil
	}
	fields := strings.Fields(raw)
	tags := make([]resource.Tag, 0, len(fields))
	for _, tag := range fields {
		tags = append(tags, resource.Tag{Names: []string{html.UnescapeString(tag)}})
	}
	return tags
}

func parseSafety(meta resource.Metadata) resource.Safety {
	rating := strings.ToLower(meta.GetString("rating"))
	if safety, ok := safetyMap[rating]; ok {
		return safety
	}
	return resource.SafetyDefault
}

func parseCreatedAt(meta resource.Metadata) time.Time {
	raw := meta.GetString("created_at")
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(timestampLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
