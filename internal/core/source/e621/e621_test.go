package e621_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-labs/boorusync/internal/core/resource"
	"github.com/corvid-labs/boorusync/internal/core/source"
	"github.com/corvid-labs/boorusync/internal/core/source/e621"
)

func meta(data map[string]any) resource.Metadata {
	return resource.Metadata{Data: data}
}

func TestParse_FullSidecar(t *testing.T) {
	adapter := e621.New(source.Dependencies{})
	post, err := adapter.Parser().Parse(t.Context(), meta(map[string]any{
		"id":          float64(555),
		"description": "a fine forest",
		"rating":      "s",
		"file":        map[string]any{"md5": "abc123"},
		"sources":     []any{"https://twitter.com/artist/status/1"},
		"tags": map[string]any{
			"0": []any{"forest", "lake"},
			"1": []any{"some_artist"},
		},
		"relationships": map[string]any{
			"parent_id": float64(100),
			"children":  []any{float64(200), float64(201)},
		},
		"pools": []any{float64(9)},
	}))
	require.NoError(t, err)

	assert.Equal(t, 555, post.ID)
	assert.Equal(t, "e621", post.Origin)
	assert.Equal(t, "abc123", post.MD5)
	assert.Equal(t, resource.SafetySafe, post.Safety)
	assert.Equal(t, "https://e621.net/posts/555", post.PostURL)
	assert.Contains(t, []string(post.Sources), "https://twitter.com/artist/status/1")

	require.NotNil(t, post.Relations.ParentID)
	assert.Equal(t, 100, *post.Relations.ParentID)
	assert.ElementsMatch(t, []int{200, 201}, post.Relations.Children)

	require.Len(t, post.Pools, 1)
	assert.Equal(t, 9, post.Pools[0].ID)
	require.Len(t, post.Pools[0].Posts, 1)
	assert.Equal(t, 555, post.Pools[0].Posts[0].ID)

	byCategory := map[resource.TagCategory][]string{}
	for _, tag := range post.Tags {
		byCategory[tag.Category] = append(byCategory[tag.Category], tag.Primary())
	}
	assert.ElementsMatch(t, []string{"forest", "lake"}, byCategory[resource.TagCategoryGeneral])
	assert.ElementsMatch(t, []string{"some_artist"}, byCategory[resource.TagCategoryArtist])
}

func TestParse_MissingMD5IsAnError(t *testing.T) {
	adapter := e621.New(source.Dependencies{})
	_, err := adapter.Parser().Parse(t.Context(), meta(map[string]any{
		"id":   float64(1),
		"file": map[string]any{},
	}))
	assert.Error(t, err)
}

func TestParse_MissingIDIsAnError(t *testing.T) {
	adapter := e621.New(source.Dependencies{})
	_, err := adapter.Parser().Parse(t.Context(), meta(map[string]any{
		"file": map[string]any{"md5": "abc"},
	}))
	assert.Error(t, err)
}

func TestParse_UnknownCategoryFallsBackToDefault(t *testing.T) {
	adapter := e621.New(source.Dependencies{})
	post, err := adapter.Parser().Parse(t.Context(), meta(map[string]any{
		"id":   float64(1),
		"file": map[string]any{"md5": "abc"},
		"tags": map[string]any{"99": []any{"mystery_tag"}},
	}))
	require.NoError(t, err)
	require.Len(t, post.Tags, 1)
	assert.Equal(t, resource.TagCategoryDefault, post.Tags[0].Category)
}

func TestParse_NoRelationshipsLeavesRelationsEmpty(t *testing.T) {
	adapter := e621.New(source.Dependencies{})
	post, err := adapter.Parser().Parse(t.Context(), meta(map[string]any{
		"id":   float64(1),
		"file": map[string]any{"md5": "abc"},
	}))
	require.NoError(t, err)
	assert.Nil(t, post.Relations.ParentID)
	assert.Empty(t, post.Relations.Children)
}

func TestValidator_ClassifiesPostAndGlobalURLs(t *testing.T) {
	adapter := e621.New(source.Dependencies{})
	v := adapter.Validator()

	assert.Equal(t, resource.SourceTypePost, v.Classify("https://e621.net/posts/555"))
	assert.Equal(t, resource.SourceTypeGlobal, v.Classify("https://e621.net"))
	assert.Equal(t, resource.SourceTypeUnknown, v.Classify("https://unrelated.test/whatever"))
}
