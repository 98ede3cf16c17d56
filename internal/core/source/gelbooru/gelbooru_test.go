package gelbooru_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-labs/boorusync/internal/core/resource"
	"github.com/corvid-labs/boorusync/internal/core/source"
	"github.com/corvid-labs/boorusync/internal/core/source/gelbooru"
)

func meta(data map[string]any) resource.Metadata {
	return resource.Metadata{Data: data}
}

func TestParse_SpaceSeparatedTagsAndEscapedNames(t *testing.T) {
	adapter := gelbooru.New(source.Dependencies{})
	post, err := adapter.Parser().Parse(t.Context(), meta(map[string]any{
		"id":         float64(123),
		"tags":       "forest &amp; lake tall_grass",
		"rating":     "safe",
		"md5":        "abc123",
		"source":     "https://twitter.com/artist/status/1",
		"created_at": "Fri Jan 2 15:04:05 -0800 2026",
	}))
	require.NoError(t, err)

	assert.Equal(t, 123, post.ID)
	assert.Equal(t, "gelbooru", post.Origin)
	assert.Equal(t, resource.SafetySafe, post.Safety)
	assert.Equal(t, "abc123", post.MD5)

	names := make([]string, len(post.Tags))
	for i, tag := range post.Tags {
		names[i] = tag.Primary()
	}
	assert.ElementsMatch(t, []string{"forest", "&", "lake", "tall_grass"}, names)

	assert.Contains(t, []string(post.Sources), post.PostURL)
	assert.Contains(t, []string(post.Sources), "https://twitter.com/artist/status/1")
	assert.False(t, post.CreatedAt.IsZero())
	assert.Equal(t, post.CreatedAt, post.UpdatedAt)
}

func TestParse_MissingSourceFallsBackToPostURLOnly(t *testing.T) {
	adapter := gelbooru.New(source.Dependencies{})
	post, err := adapter.Parser().Parse(t.Context(), meta(map[string]any{
		"id":     float64(5),
		"rating": "e",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{post.PostURL}, []string(post.Sources))
	assert.Equal(t, resource.SafetyUnsafe, post.Safety)
}

func TestParse_UnknownRatingFallsBackToDefault(t *testing.T) {
	adapter := gelbooru.New(source.Dependencies{})
	post, err := adapter.Parser().Parse(t.Context(), meta(map[string]any{
		"id":     float64(6),
		"rating": "bogus",
	}))
	require.NoError(t, err)
	assert.Equal(t, resource.SafetyDefault, post.Safety)
}

func TestParse_UnparsableTimestampLeavesCreatedAtZero(t *testing.T) {
	adapter := gelbooru.New(source.Dependencies{})
	post, err := adapter.Parser().Parse(t.Context(), meta(map[string]any{
		"id":         float64(7),
		"created_at": "not-a-timestamp",
	}))
	require.NoError(t, err)
	assert.True(t, post.CreatedAt.IsZero())
}

func TestValidator_ClassifiesPostAndGlobalURLs(t *testing.T) {
	adapter := gelbooru.New(source.Dependencies{})
	v := adapter.Validator()

	assert.Equal(t, resource.SourceTypePost, v.Classify("https://gelbooru.com/index.php?page=post&s=view&id=1"))
	assert.Equal(t, resource.SourceTypeGlobal, v.Classify("https://gelbooru.com"))
	assert.Equal(t, resource.SourceTypeUnknown, v.Classify("https://unrelated.test/whatever"))
}
