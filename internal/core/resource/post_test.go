package resource_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-labs/boorusync/internal/core/resource"
)

func TestPost_Is(t *testing.T) {
	a := resource.Post{Origin: "e621", ID: 1, Category: "post"}
	b := resource.Post{Origin: "e621", ID: 1, Category: "post"}
	c := resource.Post{Origin: "e621", ID: 1, Category: "pool"}
	d := resource.Post{Origin: "gelbooru", ID: 1, Category: "post"}

	assert.True(t, a.Is(b))
	assert.False(t, a.Is(c))
	assert.False(t, a.Is(d))
}

func TestPost_MergedWith_BlankFieldsDontOverwrite(t *testing.T) {
	existing := resource.Post{
		ID:          1,
		Origin:      "e621",
		Description: "original description",
		Safety:      resource.SafetySafe,
		MD5:         "abc123",
	}

	update := resource.Post{
		ID:     1,
		Origin: "e621",
		// Description intentionally left blank.
		Safety: resource.SafetyUnsafe,
	}

	merged := existing.MergedWith(update)

	require.Equal(t, "original description", merged.Description, "blank update field must not clobber existing value")
	assert.Equal(t, resource.SafetyUnsafe, merged.Safety)
	assert.Equal(t, "abc123", merged.MD5)
}

func TestPost_MergedWith_UnionsTagsAndSources(t *testing.T) {
	existing := resource.Post{
		Tags:    []resource.Tag{{Names: []string{"blue_eyes"}}},
		Sources: resource.NewUniqueSlice("https://e621.net/posts/1"),
	}

	update := resource.Post{
		Tags:    []resource.Tag{{Names: []string{"blue_eyes", "blue_iris"}, Category: resource.TagCategoryGeneral}},
		Sources: resource.NewUniqueSlice("https://e621.net/posts/1", "https://twitter.com/artist/status/2"),
	}

	merged := existing.MergedWith(update)

	require.Len(t, merged.Tags, 1, "overlapping tag names must merge into one tag, not duplicate")
	assert.ElementsMatch(t, []string{"blue_eyes", "blue_iris"}, merged.Tags[0].Names)
	assert.Len(t, merged.Sources, 2)
}

func TestPost_Diff_IgnoresProvenanceFields(t *testing.T) {
	a := resource.Post{MD5: "same", Plugins: resource.Plugins{SourceName: "e621"}}
	b := resource.Post{MD5: "same", Plugins: resource.Plugins{SourceName: "gelbooru"}}

	diff := a.Diff(b)

	assert.Empty(t, diff, "provenance-only differences must not appear in the diff")
}

func TestPost_Diff_ReportsChangedScalarFields(t *testing.T) {
	a := resource.Post{MD5: "new", Safety: resource.SafetyUnsafe}
	b := resource.Post{MD5: "old", Safety: resource.SafetySafe}

	diff := a.Diff(b)

	assert.Equal(t, "new", diff["MD5"])
	assert.Equal(t, resource.SafetyUnsafe, diff["Safety"])
}

func TestPost_ContainsAnyTags(t *testing.T) {
	post := resource.Post{Tags: []resource.Tag{{Names: []string{"cat_ears"}}, {Names: []string{"forest"}}}}

	assert.True(t, post.ContainsAnyTags("cat_ears", "ocean"))
	assert.False(t, post.ContainsAnyTags("ocean", "desert"))
}

func TestPost_ContainsAllTags(t *testing.T) {
	post := resource.Post{Tags: []resource.Tag{{Names: []string{"cat_ears"}}, {Names: []string{"forest"}}}}

	assert.True(t, post.ContainsAllTags("cat_ears", "forest"))
	assert.False(t, post.ContainsAllTags("cat_ears", "ocean"))
}
