package resource_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corvid-labs/boorusync/internal/core/resource"
)

func TestTag_Is_MatchesOnSharedName(t *testing.T) {
	a := resource.Tag{Names: []string{"kitsune", "fox_girl"}}
	b := resource.Tag{Names: []string{"fox_girl"}}
	c := resource.Tag{Names: []string{"wolf_girl"}}

	assert.True(t, a.Is(b))
	assert.False(t, a.Is(c))
}

func TestTag_MergedWith_UnionsNamesKeepsPrimary(t *testing.T) {
	a := resource.Tag{Names: []string{"kitsune"}, Category: resource.TagCategoryGeneral}
	b := resource.Tag{Names: []string{"kitsune", "fox_girl"}, Category: resource.TagCategorySpecies}

	merged := a.MergedWith(b)

	assert.Equal(t, "kitsune", merged.Primary())
	assert.ElementsMatch(t, []string{"kitsune", "fox_girl"}, merged.Names)
	assert.Equal(t, resource.TagCategorySpecies, merged.Category)
}

func TestUniqueSlice_AddIsIdempotent(t *testing.T) {
	var u resource.UniqueSlice[string]
	u = u.Add("a").Add("b").Add("a")

	assert.Equal(t, []string{"a", "b"}, []string(u))
}
