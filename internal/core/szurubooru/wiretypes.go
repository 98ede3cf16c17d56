package szurubooru

import (
	"strings"
	"time"

	"github.com/corvid-labs/boorusync/internal/core/resource"
)

// microTag is the abbreviated tag shape embedded in post/tag search results.
type microTag struct {
	Names    []string `json:"names"`
	Category string   `json:"category"`
	Usages   int      `json:"usages"`
}

func (t microTag) toResource() resource.Tag {
	return resource.Tag{Names: t.Names, Category: resource.TagCategory(t.Category)}
}

// wireTag is the full tag representation returned by /api/tag/{name} and
// /api/tags.
type wireTag struct {
	Version      int        `json:"version"`
	Names        []string   `json:"names"`
	Category     string     `json:"category"`
	Usages       int        `json:"usages"`
	Implications []microTag `json:"implications"`
	Description  string     `json:"description"`
}

func (t wireTag) toResource() resource.Tag {
	tag := resource.Tag{Names: t.Names, Category: resource.TagCategory(t.Category)}
	for _, implied := range t.Implications {
		tag.Implications = append(tag.Implications, implied.toResource())
	}
	return tag
}

// wirePost is the full post representation returned by /api/post/{id} and
// /api/posts.
type wirePost struct {
	Version     int         `json:"version"`
	ID          int         `json:"id"`
	CreationAt  string      `json:"creationTime"`
	LastEditAt  string      `json:"lastEditTime"`
	Safety      string      `json:"safety"`
	Source      string      `json:"source"`
	ChecksumMD5 string      `json:"checksumMD5"`
	Checksum    string      `json:"checksum"`
	Tags        []microTag  `json:"tags"`
	Pools       []microPool `json:"pools"`
}

func (p wirePost) sources() []string {
	if p.Source == "" {
		return nil
	}
	parts := strings.Split(p.Source, "\n")
	trimmed := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			trimmed = append(trimmed, s)
		}
	}
	return trimmed
}

func (p wirePost) toResource() resource.Post {
	post := resource.Post{
		ID:       p.ID,
		Origin:   name,
		Category: "szurubooru",
		Sources:  resource.NewUniqueSlice(p.sources()...),
		Safety:   resource.Safety(p.Safety),
		SHA1:     p.Checksum,
		MD5:      p.ChecksumMD5,
		Plugins:  resource.Plugins{DestinationName: name},
	}
	for _, t := range p.Tags {
		post.Tags = append(post.Tags, t.toResource())
	}
	for _, pl := range p.Pools {
		post.Pools = append(post.Pools, pl.toResource())
	}
	if t, err := time.Parse(time.RFC3339, p.CreationAt); err == nil {
		post.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, p.LastEditAt); err == nil {
		post.UpdatedAt = t
	}
	return post
}

// microPool is the abbreviated pool shape embedded in pool search results.
type microPool struct {
	ID          int      `json:"id"`
	Names       []string `json:"names"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
}

func (p microPool) toResource() resource.Pool {
	return resource.Pool{ID: p.ID, Origin: name, Names: p.Names, Category: p.Category, Description: p.Description}
}

// wirePool is the full pool representation returned by /api/pool/{id}.
type wirePool struct {
	Version     int      `json:"version"`
	ID          int      `json:"id"`
	Names       []string `json:"names"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Posts       []int    `json:"posts"`
}

func (p wirePool) toResource() resource.Pool {
	pool := resource.Pool{ID: p.ID, Origin: name, Names: p.Names, Category: p.Category, Description: p.Description}
	for _, id := range p.Posts {
		pool.Posts = append(pool.Posts, resource.Post{ID: id, Origin: name})
	}
	return pool
}

// postIDs extracts the destination post ids referenced by pool.Posts,
// dropping any entry that hasn't been assigned one yet (id 0).
func postIDs(posts []resource.Post) []int {
	ids := make([]int, 0, len(posts))
	for _, p := range posts {
		if p.ID != 0 {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// unionIDs merges primary and secondary, preserving primary's order and
// dropping duplicates.
func unionIDs(primary, secondary []int) []int {
	seen := make(map[int]bool, len(primary)+len(secondary))
	merged := make([]int, 0, len(primary)+len(secondary))
	for _, id := range primary {
		if !seen[id] {
			seen[id] = true
			merged = append(merged, id)
		}
	}
	for _, id := range secondary {
		if !seen[id] {
			seen[id] = true
			merged = append(merged, id)
		}
	}
	return merged
}

// pagedSearch is the generic paginated-results envelope every szurubooru
// search endpoint returns.
type pagedSearch[T any] struct {
	Offset  int `json:"offset"`
	Limit   int `json:"limit"`
	Total   int `json:"total"`
	Results []T `json:"results"`
}

// imageSearch is the response shape of the reverse-image-search endpoint.
type imageSearch struct {
	ExactPost *wirePost `json:"exactPost"`
	SimilarPosts []struct {
		Post     wirePost `json:"post"`
		Distance float64  `json:"distance"`
	} `json:"similarPosts"`
}
