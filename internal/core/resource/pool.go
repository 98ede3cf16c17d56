package resource

import "time"

// Pool is an ordered collection of posts sharing a series or theme (e.g. a
// comic chapter or an artist's set), mirrored between a source and a
// destination the same way a [Post] is.
type Pool struct {
	ID          int
	Origin      string
	Names       []string
	Category    string
	Description string
	Posts       []Post
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Plugins  Plugins
	Metadata Metadata
}

// Primary returns the pool's first, canonical name, or "" if it has none.
func (pool Pool) Primary() string {
	if len(pool.Names) == 0 {
		return ""
	}
	return pool.Names[0]
}

// Is reports whether pool and other are the same pool: equal (Origin, ID)
// and equal Category.
func (pool Pool) Is(other Pool) bool {
	return pool.Origin == other.Origin && pool.ID == other.ID && pool.Category == other.Category
}

// MergedWith folds update's non-zero fields onto a copy of pool, unioning
// Names and Posts rather than replacing them.
func (pool Pool) MergedWith(update Pool) Pool {
	merged := pool

	if len(update.Names) > 0 {
		var names UniqueSlice[string]
		names = names.AddAll(pool.Names)
		names = names.AddAll(update.Names)
		merged.Names = []string(names)
	}
	if update.Category != "" {
		merged.Category = update.Category
	}
	if update.Description != "" {
		merged.Description = update.Description
	}
	if len(update.Posts) > 0 {
		merged.Posts = mergePosts(pool.Posts, update.Posts)
	}
	if !update.CreatedAt.IsZero() {
		merged.CreatedAt = update.CreatedAt
	}
	if !update.UpdatedAt.IsZero() {
		merged.UpdatedAt = update.UpdatedAt
	}

	return merged
}

func mergePosts(existing, incoming []Post) []Post {
	merged := append([]Post(nil), existing...)
	for _, post := range incoming {
		found := false
		for i, candidate := range merged {
			if candidate.Is(post) {
				merged[i] = candidate.MergedWith(post)
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, post)
		}
	}
	return merged
}
