package resource

// UniqueSlice is an append-only, order-preserving sequence that silently
// drops values already present. Sources is the canonical user: a post
// often gets the same source URL re-asserted across several pipeline
// passes, and re-asserting must be a no-op rather than growing the slice.
type UniqueSlice[T comparable] []T

// Add appends v unless it is already present, returning the (possibly
// unchanged) slice.
func (u UniqueSlice[T]) Add(v T) UniqueSlice[T] {
	for _, existing := range u {
		if existing == v {
			return u
		}
	}
	return append(u, v)
}

// AddAll appends every value in vs not already present.
func (u UniqueSlice[T]) AddAll(vs []T) UniqueSlice[T] {
	for _, v := range vs {
		u = u.Add(v)
	}
	return u
}

// Contains reports whether v is present in u.
func (u UniqueSlice[T]) Contains(v T) bool {
	for _, existing := range u {
		if existing == v {
			return true
		}
	}
	return false
}

// NewUniqueSlice builds a [UniqueSlice] from vs, deduplicating while
// preserving first-seen order.
func NewUniqueSlice[T comparable](vs ...T) UniqueSlice[T] {
	var u UniqueSlice[T]
	return u.AddAll(vs)
}
