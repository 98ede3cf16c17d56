/*
Package destination defines the contract a destination adapter implements:
reconciling parsed [resource.Post], [resource.Tag], and [resource.Pool]
values against a remote booru-style service's own catalogue.

The canonical implementation lives in the szurubooru subpackage; this
package only defines the narrow interface the ingestion pipeline depends
on, so a future destination (or a fake, for tests) can be substituted
without touching pipeline code.
*/
package destination

import (
	"context"

	"github.com/corvid-labs/boorusync/internal/core/resource"
	"github.com/corvid-labs/boorusync/internal/platform/httpsession"
	"github.com/corvid-labs/boorusync/internal/platform/ratelimit"
	"github.com/corvid-labs/boorusync/internal/platform/retry"
	"github.com/corvid-labs/boorusync/internal/platform/tokencache"
)

// Dependencies are the collaborators a destination adapter factory wires
// into the adapter it builds.
type Dependencies struct {
	Session   httpsession.Session
	Limiter   *ratelimit.Limiter
	Cache     tokencache.Cache
	BaseURL   string
	AuthUser  string
	AuthToken string

	// TagNameCap bounds how many alternate names a pushed tag may carry.
	TagNameCap int
	// TagConflictRetryDelay is how long a tag push waits before retrying
	// after losing a primary-name race.
	TagConflictRetryDelay int

	// SourceCheckBeforeMD5, if true, tries a source-URL existence lookup
	// before the MD5 lookup in [Adapter.FindExactPost]; default false
	// (MD5 first), for sites where the hash is frequently absent at
	// discovery time but the post URL is always present.
	SourceCheckBeforeMD5 bool

	// ImageDistanceThreshold is the perceptual-distance cutoff below which a
	// reverse-image-search result is treated as an effective duplicate
	// (spec §4.2's recognized `image_distance_threshold` option, §4.7.2).
	// Zero means "use the adapter's own documented default."
	ImageDistanceThreshold float64

	// RootFolder is the installation root used to locate bundled
	// thumbnails for media formats the destination can't render a preview
	// of itself (spec §6's ROOT_FOLDER, used only for this).
	RootFolder string

	// RetryConfig bounds the transport-level retry every destination call
	// goes through; a zero value means "use [retry.DefaultConfig]". Tests
	// exercising a destination against an in-process httptest server
	// override this with a near-zero backoff so a retry scenario doesn't
	// pay the production 30s base delay.
	RetryConfig retry.Config
}

// Factory builds an [Adapter] from its dependencies.
type Factory func(deps Dependencies) Adapter

// Adapter is the full reconciliation contract a destination must satisfy.
type Adapter interface {
	Name() string

	// FindExactPost returns the destination's copy of post if one already
	// exists (matched by content hash or known source URL), or nil if not.
	FindExactPost(ctx context.Context, post resource.Post) (*resource.Post, error)

	// FindSimilarPosts returns posts the destination considers visually
	// similar to post, ordered by increasing perceptual distance. It is
	// used as a fallback when [FindExactPost] finds nothing and the
	// destination supports reverse-image search.
	FindSimilarPosts(ctx context.Context, post resource.Post) ([]SimilarPost, error)

	// FindPostsFromTags returns every destination post carrying all of the
	// given tags.
	FindPostsFromTags(ctx context.Context, tags []resource.Tag) ([]resource.Post, error)

	// FindExactTag returns the destination's copy of tag if one of its
	// names already exists there, or nil if not.
	FindExactTag(ctx context.Context, tag resource.Tag) (*resource.Tag, error)

	// PushTag creates or updates tag on the destination and returns the
	// resulting, destination-assigned tag.
	PushTag(ctx context.Context, tag resource.Tag) (resource.Tag, error)

	// PushPost creates or updates post (including uploading its media, if
	// not already present) and returns the resulting post.
	PushPost(ctx context.Context, post resource.Post) (resource.Post, error)

	// PushPool creates or updates pool, matching existing pools by name.
	PushPool(ctx context.Context, pool resource.Pool) (resource.Pool, error)
}

// SimilarPost pairs a destination post with how visually close it is to
// the post being reconciled; 0 is identical, larger is more different.
type SimilarPost struct {
	Post     resource.Post
	Distance float64
}
