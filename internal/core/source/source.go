/*
Package source defines the contract every source adapter implements: a
metadata parser that turns a sidecar into a [resource.Post], and a URL
validator that classifies a source URL.

Concrete adapters (see the e621, gelbooru, and danbooru subpackages) each
register a [Factory] with the registry from an init() function; the
ingestion pipeline only ever depends on the [Adapter] interface here.
*/
package source

import (
	"context"

	"github.com/corvid-labs/boorusync/internal/core/resource"
	"github.com/corvid-labs/boorusync/internal/platform/httpsession"
	"github.com/corvid-labs/boorusync/internal/platform/ratelimit"
)

// Dependencies are the collaborators a source adapter factory wires into
// the adapter it builds.
type Dependencies struct {
	Session httpsession.Session
	Limiter *ratelimit.Limiter
	// BaseURL overrides the adapter's default API origin, e.g. for
	// self-hosted instances of an otherwise well-known source.
	BaseURL string
	// AuthUser/AuthToken authenticate discovery requests that need a
	// logged-in session to see the full catalogue.
	AuthUser  string
	AuthToken string
}

// Factory builds an [Adapter] from its dependencies. Every concrete source
// adapter package exposes one and registers it in its init().
type Factory func(deps Dependencies) Adapter

// Adapter is the full contract a source adapter must satisfy.
type Adapter interface {
	// Name returns the adapter's registry name (e.g. "e621").
	Name() string
	// Validator returns the URL classifier for this source.
	Validator() Validator
	// Parser returns the metadata-to-resource translator for this source.
	Parser() Parser
}

// Validator classifies URLs as belonging to this source and, if so, what
// kind of entity they reference.
type Validator interface {
	// Matches reports whether url belongs to this source at all.
	Matches(url string) bool
	// Classify returns the [resource.SourceType] url references. Callers
	// should only trust the result when [Matches] is also true.
	Classify(url string) resource.SourceType
}

// Parser turns a single sidecar's raw metadata into a [resource.Post].
// Implementations read the typed fields off [resource.Metadata] using
// whatever field names the upstream source's API uses, so malformed or
// source-specific fields never leak past this boundary.
type Parser interface {
	// Parse translates meta into a post. It returns an
	// [internal/platform/apperr.AppError] with [apperr.KindMissingData] if
	// meta lacks a field the pipeline requires (e.g. no MD5 and the
	// destination's dedup strategy needs one).
	Parse(ctx context.Context, meta resource.Metadata) (resource.Post, error)
}
