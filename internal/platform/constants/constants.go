/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Networking: HTTP client timeouts and retry backoff bounds.
  - Rate Limiting: per-host burst capacities.
  - Pipeline: tag/pool batching caps shared between the ingestion pipeline
    and the destination adapters.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "boorusync"
	AppVersion = "0.1.0-dev"
)

// # Networking

const (
	// DefaultHTTPTimeout bounds a single HTTP round-trip to the destination
	// or a source's API.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultDownloadTimeout bounds a single invocation of the external
	// downloader binary for one page of a job.
	DefaultDownloadTimeout = 10 * time.Minute

	// ShutdownGracePeriod is how long a run waits for in-flight work to
	// unwind after a cancellation signal before abandoning it.
	ShutdownGracePeriod = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultDestinationRPS is the steady-state requests-per-second budget
	// granted to a single destination host.
	DefaultDestinationRPS = 4.0

	// DefaultDestinationBurst is the maximum burst allowed above the
	// steady-state rate for a destination host.
	DefaultDestinationBurst = 8
)

// # Retry / Backoff

const (
	// DefaultRetryAttempts is how many times a retryable destination call
	// is attempted before the error is surfaced to the caller, per spec
	// §4.7.5 ("exponential backoff (base 30s, up to 6 attempts)").
	DefaultRetryAttempts = 6

	// DefaultRetryBaseDelay is the initial backoff delay; it doubles on
	// each subsequent attempt. Spec §4.7.5 and the scenario-6 testable
	// property (§8) both specify a 30s base.
	DefaultRetryBaseDelay = 30 * time.Second

	// DefaultRetryMaxDelay caps the exponential backoff delay.
	DefaultRetryMaxDelay = 5 * time.Minute
)

// # Pipeline Batching

const (
	// MaxTagUpdateWave is the largest number of tags pushed to a
	// destination within a single concurrent task-group wave.
	MaxTagUpdateWave = 500

	// DefaultTagNameCap bounds how many alternate names a destination tag
	// may carry; excess names beyond this are dropped before the push.
	DefaultTagNameCap = 189

	// DefaultTagConflictRetryDelay is how long a tag push waits before
	// retrying after losing a primary-name race against a concurrent wave.
	DefaultTagConflictRetryDelay = 2 * time.Second
)
