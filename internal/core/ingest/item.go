package ingest

import "github.com/corvid-labs/boorusync/internal/core/resource"

// item is one sidecar's journey through a page: parsed from its source
// adapter, matched (or not) against the destination, and eventually
// pushed. It is the Go expression of DownloadItem from spec §4.5, minus
// the scratch-folder bookkeeping [download.Page] already carries.
type item struct {
	sidecarPath string
	post        resource.Post

	mediaDownloadDesired bool
	existing             *resource.Post
}
