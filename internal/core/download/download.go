/*
Package download drives the external downloader binary (gallery-dl by
convention) that actually fetches media and sidecar metadata from a source
site, one page at a time.

The original downloader is a Python generator that calls gallery-dl with an
ever-advancing --range window and stops the first time a page writes zero
metadata files. This package keeps that exact termination rule but expresses
the generator as a channel the ingestion pipeline ranges over, so page
production and page consumption can overlap and the whole thing still
honors [context.Context] cancellation.
*/
package download

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/corvid-labs/boorusync/internal/platform/constants"
	"github.com/corvid-labs/boorusync/pkg/slug"
	"github.com/corvid-labs/boorusync/pkg/uuidv7"
)

// Job describes a single discovery run against one source URL.
type Job struct {
	// SourceURL is the listing or tag-search URL to page through.
	SourceURL string
	// OnlyMetadata skips media download, fetching sidecars only — used
	// when the pipeline only needs to inspect tags/ids before committing
	// to a full download.
	OnlyMetadata bool
	// Cookies, if set, is passed to the downloader as a cookies file path.
	Cookies string
}

// Page is one page of a job's results: the scratch directory the
// downloader wrote sidecars (and media, unless OnlyMetadata) into, and the
// sidecar file paths found there.
type Page struct {
	Dir          string
	SidecarFiles []string
}

// Manager wraps invocations of the external downloader binary.
type Manager struct {
	BinaryPath string
	BaseDir    string
	Verbose    bool

	// PageSize is how many items each --range window requests; the
	// original hardcodes 100, kept here as the default but overridable for
	// sources with stricter per-page limits.
	PageSize int
}

const defaultPageSize = 100

// NewManager constructs a [Manager] invoking binaryPath, scratch-writing
// under baseDir.
func NewManager(binaryPath, baseDir string) *Manager {
	return &Manager{BinaryPath: binaryPath, BaseDir: baseDir, PageSize: defaultPageSize}
}

// Pages starts paging through job and returns a channel of [Page] values,
// closed once the downloader reports an empty page or ctx is cancelled,
// plus a channel that receives at most one error.
func (m *Manager) Pages(ctx context.Context, job Job) (<-chan Page, <-chan error) {
	pages := make(chan Page)
	errs := make(chan error, 1)

	pageSize := m.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	go func() {
		defer close(pages)
		defer close(errs)

		minRange, maxRange := 0, pageSize

		for {
			if err := ctx.Err(); err != nil {
				errs <- err
				return
			}

			dir := m.scratchDir(job.SourceURL)
			if err := m.call(ctx, job, dir, minRange, maxRange); err != nil {
				errs <- fmt.Errorf("download: invoking downloader: %w", err)
				return
			}

			sidecars, err := listSidecars(dir)
			if err != nil {
				errs <- fmt.Errorf("download: reading scratch dir %s: %w", dir, err)
				return
			}

			if len(sidecars) == 0 {
				return
			}

			select {
			case pages <- Page{Dir: dir, SidecarFiles: sidecars}:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}

			minRange = maxRange
			maxRange += pageSize
		}
	}()

	return pages, errs
}

// scratchDir derives an ASCII-safe, collision-resistant scratch directory
// name from the job's source URL so concurrent jobs against different URLs
// never share a download directory.
func (m *Manager) scratchDir(sourceURL string) string {
	return filepath.Join(m.BaseDir, slug.From(sourceURL)+"-"+uuidv7.New())
}

func (m *Manager) call(ctx context.Context, job Job, dir string, minRange, maxRange int) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultDownloadTimeout)
	defer cancel()

	args := []string{
		fmt.Sprintf("-D=%s", dir),
		"--write-metadata",
		fmt.Sprintf("--range=%d-%d", minRange, maxRange),
	}
	if job.OnlyMetadata {
		args = append(args, "--no-download")
	}
	if job.Cookies != "" {
		args = append(args, fmt.Sprintf("--cookies=%s", job.Cookies))
	}
	if m.Verbose {
		args = append(args, "--verbose")
	} else {
		args = append(args, "--quiet")
	}
	args = append(args, job.SourceURL)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	slog.DebugContext(ctx, "invoking downloader", slog.String("binary", m.BinaryPath), slog.Any("args", args))

	cmd := exec.CommandContext(ctx, m.BinaryPath, args...)
	return cmd.Run()
}

// FetchMedia invokes the downloader a second time against an existing
// scratch dir, this time for a specific set of post URLs rather than a
// --range window, fetching only the media the pipeline has decided it
// actually wants. This mirrors download_media's targeted pass over the
// items a page's existence check flagged, after the first, metadata-only
// pass already populated the directory's sidecars.
func (m *Manager) FetchMedia(ctx context.Context, dir string, postURLs []string, cookies string) error {
	if len(postURLs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DefaultDownloadTimeout)
	defer cancel()

	args := []string{fmt.Sprintf("-D=%s", dir), "--write-metadata"}
	if cookies != "" {
		args = append(args, fmt.Sprintf("--cookies=%s", cookies))
	}
	if m.Verbose {
		args = append(args, "--verbose")
	} else {
		args = append(args, "--quiet")
	}
	args = append(args, postURLs...)

	slog.DebugContext(ctx, "invoking downloader for media",
		slog.String("binary", m.BinaryPath), slog.Int("count", len(postURLs)))

	cmd := exec.CommandContext(ctx, m.BinaryPath, args...)
	return cmd.Run()
}

// MediaPath returns the media file path sidecarPath's post would have been
// written to, and whether that file already exists on disk, per spec: the
// media file is the sidecar path with the trailing ".json" stripped.
func MediaPath(sidecarPath string) (string, bool) {
	path := strings.TrimSuffix(sidecarPath, ".json")
	if path == sidecarPath {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

func listSidecars(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	return matches, nil
}
