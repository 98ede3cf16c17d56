package ingest

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/corvid-labs/boorusync/internal/core/destination"
	"github.com/corvid-labs/boorusync/internal/core/download"
	"github.com/corvid-labs/boorusync/internal/core/registry"
	"github.com/corvid-labs/boorusync/internal/core/resource"
	"github.com/corvid-labs/boorusync/internal/core/source"
	"github.com/corvid-labs/boorusync/internal/platform/constants"
	"github.com/corvid-labs/boorusync/internal/platform/ctxutil"
	"github.com/corvid-labs/boorusync/pkg/slice"
)

// Pipeline drives the download manager across a set of source URLs,
// reconciling every surviving post against a single destination adapter.
// It is the Go expression of ImportPostsCommand: same seven-step shape per
// page, restructured around [errgroup.Group] fan-out instead of asyncio
// task groups.
type Pipeline struct {
	Config      Config
	Destination destination.Adapter
	Downloader  *download.Manager
	Registry    *registry.Registry
}

// NewPipeline builds a [Pipeline]; cfg is defaulted via [Config.WithDefaults].
func NewPipeline(cfg Config, dest destination.Adapter, downloader *download.Manager, reg *registry.Registry) *Pipeline {
	if reg == nil {
		reg = registry.Global()
	}
	return &Pipeline{Config: cfg.WithDefaults(), Destination: dest, Downloader: downloader, Registry: reg}
}

// Run ingests every url in turn. A failure on one url is logged and does
// not stop the remaining urls, matching the original driver's per-URL
// try/except; a context cancellation propagates and stops the whole run.
func (p *Pipeline) Run(ctx context.Context, urls []string) error {
	logger := ctxutil.GetLogger(ctx)

	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.runURL(ctx, url); err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorContext(ctx, "url ingestion failed", slog.String("url", url), slog.Any("error", err))
		}
	}
	return nil
}

// runURL pages through a single url until the downloader reports no
// further items or allowed_blank_pages consecutive pages surface nothing
// new, matching spec §4.6's termination rule. Pools referenced by posts
// across every page of the url are resolved against their final,
// destination-assigned post ids and pushed once the url is fully paged,
// matching the original driver's whole-run pool synchronization pass.
func (p *Pipeline) runURL(ctx context.Context, url string) error {
	logger := ctxutil.GetLogger(ctx)

	pageCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	job := download.Job{SourceURL: url, OnlyMetadata: true, Cookies: p.Config.CookiesFile}
	pages, errs := p.Downloader.Pages(pageCtx, job)

	var pendingPools []resource.Pool
	blankPages := 0
	for page := range pages {
		newItems, pagePools, err := p.processPage(ctx, page)
		if err != nil {
			logger.ErrorContext(ctx, "page processing failed",
				slog.String("url", url), slog.String("dir", page.Dir), slog.Any("error", err))
		}
		pendingPools = mergePendingPools(pendingPools, pagePools)

		if newItems == 0 {
			blankPages++
		} else {
			blankPages = 0
		}
		if blankPages >= max(1, p.Config.AllowedBlankPages) {
			logger.InfoContext(ctx, "blank page limit reached, stopping url",
				slog.String("url", url), slog.Int("allowed_blank_pages", p.Config.AllowedBlankPages))
			cancel()
		}

		if rmErr := os.RemoveAll(page.Dir); rmErr != nil {
			logger.WarnContext(ctx, "cleanup failed", slog.String("dir", page.Dir), slog.Any("error", rmErr))
		}
	}

	if err := <-errs; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if err := p.syncPools(ctx, pendingPools); err != nil {
		logger.ErrorContext(ctx, "pool synchronization failed", slog.String("url", url), slog.Any("error", err))
	}
	return nil
}

// ProcessPage runs the seven-step pipeline against a single page and
// returns how many items were new (neither matched at the destination nor
// filtered out), which runURL uses to drive its blank-page counter.
func (p *Pipeline) ProcessPage(ctx context.Context, page download.Page) (int, error) {
	newCount, _, err := p.processPage(ctx, page)
	return newCount, err
}

// processPage is [ProcessPage] plus the pools referenced by the page's
// surviving posts, resolved against their post-push destination ids, for
// runURL to accumulate across the whole url.
func (p *Pipeline) processPage(ctx context.Context, page download.Page) (int, []resource.Pool, error) {
	logger := ctxutil.GetLogger(ctx)

	items := p.normalize(ctx, page)

	var surviving []*item
	for _, it := range items {
		allowed, reason := p.Config.AllowedPost(it.post)
		if !allowed {
			logger.DebugContext(ctx, "post rejected by filter",
				slog.Int("id", it.post.ID), slog.String("origin", it.post.Origin), slog.String("reason", reason))
			continue
		}
		surviving = append(surviving, it)
	}

	if err := p.checkExistence(ctx, surviving); err != nil {
		return 0, nil, fmt.Errorf("ingest: existence check: %w", err)
	}

	newCount := 0
	var toDownload []*item
	for _, it := range surviving {
		if it.existing != nil {
			it.post = it.existing.MergedWith(it.post)
			it.mediaDownloadDesired = false
		} else {
			it.mediaDownloadDesired = true
			newCount++
			toDownload = append(toDownload, it)
		}
	}

	if err := p.fetchMedia(ctx, page, toDownload); err != nil {
		return newCount, nil, fmt.Errorf("ingest: fetch media: %w", err)
	}

	for _, it := range surviving {
		fillHashes(it)
		it.post.Sources = it.post.Sources.Add(it.post.PostURL)
	}

	sourcePools := collectSourcePools(surviving)

	if err := p.upsert(ctx, surviving); err != nil {
		return newCount, nil, fmt.Errorf("ingest: upsert: %w", err)
	}

	if err := p.pushPageTags(ctx, surviving); err != nil {
		return newCount, nil, fmt.Errorf("ingest: tag propagation: %w", err)
	}

	return newCount, resolvePoolPosts(sourcePools, surviving), nil
}

// collectSourcePools snapshots, per item, the pools its sidecar referenced
// before upsert overwrites it.post with the destination's representation.
func collectSourcePools(items []*item) map[*item][]resource.Pool {
	bySourcePools := make(map[*item][]resource.Pool, len(items))
	for _, it := range items {
		if len(it.post.Pools) > 0 {
			bySourcePools[it] = it.post.Pools
		}
	}
	return bySourcePools
}

// resolvePoolPosts swaps each pool's source-side post stub for the item's
// now-pushed, destination-assigned post, so [syncPools] can push pool
// membership by destination post id.
func resolvePoolPosts(sourcePools map[*item][]resource.Pool, items []*item) []resource.Pool {
	var pools []resource.Pool
	for _, it := range items {
		for _, pool := range sourcePools[it] {
			pool.Posts = []resource.Post{it.post}
			pools = append(pools, pool)
		}
	}
	return pools
}

// mergePendingPools folds fresh into pending, merging any pool already
// present (same origin/id/category) rather than duplicating it.
func mergePendingPools(pending, fresh []resource.Pool) []resource.Pool {
	for _, pool := range fresh {
		merged := false
		for i, existing := range pending {
			if existing.Is(pool) {
				pending[i] = existing.MergedWith(pool)
				merged = true
				break
			}
		}
		if !merged {
			pending = append(pending, pool)
		}
	}
	return pending
}

// syncPools pushes every pool referenced across a url's pages, in the
// order first encountered, matching the original driver's update_pools
// pass that runs once all pages for a url have been processed.
func (p *Pipeline) syncPools(ctx context.Context, pools []resource.Pool) error {
	for _, pool := range pools {
		if _, err := p.Destination.PushPool(ctx, pool); err != nil {
			return fmt.Errorf("pool %q: %w", pool.Primary(), err)
		}
	}
	return nil
}

// normalize parses every sidecar in page into an item, selecting a source
// adapter per sidecar rather than per page since a page can, in principle,
// mix sites.
func (p *Pipeline) normalize(ctx context.Context, page download.Page) []*item {
	logger := ctxutil.GetLogger(ctx)

	items := make([]*item, 0, len(page.SidecarFiles))
	for _, path := range page.SidecarFiles {
		meta, err := readSidecar(path)
		if err != nil {
			logger.WarnContext(ctx, "skipping unreadable sidecar", slog.String("path", path), slog.Any("error", err))
			continue
		}

		sourceName := meta.GetString("category")
		adapter, err := p.Registry.FindSource(sourceName, source.Dependencies{})
		if err != nil {
			logger.WarnContext(ctx, "no source adapter for sidecar", slog.String("path", path), slog.String("category", sourceName))
			continue
		}

		post, err := adapter.Parser().Parse(ctx, meta)
		if err != nil {
			logger.WarnContext(ctx, "sidecar parse failed", slog.String("path", path), slog.Any("error", err))
			continue
		}
		post.Plugins.SourceName = adapter.Name()
		post.Plugins.DestinationName = p.Destination.Name()

		items = append(items, &item{sidecarPath: path, post: post})
	}
	return items
}

func readSidecar(path string) (resource.Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return resource.Metadata{}, err
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return resource.Metadata{}, err
	}
	return resource.Metadata{Data: data, File: path}, nil
}

// checkExistence fans the destination's find_exact_post out across every
// surviving item under an errgroup, matching spec §5's "existence checks
// fan out concurrently... the task group completes when every lookup has
// a result".
func (p *Pipeline) checkExistence(ctx context.Context, items []*item) error {
	group, gctx := errgroup.WithContext(ctx)
	for _, it := range items {
		it := it
		group.Go(func() error {
			found, err := p.Destination.FindExactPost(gctx, it.post)
			if err != nil {
				return fmt.Errorf("post %d: %w", it.post.ID, err)
			}
			it.existing = found
			return nil
		})
	}
	return group.Wait()
}

// fetchMedia invokes the downloader a second time for exactly the items
// flagged media_download_desired, then records the media file it produced
// next to each item's sidecar.
func (p *Pipeline) fetchMedia(ctx context.Context, page download.Page, toDownload []*item) error {
	if len(toDownload) == 0 {
		return nil
	}

	urls := make([]string, 0, len(toDownload))
	for _, it := range toDownload {
		urls = append(urls, it.post.PostURL)
	}

	if err := p.Downloader.FetchMedia(ctx, page.Dir, urls, p.Config.CookiesFile); err != nil {
		return err
	}

	for _, it := range toDownload {
		if path, ok := download.MediaPath(it.sidecarPath); ok {
			it.post.LocalFile = path
		}
	}
	return nil
}

// fillHashes computes MD5/SHA1 from an item's local file when the source
// sidecar didn't already carry one.
func fillHashes(it *item) {
	if it.post.LocalFile == "" || (it.post.MD5 != "" && it.post.SHA1 != "") {
		return
	}
	data, err := os.ReadFile(it.post.LocalFile)
	if err != nil {
		return
	}
	if it.post.MD5 == "" {
		sum := md5.Sum(data)
		it.post.MD5 = hex.EncodeToString(sum[:])
	}
	if it.post.SHA1 == "" {
		sum := sha1.Sum(data)
		it.post.SHA1 = hex.EncodeToString(sum[:])
	}
}

// upsert fans push_post out across every surviving item under an errgroup,
// matching spec §5's upsert fan-out.
func (p *Pipeline) upsert(ctx context.Context, items []*item) error {
	group, gctx := errgroup.WithContext(ctx)
	for _, it := range items {
		it := it
		group.Go(func() error {
			pushed, err := p.Destination.PushPost(gctx, it.post)
			if err != nil {
				return fmt.Errorf("post %d: %w", it.post.ID, err)
			}
			it.post = pushed
			return nil
		})
	}
	return group.Wait()
}

// pushPageTags accumulates the distinct tags across every surviving item
// in the page, then pushes them in waves of [constants.MaxTagUpdateWave],
// concurrently within each wave — spec §5's "tag updates batch at 500 per
// wave", and the whole-page accumulation from
// core.py's update_tag_categories.
func (p *Pipeline) pushPageTags(ctx context.Context, items []*item) error {
	var pageTags []resource.Tag
	seen := map[string]bool{}
	for _, it := range items {
		for _, tag := range it.post.Tags {
			primary := tag.Primary()
			if primary == "" || seen[primary] {
				continue
			}
			seen[primary] = true
			pageTags = append(pageTags, tag)
		}
	}

	for _, wave := range slice.Chunk(pageTags, constants.MaxTagUpdateWave) {
		group, gctx := errgroup.WithContext(ctx)
		for _, tag := range wave {
			tag := tag
			group.Go(func() error {
				if _, err := p.Destination.PushTag(gctx, tag); err != nil {
					return fmt.Errorf("tag %q: %w", tag.Primary(), err)
				}
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return err
		}
	}
	return nil
}
