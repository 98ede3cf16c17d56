package szurubooru

import (
	"context"
	"net/url"
	"strconv"

	"github.com/corvid-labs/boorusync/internal/core/registry"
	"github.com/corvid-labs/boorusync/internal/core/resource"
	"github.com/corvid-labs/boorusync/internal/platform/apperr"
)

func itoa(n int) string { return strconv.Itoa(n) }

const defaultSearchSize = 100

// FindExactPost implements [destination.Adapter]. By default it tries an
// MD5 match first, then falls back to a source-URL match for each of
// post's known post-type source links, mirroring find_exact_post's
// fallback order; with sourceCheckBeforeMD5 the two checks run in the
// opposite order, for sites where the hash is frequently absent at
// discovery time but the post URL is always present.
func (a *Adapter) FindExactPost(ctx context.Context, post resource.Post) (*resource.Post, error) {
	found, err := a.exactWirePost(ctx, post)
	if err != nil || found == nil {
		return nil, err
	}
	resolved := found.toResource()
	return &resolved, nil
}

// exactWirePost is [FindExactPost] minus the conversion to [resource.Post],
// kept internal so [PushPost] can reuse the destination-assigned version
// number a plain resource.Post does not carry.
func (a *Adapter) exactWirePost(ctx context.Context, post resource.Post) (*wirePost, error) {
	if a.sourceCheckBeforeMD5 {
		if found, err := a.exactWirePostBySource(ctx, post); err != nil || found != nil {
			return found, err
		}
		return a.exactWirePostByMD5(ctx, post)
	}

	if found, err := a.exactWirePostByMD5(ctx, post); err != nil || found != nil {
		return found, err
	}
	return a.exactWirePostBySource(ctx, post)
}

func (a *Adapter) exactWirePostByMD5(ctx context.Context, post resource.Post) (*wirePost, error) {
	if post.MD5 == "" {
		return nil, nil
	}
	results, err := a.postSearch(ctx, "md5:"+escapeQueryString(post.MD5), 1, 0)
	if err != nil {
		return nil, err
	}
	if len(results.Results) > 0 {
		return &results.Results[0], nil
	}
	return nil, nil
}

func (a *Adapter) exactWirePostBySource(ctx context.Context, post resource.Post) (*wirePost, error) {
	for _, src := range post.SourcesOfType(resource.SourceTypePost, registry.Global().ClassifyType) {
		results, err := a.postSearch(ctx, "source:"+escapeQueryString(src), 1, 0)
		if err != nil {
			return nil, err
		}
		if len(results.Results) > 0 {
			return &results.Results[0], nil
		}
	}
	return nil, nil
}

// FindPostsFromTags implements [destination.Adapter].
func (a *Adapter) FindPostsFromTags(ctx context.Context, tags []resource.Tag) ([]resource.Post, error) {
	query := tagQuery(tags)

	results, err := a.postSearch(ctx, query, defaultSearchSize, 0)
	if err != nil {
		return nil, err
	}

	posts := make([]resource.Post, 0, len(results.Results))
	for _, p := range results.Results {
		posts = append(posts, p.toResource())
	}
	return posts, nil
}

func tagQuery(tags []resource.Tag) string {
	var b []byte
	for i, tag := range tags {
		if i > 0 {
			b = append(b, ' ')
		}
		b = append(b, escapeQueryString(tag.Primary())...)
	}
	return string(b)
}

// FindExactTag implements [destination.Adapter], trying every name tag
// carries until one resolves, matching find_exact_tag.
func (a *Adapter) FindExactTag(ctx context.Context, tag resource.Tag) (*resource.Tag, error) {
	for _, candidate := range tag.Names {
		found, err := a.getTag(ctx, candidate)
		if err != nil {
			if ae := apperr.As(err); ae != nil && ae.Kind == apperr.KindNotFound {
				continue
			}
			return nil, err
		}
		if found != nil {
			resolved := found.toResource()
			return &resolved, nil
		}
	}
	return nil, nil
}

func (a *Adapter) getTag(ctx context.Context, tagName string) (*wireTag, error) {
	var out wireTag
	err := a.do(ctx, "GET", "/api/tag/"+url.PathEscape(tagName), nil, nil, &out)
	if err != nil {
		if ae := apperr.As(err); ae != nil && ae.Kind == apperr.KindNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (a *Adapter) postSearch(ctx context.Context, query string, size, offset int) (pagedSearch[wirePost], error) {
	var out pagedSearch[wirePost]
	q := url.Values{
		"offset": {itoa(offset)},
		"limit":  {itoa(size)},
		"query":  {query},
	}
	err := a.do(ctx, "GET", "/api/posts/", q, nil, &out)
	return out, err
}

func (a *Adapter) poolSearch(ctx context.Context, query string, size, offset int) (pagedSearch[wirePool], error) {
	var out pagedSearch[wirePool]
	q := url.Values{
		"offset": {itoa(offset)},
		"limit":  {itoa(size)},
		"query":  {query},
	}
	err := a.do(ctx, "GET", "/api/pools/", q, nil, &out)
	return out, err
}
