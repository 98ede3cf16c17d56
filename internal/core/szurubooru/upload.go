package szurubooru

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"sort"
	"time"

	"github.com/corvid-labs/boorusync/internal/core/destination"
	"github.com/corvid-labs/boorusync/internal/core/resource"
	"github.com/corvid-labs/boorusync/internal/platform/apperr"
	"github.com/corvid-labs/boorusync/internal/platform/httpsession"
)

// wireSimilarPost pairs a raw post search result with its perceptual
// distance, before conversion to [resource.Post].
type wireSimilarPost struct {
	Post     wirePost
	Distance float64
}

// FindSimilarPosts implements [destination.Adapter] by uploading post's
// local file and running a reverse-image search against it, keeping only
// results within the adapter's configured distance threshold and ordering
// them by increasing distance, mirroring find_similar_posts.
func (a *Adapter) FindSimilarPosts(ctx context.Context, post resource.Post) ([]destination.SimilarPost, error) {
	_, similar, err := a.findSimilarPostsWithToken(ctx, post)
	if err != nil {
		return nil, err
	}

	out := make([]destination.SimilarPost, len(similar))
	for i, s := range similar {
		out[i] = destination.SimilarPost{Post: s.Post.toResource(), Distance: s.Distance}
	}
	return out, nil
}

// findSimilarPostsWithToken uploads post.LocalFile once and returns both the
// resulting content token and the filtered, raw similar-post list, so
// [PushPost] can reuse the same token and destination version numbers
// instead of uploading twice and losing the version a plain
// [resource.Post] does not carry.
func (a *Adapter) findSimilarPostsWithToken(ctx context.Context, post resource.Post) (string, []wireSimilarPost, error) {
	token, err := a.contentToken(ctx, post)
	if err != nil {
		return "", nil, err
	}

	search, err := a.reverseImageSearch(ctx, token)
	if err != nil {
		return token, nil, err
	}

	if search.ExactPost != nil {
		return token, []wireSimilarPost{{Post: *search.ExactPost, Distance: 0}}, nil
	}

	var filtered []wireSimilarPost
	for _, candidate := range search.SimilarPosts {
		if candidate.Distance < a.imageDistanceThreshold {
			filtered = append(filtered, wireSimilarPost{Post: candidate.Post, Distance: candidate.Distance})
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Distance < filtered[j].Distance })

	return token, filtered, nil
}

// contentTokenTTL bounds how long an uploaded file's content token is
// trusted to still be valid on the server before it is re-uploaded.
const contentTokenTTL = 10 * time.Minute

// contentToken returns post's content token, uploading post.LocalFile only
// if no cached token exists yet for its content hash, so a post touched by
// both a reverse-image lookup and a subsequent push never uploads its file
// twice in the same pipeline pass, matching find_similar_posts' token
// caching under the adapter name.
func (a *Adapter) contentToken(ctx context.Context, post resource.Post) (string, error) {
	cacheKey := post.Origin + ":" + itoa(post.ID) + ":" + post.MD5
	if post.MD5 != "" {
		if token, ok := a.cache.Get(ctx, cacheKey); ok {
			return token, nil
		}
	}

	token, err := a.uploadTemporaryFile(ctx, post.LocalFile)
	if err != nil {
		return "", err
	}

	if post.MD5 != "" {
		a.cache.Set(ctx, cacheKey, token, contentTokenTTL)
	}
	return token, nil
}

func (a *Adapter) uploadTemporaryFile(ctx context.Context, path string) (string, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx, a.baseURL); err != nil {
			return "", err
		}
	}

	data, err := readFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperr.MissingFile(path)
		}
		return "", apperr.Internal(fmt.Errorf("reading local file %s: %w", path, err))
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("content", baseName(path))
	if err != nil {
		return "", apperr.Internal(err)
	}
	if _, err := part.Write(data); err != nil {
		return "", apperr.Internal(err)
	}
	if err := writer.Close(); err != nil {
		return "", apperr.Internal(err)
	}

	req, cancel, err := httpsession.NewRequest(ctx, "POST", a.baseURL+"/api/uploads", &body)
	if err != nil {
		return "", apperr.Internal(err)
	}
	defer cancel()

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Token "+a.authHeader())
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := a.session.Do(req)
	if err != nil {
		return "", apperr.Unavailable("uploading temporary file", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Unavailable("reading upload response", err)
	}
	if err := classifyStatus(resp, respBody); err != nil {
		return "", err
	}

	var decoded struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", apperr.Internal(fmt.Errorf("decoding upload response: %w", err))
	}
	return decoded.Token, nil
}

func (a *Adapter) reverseImageSearch(ctx context.Context, contentToken string) (imageSearch, error) {
	var out imageSearch
	body := map[string]string{"contentToken": contentToken}
	err := a.do(ctx, "POST", "/api/posts/reverse-search", nil, body, &out)
	return out, err
}
