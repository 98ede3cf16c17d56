package szurubooru_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-labs/boorusync/internal/core/destination"
	"github.com/corvid-labs/boorusync/internal/core/resource"
	_ "github.com/corvid-labs/boorusync/internal/core/source/e621"
	"github.com/corvid-labs/boorusync/internal/core/szurubooru"
	"github.com/corvid-labs/boorusync/internal/platform/retry"
)

// httpSession adapts an *http.Client to [httpsession.Session] for a test
// server's base URL.
type httpSession struct{ client *http.Client }

func (s httpSession) Do(req *http.Request) (*http.Response, error) { return s.client.Do(req) }

// fastRetryConfig bounds the transport-level retry to the same 3-attempt
// budget the production default carried before spec §4.7.5's 30s/6-attempt
// tuning, at a negligible delay, so a test driving a retryable failure
// through the retry path stays fast and its attempt counts stay predictable.
var fastRetryConfig = retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

func newAdapter(t *testing.T, handler http.HandlerFunc) (destination.Adapter, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	adapter := szurubooru.New(destination.Dependencies{
		Session:               httpSession{client: srv.Client()},
		BaseURL:               srv.URL,
		AuthUser:              "tester",
		AuthToken:             "secret",
		TagConflictRetryDelay: 1,
		RetryConfig:           fastRetryConfig,
	})
	return adapter, srv
}

func jsonResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestFindExactPost_MatchesByMD5(t *testing.T) {
	adapter, _ := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Contains(t, r.URL.Query().Get("query"), "md5:")
		jsonResponse(w, http.StatusOK, map[string]any{
			"offset": 0, "limit": 1, "total": 1,
			"results": []map[string]any{{"id": 42, "checksumMD5": "abc123"}},
		})
	})

	found, err := adapter.FindExactPost(t.Context(), resource.Post{MD5: "abc123"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 42, found.ID)
}

func TestFindExactPost_FallsBackToSourceURL(t *testing.T) {
	var queries []string
	adapter, _ := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("query")
		queries = append(queries, q)
		if q == "md5:" || q == "" {
			jsonResponse(w, http.StatusOK, map[string]any{"results": []map[string]any{}})
			return
		}
		jsonResponse(w, http.StatusOK, map[string]any{
			"results": []map[string]any{{"id": 7, "source": "https://e621.net/posts/555"}},
		})
	})

	post := resource.Post{Sources: resource.NewUniqueSlice("https://e621.net/posts/555")}
	found, err := adapter.FindExactPost(t.Context(), post)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 7, found.ID)
}

func TestFindExactPost_NotFound(t *testing.T) {
	adapter, _ := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]any{"results": []map[string]any{}})
	})

	found, err := adapter.FindExactPost(t.Context(), resource.Post{MD5: "nope"})
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestPushTag_CreatesWhenMissing(t *testing.T) {
	adapter, _ := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "GET":
			jsonResponse(w, http.StatusNotFound, map[string]any{"name": "SzurubooruError"})
		case r.Method == "POST":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			jsonResponse(w, http.StatusOK, map[string]any{
				"version": 1, "names": body["names"], "category": body["category"],
			})
		}
	})

	tag, err := adapter.PushTag(t.Context(), resource.Tag{Names: []string{"forest"}, Category: "default"})
	require.NoError(t, err)
	assert.Equal(t, "forest", tag.Primary())
}

func TestPushTag_SkipsWriteWhenAlreadyMatching(t *testing.T) {
	var putCalls int
	adapter, _ := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "PUT" {
			putCalls++
		}
		jsonResponse(w, http.StatusOK, map[string]any{
			"version": 1, "names": []string{"forest"}, "category": "default",
		})
	})

	_, err := adapter.PushTag(t.Context(), resource.Tag{Names: []string{"forest"}, Category: "default"})
	require.NoError(t, err)
	assert.Zero(t, putCalls, "a tag that already matches must not be re-written")
}

func TestPushTag_RetriesOnConflictThenSucceeds(t *testing.T) {
	// A conflict is not retried by the transport-level retry, so each 409
	// reaches PushTag's own conflict-retry loop directly: the first two PUTs
	// conflict, and the third (the loop's last attempt) is where the version
	// race resolves.
	var putAttempts int
	adapter, _ := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case "GET":
			jsonResponse(w, http.StatusOK, map[string]any{
				"version": 1, "names": []string{"forest"}, "category": "general",
			})
		case "PUT":
			putAttempts++
			if putAttempts <= 2 {
				jsonResponse(w, http.StatusConflict, map[string]any{"name": "concurrent modification"})
				return
			}
			jsonResponse(w, http.StatusOK, map[string]any{
				"version": 2, "names": []string{"forest", "woods"}, "category": "default",
			})
		}
	})

	tag, err := adapter.PushTag(t.Context(), resource.Tag{Names: []string{"forest", "woods"}, Category: "default"})
	require.NoError(t, err)
	assert.Equal(t, 3, putAttempts)
	assert.Equal(t, "forest", tag.Primary())
}

func TestPushTag_ConflictAcrossTwoNamesDeletesUnusedAndMergesUsed(t *testing.T) {
	// Two destination tags share a name with the incoming tag: "foo" (also
	// known as "baz", usages=5) and "bar" (usages=0). The zero-usage tag
	// must be deleted outright; the used one ("foo"/"baz") is the first-seen
	// conflicting tag, so it becomes the primary and is updated to carry the
	// incoming names too, via its current version.
	var deletedName string
	var mergeBody map[string]any
	var putBody map[string]any

	adapter, _ := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "GET" && r.URL.Path == "/api/tag/foo":
			jsonResponse(w, http.StatusOK, map[string]any{
				"version": 7, "names": []string{"foo", "baz"}, "category": "character", "usages": 5,
			})
		case r.Method == "GET" && r.URL.Path == "/api/tag/bar":
			jsonResponse(w, http.StatusOK, map[string]any{
				"version": 1, "names": []string{"bar"}, "category": "character", "usages": 0,
			})
		case r.Method == "DELETE" && r.URL.Path == "/api/tag/bar":
			deletedName = "bar"
			jsonResponse(w, http.StatusOK, map[string]any{})
		case r.Method == "PUT" && r.URL.Path == "/api/tag/foo":
			putBody = decodeBody(t, r)
			jsonResponse(w, http.StatusOK, map[string]any{
				"version": 8, "names": []string{"foo", "baz", "bar"}, "category": "character",
			})
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	tag, err := adapter.PushTag(t.Context(), resource.Tag{Names: []string{"foo", "bar"}, Category: "character"})
	require.NoError(t, err)

	assert.Equal(t, "bar", deletedName, "the zero-usage conflicting tag must be deleted, not merged")
	assert.Nil(t, mergeBody, "only one other conflicting tag existed, so no merge call was needed")
	require.NotNil(t, putBody)
	assert.EqualValues(t, 7, putBody["version"], "the update must use the primary's current version")
	assert.ElementsMatch(t, []string{"foo", "baz", "bar"}, putBody["names"])
	assert.Equal(t, "foo", tag.Primary())
}

func TestPushTag_MergesUsedConflictIntoFirstSeenPrimary(t *testing.T) {
	var mergeBody map[string]any

	adapter, _ := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "GET" && r.URL.Path == "/api/tag/foo":
			jsonResponse(w, http.StatusOK, map[string]any{
				"version": 3, "names": []string{"foo"}, "category": "character", "usages": 10,
			})
		case r.Method == "GET" && r.URL.Path == "/api/tag/bar":
			jsonResponse(w, http.StatusOK, map[string]any{
				"version": 2, "names": []string{"bar"}, "category": "character", "usages": 4,
			})
		case r.Method == "POST" && r.URL.Path == "/api/tag-merge/":
			mergeBody = decodeBody(t, r)
			jsonResponse(w, http.StatusOK, map[string]any{
				"version": 4, "names": []string{"foo", "bar"}, "category": "character",
			})
		case r.Method == "PUT" && r.URL.Path == "/api/tag/foo":
			jsonResponse(w, http.StatusOK, map[string]any{
				"version": 5, "names": []string{"foo", "bar"}, "category": "character",
			})
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	tag, err := adapter.PushTag(t.Context(), resource.Tag{Names: []string{"foo", "bar"}, Category: "character"})
	require.NoError(t, err)

	require.NotNil(t, mergeBody)
	assert.Equal(t, "bar", mergeBody["remove"])
	assert.EqualValues(t, 2, mergeBody["removeVersion"])
	assert.Equal(t, "foo", mergeBody["mergeTo"])
	assert.EqualValues(t, 3, mergeBody["mergeToVersion"])
	assert.Equal(t, "foo", tag.Primary())
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestPushPost_NoLocalFile_SkipsUpdateWhenNoDiff(t *testing.T) {
	var putCalls int
	matching := map[string]any{
		"version": 3, "id": 9, "checksumMD5": "abc", "safety": "safe",
		"source": "https://e621.net/posts/1",
	}
	adapter, _ := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case "GET":
			jsonResponse(w, http.StatusOK, map[string]any{"results": []map[string]any{matching}})
		case "PUT":
			putCalls++
			jsonResponse(w, http.StatusOK, matching)
		}
	})

	post := resource.Post{
		MD5:     "abc",
		Safety:  resource.SafetySafe,
		Sources: resource.NewUniqueSlice("https://e621.net/posts/1"),
	}
	result, err := adapter.PushPost(t.Context(), post)
	require.NoError(t, err)
	assert.Equal(t, 9, result.ID)
	assert.Zero(t, putCalls, "an unchanged post must not be re-written")
}

func TestPushPost_NoLocalFile_NotFoundWhenNoMatch(t *testing.T) {
	adapter, _ := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]any{"results": []map[string]any{}})
	})

	_, err := adapter.PushPost(t.Context(), resource.Post{MD5: "nope"})
	assert.Error(t, err)
}

func TestFindExactPost_SourceCheckBeforeMD5TriesSourceFirst(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("query")
		queries = append(queries, q)
		if strings.HasPrefix(q, "source:") {
			jsonResponse(w, http.StatusOK, map[string]any{
				"results": []map[string]any{{"id": 11, "source": "https://e621.net/posts/77"}},
			})
			return
		}
		jsonResponse(w, http.StatusOK, map[string]any{"results": []map[string]any{}})
	}))
	t.Cleanup(srv.Close)

	adapter := szurubooru.New(destination.Dependencies{
		Session:              httpSession{client: srv.Client()},
		BaseURL:              srv.URL,
		AuthUser:             "tester",
		AuthToken:            "secret",
		SourceCheckBeforeMD5: true,
	})

	post := resource.Post{MD5: "wouldmatch", Sources: resource.NewUniqueSlice("https://e621.net/posts/77")}
	found, err := adapter.FindExactPost(t.Context(), post)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 11, found.ID)
	require.NotEmpty(t, queries)
	assert.True(t, strings.HasPrefix(queries[0], "source:"), "the source-URL lookup must run before the MD5 lookup")
}

func TestPushPool_CreatesWhenNameNotFound(t *testing.T) {
	adapter, _ := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case "GET":
			jsonResponse(w, http.StatusOK, map[string]any{"results": []map[string]any{}})
		case "POST":
			jsonResponse(w, http.StatusOK, map[string]any{
				"version": 1, "id": 3, "names": []string{"summer-2026"},
			})
		}
	})

	pool, err := adapter.PushPool(t.Context(), resource.Pool{Names: []string{"summer-2026"}})
	require.NoError(t, err)
	assert.Equal(t, 3, pool.ID)
}

func TestFindSimilarPosts_FiltersByDistanceThresholdAndOrders(t *testing.T) {
	tmp := t.TempDir() + "/image.jpg"
	require.NoError(t, writeFile(tmp, []byte("fake-image-bytes")))

	adapter, _ := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/uploads":
			jsonResponse(w, http.StatusOK, map[string]any{"token": "tok-1"})
		case r.URL.Path == "/api/posts/reverse-search":
			jsonResponse(w, http.StatusOK, map[string]any{
				"similarPosts": []map[string]any{
					{"post": map[string]any{"id": 2}, "distance": 0.2},
					{"post": map[string]any{"id": 1}, "distance": 0.05},
					{"post": map[string]any{"id": 3}, "distance": 0.1},
				},
			})
		}
	})

	similar, err := adapter.FindSimilarPosts(t.Context(), resource.Post{LocalFile: tmp, Origin: "e621", ID: 1})
	require.NoError(t, err)
	require.Len(t, similar, 2, "the 0.2-distance candidate must be filtered out")
	assert.Equal(t, 1, similar[0].Post.ID)
	assert.Equal(t, 3, similar[1].Post.ID)
}

func TestFindSimilarPosts_ExactPostShortCircuits(t *testing.T) {
	tmp := t.TempDir() + "/image.jpg"
	require.NoError(t, writeFile(tmp, []byte("fake-image-bytes")))

	adapter, _ := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/uploads":
			jsonResponse(w, http.StatusOK, map[string]any{"token": "tok-1"})
		case r.URL.Path == "/api/posts/reverse-search":
			jsonResponse(w, http.StatusOK, map[string]any{
				"exactPost": map[string]any{"id": 99},
				"similarPosts": []map[string]any{
					{"post": map[string]any{"id": 2}, "distance": 0.01},
				},
			})
		}
	})

	similar, err := adapter.FindSimilarPosts(t.Context(), resource.Post{LocalFile: tmp, Origin: "e621", ID: 1})
	require.NoError(t, err)
	require.Len(t, similar, 1)
	assert.Equal(t, 99, similar[0].Post.ID)
	assert.Zero(t, similar[0].Distance)
}

func TestUploadTemporaryFile_CachedByMD5(t *testing.T) {
	tmp := t.TempDir() + "/image.jpg"
	require.NoError(t, writeFile(tmp, []byte("fake-image-bytes")))

	var uploadCount int
	adapter, _ := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/uploads":
			uploadCount++
			jsonResponse(w, http.StatusOK, map[string]any{"token": "tok-cached"})
		case r.URL.Path == "/api/posts/reverse-search":
			jsonResponse(w, http.StatusOK, map[string]any{"similarPosts": []map[string]any{}})
		}
	})

	post := resource.Post{LocalFile: tmp, Origin: "e621", ID: 1, MD5: "same-hash"}
	_, err := adapter.FindSimilarPosts(t.Context(), post)
	require.NoError(t, err)
	_, err = adapter.FindSimilarPosts(t.Context(), post)
	require.NoError(t, err)

	assert.Equal(t, 1, uploadCount, "a second lookup within TTL must reuse the cached content token")
}

func TestPushPost_CreateUploadsRegisteredThumbnailForExtension(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(root+"/assets/thumbnails", 0o755))
	require.NoError(t, writeFile(root+"/assets/thumbnails/flash.png", []byte("thumb-bytes")))

	mediaPath := t.TempDir() + "/clip.swf"
	require.NoError(t, writeFile(mediaPath, []byte("flash-bytes")))

	var uploadedNames []string
	var postBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/uploads":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			for _, files := range r.MultipartForm.File {
				for _, f := range files {
					uploadedNames = append(uploadedNames, f.Filename)
				}
			}
			jsonResponse(w, http.StatusOK, map[string]any{"token": "tok-" + filepath.Base(r.MultipartForm.File["content"][0].Filename)})
		case r.URL.Path == "/api/posts/reverse-search":
			jsonResponse(w, http.StatusOK, map[string]any{"similarPosts": []map[string]any{}})
		case r.URL.Path == "/api/posts/" && r.Method == "POST":
			postBody = decodeBody(t, r)
			jsonResponse(w, http.StatusOK, map[string]any{"id": 1, "version": 1})
		}
	}))
	t.Cleanup(srv.Close)

	adapter := szurubooru.New(destination.Dependencies{
		Session:    httpSession{client: srv.Client()},
		BaseURL:    srv.URL,
		AuthUser:   "tester",
		AuthToken:  "secret",
		RootFolder: root,
	})

	_, err := adapter.PushPost(t.Context(), resource.Post{LocalFile: mediaPath, Safety: "safe"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"clip.swf", "flash.png"}, uploadedNames,
		"both the media file and its registered default thumbnail must be uploaded")
	require.NotNil(t, postBody)
	assert.Equal(t, "tok-flash.png", postBody["thumbnailToken"])
}

func TestPushPost_MissingLocalFileAbortsPush(t *testing.T) {
	adapter, _ := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("no destination call should happen when the local file is missing, got %s %s", r.Method, r.URL.Path)
	})

	_, err := adapter.PushPost(t.Context(), resource.Post{LocalFile: "/nonexistent/path/does-not-exist.jpg"})
	require.Error(t, err)
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
