/*
Package httpsession defines the transport collaborator every source and
destination adapter is built against.

Per spec, the HTTP session's transport concerns (TLS config, proxies,
cookie persistence, connection pooling) are an out-of-scope collaborator:
adapters only depend on the narrow [Session] interface below, and the
default implementation here is the one concrete wiring the rest of the
repo needs to run against a real destination.
*/
package httpsession

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"

	"github.com/corvid-labs/boorusync/internal/platform/constants"
)

// Session is the narrow HTTP transport surface adapters depend on.
type Session interface {
	// Do executes an already-built request and returns the raw response.
	// The caller is responsible for closing resp.Body.
	Do(req *http.Request) (*http.Response, error)
}

// Default is a [Session] backed by [net/http.Client], configured with a
// cookie jar (some source sites gate paginated listings behind a session
// cookie) and the platform's default per-call timeout.
type Default struct {
	client *http.Client
}

// NewDefault constructs a [Default] session with a fresh cookie jar.
func NewDefault() (*Default, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("httpsession: creating cookie jar: %w", err)
	}

	return &Default{
		client: &http.Client{
			Jar:     jar,
			Timeout: constants.DefaultHTTPTimeout,
		},
	}, nil
}

// Do implements [Session].
func (d *Default) Do(req *http.Request) (*http.Response, error) {
	return d.client.Do(req)
}

// BasicAuthHeader base64-encodes "user:token" into an HTTP Basic
// Authorization header value, including the "Basic " scheme prefix.
func BasicAuthHeader(user, token string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+token))
}

// NewRequest is a convenience constructor bounding req to a per-call
// deadline derived from ctx, mirroring the timeout every adapter call
// should carry.
func NewRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultHTTPTimeout)
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return req, cancel, nil
}
