// Package fetch retrieves URLs over HTTP for the fetch_url tool.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Defaults applied when the corresponding Fetcher field is zero.
const (
	DefaultTimeout = 30 * time.Second
	DefaultMaxBody = 1 << 20 // bytes
)

// Fetcher performs bounded HTTP GETs.
type Fetcher struct {
	Client  *http.Client  // default http.DefaultClient
	Timeout time.Duration // per-request ceiling, default DefaultTimeout
	MaxBody int           // response body cap in bytes, default DefaultMaxBody
	Logger  *slog.Logger
}

// Result holds a fetched response. A non-2xx status is a Result, not an
// error; errors are reserved for requests that produced no response.
type Result struct {
	URL         string
	Status      int
	ContentType string
	Body        string // decoded with invalid UTF-8 replaced
	Truncated   bool
}

// Error wraps any failure to retrieve a URL.
type Error struct {
	URL string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("fetch_failure: %s: %v", e.URL, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Kind returns the stable wire token for this failure.
func (e *Error) Kind() string { return "fetch_failure" }

// Fetch GETs rawURL and returns the response with the body capped at
// MaxBody bytes. Only http and https URLs are accepted.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &Error{URL: rawURL, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}

	timeout := f.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", "termserv")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	maxBody := f.MaxBody
	if maxBody == 0 {
		maxBody = DefaultMaxBody
	}
	// Read one byte past the cap to tell "exactly at the cap" from
	// "truncated".
	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxBody)+1))
	if err != nil {
		return nil, &Error{URL: rawURL, Err: fmt.Errorf("reading body: %w", err)}
	}
	truncated := len(data) > maxBody
	if truncated {
		data = data[:maxBody]
	}

	f.log().Debug("fetched url",
		"url", rawURL, "status", resp.StatusCode, "bytes", len(data), "truncated", truncated)

	return &Result{
		URL:         rawURL,
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        strings.ToValidUTF8(string(data), "�"),
		Truncated:   truncated,
	}, nil
}

func (f *Fetcher) log() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.New(slog.DiscardHandler)
}
