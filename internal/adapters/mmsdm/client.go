package mmsdm

import (
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nemseer/internal/core/forecast"
	"nemseer/internal/core/resolve"
	perr "nemseer/internal/platform/errors"
	"nemseer/internal/platform/logger"
)

const (
	// DefaultBaseURL is the public MMSDM archive root
	DefaultBaseURL = "http://www.nemweb.com.au/Data_Archive/Wholesale_Electricity/MMSDM/"

	nemwebHost        = "www.nemweb.com.au"
	defaultRetryDelay = 500 * time.Millisecond
)

// Client fetches listings and archive files
type Client struct {
	base        string
	http        *http.Client
	agents      *agentCycle
	retryDelay  time.Duration
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
	log         *logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another archive root (a mirror or a test server)
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.base = strings.TrimRight(u, "/") + "/"
		}
	}
}

// WithHTTPClient sets the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets a per request timeout on the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = &http.Client{Timeout: d} }
}

// WithRetry sets the delay between listing attempts and the attempt cap
// (0 retries until the context ends)
func WithRetry(delay time.Duration, maxAttempts int) Option {
	return func(c *Client) {
		c.retryDelay = delay
		c.maxAttempts = maxAttempts
	}
}

// WithUserAgents replaces the user agent pool
func WithUserAgents(agents ...string) Option {
	return func(c *Client) { c.agents = newAgentCycle(agents) }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option { return func(c *Client) { c.log = l } }

// New builds a Client for the public archive
func New(opts ...Option) *Client {
	c := &Client{
		base:       DefaultBaseURL,
		http:       &http.Client{},
		agents:     newAgentCycle(nil),
		retryDelay: defaultRetryDelay,
		sleep:      sleepCtx,
	}
	for _, o := range opts {
		o(c)
	}
	c.log = logger.Or(c.log, "mmsdm")
	return c
}

// BaseURL is the archive root with a trailing slash
func (c *Client) BaseURL() string { return c.base }

// FolderURL is the listing URL of one SQLLoader folder for a month
func (c *Client) FolderURL(year int, month time.Month, folder string) string {
	return fmt.Sprintf("%s%d/MMSDM_%d_%02d/MMSDM_Historical_Data_SQLLoader/%s/", c.base, year, year, int(month), folder)
}

// FileURL is the zip URL for a physical table, routed to its folder
func (c *Client) FileURL(year int, month time.Month, t forecast.Type, table string) string {
	return c.FolderURL(year, month, resolve.Folder(t, table)) + resolve.Stub(year, month, t, table) + ".zip"
}

func (c *Client) newRequest(ctx context.Context, url string, extra http.Header) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "build request for %s", url)
	}
	if strings.HasSuffix(req.URL.Hostname(), "nemweb.com.au") {
		req.Host = nemwebHost
	}
	h := req.Header
	h.Set("User-Agent", c.agents.next())
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Accept-Encoding", "gzip, deflate")
	h.Set("Connection", "keep-alive")
	h.Set("Upgrade-Insecure-Requests", "1")
	for k, vs := range extra {
		for _, v := range vs {
			h.Set(k, v)
		}
	}
	return req, nil
}

// get performs one request. Non 200 responses become errors coded from the status
func (c *Client) get(ctx context.Context, url string, extra http.Header) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, url, extra)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "GET %s", url)
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
		return nil, perr.FromHTTPStatusf(resp.StatusCode, "mmsdm: unexpected status %d for %s", resp.StatusCode, url)
	}
	return decodeBody(resp)
}

// decodeBody undoes Content-Encoding; setting Accept-Encoding by hand turns off
// the transport's transparent gzip
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			_ = resp.Body.Close()
			return nil, perr.Wrap(err, perr.ErrorCodeIntegrity, "gzip body")
		}
		return readCloser{Reader: gz, close: func() error { _ = gz.Close(); return resp.Body.Close() }}, nil
	case "deflate":
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			_ = resp.Body.Close()
			return nil, perr.Wrap(err, perr.ErrorCodeIntegrity, "deflate body")
		}
		return readCloser{Reader: zr, close: func() error { _ = zr.Close(); return resp.Body.Close() }}, nil
	}
	return resp.Body, nil
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error { return r.close() }

// Download streams the zip for a physical table into w and returns its URL and size
func (c *Client) Download(ctx context.Context, year int, month time.Month, t forecast.Type, table string, w io.Writer) (string, int64, error) {
	url := c.FileURL(year, month, t, table)
	body, err := c.get(ctx, url, nil)
	if err != nil {
		return url, 0, err
	}
	defer func() { _ = body.Close() }()
	n, err := io.Copy(w, body)
	if err != nil {
		if ctx.Err() != nil {
			return url, n, ctx.Err()
		}
		return url, n, perr.Wrapf(err, perr.ErrorCodeUnavailable, "read body of %s", url)
	}
	c.log.Debug().Str("url", url).Int64("bytes", n).Msg("downloaded")
	return url, n, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
