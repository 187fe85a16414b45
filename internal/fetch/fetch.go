package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"
)

// Page is a fetched document decoded to UTF-8 text.
type Page struct {
	URL         string
	Status      int
	ContentType string
	Text        string
}

// OK reports whether the response had a 2xx status.
func (p Page) OK() bool { return p.Status >= 200 && p.Status <= 299 }

// Client wraps http.Client with a user agent, a per-request timeout, a
// redirect cap and an optional rate limit. It makes exactly one attempt per
// call.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// PerRequestTimeout bounds each request. Zero leaves the client default.
	PerRequestTimeout time.Duration
	// RedirectMaxHops caps redirect following to avoid loops. Zero means default (5).
	RedirectMaxHops int
	// Limiter paces requests. Nil means unlimited.
	Limiter *rate.Limiter
	// Encoding forces a named character encoding (e.g. "windows-1252")
	// instead of detecting it from the response.
	Encoding string
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{Timeout: c.PerRequestTimeout, CheckRedirect: c.checkRedirectFunc()}
}

// Get issues a GET and returns the body as text. Any HTTP status is returned
// as a Page; only transport, decoding and read failures are errors.
func (c *Client) Get(ctx context.Context, rawURL string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("new request: %w", err)
	}
	// Reject non-HTTP(S) schemes early
	if !isHTTPScheme(req.URL) {
		return Page{}, fmt.Errorf("unsupported URL scheme: %q", req.URL.String())
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return Page{}, fmt.Errorf("rate limit: %w", err)
		}
	}
	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(req.Context(), c.PerRequestTimeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	r, err := c.decoder(resp.Body, contentType)
	if err != nil {
		return Page{}, err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return Page{}, fmt.Errorf("read body: %w", err)
	}
	return Page{
		URL:         resp.Request.URL.String(),
		Status:      resp.StatusCode,
		ContentType: contentType,
		Text:        string(b),
	}, nil
}

// decoder wraps body so it yields UTF-8, either from the forced Encoding or
// from the Content-Type header and <meta> sniffing.
func (c *Client) decoder(body io.Reader, contentType string) (io.Reader, error) {
	if name := strings.TrimSpace(c.Encoding); name != "" {
		enc, err := htmlindex.Get(name)
		if err != nil {
			return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
		}
		return transform.NewReader(body, enc.NewDecoder()), nil
	}
	r, err := charset.NewReader(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return r, nil
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		// Only allow http/https during redirects
		if !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// NewLimiter returns a limiter allowing rps requests per second, or nil when
// rps is not positive.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
