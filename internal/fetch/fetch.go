// Package fetch retrieves a single page over plain HTTP for targets that do
// not need a browser. It is the cheap path: the caller decides up front
// whether a target renders server-side, and only then comes here.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

const maxAttempts = 3

// userAgents is rotated per attempt so a flaky first response is not retried
// with an identical signature.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// Page is one successfully fetched document.
type Page struct {
	HTML     string
	FinalURL string
	Status   int
	Elapsed  time.Duration
}

// StatusError reports a non-retryable HTTP status (4xx) or a 5xx that
// survived all retries.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
}

// NotHTMLError reports a response whose content type is not an HTML
// document. The body is not returned.
type NotHTMLError struct {
	URL         string
	ContentType string
}

func (e *NotHTMLError) Error() string {
	return fmt.Sprintf("fetch %s: not an HTML document (%s)", e.URL, e.ContentType)
}

// Options configures a Client.
type Options struct {
	// Proxy is an optional proxy URL applied to the transport.
	Proxy string

	// Timeout bounds each individual attempt. Zero means 20s.
	Timeout time.Duration
}

// Client fetches pages with retries and user-agent rotation.
type Client struct {
	http *http.Client

	// sleep is a test seam; production sleeps for real between attempts.
	sleep func(time.Duration)
}

// New builds a Client. An invalid proxy URL is an error rather than a
// silently direct connection.
func New(opts Options) (*Client, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &Client{
		http:  &http.Client{Transport: transport, Timeout: timeout},
		sleep: time.Sleep,
	}, nil
}

// NormalizeURL defaults a bare host to https.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	if strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + raw
}

// Fetch retrieves target, retrying transport errors and 5xx responses up to
// three attempts with doubling backoff. Non-HTML responses and 4xx statuses
// fail immediately.
func (c *Client) Fetch(ctx context.Context, target string) (*Page, error) {
	target = NormalizeURL(target)
	start := time.Now()

	backoff := time.Second
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			c.sleep(backoff)
			backoff *= 2
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, retryable, err := c.attempt(ctx, target, attempt)
		if err == nil {
			page.Elapsed = time.Since(start)
			return page, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("fetch %s: all attempts failed: %w", target, lastErr)
}

func (c *Client) attempt(ctx context.Context, target string, n int) (*Page, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgents[n%len(userAgents)])
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, true, &StatusError{URL: target, Status: resp.StatusCode}
	}
	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, resp.Body)
		return nil, false, &StatusError{URL: target, Status: resp.StatusCode}
	}

	ct := resp.Header.Get("Content-Type")
	if !isHTML(ct) {
		io.Copy(io.Discard, resp.Body)
		return nil, false, &NotHTMLError{URL: target, ContentType: ct}
	}

	// Decode legacy charsets into UTF-8 before anything downstream parses
	// the markup.
	reader, err := charset.NewReader(resp.Body, ct)
	if err != nil {
		return nil, false, fmt.Errorf("decode charset: %w", err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}

	final := target
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return &Page{HTML: string(body), FinalURL: final, Status: resp.StatusCode}, false, nil
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}
