package browse

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"harvest/internal/document"
)

const (
	navigateTimeout = 30 * time.Second
	bodyTimeout     = 10 * time.Second
	elementTimeout  = 3 * time.Second
	queryTimeout    = 5 * time.Second
)

// SessionOptions configures browser launch.
type SessionOptions struct {
	Headless bool
	Proxy    string
}

// Session is one scoped browser: acquired at run start, released on every
// exit path. Callers must defer Close immediately after NewSession succeeds.
type Session struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
}

// NewSession launches a browser and opens one blank page.
func NewSession(opts SessionOptions) (*Session, error) {
	l := launcher.New().Headless(opts.Headless)
	if opts.Proxy != "" {
		l = l.Proxy(opts.Proxy)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("open page: %w", err)
	}

	return &Session{browser: browser, page: page, launcher: l}, nil
}

// Close releases the page, browser, and launcher process. Safe to call on
// every exit path; call it exactly once.
func (s *Session) Close() {
	if s.page != nil {
		_ = s.page.Close()
	}
	if s.browser != nil {
		_ = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Kill()
	}
}

func (s *Session) driver() driver {
	return &rodDriver{page: s.page}
}

// rodDriver implements driver on a rod page.
type rodDriver struct {
	page *rod.Page
}

func (d *rodDriver) Navigate(ctx context.Context, target string) error {
	page := d.page.Context(ctx)
	if err := page.Timeout(navigateTimeout).Navigate(target); err != nil {
		return err
	}
	body, err := page.Timeout(bodyTimeout).Element("body")
	if err != nil {
		return fmt.Errorf("body did not appear: %w", err)
	}
	return body.WaitVisible()
}

func (d *rodDriver) HTML() (string, error) {
	return d.page.HTML()
}

func (d *rodDriver) URL() string {
	info, err := d.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Fingerprint joins the normalized text of all selector matches. An empty
// result is valid (the engine treats it as "nothing to compare yet").
func (d *rodDriver) Fingerprint(selector string) (string, error) {
	els, err := d.page.Timeout(queryTimeout).Elements(selector)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(els))
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			continue
		}
		if t := document.Clean(text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// ClickNext reports (false, nil) for every "no more pages" shape: control
// absent, disabled attribute set, or not interactable (covered, zero-sized).
// Only unexpected failures during the click itself become errors.
func (d *rodDriver) ClickNext(selector string) (bool, error) {
	el, err := d.page.Timeout(elementTimeout).Element(selector)
	if err != nil {
		return false, nil
	}

	if v, _ := el.Attribute("disabled"); v != nil {
		return false, nil
	}
	if v, _ := el.Attribute("aria-disabled"); v != nil && *v == "true" {
		return false, nil
	}
	if _, err := el.Interactable(); err != nil {
		return false, nil
	}

	if err := el.ScrollIntoView(); err != nil {
		return false, err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, err
	}
	return true, nil
}

func (d *rodDriver) DetailLinks(selector string, max int) ([]string, error) {
	els, err := d.page.Timeout(queryTimeout).Elements(selector)
	if err != nil {
		return nil, err
	}

	base, _ := url.Parse(d.URL())
	seen := make(map[string]bool)
	var links []string

	for _, el := range els {
		if len(links) >= max {
			break
		}
		href, err := el.Attribute("href")
		if err != nil || href == nil || strings.TrimSpace(*href) == "" {
			continue
		}
		abs := resolveRef(base, strings.TrimSpace(*href))
		if abs == "" || seen[abs] {
			continue
		}
		seen[abs] = true
		links = append(links, abs)
	}
	return links, nil
}

func resolveRef(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
