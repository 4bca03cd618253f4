// Package quickscan extracts common single-purpose signals (contact
// addresses, social profiles, links, images, page metadata, HTML tables,
// company names, portfolio blocks) from a parsed document, without any
// rule set.
package quickscan

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"harvest/internal/document"
)

var (
	reEmailScan = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	rePhoneScan = regexp.MustCompile(`\+?\d[\d\s().\-]{6,}\d`)
)

// socialHosts maps a host fragment to the network name reported in results.
var socialHosts = []struct{ fragment, network string }{
	{"facebook.com", "facebook"},
	{"instagram.com", "instagram"},
	{"linkedin.com", "linkedin"},
	{"twitter.com", "twitter"},
	{"x.com", "twitter"},
	{"youtube.com", "youtube"},
	{"tiktok.com", "tiktok"},
}

// Emails collects addresses from mailto links, visible text, and inline
// obfuscation scripts, deduplicated in first-seen order.
func Emails(d *document.Doc) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	anchors, _ := d.Select(`a[href^="mailto:"]`, document.DialectCSS)
	for _, a := range anchors {
		href, _ := document.Attr(a, "href")
		addr := strings.TrimPrefix(href, "mailto:")
		// Strip ?subject=... style suffixes.
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		if reEmailScan.MatchString(addr) {
			add(addr)
		}
	}

	for _, m := range reEmailScan.FindAllString(d.PlainText(), -1) {
		add(m)
	}

	scripts, _ := d.Select("script", document.DialectCSS)
	for _, s := range scripts {
		if addr := decodeScriptEmail(rawText(s)); addr != "" {
			add(addr)
		}
	}
	return out
}

// Phones collects phone numbers from tel links and visible text. Candidates
// must carry 7 to 15 digits, which filters out prices, years, and IDs that
// the loose scan regex also matches.
func Phones(d *document.Doc) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		n := digitCount(s)
		if n < 7 || n > 15 || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	anchors, _ := d.Select(`a[href^="tel:"]`, document.DialectCSS)
	for _, a := range anchors {
		href, _ := document.Attr(a, "href")
		add(strings.TrimPrefix(href, "tel:"))
	}

	for _, m := range rePhoneScan.FindAllString(d.PlainText(), -1) {
		add(m)
	}
	return out
}

// Social is one discovered profile link.
type Social struct {
	Network string
	URL     string
}

// Socials collects links pointing at known social networks.
func Socials(d *document.Doc) []Social {
	var out []Social
	seen := make(map[string]bool)

	for _, href := range Links(d) {
		lower := strings.ToLower(href)
		for _, sh := range socialHosts {
			if !strings.Contains(lower, sh.fragment) {
				continue
			}
			if seen[href] {
				break
			}
			seen[href] = true
			out = append(out, Social{Network: sh.network, URL: href})
			break
		}
	}
	return out
}

// Links returns every absolute http(s) anchor target, deduplicated in
// document order.
func Links(d *document.Doc) []string {
	return collectRefs(d, "a[href]", "href")
}

// Images returns every absolute image source, deduplicated in document order.
func Images(d *document.Doc) []string {
	return collectRefs(d, "img[src]", "src")
}

func collectRefs(d *document.Doc, query, attr string) []string {
	nodes, _ := d.Select(query, document.DialectCSS)
	var out []string
	seen := make(map[string]bool)
	for _, n := range nodes {
		raw, _ := document.Attr(n, attr)
		abs := d.ResolveURL(raw)
		if !strings.HasPrefix(abs, "http://") && !strings.HasPrefix(abs, "https://") {
			continue
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		out = append(out, abs)
	}
	return out
}

// Meta is one page-metadata entry.
type Meta struct {
	Name    string
	Content string
}

// Metadata returns the page title followed by every named meta tag, in
// document order. Both name= and property= (Open Graph) metas are included.
func Metadata(d *document.Doc) []Meta {
	var out []Meta

	titles, _ := d.Select("title", document.DialectCSS)
	if len(titles) > 0 {
		if t := document.Text(titles[0]); t != "" {
			out = append(out, Meta{Name: "title", Content: t})
		}
	}

	metas, _ := d.Select("meta", document.DialectCSS)
	for _, m := range metas {
		name, ok := document.Attr(m, "name")
		if !ok || name == "" {
			name, _ = document.Attr(m, "property")
		}
		content, _ := document.Attr(m, "content")
		name = strings.TrimSpace(name)
		content = strings.TrimSpace(content)
		if name == "" || content == "" {
			continue
		}
		out = append(out, Meta{Name: name, Content: content})
	}
	return out
}

// rawText concatenates the direct text children of n. Unlike document.Text
// it does not skip script content, which is exactly what the email decoder
// needs.
func rawText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
