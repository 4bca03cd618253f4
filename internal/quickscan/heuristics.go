package quickscan

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"harvest/internal/document"
)

// addressPatterns mark a text line as an address candidate: a postal code
// (Singapore six-digit, US zip) or a street-type keyword.
var addressPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Singapore\s+\d{6}`),
	regexp.MustCompile(`\b[A-Z]{2}\s+\d{5}(-\d{4})?\b`),
	regexp.MustCompile(`\b(Street|St\.|Road|Rd\.|Avenue|Ave\.|Lane|Ln\.|Boulevard|Blvd\.|Drive|Dr\.)\b`),
}

// Addresses returns candidate street-address lines: 10 to 100 characters
// long and matching a postal-code or street-keyword pattern, deduplicated in
// document order.
func Addresses(d *document.Doc) []string {
	var out []string
	seen := make(map[string]bool)
	for _, line := range d.TextLines() {
		if len(line) < 10 || len(line) > 100 || seen[line] {
			continue
		}
		for _, p := range addressPatterns {
			if p.MatchString(line) {
				seen[line] = true
				out = append(out, line)
				break
			}
		}
	}
	return out
}

// companyIgnore filters navigation labels that would otherwise slip through
// the suffix check as part of a longer phrase.
var companyIgnore = map[string]bool{
	"home": true, "about": true, "contact": true, "services": true,
	"blog": true, "news": true, "careers": true, "privacy": true,
	"terms": true, "login": true, "sign up": true, "read more": true,
}

// companySuffixes are legal-form and trade suffixes that mark a phrase as a
// probable company name when they end it.
var companySuffixes = []string{
	"inc", "corp", "group", "holdings", "ventures", "capital", "labs",
	"partners", "company", "co",
	"limited", "ltd", "private", "public", "plc", "p.l.c.", "pty", "pte ltd",
	"llc", "l.l.c.", "l.p.", "l.p", "llp", "l.l.p.",
	"partnership", "associates", "sarl", "sa", "ag", "gmbh",
	"consulting", "solutions", "technology", "digital",
}

var companySuffixRes = compileSuffixes()

func compileSuffixes() []*regexp.Regexp {
	variants := make(map[string]bool, len(companySuffixes))
	for _, s := range companySuffixes {
		variants[s] = true
		if strings.Contains(s, ".") {
			variants[strings.ReplaceAll(s, ".", "")] = true
		}
	}
	res := make([]*regexp.Regexp, 0, len(variants))
	for v := range variants {
		res = append(res, regexp.MustCompile(`\s`+regexp.QuoteMeta(v)+`[.\s]?$`))
	}
	return res
}

// CompanyNames returns probable company names: the og:site_name meta plus
// every text line ending in a legal-form suffix, sorted and deduplicated.
func CompanyNames(d *document.Doc) []string {
	set := make(map[string]bool)

	metas, _ := d.Select(`meta[property="og:site_name"]`, document.DialectCSS)
	for _, m := range metas {
		if v, _ := document.Attr(m, "content"); strings.TrimSpace(v) != "" {
			set[strings.TrimSpace(v)] = true
		}
	}

	for _, line := range d.TextLines() {
		if len(line) <= 3 || len(line) >= 80 {
			continue
		}
		lower := strings.ToLower(line)
		if companyIgnore[lower] {
			continue
		}
		for _, re := range companySuffixRes {
			if re.MatchString(lower) {
				set[line] = true
				break
			}
		}
	}

	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Portfolio is one outbound company mention: a short external link followed
// by a descriptive paragraph.
type Portfolio struct {
	Name        string
	URL         string
	Description string
}

// PortfolioBlocks finds award/portfolio style blocks: an external link with
// short anchor text whose next paragraph in document order carries a
// meaningful description. Internal links and bare link lists are skipped.
func PortfolioBlocks(d *document.Doc) []Portfolio {
	host := hostOf(d.URL())
	var out []Portfolio
	seen := make(map[string]bool)

	anchors, _ := d.Select("a[href]", document.DialectCSS)
	for _, a := range anchors {
		raw, _ := document.Attr(a, "href")
		abs := d.ResolveURL(raw)
		if !strings.HasPrefix(abs, "http://") && !strings.HasPrefix(abs, "https://") {
			continue
		}
		if host != "" && hostOf(abs) == host {
			continue
		}

		name := document.Text(a)
		if name == "" || len(name) > 50 || seen[abs] {
			continue
		}

		desc := followingParagraph(a)
		if len(desc) <= 10 {
			continue
		}
		if r := []rune(desc); len(r) > 200 {
			desc = string(r[:200]) + "..."
		}

		seen[abs] = true
		out = append(out, Portfolio{Name: name, URL: abs, Description: desc})
	}
	return out
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// followingParagraph returns the text of the first <p> after n in document
// order.
func followingParagraph(n *html.Node) string {
	for cur := nextNode(n); cur != nil; cur = nextNode(cur) {
		if cur.Type == html.ElementNode && cur.Data == "p" {
			return document.Text(cur)
		}
	}
	return ""
}

// nextNode is the preorder successor of n.
func nextNode(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for ; n != nil; n = n.Parent {
		if n.NextSibling != nil {
			return n.NextSibling
		}
	}
	return nil
}
