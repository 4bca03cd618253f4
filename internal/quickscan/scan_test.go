package quickscan

import (
	"encoding/base64"
	"encoding/json"
	"reflect"
	"testing"

	"harvest/internal/document"
)

func parseDoc(t *testing.T, markup string) *document.Doc {
	t.Helper()
	d, err := document.Parse(markup, "https://example.com/contact")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return d
}

func TestEmails(t *testing.T) {
	t.Parallel()

	d := parseDoc(t, `<html><body>
		<a href="mailto:Sales@Example.com?subject=hi">Write us</a>
		<p>Support: support@example.com or sales@example.com</p>
	</body></html>`)

	got := Emails(d)
	want := []string{"sales@example.com", "support@example.com"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Emails = %v, want %v", got, want)
	}
}

// TestEmails_ObfuscatedScript verifies the inline-script decoder feeds the
// scan: a ROT13 payload with a directive token in an email class.
func TestEmails_ObfuscatedScript(t *testing.T) {
	t.Parallel()

	dir := b64JSON(t, map[string]string{"rot": "it"})
	d := parseDoc(t, `<html><body>
		<script>var a='zr@rknzcyr.pbz'; document.write('<span class="email `+dir+`"></span>');</script>
	</body></html>`)

	got := Emails(d)
	if !reflect.DeepEqual(got, []string{"me@example.com"}) {
		t.Fatalf("Emails = %v", got)
	}
}

func TestDecodeScriptEmail(t *testing.T) {
	t.Parallel()

	rmv := b64JSON(t, map[string]string{"rmv": "+NOISE"})
	sub := b64JSON(t, map[string]string{"h": "q"})

	cases := []struct {
		name   string
		script string
		want   string
	}{
		{"no payload", `console.log("nothing")`, ""},
		{"entity encoded", `var a='me&#64;example.com';`, "me@example.com"},
		{"mailto stripped", `var a='mailto:me@example.com';`, "me@example.com"},
		{"removal directive", `var a='me+NOISE@example.com'; <i class="email ` + rmv + `"></i>`, "me@example.com"},
		{"substitution directive", `var a='qi@example.org'; <i class="emailLink ` + sub + `"></i>`, "hi@example.org"},
		{"directive outside email class ignored", `var a='mx@example.com'; <i class="btn ` + rmv + `"></i>`, "mx@example.com"},
		{"invalid after decode", `var a='not-an-email';`, ""},
	}
	for _, c := range cases {
		if got := decodeScriptEmail(c.script); got != c.want {
			t.Fatalf("%s: got %q, want %q", c.name, got, c.want)
		}
	}
}

func TestPhones(t *testing.T) {
	t.Parallel()

	d := parseDoc(t, `<html><body>
		<a href="tel:+1 (555) 010-7788">Call</a>
		<p>Office: 020 7946 0123. Founded 2019, price 12.99.</p>
	</body></html>`)

	got := Phones(d)
	want := []string{"+1 (555) 010-7788", "020 7946 0123"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Phones = %v, want %v", got, want)
	}
}

func TestSocials(t *testing.T) {
	t.Parallel()

	d := parseDoc(t, `<html><body>
		<a href="https://www.linkedin.com/company/acme">LinkedIn</a>
		<a href="https://x.com/acme">X</a>
		<a href="https://example.com/about">About</a>
	</body></html>`)

	got := Socials(d)
	want := []Social{
		{Network: "linkedin", URL: "https://www.linkedin.com/company/acme"},
		{Network: "twitter", URL: "https://x.com/acme"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Socials = %v, want %v", got, want)
	}
}

// TestLinksAndImages verifies relative references resolve against the page
// URL and non-http schemes are dropped.
func TestLinksAndImages(t *testing.T) {
	t.Parallel()

	d := parseDoc(t, `<html><body>
		<a href="/about">About</a>
		<a href="https://other.example/x">Other</a>
		<a href="javascript:void(0)">Noop</a>
		<a href="/about">About again</a>
		<img src="/logo.png"><img src="data:image/png;base64,xx">
	</body></html>`)

	links := Links(d)
	wantLinks := []string{"https://example.com/about", "https://other.example/x"}
	if !reflect.DeepEqual(links, wantLinks) {
		t.Fatalf("Links = %v, want %v", links, wantLinks)
	}

	images := Images(d)
	if !reflect.DeepEqual(images, []string{"https://example.com/logo.png"}) {
		t.Fatalf("Images = %v", images)
	}
}

func TestMetadata(t *testing.T) {
	t.Parallel()

	d := parseDoc(t, `<html><head>
		<title>Acme Corp</title>
		<meta name="description" content="Industrial widgets">
		<meta property="og:type" content="website">
		<meta name="empty" content="">
	</head><body></body></html>`)

	got := Metadata(d)
	want := []Meta{
		{Name: "title", Content: "Acme Corp"},
		{Name: "description", Content: "Industrial widgets"},
		{Name: "og:type", Content: "website"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Metadata = %v, want %v", got, want)
	}
}

func b64JSON(t *testing.T, obj map[string]string) string {
	t.Helper()
	b, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return base64.StdEncoding.EncodeToString(b)
}
