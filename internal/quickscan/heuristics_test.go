package quickscan

import (
	"reflect"
	"strings"
	"testing"
)

func TestAddresses(t *testing.T) {
	t.Parallel()

	d := parseDoc(t, `<html><body>
		<p>1 Commerce Street, Springfield</p>
		<p>10 Anson Road, Singapore 079903</p>
		<p>New York, NY 10001</p>
		<p>Main St.</p>
		<p>`+strings.Repeat("Avenue of the Americas ", 10)+`</p>
		<p>Our team loves long walks.</p>
	</body></html>`)

	got := Addresses(d)
	want := []string{
		"1 Commerce Street, Springfield",
		"10 Anson Road, Singapore 079903",
		"New York, NY 10001",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Addresses = %v, want %v", got, want)
	}
}

// TestCompanyNames verifies the suffix heuristic plus the og:site_name meta,
// with navigation labels and suffix-less phrases excluded.
func TestCompanyNames(t *testing.T) {
	t.Parallel()

	d := parseDoc(t, `<html><head>
		<meta property="og:site_name" content="Example Site">
	</head><body>
		<h1>Acme Holdings</h1>
		<li>Beta Pte Ltd</li>
		<li>About</li>
		<li>Consulting</li>
		<p>We build widgets for everyone.</p>
	</body></html>`)

	got := CompanyNames(d)
	want := []string{"Acme Holdings", "Beta Pte Ltd", "Example Site"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CompanyNames = %v, want %v", got, want)
	}
}

func TestPortfolioBlocks(t *testing.T) {
	t.Parallel()

	d := parseDoc(t, `<html><body>
		<div>
			<h3>Award 2024</h3>
			<a href="https://startup.example/">Startup One</a>
			<p>Builds industrial widget platforms for logistics teams.</p>
		</div>
		<div>
			<a href="/about">About us</a>
			<p>Internal page description that is long enough to count.</p>
		</div>
		<a href="https://nodesc.example/">No Description</a>
	</body></html>`)

	got := PortfolioBlocks(d)
	want := []Portfolio{{
		Name:        "Startup One",
		URL:         "https://startup.example/",
		Description: "Builds industrial widget platforms for logistics teams.",
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("PortfolioBlocks = %v, want %v", got, want)
	}
}

// TestPortfolioBlocks_TruncatesDescription verifies long descriptions are
// cut to a snippet.
func TestPortfolioBlocks_TruncatesDescription(t *testing.T) {
	t.Parallel()

	d := parseDoc(t, `<html><body>
		<a href="https://startup.example/">Startup One</a>
		<p>`+strings.Repeat("very long description ", 20)+`</p>
	</body></html>`)

	got := PortfolioBlocks(d)
	if len(got) != 1 {
		t.Fatalf("expected 1 block, got %d", len(got))
	}
	if !strings.HasSuffix(got[0].Description, "...") {
		t.Fatalf("description not truncated: %q", got[0].Description)
	}
	if n := len([]rune(got[0].Description)); n != 203 {
		t.Fatalf("snippet length = %d, want 203", n)
	}
}
