package report

import (
	"strings"
	"testing"
)

func TestBuildSharePage(t *testing.T) {
	page, err := BuildSharePage("https://coinrader.net", "20260830", "2026-08-30")
	if err != nil {
		t.Fatalf("BuildSharePage() error: %v", err)
	}

	if page.Name != "20260830.html" {
		t.Errorf("Name = %q", page.Name)
	}
	if page.URL != "https://coinrader.net/share/20260830.html" {
		t.Errorf("URL = %q", page.URL)
	}

	html := string(page.HTML)
	for _, want := range []string{
		`<title>CoinRader - 今日の注目 2026-08-30</title>`,
		`property="og:url" content="https://coinrader.net/share/20260830.html"`,
		`property="og:image" content="https://coinrader.net/assets/og/ogp.png?v=20260830"`,
		`name="twitter:card" content="summary_large_image"`,
		`http-equiv="refresh" content="0;url=https://coinrader.net/?v=20260830"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("Share page missing %q", want)
		}
	}
}

func TestBuildSharePageTrimsTrailingSlash(t *testing.T) {
	page, err := BuildSharePage("https://coinrader.net/", "20260830", "2026-08-30")
	if err != nil {
		t.Fatalf("BuildSharePage() error: %v", err)
	}
	if strings.Contains(string(page.HTML), "coinrader.net//") {
		t.Error("Expected trailing slash to be trimmed before joining paths")
	}
}
