package report

import (
	"strings"
	"testing"
)

func TestFormatRankedSlash(t *testing.T) {
	got := FormatRankedSlash([]string{"PEPE", "SUI", "SEI"})
	want := "1\ufe0f\u20e3 PEPE / 2\ufe0f\u20e3 SUI / 3\ufe0f\u20e3 SEI"
	if got != want {
		t.Errorf("FormatRankedSlash() = %q, want %q", got, want)
	}
}

func TestFormatRankedPipes(t *testing.T) {
	got := FormatRankedPipes([]string{"SOL +12.3%", "DOGE +8.7%"})
	want := "1\ufe0f\u20e3 SOL +12.3% | 2\ufe0f\u20e3 DOGE +8.7%"
	if got != want {
		t.Errorf("FormatRankedPipes() = %q, want %q", got, want)
	}
}

func TestFormatRankedBeyondEmoji(t *testing.T) {
	items := []string{"A", "B", "C", "D", "E", "F", "G"}
	got := FormatRankedSlash(items)
	if !strings.Contains(got, "6. F") || !strings.Contains(got, "7. G") {
		t.Errorf("Expected numeric markers past the fifth entry, got %q", got)
	}
}

func TestFormatRankedEmpty(t *testing.T) {
	if got := FormatRankedSlash(nil); got != "" {
		t.Errorf("FormatRankedSlash(nil) = %q, want empty", got)
	}
}

func TestRenderDailyPost(t *testing.T) {
	post := RenderDailyPost(DailyPostInput{
		DateDash:  "2026-08-30",
		Trending:  []string{"PEPE", "SUI"},
		Gainers:   []string{"SOL +12.3%"},
		VolumeAlt: []string{"SOL", "XRP"},
		Link:      "https://coinrader.net/share/20260830.html",
	})

	lines := strings.Split(post, "\n")
	if len(lines) != 5 {
		t.Fatalf("Expected 5 lines, got %d:\n%s", len(lines), post)
	}
	if lines[0] != "【今日の注目 2026-08-30】" {
		t.Errorf("Header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Trend:") || !strings.Contains(lines[1], "PEPE") {
		t.Errorf("Trend line = %q", lines[1])
	}
	if !strings.Contains(lines[2], "Up(24h):") || !strings.Contains(lines[2], "SOL +12.3%") {
		t.Errorf("Up line = %q", lines[2])
	}
	if !strings.Contains(lines[3], "Vol(アルト):") {
		t.Errorf("Vol line = %q", lines[3])
	}
	if !strings.Contains(lines[4], "https://coinrader.net/share/20260830.html") ||
		!strings.Contains(lines[4], "#暗号資産") {
		t.Errorf("Link line = %q", lines[4])
	}
}
