package report

import (
	"fmt"
	"strings"
)

// rankEmoji are the keycap markers for ranked list entries; entries
// beyond the fifth fall back to "N.".
var rankEmoji = []string{
	"1️⃣",
	"2️⃣",
	"3️⃣",
	"4️⃣",
	"5️⃣",
}

// Section markers for the daily post lines.
const (
	fireEmoji   = "\U0001F525" // Trend
	rocketEmoji = "\U0001F680" // Up(24h)
	chartEmoji  = "\U0001F4CA" // Vol
)

// rankMarker returns the marker for a zero-based rank.
func rankMarker(i int) string {
	if i < len(rankEmoji) {
		return rankEmoji[i]
	}
	return fmt.Sprintf("%d.", i+1)
}

// FormatRankedSlash joins items as "1. a / 2. b" with keycap markers.
func FormatRankedSlash(items []string) string {
	return formatRanked(items, " / ")
}

// FormatRankedPipes joins items as "1. a | 2. b" with keycap markers.
func FormatRankedPipes(items []string) string {
	return formatRanked(items, " | ")
}

func formatRanked(items []string, sep string) string {
	out := make([]string, 0, len(items))
	for i, item := range items {
		out = append(out, rankMarker(i)+" "+item)
	}
	return strings.Join(out, sep)
}

// DailyPostInput carries one day's ranked lists for the post.
type DailyPostInput struct {
	// DateDash is the JST date as YYYY-MM-DD.
	DateDash string

	// Trending, Gainers, and VolumeAlt are the ranked display entries.
	Trending  []string
	Gainers   []string
	VolumeAlt []string

	// Link is the URL the post points at: the share page, or the site
	// root when share URLs are disabled.
	Link string
}

// RenderDailyPost renders the daily social post text. The copy matches
// the published posts, tag included.
func RenderDailyPost(in DailyPostInput) string {
	lines := []string{
		fmt.Sprintf("【今日の注目 %s】", in.DateDash),
		fmt.Sprintf("%sTrend: %s", fireEmoji, FormatRankedSlash(in.Trending)),
		fmt.Sprintf("%sUp(24h): %s", rocketEmoji, FormatRankedPipes(in.Gainers)),
		fmt.Sprintf("%sVol(アルト): %s", chartEmoji, FormatRankedSlash(in.VolumeAlt)),
		fmt.Sprintf("→ %s #暗号資産", in.Link),
	}
	return strings.Join(lines, "\n")
}
