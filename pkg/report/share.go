package report

import (
	"fmt"
	"html/template"
	"strings"
)

// sharePageTemplate is the OG share page: crawlers read the meta tags,
// humans get an immediate refresh redirect onto the site.
var sharePageTemplate = template.Must(template.New("share").Parse(`<!doctype html>
<html lang="ja">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>CoinRader - 今日の注目 {{.DateDash}}</title>

<meta property="og:type" content="website">
<meta property="og:site_name" content="CoinRader">
<meta property="og:title" content="CoinRader - 今日の注目 {{.DateDash}}">
<meta property="og:description" content="トレンド/上昇率/出来高をひと目で。">
<meta property="og:url" content="{{.ShareURL}}">
<meta property="og:image" content="{{.OGImageURL}}">
<meta property="og:image:width" content="1200">
<meta property="og:image:height" content="630">

<meta name="twitter:card" content="summary_large_image">
<meta name="twitter:title" content="CoinRader - 今日の注目 {{.DateDash}}">
<meta name="twitter:description" content="トレンド/上昇率/出来高をひと目で。">
<meta name="twitter:image" content="{{.OGImageURL}}">

<meta http-equiv="refresh" content="0;url={{.RedirectURL}}">
</head>
<body></body>
</html>
`))

// SharePage is one rendered OG redirect page.
type SharePage struct {
	// Name is the file name under the share directory (YYYYMMDD.html).
	Name string

	// URL is the public URL of the page.
	URL string

	// HTML is the rendered document.
	HTML []byte
}

// BuildSharePage renders the share page for a JST date. baseURL is the
// site origin without a trailing slash; dateCompact is YYYYMMDD and
// dateDash the same date as YYYY-MM-DD.
func BuildSharePage(baseURL, dateCompact, dateDash string) (*SharePage, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	shareURL := fmt.Sprintf("%s/share/%s.html", baseURL, dateCompact)

	var buf strings.Builder
	err := sharePageTemplate.Execute(&buf, map[string]string{
		"DateDash":    dateDash,
		"ShareURL":    shareURL,
		"OGImageURL":  fmt.Sprintf("%s/assets/og/ogp.png?v=%s", baseURL, dateCompact),
		"RedirectURL": fmt.Sprintf("%s/?v=%s", baseURL, dateCompact),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render share page: %w", err)
	}

	return &SharePage{
		Name: dateCompact + ".html",
		URL:  shareURL,
		HTML: []byte(buf.String()),
	}, nil
}
