package fetch

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

// Pre-compiled regular expressions for HTML parsing performance.
var (
	titleTag      = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	h1Tag         = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	metaTag       = regexp.MustCompile(`(?is)<meta[^>]*>`)
	metaAttr      = regexp.MustCompile(`(?is)(name|property|content)\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	scriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag   = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	svgTag        = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	headTag       = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockElements = regexp.MustCompile(`(?i)</?(p|div|br|hr|h[1-6]|li|ul|ol|tr|blockquote|pre|table|section|article|header|footer|nav)[^>]*>`)
	allTags       = regexp.MustCompile(`<[^>]+>`)
	spaceRuns     = regexp.MustCompile(`\s+`)
)

// parseHTML extracts title, meta description and plain text from an HTML
// document. Metadata is read before the head is stripped.
func parseHTML(content, rawURL string) *Page {
	return &Page{
		Title:       extractTitle(content, rawURL),
		Description: extractDescription(content),
		Text:        stripHTML(content),
	}
}

func extractTitle(content, rawURL string) string {
	if t := metaContent(content, "og:title"); t != "" {
		return t
	}
	for _, re := range []*regexp.Regexp{titleTag, h1Tag} {
		if m := re.FindStringSubmatch(content); len(m) > 1 {
			t := strings.TrimSpace(html.UnescapeString(allTags.ReplaceAllString(m[1], "")))
			if t != "" {
				return collapseWhitespace(t)
			}
		}
	}
	return titleFromURL(rawURL)
}

func extractDescription(content string) string {
	if d := metaContent(content, "description"); d != "" {
		return d
	}
	return metaContent(content, "og:description")
}

// metaContent returns the content attribute of the first meta tag whose name
// or property attribute equals key.
func metaContent(content, key string) string {
	for _, tag := range metaTag.FindAllString(content, -1) {
		var matched bool
		var value string
		for _, attr := range metaAttr.FindAllStringSubmatch(tag, -1) {
			val := attr[2]
			if val == "" {
				val = attr[3]
			}
			switch strings.ToLower(attr[1]) {
			case "name", "property":
				if strings.EqualFold(strings.TrimSpace(val), key) {
					matched = true
				}
			case "content":
				value = val
			}
		}
		if matched && value != "" {
			return collapseWhitespace(html.UnescapeString(value))
		}
	}
	return ""
}

func stripHTML(content string) string {
	text := htmlComments.ReplaceAllString(content, "")
	text = scriptTag.ReplaceAllString(text, "")
	text = styleTag.ReplaceAllString(text, "")
	text = noscriptTag.ReplaceAllString(text, "")
	text = svgTag.ReplaceAllString(text, "")
	text = headTag.ReplaceAllString(text, "")
	text = blockElements.ReplaceAllString(text, " ")
	text = allTags.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	return collapseWhitespace(text)
}

func collapseWhitespace(text string) string {
	return strings.TrimSpace(spaceRuns.ReplaceAllString(text, " "))
}

// titleFromURL builds a readable fallback title from the URL path, or the
// host when the path is empty.
func titleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "Untitled"
	}
	path := strings.Trim(u.Path, "/")
	if path != "" {
		if i := strings.LastIndex(path, "."); i > strings.LastIndex(path, "/") {
			path = path[:i]
		}
		path = strings.NewReplacer("-", " ", "_", " ", "/", " ").Replace(path)
		words := strings.Fields(path)
		for i, w := range words {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
		if len(words) > 0 {
			return strings.Join(words, " ")
		}
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if host == "" {
		return "Untitled"
	}
	return host
}
