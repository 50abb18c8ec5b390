package crawler

import (
	"net/url"
	"strings"
)

// Page furniture whose links are not part of the article prose
var excludedAncestors = strings.Join([]string{
	".navbox",
	".vertical-navbox",
	".infobox",
	".thumb",
	".thumbinner",
	".metadata",
	".mbox-small",
	".hatnote",
	".shortdescription",
	".reflist",
	".noprint",
	".sidebar-content",
	".toc",
	".thumbcaption",
	".wikitable",
}, ", ")

const articlePrefix = "/wiki/"

// ArticleTitle extracts the decoded article title from an internal link
// Example: /wiki/Go_(programming_language)#History -> Go_(programming_language)
// Titles are percent-decoded with spaces as underscores, the same form
// NormalizeTitle produces. Links into other namespaces (File:, Help:,
// Special:...) are rejected.
func ArticleTitle(href string) (string, bool) {
	if !strings.HasPrefix(href, articlePrefix) {
		return "", false
	}

	raw := strings.TrimPrefix(href, articlePrefix)
	if i := strings.IndexAny(raw, "#?"); i >= 0 {
		raw = raw[:i]
	}
	title, err := url.PathUnescape(raw)
	if err != nil {
		return "", false
	}

	title = strings.ReplaceAll(title, " ", "_")
	if title == "" || strings.Contains(title, ":") {
		return "", false
	}
	return title, true
}

// FilterLinks keeps article links, deduplicated in first-seen order
func FilterLinks(hrefs []string) []string {
	seen := make(map[string]bool)
	var filtered []string

	for _, href := range hrefs {
		title, ok := ArticleTitle(strings.TrimSpace(href))
		if !ok || seen[title] {
			continue
		}
		seen[title] = true
		filtered = append(filtered, title)
	}

	return filtered
}

// TitleFromURL extracts the article title from an absolute page URL
func TitleFromURL(u *url.URL) (string, bool) {
	if u == nil {
		return "", false
	}
	return ArticleTitle(u.EscapedPath())
}

// articleURL builds the escaped page URL for a decoded title
func articleURL(baseURL, title string) string {
	u := url.URL{Path: articlePrefix + title}
	return strings.TrimRight(baseURL, "/") + u.EscapedPath()
}

// NormalizeTitle turns a title as typed by a user, a link path, or a full
// article URL into the canonical stored form
// Example: "Ender's Game" and /wiki/Ender%27s_Game -> Ender's_Game
func NormalizeTitle(input string) string {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		if u, err := url.Parse(input); err == nil {
			if title, ok := TitleFromURL(u); ok {
				return title
			}
		}
	}
	if strings.HasPrefix(input, articlePrefix) {
		if title, ok := ArticleTitle(input); ok {
			return title
		}
	}

	// Typed titles may contain a literal '%', keep them as they are
	if decoded, err := url.PathUnescape(input); err == nil {
		input = decoded
	}
	return strings.ReplaceAll(strings.TrimSpace(input), " ", "_")
}
