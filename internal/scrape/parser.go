package scrape

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// displayURLPattern matches the inline JSON field embedded in image pages.
// The captured value is still JSON-escaped.
var displayURLPattern = regexp.MustCompile(`"display_url"\s*:\s*"((?:[^"\\]|\\.)+)"`)

// parseOGImage returns the first og:image meta content. goquery decodes
// HTML entities in attribute values.
func parseOGImage(doc *goquery.Document) string {
	var found string
	doc.Find(`meta[property="og:image"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if content == "" {
			return true
		}
		found = content
		return false
	})
	return found
}

// parseDisplayURL extracts and unescapes the inline display_url value.
func parseDisplayURL(body []byte) string {
	m := displayURLPattern.FindSubmatch(body)
	if m == nil {
		return ""
	}

	var unescaped string
	if err := json.Unmarshal([]byte(`"`+string(m[1])+`"`), &unescaped); err != nil {
		// Not valid JSON escaping; undo the common case by hand.
		return strings.ReplaceAll(string(m[1]), `\u0026`, "&")
	}
	return unescaped
}
