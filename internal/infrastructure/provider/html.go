package provider

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// fragmentText strips markup from an HTML fragment (Hacker News story_text,
// Reddit selftext_html) and returns the plain text, whitespace-trimmed.
// Unparseable input falls back to the raw string.
func fragmentText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" || !strings.Contains(fragment, "<") {
		return fragment
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.TrimSpace(doc.Text())
}
