package moderation

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// IsHTML reports whether contentType names HTML content.
func IsHTML(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return ct == "html" || strings.HasPrefix(ct, "text/html")
}

// PlainText reduces an HTML fragment to its visible text. Scripts and
// styles are dropped; link targets are kept so URL-based rules still see
// them.
func PlainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && strings.TrimSpace(href) != "" {
			hrefs = append(hrefs, strings.TrimSpace(href))
		}
	})

	text := strings.Join(strings.Fields(doc.Text()), " ")
	if len(hrefs) > 0 {
		text = strings.TrimSpace(text + " " + strings.Join(hrefs, " "))
	}
	return text, nil
}
