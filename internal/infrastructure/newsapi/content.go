package newsapi

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// truncationExpr matches the "… [+1234 chars]" suffix NewsAPI appends to
// content on free plans.
var truncationExpr = regexp.MustCompile(`\s*(…|\.\.\.)?\s*\[\+\d+ chars\]\s*$`)

// plainText reduces an HTML fragment to whitespace-normalised text.
func plainText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if strings.ContainsAny(raw, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
		if err == nil {
			doc.Find("script, style").Remove()
			raw = doc.Text()
		}
	}

	raw = truncationExpr.ReplaceAllString(raw, "")
	return strings.Join(strings.Fields(raw), " ")
}
