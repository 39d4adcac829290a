package ai

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// MaxJobDescriptionChars caps the job text sent to the model.
const MaxJobDescriptionChars = 20000

var htmlTag = regexp.MustCompile(`<[a-zA-Z][a-zA-Z0-9-]*[\s>/]`)

// CleanJobDescription turns a pasted job posting into plain text. HTML input
// is reduced to its visible text; blank lines are dropped and the result is
// capped at MaxJobDescriptionChars.
func CleanJobDescription(s string) string {
	if htmlTag.MatchString(s) {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			doc.Find("script, style, noscript, nav, footer, header").Remove()
			doc.Find("br, p, div, li, h1, h2, h3, h4, h5, h6, tr").Each(func(_ int, sel *goquery.Selection) {
				sel.AppendHtml("\n")
			})
			s = doc.Text()
		}
	}

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			kept = append(kept, l)
		}
	}
	out := strings.Join(kept, "\n")

	return truncateRunes(out, MaxJobDescriptionChars)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
