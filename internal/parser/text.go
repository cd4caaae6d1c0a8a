package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	priceRe     = regexp.MustCompile(`(?i)([\d.,]+)\s*TL`)
	numberRe    = regexp.MustCompile(`\d+`)
	listingIDRe = regexp.MustCompile(`-(\d{6,})$`)
	parenIntRe  = regexp.MustCompile(`\((\d+)\)`)

	likeRe         = regexp.MustCompile(`(\d+)\s*Beğeni`)
	commentParenRe = regexp.MustCompile(`Yorumlar?\s*\((\d+)\)`)
	commentPlainRe = regexp.MustCompile(`(\d+)\s*Yorum`)
)

// cleanText collapses all whitespace runs to single spaces. Returns ""
// for whitespace-only input; callers treat "" as absent, never as a value.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// firstInt extracts the first integer from text, or nil.
func firstInt(text string) *int {
	m := numberRe.FindString(text)
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &n
}

// parsePriceToken converts a Turkish-formatted amount ("1.299" or "249,50")
// to a float, or nil if it does not parse.
func parsePriceToken(raw string) *float64 {
	normalized := strings.ReplaceAll(raw, ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return nil
	}
	return &v
}

// flattenText renders the document as newline-separated text lines, one per
// text node. Field rules that reason about "lines" or document-order token
// sequences all run over this form. Head content is dropped along with
// scripts and styles: only rendered body text participates, the document
// title has a rule of its own.
func flattenText(doc *goquery.Document) string {
	work := doc.Clone()
	work.Find("head, script, style").Remove()

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := cleanText(n.Data); t != "" {
				b.WriteString(t)
				b.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range work.Nodes {
		walk(n)
	}
	return b.String()
}

func strPtr(s string) *string { return &s }
