package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DetailPathMarker is the path convention of product detail pages.
const DetailPathMarker = "/urun/"

// ExtractListingURLs extracts product detail URLs from a rendered category,
// search or profile page. Absolute URLs are normalized to path-only form;
// the result is deduplicated preserving first-seen order. Deterministic:
// the same markup always yields the same sequence.
func ExtractListingURLs(content string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	urls := []string{}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !strings.Contains(href, DetailPathMarker) {
			return
		}
		if strings.HasPrefix(href, "http") {
			parsed, err := url.Parse(href)
			if err != nil {
				return
			}
			href = parsed.Path
		}
		if _, ok := seen[href]; ok {
			return
		}
		seen[href] = struct{}{}
		urls = append(urls, href)
	})

	return urls
}

// ExtractListingID pulls the trailing numeric id from a product URL slug:
//
//	/urun/apple-bej-telefon-kilifi-yeni-etiketli-iphonelcase-442885461 -> "442885461"
//
// Returns nil when the slug does not end in a run of at least six digits.
func ExtractListingID(rawURL string) *string {
	m := listingIDRe.FindStringSubmatch(strings.TrimRight(rawURL, "/"))
	if m == nil {
		return nil
	}
	return strPtr(m[1])
}
