package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Listing is the normalized representation of one product detail page.
// Missing fields are nil, never empty strings: absence is semantically
// distinct from "extracted empty". The JSON field names match the dataset
// columns consumed downstream; ParseErrors is diagnostic-only and is never
// serialized.
type Listing struct {
	URL       string  `json:"url"`
	ListingID *string `json:"listing_id"`

	Category    *string `json:"category"`
	Subcategory *string `json:"subcategory"`
	Brand       *string `json:"brand"`
	Title       *string `json:"title"`

	Price         *float64 `json:"price"`
	OriginalPrice *float64 `json:"original_price"`
	HasDiscount   bool     `json:"has_discount"`

	Condition *string `json:"condition"`
	Color     *string `json:"color"`
	Size      *string `json:"size"`

	DescriptionText      *string `json:"description_text"`
	DescriptionLength    int     `json:"description_length"`
	DescriptionWordCount int     `json:"description_word_count"`

	PhotoCount   int  `json:"photo_count"`
	LikeCount    *int `json:"like_count"`
	CommentCount *int `json:"comment_count"`

	ShippingInfo      *string `json:"shipping_info"`
	ShippingBuyerPays bool    `json:"shipping_buyer_pays"`

	SellerUsername     *string `json:"seller_username"`
	SellerListingCount *int    `json:"seller_listing_count"`

	IsSold    bool       `json:"is_sold"`
	ScrapedAt *time.Time `json:"scraped_at,omitempty"`

	ParseErrors []string `json:"-"`
}

// keyFields are the fields whose absence signals a low-quality parse.
var keyFields = []string{"price", "brand", "condition", "seller_username"}

// ParseListing parses a rendered product detail page with the production
// rule vocabulary. See ParseListingWith.
func ParseListing(content, pageURL string) *Listing {
	return ParseListingWith(DefaultRules(), content, pageURL)
}

// ParseListingWith runs the fixed sequence of extraction rules over the
// rendered markup. Every rule is best-effort and isolated: a gap in one
// never blocks another, and a Listing is always returned. Gaps in key
// fields are recorded in ParseErrors rather than raised.
func ParseListingWith(rules Rules, content, pageURL string) *Listing {
	l := &Listing{
		URL:       pageURL,
		ListingID: ExtractListingID(pageURL),
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		l.ParseErrors = append(l.ParseErrors, fmt.Sprintf("unparseable markup: %v", err))
		return l
	}

	text := flattenText(doc)

	// Category/subcategory stay nil: the breadcrumb nav is virtualized
	// client-side and does not survive DOM serialization, so there is no
	// stable markup to extract them from. The key-field check below does
	// not include them.

	l.Brand = parseBrand(doc)
	l.Title = parseTitle(doc, rules)

	current, original := parsePrices(text)
	l.Price = current
	l.OriginalPrice = original
	l.HasDiscount = original != nil && current != nil && *original > *current

	l.Condition = matchVocabulary(text, rules.ConditionLabels)
	l.Color = parseColor(doc, pageURL)
	l.Size = parseSize(text, rules)

	if desc := parseDescription(text, rules); desc != nil {
		l.DescriptionText = desc
		l.DescriptionLength = utf8.RuneCountInString(*desc)
		l.DescriptionWordCount = len(strings.Fields(*desc))
	}

	l.PhotoCount = parsePhotoCount(doc, rules)

	l.LikeCount = matchInt(text, likeRe)
	if c := matchInt(text, commentParenRe); c != nil {
		l.CommentCount = c
	} else {
		l.CommentCount = matchInt(text, commentPlainRe)
	}

	l.ShippingInfo = matchVocabulary(text, rules.ShippingLabels)
	l.ShippingBuyerPays = isBuyerPays(l.ShippingInfo, rules)

	username, listingCount := parseSeller(doc)
	l.SellerUsername = username
	l.SellerListingCount = listingCount

	l.IsSold = detectSold(text, rules)

	var missing []string
	for _, field := range keyFields {
		if l.keyFieldMissing(field) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		l.ParseErrors = append(l.ParseErrors,
			fmt.Sprintf("missing key fields: %s", strings.Join(missing, ", ")))
	}

	return l
}

func (l *Listing) keyFieldMissing(field string) bool {
	switch field {
	case "price":
		return l.Price == nil
	case "brand":
		return l.Brand == nil
	case "condition":
		return l.Condition == nil
	case "seller_username":
		return l.SellerUsername == nil
	}
	return false
}

// parseBrand takes the first short heading: on dolap.com product pages the
// brand name appears as a standalone heading above the price block.
func parseBrand(doc *goquery.Document) *string {
	var brand *string
	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := cleanText(s.Text())
		if text != "" && utf8.RuneCountInString(text) < 50 {
			brand = strPtr(text)
			return false
		}
		return true
	})
	return brand
}

// parseTitle prefers the document title with site suffixes stripped, then
// falls back to the og:title meta tag.
func parseTitle(doc *goquery.Document, rules Rules) *string {
	if text := cleanText(doc.Find("title").First().Text()); text != "" {
		for _, suffix := range rules.TitleSuffixes {
			if strings.HasSuffix(text, suffix) {
				text = strings.TrimSpace(strings.TrimSuffix(text, suffix))
			}
		}
		return strPtr(text)
	}

	if content, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		if text := cleanText(content); text != "" {
			return strPtr(text)
		}
	}

	return nil
}

// parsePrices scans currency-tagged tokens in document order. Two or more
// tokens with the first exceeding the second is a markdown: (original,
// current). Exactly one token is the current price.
func parsePrices(text string) (current, original *float64) {
	var prices []float64
	for _, m := range priceRe.FindAllStringSubmatch(text, -1) {
		if p := parsePriceToken(m[1]); p != nil {
			prices = append(prices, *p)
		}
	}

	switch {
	case len(prices) >= 2 && prices[0] > prices[1]:
		original = &prices[0]
		current = &prices[1]
	case len(prices) >= 1:
		current = &prices[0]
	}
	return current, original
}

// matchVocabulary returns the first label present in the text, or nil.
func matchVocabulary(text string, labels []string) *string {
	for _, label := range labels {
		if strings.Contains(text, label) {
			return strPtr(label)
		}
	}
	return nil
}

// parseColor prefers the alt text of a colour-swatch image; otherwise it
// derives the colour from the URL slug's second hyphen-delimited segment
// (the one after the brand segment). The slug heuristic assumes the
// brand-color-category-condition-user-id segment order and is known to
// misfire on slugs that deviate from it.
func parseColor(doc *goquery.Document, pageURL string) *string {
	var color *string
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		alt, _ := s.Attr("alt")
		if (strings.Contains(src, "colour") || strings.Contains(src, "color")) && alt != "" {
			if text := cleanText(alt); text != "" {
				color = strPtr(text)
				return false
			}
		}
		return true
	})
	if color != nil {
		return color
	}

	if pageURL == "" {
		return nil
	}
	parts := strings.Split(strings.TrimRight(pageURL, "/"), "/")
	slug := parts[len(parts)-1]
	idx := strings.LastIndex(slug, "-")
	if idx < 0 || !isDigits(slug[idx+1:]) {
		return nil
	}
	segments := strings.Split(slug[:idx], "-")
	if len(segments) < 3 {
		return nil
	}
	return strPtr(capitalize(segments[1]))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	r, size := utf8.DecodeRuneInString(lower)
	return strings.ToUpper(string(r)) + lower[size:]
}

// parseSize tries the size-label patterns in order against flattened text.
func parseSize(text string, rules Rules) *string {
	for _, pattern := range rules.SizePatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			if size := cleanText(m[1]); size != "" {
				return strPtr(size)
			}
		}
	}
	return nil
}

// parseDescription returns the first sufficiently long text line that is
// neither boilerplate nor navigation and mentions a product keyword.
func parseDescription(text string, rules Rules) *string {
	for _, line := range strings.Split(text, "\n") {
		line = cleanText(line)
		if line == "" || utf8.RuneCountInString(line) < rules.DescriptionMinLen {
			continue
		}
		if containsAny(line, rules.DescriptionSkip) {
			continue
		}
		if containsAny(strings.ToLower(line), rules.DescriptionKeywords) {
			return strPtr(line)
		}
	}
	return nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// parsePhotoCount counts distinct product image sources; when none match
// the asset naming conventions it falls back to counting images whose alt
// text mentions a category keyword (carousel slides repeat it).
func parsePhotoCount(doc *goquery.Document, rules Rules) int {
	seen := make(map[string]struct{})
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src == "" || !containsAny(src, rules.PhotoSrcMarkers) {
			return
		}
		seen[src] = struct{}{}
	})
	if len(seen) > 0 {
		return len(seen)
	}

	count := 0
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		alt, _ := s.Attr("alt")
		if alt != "" && containsAny(alt, rules.PhotoAltKeywords) {
			count++
		}
	})
	return count
}

func matchInt(text string, re *regexp.Regexp) *int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return firstInt(m[1])
}

// isBuyerPays is a definite boolean: "no shipping info" and "seller pays"
// both yield false, absence is not propagated.
func isBuyerPays(shippingInfo *string, rules Rules) bool {
	if shippingInfo == nil {
		return false
	}
	return containsAny(*shippingInfo, rules.BuyerPaysLabels)
}

// parseSeller extracts the seller username and listing count from the first
// profile-page anchor; the count is the first parenthesized integer in the
// anchor's immediate container.
func parseSeller(doc *goquery.Document) (username *string, listingCount *int) {
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if !strings.Contains(href, "/profil/") {
			return true
		}
		parts := strings.SplitN(strings.TrimRight(href, "/"), "/profil/", 2)
		if len(parts) != 2 || parts[1] == "" {
			return true
		}
		username = strPtr(parts[1])
		if m := parenIntRe.FindStringSubmatch(s.Parent().Text()); m != nil {
			listingCount = firstInt(m[1])
		}
		// First profile link is the product's seller.
		return false
	})
	return username, listingCount
}

func detectSold(text string, rules Rules) bool {
	return containsAny(text, rules.SoldMarkers)
}
