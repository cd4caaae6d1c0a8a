package parser

import "regexp"

// Rules carries the site vocabularies the field extractor matches against.
// The production values in DefaultRules target dolap.com's Turkish markup;
// tests inject synthetic rule sets.
type Rules struct {
	// ConditionLabels are checked in order, most specific first, so that
	// e.g. "Yeni ve Etiketli" wins over its substring "Yeni".
	ConditionLabels []string

	// SizePatterns are tried in order against the flattened page text;
	// the first capture group of the first match is the size.
	SizePatterns []*regexp.Regexp

	// Description extraction: lines shorter than DescriptionMinLen runes
	// are skipped, lines containing any DescriptionSkip phrase are
	// skipped, and the first remaining line containing a
	// DescriptionKeywords entry (lowercase match) is the description.
	DescriptionMinLen   int
	DescriptionSkip     []string
	DescriptionKeywords []string

	// ShippingLabels are checked in order; BuyerPaysLabels is the subset
	// that makes shipping_buyer_pays true.
	ShippingLabels  []string
	BuyerPaysLabels []string

	// SoldMarkers flag a listing as sold when present anywhere in the text.
	SoldMarkers []string

	// TitleSuffixes are site-name suffixes stripped from the document title.
	TitleSuffixes []string

	// PhotoSrcMarkers identify product image sources; PhotoAltKeywords is
	// the alt-text fallback when no source matches.
	PhotoSrcMarkers  []string
	PhotoAltKeywords []string
}

// DefaultRules returns the production vocabulary for dolap.com.
func DefaultRules() Rules {
	return Rules{
		ConditionLabels: []string{
			"Yeni ve Etiketli",
			"Yeni & Etiketli",
			"Yeni",
			"Az Kullanılmış",
			"Çok Kullanılmış",
			"Kullanılmış",
			"Defolu",
		},
		SizePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)Beden[:\s]+([A-Z0-9/\s]+)`),
			regexp.MustCompile(`(?i)(\d{1,2}XL\s*/\s*\d{2})`),
			regexp.MustCompile(`(?i)Beden\s*:\s*(\S+)`),
		},
		DescriptionMinLen: 20,
		DescriptionSkip: []string{
			"KATEGORİLER", "BENZER ÜRÜNLER", "Popüler Aramalar",
			"Dolap Hakkında", "Kol Çantası", "Kategoriler",
			"Tanımlama bilgilerini", "Ödeme Seçenekleri",
			"Yorum Yayınlanma", "PAYLAŞ", "Dolap Avantajları",
		},
		DescriptionKeywords: []string{
			"kılıf", "elbise", "kazak", "mont", "pantolon", "ayakkabı",
			"çanta", "gömlek", "etek", "tshirt", "bot", "çizme",
			"kullanılmamış", "sıfır", "orjinal", "modelleri", "mevcut",
			"renk", "beden", "kargo", "yeni", "tertemiz",
		},
		ShippingLabels: []string{
			"Alıcı Ödemeli Kargo",
			"Alıcı Öder",
			"Ücretsiz Kargo",
			"Satıcı Öder",
			"Kargo Dahil",
		},
		BuyerPaysLabels: []string{
			"Alıcı Ödemeli",
			"Alıcı Öder",
		},
		SoldMarkers: []string{
			"Satıldı",
			"Bu ürün satılmıştır",
			"SATILDI",
			"sold",
		},
		TitleSuffixes: []string{
			" - Dolap.com",
			" | Dolap",
			" - dolap.com",
		},
		PhotoSrcMarkers:  []string{"product", "dlp_", "dsmcdn"},
		PhotoAltKeywords: []string{"Telefon", "Kazak", "Elbise"},
	}
}
