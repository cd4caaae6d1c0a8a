package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractListingURLs(t *testing.T) {
	content := `
	<html><body>
		<a href="/urun/zara-bej-kazak-orta-ayse-442885461">Kazak</a>
		<a href="https://dolap.com/urun/mango-siyah-elbise-yeni-kisi-512345678">Elbise</a>
		<a href="/urun/zara-bej-kazak-orta-ayse-442885461">Kazak (tekrar)</a>
		<a href="/profil/ayse">ayse</a>
		<a href="/kazak?sayfa=2">Sonraki</a>
	</body></html>`

	urls := ExtractListingURLs(content)

	assert.Equal(t, []string{
		"/urun/zara-bej-kazak-orta-ayse-442885461",
		"/urun/mango-siyah-elbise-yeni-kisi-512345678",
	}, urls)
}

func TestExtractListingURLs_Idempotent(t *testing.T) {
	content := `<a href="/urun/koton-mavi-gomlek-az-mehmet-998877665">Gömlek</a>`

	first := ExtractListingURLs(content)
	second := ExtractListingURLs(content)

	assert.Equal(t, first, second)
	assert.Len(t, first, 1)
}

func TestExtractListingURLs_Empty(t *testing.T) {
	urls := ExtractListingURLs(`<html><body><a href="/profil/ali">ali</a></body></html>`)

	assert.NotNil(t, urls)
	assert.Empty(t, urls)
}

func TestExtractListingID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want *string
	}{
		{
			name: "trailing numeric id",
			url:  "/urun/apple-bej-case-yeni-442885461",
			want: strPtr("442885461"),
		},
		{
			name: "trailing slash",
			url:  "/urun/apple-bej-case-yeni-442885461/",
			want: strPtr("442885461"),
		},
		{
			name: "absolute url",
			url:  "https://dolap.com/urun/apple-bej-case-yeni-442885461",
			want: strPtr("442885461"),
		},
		{
			name: "no id segment",
			url:  "/urun/no-id-here",
			want: nil,
		},
		{
			name: "id too short",
			url:  "/urun/zara-kazak-12345",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractListingID(tt.url)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				assert.NotNil(t, got)
				assert.Equal(t, *tt.want, *got)
			}
		})
	}
}
