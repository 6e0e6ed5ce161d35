package normalize

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbsoluteImageURL(t *testing.T) {
	base, err := url.Parse("https://shop.example.com/products/coat")
	require.NoError(t, err)

	tests := []struct {
		name     string
		ref      string
		expected string
	}{
		{"absolute passes through", "https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"relative resolves against base", "/media/a.jpg", "https://shop.example.com/media/a.jpg"},
		{"protocol-relative upgrades to https", "//cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"fragment stripped", "https://cdn.example.com/a.jpg#zoom", "https://cdn.example.com/a.jpg"},
		{"data URI rejected", "data:image/png;base64,xyz", ""},
		{"empty rejected", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AbsoluteImageURL(base, tt.ref))
		})
	}
}

func TestDedupImages(t *testing.T) {
	urls := []string{
		"https://cdn.example.com/a.jpg",
		"http://cdn.example.com/a.jpg",
		"//cdn.example.com/a.jpg",
		"https://cdn.example.com/A.JPG",
		"https://cdn.example.com/b.jpg",
		"",
		"https://cdn.example.com/c.jpg",
	}

	deduped := DedupImages(urls, 0)
	assert.Equal(t, []string{
		"https://cdn.example.com/a.jpg",
		"https://cdn.example.com/b.jpg",
		"https://cdn.example.com/c.jpg",
	}, deduped)

	capped := DedupImages(urls, 2)
	assert.Len(t, capped, 2)
}

func TestApplyDomainTransforms(t *testing.T) {
	urls := []string{
		"https://cdn.shopify.com/s/files/1/coat_small.jpg",
		"https://m.media-amazon.com/images/I/81abc._AC_SX569_.jpg",
		"https://cdn.other.com/a.jpg",
	}

	out := ApplyDomainTransforms(urls)
	assert.Equal(t, "https://cdn.shopify.com/s/files/1/coat_2048x2048.jpg", out[0])
	assert.Equal(t, "https://m.media-amazon.com/images/I/81abc.jpg", out[1])
	assert.Equal(t, "https://cdn.other.com/a.jpg", out[2])
}

func TestUpgradeSizeParams(t *testing.T) {
	assert.Equal(t,
		"https://cdn.example.com/a.jpg?width=1920",
		UpgradeSizeParams("https://cdn.example.com/a.jpg?width=300"))
	assert.Equal(t,
		"https://cdn.example.com/a.jpg",
		UpgradeSizeParams("https://cdn.example.com/a.jpg"))
}

func TestLooksLikeImageURL(t *testing.T) {
	assert.True(t, LooksLikeImageURL("https://x/a.jpg"))
	assert.True(t, LooksLikeImageURL("https://x/a.webp?v=2"))
	assert.True(t, LooksLikeImageURL("https://images.example.com/products/1?format=jpg"))
	assert.False(t, LooksLikeImageURL("https://x/script.js"))
	assert.False(t, LooksLikeImageURL(""))
}

func TestDomain(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://www.zalando.de/coat-123.html", "zalando.de"},
		{"https://shop.nike.com/p/1", "nike.com"},
		{"https://www.example.co.uk/p", "example.co.uk"},
		{"https://shop.example.co.uk/p", "example.co.uk"},
		{"not a url", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Domain(tt.url), tt.url)
	}
}
