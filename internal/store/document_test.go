package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-catalog/internal/domain"
)

func TestDocument_RoundTripCatalog(t *testing.T) {
	doc := CatalogDocument(t.TempDir())
	records := []domain.Product{
		{
			ID: "coc_su", Name: "Cốc sứ <Netflix> & bạn", Image: "../assets/coc_su.jpg", QRImage: "../assets/coc_su_qr.webp",
			PriceNow: "199.000đ", PriceOriginal: "250.000đ", Discount: "-20%", BuyLink: "https://shop.example/x?a=1&b=2",
			Description: []string{"Sứ trắng cao cấp", "Dung tích 350ml"},
		},
		{ID: "moc_khoa", Name: "Móc khóa", PriceNow: "49.000đ", BuyLink: "https://shop.example/y", Description: []string{}},
	}

	require.NoError(t, WriteDocument(doc, records))
	loaded, err := LoadDocument[domain.Product](doc.DataPath)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)

	raw, err := os.ReadFile(doc.DataPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Cốc sứ <Netflix> & bạn", "non-ASCII and HTML characters stay verbatim")
	assert.Contains(t, string(raw), "\n    {\n        \"id\": \"coc_su\",", "four-space indentation")
	assert.Contains(t, string(raw), `"description": []`)
}

func TestDocument_RoundTripFeatured(t *testing.T) {
	doc := FeaturedDocument(t.TempDir())
	records := []domain.FeaturedEntry{
		{ID: "a", Name: "Áo", Image: "assets/a.png", PriceNow: "1", BuyLink: "https://shop.example/a"},
		{ID: "b", Name: "Bút", Image: "assets/b.png", PriceNow: "2", PriceOriginal: "3", BuyLink: "https://shop.example/b"},
	}

	require.NoError(t, WriteDocument(doc, records))
	loaded, err := LoadDocument[domain.FeaturedEntry](doc.DataPath)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}

func TestDocument_FieldOrder(t *testing.T) {
	doc := CatalogDocument(t.TempDir())
	require.NoError(t, WriteDocument(doc, []domain.Product{{ID: "x", Name: "X", PriceNow: "1", BuyLink: "l", Description: []string{}}}))

	raw, err := os.ReadFile(doc.DataPath)
	require.NoError(t, err)
	keys := []string{`"id"`, `"name"`, `"image"`, `"qrImage"`, `"priceNow"`, `"priceOriginal"`, `"discount"`, `"buyLink"`, `"description"`}
	last := -1
	for _, k := range keys {
		idx := strings.Index(string(raw), k)
		require.Greater(t, idx, last, "key %s out of order", k)
		last = idx
	}
}

func TestDocument_Mirror(t *testing.T) {
	doc := CatalogDocument(t.TempDir())
	records := []domain.Product{{ID: "x", Name: "Xà phòng", PriceNow: "1", BuyLink: "l", Description: []string{"a"}}}
	require.NoError(t, WriteDocument(doc, records))

	data, err := os.ReadFile(doc.DataPath)
	require.NoError(t, err)
	mirror, err := os.ReadFile(doc.MirrorPath)
	require.NoError(t, err)

	want := "// " + doc.Header + "\nconst productsData = " + strings.TrimRight(string(data), "\n") + ";\n"
	assert.Equal(t, want, string(mirror))
}

func TestDocument_EmptyRecords(t *testing.T) {
	doc := FeaturedDocument(t.TempDir())
	require.NoError(t, WriteDocument[domain.FeaturedEntry](doc, nil))

	data, err := os.ReadFile(doc.DataPath)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))

	mirror, err := os.ReadFile(doc.MirrorPath)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(mirror), "const featuredProductsData = [];\n"))
}

func TestLoadDocument_MissingFile(t *testing.T) {
	records, err := LoadDocument[domain.Product](filepath.Join(t.TempDir(), "products.json"))
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestLoadDocument_OptionalFieldsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"a","name":"A","image":"../assets/a.png","priceNow":"1","buyLink":"l"}]`), 0o644))

	records, err := LoadDocument[domain.Product](path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "", records[0].PriceOriginal)
	assert.Equal(t, "", records[0].Discount)
	assert.Equal(t, "", records[0].QRImage)
}

func TestLoadDocument_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":`), 0o644))

	_, err := LoadDocument[domain.Product](path)
	assert.Error(t, err)
}

func TestRegenerateMirror(t *testing.T) {
	doc := CatalogDocument(t.TempDir())
	records := []domain.Product{{ID: "x", Name: "X", PriceNow: "1", BuyLink: "l", Description: []string{}}}
	require.NoError(t, WriteDocument(doc, records))
	want, err := os.ReadFile(doc.MirrorPath)
	require.NoError(t, err)

	require.NoError(t, os.Remove(doc.MirrorPath))
	require.NoError(t, RegenerateMirror[domain.Product](doc))

	got, err := os.ReadFile(doc.MirrorPath)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestWriteDocument_StaleMirror(t *testing.T) {
	dir := t.TempDir()
	doc := CatalogDocument(dir)
	// A regular file where the mirror directory should be makes the mirror unwritable.
	doc.MirrorPath = filepath.Join(dir, "blocked", "products-data.js")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blocked"), []byte("file"), 0o644))

	err := WriteDocument(doc, []domain.Product{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMirrorStale)

	_, statErr := os.Stat(doc.DataPath)
	assert.NoError(t, statErr, "data file is still written")
}
