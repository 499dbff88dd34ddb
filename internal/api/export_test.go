package api

import (
	"encoding/csv"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-catalog/internal/domain"
)

func TestHTTPHandler_ExportProductsCSV(t *testing.T) {
	mockCatalog := new(MockCatalogStorer)
	server := setupTestChiServer(t, mockCatalog, nil)
	defer server.Close()

	mockCatalog.On("List").Return([]domain.Product{
		{
			ID: "coc_su", Name: "Cốc sứ, trắng", Image: "../assets/coc_su.jpg", QRImage: "../assets/coc_su_qr.webp",
			PriceNow: "199.000đ", PriceOriginal: "250.000đ", Discount: "-20%", BuyLink: "https://shop.example/x",
			Description: []string{"Sứ trắng", "350ml"},
		},
		{ID: "moc_khoa", Name: "Móc khóa", PriceNow: "49.000đ", BuyLink: "https://shop.example/y", Description: []string{}},
	}).Once()

	res, err := http.Get(server.URL + "/api/v1/exports/products.csv")
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", res.Header.Get("Content-Type"))

	records, err := csv.NewReader(res.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{
		"position", "id", "name", "price_now", "price_original", "discount", "buy_link", "image", "qr_image", "description",
	}, records[0])
	assert.Equal(t, []string{
		"1", "coc_su", "Cốc sứ, trắng", "199.000đ", "250.000đ", "-20%", "https://shop.example/x",
		"../assets/coc_su.jpg", "../assets/coc_su_qr.webp", "Sứ trắng | 350ml",
	}, records[1])
	assert.Equal(t, "2", records[2][0])
	assert.Equal(t, "", records[2][9])
	mockCatalog.AssertExpectations(t)
}
