package api

import (
	"net/http"
	"strings"

	"github.com/gocarina/gocsv"
	"go.uber.org/zap"

	"storefront-catalog/internal/domain"
)

// ProductCSVRow is one catalog row of the spreadsheet export.
type ProductCSVRow struct {
	Position      int    `csv:"position"`
	ID            string `csv:"id"`
	Name          string `csv:"name"`
	PriceNow      string `csv:"price_now"`
	PriceOriginal string `csv:"price_original"`
	Discount      string `csv:"discount"`
	BuyLink       string `csv:"buy_link"`
	Image         string `csv:"image"`
	QRImage       string `csv:"qr_image"`
	Description   string `csv:"description"`
}

// descriptionSeparator joins description lines in a single CSV cell.
const descriptionSeparator = " | "

// ProductCSVRows flattens the catalog into export rows, keeping display order.
func ProductCSVRows(products []domain.Product) []*ProductCSVRow {
	rows := make([]*ProductCSVRow, len(products))
	for i, p := range products {
		rows[i] = &ProductCSVRow{
			Position:      i + 1,
			ID:            p.ID,
			Name:          p.Name,
			PriceNow:      p.PriceNow,
			PriceOriginal: p.PriceOriginal,
			Discount:      p.Discount,
			BuyLink:       p.BuyLink,
			Image:         p.Image,
			QRImage:       p.QRImage,
			Description:   strings.Join(p.Description, descriptionSeparator),
		}
	}
	return rows
}

func (h *HTTPHandler) ExportProductsCSV(w http.ResponseWriter, r *http.Request) {
	body, err := gocsv.MarshalBytes(ProductCSVRows(h.catalog.List()))
	if err != nil {
		h.logger.Error("failed to export catalog", zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "Failed to export catalog")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="products.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.Warn("failed to write catalog export", zap.Error(err))
	}
}
