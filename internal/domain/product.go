package domain

import "strings"

// FeaturedCapacity is the fixed number of promotional slots on the storefront.
const FeaturedCapacity = 4

// Product represents a catalog entry.
// Field order matches the on-disk document and the generated mirror file.
type Product struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Image         string   `json:"image"`
	QRImage       string   `json:"qrImage"`
	PriceNow      string   `json:"priceNow"`
	PriceOriginal string   `json:"priceOriginal"`
	Discount      string   `json:"discount"`
	BuyLink       string   `json:"buyLink"`
	Description   []string `json:"description"`
}

// FeaturedEntry is a point-in-time projection of a Product shown in a featured slot.
// It is not refreshed when the source product changes.
type FeaturedEntry struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Image         string `json:"image"`
	PriceNow      string `json:"priceNow"`
	PriceOriginal string `json:"priceOriginal"`
	BuyLink       string `json:"buyLink"`
}

// FeaturedSlot is one of the FeaturedCapacity display slots. Entry is nil for an unfilled slot.
type FeaturedSlot struct {
	Position int            `json:"position"`
	Entry    *FeaturedEntry `json:"entry"`
}

// ProductInput holds the fields supplied when creating a product.
type ProductInput struct {
	Name          string   `json:"name" validate:"required"`
	PriceNow      string   `json:"priceNow" validate:"required"`
	PriceOriginal string   `json:"priceOriginal"`
	Discount      string   `json:"discount"`
	BuyLink       string   `json:"buyLink" validate:"required"`
	Description   []string `json:"description"`
}

// ProductUpdate holds the editable fields of a product. A nil field keeps the current value.
type ProductUpdate struct {
	Name          *string  `json:"name,omitempty"`
	PriceNow      *string  `json:"priceNow,omitempty"`
	PriceOriginal *string  `json:"priceOriginal,omitempty"`
	Discount      *string  `json:"discount,omitempty"`
	BuyLink       *string  `json:"buyLink,omitempty"`
	Description   []string `json:"description,omitempty"`
}

// Normalize trims the text fields of the input and drops blank description lines.
func (in ProductInput) Normalize() ProductInput {
	in.Name = strings.TrimSpace(in.Name)
	in.PriceNow = strings.TrimSpace(in.PriceNow)
	in.PriceOriginal = strings.TrimSpace(in.PriceOriginal)
	in.Discount = strings.TrimSpace(in.Discount)
	in.BuyLink = strings.TrimSpace(in.BuyLink)
	in.Description = NormalizeDescription(in.Description)
	return in
}

// Apply merges the non-nil fields of u into p and returns the result.
func (u ProductUpdate) Apply(p Product) Product {
	if u.Name != nil {
		p.Name = strings.TrimSpace(*u.Name)
	}
	if u.PriceNow != nil {
		p.PriceNow = strings.TrimSpace(*u.PriceNow)
	}
	if u.PriceOriginal != nil {
		p.PriceOriginal = strings.TrimSpace(*u.PriceOriginal)
	}
	if u.Discount != nil {
		p.Discount = strings.TrimSpace(*u.Discount)
	}
	if u.BuyLink != nil {
		p.BuyLink = strings.TrimSpace(*u.BuyLink)
	}
	if u.Description != nil {
		p.Description = NormalizeDescription(u.Description)
	}
	return p
}

// NormalizeDescription splits multi-line entries, trims every line and drops blank ones.
// The result is never nil so an empty description is stored as [].
func NormalizeDescription(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, entry := range lines {
		for _, line := range strings.Split(entry, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}

// Featured projects the product into its featured-slot form. The image path is
// rewritten from catalog-relative ("../assets/x.jpg") to site-root-relative ("assets/x.jpg").
func (p Product) Featured() FeaturedEntry {
	return FeaturedEntry{
		ID:            p.ID,
		Name:          p.Name,
		Image:         strings.TrimPrefix(p.Image, "../"),
		PriceNow:      p.PriceNow,
		PriceOriginal: p.PriceOriginal,
		BuyLink:       p.BuyLink,
	}
}

// Clone returns a deep copy of the product.
func (p Product) Clone() Product {
	if p.Description != nil {
		desc := make([]string, len(p.Description))
		copy(desc, p.Description)
		p.Description = desc
	}
	return p
}
