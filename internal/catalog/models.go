package catalog

import (
	"strings"
	"time"
)

// Product is a sellable catalog entry. SKU is the stable human-readable key,
// normalized to uppercase; ID is the database key.
type Product struct {
	ID          int64
	SKU         string
	Name        string
	Description string
	Price       float64
	Stock       int
	Image       string
	CreatedAt   time.Time
}

// ProductUpdate carries an admin edit. Nil fields are left untouched; an
// unparseable price arrives as nil so the rest of the edit still applies.
type ProductUpdate struct {
	SKU         string
	Name        *string
	Description *string
	Price       *float64
	Image       *string
}

// NormalizeSKU canonicalizes a SKU for lookups and cart keys.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}
