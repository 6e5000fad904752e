package cart

import (
	"sort"

	"aerostore/internal/catalog"
)

// Cart maps normalized SKU to quantity. Invariant: stored quantities are
// always >= 1; mutations that would leave a zero or negative entry remove it
// instead. The zero value of the map type is not used directly; call New.
type Cart map[string]int

func New() Cart {
	return make(Cart)
}

// Quantity returns the current quantity for a SKU, zero when absent.
func (c Cart) Quantity(sku string) int {
	return c[catalog.NormalizeSKU(sku)]
}

// Set stores a quantity; qty <= 0 removes the entry.
func (c Cart) Set(sku string, qty int) {
	key := catalog.NormalizeSKU(sku)
	if key == "" {
		return
	}
	if qty <= 0 {
		delete(c, key)
		return
	}
	c[key] = qty
}

// IsEmpty reports whether the cart holds no entries.
func (c Cart) IsEmpty() bool {
	return len(c) == 0
}

// SKUs returns the cart's SKUs in stable order.
func (c Cart) SKUs() []string {
	out := make([]string, 0, len(c))
	for sku := range c {
		out = append(out, sku)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	for sku, qty := range c {
		out[sku] = qty
	}
	return out
}

// Merge combines a session cart into a stored cart: the stored cart is the
// base and session quantities add on top, per SKU. Non-positive session
// quantities are treated as zero. Neither input is mutated. Runs exactly once
// per login, when pre-login browsing meets a previously saved cart.
func Merge(sessionCart, storedCart Cart) Cart {
	merged := storedCart.Clone()
	for sku, qty := range sessionCart {
		if qty <= 0 {
			continue
		}
		merged[sku] += qty
	}
	return merged
}
