package customer

import "time"

// Customer is a storefront account. Email is unique over its case-folded
// form. PasswordHash is empty for customers created implicitly at first
// checkout; they can claim the account later by registering.
type Customer struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
