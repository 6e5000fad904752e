package session

import (
	"time"

	"github.com/google/uuid"

	"aerostore/internal/cart"
)

// Record is the process-external session state: cart contents, authentication
// identity, and the lifecycle timestamps the guard operates on. Timestamps
// stay zero until first authenticated activity.
type Record struct {
	ID            string    `json:"id"`
	Cart          cart.Cart `json:"cart"`
	CustomerID    int64     `json:"customer_id,omitempty"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	CustomerName  string    `json:"customer_name,omitempty"`
	Admin         bool      `json:"admin,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitzero"`
	LastActive    time.Time `json:"last_active,omitzero"`
}

// NewRecord returns a fresh anonymous session.
func NewRecord() Record {
	return Record{ID: uuid.NewString(), Cart: cart.New()}
}

// Authenticated reports whether the session carries an identity.
func (r Record) Authenticated() bool {
	return r.CustomerID != 0 || r.Admin
}

// Cleared returns the record with all state wiped, keeping only the ID so the
// browser cookie stays valid as an anonymous session.
func (r Record) Cleared() Record {
	return Record{ID: r.ID, Cart: cart.New()}
}
