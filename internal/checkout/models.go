package checkout

import "time"

// OrderStatus is the fulfilment state machine:
// placed -> processing -> shipped | cancelled, with completed terminal.
type OrderStatus string

const (
	StatusPlaced     OrderStatus = "placed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusCancelled  OrderStatus = "cancelled"
	StatusCompleted  OrderStatus = "completed"
)

// ValidStatus reports membership in the fixed status enumeration.
func ValidStatus(s OrderStatus) bool {
	switch s {
	case StatusPlaced, StatusProcessing, StatusShipped, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// CanTransition reports whether the fulfilment state machine allows moving
// from one status to another.
func CanTransition(from, to OrderStatus) bool {
	switch from {
	case StatusPlaced:
		return to == StatusProcessing || to == StatusCancelled
	case StatusProcessing:
		return to == StatusShipped || to == StatusCancelled
	case StatusShipped:
		return to == StatusCompleted
	}
	return false
}

// ExportLicenseStatus is the admin review verdict on an order's export
// license. Orders start pending.
type ExportLicenseStatus string

const (
	ExportPending  ExportLicenseStatus = "pending"
	ExportApproved ExportLicenseStatus = "approved"
	ExportDenied   ExportLicenseStatus = "denied"
)

// ValidExportLicenseStatus reports membership in the fixed enumeration.
func ValidExportLicenseStatus(s ExportLicenseStatus) bool {
	switch s {
	case ExportPending, ExportApproved, ExportDenied:
		return true
	}
	return false
}

// SensitiveFields are the checkout descriptors stored encrypted. Each is
// independently optional and independently encrypted; an empty field is
// stored as null, never as an empty cipher token.
type SensitiveFields struct {
	Agency            string
	AuthorizedOfficer string
	PositionClearance string
	ContactNumber     string
	PONumber          string
	ContractReference string
	FundingSource     string
	DeliveryLocation  string
	PaymentMethod     string
}

// Order is a committed checkout. Sensitive descriptor fields hold cipher
// tokens when read back from a store; ContactEmail stays plaintext because it
// is matched and used for notification downstream.
type Order struct {
	ID                  int64
	CustomerID          int64
	Total               float64
	Status              OrderStatus
	ContactEmail        string
	Sensitive           SensitiveFields
	EndUserCertificate  string
	SignatureDocument   string
	ConsentDeclared     bool
	ExportLicenseStatus ExportLicenseStatus
	CreatedAt           time.Time
}

// OrderItem is one product line of an order. UnitPrice is captured from the
// product at order time and never changes when the catalog price moves.
type OrderItem struct {
	OrderID   int64
	ProductID int64
	SKU       string
	Quantity  int
	UnitPrice float64
}

// PlacedOrder is the successful checkout result.
type PlacedOrder struct {
	OrderID      int64
	Total        float64
	CustomerID   int64
	CustomerName string
	Items        []OrderItem
	// Resubmitted marks the empty-cart short-circuit: a repeated submit
	// after success places no new order.
	Resubmitted bool
}
