package ports

import "context"

// Ownership identifies the parties of an order. CourierID may be empty until
// a courier is assigned.
type Ownership struct {
	CustomerID string
	MerchantID string
	CourierID  string
}

// OrderOwnership resolves the parties of an order from the order system.
// Consumed to pick the user/courier topics an update fans out to; never used
// for authorization decisions, which belong to the transport layer.
type OrderOwnership interface {
	Lookup(ctx context.Context, orderID string) (Ownership, error)
}
