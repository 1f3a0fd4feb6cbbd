package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/osmanaliaydemir/getir-tracking/internal/core/ports"
)

// OwnershipResolver resolves the parties of an order from the hash the order
// service maintains at track:order:<order_id>. A missing hash yields an
// empty Ownership without error; the update still fans out to the order and
// admin topics.
type OwnershipResolver struct {
	client *redis.Client
}

var _ ports.OrderOwnership = (*OwnershipResolver)(nil)

func NewOwnershipResolver(client *redis.Client) *OwnershipResolver {
	return &OwnershipResolver{client: client}
}

func (r *OwnershipResolver) Lookup(ctx context.Context, orderID string) (ports.Ownership, error) {
	fields, err := r.client.HGetAll(ctx, "track:order:"+orderID).Result()
	if err != nil {
		return ports.Ownership{}, fmt.Errorf("ownership lookup: %w", err)
	}
	return ports.Ownership{
		CustomerID: fields["customer_id"],
		MerchantID: fields["merchant_id"],
		CourierID:  fields["courier_id"],
	}, nil
}
