package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"dispatch-backend/internal/domain"
)

// legacyStoreKeys are address_details keys older upstream payloads used for
// the store id.
//
// Deprecated: kept only as a migration shim. Upstream sends store_id at the
// top level; drop this once no local order relies on the nested keys.
var legacyStoreKeys = []string{"store_id", "storeId", "pickup_store_id", "selected_store_id"}

type AssignmentContext struct {
	Pickup  domain.AddressDTO `json:"pickup"`
	Dropoff domain.AddressDTO `json:"dropoff"`
	Type    domain.Leg        `json:"type"`
}

// Resolver picks the store address and leg endpoints for an order.
type Resolver struct {
	Stores   StoreRepo
	Importer *ImportService
	Log      *slog.Logger
}

// Context resolves both ends of leg for orderID. On the pickup leg the
// courier goes from the customer to the store; on the delivery leg back.
func (r *Resolver) Context(ctx context.Context, orderID string, leg domain.Leg) (AssignmentContext, error) {
	if !leg.Valid() {
		return AssignmentContext{}, ErrBadRequest("type must be pickup or delivery")
	}
	id := NormalizeOrderID(orderID)
	if id == "" {
		return AssignmentContext{}, ErrBadRequest("orderId required")
	}
	o, err := r.Importer.EnsureLocal(ctx, id)
	if err != nil {
		return AssignmentContext{}, err
	}
	store, err := r.ResolveStore(ctx, o)
	if err != nil {
		return AssignmentContext{}, err
	}
	customer, shop := o.CustomerDTO(), store.DTO()
	if leg == domain.LegPickup {
		return AssignmentContext{Pickup: customer, Dropoff: shop, Type: leg}, nil
	}
	return AssignmentContext{Pickup: shop, Dropoff: customer, Type: leg}, nil
}

// ResolveStore applies the precedence: the order's own store id, the newest
// default store, the earliest store. No store at all is an error.
func (r *Resolver) ResolveStore(ctx context.Context, o *domain.Order) (*domain.StoreAddress, error) {
	log := logger(r.Log).With("order_id", o.ID)
	if id, legacy := orderStoreID(o); id != "" {
		if legacy {
			log.Warn("store id read from legacy address_details key", "store_id", id)
		}
		s, ok, err := r.Stores.GetStore(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load store %s: %w", id, err)
		}
		if ok {
			return s, nil
		}
		log.Warn("order references unknown store, falling back", "store_id", id)
	}
	s, ok, err := r.Stores.DefaultStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("load default store: %w", err)
	}
	if ok {
		return s, nil
	}
	s, ok, err = r.Stores.EarliestStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("load earliest store: %w", err)
	}
	if ok {
		return s, nil
	}
	return nil, ErrNotFound("store address")
}

func orderStoreID(o *domain.Order) (string, bool) {
	if o.StoreID != "" {
		return o.StoreID, false
	}
	for _, k := range legacyStoreKeys {
		if v := normalizeString(o.AddressDetails[k]); v != "" {
			return v, true
		}
	}
	return "", false
}
