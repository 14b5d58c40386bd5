package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dispatch-backend/internal/domain"
)

type AssignRequest struct {
	OrderID           string
	CourierID         string
	SelectedAddressID string
	AssignmentType    domain.Leg
}

// AssignService handles dashboard-driven assignment writes.
type AssignService struct {
	Orders      OrderRepo
	Couriers    CourierRepo
	Stores      StoreRepo
	Importer    *ImportService
	Resolver    *Resolver
	Assignments *AssignmentSync
	Log         *slog.Logger
}

// Assign gives the order's leg to a courier.
func (s *AssignService) Assign(ctx context.Context, req AssignRequest) (*domain.Assignment, error) {
	id := NormalizeOrderID(req.OrderID)
	courierID := strings.TrimSpace(req.CourierID)
	if id == "" || courierID == "" {
		return nil, ErrBadRequest("orderId and courierId required")
	}
	if !req.AssignmentType.Valid() {
		return nil, ErrBadRequest("assignmentType must be pickup or delivery")
	}
	o, err := s.Importer.EnsureLocal(ctx, id)
	if err != nil {
		return nil, err
	}
	c, ok, err := s.Couriers.GetCourier(ctx, courierID)
	if err != nil {
		return nil, fmt.Errorf("load courier %s: %w", courierID, err)
	}
	if !ok {
		return nil, ErrNotFound("courier " + courierID)
	}
	if !c.Assignable() {
		return nil, ErrBadRequest("courier " + courierID + " is not available")
	}

	var store *domain.StoreAddress
	if sel := strings.TrimSpace(req.SelectedAddressID); sel != "" {
		st, ok, err := s.Stores.GetStore(ctx, sel)
		if err != nil {
			return nil, fmt.Errorf("load store %s: %w", sel, err)
		}
		if !ok {
			return nil, ErrNotFound("store address " + sel)
		}
		store = st
	} else if store, err = s.Resolver.ResolveStore(ctx, o); err != nil {
		return nil, err
	}

	a, _, err := s.Assignments.Update(ctx, id, LocalOnly, func(a *domain.Assignment) {
		a.Snapshot(o)
		a.CourierID = c.ID
		a.CourierName = c.DisplayName()
		a.Status = domain.AssignmentAssigned
		a.Leg = req.AssignmentType
		a.StoreAddressID = store.ID
	})
	if err != nil {
		return nil, err
	}
	if o.OrderStatus == domain.OrderAccepted {
		if err := s.Orders.UpdateOrderStatus(ctx, id, domain.OrderAssigned, time.Now().UTC()); err != nil {
			logger(s.Log).Warn("order status not moved to assigned", "order_id", id, "error", err)
		}
	}
	logger(s.Log).Info("order assigned", "order_id", id, "courier_id", c.ID, "leg", req.AssignmentType, "store_id", store.ID)
	return a, nil
}

// SetStatus is the explicit dashboard confirmation of a courier sub-state.
// Unlike courier webhooks it mirrors every confirmed transition upstream,
// including pickup.
func (s *AssignService) SetStatus(ctx context.Context, orderID string, status domain.AssignmentStatus) (*domain.Assignment, error) {
	id := NormalizeOrderID(orderID)
	if id == "" {
		return nil, ErrBadRequest("orderId required")
	}
	if !status.Valid() {
		return nil, ErrBadRequest(fmt.Sprintf("invalid assignment status %q", status))
	}
	if _, ok, err := s.Assignments.Repo.GetAssignment(ctx, id); err != nil {
		return nil, fmt.Errorf("load assignment %s: %w", id, err)
	} else if !ok {
		return nil, ErrNotFound("assignment " + id)
	}
	a, _, err := s.Assignments.Update(ctx, id, MirrorOnTransition, func(a *domain.Assignment) {
		a.Status = status
	})
	if err != nil {
		return nil, err
	}
	if err := s.Orders.UpdateOrderStatus(ctx, id, status.OrderStatus(), time.Now().UTC()); err != nil {
		logger(s.Log).Warn("order status not updated after assignment confirmation", "order_id", id, "error", err)
	}
	return a, nil
}
