package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dispatch-backend/internal/domain"
	"dispatch-backend/internal/infrastructure/upstream"

	"github.com/google/uuid"
)

type ImportResult struct {
	LocalOrderID  string
	SourceOrderID string
	Created       bool
}

// ImportService pulls upstream orders into the local store.
type ImportService struct {
	Orders        OrderRepo
	Notifications NotificationRepo
	Upstream      UpstreamClient
	Guard         *SecretGuard
	// SourceTag is recorded as source_system when the caller names none.
	SourceTag string
	Log       *slog.Logger
}

// Import fetches orderID upstream and upserts it locally as a newly accepted
// order. The local id is the upstream id.
func (s *ImportService) Import(ctx context.Context, presentedSecret, orderID, source string) (ImportResult, error) {
	if err := s.Guard.Import(presentedSecret); err != nil {
		return ImportResult{}, err
	}
	id := NormalizeOrderID(orderID)
	if id == "" {
		return ImportResult{}, ErrBadRequest("orderId required")
	}
	uo, err := s.Upstream.FetchOrder(ctx, id)
	if err != nil {
		logger(s.Log).Error("upstream order fetch failed", "order_id", id, "error", err)
		return ImportResult{}, ErrUpstream(fmt.Sprintf("fetch upstream order %s: %v", id, err))
	}
	o, created, err := s.upsert(ctx, id, uo, source, true)
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{LocalOrderID: o.ID, SourceOrderID: id, Created: created}, nil
}

// EnsureLocal returns the local order, importing it on first contact.
func (s *ImportService) EnsureLocal(ctx context.Context, orderID string) (*domain.Order, error) {
	o, ok, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if ok {
		return o, nil
	}
	if s.Upstream == nil {
		return nil, ErrNotFound("order " + orderID)
	}
	uo, err := s.Upstream.FetchOrder(ctx, orderID)
	if err != nil {
		if upstream.IsNotFound(err) {
			return nil, ErrNotFound("order " + orderID)
		}
		return nil, ErrDependency(fmt.Sprintf("order %s is not local and upstream sync failed: %v", orderID, err))
	}
	o, _, err = s.upsert(ctx, orderID, uo, "", true)
	return o, err
}

// upsert writes uo under id. With forceAccepted an existing row is reset to
// accepted; without it the local status of an existing row is preserved.
func (s *ImportService) upsert(ctx context.Context, id string, uo upstream.Order, source string, forceAccepted bool) (*domain.Order, bool, error) {
	existing, ok, err := s.Orders.GetOrder(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("load order %s: %w", id, err)
	}
	o := s.toLocal(id, uo)
	o.SourceSystem = strings.TrimSpace(source)
	if o.SourceSystem == "" {
		o.SourceSystem = s.SourceTag
	}
	now := time.Now().UTC()
	o.OrderStatus = domain.OrderAccepted
	if ok {
		o.CreatedAt = existing.CreatedAt
		if !forceAccepted {
			o.OrderStatus = existing.OrderStatus
		}
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	if err := s.Orders.PutOrder(ctx, o); err != nil {
		return nil, false, fmt.Errorf("upsert order %s: %w", id, err)
	}
	if !ok {
		s.notify(ctx, o)
	}
	logger(s.Log).Info("order imported", "order_id", id, "created", !ok, "upstream_status", uo.Status)
	return o, !ok, nil
}

func (s *ImportService) notify(ctx context.Context, o *domain.Order) {
	if s.Notifications == nil {
		return
	}
	n := &domain.Notification{
		ID:        uuid.NewString(),
		Kind:      "order_imported",
		Title:     "New order " + o.ID,
		Body:      fmt.Sprintf("Order %s imported from %s, total %.2f", o.ID, o.SourceSystem, o.TotalAmount),
		OrderID:   o.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Notifications.PutNotification(ctx, n); err != nil {
		logger(s.Log).Warn("import notification insert failed", "order_id", o.ID, "error", err)
	}
}

// toLocal maps the allow-listed upstream fields. The upstream status is not
// carried over.
func (s *ImportService) toLocal(id string, uo upstream.Order) *domain.Order {
	o := &domain.Order{
		ID:               id,
		TotalAmount:      s.amount(id, "total_amount", uo.TotalAmount),
		PaymentMethod:    strings.TrimSpace(uo.PaymentMethod),
		PaymentStatus:    strings.TrimSpace(uo.PaymentStatus),
		PaymentID:        strings.TrimSpace(uo.PaymentID),
		PickupDate:       normalizeDate(uo.PickupDate),
		PickupTimeSlot:   normalizeTimeSlot(uo.PickupTime),
		DeliveryDate:     normalizeDate(uo.DeliveryDate),
		DeliveryTimeSlot: normalizeTimeSlot(uo.DeliveryTime),
		DeliveryAddress:  strings.TrimSpace(uo.Address),
		AddressDetails:   uo.AddressDetails,
		StoreID:          normalizeString(uo.StoreID),
		CustomerName:     strings.TrimSpace(uo.CustomerName),
		CustomerPhone:    strings.TrimSpace(uo.CustomerPhone),
		CouponCode:       strings.TrimSpace(uo.CouponCode),
		DiscountAmount:   s.amount(id, "discount_amount", uo.DiscountAmount),
		IsCancelled:      normalizeBool(uo.IsCancelled),
		CancelReason:     strings.TrimSpace(uo.CancelReason),
	}
	if t, ok := normalizeTimestamp(uo.CancelledAt); ok {
		o.CancelledAt = &t
	}
	if t, ok := normalizeTimestamp(uo.CreatedAt); ok {
		o.CreatedAt = t
	}
	return o
}

func (s *ImportService) amount(id, field string, v any) float64 {
	f, ok := normalizeAmount(v)
	if !ok {
		logger(s.Log).Warn("unparseable upstream amount", "order_id", id, "field", field, "value", v)
	}
	return f
}
