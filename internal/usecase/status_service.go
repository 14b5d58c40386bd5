package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dispatch-backend/internal/domain"
)

type StatusUpdate struct {
	OrderID     string
	Event       string
	CourierID   string
	CourierName string
}

type StatusResult struct {
	OrderID               string
	LocalOrderStatus      domain.OrderStatus
	LocalAssignmentStatus domain.AssignmentStatus
	// UpstreamStatus is empty when the event is not mirrored.
	UpstreamStatus domain.UpstreamStatus
	AssignmentErr  error
	Mirror         Result
}

// StatusService applies courier-reported events to both local tables and
// mirrors them upstream. The order write is authoritative: later failures
// are logged and never undo it.
type StatusService struct {
	Orders      OrderRepo
	Couriers    CourierRepo
	Assignments *AssignmentSync
	Mirror      *Mirror
	Events      EventPublisher
	Guard       *SecretGuard
	Log         *slog.Logger
}

// NormalizeOrderID trims id and drops the leading '#' some callers send.
func NormalizeOrderID(id string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(id), "#"))
}

func (s *StatusService) UpdateStatus(ctx context.Context, creds Credentials, req StatusUpdate) (StatusResult, error) {
	if err := s.Guard.Webhook(creds); err != nil {
		return StatusResult{}, err
	}
	id := NormalizeOrderID(req.OrderID)
	if id == "" {
		return StatusResult{}, ErrBadRequest("orderId required")
	}
	event := strings.TrimSpace(req.Event)
	m, ok := domain.LookupEvent(event)
	if !ok {
		return StatusResult{}, ErrBadRequest(fmt.Sprintf("unknown event %q, valid events: %s", event, strings.Join(domain.KnownEvents(), ", ")))
	}
	o, ok, err := s.Orders.GetOrder(ctx, id)
	if err != nil {
		return StatusResult{}, fmt.Errorf("load order %s: %w", id, err)
	}
	if !ok {
		return StatusResult{}, ErrNotFound("order " + id)
	}

	log := logger(s.Log).With("order_id", id, "event", event)
	now := time.Now().UTC()
	if err := s.Orders.UpdateOrderStatus(ctx, id, m.OrderStatus, now); err != nil {
		return StatusResult{}, fmt.Errorf("update order %s: %w", id, err)
	}
	o.OrderStatus = m.OrderStatus
	o.UpdatedAt = now

	res := StatusResult{
		OrderID:               id,
		LocalOrderStatus:      m.OrderStatus,
		LocalAssignmentStatus: m.AssignmentStatus,
		UpstreamStatus:        m.Upstream,
	}

	courierID := strings.TrimSpace(req.CourierID)
	courierName := strings.TrimSpace(req.CourierName)
	a, _, err := s.Assignments.Update(ctx, id, LocalOnly, func(a *domain.Assignment) {
		a.Snapshot(o)
		a.Status = m.AssignmentStatus
		if courierID != "" && courierID != a.CourierID {
			a.CourierID = courierID
			a.CourierName = ""
		}
		switch {
		case courierName != "":
			a.CourierName = courierName
		case a.CourierName == "" && a.CourierID != "":
			a.CourierName = s.courierName(ctx, a.CourierID)
		}
	})
	if err != nil {
		res.AssignmentErr = err
		log.Error("assignment write failed, order status kept", "error", err)
	}

	if m.Mirrors() {
		res.Mirror = s.Mirror.Mirror(ctx, id, m.Upstream, "courier event "+event)
	}

	if s.Events != nil {
		ev := domain.StatusEvent{
			OrderID:          id,
			Event:            event,
			OrderStatus:      m.OrderStatus,
			AssignmentStatus: m.AssignmentStatus,
			UpstreamStatus:   m.Upstream,
			Notification:     m.Notification,
			OccurredAt:       now,
		}
		if a != nil {
			ev.CourierID = a.CourierID
		}
		if err := s.Events.PublishStatus(ctx, ev); err != nil {
			log.Warn("status event publish failed", "error", err)
		}
	}

	log.Info("order status updated",
		"order_status", m.OrderStatus,
		"assignment_status", m.AssignmentStatus,
		"mirrored", res.Mirror.OK)
	return res, nil
}

func (s *StatusService) courierName(ctx context.Context, courierID string) string {
	if s.Couriers == nil {
		return ""
	}
	c, ok, err := s.Couriers.GetCourier(ctx, courierID)
	if err != nil {
		logger(s.Log).Warn("courier lookup failed", "courier_id", courierID, "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return c.DisplayName()
}
