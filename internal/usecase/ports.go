package usecase

import (
	"context"
	"log/slog"
	"time"

	"dispatch-backend/internal/domain"
	"dispatch-backend/internal/infrastructure/upstream"
)

type OrderRepo interface {
	GetOrder(ctx context.Context, id string) (*domain.Order, bool, error)
	PutOrder(ctx context.Context, o *domain.Order) error
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, at time.Time) error
}

type AssignmentRepo interface {
	GetAssignment(ctx context.Context, orderID string) (*domain.Assignment, bool, error)
	PutAssignment(ctx context.Context, a *domain.Assignment) error
}

type StoreRepo interface {
	GetStore(ctx context.Context, id string) (*domain.StoreAddress, bool, error)
	// DefaultStore returns the most recently created default-flagged row.
	DefaultStore(ctx context.Context) (*domain.StoreAddress, bool, error)
	EarliestStore(ctx context.Context) (*domain.StoreAddress, bool, error)
	ListStores(ctx context.Context) ([]domain.StoreAddress, error)
	PutStore(ctx context.Context, s *domain.StoreAddress) error
	ClearDefaultStores(ctx context.Context) error
}

type CourierRepo interface {
	GetCourier(ctx context.Context, id string) (*domain.Courier, bool, error)
	ListCouriers(ctx context.Context) ([]domain.Courier, error)
}

type NotificationRepo interface {
	PutNotification(ctx context.Context, n *domain.Notification) error
}

type UpstreamClient interface {
	FetchOrder(ctx context.Context, id string) (upstream.Order, error)
	ListOrders(ctx context.Context, statuses []string) ([]upstream.Order, error)
	CurrentStatus(ctx context.Context, id string) (string, error)
	PatchStatus(ctx context.Context, id, status string) error
}

type EventPublisher interface {
	PublishStatus(ctx context.Context, ev domain.StatusEvent) error
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
