package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"dispatch-backend/internal/domain"
)

// MemoryStore keeps every table in maps. It backs local development without a
// database and the tests. Rows are copied in and out.
type MemoryStore struct {
	mu            sync.RWMutex
	orders        map[string]domain.Order
	assignments   map[string]domain.Assignment
	stores        map[string]domain.StoreAddress
	storeSeq      map[string]int
	couriers      map[string]domain.Courier
	notifications []domain.Notification
	seq           int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:      make(map[string]domain.Order),
		assignments: make(map[string]domain.Assignment),
		stores:      make(map[string]domain.StoreAddress),
		storeSeq:    make(map[string]int),
		couriers:    make(map[string]domain.Courier),
	}
}

func (r *MemoryStore) GetOrder(_ context.Context, id string) (*domain.Order, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, false, nil
	}
	return &o, true, nil
}

func (r *MemoryStore) PutOrder(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = *o
	return nil
}

func (r *MemoryStore) UpdateOrderStatus(_ context.Context, id string, status domain.OrderStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return ErrNoRows
	}
	o.OrderStatus = status
	o.UpdatedAt = at
	r.orders[id] = o
	return nil
}

func (r *MemoryStore) GetAssignment(_ context.Context, orderID string) (*domain.Assignment, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assignments[orderID]
	if !ok {
		return nil, false, nil
	}
	return &a, true, nil
}

func (r *MemoryStore) PutAssignment(_ context.Context, a *domain.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assignments[a.OrderID] = *a
	return nil
}

func (r *MemoryStore) GetStore(_ context.Context, id string) (*domain.StoreAddress, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[id]
	if !ok {
		return nil, false, nil
	}
	return &s, true, nil
}

func (r *MemoryStore) DefaultStore(_ context.Context) (*domain.StoreAddress, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.sortedStores()
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].IsDefault {
			s := all[i]
			return &s, true, nil
		}
	}
	return nil, false, nil
}

func (r *MemoryStore) EarliestStore(_ context.Context) (*domain.StoreAddress, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.sortedStores()
	if len(all) == 0 {
		return nil, false, nil
	}
	return &all[0], true, nil
}

func (r *MemoryStore) ListStores(_ context.Context) ([]domain.StoreAddress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedStores(), nil
}

func (r *MemoryStore) PutStore(_ context.Context, s *domain.StoreAddress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.storeSeq[s.ID]; !ok {
		r.seq++
		r.storeSeq[s.ID] = r.seq
	}
	r.stores[s.ID] = *s
	return nil
}

func (r *MemoryStore) ClearDefaultStores(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.stores {
		if s.IsDefault {
			s.IsDefault = false
			r.stores[id] = s
		}
	}
	return nil
}

// sortedStores orders by created_at, then insertion order. Callers hold mu.
func (r *MemoryStore) sortedStores() []domain.StoreAddress {
	out := make([]domain.StoreAddress, 0, len(r.stores))
	for _, s := range r.stores {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return r.storeSeq[out[i].ID] < r.storeSeq[out[j].ID]
	})
	return out
}

func (r *MemoryStore) GetCourier(_ context.Context, id string) (*domain.Courier, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.couriers[id]
	if !ok {
		return nil, false, nil
	}
	return &c, true, nil
}

func (r *MemoryStore) ListCouriers(_ context.Context) ([]domain.Courier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Courier, 0, len(r.couriers))
	for _, c := range r.couriers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PutCourier seeds a courier; couriers are owned by the user store.
func (r *MemoryStore) PutCourier(c domain.Courier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.couriers[c.ID] = c
}

func (r *MemoryStore) PutNotification(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *MemoryStore) Notifications() []domain.Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Notification(nil), r.notifications...)
}

// OrderCount is the number of order rows.
func (r *MemoryStore) OrderCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}
