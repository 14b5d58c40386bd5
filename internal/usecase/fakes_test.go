package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"dispatch-backend/internal/domain"
	"dispatch-backend/internal/infrastructure/repo"
	"dispatch-backend/internal/infrastructure/upstream"
)

var quietLog = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeUpstream is an in-process upstream admin API.
type fakeUpstream struct {
	mu        sync.Mutex
	orders    map[string]upstream.Order
	patches   []string
	lookups   int
	fetchErr  error
	patchErr  error
	lookupErr error
}

func newFakeUpstream(orders ...upstream.Order) *fakeUpstream {
	f := &fakeUpstream{orders: map[string]upstream.Order{}}
	for _, o := range orders {
		f.orders[o.ID] = o
	}
	return f
}

func (f *fakeUpstream) FetchOrder(_ context.Context, id string) (upstream.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return upstream.Order{}, f.fetchErr
	}
	o, ok := f.orders[id]
	if !ok {
		return upstream.Order{}, &upstream.StatusError{Code: 404, Body: "not found"}
	}
	return o, nil
}

func (f *fakeUpstream) ListOrders(_ context.Context, statuses []string) ([]upstream.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	want := map[string]bool{}
	for _, s := range statuses {
		want[s] = true
	}
	var out []upstream.Order
	for _, o := range f.orders {
		if len(want) == 0 || want[o.Status] {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeUpstream) CurrentStatus(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.lookupErr != nil {
		return "", f.lookupErr
	}
	return f.orders[id].Status, nil
}

func (f *fakeUpstream) PatchStatus(_ context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.patchErr != nil {
		return f.patchErr
	}
	f.patches = append(f.patches, id+"="+status)
	o := f.orders[id]
	o.ID = id
	o.Status = status
	f.orders[id] = o
	return nil
}

func (f *fakeUpstream) patchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.patches)
}

// countingStore counts writes on top of the memory store and can fail
// assignment writes.
type countingStore struct {
	*repo.MemoryStore
	mu              sync.Mutex
	writes          int
	failAssignments bool
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: repo.NewMemoryStore()}
}

func (s *countingStore) count() {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
}

func (s *countingStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *countingStore) PutOrder(ctx context.Context, o *domain.Order) error {
	s.count()
	return s.MemoryStore.PutOrder(ctx, o)
}

func (s *countingStore) UpdateOrderStatus(ctx context.Context, id string, st domain.OrderStatus, at time.Time) error {
	s.count()
	return s.MemoryStore.UpdateOrderStatus(ctx, id, st, at)
}

func (s *countingStore) PutAssignment(ctx context.Context, a *domain.Assignment) error {
	s.count()
	if s.failAssignments {
		return errors.New("assigned_orders unavailable")
	}
	return s.MemoryStore.PutAssignment(ctx, a)
}

type recordingPublisher struct {
	events []domain.StatusEvent
	err    error
}

func (p *recordingPublisher) PublishStatus(_ context.Context, ev domain.StatusEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

const (
	testWebhookSecret = "hook-secret"
	testImportSecret  = "import-secret"
)

type harness struct {
	store    *countingStore
	up       *fakeUpstream
	events   *recordingPublisher
	mirror   *Mirror
	sync     *AssignmentSync
	status   *StatusService
	importer *ImportService
	resolver *Resolver
	assign   *AssignService
}

func newHarness(up *fakeUpstream) *harness {
	h := &harness{store: newCountingStore(), up: up, events: &recordingPublisher{}}
	guard := &SecretGuard{WebhookSecret: testWebhookSecret, ImportSecret: testImportSecret, Log: quietLog}
	h.mirror = &Mirror{Upstream: up, Log: quietLog}
	h.sync = &AssignmentSync{Repo: h.store, Mirror: h.mirror, Log: quietLog}
	h.status = &StatusService{
		Orders:      h.store,
		Couriers:    h.store,
		Assignments: h.sync,
		Mirror:      h.mirror,
		Events:      h.events,
		Guard:       guard,
		Log:         quietLog,
	}
	h.importer = &ImportService{
		Orders:        h.store,
		Notifications: h.store,
		Upstream:      up,
		Guard:         guard,
		SourceTag:     "upstream",
		Log:           quietLog,
	}
	h.resolver = &Resolver{Stores: h.store, Importer: h.importer, Log: quietLog}
	h.assign = &AssignService{
		Orders:      h.store,
		Couriers:    h.store,
		Stores:      h.store,
		Importer:    h.importer,
		Resolver:    h.resolver,
		Assignments: h.sync,
		Log:         quietLog,
	}
	return h
}

func (h *harness) seedOrder(id string) {
	_ = h.store.MemoryStore.PutOrder(context.Background(), &domain.Order{
		ID:              id,
		OrderStatus:     domain.OrderAccepted,
		TotalAmount:     499,
		DeliveryAddress: "12 MG Road",
		CustomerName:    "Asha",
		CustomerPhone:   "9000000001",
		CreatedAt:       time.Now().UTC().Add(-time.Hour),
		UpdatedAt:       time.Now().UTC().Add(-time.Hour),
	})
}

var hookCreds = Credentials{Bearer: testWebhookSecret}
