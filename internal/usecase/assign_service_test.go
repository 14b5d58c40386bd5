package usecase

import (
	"context"
	"testing"
	"time"

	"dispatch-backend/internal/domain"
	"dispatch-backend/internal/infrastructure/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssign(t *testing.T) {
	h := newHarness(newFakeUpstream())
	h.seedOrder("ORD1")
	h.putStore("s1", true, time.Now().UTC())
	h.store.PutCourier(domain.Courier{ID: "c1", Name: "Ravi"})
	ctx := context.Background()

	a, err := h.assign.Assign(ctx, AssignRequest{OrderID: "#ORD1", CourierID: "c1", AssignmentType: domain.LegPickup})
	require.NoError(t, err)
	assert.Equal(t, "ORD1", a.OrderID)
	assert.Equal(t, "Ravi", a.CourierName)
	assert.Equal(t, domain.AssignmentAssigned, a.Status)
	assert.Equal(t, domain.LegPickup, a.Leg)
	assert.Equal(t, "s1", a.StoreAddressID)
	assert.Equal(t, "Asha", a.CustomerName)

	o, _, _ := h.store.GetOrder(ctx, "ORD1")
	assert.Equal(t, domain.OrderAssigned, o.OrderStatus)
	assert.Zero(t, h.up.patchCount())
}

func TestAssign_SelectedStoreWins(t *testing.T) {
	h := newHarness(newFakeUpstream())
	h.seedOrder("ORD1")
	h.putStore("s1", true, time.Now().UTC())
	h.putStore("s2", false, time.Now().UTC())
	h.store.PutCourier(domain.Courier{ID: "c1"})

	a, err := h.assign.Assign(context.Background(), AssignRequest{OrderID: "ORD1", CourierID: "c1", SelectedAddressID: "s2", AssignmentType: domain.LegDelivery})
	require.NoError(t, err)
	assert.Equal(t, "s2", a.StoreAddressID)
	assert.Equal(t, "c1", a.CourierName)
}

func TestAssign_Errors(t *testing.T) {
	no := false
	cases := []struct {
		name   string
		req    AssignRequest
		target any
	}{
		{"missing courier id", AssignRequest{OrderID: "ORD1", AssignmentType: domain.LegPickup}, new(ErrBadRequest)},
		{"bad leg", AssignRequest{OrderID: "ORD1", CourierID: "c1"}, new(ErrBadRequest)},
		{"unknown courier", AssignRequest{OrderID: "ORD1", CourierID: "ghost", AssignmentType: domain.LegPickup}, new(ErrNotFound)},
		{"unavailable courier", AssignRequest{OrderID: "ORD1", CourierID: "off", AssignmentType: domain.LegPickup}, new(ErrBadRequest)},
		{"unknown selected store", AssignRequest{OrderID: "ORD1", CourierID: "c1", SelectedAddressID: "nope", AssignmentType: domain.LegPickup}, new(ErrNotFound)},
		{"order unknown upstream", AssignRequest{OrderID: "GONE", CourierID: "c1", AssignmentType: domain.LegPickup}, new(ErrNotFound)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(newFakeUpstream())
			h.seedOrder("ORD1")
			h.putStore("s1", true, time.Now().UTC())
			h.store.PutCourier(domain.Courier{ID: "c1"})
			h.store.PutCourier(domain.Courier{ID: "off", Available: &no})

			_, err := h.assign.Assign(context.Background(), tc.req)
			require.ErrorAs(t, err, tc.target)
			_, ok, _ := h.store.GetAssignment(context.Background(), "ORD1")
			assert.False(t, ok)
		})
	}
}

func TestAssign_NoStoreConfigured(t *testing.T) {
	h := newHarness(newFakeUpstream())
	h.seedOrder("ORD1")
	h.store.PutCourier(domain.Courier{ID: "c1"})

	_, err := h.assign.Assign(context.Background(), AssignRequest{OrderID: "ORD1", CourierID: "c1", AssignmentType: domain.LegPickup})
	var nf ErrNotFound
	require.ErrorAs(t, err, &nf)
}

func TestSetStatus_MirrorsConfirmedTransitions(t *testing.T) {
	h := newHarness(newFakeUpstream(upstream.Order{ID: "ORD1", Status: "accepted"}))
	h.seedOrder("ORD1")
	h.putStore("s1", true, time.Now().UTC())
	h.store.PutCourier(domain.Courier{ID: "c1"})
	ctx := context.Background()

	_, err := h.assign.Assign(ctx, AssignRequest{OrderID: "ORD1", CourierID: "c1", AssignmentType: domain.LegPickup})
	require.NoError(t, err)

	a, err := h.assign.SetStatus(ctx, "ORD1", domain.AssignmentPickedUp)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentPickedUp, a.Status)
	assert.Equal(t, []string{"ORD1=picked_up"}, h.up.patches)

	// Same status again is not a transition.
	_, err = h.assign.SetStatus(ctx, "ORD1", domain.AssignmentPickedUp)
	require.NoError(t, err)
	assert.Equal(t, 1, h.up.patchCount())

	_, err = h.assign.SetStatus(ctx, "ORD1", domain.AssignmentReached)
	require.NoError(t, err)
	assert.Equal(t, []string{"ORD1=picked_up", "ORD1=reached"}, h.up.patches)

	o, _, _ := h.store.GetOrder(ctx, "ORD1")
	assert.Equal(t, domain.OrderDeliveredToStore, o.OrderStatus)
}

func TestSetStatus_Errors(t *testing.T) {
	h := newHarness(newFakeUpstream())
	h.seedOrder("ORD1")

	_, err := h.assign.SetStatus(context.Background(), "ORD1", domain.AssignmentStatus("lost"))
	var bad ErrBadRequest
	require.ErrorAs(t, err, &bad)

	_, err = h.assign.SetStatus(context.Background(), "ORD1", domain.AssignmentDelivered)
	var nf ErrNotFound
	require.ErrorAs(t, err, &nf)
}
