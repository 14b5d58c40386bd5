package domain

import "time"

// AssignmentStatus is the courier-facing sub-state of an assigned order. It is
// deliberately a separate enum from OrderStatus.
type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "assigned"
	AssignmentPickedUp  AssignmentStatus = "picked_up"
	AssignmentInTransit AssignmentStatus = "in_transit"
	AssignmentReached   AssignmentStatus = "reached"
	AssignmentDelivered AssignmentStatus = "delivered"
)

func (s AssignmentStatus) Valid() bool {
	_, ok := assignmentOrderStatus[s]
	return ok
}

var assignmentOrderStatus = map[AssignmentStatus]OrderStatus{
	AssignmentAssigned:  OrderAssigned,
	AssignmentPickedUp:  OrderPickedUp,
	AssignmentInTransit: OrderInTransit,
	AssignmentReached:   OrderDeliveredToStore,
	AssignmentDelivered: OrderDelivered,
}

// OrderStatus is the coarse order status matching this sub-state.
func (s AssignmentStatus) OrderStatus() OrderStatus {
	if o, ok := assignmentOrderStatus[s]; ok {
		return o
	}
	return OrderAssigned
}

// Leg is the half of the two-stage delivery an assignment covers.
type Leg string

const (
	LegPickup   Leg = "pickup"
	LegDelivery Leg = "delivery"
)

func (l Leg) Valid() bool {
	return l == LegPickup || l == LegDelivery
}

// Assignment is the "assigned order" record. OrderID is shared with Order; the
// order fields below are a display snapshot, not the source of truth.
type Assignment struct {
	OrderID        string           `json:"orderId"`
	CourierID      string           `json:"courierId"`
	CourierName    string           `json:"courierName"`
	Status         AssignmentStatus `json:"status"`
	Leg            Leg              `json:"leg,omitempty"`
	StoreAddressID string           `json:"storeAddressId,omitempty"`

	TotalAmount     float64 `json:"totalAmount"`
	DeliveryAddress string  `json:"deliveryAddress"`
	PickupDate      string  `json:"pickupDate,omitempty"`
	DeliveryDate    string  `json:"deliveryDate,omitempty"`
	CustomerName    string  `json:"customerName"`
	CustomerPhone   string  `json:"customerPhone"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Snapshot copies the denormalized display fields from o.
func (a *Assignment) Snapshot(o *Order) {
	a.OrderID = o.ID
	a.TotalAmount = o.TotalAmount
	a.DeliveryAddress = o.DeliveryAddress
	a.PickupDate = o.PickupDate
	a.DeliveryDate = o.DeliveryDate
	a.CustomerName = o.CustomerName
	a.CustomerPhone = o.CustomerPhone
}
