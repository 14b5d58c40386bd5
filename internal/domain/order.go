package domain

import "time"

// OrderStatus is the coarse local order lifecycle.
type OrderStatus string

const (
	OrderAccepted         OrderStatus = "accepted"
	OrderAssigned         OrderStatus = "assigned"
	OrderPickedUp         OrderStatus = "picked_up"
	OrderInTransit        OrderStatus = "in_transit"
	OrderDeliveredToStore OrderStatus = "delivered_to_store"
	OrderDelivered        OrderStatus = "delivered"
	OrderCancelled        OrderStatus = "cancelled"
)

// Order is the local copy of an upstream order. ID is the upstream id and is
// never regenerated.
type Order struct {
	ID               string         `json:"id"`
	TotalAmount      float64        `json:"totalAmount"`
	PaymentMethod    string         `json:"paymentMethod"`
	PaymentStatus    string         `json:"paymentStatus"`
	PaymentID        string         `json:"paymentId"`
	OrderStatus      OrderStatus    `json:"orderStatus"`
	PickupDate       string         `json:"pickupDate,omitempty"`
	PickupTimeSlot   string         `json:"pickupTimeSlot,omitempty"`
	DeliveryDate     string         `json:"deliveryDate,omitempty"`
	DeliveryTimeSlot string         `json:"deliveryTimeSlot,omitempty"`
	DeliveryAddress  string         `json:"deliveryAddress"`
	AddressDetails   map[string]any `json:"addressDetails,omitempty"`
	StoreID          string         `json:"storeId,omitempty"`
	CustomerName     string         `json:"customerName"`
	CustomerPhone    string         `json:"customerPhone"`
	CouponCode       string         `json:"couponCode,omitempty"`
	DiscountAmount   float64        `json:"discountAmount"`
	IsCancelled      bool           `json:"isCancelled"`
	CancelReason     string         `json:"cancelReason,omitempty"`
	CancelledAt      *time.Time     `json:"cancelledAt,omitempty"`
	SourceSystem     string         `json:"sourceSystem"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}
