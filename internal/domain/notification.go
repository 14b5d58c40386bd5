package domain

import "time"

// Notification is an admin dashboard notification row.
type Notification struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	OrderID   string    `json:"orderId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// StatusEvent is published after a status transition commits locally.
type StatusEvent struct {
	OrderID          string           `json:"orderId"`
	Event            string           `json:"event"`
	OrderStatus      OrderStatus      `json:"orderStatus"`
	AssignmentStatus AssignmentStatus `json:"assignmentStatus"`
	UpstreamStatus   UpstreamStatus   `json:"upstreamStatus,omitempty"`
	CourierID        string           `json:"courierId,omitempty"`
	Notification     string           `json:"notification,omitempty"`
	OccurredAt       time.Time        `json:"occurredAt"`
}
