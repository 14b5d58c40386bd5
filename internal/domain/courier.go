package domain

import "time"

// Courier is a local user with the rider role, joined with its optional
// profile extension. A missing profile leaves Active and Available nil.
type Courier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	Active    *bool     `json:"active,omitempty"`
	Available *bool     `json:"available,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Assignable reports whether the courier belongs in the assignment pool.
// Absent flags count as true.
func (c Courier) Assignable() bool {
	if c.Active != nil && !*c.Active {
		return false
	}
	if c.Available != nil && !*c.Available {
		return false
	}
	return true
}

// DisplayName falls back to the phone number, then the id.
func (c Courier) DisplayName() string {
	switch {
	case c.Name != "":
		return c.Name
	case c.Phone != "":
		return c.Phone
	}
	return c.ID
}
