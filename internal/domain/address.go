package domain

import (
	"strconv"
	"strings"
	"time"
)

// StoreAddress is a physical pickup/handoff location.
type StoreAddress struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Line1        string    `json:"line1"`
	Line2        string    `json:"line2,omitempty"`
	Landmark     string    `json:"landmark,omitempty"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	Pincode      string    `json:"pincode"`
	Lat          *float64  `json:"lat,omitempty"`
	Lng          *float64  `json:"lng,omitempty"`
	ContactName  string    `json:"contactName,omitempty"`
	ContactPhone string    `json:"contactPhone,omitempty"`
	IsDefault    bool      `json:"isDefault"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Text joins the non-empty address parts.
func (a StoreAddress) Text() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Line1, a.Line2, a.Landmark, a.City, a.State, a.Pincode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// AddressDTO is the flattened presentation of either side of a leg.
type AddressDTO struct {
	Label       string   `json:"label"`
	Phone       string   `json:"phone"`
	AddressText string   `json:"address_text"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
}

func (a StoreAddress) DTO() AddressDTO {
	return AddressDTO{
		Label:       a.Name,
		Phone:       a.ContactPhone,
		AddressText: a.Text(),
		Lat:         a.Lat,
		Lng:         a.Lng,
	}
}

// CustomerDTO presents the order's delivery address. Coordinates come from the
// structured address blob when present.
func (o *Order) CustomerDTO() AddressDTO {
	dto := AddressDTO{
		Label:       o.CustomerName,
		Phone:       o.CustomerPhone,
		AddressText: o.DeliveryAddress,
	}
	if dto.Label == "" {
		dto.Label = "Customer"
	}
	dto.Lat = coordinate(o.AddressDetails, "lat", "latitude")
	dto.Lng = coordinate(o.AddressDetails, "lng", "longitude")
	return dto
}

func coordinate(m map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return &v
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return &f
			}
		}
	}
	return nil
}
