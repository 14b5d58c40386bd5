// Package upstream talks to the source order system's admin API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Order is the upstream order record as received. Loosely typed fields are
// normalized by the import adapter; anything not declared here is dropped.
type Order struct {
	ID             string         `json:"id"`
	Status         string         `json:"status"`
	TotalAmount    any            `json:"total_amount"`
	PaymentMethod  string         `json:"payment_method"`
	PaymentStatus  string         `json:"payment_status"`
	PaymentID      string         `json:"payment_id"`
	PickupDate     any            `json:"pickup_date"`
	PickupTime     any            `json:"pickup_time"`
	DeliveryDate   any            `json:"delivery_date"`
	DeliveryTime   any            `json:"delivery_time"`
	Address        string         `json:"address"`
	AddressDetails map[string]any `json:"address_details"`
	StoreID        any            `json:"store_id"`
	CustomerName   string         `json:"customer_name"`
	CustomerPhone  string         `json:"customer_phone"`
	CouponCode     string         `json:"coupon_code"`
	DiscountAmount any            `json:"discount_amount"`
	IsCancelled    any            `json:"is_cancelled"`
	CancelReason   string         `json:"cancel_reason"`
	CancelledAt    any            `json:"cancelled_at"`
	CreatedAt      any            `json:"created_at"`
	UpdatedAt      any            `json:"updated_at"`
}

type orderResp struct {
	Order Order `json:"order"`
}

type listResp struct {
	Orders []Order `json:"orders"`
}

type statusResp struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

type patchReq struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// StatusError is a non-2xx answer from the upstream API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Code, e.Body)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

type Client struct {
	BaseURL string
	// Secret is the outbound system-to-system credential.
	Secret string
	// ListLookup resolves current status through the bulk listing instead of
	// the dedicated status endpoint.
	ListLookup bool
	HTTP       *http.Client
}

// FetchOrder returns the full upstream record.
func (c *Client) FetchOrder(ctx context.Context, id string) (Order, error) {
	var out orderResp
	if err := c.do(ctx, http.MethodGet, "/admin/orders/"+url.PathEscape(id), nil, &out); err != nil {
		return Order{}, err
	}
	if out.Order.ID == "" {
		out.Order.ID = id
	}
	return out.Order, nil
}

// ListOrders lists orders whose status is any of statuses.
func (c *Client) ListOrders(ctx context.Context, statuses []string) ([]Order, error) {
	q := url.Values{}
	if len(statuses) > 0 {
		q.Set("status", strings.Join(statuses, ","))
	}
	return c.list(ctx, q)
}

// CurrentStatus reads the upstream status of one order.
func (c *Client) CurrentStatus(ctx context.Context, id string) (string, error) {
	if c.ListLookup {
		q := url.Values{}
		q.Set("ids", id)
		orders, err := c.list(ctx, q)
		if err != nil {
			return "", err
		}
		for _, o := range orders {
			if o.ID == id {
				return o.Status, nil
			}
		}
		return "", &StatusError{Code: http.StatusNotFound, Body: "order " + id + " not listed"}
	}
	var out statusResp
	if err := c.do(ctx, http.MethodGet, "/admin/orders/"+url.PathEscape(id)+"/status", nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// PatchStatus writes status for id.
func (c *Client) PatchStatus(ctx context.Context, id, status string) error {
	return c.do(ctx, http.MethodPatch, "/admin/orders/status", patchReq{OrderID: id, Status: status}, nil)
}

func (c *Client) list(ctx context.Context, q url.Values) ([]Order, error) {
	path := "/admin/orders"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out listResp
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		return errors.New("upstream base url not configured")
	}
	if c.Secret == "" {
		return errors.New("upstream secret not configured")
	}
	u := strings.TrimRight(base, "/") + path
	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.Secret)
	req.Header.Set("x-shared-secret", c.Secret)
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
