package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu       sync.Mutex
	statuses map[string]string
	patches  int
	lastAuth string
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		f.mu.Lock()
		st, ok := f.statuses[id]
		f.mu.Unlock()
		if !ok {
			http.Error(w, "missing", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"order": map[string]any{
			"id": id, "status": st, "total_amount": "1,250.50", "secret_field": "x",
		}})
	})
	mux.HandleFunc("GET /admin/orders/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		st := f.statuses[r.PathValue("id")]
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"orderId": r.PathValue("id"), "status": st})
	})
	mux.HandleFunc("GET /admin/orders", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var out []map[string]string
		for id, st := range f.statuses {
			if ids := r.URL.Query().Get("ids"); ids != "" && ids != id {
				continue
			}
			out = append(out, map[string]string{"id": id, "status": st})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"orders": out})
	})
	mux.HandleFunc("PATCH /admin/orders/status", func(w http.ResponseWriter, r *http.Request) {
		var body patchReq
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.patches++
		f.lastAuth = r.Header.Get("Authorization")
		f.statuses[body.OrderID] = body.Status
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	return &Client{BaseURL: srv.URL, Secret: "up-secret", HTTP: srv.Client()}
}

func TestClient_FetchOrder(t *testing.T) {
	api := &fakeAPI{statuses: map[string]string{"UPS-42": "confirmed"}}
	c := newTestClient(t, api)

	o, err := c.FetchOrder(context.Background(), "UPS-42")
	require.NoError(t, err)
	assert.Equal(t, "UPS-42", o.ID)
	assert.Equal(t, "confirmed", o.Status)
	assert.Equal(t, "1,250.50", o.TotalAmount)

	_, err = c.FetchOrder(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestClient_PatchAndLookup(t *testing.T) {
	api := &fakeAPI{statuses: map[string]string{"ORD1": "accepted"}}
	c := newTestClient(t, api)
	ctx := context.Background()

	require.NoError(t, c.PatchStatus(ctx, "ORD1", "delivered"))
	assert.Equal(t, 1, api.patches)
	assert.Equal(t, "Bearer up-secret", api.lastAuth)

	st, err := c.CurrentStatus(ctx, "ORD1")
	require.NoError(t, err)
	assert.Equal(t, "delivered", st)

	c.ListLookup = true
	st, err = c.CurrentStatus(ctx, "ORD1")
	require.NoError(t, err)
	assert.Equal(t, "delivered", st)

	_, err = c.CurrentStatus(ctx, "ORD2")
	assert.True(t, IsNotFound(err))
}

func TestClient_ListOrders(t *testing.T) {
	api := &fakeAPI{statuses: map[string]string{"A": "confirmed", "B": "accepted"}}
	c := newTestClient(t, api)

	orders, err := c.ListOrders(context.Background(), []string{"confirmed", "accepted"})
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestClient_RequiresSecret(t *testing.T) {
	c := &Client{BaseURL: "http://127.0.0.1:1"}
	err := c.PatchStatus(context.Background(), "ORD1", "delivered")
	assert.ErrorContains(t, err, "secret")
}
