package saga

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/ariefcatur/go-order-saga.git/internal/orders"
)

// Mock OrdersAPI
type mockOrdersAPI struct {
	mu           sync.Mutex
	createCalls  int
	confirmCalls int
	cancelCalls  int
	createErr    error
	confirmErr   error
	cancelErr    error
	nextOrderID  int64
}

func (m *mockOrdersAPI) CreateOrder(ctx context.Context, customerID int64, items []orders.ItemInput) (*orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.nextOrderID++
	return &orders.Order{ID: m.nextOrderID, CustomerID: customerID, Status: orders.StatusCreated, TotalCents: 1000}, nil
}

func (m *mockOrdersAPI) ConfirmOrder(ctx context.Context, orderID int64, idemKey string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmCalls++
	if m.confirmErr != nil {
		return nil, m.confirmErr
	}
	b, _ := json.Marshal(map[string]any{"id": orderID, "status": "CONFIRMED", "total_cents": 1000})
	return b, nil
}

func (m *mockOrdersAPI) CancelOrder(ctx context.Context, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelCalls++
	return m.cancelErr
}

// Mock ResultCache (in-memory; produksi pakai Redis)
type memCache struct {
	mu sync.Mutex
	m  map[string]CachedResponse
}

func newMemCache() *memCache { return &memCache{m: map[string]CachedResponse{}} }

func (c *memCache) Get(ctx context.Context, key string) (*CachedResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.m[key]; ok {
		return &r, nil
	}
	return nil, nil
}

func (c *memCache) Put(ctx context.Context, key string, resp CachedResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = resp
	return nil
}

type memQueue struct {
	mu      sync.Mutex
	entries []int64
}

func (q *memQueue) Enqueue(ctx context.Context, orderID int64, reason string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, orderID)
}

func validRequest() PlaceOrderRequest {
	return PlaceOrderRequest{CustomerID: 7, Items: []orders.ItemInput{{ProductID: 1, Qty: 2}}}
}

func TestPlaceOrder_Success(t *testing.T) {
	api := &mockOrdersAPI{}
	cache := newMemCache()
	o := &Orchestrator{Orders: api, Cache: cache}

	res := o.PlaceOrder(context.Background(), validRequest())
	if res.Status != 200 {
		t.Fatalf("status = %d, body = %s", res.Status, res.Body)
	}

	var body struct {
		Message    string `json:"message"`
		OrderID    int64  `json:"order_id"`
		Status     string `json:"status"`
		TotalCents int64  `json:"total_cents"`
		CustomerID int64  `json:"customer_id"`
	}
	if err := json.Unmarshal(res.Body, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message != "Order successfully created and confirmed." ||
		body.OrderID != 1 || body.Status != "CONFIRMED" ||
		body.TotalCents != 1000 || body.CustomerID != 7 {
		t.Errorf("body = %+v", body)
	}
	if len(cache.m) != 1 {
		t.Error("success response should be cached")
	}
}

func TestPlaceOrder_ValidationSkipsEverything(t *testing.T) {
	api := &mockOrdersAPI{}
	cache := newMemCache()
	o := &Orchestrator{Orders: api, Cache: cache}

	for _, req := range []PlaceOrderRequest{
		{},
		{CustomerID: 7},
		{Items: []orders.ItemInput{{ProductID: 1, Qty: 1}}},
	} {
		res := o.PlaceOrder(context.Background(), req)
		if res.Status != 400 {
			t.Errorf("req %+v: status = %d, want 400", req, res.Status)
		}
	}
	if api.createCalls != 0 || len(cache.m) != 0 {
		t.Error("validation failure must not touch cache or remote state")
	}
}

func TestPlaceOrder_DuplicateReplaysFromCache(t *testing.T) {
	api := &mockOrdersAPI{}
	o := &Orchestrator{Orders: api, Cache: newMemCache()}

	first := o.PlaceOrder(context.Background(), validRequest())
	second := o.PlaceOrder(context.Background(), validRequest())

	if !second.Replayed {
		t.Error("second identical submission should replay")
	}
	if string(second.Body) != string(first.Body) {
		t.Errorf("replay differs:\n%s\n%s", second.Body, first.Body)
	}
	if api.createCalls != 1 {
		t.Errorf("create called %d times, want 1 (no second order)", api.createCalls)
	}
}

func TestPlaceOrder_CreateFailureNothingToCompensate(t *testing.T) {
	api := &mockOrdersAPI{createErr: &RemoteError{Status: 400, Message: "Insufficient stock for Product ID 1."}}
	o := &Orchestrator{Orders: api, Cache: newMemCache()}

	res := o.PlaceOrder(context.Background(), validRequest())
	if res.Status != 400 {
		t.Fatalf("status = %d, want 400 (mirrored)", res.Status)
	}
	var body struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(res.Body, &body)
	if body.Message != "Order orchestration failed. Reason: Insufficient stock for Product ID 1." {
		t.Errorf("message = %q", body.Message)
	}
	if api.cancelCalls != 0 {
		t.Error("no order was created, nothing to cancel")
	}
}

func TestPlaceOrder_ConfirmFailureCompensates(t *testing.T) {
	api := &mockOrdersAPI{confirmErr: &RemoteError{Status: 500, Message: "Error confirming order"}}
	cache := newMemCache()
	o := &Orchestrator{Orders: api, Cache: cache}

	res := o.PlaceOrder(context.Background(), validRequest())
	if res.Status != 500 {
		t.Fatalf("status = %d, want 500 (confirm error, not compensation outcome)", res.Status)
	}
	if api.cancelCalls != 1 {
		t.Errorf("cancel called %d times, want 1", api.cancelCalls)
	}
	if len(cache.m) != 0 {
		t.Error("failure must not be cached")
	}
	var body struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(res.Body, &body)
	if body.Message != "Order orchestration failed. Reason: Error confirming order" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestPlaceOrder_CompensationFailureDoesNotMask(t *testing.T) {
	api := &mockOrdersAPI{
		confirmErr: &RemoteError{Status: 502, Message: "upstream down"},
		cancelErr:  &RemoteError{Status: 500, Message: "cancel failed too"},
	}
	q := &memQueue{}
	o := &Orchestrator{Orders: api, Cache: newMemCache(), Queue: q}

	res := o.PlaceOrder(context.Background(), validRequest())
	// response tetap error confirm walau cancel ikut gagal
	if res.Status != 502 {
		t.Fatalf("status = %d, want 502", res.Status)
	}
	if len(q.entries) != 1 || q.entries[0] != 1 {
		t.Errorf("failed compensation should be enqueued, got %v", q.entries)
	}
}

func TestPlaceOrder_NonRemoteErrorDefaultsTo500(t *testing.T) {
	api := &mockOrdersAPI{createErr: context.DeadlineExceeded}
	o := &Orchestrator{Orders: api, Cache: newMemCache()}

	res := o.PlaceOrder(context.Background(), validRequest())
	if res.Status != 500 {
		t.Fatalf("status = %d, want 500 default", res.Status)
	}
	var body struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(res.Body, &body)
	if body.Message != "Order orchestration failed. Reason: Internal Server Error during orchestration." {
		t.Errorf("message = %q", body.Message)
	}
}
