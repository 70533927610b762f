package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

// Mock OrderStore
type mockOrderStore struct {
	mu           sync.Mutex
	ords         map[int64]*Order
	confirmCalls int
	confirmErr   error
}

func newMockOrderStore(ords ...*Order) *mockOrderStore {
	m := &mockOrderStore{ords: map[int64]*Order{}}
	for _, o := range ords {
		m.ords[o.ID] = o
	}
	return m
}

func (m *mockOrderStore) OrderSummary(ctx context.Context, id int64) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.ords[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return *o, nil
}

func (m *mockOrderStore) MarkConfirmed(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmCalls++
	if m.confirmErr != nil {
		return m.confirmErr
	}
	o, ok := m.ords[id]
	if !ok || o.Status != StatusCreated {
		return ErrInvalidTransition
	}
	o.Status = StatusConfirmed
	return nil
}

// Mock IdemStore
type mockIdemStore struct {
	mu    sync.Mutex
	recs  map[string]*IdempotencyRecord
	stale map[string]bool
}

func newMockIdemStore() *mockIdemStore {
	return &mockIdemStore{recs: map[string]*IdempotencyRecord{}, stale: map[string]bool{}}
}

func (m *mockIdemStore) Get(ctx context.Context, key string) (*IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *mockIdemStore) Claim(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[key]; ok {
		return false, nil
	}
	m.recs[key] = &IdempotencyRecord{
		Key:            key,
		TargetType:     TargetOrderConfirmation,
		ResponseStatus: 202,
		CreatedAt:      time.Now(),
	}
	return true, nil
}

func (m *mockIdemStore) ReclaimStale(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[key]
	if ok && rec.ResponseStatus == 202 && m.stale[key] {
		return true, nil
	}
	return false, nil
}

func (m *mockIdemStore) Finalize(ctx context.Context, key string, orderID int64, status int, body json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[key]
	if !ok || rec.ResponseStatus != 202 {
		return nil // record final tidak pernah ditimpa
	}
	rec.ResponseStatus = status
	rec.ResponseBody = body
	rec.TargetID = &orderID
	return nil
}

func newConfirmService(os OrderStore, is IdemStore) *ConfirmService {
	return &ConfirmService{Orders: os, Idem: is}
}

func TestConfirm_Success(t *testing.T) {
	store := newMockOrderStore(&Order{ID: 1, Status: StatusCreated, TotalCents: 1000})
	svc := newConfirmService(store, newMockIdemStore())

	res, err := svc.Confirm(context.Background(), 1, "k1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Status != 200 || !res.Transitioned {
		t.Fatalf("got status %d transitioned=%v, want 200/true", res.Status, res.Transitioned)
	}
	var body struct {
		ID         int64  `json:"id"`
		Status     Status `json:"status"`
		TotalCents int64  `json:"total_cents"`
	}
	if err := json.Unmarshal(res.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != StatusConfirmed || body.TotalCents != 1000 {
		t.Errorf("body = %+v", body)
	}
	if store.ords[1].Status != StatusConfirmed {
		t.Errorf("order status = %s, want CONFIRMED", store.ords[1].Status)
	}
}

func TestConfirm_SameKeyReplaysVerbatim(t *testing.T) {
	store := newMockOrderStore(&Order{ID: 1, Status: StatusCreated, TotalCents: 500})
	svc := newConfirmService(store, newMockIdemStore())

	first, err := svc.Confirm(context.Background(), 1, "k1")
	if err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	second, err := svc.Confirm(context.Background(), 1, "k1")
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}

	if !second.Replayed {
		t.Error("second call should be a replay")
	}
	if second.Status != first.Status || !bytes.Equal(second.Body, first.Body) {
		t.Errorf("replay not byte-identical: %s vs %s", second.Body, first.Body)
	}
	if store.confirmCalls != 1 {
		t.Errorf("state transition executed %d times, want 1", store.confirmCalls)
	}
}

func TestConfirm_FreshKeyOnConfirmedOrder(t *testing.T) {
	store := newMockOrderStore(&Order{ID: 1, Status: StatusCreated, TotalCents: 500})
	svc := newConfirmService(store, newMockIdemStore())

	if _, err := svc.Confirm(context.Background(), 1, "k1"); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	res, err := svc.Confirm(context.Background(), 1, "k2")
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}

	if res.Status != 200 || res.Transitioned {
		t.Fatalf("got status %d transitioned=%v, want 200/false", res.Status, res.Transitioned)
	}
	var body struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(res.Body, &body)
	if body.Message != "Order was already confirmed." {
		t.Errorf("message = %q", body.Message)
	}
	if store.confirmCalls != 1 {
		t.Errorf("order re-mutated: %d transitions", store.confirmCalls)
	}
}

func TestConfirm_CanceledOrder(t *testing.T) {
	store := newMockOrderStore(&Order{ID: 1, Status: StatusCanceled})
	idem := newMockIdemStore()
	svc := newConfirmService(store, idem)

	res, err := svc.Confirm(context.Background(), 1, "k1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Status != 400 {
		t.Fatalf("status = %d, want 400", res.Status)
	}
	if rec := idem.recs["k1"]; rec == nil || rec.ResponseStatus != 400 {
		t.Error("placeholder should be finalized with 400")
	}
}

func TestConfirm_OrderNotFound(t *testing.T) {
	idem := newMockIdemStore()
	svc := newConfirmService(newMockOrderStore(), idem)

	res, err := svc.Confirm(context.Background(), 42, "k1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Status != 404 {
		t.Fatalf("status = %d, want 404", res.Status)
	}
	if rec := idem.recs["k1"]; rec == nil || rec.ResponseStatus != 404 {
		t.Error("placeholder should be finalized with 404")
	}
}

func TestConfirm_InFlightPlaceholder(t *testing.T) {
	store := newMockOrderStore(&Order{ID: 1, Status: StatusCreated})
	idem := newMockIdemStore()
	svc := newConfirmService(store, idem)

	// simulasi request lain yang masih jalan
	if ok, _ := idem.Claim(context.Background(), "k1"); !ok {
		t.Fatal("claim setup failed")
	}

	res, err := svc.Confirm(context.Background(), 1, "k1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Status != 202 {
		t.Fatalf("status = %d, want 202 in-progress", res.Status)
	}
	if store.confirmCalls != 0 {
		t.Error("must not re-execute while placeholder is live")
	}
}

func TestConfirm_StalePlaceholderReclaimed(t *testing.T) {
	store := newMockOrderStore(&Order{ID: 1, Status: StatusCreated, TotalCents: 700})
	idem := newMockIdemStore()
	svc := newConfirmService(store, idem)

	// placeholder dari proses yang crash sebelum finalize
	if ok, _ := idem.Claim(context.Background(), "k1"); !ok {
		t.Fatal("claim setup failed")
	}
	idem.stale["k1"] = true

	res, err := svc.Confirm(context.Background(), 1, "k1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Status != 200 || !res.Transitioned {
		t.Fatalf("stale placeholder should be reclaimed and executed, got %d", res.Status)
	}
}

func TestConfirm_StoreFailureFinalizes500(t *testing.T) {
	store := newMockOrderStore(&Order{ID: 1, Status: StatusCreated})
	store.confirmErr = errors.New("connection reset")
	idem := newMockIdemStore()
	svc := newConfirmService(store, idem)

	res, err := svc.Confirm(context.Background(), 1, "k1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Status != 500 {
		t.Fatalf("status = %d, want 500", res.Status)
	}
	// retry berikutnya dapat jawaban final, bukan placeholder nyangkut
	if rec := idem.recs["k1"]; rec == nil || rec.ResponseStatus != 500 {
		t.Error("failure path must finalize the record")
	}
}
