package saga

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/ariefcatur/go-order-saga.git/internal/orders"
)

// OrdersAPI: port ke service orders, di-mock di test.
type OrdersAPI interface {
	CreateOrder(ctx context.Context, customerID int64, items []orders.ItemInput) (*orders.Order, error)
	ConfirmOrder(ctx context.Context, orderID int64, idemKey string) (json.RawMessage, error)
	CancelOrder(ctx context.Context, orderID int64) error
}

// CompensationQueue menampung cancel kompensasi yang gagal inline supaya
// dieksekusi ulang oleh worker. Best-effort; boleh nil.
type CompensationQueue interface {
	Enqueue(ctx context.Context, orderID int64, reason string)
}

type PlaceOrderRequest struct {
	CustomerID int64              `json:"customer_id"`
	Items      []orders.ItemInput `json:"items"`
}

type Result struct {
	Status   int
	Body     json.RawMessage
	Replayed bool // diambil dari cache, tidak ada remote call
}

// Orchestrator menjalankan saga place-order: create -> confirm, dengan
// cancel sebagai compensating action kalau confirm gagal SETELAH order
// terlanjur dibuat.
type Orchestrator struct {
	Orders OrdersAPI
	Cache  ResultCache
	Queue  CompensationQueue
}

func (o *Orchestrator) PlaceOrder(ctx context.Context, req PlaceOrderRequest) Result {
	// validasi input dulu; gagal di sini tidak menyentuh cache ataupun
	// state remote manapun
	if req.CustomerID <= 0 || len(req.Items) == 0 {
		return jsonResult(400, map[string]string{"message": "Missing customer_id or items."})
	}

	key := DeriveKey(req.CustomerID, req.Items)
	if cached, err := o.Cache.Get(ctx, key); err != nil {
		// cache down bukan alasan menolak order; lanjut tanpa replay guard
		slog.WarnContext(ctx, "saga cache lookup failed", "error", err)
	} else if cached != nil {
		slog.InfoContext(ctx, "saga replayed from cache", "customer_id", req.CustomerID)
		return Result{Status: cached.Status, Body: cached.Body, Replayed: true}
	}

	created, err := o.Orders.CreateOrder(ctx, req.CustomerID, req.Items)
	if err != nil {
		// belum ada order = belum ada yang perlu dikompensasi
		slog.ErrorContext(ctx, "saga create step failed",
			"customer_id", req.CustomerID, "error", err)
		return failureResult(err)
	}

	confirmRaw, err := o.Orders.ConfirmOrder(ctx, created.ID, ConfirmKey(req.CustomerID, created.ID))
	if err != nil {
		o.compensate(ctx, created.ID, err)
		// response ke caller tetap error confirm, bukan hasil kompensasi
		return failureResult(err)
	}

	var confirmed struct {
		Status     orders.Status `json:"status"`
		TotalCents int64         `json:"total_cents"`
	}
	_ = json.Unmarshal(confirmRaw, &confirmed)

	body := map[string]any{
		"message":     "Order successfully created and confirmed.",
		"order_id":    created.ID,
		"status":      confirmed.Status,
		"total_cents": confirmed.TotalCents,
		"details":     json.RawMessage(confirmRaw),
		"customer_id": req.CustomerID,
	}
	res := jsonResult(200, body)

	if err := o.Cache.Put(ctx, key, CachedResponse{Status: res.Status, Body: res.Body}); err != nil {
		slog.WarnContext(ctx, "saga cache store failed", "order_id", created.ID, "error", err)
	}
	return res
}

// compensate: satu percobaan cancel inline. Gagal pun tidak menutupi
// error confirm asli; hanya di-log dan diantrikan buat worker.
func (o *Orchestrator) compensate(ctx context.Context, orderID int64, cause error) {
	slog.ErrorContext(ctx, "saga confirm step failed, cancelling order",
		"order_id", orderID, "error", cause)
	if err := o.Orders.CancelOrder(ctx, orderID); err != nil {
		slog.ErrorContext(ctx, "CRITICAL: compensating cancel failed",
			"order_id", orderID, "confirm_error", cause, "cancel_error", err)
		if o.Queue != nil {
			o.Queue.Enqueue(ctx, orderID, cause.Error())
		}
		return
	}
	slog.InfoContext(ctx, "order cancelled, stock restored", "order_id", orderID)
}

func failureResult(err error) Result {
	status := 500
	detailed := "Internal Server Error during orchestration."
	var re *RemoteError
	if errors.As(err, &re) {
		status = re.Status
		detailed = re.Message
	}
	return jsonResult(status, map[string]string{
		"message": "Order orchestration failed. Reason: " + detailed,
		"details": err.Error(),
	})
}

func jsonResult(status int, v any) Result {
	b, _ := json.Marshal(v)
	return Result{Status: status, Body: b}
}
