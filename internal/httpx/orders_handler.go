package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-order-saga.git/internal/customers"
	kafkax "github.com/ariefcatur/go-order-saga.git/internal/kafka"
	"github.com/ariefcatur/go-order-saga.git/internal/orders"
	"github.com/ariefcatur/go-order-saga.git/internal/redisx"
)

type CreateOrderReq struct {
	CustomerID int64              `json:"customer_id"`
	Items      []orders.ItemInput `json:"items"`
}

type CreateProductReq struct {
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
	Stock      int    `json:"stock"`
}

// Producers per topic lifecycle (satu Writer per topic, pola yang sama
// dengan worker kompensasi).
type LifecycleProducers struct {
	Created   *kafkax.Producer
	Confirmed *kafkax.Producer
	Canceled  *kafkax.Producer
}

type OrdersHandler struct {
	Repo      *orders.Repo
	Confirm   *orders.ConfirmService
	Customers *customers.Client
	Producers LifecycleProducers
	Redis     *redis.Client
	Service   string
}

func (h *OrdersHandler) Register(r *chi.Mux, auth func(http.Handler) http.Handler) {
	r.Group(func(g chi.Router) {
		g.Use(auth)
		g.Post("/orders", h.createOrder)
		g.With(RequireIdempotencyKey).Post("/orders/{id}/confirm", h.confirmOrder)
		g.Post("/orders/{id}/cancel", h.cancelOrder)
		g.Get("/orders/{id}", h.getOrder)
		g.Post("/products", h.createProduct)
		g.Get("/products/{id}", h.getProduct)
		g.Get("/products", h.listProducts)
	})
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid JSON format."})
		return
	}
	if req.CustomerID <= 0 || len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Missing customer_id or items."})
		return
	}
	for _, it := range req.Items {
		if it.ProductID <= 0 || it.Qty <= 0 {
			writeJSON(w, http.StatusBadRequest,
				map[string]string{"message": "product_id and qty must be positive."})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// validasi customer SEBELUM transaksi: customer hilang tidak boleh
	// sempat megang lock product manapun
	if _, err := h.Customers.Get(ctx, req.CustomerID); err != nil {
		if errors.Is(err, customers.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Customer not found"})
			return
		}
		writeJSON(w, http.StatusBadGateway,
			map[string]string{"message": "Customer validation failed", "error": err.Error()})
		return
	}

	o, err := h.Repo.CreateOrderTx(ctx, req.CustomerID, req.Items)
	if err != nil {
		if errors.Is(err, orders.ErrProductNotFound) || errors.Is(err, orders.ErrInsufficientStock) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": err.Error()})
		return
	}

	h.cacheOrder(ctx, o)
	h.publish(h.Producers.Created, orders.EventOrderCreated, o.ID, r,
		orders.OrderCreatedPayload{
			OrderID:    o.ID,
			CustomerID: o.CustomerID,
			Items:      o.Items,
			TotalCents: o.TotalCents,
		})

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Order created successfully and stock reserved.",
		"order":   o,
	})
}

func (h *OrdersHandler) confirmOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r)
	if !ok {
		return
	}
	key := idempotencyKeyFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Confirm.Confirm(ctx, orderID, key)
	if err != nil {
		// guard idempotency tidak bisa dibaca/diklaim; tidak ada yang
		// berubah, aman buat retry
		writeJSON(w, http.StatusInternalServerError,
			map[string]string{"message": "Error confirming order", "error": err.Error()})
		return
	}

	if res.Transitioned {
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderCache, orderID)).Err()
		var p struct {
			TotalCents int64 `json:"total_cents"`
		}
		_ = json.Unmarshal(res.Body, &p)
		h.publish(h.Producers.Confirmed, orders.EventOrderConfirmed, orderID, r,
			orders.OrderConfirmedPayload{OrderID: orderID, TotalCents: p.TotalCents})
	}

	writeRaw(w, res.Status, res.Body)
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	already, err := h.Repo.CancelOrderTx(ctx, orderID)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Order not found."})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": err.Error()})
		return
	}

	if !already {
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderCache, orderID)).Err()
		h.publish(h.Producers.Canceled, orders.EventOrderCanceled, orderID, r,
			orders.OrderCanceledPayload{OrderID: orderID})
	}

	msg := "Order successfully canceled and stock restored."
	if already {
		msg = "Order already canceled."
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "status": orders.StatusCanceled})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	key := fmt.Sprintf(redisx.KeyOrderCache, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeRaw(w, http.StatusOK, []byte(s))
		return
	}

	// 2) fallback DB
	o, err := h.Repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Order not found."})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": err.Error()})
		return
	}
	h.cacheOrder(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid JSON format."})
		return
	}
	if len(req.SKU) < 3 || len(req.Name) < 3 || req.PriceCents <= 0 || req.Stock < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Validation failed"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Repo.CreateProduct(ctx, req.SKU, req.Name, req.PriceCents, req.Stock)
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"message": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *OrdersHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Repo.GetProduct(ctx, id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found."})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Repo.ListProducts(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *OrdersHandler) cacheOrder(ctx context.Context, o *orders.Order) {
	b, err := json.Marshal(o)
	if err != nil {
		return
	}
	_ = h.Redis.Set(ctx, fmt.Sprintf(redisx.KeyOrderCache, o.ID), b, redisx.TTLOrderCache).Err()
}

func (h *OrdersHandler) publish(p *kafkax.Producer, eventType string, orderID int64, r *http.Request, payload any) {
	if p == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       traceID(r),
		CorrelationID: orders.CorrelationID(orderID),
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

// traceID: request id hasil middleware chi (bukan header mentah dari
// client, yang biasanya kosong).
func traceID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid id."})
		return 0, false
	}
	return id, true
}
