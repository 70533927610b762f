package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated          = "OrderCreated"
	EventOrderConfirmed        = "OrderConfirmed"
	EventOrderCanceled         = "OrderCanceled"
	EventCompensationRequested = "CompensationRequested"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "orders-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type OrderCreatedPayload struct {
	OrderID    int64       `json:"order_id"`
	CustomerID int64       `json:"customer_id"`
	Items      []OrderItem `json:"items"`
	TotalCents int64       `json:"total_cents"`
}

type OrderConfirmedPayload struct {
	OrderID    int64 `json:"order_id"`
	TotalCents int64 `json:"total_cents"`
}

// OrderCanceledPayload hanya terbit untuk cancel yang benar-benar
// merestore stok; cancel kedua (no-op) tidak menghasilkan event.
type OrderCanceledPayload struct {
	OrderID int64 `json:"order_id"`
}

// CompensationRequestedPayload: cancel kompensasi yang gagal inline,
// diantrikan supaya worker bisa mengulang sampai sukses.
type CompensationRequestedPayload struct {
	OrderID int64  `json:"order_id"`
	Reason  string `json:"reason"`
}
