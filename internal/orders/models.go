package orders

import (
	"encoding/json"
	"time"
)

type Product struct {
	ID         int64     `json:"id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	PriceCents int       `json:"price_cents"`
	Stock      int       `json:"stock"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Order struct {
	ID         int64       `json:"id"`
	CustomerID int64       `json:"customer_id"`
	Status     Status      `json:"status"`
	TotalCents int64       `json:"total_cents"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Items      []OrderItem `json:"items,omitempty"`
}

// Harga dibekukan saat order dibuat; tidak pernah dihitung ulang dari
// harga produk terkini.
type OrderItem struct {
	ID             int64 `json:"-"`
	OrderID        int64 `json:"-"`
	ProductID      int64 `json:"product_id"`
	Qty            int   `json:"qty"`
	UnitPriceCents int   `json:"unit_price_cents"`
	SubtotalCents  int64 `json:"subtotal_cents"`
}

type ItemInput struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}

// IdempotencyRecord: satu baris idempotency_keys.
// ResponseStatus 202 = placeholder (in-flight), selain itu final.
type IdempotencyRecord struct {
	Key            string
	TargetType     string
	TargetID       *int64
	ResponseStatus int
	ResponseBody   json.RawMessage
	CreatedAt      time.Time
}

func (r *IdempotencyRecord) Finalized() bool {
	return r.ResponseStatus != 0 && r.ResponseStatus != 202
}
