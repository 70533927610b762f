package saga

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/go-order-saga.git/internal/orders"
)

// DeriveKey: hash deterministik dari (customer_id, items) — request yang
// sama persis selalu menghasilkan key yang sama, jadi submit ganda
// me-replay response lama tanpa bikin order kedua.
func DeriveKey(customerID int64, items []orders.ItemInput) string {
	payload := struct {
		CustomerID int64              `json:"customer_id"`
		Items      []orders.ItemInput `json:"items"`
	}{customerID, items}
	b, _ := json.Marshal(payload) // field order tetap, serialisasi kanonik
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ConfirmKey hanya menjaga sub-step confirm; stabil lintas retry
// orchestrator utk order yang sama (beda dengan saga key).
func ConfirmKey(customerID, orderID int64) string {
	return fmt.Sprintf("%d-%d-CONFIRM", customerID, orderID)
}
