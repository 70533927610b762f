package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-order-saga.git/internal/saga"
)

// SagaHandler: entry point publik satu-satunya orchestrator.
type SagaHandler struct {
	Orch *saga.Orchestrator
}

func (h *SagaHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.placeOrder)
}

func (h *SagaHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req saga.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid JSON format."})
		return
	}

	// status code ke caller memantulkan outcome efektif saga (termasuk
	// status downstream yang dipantulkan RemoteError)
	res := h.Orch.PlaceOrder(r.Context(), req)
	writeRaw(w, res.Status, res.Body)
}
