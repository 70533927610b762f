package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-order-saga.git/internal/customers"
)

type CreateCustomerReq struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type CustomersHandler struct {
	Repo *customers.Repo
}

func (h *CustomersHandler) Register(r *chi.Mux, auth func(http.Handler) http.Handler) {
	r.Group(func(g chi.Router) {
		g.Use(auth)
		g.Post("/customers", h.createCustomer)
		g.Get("/customers/{id}", h.getCustomer)
		g.Get("/customers", h.searchCustomers)
	})
}

func (h *CustomersHandler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid JSON format."})
		return
	}
	if len(req.Name) < 3 || !strings.Contains(req.Email, "@") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Validation failed"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.Repo.Create(ctx, req.Name, req.Email, req.Phone)
	if err != nil {
		if errors.Is(err, customers.ErrEmailExists) {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "Email already exists."})
			return
		}
		writeJSON(w, http.StatusInternalServerError,
			map[string]string{"message": "Error creating customer", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CustomersHandler) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid id."})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.Repo.Get(ctx, id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Customer not found"})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CustomersHandler) searchCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	cursor, _ := strconv.ParseInt(q.Get("cursor"), 10, 64)

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Repo.Search(ctx, q.Get("search"), limit, cursor)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Error fetching customers"})
		return
	}
	if out == nil {
		out = []customers.Customer{}
	}
	writeJSON(w, http.StatusOK, out)
}
