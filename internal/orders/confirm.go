package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
)

// OrderStore / IdemStore: port kecil supaya protokol confirm bisa diuji
// tanpa Postgres. *Repo dan *IdemRepo memenuhi keduanya.
type OrderStore interface {
	OrderSummary(ctx context.Context, orderID int64) (Order, error)
	MarkConfirmed(ctx context.Context, orderID int64) error
}

type IdemStore interface {
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	Claim(ctx context.Context, key string) (bool, error)
	ReclaimStale(ctx context.Context, key string) (bool, error)
	Finalize(ctx context.Context, key string, orderID int64, status int, body json.RawMessage) error
}

type ConfirmResult struct {
	Status int
	Body   json.RawMessage

	// Replayed: jawaban diambil verbatim dari record final, order tidak
	// disentuh. Transitioned: call INI yang menggeser CREATED->CONFIRMED.
	Replayed     bool
	Transitioned bool
}

type confirmBody struct {
	ID         int64  `json:"id"`
	Status     Status `json:"status,omitempty"`
	TotalCents *int64 `json:"total_cents,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ConfirmService menjalankan confirm yang idempotent lintas retry DAN
// lintas restart proses: guard-nya baris idempotency_keys, bukan memori.
type ConfirmService struct {
	Orders OrderStore
	Idem   IdemStore
}

// Confirm protocol:
//  1. record final utk key ini -> replay response tersimpan apa adanya
//  2. belum ada record -> klaim placeholder 202 dulu (inserter pertama
//     yang jalan; yang kalah baca hasil final atau dapat 202 in-progress)
//  3. placeholder orang lain masih hidup -> 202, kecuali sudah lewat
//     lease (pemilik diasumsikan crash) -> klaim ulang
//  4. setiap jalur keluar mem-finalize placeholder sebelum merespons,
//     termasuk failure (500) supaya retry tidak menggantung selamanya
func (s *ConfirmService) Confirm(ctx context.Context, orderID int64, key string) (ConfirmResult, error) {
	rec, err := s.Idem.Get(ctx, key)
	if err != nil {
		return ConfirmResult{}, err
	}
	if rec != nil && rec.Finalized() {
		return ConfirmResult{Status: rec.ResponseStatus, Body: rec.ResponseBody, Replayed: true}, nil
	}

	if rec == nil {
		claimed, err := s.Idem.Claim(ctx, key)
		if err != nil {
			return ConfirmResult{}, err
		}
		if !claimed {
			// kalah race insert; pemenangnya mungkin sudah selesai
			rec, err = s.Idem.Get(ctx, key)
			if err != nil {
				return ConfirmResult{}, err
			}
			if rec != nil && rec.Finalized() {
				return ConfirmResult{Status: rec.ResponseStatus, Body: rec.ResponseBody, Replayed: true}, nil
			}
			return inProgress(orderID), nil
		}
	} else {
		ok, err := s.Idem.ReclaimStale(ctx, key)
		if err != nil {
			return ConfirmResult{}, err
		}
		if !ok {
			return inProgress(orderID), nil
		}
		slog.WarnContext(ctx, "reclaimed stale idempotency placeholder",
			"key", key, "order_id", orderID)
	}

	return s.execute(ctx, orderID, key), nil
}

func (s *ConfirmService) execute(ctx context.Context, orderID int64, key string) ConfirmResult {
	o, err := s.Orders.OrderSummary(ctx, orderID)
	if errors.Is(err, ErrOrderNotFound) {
		return s.finalize(ctx, key, orderID, 404,
			confirmBody{ID: orderID, Message: "Order not found."}, false)
	}
	if err != nil {
		return s.fail(ctx, key, orderID, err)
	}

	switch o.Status {
	case StatusConfirmed:
		// idempotent juga utk key BARU: order tidak dimutasi ulang
		return s.finalize(ctx, key, orderID, 200,
			confirmBody{ID: orderID, Status: StatusConfirmed, Message: "Order was already confirmed."}, false)
	case StatusCanceled:
		return s.finalize(ctx, key, orderID, 400,
			confirmBody{ID: orderID, Status: StatusCanceled, Message: "Cannot confirm a canceled order."}, false)
	}

	if err := s.Orders.MarkConfirmed(ctx, orderID); err != nil {
		return s.fail(ctx, key, orderID, err)
	}

	return s.finalize(ctx, key, orderID, 200,
		confirmBody{ID: orderID, Status: StatusConfirmed, TotalCents: &o.TotalCents}, true)
}

func (s *ConfirmService) finalize(ctx context.Context, key string, orderID int64, status int, body confirmBody, transitioned bool) ConfirmResult {
	b, err := json.Marshal(body)
	if err != nil {
		return s.fail(ctx, key, orderID, err)
	}
	if err := s.Idem.Finalize(ctx, key, orderID, status, b); err != nil {
		// hasil tetap dikembalikan; retry berikutnya memukul lease
		slog.ErrorContext(ctx, "finalize idempotency record failed",
			"key", key, "order_id", orderID, "error", err)
	}
	return ConfirmResult{Status: status, Body: b, Transitioned: transitioned}
}

func (s *ConfirmService) fail(ctx context.Context, key string, orderID int64, cause error) ConfirmResult {
	slog.ErrorContext(ctx, "confirm order failed",
		"key", key, "order_id", orderID, "error", cause)
	b, _ := json.Marshal(map[string]string{
		"message": "Error confirming order",
		"error":   cause.Error(),
	})
	if err := s.Idem.Finalize(ctx, key, orderID, 500, b); err != nil {
		slog.ErrorContext(ctx, "finalize idempotency record failed",
			"key", key, "order_id", orderID, "error", err)
	}
	return ConfirmResult{Status: 500, Body: b}
}

func inProgress(orderID int64) ConfirmResult {
	b, _ := json.Marshal(map[string]any{
		"id":      orderID,
		"message": "Confirmation already in progress.",
	})
	return ConfirmResult{Status: 202, Body: b}
}
