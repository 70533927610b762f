package compensator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-order-saga.git/internal/orders"
	"github.com/ariefcatur/go-order-saga.git/internal/redisx"
	"github.com/ariefcatur/go-order-saga.git/internal/saga"
)

// Canceler: subset OrdersAPI yang dibutuhkan worker.
type Canceler interface {
	CancelOrder(ctx context.Context, orderID int64) error
}

// Service mengeksekusi ulang cancel kompensasi yang gagal inline di
// orchestrator. Cancel sendiri idempotent (double-cancel = no-op), jadi
// retry aman; dedup Redis (opsional, boleh nil) cuma memangkas kerja ulang.
type Service struct {
	Orders      Canceler
	Redis       *redis.Client
	ServiceName string
}

// HandleCompensationRequested: dipasang sebagai handler consumer.
// Return non-nil = offset tidak di-commit, event diproses ulang.
func (s *Service) HandleCompensationRequested(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventCompensationRequested {
		return nil // bukan urusan worker ini
	}

	// marker "sudah beres" dicek dulu; baru DITULIS setelah cancel sukses,
	// supaya cancel yang gagal tetap bisa diproses ulang
	dkey := fmt.Sprintf(redisx.KeyDedup, "compensator", env.EventID)
	if s.Redis != nil {
		if done, err := s.Redis.Exists(ctx, dkey).Result(); err == nil && done > 0 {
			return nil
		}
	}

	var p orders.CompensationRequestedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return err
	}

	if err := s.Orders.CancelOrder(ctx, p.OrderID); err != nil {
		var re *saga.RemoteError
		if errors.As(err, &re) && re.Status == 404 {
			// order sudah tidak ada; tidak ada yang bisa direstore
			slog.WarnContext(ctx, "compensation target gone", "order_id", p.OrderID)
			return nil
		}
		slog.ErrorContext(ctx, "retried compensation failed",
			"order_id", p.OrderID, "error", err)
		return err
	}

	if s.Redis != nil {
		if _, err := redisx.ClaimOnce(ctx, s.Redis, dkey, redisx.TTLDedup); err != nil {
			slog.WarnContext(ctx, "dedup marker write failed", "event_id", env.EventID, "error", err)
		}
	}
	slog.InfoContext(ctx, "compensation completed",
		"order_id", p.OrderID, "reason", p.Reason)
	return nil
}
