package orders

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const TargetOrderConfirmation = "ORDER_CONFIRMATION"

// IdemRepo: guard idempotency durable utk confirm. Baris placeholder
// (status 202) berfungsi sebagai mutex surrogate: inserter pertama yang
// menang boleh lanjut, sisanya baca hasil final.
type IdemRepo struct {
	DB *pgxpool.Pool

	// Placeholder lebih tua dari Lease dianggap stale (proses pemilik
	// kemungkinan crash sebelum finalize) dan boleh diklaim ulang.
	Lease time.Duration
}

func (r *IdemRepo) Get(ctx context.Context, key string) (*IdempotencyRecord, error) {
	var rec IdempotencyRecord
	err := r.DB.QueryRow(ctx,
		`SELECT key, target_type, target_id, response_status, response_body, created_at
		 FROM idempotency_keys WHERE key=$1`, key,
	).Scan(&rec.Key, &rec.TargetType, &rec.TargetID, &rec.ResponseStatus, &rec.ResponseBody, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Claim: insert placeholder 202 secara atomik. false = kalah race,
// key sudah ada (placeholder orang lain atau record final).
func (r *IdemRepo) Claim(ctx context.Context, key string) (bool, error) {
	ct, err := r.DB.Exec(ctx,
		`INSERT INTO idempotency_keys(key, target_type, response_status)
		 VALUES ($1,$2,202)
		 ON CONFLICT (key) DO NOTHING`,
		key, TargetOrderConfirmation)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// ReclaimStale: ambil alih placeholder yang melewati lease dengan
// me-reset created_at. Menutup celah crash antara claim dan finalize.
func (r *IdemRepo) ReclaimStale(ctx context.Context, key string) (bool, error) {
	if r.Lease <= 0 {
		return false, nil
	}
	ct, err := r.DB.Exec(ctx,
		`UPDATE idempotency_keys SET created_at = now()
		 WHERE key=$1 AND response_status=202
		   AND created_at < now() - ($2 * interval '1 second')`,
		key, r.Lease.Seconds())
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// Finalize: tulis hasil final tepat sekali. Record yang sudah final
// tidak pernah ditimpa (retry lambat tidak boleh mengubah jawaban).
func (r *IdemRepo) Finalize(ctx context.Context, key string, orderID int64, status int, body json.RawMessage) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE idempotency_keys
		 SET response_status=$2, response_body=$3, target_id=$4
		 WHERE key=$1 AND response_status=202`,
		key, status, body, orderID)
	return err
}
