package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DDL dijalankan sekali saat startup; idempotent via IF NOT EXISTS.
const schema = `
CREATE TABLE IF NOT EXISTS products (
    id           BIGSERIAL PRIMARY KEY,
    sku          TEXT      NOT NULL UNIQUE,
    name         TEXT      NOT NULL,
    price_cents  INT       NOT NULL CHECK (price_cents > 0),
    stock        INT       NOT NULL CHECK (stock >= 0),
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS orders (
    id           BIGSERIAL PRIMARY KEY,
    customer_id  BIGINT    NOT NULL,
    status       TEXT      NOT NULL,
    total_cents  BIGINT    NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS order_items (
    id               BIGSERIAL PRIMARY KEY,
    order_id         BIGINT NOT NULL REFERENCES orders(id),
    product_id       BIGINT NOT NULL REFERENCES products(id),
    qty              INT    NOT NULL CHECK (qty > 0),
    unit_price_cents INT    NOT NULL,
    subtotal_cents   BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);

-- Guard idempotency utk confirm. key unik; status 202 = placeholder
-- (sedang diproses), selain itu = final. Tanpa TTL, record dipertahankan.
CREATE TABLE IF NOT EXISTS idempotency_keys (
    key             TEXT      PRIMARY KEY,
    target_type     TEXT      NOT NULL,
    target_id       BIGINT,
    response_status INT       NOT NULL,
    response_body   JSONB,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS customers (
    id         BIGSERIAL PRIMARY KEY,
    name       TEXT NOT NULL,
    email      TEXT NOT NULL UNIQUE,
    phone      TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema: bootstrap tabel saat service start (tanpa tool migrasi).
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
