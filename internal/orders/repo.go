package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// CreateOrderTx: reservasi stok + buat order dalam SATU transaksi.
// Lock per product (FOR UPDATE) -> cek stok -> insert order + items ->
// kurangi stok. Gagal di item manapun = rollback semua (tidak ada
// reservasi parsial). Validasi customer terjadi di layer atas, sebelum
// ada lock yang dipegang.
func (r *Repo) CreateOrderTx(ctx context.Context, customerID int64, items []ItemInput) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// gabungkan baris dengan product_id sama; tanpa ini qty kumulatif
	// lolos cek stok per baris lalu gagal di CHECK stock >= 0
	merged := make([]ItemInput, 0, len(items))
	seen := make(map[int64]int, len(items))
	for _, it := range items {
		if j, ok := seen[it.ProductID]; ok {
			merged[j].Qty += it.Qty
			continue
		}
		seen[it.ProductID] = len(merged)
		merged = append(merged, it)
	}

	var total int64
	frozen := make([]OrderItem, 0, len(merged))
	for _, it := range merged {
		var priceCents, stock int
		err := tx.QueryRow(ctx,
			`SELECT price_cents, stock FROM products WHERE id=$1 FOR UPDATE`,
			it.ProductID).Scan(&priceCents, &stock)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %d", ErrProductNotFound, it.ProductID)
		}
		if err != nil {
			return nil, err
		}
		if stock < it.Qty {
			return nil, fmt.Errorf("%w: product %d available %d, requested %d",
				ErrInsufficientStock, it.ProductID, stock, it.Qty)
		}

		subtotal := int64(priceCents) * int64(it.Qty)
		total += subtotal
		frozen = append(frozen, OrderItem{
			ProductID:      it.ProductID,
			Qty:            it.Qty,
			UnitPriceCents: priceCents,
			SubtotalCents:  subtotal,
		})
	}

	o := &Order{CustomerID: customerID, Status: StatusCreated, TotalCents: total}
	err = tx.QueryRow(ctx,
		`INSERT INTO orders(customer_id, status, total_cents) VALUES ($1,$2,$3)
		 RETURNING id, created_at, updated_at`,
		customerID, StatusCreated, total).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	for i := range frozen {
		frozen[i].OrderID = o.ID
		if _, err := tx.Exec(ctx,
			`INSERT INTO order_items(order_id, product_id, qty, unit_price_cents, subtotal_cents)
			 VALUES ($1,$2,$3,$4,$5)`,
			o.ID, frozen[i].ProductID, frozen[i].Qty, frozen[i].UnitPriceCents, frozen[i].SubtotalCents,
		); err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $2, updated_at = now() WHERE id=$1`,
			frozen[i].ProductID, frozen[i].Qty,
		); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	o.Items = frozen
	return o, nil
}

// CancelOrderTx: lock order row, restore stok sesuai qty yang TERCATAT di
// items, set CANCELED. Order yang sudah CANCELED = no-op idempotent
// (tanpa restore kedua). already=true kalau sebelumnya sudah CANCELED.
func (r *Repo) CancelOrderTx(ctx context.Context, orderID int64) (already bool, err error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("%w: order %d", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return false, err
	}

	if status == StatusCanceled {
		return true, tx.Commit(ctx)
	}

	rows, err := tx.Query(ctx,
		`SELECT product_id, qty FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return false, err
	}
	type rec struct {
		pid int64
		qty int
	}
	var recs []rec
	for rows.Next() {
		var x rec
		if err := rows.Scan(&x.pid, &x.qty); err != nil {
			rows.Close()
			return false, err
		}
		recs = append(recs, x)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, err
	}

	for _, x := range recs {
		if _, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock + $2, updated_at = now() WHERE id=$1`,
			x.pid, x.qty,
		); err != nil {
			return false, err
		}
	}
	if _, err := tx.Exec(ctx,
		`UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`,
		orderID, StatusCanceled,
	); err != nil {
		return false, err
	}
	return false, tx.Commit(ctx)
}

func (r *Repo) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx,
		`SELECT id, customer_id, status, total_cents, created_at, updated_at
		 FROM orders WHERE id=$1`, orderID,
	).Scan(&o.ID, &o.CustomerID, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: order %d", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx,
		`SELECT id, product_id, qty, unit_price_cents, subtotal_cents
		 FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		it := OrderItem{OrderID: o.ID}
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Qty, &it.UnitPriceCents, &it.SubtotalCents); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return &o, rows.Err()
}

// OrderSummary: baca ringan utk jalur confirm (tanpa items).
func (r *Repo) OrderSummary(ctx context.Context, orderID int64) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx,
		`SELECT id, status, total_cents FROM orders WHERE id=$1`, orderID,
	).Scan(&o.ID, &o.Status, &o.TotalCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: order %d", ErrOrderNotFound, orderID)
	}
	return o, err
}

// MarkConfirmed: transisi CREATED -> CONFIRMED, dijaga di SQL supaya
// race antar dua confirm tidak bisa menulis dua kali.
func (r *Repo) MarkConfirmed(ctx context.Context, orderID int64) error {
	ct, err := r.DB.Exec(ctx,
		`UPDATE orders SET status=$2, updated_at=now() WHERE id=$1 AND status=$3`,
		orderID, StatusConfirmed, StatusCreated)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("%w: order %d not in %s", ErrInvalidTransition, orderID, StatusCreated)
	}
	return nil
}

// ---- products ----

func (r *Repo) CreateProduct(ctx context.Context, sku, name string, priceCents, stock int) (*Product, error) {
	p := &Product{SKU: sku, Name: name, PriceCents: priceCents, Stock: stock}
	err := r.DB.QueryRow(ctx,
		`INSERT INTO products(sku, name, price_cents, stock) VALUES ($1,$2,$3,$4)
		 RETURNING id, created_at, updated_at`,
		sku, name, priceCents, stock).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("sku %q already exists", sku)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repo) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx,
		`SELECT id, sku, name, price_cents, stock, created_at, updated_at
		 FROM products WHERE id=$1`, id,
	).Scan(&p.ID, &p.SKU, &p.Name, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %d", ErrProductNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, sku, name, price_cents, stock, created_at, updated_at
		 FROM products ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// 23505 = unique_violation
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
