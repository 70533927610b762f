package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrEmailExists = errors.New("email already exists")

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Create(ctx context.Context, name, email, phone string) (*Customer, error) {
	c := &Customer{Name: name, Email: email, Phone: phone}
	err := r.DB.QueryRow(ctx,
		`INSERT INTO customers(name, email, phone) VALUES ($1,$2,$3)
		 RETURNING id, created_at`,
		name, email, nullable(phone)).Scan(&c.ID, &c.CreatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: %s", ErrEmailExists, email)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (*Customer, error) {
	var c Customer
	var phone *string
	err := r.DB.QueryRow(ctx,
		`SELECT id, name, email, phone, created_at FROM customers WHERE id=$1`, id,
	).Scan(&c.ID, &c.Name, &c.Email, &phone, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if phone != nil {
		c.Phone = *phone
	}
	return &c, nil
}

// Search: keyset pagination by id (cursor = id terakhir halaman sebelumnya).
func (r *Repo) Search(ctx context.Context, search string, limit int, cursor int64) ([]Customer, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := r.DB.Query(ctx,
		`SELECT id, name, email, phone, created_at FROM customers
		 WHERE id > $1 AND ($2 = '' OR name ILIKE '%'||$2||'%' OR email ILIKE '%'||$2||'%')
		 ORDER BY id LIMIT $3`,
		cursor, search, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		var c Customer
		var phone *string
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &phone, &c.CreatedAt); err != nil {
			return nil, err
		}
		if phone != nil {
			c.Phone = *phone
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
