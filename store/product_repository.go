package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"marketplace-svc/models"
)

const productColumns = "id, name, quantity, price, email"

func scanProduct(row interface{ Scan(dest ...any) error }) (models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Name, &p.Quantity, &p.Price, &p.Email)
	return p, err
}

func (s *Store) queryProducts(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ListAvailableProducts returns the marketplace listing: every product with stock left.
func (s *Store) ListAvailableProducts(ctx context.Context) ([]models.Product, error) {
	return s.queryProducts(ctx, "SELECT "+productColumns+" FROM products WHERE quantity > 0 ORDER BY name")
}

// ListProductsBySeller returns a farmer's own products, including sold-out ones.
func (s *Store) ListProductsBySeller(ctx context.Context, email string) ([]models.Product, error) {
	return s.queryProducts(ctx, "SELECT "+productColumns+" FROM products WHERE email = $1 ORDER BY name", email)
}

func (s *Store) GetProduct(ctx context.Context, id string) (models.Product, error) {
	p, err := scanProduct(s.q(ctx).QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, models.ErrProductNotFound
	}
	return p, err
}

// GetProductForUpdate locks the product row until the surrounding transaction ends.
func (s *Store) GetProductForUpdate(ctx context.Context, id string) (models.Product, error) {
	p, err := scanProduct(s.q(ctx).QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1 FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, models.ErrProductNotFound
	}
	return p, err
}

func (s *Store) SetProductQuantity(ctx context.Context, id string, quantity int) error {
	res, err := s.q(ctx).ExecContext(ctx, "UPDATE products SET quantity = $1 WHERE id = $2", quantity, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, models.ErrProductNotFound)
}

func (s *Store) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	created, err := scanProduct(s.q(ctx).QueryRowContext(ctx,
		"INSERT INTO products (id, name, quantity, price, email) VALUES ($1, $2, $3, $4, $5) RETURNING "+productColumns,
		p.ID, p.Name, p.Quantity, p.Price, p.Email,
	))
	if isUniqueViolation(err) {
		return models.Product{}, fmt.Errorf("%w: product %s already exists", models.ErrValidation, p.ID)
	}
	return created, err
}

// UpdateProduct applies the non-empty fields of req to a product owned by email.
func (s *Store) UpdateProduct(ctx context.Context, id, email string, req models.UpdateProductRequest) (models.Product, error) {
	query := "UPDATE products SET id = id"
	args := []any{}
	argPos := 1

	if req.Name != "" {
		query += ", name = $" + strconv.Itoa(argPos)
		args = append(args, req.Name)
		argPos++
	}
	if req.Quantity != nil {
		query += ", quantity = $" + strconv.Itoa(argPos)
		args = append(args, *req.Quantity)
		argPos++
	}
	if req.Price != nil {
		query += ", price = $" + strconv.Itoa(argPos)
		args = append(args, *req.Price)
		argPos++
	}

	query += " WHERE id = $" + strconv.Itoa(argPos) + " AND email = $" + strconv.Itoa(argPos+1) + " RETURNING " + productColumns
	args = append(args, id, email)

	p, err := scanProduct(s.q(ctx).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, models.ErrProductNotFound
	}
	return p, err
}

func (s *Store) DeleteProduct(ctx context.Context, id, email string) error {
	res, err := s.q(ctx).ExecContext(ctx, "DELETE FROM products WHERE id = $1 AND email = $2", id, email)
	if err != nil {
		return err
	}
	return expectOneRow(res, models.ErrProductNotFound)
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
