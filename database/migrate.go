package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		email VARCHAR(255) PRIMARY KEY,
		password VARCHAR(255) NOT NULL,
		type VARCHAR(20) NOT NULL CHECK (type IN ('Farmer', 'Customer')),
		earning NUMERIC(12, 2) NOT NULL DEFAULT 0 CHECK (earning >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity >= 0),
		price NUMERIC(12, 2) NOT NULL CHECK (price > 0),
		email VARCHAR(255) NOT NULL REFERENCES users(email)
	)`,
	`CREATE TABLE IF NOT EXISTS purchases (
		id UUID PRIMARY KEY,
		session_id VARCHAR(255) NOT NULL UNIQUE,
		product_id VARCHAR(64) NOT NULL,
		product_name VARCHAR(255) NOT NULL,
		buyer_email VARCHAR(255) NOT NULL REFERENCES users(email),
		seller_email VARCHAR(255) NOT NULL REFERENCES users(email),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		total_price NUMERIC(12, 2) NOT NULL,
		purchase_date TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS purchases_buyer_email_idx ON purchases (buyer_email, purchase_date DESC)`,
	`CREATE INDEX IF NOT EXISTS products_email_idx ON products (email)`,
}

// Migrate creates the users, products and purchases tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}

	logger.Info("Database schema ready", zap.Int("statements", len(schema)))
	return nil
}
