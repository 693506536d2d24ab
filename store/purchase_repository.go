package store

import (
	"context"
	"database/sql"
	"errors"

	"marketplace-svc/models"
)

const purchaseColumns = "id, session_id, product_id, product_name, buyer_email, seller_email, quantity, total_price, purchase_date"

func scanPurchase(row interface{ Scan(dest ...any) error }) (models.Purchase, error) {
	var p models.Purchase
	err := row.Scan(&p.ID, &p.SessionID, &p.ProductID, &p.ProductName, &p.BuyerEmail,
		&p.SellerEmail, &p.Quantity, &p.TotalPrice, &p.PurchaseDate)
	return p, err
}

// PurchaseBySession returns the purchase recorded for a checkout session, or
// nil when the session has not been fulfilled.
func (s *Store) PurchaseBySession(ctx context.Context, sessionID string) (*models.Purchase, error) {
	p, err := scanPurchase(s.q(ctx).QueryRowContext(ctx,
		"SELECT "+purchaseColumns+" FROM purchases WHERE session_id = $1", sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreatePurchase(ctx context.Context, p models.Purchase) error {
	_, err := s.q(ctx).ExecContext(ctx,
		"INSERT INTO purchases ("+purchaseColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		p.ID, p.SessionID, p.ProductID, p.ProductName, p.BuyerEmail, p.SellerEmail,
		p.Quantity, p.TotalPrice, p.PurchaseDate,
	)
	if isUniqueViolation(err) {
		return models.ErrDuplicatePurchase
	}
	return err
}

func (s *Store) ListPurchasesByBuyer(ctx context.Context, email string) ([]models.Purchase, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		"SELECT "+purchaseColumns+" FROM purchases WHERE buyer_email = $1 ORDER BY purchase_date DESC", email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := []models.Purchase{}
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}
