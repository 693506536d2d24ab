package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase is an immutable ledger row written once per fulfilled checkout
// session. SessionID is unique across the table.
type Purchase struct {
	ID           string          `json:"id"`
	SessionID    string          `json:"session_id"`
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	BuyerEmail   string          `json:"buyer_email"`
	SellerEmail  string          `json:"seller_email"`
	Quantity     int             `json:"quantity"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	PurchaseDate time.Time       `json:"purchase_date"`
}

type CheckoutRequest struct {
	ProductID string           `json:"productId" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required"`
	UnitPrice *decimal.Decimal `json:"unitPrice"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}
