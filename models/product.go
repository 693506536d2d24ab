package models

import "github.com/shopspring/decimal"

type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Email    string          `json:"email"`
}

type CreateProductRequest struct {
	ID       string          `json:"id"`
	Name     string          `json:"name" binding:"required"`
	Quantity int             `json:"quantity" binding:"gte=0"`
	Price    decimal.Decimal `json:"price"`
}

type UpdateProductRequest struct {
	Name     string           `json:"name"`
	Quantity *int             `json:"quantity" binding:"omitempty,gte=0"`
	Price    *decimal.Decimal `json:"price"`
}
