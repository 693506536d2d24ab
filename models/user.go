package models

import "github.com/shopspring/decimal"

type UserType string

const (
	UserTypeFarmer   UserType = "Farmer"
	UserTypeCustomer UserType = "Customer"
)

func (t UserType) Valid() bool {
	return t == UserTypeFarmer || t == UserTypeCustomer
}

type User struct {
	Email    string          `json:"email"`
	Password string          `json:"-"`
	Type     UserType        `json:"type"`
	Earning  decimal.Decimal `json:"earning"`
}

type RegisterRequest struct {
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required,min=6"`
	Type     UserType `json:"type" binding:"required,oneof=Farmer Customer"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Profile struct {
	Email      string          `json:"email"`
	Type       UserType        `json:"type"`
	Earning    decimal.Decimal `json:"earning"`
	Purchases  []Purchase      `json:"purchases"`
	TotalSpent decimal.Decimal `json:"totalSpent"`
}
