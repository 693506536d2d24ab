package store

import (
	"context"
	"database/sql"
	"errors"

	"marketplace-svc/models"

	"github.com/shopspring/decimal"
)

func (s *Store) GetUser(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.q(ctx).QueryRowContext(ctx,
		"SELECT email, password, type, earning FROM users WHERE email = $1", email,
	).Scan(&u.Email, &u.Password, &u.Type, &u.Earning)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, models.ErrUserNotFound
	}
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, u models.User) error {
	_, err := s.q(ctx).ExecContext(ctx,
		"INSERT INTO users (email, password, type, earning) VALUES ($1, $2, $3, 0)",
		u.Email, u.Password, u.Type,
	)
	if isUniqueViolation(err) {
		return models.ErrUserExists
	}
	return err
}

// EnsureUser inserts u unless an account with the same email exists. It
// reports whether a row was created.
func (s *Store) EnsureUser(ctx context.Context, u models.User) (bool, error) {
	res, err := s.q(ctx).ExecContext(ctx,
		"INSERT INTO users (email, password, type, earning) VALUES ($1, $2, $3, 0) ON CONFLICT (email) DO NOTHING",
		u.Email, u.Password, u.Type,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) CreditEarning(ctx context.Context, email string, amount decimal.Decimal) error {
	res, err := s.q(ctx).ExecContext(ctx,
		"UPDATE users SET earning = earning + $1 WHERE email = $2", amount, email)
	if err != nil {
		return err
	}
	return expectOneRow(res, models.ErrSellerNotFound)
}

// ResetEarning zeroes the farmer's earning and returns the amount paid out.
func (s *Store) ResetEarning(ctx context.Context, email string) (decimal.Decimal, error) {
	var paid decimal.Decimal
	err := s.WithTx(ctx, func(ctx context.Context) error {
		err := s.q(ctx).QueryRowContext(ctx,
			"SELECT earning FROM users WHERE email = $1 FOR UPDATE", email,
		).Scan(&paid)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		_, err = s.q(ctx).ExecContext(ctx, "UPDATE users SET earning = 0 WHERE email = $1", email)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return paid, nil
}
