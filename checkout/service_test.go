package checkout

import (
	"context"
	"errors"
	"testing"

	"marketplace-svc/models"
	"marketplace-svc/payment"
	"marketplace-svc/payment/paymenttest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeProducts map[string]models.Product

func (f fakeProducts) GetProduct(_ context.Context, id string) (models.Product, error) {
	p, ok := f[id]
	if !ok {
		return models.Product{}, models.ErrProductNotFound
	}
	return p, nil
}

func newTestService(t *testing.T) (*Service, *paymenttest.Gateway) {
	products := fakeProducts{
		"p1": {ID: "p1", Name: "Tomatoes", Quantity: 10, Price: decimal.NewFromInt(5), Email: "farmer@x"},
	}
	gw := paymenttest.NewGateway()
	return NewService(products, gw, zaptest.NewLogger(t)), gw
}

func TestCreateSession_Success(t *testing.T) {
	svc, gw := newTestService(t)
	price := decimal.RequireFromString("5.00")

	url, err := svc.CreateSession(context.Background(), Request{
		ProductID: "p1",
		Quantity:  3,
		UnitPrice: &price,
		Origin:    "https://shop.example",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.test/cs_test_1", url)

	require.Len(t, gw.Requests, 1)
	sent := gw.Requests[0]
	assert.Equal(t, "farmer@x", sent.SellerID)
	assert.Equal(t, "Tomatoes", sent.ProductName)
	assert.Equal(t, 3, sent.Quantity)
	assert.True(t, sent.UnitPrice.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "https://shop.example", sent.Origin)
}

func TestCreateSession_WithoutClientPriceChargesStoredPrice(t *testing.T) {
	svc, gw := newTestService(t)

	_, err := svc.CreateSession(context.Background(), Request{ProductID: "p1", Quantity: 10})
	require.NoError(t, err)
	require.Len(t, gw.Requests, 1)
	assert.True(t, gw.Requests[0].UnitPrice.Equal(decimal.NewFromInt(5)))
}

func TestCreateSession_Rejections(t *testing.T) {
	cheap := decimal.RequireFromString("0.01")

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{name: "insufficient stock", req: Request{ProductID: "p1", Quantity: 11}, wantErr: models.ErrInsufficientStock},
		{name: "zero quantity", req: Request{ProductID: "p1", Quantity: 0}, wantErr: models.ErrValidation},
		{name: "negative quantity", req: Request{ProductID: "p1", Quantity: -2}, wantErr: models.ErrValidation},
		{name: "missing product id", req: Request{Quantity: 1}, wantErr: models.ErrValidation},
		{name: "unknown product", req: Request{ProductID: "nope", Quantity: 1}, wantErr: models.ErrProductNotFound},
		{name: "tampered price", req: Request{ProductID: "p1", Quantity: 1, UnitPrice: &cheap}, wantErr: models.ErrPriceMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, gw := newTestService(t)

			url, err := svc.CreateSession(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, url)
			assert.Empty(t, gw.Requests, "no session may be created for a rejected checkout")
		})
	}
}

func TestCreateSession_GatewayFailure(t *testing.T) {
	svc, gw := newTestService(t)
	gw.CreateErr = errors.Join(models.ErrUpstream, errors.New("connection reset"))

	_, err := svc.CreateSession(context.Background(), Request{ProductID: "p1", Quantity: 1})
	assert.ErrorIs(t, err, models.ErrUpstream)
}

func TestCreateSession_MetadataRoundTrip(t *testing.T) {
	svc, gw := newTestService(t)

	_, err := svc.CreateSession(context.Background(), Request{ProductID: "p1", Quantity: 4})
	require.NoError(t, err)

	session, err := gw.RetrieveSession(context.Background(), "cs_test_1")
	require.NoError(t, err)
	meta, err := payment.ParseMetadata(session.Metadata)
	require.NoError(t, err)
	assert.Equal(t, payment.OrderMetadata{ProductID: "p1", Quantity: 4, SellerID: "farmer@x"}, meta)
}
