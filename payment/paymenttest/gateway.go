// Package paymenttest provides an in-memory payment.Gateway for tests.
package paymenttest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"marketplace-svc/models"
	"marketplace-svc/payment"
)

// Gateway records created sessions and serves stored ones. VerifyEvent
// accepts a payload only when the header equals Signature, and decodes it
// as a JSON encoded payment.Event.
type Gateway struct {
	mu        sync.Mutex
	Signature string
	Requests  []payment.SessionRequest
	Sessions  map[string]payment.Session
	CreateErr error
	nextID    int
}

func NewGateway() *Gateway {
	return &Gateway{
		Signature: "valid-signature",
		Sessions:  map[string]payment.Session{},
	}
}

func (g *Gateway) CreateCheckoutSession(_ context.Context, req payment.SessionRequest) (payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CreateErr != nil {
		return payment.Session{}, g.CreateErr
	}
	g.nextID++
	id := fmt.Sprintf("cs_test_%d", g.nextID)
	meta := payment.OrderMetadata{ProductID: req.ProductID, Quantity: req.Quantity, SellerID: req.SellerID}
	s := payment.Session{
		ID:       id,
		URL:      "https://checkout.test/" + id,
		Status:   payment.SessionStatusOpen,
		Metadata: meta.Map(),
	}
	g.Requests = append(g.Requests, req)
	g.Sessions[id] = s
	return s, nil
}

func (g *Gateway) VerifyEvent(payload []byte, signatureHeader string) (payment.Event, error) {
	if signatureHeader != g.Signature {
		return payment.Event{}, fmt.Errorf("%w: signature mismatch", models.ErrInvalidSignature)
	}
	var evt payment.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return payment.Event{}, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	return evt, nil
}

func (g *Gateway) RetrieveSession(_ context.Context, sessionID string) (payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.Sessions[sessionID]
	if !ok {
		return payment.Session{}, models.ErrSessionNotFound
	}
	return s, nil
}

// PaidSession builds a completed, paid session for the given order.
func PaidSession(id string, meta payment.OrderMetadata, amountTotal int64, buyerEmail string) payment.Session {
	return payment.Session{
		ID:            id,
		Status:        payment.SessionStatusComplete,
		PaymentStatus: payment.PaymentStatusPaid,
		AmountTotal:   amountTotal,
		Currency:      "inr",
		Metadata:      meta.Map(),
		Customer:      payment.CustomerDetails{Email: buyerEmail, Name: "Test Buyer"},
	}
}
