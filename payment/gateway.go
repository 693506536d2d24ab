package payment

import "context"

// Gateway is the hosted payment provider behind checkout.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error)
	VerifyEvent(payload []byte, signatureHeader string) (Event, error)
	RetrieveSession(ctx context.Context, sessionID string) (Session, error)
}
