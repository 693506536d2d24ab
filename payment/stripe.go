package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"marketplace-svc/circuitbreaker"
	"marketplace-svc/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	Timeout       time.Duration
	// APIURL overrides the Stripe API base URL (stripe-mock, tests).
	APIURL            string
	MaxNetworkRetries int64
}

type StripeGateway struct {
	api            *client.API
	webhookSecret  string
	currency       string
	circuitBreaker *circuitbreaker.CircuitBreaker
	logger         *zap.Logger
}

func NewStripeGateway(cfg StripeConfig, logger *zap.Logger) *StripeGateway {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	backendConfig := func() *stripe.BackendConfig {
		c := &stripe.BackendConfig{
			HTTPClient:        httpClient,
			MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
			LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
		}
		if cfg.APIURL != "" {
			c.URL = stripe.String(cfg.APIURL)
		}
		return c
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig()),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig()),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig()),
	})

	currency := strings.ToLower(cfg.Currency)
	if currency == "" {
		currency = "inr"
	}

	return &StripeGateway{
		api:            api,
		webhookSecret:  cfg.WebhookSecret,
		currency:       currency,
		circuitBreaker: circuitbreaker.NewCircuitBreaker(5, 30*time.Second),
		logger:         logger,
	}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error) {
	ctx, span := otel.Tracer("payment-gateway").Start(ctx, "CreateCheckoutSession")
	defer span.End()

	span.SetAttributes(
		attribute.String("product.id", req.ProductID),
		attribute.Int("quantity", req.Quantity),
	)

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(g.currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.ProductName),
						Description: stripe.String("Sold by: " + req.SellerID),
					},
					UnitAmount: stripe.Int64(MajorToMinor(req.UnitPrice, g.currency)),
				},
				Quantity: stripe.Int64(int64(req.Quantity)),
			},
		},
		Mode:                     stripe.String(string(stripe.CheckoutSessionModePayment)),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
		SuccessURL:               stripe.String(req.Origin + "/marketplace/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:                stripe.String(req.Origin + "/marketplace"),
	}
	params.Context = ctx
	meta := OrderMetadata{ProductID: req.ProductID, Quantity: req.Quantity, SellerID: req.SellerID}
	for k, v := range meta.Map() {
		params.AddMetadata(k, v)
	}

	var created *stripe.CheckoutSession
	err := g.circuitBreaker.Execute(ctx, func() error {
		var err error
		created, err = g.api.CheckoutSessions.New(params)
		return err
	}, isClientError)
	if err != nil {
		span.RecordError(err)
		return Session{}, g.wrapError("create checkout session", err)
	}
	if created.URL == "" {
		return Session{}, fmt.Errorf("%w: gateway returned session %s without a url", models.ErrUpstream, created.ID)
	}

	span.SetAttributes(attribute.String("session.id", created.ID))
	return fromStripeSession(created), nil
}

func (g *StripeGateway) VerifyEvent(payload []byte, signatureHeader string) (Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signatureHeader, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", models.ErrInvalidSignature, err)
	}

	out := Event{ID: evt.ID, Type: string(evt.Type)}
	if !strings.HasPrefix(out.Type, "checkout.session.") || evt.Data == nil {
		return out, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &cs); err != nil {
		return Event{}, fmt.Errorf("%w: malformed checkout session in event %s: %v", models.ErrValidation, evt.ID, err)
	}
	session := fromStripeSession(&cs)
	out.Session = &session
	return out, nil
}

func (g *StripeGateway) RetrieveSession(ctx context.Context, sessionID string) (Session, error) {
	ctx, span := otel.Tracer("payment-gateway").Start(ctx, "RetrieveSession")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	var cs *stripe.CheckoutSession
	err := g.circuitBreaker.Execute(ctx, func() error {
		var err error
		cs, err = g.api.CheckoutSessions.Get(sessionID, params)
		return err
	}, isClientError)
	if err != nil {
		span.RecordError(err)
		return Session{}, g.wrapError("retrieve checkout session", err)
	}
	return fromStripeSession(cs), nil
}

func (g *StripeGateway) wrapError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return fmt.Errorf("%s: %w", op, models.ErrSessionNotFound)
		}
		if stripeErr.HTTPStatusCode >= 400 && stripeErr.HTTPStatusCode < 500 {
			return fmt.Errorf("%s: %w: %s", op, models.ErrValidation, stripeErr.Msg)
		}
	}
	g.logger.Error("Payment gateway call failed", zap.String("operation", op), zap.Error(err))
	return fmt.Errorf("%s: %w: %v", op, models.ErrUpstream, err)
}

// isClientError keeps 4xx answers from tripping the breaker.
func isClientError(err error) bool {
	var stripeErr *stripe.Error
	return errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode >= 400 && stripeErr.HTTPStatusCode < 500 &&
		stripeErr.HTTPStatusCode != http.StatusTooManyRequests
}

func fromStripeSession(cs *stripe.CheckoutSession) Session {
	s := Session{
		ID:            cs.ID,
		URL:           cs.URL,
		Status:        string(cs.Status),
		PaymentStatus: string(cs.PaymentStatus),
		AmountTotal:   cs.AmountTotal,
		Currency:      string(cs.Currency),
		Metadata:      cs.Metadata,
	}
	if cd := cs.CustomerDetails; cd != nil {
		s.Customer = CustomerDetails{Email: cd.Email, Name: cd.Name}
		if a := cd.Address; a != nil {
			s.Customer.Address = &Address{
				Line1:      a.Line1,
				Line2:      a.Line2,
				City:       a.City,
				State:      a.State,
				PostalCode: a.PostalCode,
				Country:    a.Country,
			}
		}
	}
	if s.Customer.Email == "" {
		s.Customer.Email = cs.CustomerEmail
	}
	return s
}
