package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-svc/middleware"
	"marketplace-svc/models"
	"marketplace-svc/notification"
	"marketplace-svc/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Store is the slice of persistence fulfillment needs. Calls made with the
// context handed to WithTx's callback join that transaction.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	PurchaseBySession(ctx context.Context, sessionID string) (*models.Purchase, error)
	EnsureUser(ctx context.Context, u models.User) (bool, error)
	GetProductForUpdate(ctx context.Context, id string) (models.Product, error)
	SetProductQuantity(ctx context.Context, id string, quantity int) error
	CreditEarning(ctx context.Context, email string, amount decimal.Decimal) error
	CreatePurchase(ctx context.Context, p models.Purchase) error
}

type ProductCache interface {
	DeleteProduct(ctx context.Context, id string)
}

type Result struct {
	Purchase models.Purchase
	// Applied is false when the session had already been fulfilled and
	// nothing was changed.
	Applied bool
}

type Processor struct {
	store        Store
	dispatcher   notification.Dispatcher
	cache        ProductCache
	logger       *zap.Logger
	now          func() time.Time
	passwordCost int
}

func NewProcessor(store Store, dispatcher notification.Dispatcher, cache ProductCache, logger *zap.Logger) *Processor {
	return &Processor{
		store:        store,
		dispatcher:   dispatcher,
		cache:        cache,
		logger:       logger,
		now:          time.Now,
		passwordCost: bcrypt.DefaultCost,
	}
}

// ApplyCompletedPayment records a paid checkout session exactly once:
// stock decrement, seller credit and purchase row commit together or not
// at all. Redelivery of the same session is a no-op with Applied=false.
func (p *Processor) ApplyCompletedPayment(ctx context.Context, session payment.Session) (Result, error) {
	ctx, span := otel.Tracer("fulfillment").Start(ctx, "ApplyCompletedPayment")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", session.ID))

	logger := p.logger.With(
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("session_id", session.ID),
	)

	order, err := p.validate(session)
	if err != nil {
		middleware.RecordFulfillment("rejected")
		span.RecordError(err)
		logger.Warn("Rejected payment event", zap.Error(err))
		return Result{}, err
	}
	logger = logger.With(zap.String("product_id", order.ProductID))
	span.SetAttributes(
		attribute.String("product.id", order.ProductID),
		attribute.Int("quantity", order.Quantity),
	)

	var (
		result  Result
		product models.Product
	)
	err = p.store.WithTx(ctx, func(ctx context.Context) error {
		existing, err := p.store.PurchaseBySession(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("look up purchase: %w", err)
		}
		if existing != nil {
			result = Result{Purchase: *existing}
			return nil
		}

		if err := p.ensureBuyer(ctx, session.Customer.Email, logger); err != nil {
			return err
		}

		product, err = p.store.GetProductForUpdate(ctx, order.ProductID)
		if err != nil {
			return fmt.Errorf("lock product %s: %w", order.ProductID, err)
		}

		remaining := product.Quantity - order.Quantity
		if remaining < 0 {
			middleware.RecordOversell()
			logger.Error("Paid order exceeds remaining stock, clamping to zero",
				zap.Int("stock", product.Quantity),
				zap.Int("quantity", order.Quantity),
			)
			remaining = 0
		}
		if err := p.store.SetProductQuantity(ctx, product.ID, remaining); err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}

		total := payment.MinorToMajor(session.AmountTotal, session.Currency)
		if err := p.store.CreditEarning(ctx, order.SellerID, total); err != nil {
			return fmt.Errorf("credit seller %s: %w", order.SellerID, err)
		}

		purchase := models.Purchase{
			ID:           uuid.NewString(),
			SessionID:    session.ID,
			ProductID:    product.ID,
			ProductName:  product.Name,
			BuyerEmail:   session.Customer.Email,
			SellerEmail:  order.SellerID,
			Quantity:     order.Quantity,
			TotalPrice:   total,
			PurchaseDate: p.now().UTC(),
		}
		if err := p.store.CreatePurchase(ctx, purchase); err != nil {
			return fmt.Errorf("record purchase: %w", err)
		}

		result = Result{Purchase: purchase, Applied: true}
		return nil
	})

	if errors.Is(err, models.ErrDuplicatePurchase) {
		// A concurrent delivery committed first.
		return p.alreadyApplied(ctx, session.ID, logger)
	}
	if err != nil {
		middleware.RecordFulfillment("failed")
		span.RecordError(err)
		logger.Error("Fulfillment rolled back", zap.Error(err))
		return Result{}, err
	}

	if !result.Applied {
		middleware.RecordFulfillment("duplicate")
		logger.Info("Session already fulfilled", zap.String("purchase_id", result.Purchase.ID))
		return result, nil
	}

	middleware.RecordFulfillment("applied")
	logger.Info("Order fulfilled",
		zap.String("purchase_id", result.Purchase.ID),
		zap.Int("quantity", result.Purchase.Quantity),
		zap.String("total", result.Purchase.TotalPrice.String()),
	)

	if p.cache != nil {
		p.cache.DeleteProduct(ctx, product.ID)
	}
	p.notify(ctx, session, result.Purchase, logger)
	return result, nil
}

// AbandonSession records that a checkout session expired unpaid.
func (p *Processor) AbandonSession(ctx context.Context, session payment.Session) {
	middleware.RecordFulfillment("abandoned")
	p.logger.Info("Checkout session abandoned",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("session_id", session.ID),
		zap.String("product_id", session.Metadata[payment.MetaProductID]),
	)
}

func (p *Processor) validate(session payment.Session) (payment.OrderMetadata, error) {
	if session.ID == "" {
		return payment.OrderMetadata{}, fmt.Errorf("%w: session id missing", models.ErrValidation)
	}
	if !session.Paid() {
		return payment.OrderMetadata{}, fmt.Errorf("%w: status %q, payment status %q",
			models.ErrPaymentIncomplete, session.Status, session.PaymentStatus)
	}
	order, err := payment.ParseMetadata(session.Metadata)
	if err != nil {
		return payment.OrderMetadata{}, err
	}
	if session.Customer.Email == "" {
		return payment.OrderMetadata{}, fmt.Errorf("%w: session has no customer email", models.ErrValidation)
	}
	if session.AmountTotal < 0 {
		return payment.OrderMetadata{}, fmt.Errorf("%w: negative amount_total %d", models.ErrValidation, session.AmountTotal)
	}
	return order, nil
}

// ensureBuyer creates a Customer account for first-time buyers. The
// password is a hash of a random value nobody knows.
func (p *Processor) ensureBuyer(ctx context.Context, email string, logger *zap.Logger) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), p.passwordCost)
	if err != nil {
		return fmt.Errorf("hash placeholder credential: %w", err)
	}
	created, err := p.store.EnsureUser(ctx, models.User{
		Email:    email,
		Password: string(hash),
		Type:     models.UserTypeCustomer,
	})
	if err != nil {
		return fmt.Errorf("ensure buyer account: %w", err)
	}
	if created {
		logger.Info("Created buyer account", zap.String("buyer_email", email))
	}
	return nil
}

func (p *Processor) alreadyApplied(ctx context.Context, sessionID string, logger *zap.Logger) (Result, error) {
	existing, err := p.store.PurchaseBySession(ctx, sessionID)
	if err != nil {
		middleware.RecordFulfillment("failed")
		return Result{}, fmt.Errorf("look up purchase: %w", err)
	}
	middleware.RecordFulfillment("duplicate")
	logger.Info("Session fulfilled by a concurrent delivery")
	if existing == nil {
		return Result{}, nil
	}
	return Result{Purchase: *existing}, nil
}

// notify sends both order emails. Delivery problems never undo a
// committed fulfillment.
func (p *Processor) notify(ctx context.Context, session payment.Session, purchase models.Purchase, logger *zap.Logger) {
	order := notification.Order{
		ProductName: purchase.ProductName,
		Quantity:    purchase.Quantity,
		Total:       purchase.TotalPrice,
		Currency:    session.Currency,
		Date:        purchase.PurchaseDate,
		BuyerName:   session.Customer.Name,
		BuyerEmail:  purchase.BuyerEmail,
		SellerEmail: purchase.SellerEmail,
	}
	if a := session.Customer.Address; a != nil {
		order.Address = &notification.Address{
			Line1:      a.Line1,
			Line2:      a.Line2,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
			Country:    a.Country,
		}
	}

	for _, build := range []func(notification.Order) (notification.Message, error){
		notification.BuyerConfirmation,
		notification.SellerNotice,
	} {
		msg, err := build(order)
		if err != nil {
			logger.Error("Failed to render order notification", zap.Error(err))
			continue
		}
		if err := p.dispatcher.Send(ctx, msg); err != nil {
			logger.Error("Failed to send order notification",
				zap.String("kind", msg.Kind),
				zap.String("to", msg.To),
				zap.Error(err),
			)
		}
	}
}
