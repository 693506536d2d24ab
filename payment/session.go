package payment

import (
	"fmt"
	"strconv"
	"strings"

	"marketplace-svc/models"

	"github.com/shopspring/decimal"
)

const (
	EventCheckoutCompleted     = "checkout.session.completed"
	EventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	EventCheckoutExpired       = "checkout.session.expired"

	SessionStatusOpen     = "open"
	SessionStatusComplete = "complete"
	SessionStatusExpired  = "expired"

	PaymentStatusPaid            = "paid"
	PaymentStatusNoPaymentNeeded = "no_payment_required"
)

// Metadata keys stamped on every checkout session. They are the only facts
// trusted on the way back from the gateway.
const (
	MetaProductID = "productId"
	MetaQuantity  = "quantity"
	MetaSellerID  = "sellerId"
)

type SessionRequest struct {
	ProductID   string
	ProductName string
	SellerID    string
	Quantity    int
	UnitPrice   decimal.Decimal
	Origin      string
}

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type CustomerDetails struct {
	Email   string   `json:"email"`
	Name    string   `json:"name"`
	Address *Address `json:"address,omitempty"`
}

// Session is the gateway's view of a checkout session.
type Session struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
	Customer      CustomerDetails   `json:"customer_details"`
}

// Paid reports whether the session completed with funds captured.
func (s Session) Paid() bool {
	if s.Status != SessionStatusComplete {
		return false
	}
	return s.PaymentStatus == PaymentStatusPaid || s.PaymentStatus == PaymentStatusNoPaymentNeeded
}

// Event is a verified gateway notification. Session is populated for
// checkout.session.* event types only.
type Event struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Session *Session `json:"session,omitempty"`
}

type OrderMetadata struct {
	ProductID string
	Quantity  int
	SellerID  string
}

func (m OrderMetadata) Map() map[string]string {
	return map[string]string{
		MetaProductID: m.ProductID,
		MetaQuantity:  strconv.Itoa(m.Quantity),
		MetaSellerID:  m.SellerID,
	}
}

// ParseMetadata validates and coerces the string metadata carried by a session.
func ParseMetadata(meta map[string]string) (OrderMetadata, error) {
	productID := strings.TrimSpace(meta[MetaProductID])
	sellerID := strings.TrimSpace(meta[MetaSellerID])
	rawQty := strings.TrimSpace(meta[MetaQuantity])

	if productID == "" {
		return OrderMetadata{}, fmt.Errorf("%w: metadata %s missing", models.ErrValidation, MetaProductID)
	}
	if sellerID == "" {
		return OrderMetadata{}, fmt.Errorf("%w: metadata %s missing", models.ErrValidation, MetaSellerID)
	}
	qty, err := strconv.Atoi(rawQty)
	if err != nil {
		return OrderMetadata{}, fmt.Errorf("%w: metadata %s %q is not an integer", models.ErrValidation, MetaQuantity, rawQty)
	}
	if qty <= 0 {
		return OrderMetadata{}, fmt.Errorf("%w: metadata %s must be positive, got %d", models.ErrValidation, MetaQuantity, qty)
	}

	return OrderMetadata{ProductID: productID, Quantity: qty, SellerID: sellerID}, nil
}

var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

var threeDecimalCurrencies = map[string]bool{
	"bhd": true, "jod": true, "kwd": true, "omr": true, "tnd": true,
}

// CurrencyExponent is the number of minor-unit digits the gateway uses for currency.
func CurrencyExponent(currency string) int32 {
	c := strings.ToLower(currency)
	switch {
	case zeroDecimalCurrencies[c]:
		return 0
	case threeDecimalCurrencies[c]:
		return 3
	}
	return 2
}

// MinorToMajor converts a gateway amount (paise, cents) to major units.
func MinorToMajor(amount int64, currency string) decimal.Decimal {
	return decimal.New(amount, -CurrencyExponent(currency))
}

// MajorToMinor converts a price to the gateway's integer minor units, rounding half away from zero.
func MajorToMinor(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(CurrencyExponent(currency)).Round(0).IntPart()
}
