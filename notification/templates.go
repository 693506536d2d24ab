package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"marketplace-svc/payment"

	"github.com/shopspring/decimal"
)

const (
	KindBuyerConfirmation = "buyer_confirmation"
	KindSellerNotice      = "seller_notice"
)

type Address struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Order is what both order emails render.
type Order struct {
	ProductName string
	Quantity    int
	Total       decimal.Decimal
	Currency    string
	Date        time.Time
	BuyerName   string
	BuyerEmail  string
	SellerEmail string
	Address     *Address
}

var currencySymbols = map[string]string{
	"inr": "₹",
	"usd": "$",
	"eur": "€",
	"gbp": "£",
	"jpy": "¥",
}

func formatAmount(amount decimal.Decimal, currency string) string {
	digits := payment.CurrencyExponent(currency)
	if sym, ok := currencySymbols[strings.ToLower(currency)]; ok {
		return sym + amount.StringFixed(digits)
	}
	return amount.StringFixed(digits) + " " + strings.ToUpper(currency)
}

var funcs = template.FuncMap{
	"amount": formatAmount,
	"date":   func(t time.Time) string { return t.Format("2 Jan 2006") },
}

const orderDetails = `{{define "order"}}<h2>Order Details:</h2>
<p><strong>Product:</strong> {{.ProductName}}</p>
<p><strong>Quantity:</strong> {{.Quantity}}</p>
<p><strong>Total Amount:</strong> {{amount .Total .Currency}}</p>
<p><strong>Order Date:</strong> {{date .Date}}</p>
{{end}}{{define "address"}}{{with .Address}}{{.Line1}}<br/>
{{if .Line2}}{{.Line2}}<br/>
{{end}}{{.City}}, {{.State}}<br/>
{{.PostalCode}}<br/>
{{.Country}}{{end}}{{end}}`

var buyerTemplate = template.Must(template.New("buyer").Funcs(funcs).Parse(orderDetails + `
<h1>Thank you for your purchase!</h1>
{{template "order" .}}<br/>
<h2>Shipping Details:</h2>
<p><strong>Name:</strong> {{.BuyerName}}</p>
<p><strong>Address:</strong><br/>
{{template "address" .}}
</p>
`))

var sellerTemplate = template.Must(template.New("seller").Funcs(funcs).Parse(orderDetails + `
<h1>New Order Received!</h1>
{{template "order" .}}<br/>
<h2>Buyer Details:</h2>
<p><strong>Name:</strong> {{.BuyerName}}</p>
<p><strong>Email:</strong> {{.BuyerEmail}}</p>
<p><strong>Shipping Address:</strong><br/>
{{template "address" .}}
</p>
`))

func BuyerConfirmation(o Order) (Message, error) {
	html, err := render(buyerTemplate, o)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      o.BuyerEmail,
		Subject: "Order Confirmation - Farmer Marketplace",
		HTML:    html,
		Kind:    KindBuyerConfirmation,
	}, nil
}

func SellerNotice(o Order) (Message, error) {
	html, err := render(sellerTemplate, o)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      o.SellerEmail,
		Subject: "New Order Received - Farmer Marketplace",
		HTML:    html,
		Kind:    KindSellerNotice,
	}, nil
}

func render(t *template.Template, o Order) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, o); err != nil {
		return "", fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}
