package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"marketplace-svc/config"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap/zaptest"
)

func testOrder() Order {
	return Order{
		ProductName: "Tomatoes <organic>",
		Quantity:    3,
		Total:       decimal.NewFromInt(15),
		Currency:    "inr",
		Date:        time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
		BuyerName:   "Asha",
		BuyerEmail:  "buyer@x",
		SellerEmail: "farmer@x",
		Address: &Address{
			Line1:      "12 Market Rd",
			City:       "Pune",
			State:      "MH",
			PostalCode: "411001",
			Country:    "IN",
		},
	}
}

func TestBuyerConfirmation(t *testing.T) {
	msg, err := BuyerConfirmation(testOrder())
	require.NoError(t, err)

	assert.Equal(t, "buyer@x", msg.To)
	assert.Equal(t, KindBuyerConfirmation, msg.Kind)
	assert.Equal(t, "Order Confirmation - Farmer Marketplace", msg.Subject)
	assert.Contains(t, msg.HTML, "Thank you for your purchase!")
	assert.Contains(t, msg.HTML, "<strong>Quantity:</strong> 3")
	assert.Contains(t, msg.HTML, "₹15.00")
	assert.Contains(t, msg.HTML, "9 Mar 2026")
	assert.Contains(t, msg.HTML, "Pune, MH")
	assert.Contains(t, msg.HTML, "Tomatoes &lt;organic&gt;")
	assert.NotContains(t, msg.HTML, "<organic>")
}

func TestSellerNotice(t *testing.T) {
	o := testOrder()
	o.Address = nil
	msg, err := SellerNotice(o)
	require.NoError(t, err)

	assert.Equal(t, "farmer@x", msg.To)
	assert.Equal(t, KindSellerNotice, msg.Kind)
	assert.Contains(t, msg.HTML, "New Order Received!")
	assert.Contains(t, msg.HTML, "<strong>Email:</strong> buyer@x")
	assert.NotContains(t, msg.HTML, "411001")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "₹15.00", formatAmount(decimal.NewFromInt(15), "INR"))
	assert.Equal(t, "12.50 CHF", formatAmount(decimal.RequireFromString("12.5"), "chf"))
	assert.Equal(t, "¥1500", formatAmount(decimal.NewFromInt(1500), "jpy"))
	assert.Equal(t, "1.500 KWD", formatAmount(decimal.RequireFromString("1.5"), "kwd"))
}

func TestKafkaDispatcher(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var msg Message
		if err := json.Unmarshal(val, &msg); err != nil {
			return err
		}
		if msg.Kind != KindSellerNotice || msg.To != "farmer@x" {
			return errors.New("unexpected message")
		}
		return nil
	})

	d := NewKafkaDispatcher(producer, "marketplace_notifications", zaptest.NewLogger(t))
	err := d.Send(context.Background(), Message{To: "farmer@x", Subject: "s", HTML: "<p>x</p>", Kind: KindSellerNotice})
	require.NoError(t, err)
}

type recordingDispatcher struct {
	sent []Message
	err  error
}

func (r *recordingDispatcher) Send(_ context.Context, msg Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func TestRelay(t *testing.T) {
	next := &recordingDispatcher{}
	handle := Relay(next, zaptest.NewLogger(t))

	payload, _ := json.Marshal(Message{To: "buyer@x", Subject: "s", HTML: "<p>x</p>", Kind: KindBuyerConfirmation})
	require.NoError(t, handle(context.Background(), &sarama.ConsumerMessage{Value: payload}))
	require.Len(t, next.sent, 1)
	assert.Equal(t, "buyer@x", next.sent[0].To)

	// malformed and recipient-less records are dropped without error
	require.NoError(t, handle(context.Background(), &sarama.ConsumerMessage{Value: []byte("{")}))
	require.NoError(t, handle(context.Background(), &sarama.ConsumerMessage{Value: []byte(`{"subject":"s"}`)}))
	assert.Len(t, next.sent, 1)
}

func TestRelay_PropagatesSendFailure(t *testing.T) {
	next := &recordingDispatcher{err: errors.New("smtp down")}
	handle := Relay(next, zaptest.NewLogger(t))

	payload, _ := json.Marshal(Message{To: "buyer@x", Kind: KindBuyerConfirmation})
	err := handle(context.Background(), &sarama.ConsumerMessage{Value: payload})
	assert.Error(t, err)
}

func TestNewDispatcher(t *testing.T) {
	logger := zaptest.NewLogger(t)

	d, err := NewDispatcher(&config.Config{NotifyMode: config.NotifyModeLog}, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &LogDispatcher{}, d)
	assert.NoError(t, d.Send(context.Background(), Message{To: "a@b", Kind: KindBuyerConfirmation}))

	_, err = NewDispatcher(&config.Config{NotifyMode: config.NotifyModeKafka}, nil, logger)
	assert.Error(t, err)

	d, err = NewDispatcher(&config.Config{
		NotifyMode: config.NotifyModeSMTP,
		SMTP:       config.SMTPConfig{Host: "smtp.example.com", Port: 587, FromName: "Farmer Marketplace", FromEmail: "no-reply@example.com"},
	}, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &SMTPDispatcher{}, d)

	_, err = NewDispatcher(&config.Config{NotifyMode: "pigeon"}, nil, logger)
	assert.Error(t, err)
}

func TestSMTPDispatcher_BuildMessage(t *testing.T) {
	d, err := NewSMTPDispatcher(config.SMTPConfig{
		Host:      "smtp.example.com",
		Port:      465,
		Secure:    true,
		User:      "user",
		Password:  "secret",
		FromName:  "Farmer Marketplace",
		FromEmail: "no-reply@example.com",
		Timeout:   time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	m, err := d.buildMessage(Message{To: "buyer@x.com", Subject: "Order Confirmation", HTML: "<p>hi</p>"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Order Confirmation"}, m.GetGenHeader(mail.HeaderSubject))
	assert.Contains(t, strings.Join(m.GetToString(), ","), "buyer@x.com")

	_, err = d.buildMessage(Message{To: "not an address"})
	assert.Error(t, err)
}
