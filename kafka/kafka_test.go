package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zaptest"
)

type testMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
}

func TestPublish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got testMessage
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.To != "buyer@x" {
			return errors.New("unexpected recipient " + got.To)
		}
		return nil
	})

	err := Publish(context.Background(), producer, "notify", "buyer@x", testMessage{To: "buyer@x", Subject: "hi"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
}

func TestPublish_SendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := Publish(context.Background(), producer, "notify", "", testMessage{To: "buyer@x"}, zaptest.NewLogger(t))
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Errorf("Expected ErrOutOfBrokers, got %v", err)
	}
}

func TestHeaderCarriersRoundTrip(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	prop := propagation.TraceContext{}
	out := make(producerHeaderCarrier, 0)
	prop.Inject(ctx, &out)

	in := make(consumerHeaderCarrier, len(out))
	for i := range out {
		in[i] = &out[i]
	}
	extracted := trace.SpanContextFromContext(prop.Extract(context.Background(), in))

	if extracted.TraceID() != traceID {
		t.Errorf("Expected trace id %s, got %s", traceID, extracted.TraceID())
	}
}

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func newClaim(msgs ...*sarama.ConsumerMessage) *fakeClaim {
	ch := make(chan *sarama.ConsumerMessage, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	return &fakeClaim{messages: ch}
}

func TestConsumeClaim_RetriesThenCommits(t *testing.T) {
	attempts := 0
	h := &groupHandler{
		maxRetries: 3,
		logger:     zaptest.NewLogger(t),
		handle: func(ctx context.Context, msg *sarama.ConsumerMessage) error {
			attempts++
			if attempts == 1 {
				return errors.New("smtp unavailable")
			}
			return nil
		},
	}
	sess := &fakeSession{ctx: context.Background()}

	err := h.ConsumeClaim(sess, newClaim(&sarama.ConsumerMessage{Topic: "notify", Offset: 7, Value: []byte(`{"to":"buyer@x"}`)}))
	if err != nil {
		t.Fatalf("ConsumeClaim failed: %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
	if len(sess.marked) != 1 || sess.marked[0] != 7 {
		t.Errorf("Expected offset 7 committed, got %v", sess.marked)
	}
}

func TestConsumeClaim_ExhaustedRetriesStillCommit(t *testing.T) {
	h := &groupHandler{
		maxRetries: 1,
		logger:     zaptest.NewLogger(t),
		handle: func(ctx context.Context, msg *sarama.ConsumerMessage) error {
			return errors.New("mailbox rejected")
		},
	}
	sess := &fakeSession{ctx: context.Background()}

	if err := h.ConsumeClaim(sess, newClaim(&sarama.ConsumerMessage{Topic: "notify", Offset: 3})); err != nil {
		t.Fatalf("ConsumeClaim failed: %v", err)
	}
	if len(sess.marked) != 1 {
		t.Errorf("Expected the failed record to be committed, got %v", sess.marked)
	}
}

func TestConsumeClaim_ShutdownLeavesRecordUncommitted(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	h := &groupHandler{
		maxRetries: 3,
		logger:     zaptest.NewLogger(t),
		handle: func(context.Context, *sarama.ConsumerMessage) error {
			cancel()
			return errors.New("smtp unavailable")
		},
	}
	sess := &fakeSession{ctx: ctx}

	if err := h.ConsumeClaim(sess, newClaim(&sarama.ConsumerMessage{Topic: "notify", Offset: 9})); err != nil {
		t.Fatalf("ConsumeClaim failed: %v", err)
	}
	if len(sess.marked) != 0 {
		t.Errorf("Expected no committed offsets, got %v", sess.marked)
	}
}
