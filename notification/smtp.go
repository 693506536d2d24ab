package notification

import (
	"context"
	"fmt"

	"marketplace-svc/config"
	"marketplace-svc/middleware"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

type SMTPDispatcher struct {
	client    *mail.Client
	fromName  string
	fromEmail string
	logger    *zap.Logger
}

func NewSMTPDispatcher(cfg config.SMTPConfig, logger *zap.Logger) (*SMTPDispatcher, error) {
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	logger.Info("SMTP dispatcher initialized", zap.String("host", cfg.Host), zap.Int("port", cfg.Port))
	return &SMTPDispatcher{
		client:    client,
		fromName:  cfg.FromName,
		fromEmail: cfg.FromEmail,
		logger:    logger,
	}, nil
}

func (d *SMTPDispatcher) Send(ctx context.Context, msg Message) error {
	m, err := d.buildMessage(msg)
	if err != nil {
		middleware.RecordNotificationSent(msg.Kind, "failed")
		return err
	}

	if err := d.client.DialAndSendWithContext(ctx, m); err != nil {
		middleware.RecordNotificationSent(msg.Kind, "failed")
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}

	middleware.RecordNotificationSent(msg.Kind, "sent")
	d.logger.Info("Email sent",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("kind", msg.Kind),
		zap.String("to", msg.To),
	)
	return nil
}

func (d *SMTPDispatcher) buildMessage(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(d.fromName, d.fromEmail); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", d.fromEmail, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	return m, nil
}
