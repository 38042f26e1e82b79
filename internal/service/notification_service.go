package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/events"
)

const (
	webhookTimeout   = 5 * time.Second
	webhookQueueSize = 64
)

// Mail is a single outgoing message.
type Mail struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Mailer delivers outgoing mail.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

type logMailer struct {
	logger *zap.Logger
}

// NewLogMailer returns a Mailer that only records messages in the log.
func NewLogMailer(logger *zap.Logger) Mailer {
	return &logMailer{logger: logger.Named("mail")}
}

func (m *logMailer) Send(_ context.Context, mail Mail) error {
	// The body carries live verification and reset tokens and stays out of the log.
	m.logger.Info("mail queued", zap.String("to", mail.To), zap.String("subject", mail.Subject))
	return nil
}

// NotificationService turns token events into outgoing mail and webhook calls.
// Webhooks are queued and delivered by Run, off the request path.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     Mailer
	logger     *zap.Logger
	cfg        config.NotificationConfig
	webhooks   chan events.Event
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, mailer Mailer, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		mailer:     mailer,
		logger:     logger.Named("notifications"),
		cfg:        cfg,
		webhooks:   make(chan events.Event, webhookQueueSize),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventVerificationRequested, n.handleVerificationRequested)
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handlePasswordResetRequested)
	n.dispatcher.Subscribe(events.EventPasswordChanged, n.enqueueWebhook)
	n.dispatcher.Subscribe(events.EventAccountLinked, n.enqueueWebhook)
}

// Run delivers queued webhooks until ctx is cancelled.
func (n *NotificationService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-n.webhooks:
			n.sendWebhook(ctx, event)
		}
	}
}

func (n *NotificationService) handleVerificationRequested(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.VerificationRequestedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	link := n.link("/auth/new-verification", p.Token)
	return n.mailer.Send(ctx, Mail{
		From:    n.cfg.EmailFrom,
		To:      p.Email,
		Subject: "Confirm your email",
		HTML:    fmt.Sprintf(`<p>Click <a href="%s">here</a> to confirm email.</p>`, link),
	})
}

func (n *NotificationService) handlePasswordResetRequested(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.PasswordResetRequestedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	link := n.link("/auth/new-password", p.Token)
	return n.mailer.Send(ctx, Mail{
		From:    n.cfg.EmailFrom,
		To:      p.Email,
		Subject: "Reset your password",
		HTML:    fmt.Sprintf(`<p>Click <a href="%s">here</a> to reset password.</p>`, link),
	})
}

// enqueueWebhook never blocks the publisher. Events are dropped with a warning
// once the queue is full.
func (n *NotificationService) enqueueWebhook(_ context.Context, event events.Event) error {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return nil
	}
	select {
	case n.webhooks <- event:
	default:
		n.logger.Warn("webhook queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID))
	}
	return nil
}

// sendWebhook posts the event to the configured webhook. Failures are logged and swallowed.
func (n *NotificationService) sendWebhook(ctx context.Context, event events.Event) {
	timeout := webhookTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if timeout <= 0 || ctx.Err() != nil {
		return
	}
	code, _, errs := fiber.Post(n.cfg.WebhookURL).
		Timeout(timeout).
		JSON(fiber.Map{
			"id":        event.ID,
			"type":      event.Type,
			"user_id":   event.UserID,
			"timestamp": event.Timestamp,
		}).
		Bytes()
	if len(errs) > 0 {
		n.logger.Warn("webhook delivery failed", zap.String("event_type", string(event.Type)), zap.Errors("errors", errs))
		return
	}
	if code >= fiber.StatusBadRequest {
		n.logger.Warn("webhook rejected event", zap.String("event_type", string(event.Type)), zap.Int("status", code))
	}
}

func (n *NotificationService) link(path, token string) string {
	return n.cfg.PublicURL + path + "?token=" + url.QueryEscape(token)
}
