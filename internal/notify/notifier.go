package notify

import (
	"context"
	"time"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Notifier delivers a message to one user. Delivery is fire-and-forget
// for all callers: failures are logged locally and never fail the
// triggering operation.
type Notifier interface {
	NotifyUser(ctx context.Context, user models.User, subject, message string)
}

// notificationRequest payload sent to the notification gateway
type notificationRequest struct {
	Channel string `json:"channel"` // "email" or "sms"
	To      string `json:"to"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

// WebhookNotifier posts email/SMS placeholders to an external gateway.
type WebhookNotifier struct {
	client  *resty.Client
	baseURL string
	logger  *zap.Logger
}

// NewWebhookNotifier creates a notifier against the gateway base URL.
func NewWebhookNotifier(baseURL string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0) // the caller treats failure as final

	return &WebhookNotifier{
		client:  client,
		baseURL: baseURL,
		logger:  logger,
	}
}

// NotifyUser sends over every channel the user has an address for.
// Email first, then SMS; each failure is logged and swallowed.
func (n *WebhookNotifier) NotifyUser(ctx context.Context, user models.User, subject, message string) {
	if user.Email != nil {
		n.dispatch(ctx, notificationRequest{
			Channel: "email",
			To:      *user.Email,
			Subject: subject,
			Message: message,
		})
	}
	if user.Phone != nil {
		n.dispatch(ctx, notificationRequest{
			Channel: "sms",
			To:      *user.Phone,
			Message: message,
		})
	}
}

func (n *WebhookNotifier) dispatch(ctx context.Context, req notificationRequest) {
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(req).
		Post(n.baseURL + "/notifications")

	if err != nil {
		n.logger.Warn("Notification dispatch failed",
			zap.String("channel", req.Channel),
			zap.Error(err),
		)
		return
	}
	if resp.IsError() {
		n.logger.Warn("Notification gateway rejected dispatch",
			zap.String("channel", req.Channel),
			zap.Int("status", resp.StatusCode()),
		)
	}
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

// NotifyUser does nothing.
func (NopNotifier) NotifyUser(ctx context.Context, user models.User, subject, message string) {}
