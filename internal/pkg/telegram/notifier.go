package telegram

import (
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Notifier posts payment events to an ops channel via the Telegram Bot API.
// Disabled when no token is configured; all methods become no-ops.
type Notifier struct {
	client *resty.Client
	chatID string
	logger *zap.Logger
}

// NewNotifier creates a notifier. Returns a disabled notifier when token or
// chatID is empty.
func NewNotifier(token, chatID string, logger *zap.Logger) *Notifier {
	n := &Notifier{chatID: chatID, logger: logger}
	if token != "" && chatID != "" {
		n.client = resty.New().SetBaseURL("https://api.telegram.org/bot" + token)
	}
	return n
}

// Enabled reports whether the notifier will actually send messages.
func (n *Notifier) Enabled() bool {
	return n.client != nil
}

// PaymentCaptured reports a captured payment.
func (n *Notifier) PaymentCaptured(orderRef, txReference string, amount int, currency string) {
	n.send(fmt.Sprintf(
		"💳 Payment captured\n\nOrder: %s\nReference: %s\nAmount: %d %s",
		orderRef, txReference, amount, currency,
	))
}

// RefundIssued reports an issued refund.
func (n *Notifier) RefundIssued(orderRef, txReference string, amount int, currency string) {
	n.send(fmt.Sprintf(
		"↩️ Refund issued\n\nOrder: %s\nReference: %s\nAmount: %d %s",
		orderRef, txReference, amount, currency,
	))
}

func (n *Notifier) send(text string) {
	if n.client == nil {
		return
	}
	_, err := n.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"chat_id": n.chatID,
			"text":    text,
		}).
		Post("/sendMessage")
	if err != nil {
		n.logger.Warn("Telegram notify failed", zap.Error(err))
	}
}
