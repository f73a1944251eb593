// Package reminder drives the outbound side of the ledger: deciding who
// currently owes money, nudging them, and walking settlements through
// confirmation.
package reminder

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Kind selects the notification template.
type Kind string

const (
	KindInvitation             Kind = "invitation"
	KindPaymentReminder        Kind = "payment_reminder"
	KindSettlementConfirmation Kind = "settlement_confirmation"
)

// Message is one outbound notification.
type Message struct {
	Kind Kind
	To   string // recipient email address

	// Params are the template parameters: group_name, amount,
	// member_name and whatever else the template needs.
	Params map[string]string
}

// Result reports a successful delivery.
type Result struct {
	MessageID string
}

// Sender delivers notifications. Implementations are external (email,
// push); failures are retried by the workflow, not by the sender.
type Sender interface {
	Send(ctx context.Context, msg Message) (Result, error)
}

// LogSender is a Sender that only logs. Used in development and as the
// default when no delivery backend is configured.
type LogSender struct{}

var _ Sender = LogSender{}

// Send logs the message and reports success.
func (LogSender) Send(_ context.Context, msg Message) (Result, error) {
	id := uuid.New().String()
	slog.Info("notification (log only)",
		"kind", msg.Kind,
		"to", msg.To,
		"message_id", id,
		"params", msg.Params,
	)
	return Result{MessageID: id}, nil
}
