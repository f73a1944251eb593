package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/ledger"
	"github.com/tallyhq/tally/internal/metrics"
	"github.com/tallyhq/tally/internal/models"
	"github.com/tallyhq/tally/internal/record"
	"github.com/tallyhq/tally/internal/storage"
)

const (
	// maxSendAttempts bounds delivery retries; after the last attempt
	// the failure is the caller's problem, no background retry exists.
	maxSendAttempts = 3

	// sendRetryDelay is the fixed pause between attempts.
	sendRetryDelay = 5 * time.Second
)

// Debtor is a member who currently owes money in a group.
type Debtor struct {
	MemberID string
	Name     string
	Email    string

	// Owes is the positive magnitude of the member's negative balance.
	Owes decimal.Decimal
}

// Workflow wires the ledger, the persistence store and the notification
// sender into the reminder and settlement flows.
type Workflow struct {
	ledger *ledger.Ledger
	store  storage.Store
	sender Sender

	retryDelay time.Duration
}

// NewWorkflow builds a workflow with the standard retry policy.
func NewWorkflow(l *ledger.Ledger, store storage.Store, sender Sender) *Workflow {
	return &Workflow{
		ledger:     l,
		store:      store,
		sender:     sender,
		retryDelay: sendRetryDelay,
	}
}

// SelectDebtors runs the balance engine and keeps the members with a
// negative balance and a parseable email address, mapping the negative
// balance to a positive owed amount. Sorted by member id so output is
// stable across calls.
func (w *Workflow) SelectDebtors(groupID string) []Debtor {
	balances := w.ledger.CalculateBalances(groupID)
	group, _ := w.ledger.GroupByID(groupID)

	ids := make([]string, 0, len(balances))
	for id := range balances {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var debtors []Debtor
	for _, id := range ids {
		b := balances[id]
		if !b.IsNegative() {
			continue
		}
		name, email := w.memberContact(&group, id)
		if _, err := mail.ParseAddress(email); err != nil {
			slog.Debug("debtor skipped, no usable email", "member_id", id, "group_id", groupID)
			continue
		}
		debtors = append(debtors, Debtor{
			MemberID: id,
			Name:     name,
			Email:    email,
			Owes:     b.Neg(),
		})
	}
	return debtors
}

// memberContact resolves a member's name and email from the group's
// member list, falling back to the users working set.
func (w *Workflow) memberContact(group *models.Group, memberID string) (name, email string) {
	if m, ok := group.MemberByID(memberID); ok && m.Email != "" {
		return m.Name, m.Email
	}
	if u, ok := w.ledger.UserByID(memberID); ok {
		return u.Name, u.Email
	}
	return "", ""
}

// SendReminders sends a payment reminder to every current debtor of the
// group. Each send is retried per the workflow policy; the returned
// error joins the terminal failures, one per debtor that could not be
// reached.
func (w *Workflow) SendReminders(ctx context.Context, groupID string) error {
	group, ok := w.ledger.GroupByID(groupID)
	if !ok {
		return fmt.Errorf("send reminders: group %s: %w", groupID, ledger.ErrNotFound)
	}

	var errs []error
	for _, d := range w.SelectDebtors(groupID) {
		msg := Message{
			Kind: KindPaymentReminder,
			To:   d.Email,
			Params: map[string]string{
				"member_name": d.Name,
				"group_name":  group.Name,
				"amount":      d.Owes.String(),
			},
		}
		if err := w.send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("remind %s: %w", d.MemberID, err))
		}
	}
	return errors.Join(errs...)
}

// send delivers one message, retrying up to maxSendAttempts with a
// fixed delay. The terminal failure is returned, never swallowed.
func (w *Workflow) send(ctx context.Context, msg Message) error {
	var lastErr error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		res, err := w.sender.Send(ctx, msg)
		if err == nil {
			metrics.NotificationSends.WithLabelValues(string(msg.Kind), "ok").Inc()
			slog.Info("notification sent", "kind", msg.Kind, "to", msg.To, "message_id", res.MessageID)
			return nil
		}
		lastErr = err
		slog.Warn("notification send failed",
			"kind", msg.Kind,
			"to", msg.To,
			"attempt", attempt,
			"error", err,
		)
		if attempt == maxSendAttempts {
			break
		}
		select {
		case <-ctx.Done():
			metrics.NotificationSends.WithLabelValues(string(msg.Kind), "canceled").Inc()
			return ctx.Err()
		case <-time.After(w.retryDelay):
		}
	}
	metrics.NotificationSends.WithLabelValues(string(msg.Kind), "failed").Inc()
	return fmt.Errorf("send %s after %d attempts: %w", msg.Kind, maxSendAttempts, lastErr)
}

// ConfirmSettlement transitions the settlement to confirmed (idempotent
// when already confirmed), persists the flip, and notifies the payer
// that receipt was acknowledged. A store failure degrades to the local
// working set; a notification failure is surfaced but does not undo the
// confirmation.
func (w *Workflow) ConfirmSettlement(ctx context.Context, id string) (models.Settlement, error) {
	s, err := w.ledger.ConfirmSettlement(id)
	if err != nil {
		return models.Settlement{}, err
	}

	if _, err := w.store.Update(ctx, record.Settlements, id, record.Raw{"confirmed": true}); err != nil {
		slog.Warn("settlement confirm not persisted, serving from cache", "settlement_id", id, "error", err)
	}

	group, _ := w.ledger.GroupByID(s.GroupID)
	_, email := w.memberContact(&group, s.FromMember)
	if _, mailErr := mail.ParseAddress(email); mailErr != nil {
		return s, nil
	}

	msg := Message{
		Kind: KindSettlementConfirmation,
		To:   email,
		Params: map[string]string{
			"group_name": group.Name,
			"amount":     s.Amount.String(),
		},
	}
	if err := w.send(ctx, msg); err != nil {
		return s, fmt.Errorf("settlement %s confirmed, notification failed: %w", id, err)
	}
	return s, nil
}

// InviteMember appends a member with status invited to the group, both
// locally and in the store, and sends the invitation. Inviting an id
// that is already a member is a no-op.
func (w *Workflow) InviteMember(ctx context.Context, groupID string, m models.Member) (models.Group, error) {
	group, ok := w.ledger.GroupByID(groupID)
	if !ok {
		return models.Group{}, fmt.Errorf("invite to group %s: %w", groupID, ledger.ErrNotFound)
	}
	if group.HasMember(m.ID) {
		return group, nil
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.Status = models.MemberInvited
	group.Members = append(group.Members, m)

	w.ledger.UpsertGroup(group)
	if _, err := w.store.Update(ctx, record.Groups, groupID, record.EncodeGroup(group)); err != nil {
		slog.Warn("invite not persisted, serving from cache", "group_id", groupID, "error", err)
	}

	if _, err := mail.ParseAddress(m.Email); err == nil {
		msg := Message{
			Kind: KindInvitation,
			To:   m.Email,
			Params: map[string]string{
				"member_name": m.Name,
				"group_name":  group.Name,
			},
		}
		if err := w.send(ctx, msg); err != nil {
			return group, fmt.Errorf("member invited, notification failed: %w", err)
		}
	}
	return group, nil
}

// AcceptInvitation flips an invited member to accepted. Accepting twice
// is a no-op; an unknown member is an error.
func (w *Workflow) AcceptInvitation(ctx context.Context, groupID, memberID string) (models.Group, error) {
	group, ok := w.ledger.GroupByID(groupID)
	if !ok {
		return models.Group{}, fmt.Errorf("accept invitation, group %s: %w", groupID, ledger.ErrNotFound)
	}
	found := false
	for i := range group.Members {
		if group.Members[i].ID == memberID {
			group.Members[i].Status = models.MemberAccepted
			found = true
			break
		}
	}
	if !found {
		return models.Group{}, fmt.Errorf("accept invitation, member %s: %w", memberID, ledger.ErrNotFound)
	}

	w.ledger.UpsertGroup(group)
	if _, err := w.store.Update(ctx, record.Groups, groupID, record.EncodeGroup(group)); err != nil {
		slog.Warn("acceptance not persisted, serving from cache", "group_id", groupID, "error", err)
	}
	return group, nil
}
