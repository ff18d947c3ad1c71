// Package notify is the engine's output boundary to the reward notifier.
//
// The engine never sends anything itself: it hands a payload per
// reward-activated ledger entry to a Dispatcher and records the outcome
// back through the store's notification flag, the one sanctioned mutation
// of an appended entry. The actual delivery transport (chat client,
// webhook) lives outside this repository.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/franksunye/incentive-ledger/internal/ledger"
)

// Payload is everything the external notifier consumes for one reward.
type Payload struct {
	CampaignID     string
	AgentKey       string
	ContractDocNum string
	RewardTypes    []string
	RewardNames    []string
	Remark         string
	RunningCount   int
	RunningAmount  decimal.Decimal
}

// PayloadFor builds the notifier payload from a ledger entry.
func PayloadFor(e ledger.Entry) Payload {
	return Payload{
		CampaignID:     e.CampaignID,
		AgentKey:       e.AgentKey,
		ContractDocNum: e.ContractID,
		RewardTypes:    e.RewardTypes,
		RewardNames:    e.RewardNames,
		Remark:         e.Remark,
		RunningCount:   e.AgentRunningCount,
		RunningAmount:  e.AgentRunningAmount,
	}
}

// Render produces the human-readable message text handed to the delivery
// channel.
func (p Payload) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s unlocked %s (contract %s).",
		p.CampaignID, p.AgentKey, strings.Join(p.RewardNames, ", "), p.ContractDocNum)
	fmt.Fprintf(&b, " Running total: %d contracts, %s.", p.RunningCount, ledger.AmountString(p.RunningAmount))
	if p.Remark != ledger.NoRemark && p.Remark != "" {
		fmt.Fprintf(&b, " Next: %s.", p.Remark)
	}
	return b.String()
}

// Dispatcher delivers one rendered payload. Implementations wrap the real
// delivery channel; LogDispatcher is the built-in stand-in.
type Dispatcher interface {
	Dispatch(ctx context.Context, p Payload) error
}

// LogDispatcher writes rendered messages to the structured log instead of
// an external channel. Used in development and as the default sink.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(_ context.Context, p Payload) error {
	slog.Info("reward notification",
		"campaign", p.CampaignID,
		"agent", p.AgentKey,
		"contract_id", p.ContractDocNum,
		"message", p.Render(),
	)
	return nil
}

// Notifier walks reward-activated entries, dispatches each payload, and
// flips the entry's notification status through the store.
type Notifier struct {
	store      ledger.Store
	dispatcher Dispatcher
}

// NewNotifier creates a Notifier over a store and a dispatcher.
func NewNotifier(store ledger.Store, dispatcher Dispatcher) *Notifier {
	return &Notifier{store: store, dispatcher: dispatcher}
}

// ProcessEntries dispatches notifications for every reward-activated entry
// still pending. A dispatch failure marks the entry failed and moves on;
// failed entries are picked up again on a later pass.
func (n *Notifier) ProcessEntries(ctx context.Context, entries []ledger.Entry) (sent, failed int, err error) {
	for _, e := range entries {
		if !e.RewardActivated || e.NotificationSent != ledger.NotificationPending {
			continue
		}

		status := ledger.NotificationSent
		if dispatchErr := n.dispatcher.Dispatch(ctx, PayloadFor(e)); dispatchErr != nil {
			slog.Warn("notification dispatch failed",
				"campaign", e.CampaignID,
				"contract_id", e.ContractID,
				"error", dispatchErr,
			)
			status = ledger.NotificationFailed
			failed++
		} else {
			sent++
		}

		if err := n.store.MarkNotified(ctx, e.CampaignID, e.ContractID, status); err != nil {
			return sent, failed, fmt.Errorf("mark notified %s: %w", e.ContractID, err)
		}
	}
	return sent, failed, nil
}

// ProcessPending loads a campaign's entries and dispatches whatever is
// still pending. The scheduler calls this after each batch run.
func (n *Notifier) ProcessPending(ctx context.Context, campaignID string) (sent, failed int, err error) {
	entries, err := n.store.Entries(ctx, campaignID)
	if err != nil {
		return 0, 0, fmt.Errorf("load entries for %s: %w", campaignID, err)
	}
	return n.ProcessEntries(ctx, entries)
}
