package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/franksunye/incentive-ledger/internal/ledger"
)

const rewardSeparator = "|"

// Append atomically adds a batch of entries in one transaction.
//
// Each insert uses ON CONFLICT DO NOTHING and then checks the affected row
// count: a conflict means a contract the engine believed new is already
// recorded, so the configured view of the store is stale and the whole
// batch rolls back. No entry of a failed batch ever becomes visible.
func (s *Store) Append(ctx context.Context, entries []ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: append: begin tx: %w", err)
	}
	defer tx.Rollback() // no-op if committed

	for _, e := range entries {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_entries
			(campaign_id, contract_id, housekeeper_id, service_provider_name,
			 contract_amount, paid_amount, difference_amount,
			 signed_at, created_at, service_appointment_num,
			 conversion_rate, average_ticket,
			 seq_in_campaign, agent_key,
			 agent_running_count, agent_running_amount, agent_performance_amount,
			 bonus_pool_amount,
			 reward_activated, reward_types, reward_names,
			 notification_sent, remark, registered_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(campaign_id, contract_id) DO NOTHING
		`,
			e.CampaignID,
			e.ContractID,
			e.HousekeeperID,
			e.ServiceProviderName,
			ledger.AmountString(e.ContractAmount),
			ledger.AmountString(e.PaidAmount),
			ledger.AmountString(e.DifferenceAmount),
			e.SignedAt,
			e.CreatedAt,
			e.ServiceAppointmentNum,
			ledger.AmountString(e.ConversionRate),
			ledger.AmountString(e.AverageTicket),
			e.SequenceInCampaign,
			e.AgentKey,
			e.AgentRunningCount,
			ledger.AmountString(e.AgentRunningAmount),
			ledger.AmountString(e.AgentPerformanceAmount),
			ledger.AmountString(e.BonusPoolAmount),
			boolToInt(e.RewardActivated),
			strings.Join(e.RewardTypes, rewardSeparator),
			strings.Join(e.RewardNames, rewardSeparator),
			e.NotificationSent,
			e.Remark,
			e.RegisteredAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("sqlstore: append contract %s: %w", e.ContractID, err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlstore: append contract %s: rows affected: %w", e.ContractID, err)
		}
		if affected == 0 {
			return fmt.Errorf("sqlstore: append: contract %s already recorded for campaign %s", e.ContractID, e.CampaignID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: append: commit: %w", err)
	}
	return nil
}

// MarkNotified flips the notification status of one entry.
func (s *Store) MarkNotified(ctx context.Context, campaignID, contractID, status string) error {
	switch status {
	case ledger.NotificationPending, ledger.NotificationSent, ledger.NotificationFailed:
	default:
		return fmt.Errorf("sqlstore: mark notified: invalid status %q", status)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE ledger_entries SET notification_sent = ?
		WHERE campaign_id = ? AND contract_id = ?
	`, status, campaignID, contractID)
	if err != nil {
		return fmt.Errorf("sqlstore: mark notified: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: mark notified: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("sqlstore: mark notified: contract %s not found for campaign %s", contractID, campaignID)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
