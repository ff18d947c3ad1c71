package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/franksunye/incentive-ledger/internal/ledger"
)

// ExistingContractIDs returns the dedup set for a campaign.
func (s *Store) ExistingContractIDs(ctx context.Context, campaignID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT contract_id FROM ledger_entries WHERE campaign_id = ?
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: query contract ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlstore: scan contract id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterate contract ids: %w", err)
	}
	return ids, nil
}

// PriorAgentTotals rebuilds per-agent aggregates by scanning the campaign's
// entries. Shares the reconstruction with the file backend.
func (s *Store) PriorAgentTotals(ctx context.Context, campaignID string) (map[string]ledger.AgentTotals, error) {
	entries, err := s.Entries(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	return ledger.StateFromEntries(entries), nil
}

// Entries returns the campaign's entries in deterministic order:
// sequence ascending, contract ID as tiebreak.
func (s *Store) Entries(ctx context.Context, campaignID string) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT campaign_id, contract_id, housekeeper_id, service_provider_name,
		       contract_amount, paid_amount, difference_amount,
		       signed_at, created_at, service_appointment_num,
		       conversion_rate, average_ticket,
		       seq_in_campaign, agent_key,
		       agent_running_count, agent_running_amount, agent_performance_amount,
		       bonus_pool_amount,
		       reward_activated, reward_types, reward_names,
		       notification_sent, remark, registered_at
		FROM ledger_entries
		WHERE campaign_id = ?
		ORDER BY seq_in_campaign ASC, contract_id COLLATE BINARY ASC
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: query entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterate entries: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (ledger.Entry, error) {
	var (
		e                                    ledger.Entry
		contractAmount, paidAmount, diff     string
		conversionRate, averageTicket        string
		runningAmount, perfAmount, bonusPool string
		rewardActivated                      int
		rewardTypes, rewardNames             string
		registeredAt                         string
	)

	err := row.Scan(
		&e.CampaignID, &e.ContractID, &e.HousekeeperID, &e.ServiceProviderName,
		&contractAmount, &paidAmount, &diff,
		&e.SignedAt, &e.CreatedAt, &e.ServiceAppointmentNum,
		&conversionRate, &averageTicket,
		&e.SequenceInCampaign, &e.AgentKey,
		&e.AgentRunningCount, &runningAmount, &perfAmount,
		&bonusPool,
		&rewardActivated, &rewardTypes, &rewardNames,
		&e.NotificationSent, &e.Remark, &registeredAt,
	)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("sqlstore: scan entry: %w", err)
	}

	amounts := map[string]struct {
		raw  string
		dest *decimal.Decimal
	}{
		"contract_amount":          {contractAmount, &e.ContractAmount},
		"paid_amount":              {paidAmount, &e.PaidAmount},
		"difference_amount":        {diff, &e.DifferenceAmount},
		"conversion_rate":          {conversionRate, &e.ConversionRate},
		"average_ticket":           {averageTicket, &e.AverageTicket},
		"agent_running_amount":     {runningAmount, &e.AgentRunningAmount},
		"agent_performance_amount": {perfAmount, &e.AgentPerformanceAmount},
		"bonus_pool_amount":        {bonusPool, &e.BonusPoolAmount},
	}
	for column, a := range amounts {
		d, err := decimal.NewFromString(a.raw)
		if err != nil {
			return ledger.Entry{}, fmt.Errorf("sqlstore: scan entry %s: column %s: %w", e.ContractID, column, err)
		}
		*a.dest = d
	}

	e.RewardActivated = rewardActivated != 0
	if rewardTypes != "" {
		e.RewardTypes = strings.Split(rewardTypes, rewardSeparator)
	}
	if rewardNames != "" {
		e.RewardNames = strings.Split(rewardNames, rewardSeparator)
	}

	e.RegisteredAt, err = time.Parse(time.RFC3339Nano, registeredAt)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("sqlstore: scan entry %s: registered_at: %w", e.ContractID, err)
	}

	return e, nil
}
