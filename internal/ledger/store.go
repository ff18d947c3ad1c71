package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is the append-only persistence contract shared by the file and
// SQLite backends. The two implementations must be black-box
// interchangeable: given the same starting state and the same appended
// batches, Entries must return canonically identical sets.
//
// Concurrency contract: at most one in-flight batch per campaign touches a
// store at a time; different campaigns may be accessed concurrently since
// every operation is namespaced by campaign ID.
type Store interface {
	// ExistingContractIDs returns every contract ID already appended for
	// the campaign, across all prior runs. The dedup gate.
	ExistingContractIDs(ctx context.Context, campaignID string) (map[string]struct{}, error)

	// PriorAgentTotals reconstructs each agent's aggregate as of the last
	// run. Implementations derive it by scanning existing entries; totals
	// are never stored separately.
	PriorAgentTotals(ctx context.Context, campaignID string) (map[string]AgentTotals, error)

	// Entries returns every entry for the campaign in deterministic order
	// (sequence ascending, contract ID as tiebreak).
	Entries(ctx context.Context, campaignID string) ([]Entry, error)

	// Append atomically adds a batch: either every entry persists or none
	// does, so ExistingContractIDs can never disagree with entry presence.
	Append(ctx context.Context, entries []Entry) error

	// MarkNotified flips the notification status of one entry. Called on
	// behalf of the external notifier; the only sanctioned mutation of an
	// appended entry.
	MarkNotified(ctx context.Context, campaignID, contractID, status string) error

	// Close releases backend resources.
	Close() error
}

// AgentTotals is a stored agent aggregate: the accumulator-seeding view of
// everything previously recorded for one agent in one campaign.
type AgentTotals struct {
	ContractCount     int
	CumulativeAmount  decimal.Decimal
	PerformanceAmount decimal.Decimal

	// AwardedTiers holds every tier name already awarded to the agent.
	// One-way: names are only ever added.
	AwardedTiers map[string]struct{}

	// AppointmentCounted tracks, per service appointment, how much has
	// already counted toward the agent's performance total. Feeds the
	// single-project limit.
	AppointmentCounted map[string]decimal.Decimal
}

// NewAgentTotals returns an empty aggregate with initialized maps.
func NewAgentTotals() AgentTotals {
	return AgentTotals{
		CumulativeAmount:   decimal.Zero,
		PerformanceAmount:  decimal.Zero,
		AwardedTiers:       make(map[string]struct{}),
		AppointmentCounted: make(map[string]decimal.Decimal),
	}
}

// StateFromEntries rebuilds per-agent aggregates from a campaign's entries.
//
// Both backends answer PriorAgentTotals through this one function so the
// reconstruction logic cannot fork between them. Entries must be in
// deterministic store order (they are, per the Entries contract).
func StateFromEntries(entries []Entry) map[string]AgentTotals {
	totals := make(map[string]AgentTotals)
	for _, e := range entries {
		agg, ok := totals[e.AgentKey]
		if !ok {
			agg = NewAgentTotals()
		}

		// Running fields on the entry are inclusive of the entry itself,
		// so the latest entry per agent carries the aggregate. The
		// per-entry performance delta is what consumed the appointment
		// allowance.
		perfDelta := e.AgentPerformanceAmount.Sub(agg.PerformanceAmount)

		agg.ContractCount = e.AgentRunningCount
		agg.CumulativeAmount = e.AgentRunningAmount
		agg.PerformanceAmount = e.AgentPerformanceAmount

		if e.ServiceAppointmentNum != "" {
			prev, ok := agg.AppointmentCounted[e.ServiceAppointmentNum]
			if !ok {
				prev = decimal.Zero
			}
			agg.AppointmentCounted[e.ServiceAppointmentNum] = prev.Add(perfDelta)
		}

		for i, typ := range e.RewardTypes {
			if typ == RewardTypeProgressive && i < len(e.RewardNames) {
				agg.AwardedTiers[e.RewardNames[i]] = struct{}{}
			}
		}

		totals[e.AgentKey] = agg
	}
	return totals
}

// ContractIDSet projects a campaign's entries onto the dedup set.
func ContractIDSet(entries []Entry) map[string]struct{} {
	ids := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		ids[e.ContractID] = struct{}{}
	}
	return ids
}
