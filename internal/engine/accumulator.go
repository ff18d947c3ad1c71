package engine

import (
	"github.com/shopspring/decimal"

	"github.com/franksunye/incentive-ledger/internal/campaign"
	"github.com/franksunye/incentive-ledger/internal/ledger"
)

// Snapshot is an agent's running state at one contract, frozen for that
// contract's reward determination. The maps are copies: nothing the reward
// engine or the caller does to a snapshot can reach back into the
// accumulator.
type Snapshot struct {
	AgentKey          string
	ContractCount     int
	CumulativeAmount  decimal.Decimal
	PerformanceAmount decimal.Decimal
	AwardedTiers      map[string]struct{}
}

// Accumulator holds per-agent running totals for one campaign run.
//
// It lives exactly as long as the run: seeded from the store's historical
// aggregates at batch start, updated in contract-arrival order, and thrown
// away at the end. If the final append fails, discarding the accumulator
// discards every in-batch mutation, so a retry recomputes cleanly from the
// unchanged store.
//
// Not safe for concurrent use; a campaign run is strictly sequential.
type agentState struct {
	count              int
	cumulative         decimal.Decimal
	performance        decimal.Decimal
	awarded            map[string]struct{}
	appointmentCounted map[string]decimal.Decimal
}

type Accumulator struct {
	rules  campaign.Rules
	agents map[string]*agentState
}

// NewAccumulator seeds an accumulator from the store's prior aggregates.
// The prior maps are deep-copied; the store's view is never mutated.
func NewAccumulator(rules campaign.Rules, prior map[string]ledger.AgentTotals) *Accumulator {
	agents := make(map[string]*agentState, len(prior))
	for key, totals := range prior {
		st := &agentState{
			count:              totals.ContractCount,
			cumulative:         totals.CumulativeAmount,
			performance:        totals.PerformanceAmount,
			awarded:            make(map[string]struct{}, len(totals.AwardedTiers)),
			appointmentCounted: make(map[string]decimal.Decimal, len(totals.AppointmentCounted)),
		}
		for name := range totals.AwardedTiers {
			st.awarded[name] = struct{}{}
		}
		for appt, counted := range totals.AppointmentCounted {
			st.appointmentCounted[appt] = counted
		}
		agents[key] = st
	}
	return &Accumulator{rules: rules, agents: agents}
}

// Update applies one contract to an agent's running state and returns the
// post-update snapshot.
//
// The cumulative amount grows by the full contract amount unconditionally.
// The performance amount grows by the contract's counted contribution:
// capped per contract when the campaign's performance cap is on, and
// further limited by the remaining allowance of the contract's service
// appointment when the campaign has a single-project limit.
//
// A negative amount is rejected before any state changes.
func (a *Accumulator) Update(agentKey string, amount decimal.Decimal, appointment string) (Snapshot, error) {
	if amount.IsNegative() {
		return Snapshot{}, &RunError{
			Code:       CodeInvalidInput,
			Message:    "negative contract amount " + amount.String(),
			CampaignID: a.rules.CampaignID,
		}
	}

	st, ok := a.agents[agentKey]
	if !ok {
		st = &agentState{
			cumulative:         decimal.Zero,
			performance:        decimal.Zero,
			awarded:            make(map[string]struct{}),
			appointmentCounted: make(map[string]decimal.Decimal),
		}
		a.agents[agentKey] = st
	}

	contribution := amount
	if a.rules.PerformanceCap.Enabled && contribution.GreaterThan(a.rules.PerformanceCap.PerContractCap) {
		contribution = a.rules.PerformanceCap.PerContractCap
	}
	if a.rules.SingleProjectLimit != nil && appointment != "" {
		counted, ok := st.appointmentCounted[appointment]
		if !ok {
			counted = decimal.Zero
		}
		allowance := a.rules.SingleProjectLimit.Sub(counted)
		if allowance.IsNegative() {
			allowance = decimal.Zero
		}
		if contribution.GreaterThan(allowance) {
			contribution = allowance
		}
		st.appointmentCounted[appointment] = counted.Add(contribution)
	}

	st.count++
	st.cumulative = st.cumulative.Add(amount)
	st.performance = st.performance.Add(contribution)

	return a.snapshot(agentKey, st), nil
}

// MarkAwarded records tier names as awarded to an agent. One-way: names are
// only ever added, never removed, so a tier can never re-trigger. Called by
// the orchestrator after the reward engine emits progressive rewards.
func (a *Accumulator) MarkAwarded(agentKey string, names []string) {
	st, ok := a.agents[agentKey]
	if !ok {
		return
	}
	for _, name := range names {
		st.awarded[name] = struct{}{}
	}
}

func (a *Accumulator) snapshot(agentKey string, st *agentState) Snapshot {
	awarded := make(map[string]struct{}, len(st.awarded))
	for name := range st.awarded {
		awarded[name] = struct{}{}
	}
	return Snapshot{
		AgentKey:          agentKey,
		ContractCount:     st.count,
		CumulativeAmount:  st.cumulative,
		PerformanceAmount: st.performance,
		AwardedTiers:      awarded,
	}
}
