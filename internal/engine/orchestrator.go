package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/franksunye/incentive-ledger/internal/campaign"
	"github.com/franksunye/incentive-ledger/internal/contract"
	"github.com/franksunye/incentive-ledger/internal/ledger"
)

// Orchestrator drives one campaign batch run end to end: prior-state load,
// per-contract dedup, accumulation, reward determination, entry build, and
// the single atomic flush to the store.
//
// A run is strictly sequential; sequence positions and tier monotonicity
// depend on arrival order. Distinct campaigns may run concurrently on the
// same Orchestrator since a run keeps all mutable state on its own stack.
type Orchestrator struct {
	registry *campaign.Registry
	store    ledger.Store
	tokens   TokenGenerator
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTokenGenerator overrides the run token source. Tests pass a
// FixedGenerator for stable output.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(o *Orchestrator) { o.tokens = g }
}

// WithNow overrides the clock stamped into RegisteredAt.
func WithNow(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator over a rule registry and a ledger store.
func New(registry *campaign.Registry, store ledger.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		store:    store,
		tokens:   UUIDv7Generator{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunResult summarizes one batch run.
type RunResult struct {
	RunToken   string
	CampaignID string

	// Appended entries, in the order they were written.
	Entries []ledger.Entry

	Appended int
	Skipped  int // duplicates, across runs or within the batch
	Rejected int // invalid contracts, skipped with a warning
}

// Run processes one batch of contracts for a campaign.
//
// Contracts are visited in arrival order. A contract already recorded in
// the store, or seen earlier in this same batch, is skipped; the in-batch
// set is independent of the store because the store is only consulted once
// at batch start. Invalid contracts are rejected individually and the
// batch keeps going. All surviving entries are flushed in one Append; if
// that fails, every in-memory mutation is discarded with the run, so the
// next scheduled attempt recomputes cleanly from the unchanged store.
func (o *Orchestrator) Run(ctx context.Context, campaignID string, records []contract.Record) (*RunResult, error) {
	token := o.tokens.Generate()
	log := slog.With("run", token, "campaign", campaignID)

	rules, found := o.registry.RulesFor(campaignID)
	if !found {
		return nil, &RunError{
			Code:       CodeConfigNotFound,
			Message:    "campaign not registered",
			CampaignID: campaignID,
		}
	}

	existing, err := o.store.ExistingContractIDs(ctx, campaignID)
	if err != nil {
		return nil, &RunError{
			Code:       CodePersistenceFailure,
			Message:    "load existing contract ids",
			CampaignID: campaignID,
			Err:        err,
		}
	}
	prior, err := o.store.PriorAgentTotals(ctx, campaignID)
	if err != nil {
		return nil, &RunError{
			Code:       CodePersistenceFailure,
			Message:    "load prior agent totals",
			CampaignID: campaignID,
			Err:        err,
		}
	}

	log.Info("batch run starting",
		"contracts", len(records),
		"recorded", len(existing),
		"agents", len(prior),
	)

	acc := NewAccumulator(rules, prior)
	seen := make(map[string]struct{}, len(records))
	result := &RunResult{RunToken: token, CampaignID: campaignID}
	seqBase := len(existing)
	// One write timestamp per run: the batch lands atomically, so every
	// entry it produces shares RegisteredAt.
	registeredAt := o.now()

	for _, rec := range records {
		if _, dup := existing[rec.ContractID]; dup {
			log.Debug("skipping recorded contract", "contract_id", rec.ContractID)
			result.Skipped++
			continue
		}
		if _, dup := seen[rec.ContractID]; dup {
			log.Debug("skipping in-batch duplicate", "contract_id", rec.ContractID)
			result.Skipped++
			continue
		}
		seen[rec.ContractID] = struct{}{}

		if err := rec.Validate(); err != nil {
			log.Warn("rejecting contract", "contract_id", rec.ContractID, "error", err)
			result.Rejected++
			continue
		}

		agentKey := rules.AgentKey(rec.HousekeeperID, rec.ServiceProviderName)
		seq := seqBase + len(result.Entries) + 1

		snap, err := acc.Update(agentKey, rec.ContractAmount, rec.ServiceAppointmentNum)
		if err != nil {
			// Validate caught negative amounts already, so a failing
			// update means the run itself is unsound.
			return nil, fmt.Errorf("run %s: contract %s: %w", token, rec.ContractID, err)
		}

		det, err := Determine(seq, snap, rec.ContractAmount, rules)
		if err != nil {
			return nil, fmt.Errorf("run %s: contract %s: %w", token, rec.ContractID, err)
		}

		tierNames := progressiveNames(det)
		if len(tierNames) > 0 {
			acc.MarkAwarded(agentKey, tierNames)
		}

		entry := ledger.BuildEntry(ledger.BuildInput{
			CampaignID:        campaignID,
			Record:            rec,
			Sequence:          seq,
			AgentKey:          agentKey,
			RunningCount:      snap.ContractCount,
			RunningAmount:     snap.CumulativeAmount,
			PerformanceAmount: snap.PerformanceAmount,
			BonusPoolRatio:    rules.BonusPoolRatio,
			RewardTypes:       det.RewardTypes,
			RewardNames:       det.RewardNames,
			Remark:            det.Remark,
			RegisteredAt:      registeredAt,
		})
		result.Entries = append(result.Entries, entry)

		if entry.RewardActivated {
			log.Info("reward unlocked",
				"contract_id", rec.ContractID,
				"agent", agentKey,
				"seq", seq,
				"rewards", det.RewardNames,
			)
		}
	}

	if len(result.Entries) > 0 {
		if err := o.store.Append(ctx, result.Entries); err != nil {
			return nil, &RunError{
				Code:       CodePersistenceFailure,
				Message:    "append batch",
				CampaignID: campaignID,
				Err:        err,
			}
		}
	}
	result.Appended = len(result.Entries)

	log.Info("batch run flushed",
		"appended", result.Appended,
		"skipped", result.Skipped,
		"rejected", result.Rejected,
	)
	return result, nil
}

func progressiveNames(det Determination) []string {
	var names []string
	for i, typ := range det.RewardTypes {
		if typ == ledger.RewardTypeProgressive && i < len(det.RewardNames) {
			names = append(names, det.RewardNames[i])
		}
	}
	return names
}
