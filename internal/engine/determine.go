package engine

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/franksunye/incentive-ledger/internal/campaign"
	"github.com/franksunye/incentive-ledger/internal/ledger"
)

// Determination is the reward engine's verdict for one contract.
// RewardTypes and RewardNames are parallel ordered lists.
type Determination struct {
	RewardTypes []string
	RewardNames []string
	Remark      string
}

// Determine maps one contract's position and its agent's post-update
// snapshot to the rewards it newly unlocks.
//
// Pure: no state is read outside the arguments and none is written. The
// caller records emitted tier names back into the accumulator; keeping the
// mutation out of here is what makes the monotonic-award invariant easy to
// see.
//
// Lucky-number rewards compare the last digit of the sequence position
// against the campaign's lucky digit as strings, and recur every time the
// digit matches; they never consult the awarded-tier set. Progressive
// rewards are one-way: a tier name already in the snapshot's awarded set is
// never emitted again.
func Determine(seqPos int, snap Snapshot, amount decimal.Decimal, rules campaign.Rules) (Determination, error) {
	switch {
	case seqPos < 0:
		return Determination{}, &RunError{
			Code:       CodeInvalidInput,
			Message:    fmt.Sprintf("negative sequence position %d", seqPos),
			CampaignID: rules.CampaignID,
		}
	case snap.ContractCount < 0:
		return Determination{}, &RunError{
			Code:       CodeInvalidInput,
			Message:    fmt.Sprintf("negative contract count %d", snap.ContractCount),
			CampaignID: rules.CampaignID,
		}
	case amount.IsNegative():
		return Determination{}, &RunError{
			Code:       CodeInvalidInput,
			Message:    "negative contract amount " + amount.String(),
			CampaignID: rules.CampaignID,
		}
	}

	var det Determination

	if rules.LuckyDigit != "" && strconv.Itoa(seqPos%10) == rules.LuckyDigit {
		name := rules.LuckyRewards.Base
		high := rules.LuckyRewards.HighValue
		if high.Name != "" && amount.GreaterThanOrEqual(high.AmountThreshold) {
			name = high.Name
		}
		det.RewardTypes = append(det.RewardTypes, ledger.RewardTypeLucky)
		det.RewardNames = append(det.RewardNames, name)
	}

	tiers := rules.TieredRewards.Tiers
	qualified := snap.ContractCount >= rules.TieredRewards.MinContracts

	relevant := snap.CumulativeAmount
	if rules.CapsPerformance() {
		relevant = snap.PerformanceAmount
	}

	if len(tiers) > 0 && qualified {
		// Tiers are sorted ascending; the highest attained one is the
		// current tier. Skipped intermediate tiers are back-awarded when
		// the campaign says so, otherwise only the current tier lands.
		current := -1
		for i, tier := range tiers {
			if tier.AmountThreshold.LessThanOrEqual(relevant) {
				current = i
			}
		}
		if current >= 0 {
			from := current
			if rules.BackfillSkippedTiers {
				from = 0
			}
			for i := from; i <= current; i++ {
				if _, done := snap.AwardedTiers[tiers[i].Name]; done {
					continue
				}
				det.RewardTypes = append(det.RewardTypes, ledger.RewardTypeProgressive)
				det.RewardNames = append(det.RewardNames, tiers[i].Name)
			}
		}
	}

	det.Remark = remark(tiers, rules.TieredRewards.MinContracts, snap.ContractCount, relevant, qualified)
	return det, nil
}

// remark renders the distance-to-next-tier text shown to the agent.
func remark(tiers []campaign.Tier, minContracts, count int, relevant decimal.Decimal, qualified bool) string {
	if len(tiers) == 0 {
		return ledger.NoRemark
	}
	if !qualified {
		return fmt.Sprintf("%d more contracts to unlock tiers", minContracts-count)
	}
	for _, tier := range tiers {
		if tier.AmountThreshold.GreaterThan(relevant) {
			return fmt.Sprintf("%s to %s", ledger.AmountString(tier.AmountThreshold.Sub(relevant)), tier.Name)
		}
	}
	return ledger.NoRemark
}
