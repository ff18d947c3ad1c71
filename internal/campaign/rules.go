package campaign

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/shopspring/decimal"
)

// AgentKeyPolicy selects how contracts are grouped into an agent total.
//
// Most campaigns key on the housekeeper alone. A few city programs run the
// same incentive across partner companies and need the service provider name
// folded into the key so the same housekeeper working for two providers
// accumulates separately.
type AgentKeyPolicy int

const (
	// AgentKeyHousekeeper keys totals by housekeeper ID alone.
	AgentKeyHousekeeper AgentKeyPolicy = iota

	// AgentKeyComposite keys totals by housekeeper ID plus provider name.
	AgentKeyComposite
)

// Tier is one rung of a progressive reward ladder.
type Tier struct {
	Name            string
	AmountThreshold decimal.Decimal
}

// TieredRewards describes the progressive ladder for a campaign.
//
// Tiers are held sorted ascending by threshold; NewRules enforces this.
// The ladder is only consulted once an agent has signed at least
// MinContracts contracts.
type TieredRewards struct {
	MinContracts int
	Tiers        []Tier
}

// LuckyHighValue is the upgraded lucky-number reward for big contracts.
type LuckyHighValue struct {
	Name            string
	AmountThreshold decimal.Decimal
}

// LuckyRewards configures the lucky-number reward pair.
// Base is awarded when the sequence position matches the lucky digit;
// HighValue replaces it when the contract amount meets its threshold.
type LuckyRewards struct {
	Base      string
	HighValue LuckyHighValue
}

// PerformanceCap limits how much a single contract contributes to the
// agent's performance total. The full contract amount still counts toward
// the uncapped cumulative total.
type PerformanceCap struct {
	Enabled        bool
	PerContractCap decimal.Decimal
}

// Rules is the immutable rule set for one campaign.
//
// A Rules value is built once by NewRules (or the CUE loader) and never
// mutated afterwards. The engine receives it by value.
type Rules struct {
	// CampaignID is the stable identifier, "<CITY>-<YYYY>-<MM>".
	CampaignID string

	// LuckyDigit is a single digit "0".."9", or empty when the campaign
	// has no lucky-number reward. Compared as a string against the last
	// digit of the campaign sequence position.
	LuckyDigit string

	LuckyRewards  LuckyRewards
	TieredRewards TieredRewards

	PerformanceCap PerformanceCap

	// SingleProjectLimit caps how much all contracts sharing one service
	// appointment may contribute to the agent total. Nil when unlimited.
	SingleProjectLimit *decimal.Decimal

	// BonusPoolRatio funds the campaign bonus pool per contract.
	// Zero for campaigns without a pool.
	BonusPoolRatio decimal.Decimal

	AgentKeyPolicy AgentKeyPolicy

	// BackfillSkippedTiers controls what happens when a single contract
	// carries an agent past more than one unattained tier: when true every
	// skipped tier is awarded alongside the highest. See DESIGN.md.
	BackfillSkippedTiers bool
}

var campaignIDPattern = regexp.MustCompile(`^[A-Z]{2,8}-\d{4}-\d{2}$`)

// NewRules validates and normalizes a rule set.
//
// Validation is fail-fast: a malformed rule set never enters the registry.
// Tiers are sorted ascending by threshold so the reward engine can rely on
// the order.
func NewRules(r Rules) (Rules, error) {
	if !campaignIDPattern.MatchString(r.CampaignID) {
		return Rules{}, fmt.Errorf("campaign id %q: want <CITY>-<YYYY>-<MM>", r.CampaignID)
	}
	if r.LuckyDigit != "" {
		if len(r.LuckyDigit) != 1 || r.LuckyDigit[0] < '0' || r.LuckyDigit[0] > '9' {
			return Rules{}, fmt.Errorf("campaign %s: lucky digit %q is not a single digit", r.CampaignID, r.LuckyDigit)
		}
		if r.LuckyRewards.Base == "" {
			return Rules{}, fmt.Errorf("campaign %s: lucky digit set but no base lucky reward name", r.CampaignID)
		}
	}
	if r.TieredRewards.MinContracts < 0 {
		return Rules{}, fmt.Errorf("campaign %s: negative min contracts %d", r.CampaignID, r.TieredRewards.MinContracts)
	}
	seen := make(map[string]bool, len(r.TieredRewards.Tiers))
	for _, t := range r.TieredRewards.Tiers {
		if t.Name == "" {
			return Rules{}, fmt.Errorf("campaign %s: tier with empty name", r.CampaignID)
		}
		if seen[t.Name] {
			return Rules{}, fmt.Errorf("campaign %s: duplicate tier name %q", r.CampaignID, t.Name)
		}
		seen[t.Name] = true
		if t.AmountThreshold.IsNegative() {
			return Rules{}, fmt.Errorf("campaign %s: tier %q has negative threshold", r.CampaignID, t.Name)
		}
	}
	if r.PerformanceCap.Enabled && !r.PerformanceCap.PerContractCap.IsPositive() {
		return Rules{}, fmt.Errorf("campaign %s: performance cap enabled with non-positive cap", r.CampaignID)
	}
	if r.SingleProjectLimit != nil && !r.SingleProjectLimit.IsPositive() {
		return Rules{}, fmt.Errorf("campaign %s: non-positive single project limit", r.CampaignID)
	}
	if r.BonusPoolRatio.IsNegative() {
		return Rules{}, fmt.Errorf("campaign %s: negative bonus pool ratio", r.CampaignID)
	}

	// Copy the tier slice before sorting so callers cannot mutate the
	// registered rule set through their own slice.
	tiers := make([]Tier, len(r.TieredRewards.Tiers))
	copy(tiers, r.TieredRewards.Tiers)
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].AmountThreshold.LessThan(tiers[j].AmountThreshold)
	})
	r.TieredRewards.Tiers = tiers

	if r.SingleProjectLimit != nil {
		limit := *r.SingleProjectLimit
		r.SingleProjectLimit = &limit
	}

	return r, nil
}

// CapsPerformance reports whether any cap separates the performance total
// from the plain cumulative total.
func (r Rules) CapsPerformance() bool {
	return r.PerformanceCap.Enabled || r.SingleProjectLimit != nil
}

// AgentKey derives the accumulator key for a contract under this campaign's
// key policy.
func (r Rules) AgentKey(housekeeperID, serviceProviderName string) string {
	if r.AgentKeyPolicy == AgentKeyComposite {
		return housekeeperID + "|" + serviceProviderName
	}
	return housekeeperID
}
