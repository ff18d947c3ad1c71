package campaign

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Def is the serialized shape of a campaign rule set, shared by the CUE
// rules loader and the YAML scenario fixtures. Amounts are strings so
// definitions carry exact decimals.
type Def struct {
	ID         string `yaml:"id" json:"id"`
	LuckyDigit string `yaml:"lucky_digit,omitempty" json:"lucky_digit,omitempty"`

	LuckyRewards  LuckyRewardsDef  `yaml:"lucky_rewards,omitempty" json:"lucky_rewards,omitempty"`
	TieredRewards TieredRewardsDef `yaml:"tiered_rewards,omitempty" json:"tiered_rewards,omitempty"`

	PerformanceCap PerformanceCapDef `yaml:"performance_cap,omitempty" json:"performance_cap,omitempty"`

	SingleProjectLimit string `yaml:"single_project_limit,omitempty" json:"single_project_limit,omitempty"`
	BonusPoolRatio     string `yaml:"bonus_pool_ratio,omitempty" json:"bonus_pool_ratio,omitempty"`

	// AgentKeyPolicy is "housekeeper" (default) or "composite".
	AgentKeyPolicy string `yaml:"agent_key_policy,omitempty" json:"agent_key_policy,omitempty"`

	BackfillSkippedTiers bool `yaml:"backfill_skipped_tiers" json:"backfill_skipped_tiers"`
}

// LuckyRewardsDef is the serialized lucky-number reward pair.
type LuckyRewardsDef struct {
	Base      string `yaml:"base" json:"base"`
	HighValue struct {
		Name            string `yaml:"name" json:"name"`
		AmountThreshold string `yaml:"amount_threshold" json:"amount_threshold"`
	} `yaml:"high_value" json:"high_value"`
}

// TieredRewardsDef is the serialized progressive ladder.
type TieredRewardsDef struct {
	MinContracts int       `yaml:"min_contracts" json:"min_contracts"`
	Tiers        []TierDef `yaml:"tiers" json:"tiers"`
}

// TierDef is one serialized ladder rung.
type TierDef struct {
	Name            string `yaml:"name" json:"name"`
	AmountThreshold string `yaml:"amount_threshold" json:"amount_threshold"`
}

// PerformanceCapDef is the serialized per-contract performance cap.
type PerformanceCapDef struct {
	Enabled        bool   `yaml:"enabled" json:"enabled"`
	PerContractCap string `yaml:"per_contract_cap" json:"per_contract_cap"`
}

// Rules converts the definition into a validated rule set.
func (c Def) Rules() (Rules, error) {
	r := Rules{
		CampaignID:           c.ID,
		LuckyDigit:           c.LuckyDigit,
		BackfillSkippedTiers: c.BackfillSkippedTiers,
	}

	var err error
	amount := func(field, raw string) decimal.Decimal {
		if err != nil || raw == "" {
			return decimal.Zero
		}
		var d decimal.Decimal
		d, err = decimal.NewFromString(raw)
		if err != nil {
			err = fmt.Errorf("campaign %s: %s: %w", c.ID, field, err)
		}
		return d
	}

	r.LuckyRewards = LuckyRewards{
		Base: c.LuckyRewards.Base,
		HighValue: LuckyHighValue{
			Name:            c.LuckyRewards.HighValue.Name,
			AmountThreshold: amount("lucky high value threshold", c.LuckyRewards.HighValue.AmountThreshold),
		},
	}

	r.TieredRewards.MinContracts = c.TieredRewards.MinContracts
	for _, t := range c.TieredRewards.Tiers {
		r.TieredRewards.Tiers = append(r.TieredRewards.Tiers, Tier{
			Name:            t.Name,
			AmountThreshold: amount("tier "+t.Name, t.AmountThreshold),
		})
	}

	r.PerformanceCap = PerformanceCap{
		Enabled:        c.PerformanceCap.Enabled,
		PerContractCap: amount("per contract cap", c.PerformanceCap.PerContractCap),
	}

	if c.SingleProjectLimit != "" {
		limit := amount("single project limit", c.SingleProjectLimit)
		r.SingleProjectLimit = &limit
	}
	if c.BonusPoolRatio != "" {
		r.BonusPoolRatio = amount("bonus pool ratio", c.BonusPoolRatio)
	}

	switch c.AgentKeyPolicy {
	case "", "housekeeper":
		r.AgentKeyPolicy = AgentKeyHousekeeper
	case "composite":
		r.AgentKeyPolicy = AgentKeyComposite
	default:
		return Rules{}, fmt.Errorf("campaign %s: unknown agent key policy %q", c.ID, c.AgentKeyPolicy)
	}

	if err != nil {
		return Rules{}, err
	}
	return NewRules(r)
}
