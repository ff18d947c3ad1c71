// Package harness runs batch conformance scenarios against the ledger
// engine. A scenario bundles a campaign rule set, one or more input
// batches, and expectations about the resulting ledger; the runner
// executes it against a real store and, for the equivalence suite, against
// both backends at once.
package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/franksunye/incentive-ledger/internal/campaign"
)

// Scenario defines one conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario; golden files are keyed by it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Campaign is the rule set the batches run under.
	Campaign CampaignDef `yaml:"campaign"`

	// Batches are executed in order, each as one orchestrator run, so a
	// scenario can exercise cross-run behavior (dedup, monotonic awards).
	Batches []Batch `yaml:"batches"`

	// Expect validates the outcome. Optional; golden scenarios lean on
	// the golden file instead.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Batch is one orchestrator run's worth of raw upstream rows.
type Batch struct {
	Rows []map[string]any `yaml:"rows"`
}

// CampaignDef is the fixture shape of a campaign rule set, shared with
// the CUE rules loader.
type CampaignDef = campaign.Def

// Expect validates scenario outcomes.
type Expect struct {
	// Appended is the expected appended count per batch, index-aligned
	// with Batches.
	Appended []int `yaml:"appended,omitempty"`

	// Rewards pins down individual entries by contract ID.
	Rewards []RewardExpect `yaml:"rewards,omitempty"`
}

// RewardExpect is the expected reward outcome for one contract.
type RewardExpect struct {
	ContractID string   `yaml:"contract_id"`
	Types      []string `yaml:"types"`
	Names      []string `yaml:"names"`
	Remark     string   `yaml:"remark,omitempty"`
}

// LoadScenario reads one scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: missing name", path)
	}
	if s.Campaign.ID == "" {
		return nil, fmt.Errorf("scenario %s: missing campaign id", s.Name)
	}
	if len(s.Batches) == 0 {
		return nil, fmt.Errorf("scenario %s: no batches", s.Name)
	}
	return &s, nil
}

