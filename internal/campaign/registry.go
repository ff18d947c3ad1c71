package campaign

import (
	"fmt"
	"sort"
)

// Registry holds the rule set for every registered campaign.
//
// A Registry is immutable after construction. Lookups never fall back to a
// default rule set: a campaign ID that was never registered is the caller's
// error, and the batch orchestrator refuses the run outright.
type Registry struct {
	rules map[string]Rules
}

// NewRegistry builds a registry from the given rule sets.
//
// Every rule set is validated via NewRules. Duplicate campaign IDs are
// rejected so a misconfigured rules directory cannot silently shadow an
// earlier definition.
func NewRegistry(sets ...Rules) (*Registry, error) {
	rules := make(map[string]Rules, len(sets))
	for _, r := range sets {
		validated, err := NewRules(r)
		if err != nil {
			return nil, fmt.Errorf("register campaign: %w", err)
		}
		if _, dup := rules[validated.CampaignID]; dup {
			return nil, fmt.Errorf("register campaign: duplicate campaign id %q", validated.CampaignID)
		}
		rules[validated.CampaignID] = validated
	}
	return &Registry{rules: rules}, nil
}

// RulesFor returns the rule set for a campaign ID.
// The second return value is false when the campaign was never registered.
func (reg *Registry) RulesFor(campaignID string) (Rules, bool) {
	r, ok := reg.rules[campaignID]
	return r, ok
}

// CampaignIDs returns all registered campaign IDs in sorted order.
func (reg *Registry) CampaignIDs() []string {
	ids := make([]string, 0, len(reg.rules))
	for id := range reg.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
