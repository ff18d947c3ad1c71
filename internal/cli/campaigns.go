package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// CampaignsOptions holds flags for the campaigns command.
type CampaignsOptions struct {
	*RootOptions
	RulesDir string
}

// CampaignInfo is one campaign's summary in the campaigns listing.
type CampaignInfo struct {
	ID         string `json:"id"`
	LuckyDigit string `json:"lucky_digit,omitempty"`
	TierCount  int    `json:"tier_count"`
	Capped     bool   `json:"capped"`
}

// CampaignList is the campaigns command output.
type CampaignList struct {
	Campaigns []CampaignInfo `json:"campaigns"`
}

func (l CampaignList) String() string {
	var b strings.Builder
	for _, c := range l.Campaigns {
		fmt.Fprintf(&b, "%s\ttiers=%d", c.ID, c.TierCount)
		if c.LuckyDigit != "" {
			fmt.Fprintf(&b, "\tlucky=%s", c.LuckyDigit)
		}
		if c.Capped {
			b.WriteString("\tcapped")
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewCampaignsCommand creates the campaigns command.
func NewCampaignsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CampaignsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "campaigns",
		Short:         "List registered campaign rule sets",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCampaigns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RulesDir, "rules", "", "directory of CUE campaign rules (required)")
	_ = cmd.MarkFlagRequired("rules")

	return cmd
}

func runCampaigns(opts *CampaignsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	registry, fileCount, err := LoadRegistry(opts.RulesDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load campaign rules", err)
	}
	formatter.VerboseLog("Loaded %d CUE file(s)", fileCount)

	list := CampaignList{}
	for _, id := range registry.CampaignIDs() {
		rules, _ := registry.RulesFor(id)
		list.Campaigns = append(list.Campaigns, CampaignInfo{
			ID:         id,
			LuckyDigit: rules.LuckyDigit,
			TierCount:  len(rules.TieredRewards.Tiers),
			Capped:     rules.CapsPerformance(),
		})
	}
	return formatter.Success(list)
}
