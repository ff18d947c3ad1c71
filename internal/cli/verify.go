package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/franksunye/incentive-ledger/internal/campaign"
	"github.com/franksunye/incentive-ledger/internal/contract"
	"github.com/franksunye/incentive-ledger/internal/engine"
	"github.com/franksunye/incentive-ledger/internal/ledger"
	"github.com/franksunye/incentive-ledger/internal/ledger/filestore"
	"github.com/franksunye/incentive-ledger/internal/ledger/sqlstore"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	RulesDir string
	Campaign string
}

// VerifyResult reports a backend-equivalence check.
type VerifyResult struct {
	CampaignID string `json:"campaign_id"`
	Entries    int    `json:"entries"`
	Equivalent bool   `json:"equivalent"`
}

func (r VerifyResult) String() string {
	if r.Equivalent {
		return fmt.Sprintf("campaign %s: %d entries, backends equivalent", r.CampaignID, r.Entries)
	}
	return fmt.Sprintf("campaign %s: backends diverged", r.CampaignID)
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <batch.json>",
		Short: "Check backend equivalence for a batch",
		Long: `Replay a contract batch against a fresh file store and a fresh SQLite
store and compare the resulting ledgers field by field.

The two backends must produce byte-identical canonical ledgers; any
divergence is a bug in a storage backend, never acceptable drift.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RulesDir, "rules", "", "directory of CUE campaign rules (required)")
	cmd.Flags().StringVar(&opts.Campaign, "campaign", "", "campaign ID to run under (required)")
	_ = cmd.MarkFlagRequired("rules")
	_ = cmd.MarkFlagRequired("campaign")

	return cmd
}

func runVerify(opts *VerifyOptions, batchPath string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	registry, _, err := LoadRegistry(opts.RulesDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load campaign rules", err)
	}

	rows, err := readBatch(batchPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read batch", err)
	}
	records, warnings, err := contract.DecodeRows(rows)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to decode batch", err)
	}
	formatter.VerboseLog("Decoded %d record(s), %d warning(s)", len(records), len(warnings))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	scratch, err := os.MkdirTemp("", "incentive-verify-*")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create scratch directory", err)
	}
	defer os.RemoveAll(scratch)

	fileCanon, err := replayFile(ctx, registry, opts.Campaign, records, filepath.Join(scratch, "file"))
	if err != nil {
		return WrapExitError(ExitFailure, "file backend replay failed", err)
	}
	sqlCanon, sqlCount, err := replaySQL(ctx, registry, opts.Campaign, records, filepath.Join(scratch, "ledger.db"))
	if err != nil {
		return WrapExitError(ExitFailure, "sqlite backend replay failed", err)
	}

	result := VerifyResult{
		CampaignID: opts.Campaign,
		Entries:    sqlCount,
		Equivalent: bytes.Equal(fileCanon, sqlCanon),
	}
	if !result.Equivalent {
		_ = formatter.Error(ErrCodeDiverged, result.String(), map[string]string{
			"file":   string(fileCanon),
			"sqlite": string(sqlCanon),
		})
		return NewExitError(ExitFailure, "backend ledgers diverged")
	}
	return formatter.Success(result)
}

func replayFile(ctx context.Context, registry *campaign.Registry, campaignID string, records []contract.Record, dir string) ([]byte, error) {
	store, err := filestore.Open(dir)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	canon, _, err := replay(ctx, registry, store, campaignID, records)
	return canon, err
}

func replaySQL(ctx context.Context, registry *campaign.Registry, campaignID string, records []contract.Record, path string) ([]byte, int, error) {
	store, err := sqlstore.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer store.Close()

	return replay(ctx, registry, store, campaignID, records)
}

func replay(ctx context.Context, registry *campaign.Registry, store ledger.Store, campaignID string, records []contract.Record) ([]byte, int, error) {
	orch := engine.New(registry, store)
	if _, err := orch.Run(ctx, campaignID, records); err != nil {
		return nil, 0, err
	}
	entries, err := store.Entries(ctx, campaignID)
	if err != nil {
		return nil, 0, err
	}
	return ledger.MarshalCanonical(entries), len(entries), nil
}
