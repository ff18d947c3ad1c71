package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/franksunye/incentive-ledger/internal/contract"
	"github.com/franksunye/incentive-ledger/internal/engine"
	"github.com/franksunye/incentive-ledger/internal/notify"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	RulesDir string
	Store    string
	Campaign string
	Notify   bool

	// TokenGenerator allows overriding the run token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	TokenGenerator engine.TokenGenerator
}

// RunSummary is the reported outcome of one batch run.
type RunSummary struct {
	RunToken   string `json:"run_token"`
	CampaignID string `json:"campaign_id"`
	Received   int    `json:"received"`
	Appended   int    `json:"appended"`
	Skipped    int    `json:"skipped"`
	Rejected   int    `json:"rejected"`
	Warnings   int    `json:"warnings"`
	Notified   int    `json:"notified,omitempty"`
}

func (s RunSummary) String() string {
	return fmt.Sprintf("run %s: campaign %s: received %d, appended %d, skipped %d, rejected %d",
		s.RunToken, s.CampaignID, s.Received, s.Appended, s.Skipped, s.Rejected)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <batch.json>",
		Short: "Process a contract batch into the ledger",
		Long: `Process one batch of raw contract rows for a campaign.

The batch file is a JSON array of row objects as exported by the upstream
contract system. Rows already present in the ledger are skipped; the rest
are accumulated, rewarded, and appended in one atomic write.

Example:
  incentive-ledger run --rules ./rules --store sqlite:./ledger.db --campaign BJ-2025-05 batch.json
  incentive-ledger run --rules ./rules --store file:./ledgers --campaign BJ-2025-05 batch.json --notify`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RulesDir, "rules", "", "directory of CUE campaign rules (required)")
	cmd.Flags().StringVar(&opts.Store, "store", "", "ledger store, file:<dir> or sqlite:<path> (required)")
	cmd.Flags().StringVar(&opts.Campaign, "campaign", "", "campaign ID to run under (required)")
	cmd.Flags().BoolVar(&opts.Notify, "notify", false, "dispatch notifications for activated rewards")
	_ = cmd.MarkFlagRequired("rules")
	_ = cmd.MarkFlagRequired("store")
	_ = cmd.MarkFlagRequired("campaign")

	return cmd
}

func runBatch(opts *RunOptions, batchPath string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)

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
	formatter.VerboseLog("Loaded %d campaign(s) from %d CUE file(s)", len(registry.CampaignIDs()), fileCount)

	rows, err := readBatch(batchPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read batch", err)
	}

	records, warnings, err := contract.DecodeRows(rows)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to decode batch", err)
	}
	for _, w := range warnings {
		slog.Warn("unparseable amount coerced to zero",
			"contract", w.ContractID, "field", w.Field, "raw", w.Raw)
	}

	store, err := OpenStore(opts.Store)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()

	var engineOpts []engine.Option
	if opts.TokenGenerator != nil {
		engineOpts = append(engineOpts, engine.WithTokenGenerator(opts.TokenGenerator))
	}
	orch := engine.New(registry, store, engineOpts...)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := orch.Run(ctx, opts.Campaign, records)
	if err != nil {
		if engine.IsConfigNotFound(err) {
			return WrapExitError(ExitCommandError, "unknown campaign", err)
		}
		return WrapExitError(ExitFailure, "run failed", err)
	}

	summary := RunSummary{
		RunToken:   result.RunToken,
		CampaignID: result.CampaignID,
		Received:   len(rows),
		Appended:   result.Appended,
		Skipped:    result.Skipped,
		Rejected:   result.Rejected,
		Warnings:   len(warnings),
	}

	if opts.Notify {
		notifier := notify.NewNotifier(store, notify.LogDispatcher{})
		sent, failed, err := notifier.ProcessEntries(ctx, result.Entries)
		if err != nil {
			return WrapExitError(ExitFailure, "notification dispatch failed", err)
		}
		summary.Notified = sent
		if failed > 0 {
			slog.Warn("some notifications failed", "failed", failed)
		}
	}

	return formatter.Success(summary)
}

// readBatch reads a JSON array of raw contract rows.
func readBatch(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}

// configureLogging routes structured logs to stderr, at debug level when
// verbose is on.
func configureLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}
