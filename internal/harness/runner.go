package harness

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/franksunye/incentive-ledger/internal/campaign"
	"github.com/franksunye/incentive-ledger/internal/contract"
	"github.com/franksunye/incentive-ledger/internal/engine"
	"github.com/franksunye/incentive-ledger/internal/ledger"
	"github.com/franksunye/incentive-ledger/internal/ledger/filestore"
	"github.com/franksunye/incentive-ledger/internal/ledger/sqlstore"
)

// runEpoch is the fixed write timestamp for scenario runs. Canonical
// output excludes it anyway; fixing it keeps the raw stores comparable
// too.
var runEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Result is the outcome of executing a scenario against one store.
type Result struct {
	// Runs holds one orchestrator result per batch, in order.
	Runs []*engine.RunResult

	// Entries is the store's full ledger for the campaign after the last
	// batch, in deterministic store order.
	Entries []ledger.Entry
}

// Run executes a scenario's batches, in order, against the given store.
func Run(s *Scenario, store ledger.Store) (*Result, error) {
	rules, err := s.Campaign.Rules()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	registry, err := campaign.NewRegistry(rules)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	tokens := make([]string, len(s.Batches))
	for i := range tokens {
		tokens[i] = fmt.Sprintf("%s-run-%02d", s.Name, i+1)
	}
	orch := engine.New(registry, store,
		engine.WithTokenGenerator(engine.NewFixedGenerator(tokens...)),
		engine.WithNow(func() time.Time { return runEpoch }),
	)

	ctx := context.Background()
	result := &Result{}
	for i, batch := range s.Batches {
		records, warnings, err := contract.DecodeRows(batch.Rows)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: batch %d: %w", s.Name, i+1, err)
		}
		if len(warnings) > 0 {
			return nil, fmt.Errorf("scenario %s: batch %d: fixture has unparseable amounts: %v", s.Name, i+1, warnings)
		}
		run, err := orch.Run(ctx, s.Campaign.ID, records)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: batch %d: %w", s.Name, i+1, err)
		}
		result.Runs = append(result.Runs, run)
	}

	result.Entries, err = store.Entries(ctx, s.Campaign.ID)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: read back entries: %w", s.Name, err)
	}
	return result, nil
}

// RunFileBacked executes a scenario against a fresh file store rooted in
// dir.
func RunFileBacked(s *Scenario, dir string) (*Result, error) {
	store, err := filestore.Open(dir)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return Run(s, store)
}

// RunSQLBacked executes a scenario against a fresh SQLite store in dir.
func RunSQLBacked(s *Scenario, dir string) (*Result, error) {
	store, err := sqlstore.Open(filepath.Join(dir, "ledger.db"))
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return Run(s, store)
}

// RunBothBackends executes a scenario against a fresh file store and a
// fresh SQLite store and verifies the two ledgers are canonically
// identical. This is the backend-equivalence contract as an executable
// check.
//
// fileDir and sqlDir must be distinct empty directories.
func RunBothBackends(s *Scenario, fileDir, sqlDir string) (*Result, error) {
	fileResult, err := RunFileBacked(s, fileDir)
	if err != nil {
		return nil, fmt.Errorf("file backend: %w", err)
	}
	sqlResult, err := RunSQLBacked(s, sqlDir)
	if err != nil {
		return nil, fmt.Errorf("sqlite backend: %w", err)
	}

	fileCanon := ledger.MarshalCanonical(fileResult.Entries)
	sqlCanon := ledger.MarshalCanonical(sqlResult.Entries)
	if !bytes.Equal(fileCanon, sqlCanon) {
		return nil, fmt.Errorf("scenario %s: backends diverged:\nfile:\n%s\nsqlite:\n%s",
			s.Name, fileCanon, sqlCanon)
	}
	return fileResult, nil
}

// Verify checks a scenario's expectations against a result and returns
// one message per violated expectation. An empty slice means the scenario
// passed.
func Verify(s *Scenario, result *Result) []string {
	if s.Expect == nil {
		return nil
	}
	var violations []string

	for i, want := range s.Expect.Appended {
		if i >= len(result.Runs) {
			violations = append(violations, fmt.Sprintf("batch %d: no run result", i+1))
			continue
		}
		if got := result.Runs[i].Appended; got != want {
			violations = append(violations, fmt.Sprintf("batch %d: appended %d, want %d", i+1, got, want))
		}
	}

	byContract := make(map[string]ledger.Entry, len(result.Entries))
	for _, e := range result.Entries {
		byContract[e.ContractID] = e
	}

	for _, want := range s.Expect.Rewards {
		e, found := byContract[want.ContractID]
		if !found {
			violations = append(violations, fmt.Sprintf("contract %s: no ledger entry", want.ContractID))
			continue
		}
		if !equalStrings(e.RewardTypes, want.Types) {
			violations = append(violations, fmt.Sprintf("contract %s: reward types %v, want %v", want.ContractID, e.RewardTypes, want.Types))
		}
		if !equalStrings(e.RewardNames, want.Names) {
			violations = append(violations, fmt.Sprintf("contract %s: reward names %v, want %v", want.ContractID, e.RewardNames, want.Names))
		}
		if want.Remark != "" && e.Remark != want.Remark {
			violations = append(violations, fmt.Sprintf("contract %s: remark %q, want %q", want.ContractID, e.Remark, want.Remark))
		}
	}
	return violations
}

func equalStrings(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
