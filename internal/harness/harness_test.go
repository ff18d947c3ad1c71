package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/franksunye/incentive-ledger/internal/ledger"
	"github.com/franksunye/incentive-ledger/internal/ledger/filestore"
	"github.com/franksunye/incentive-ledger/internal/ledger/sqlstore"
)

// TestScenarios runs every scenario fixture against both backends, checks
// the backends agree byte-for-byte on the canonical ledger, and verifies
// the scenario's own expectations.
func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no scenario fixtures found")

	for _, path := range paths {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunBothBackends(s, t.TempDir(), t.TempDir())
			require.NoError(t, err)

			violations := Verify(s, result)
			for _, v := range violations {
				t.Errorf("%s: %s", s.Name, v)
			}
		})
	}
}

// TestBackendEquivalenceAfterReopen replays a scenario, reopens both
// stores cold, and checks the read-back ledgers still agree. The write
// path and the read path must round-trip identically.
func TestBackendEquivalenceAfterReopen(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "cross-run-dedup.yaml"))
	require.NoError(t, err)

	fileDir := t.TempDir()
	sqlDir := t.TempDir()
	_, err = RunBothBackends(s, fileDir, sqlDir)
	require.NoError(t, err)

	fileAgain, err := reopenFile(fileDir, s.Campaign.ID)
	require.NoError(t, err)
	sqlAgain, err := reopenSQL(sqlDir, s.Campaign.ID)
	require.NoError(t, err)

	require.Equal(t, string(fileAgain), string(sqlAgain))
	require.NotEmpty(t, fileAgain)
}

func reopenFile(dir, campaignID string) ([]byte, error) {
	store, err := filestore.Open(dir)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	entries, err := store.Entries(context.Background(), campaignID)
	if err != nil {
		return nil, err
	}
	return ledger.MarshalCanonical(entries), nil
}

func reopenSQL(dir, campaignID string) ([]byte, error) {
	store, err := sqlstore.Open(filepath.Join(dir, "ledger.db"))
	if err != nil {
		return nil, err
	}
	defer store.Close()
	entries, err := store.Entries(context.Background(), campaignID)
	if err != nil {
		return nil, err
	}
	return ledger.MarshalCanonical(entries), nil
}

func TestRunFailsOnMissingScenarioFields(t *testing.T) {
	dir := t.TempDir()

	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}

	_, err := LoadScenario(filepath.Join(dir, "absent.yaml"))
	require.Error(t, err)

	_, err = LoadScenario(write("noname.yaml", "campaign:\n  id: BJ-2025-01\nbatches:\n  - rows: []\n"))
	require.ErrorContains(t, err, "missing name")

	_, err = LoadScenario(write("nocampaign.yaml", "name: x\nbatches:\n  - rows: []\n"))
	require.ErrorContains(t, err, "missing campaign id")

	_, err = LoadScenario(write("nobatches.yaml", "name: x\ncampaign:\n  id: BJ-2025-01\n"))
	require.ErrorContains(t, err, "no batches")
}
