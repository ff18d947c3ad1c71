package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franksunye/incentive-ledger/internal/ledger"
)

func testEntry(campaign, contractID, agent string, seq, count int, amount string) ledger.Entry {
	d := decimal.RequireFromString(amount)
	return ledger.Entry{
		CampaignID:             campaign,
		ContractID:             contractID,
		HousekeeperID:          agent,
		AgentKey:               agent,
		ContractAmount:         d,
		SequenceInCampaign:     seq,
		AgentRunningCount:      count,
		AgentRunningAmount:     d,
		AgentPerformanceAmount: d,
		NotificationSent:       ledger.NotificationPending,
		Remark:                 ledger.NoRemark,
		RegisteredAt:           time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC),
	}
}

func TestAppendAndReadBack(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	batch := []ledger.Entry{
		testEntry("BJ-2025-05", "1001", "hk-1", 1, 1, "15000"),
		testEntry("BJ-2025-05", "1002", "hk-2", 2, 1, "8000"),
	}
	require.NoError(t, s.Append(ctx, batch))

	got, err := s.Entries(ctx, "BJ-2025-05")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ledger.MarshalCanonical(batch), ledger.MarshalCanonical(got))
}

func TestAppend_WritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, []ledger.Entry{testEntry("BJ-2025-05", "1", "hk-1", 1, 1, "100")}))
	require.NoError(t, s.Append(ctx, []ledger.Entry{testEntry("BJ-2025-05", "2", "hk-1", 2, 2, "200")}))

	raw, err := os.ReadFile(filepath.Join(dir, "BJ-2025-05.ledger"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(ledger.Columns, "\t"), lines[0])
}

func TestAppend_RejectsDuplicateContract(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, []ledger.Entry{testEntry("BJ-2025-05", "1", "hk-1", 1, 1, "100")}))

	err = s.Append(ctx, []ledger.Entry{
		testEntry("BJ-2025-05", "2", "hk-1", 2, 2, "200"),
		testEntry("BJ-2025-05", "1", "hk-1", 3, 3, "300"),
	})
	require.Error(t, err)

	// The whole batch must have been rejected, not just the duplicate.
	got, err := s.Entries(ctx, "BJ-2025-05")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAppend_RejectsMixedCampaigns(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	err = s.Append(context.Background(), []ledger.Entry{
		testEntry("BJ-2025-05", "1", "hk-1", 1, 1, "100"),
		testEntry("SH-2025-05", "2", "hk-1", 1, 1, "100"),
	})
	assert.Error(t, err)
}

func TestCampaignsAreIsolated(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, []ledger.Entry{testEntry("BJ-2025-05", "1", "hk-1", 1, 1, "100")}))
	require.NoError(t, s.Append(ctx, []ledger.Entry{testEntry("SH-2025-05", "1", "hk-9", 1, 1, "900")}))

	ids, err := s.ExistingContractIDs(ctx, "BJ-2025-05")
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	totals, err := s.PriorAgentTotals(ctx, "SH-2025-05")
	require.NoError(t, err)
	require.Contains(t, totals, "hk-9")
	assert.Equal(t, 1, totals["hk-9"].ContractCount)
}

func TestEntries_NoFileMeansEmpty(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	got, err := s.Entries(context.Background(), "BJ-2025-05")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMarkNotified(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, []ledger.Entry{
		testEntry("BJ-2025-05", "1", "hk-1", 1, 1, "100"),
		testEntry("BJ-2025-05", "2", "hk-2", 2, 1, "200"),
	}))

	require.NoError(t, s.MarkNotified(ctx, "BJ-2025-05", "2", ledger.NotificationSent))

	got, err := s.Entries(ctx, "BJ-2025-05")
	require.NoError(t, err)
	assert.Equal(t, ledger.NotificationPending, got[0].NotificationSent)
	assert.Equal(t, ledger.NotificationSent, got[1].NotificationSent)
}

func TestMarkNotified_UnknownContract(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, []ledger.Entry{testEntry("BJ-2025-05", "1", "hk-1", 1, 1, "100")}))
	assert.Error(t, s.MarkNotified(ctx, "BJ-2025-05", "404", ledger.NotificationSent))
}

func TestMarkNotified_InvalidStatus(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, s.MarkNotified(context.Background(), "BJ-2025-05", "1", "MAYBE"))
}
