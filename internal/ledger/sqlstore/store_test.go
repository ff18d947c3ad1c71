package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franksunye/incentive-ledger/internal/ledger"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

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

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "open iteration %d", i)
		require.NoError(t, s.Close())
	}
}

func TestAppendAndReadBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batch := []ledger.Entry{
		testEntry("BJ-2025-05", "1001", "hk-1", 1, 1, "15000"),
		testEntry("BJ-2025-05", "1002", "hk-2", 2, 1, "8000.50"),
	}
	require.NoError(t, s.Append(ctx, batch))

	got, err := s.Entries(ctx, "BJ-2025-05")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ledger.MarshalCanonical(batch), ledger.MarshalCanonical(got))
}

func TestAppend_DuplicateRollsBackWholeBatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, []ledger.Entry{testEntry("BJ-2025-05", "1", "hk-1", 1, 1, "100")}))

	err := s.Append(ctx, []ledger.Entry{
		testEntry("BJ-2025-05", "2", "hk-1", 2, 2, "200"),
		testEntry("BJ-2025-05", "1", "hk-1", 3, 3, "300"),
	})
	require.Error(t, err)

	ids, err := s.ExistingContractIDs(ctx, "BJ-2025-05")
	require.NoError(t, err)
	assert.Len(t, ids, 1, "failed batch must leave no partial rows")
}

func TestAppend_DuplicateWithinBatchFails(t *testing.T) {
	s := openTestStore(t)

	err := s.Append(context.Background(), []ledger.Entry{
		testEntry("BJ-2025-05", "7", "hk-1", 1, 1, "100"),
		testEntry("BJ-2025-05", "7", "hk-1", 2, 2, "200"),
	})
	assert.Error(t, err)
}

func TestCampaignsAreIsolated(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, []ledger.Entry{testEntry("BJ-2025-05", "1", "hk-1", 1, 1, "100")}))
	// Same contract ID under another campaign is a distinct ledger row.
	require.NoError(t, s.Append(ctx, []ledger.Entry{testEntry("SH-2025-05", "1", "hk-9", 1, 1, "900")}))

	ids, err := s.ExistingContractIDs(ctx, "BJ-2025-05")
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	totals, err := s.PriorAgentTotals(ctx, "SH-2025-05")
	require.NoError(t, err)
	require.Contains(t, totals, "hk-9")
	assert.True(t, totals["hk-9"].CumulativeAmount.Equal(decimal.RequireFromString("900")))
}

func TestEntries_DeterministicOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Append out of sequence order; reads must still come back ordered.
	require.NoError(t, s.Append(ctx, []ledger.Entry{testEntry("BJ-2025-05", "30", "hk-1", 3, 3, "300")}))
	require.NoError(t, s.Append(ctx, []ledger.Entry{testEntry("BJ-2025-05", "10", "hk-1", 1, 1, "100")}))
	require.NoError(t, s.Append(ctx, []ledger.Entry{testEntry("BJ-2025-05", "20", "hk-1", 2, 2, "200")}))

	got, err := s.Entries(ctx, "BJ-2025-05")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{
		got[0].SequenceInCampaign, got[1].SequenceInCampaign, got[2].SequenceInCampaign,
	})
}

func TestMarkNotified(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, []ledger.Entry{testEntry("BJ-2025-05", "1", "hk-1", 1, 1, "100")}))
	require.NoError(t, s.MarkNotified(ctx, "BJ-2025-05", "1", ledger.NotificationFailed))

	got, err := s.Entries(ctx, "BJ-2025-05")
	require.NoError(t, err)
	assert.Equal(t, ledger.NotificationFailed, got[0].NotificationSent)
}

func TestMarkNotified_UnknownContract(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.MarkNotified(context.Background(), "BJ-2025-05", "404", ledger.NotificationSent))
}

func TestRewardListsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := testEntry("BJ-2025-05", "1", "hk-1", 1, 6, "45000")
	e.RewardActivated = true
	e.RewardTypes = []string{ledger.RewardTypeLucky, ledger.RewardTypeProgressive}
	e.RewardNames = []string{"lucky-star-plus", "qualify"}
	require.NoError(t, s.Append(ctx, []ledger.Entry{e}))

	got, err := s.Entries(ctx, "BJ-2025-05")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, e.RewardTypes, got[0].RewardTypes)
	assert.Equal(t, e.RewardNames, got[0].RewardNames)
	assert.True(t, got[0].RewardActivated)
}
