package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/franksunye/incentive-ledger/internal/ledger"
)

// RunWithGolden executes a scenario against the file backend and compares
// the resulting canonical ledger against a golden file under
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Golden files are the source of truth for ledger output; any change to
// field order, decimal scale, or reward determination shows up as a diff
// here.
func RunWithGolden(t *testing.T, s *Scenario) *Result {
	t.Helper()

	result, err := RunFileBacked(s, t.TempDir())
	if err != nil {
		t.Fatalf("scenario %s: %v", s.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, ledger.MarshalCanonical(result.Entries))

	return result
}
