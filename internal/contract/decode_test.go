package contract

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "2024051234", "2024051234"},
		{"string with spaces", "  2024051234 ", "2024051234"},
		{"int64", int64(2024051234), "2024051234"},
		{"int", 17, "17"},
		{"json number", float64(2024051234), "2024051234"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeID(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeID_Rejects(t *testing.T) {
	_, err := NormalizeID("")
	assert.Error(t, err)

	_, err = NormalizeID(nil)
	assert.Error(t, err)

	_, err = NormalizeID([]string{"x"})
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"15000", "15000", true},
		{"15000.50", "15000.5", true},
		{"1,500,000", "1500000", true},
		{"", "0", true},
		{"   ", "0", true},
		{"abc", "0", false},
		{"12..3", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseAmount(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s want %s", got, tt.want)
		})
	}
}

func TestDecodeRow(t *testing.T) {
	row := map[string]any{
		"contract_id":             float64(2024051234),
		"housekeeper_id":          "hk-88",
		"service_provider_name":   "CleanCo",
		"contract_amount":         "15000",
		"paid_amount":             "5000",
		"difference_amount":       "10000",
		"signed_at":               "2025-05-12 10:30:00",
		"created_at":              "2025-05-12 10:31:02",
		"service_appointment_num": "SA-551",
	}

	rec, warnings, err := DecodeRow(row)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "2024051234", rec.ContractID)
	assert.Equal(t, "hk-88", rec.HousekeeperID)
	assert.True(t, rec.ContractAmount.Equal(decimal.RequireFromString("15000")))
	assert.Equal(t, "2025-05-12 10:30:00", rec.SignedAt)
	assert.Equal(t, "SA-551", rec.ServiceAppointmentNum)
}

func TestDecodeRow_EmptyAmountIsZero(t *testing.T) {
	rec, warnings, err := DecodeRow(map[string]any{
		"contract_id":     "9001",
		"housekeeper_id":  "hk-1",
		"contract_amount": "",
	})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.True(t, rec.ContractAmount.IsZero())
}

func TestDecodeRow_UnparseableAmountWarnsAndCoerces(t *testing.T) {
	rec, warnings, err := DecodeRow(map[string]any{
		"contract_id":     "9002",
		"housekeeper_id":  "hk-1",
		"contract_amount": "n/a",
	})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, "9002", warnings[0].ContractID)
	assert.Equal(t, "contract_amount", warnings[0].Field)
	assert.True(t, rec.ContractAmount.IsZero())
}

func TestDecodeRow_MissingContractIDFails(t *testing.T) {
	_, _, err := DecodeRow(map[string]any{"housekeeper_id": "hk-1"})
	assert.Error(t, err)
}

func TestDecodeRows_PreservesOrder(t *testing.T) {
	rows := []map[string]any{
		{"contract_id": "3", "housekeeper_id": "a"},
		{"contract_id": "1", "housekeeper_id": "b"},
		{"contract_id": "2", "housekeeper_id": "c"},
	}
	records, _, err := DecodeRows(rows)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "3", records[0].ContractID)
	assert.Equal(t, "1", records[1].ContractID)
	assert.Equal(t, "2", records[2].ContractID)
}

func TestRecord_Validate(t *testing.T) {
	rec := Record{ContractID: "1", HousekeeperID: "hk", ContractAmount: decimal.NewFromInt(10)}
	assert.NoError(t, rec.Validate())

	neg := rec
	neg.ContractAmount = decimal.NewFromInt(-1)
	assert.Error(t, neg.Validate())

	noID := rec
	noID.ContractID = ""
	assert.Error(t, noID.Validate())

	noAgent := rec
	noAgent.HousekeeperID = ""
	assert.Error(t, noAgent.Validate())
}
