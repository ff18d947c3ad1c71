package contract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseWarning reports a numeric field that could not be parsed and was
// coerced to zero. The batch keeps going; the warning is surfaced so the
// orchestrator can log it with contract-level granularity.
type ParseWarning struct {
	ContractID string
	Field      string
	Raw        string
}

func (w ParseWarning) String() string {
	return fmt.Sprintf("contract %s: field %s: unparseable amount %q coerced to 0", w.ContractID, w.Field, w.Raw)
}

// NormalizeID converts an upstream contract identifier to its canonical
// string form. Upstream systems deliver IDs as strings, integers, or
// float64 (the JSON decoder's default for numbers); all are normalized to
// the same digit string so dedup comparisons never depend on the wire type.
func NormalizeID(v any) (string, error) {
	switch id := v.(type) {
	case string:
		s := strings.TrimSpace(id)
		if s == "" {
			return "", fmt.Errorf("empty contract id")
		}
		return s, nil
	case int:
		return strconv.FormatInt(int64(id), 10), nil
	case int64:
		return strconv.FormatInt(id, 10), nil
	case float64:
		// JSON numbers land here. Contract IDs fit in 53 bits upstream,
		// so the integer round-trip is exact.
		return strconv.FormatInt(int64(id), 10), nil
	default:
		return "", fmt.Errorf("contract id has unsupported type %T", v)
	}
}

// ParseAmount parses an upstream money field.
//
// Empty strings mean zero, never an error: upstream omits amounts that do
// not apply to a campaign. A non-empty unparseable value is also coerced to
// zero, but reported through the returned ok flag so the caller can warn.
func ParseAmount(raw string) (d decimal.Decimal, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, true
	}
	// Upstream formats large amounts with thousands separators.
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// DecodeRow converts one raw upstream row into a Record.
//
// Field names are stable per campaign; the canonical keys below are the
// ones every campaign feed uses. Unknown keys are ignored. Amount parse
// failures do not fail the row: the field is zeroed and a ParseWarning is
// returned for each coerced field.
func DecodeRow(row map[string]any) (Record, []ParseWarning, error) {
	rawID, present := row["contract_id"]
	if !present {
		return Record{}, nil, fmt.Errorf("row has no contract_id")
	}
	id, err := NormalizeID(rawID)
	if err != nil {
		return Record{}, nil, fmt.Errorf("decode row: %w", err)
	}

	rec := Record{
		ContractID:            id,
		HousekeeperID:         stringField(row, "housekeeper_id"),
		ServiceProviderName:   stringField(row, "service_provider_name"),
		SignedAt:              stringField(row, "signed_at"),
		CreatedAt:             stringField(row, "created_at"),
		ServiceAppointmentNum: stringField(row, "service_appointment_num"),
	}

	var warnings []ParseWarning
	amount := func(field string) decimal.Decimal {
		raw := stringField(row, field)
		d, ok := ParseAmount(raw)
		if !ok {
			warnings = append(warnings, ParseWarning{ContractID: id, Field: field, Raw: raw})
		}
		return d
	}

	rec.ContractAmount = amount("contract_amount")
	rec.PaidAmount = amount("paid_amount")
	rec.DifferenceAmount = amount("difference_amount")
	rec.ConversionRate = amount("conversion_rate")
	rec.AverageTicket = amount("average_ticket")

	return rec, warnings, nil
}

// DecodeRows decodes a whole batch, preserving arrival order.
// A row that cannot be decoded at all fails the batch; coerced amount
// fields only produce warnings.
func DecodeRows(rows []map[string]any) ([]Record, []ParseWarning, error) {
	records := make([]Record, 0, len(rows))
	var warnings []ParseWarning
	for i, row := range rows {
		rec, ws, err := DecodeRow(row)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i, err)
		}
		warnings = append(warnings, ws...)
		records = append(records, rec)
	}
	return records, warnings, nil
}

func stringField(row map[string]any, key string) string {
	v, present := row[key]
	if !present || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// Numeric pass-through fields (appointment numbers) keep their
		// digit form.
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}
