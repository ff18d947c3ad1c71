// Package contract holds the input side of the ledger engine: the immutable
// signed-contract record and the decoding of raw upstream rows into it.
//
// Upstream rows are loosely typed. Amounts arrive as strings (sometimes
// empty), contract IDs arrive as strings or large integers. Everything is
// normalized here, once, so the rest of the engine only ever sees typed
// values.
package contract

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Record is one signed contract as received from the upstream fetcher.
// Immutable once decoded.
type Record struct {
	// ContractID is globally unique. It often looks numeric but is an
	// opaque string: it is never parsed as an integer and all comparisons
	// are string comparisons.
	ContractID string

	HousekeeperID       string
	ServiceProviderName string

	ContractAmount   decimal.Decimal
	PaidAmount       decimal.Decimal
	DifferenceAmount decimal.Decimal

	// SignedAt and CreatedAt are upstream timestamps carried through
	// verbatim. The engine never interprets them.
	SignedAt  string
	CreatedAt string

	ServiceAppointmentNum string

	// Campaign-specific optional fields. Zero when absent.
	ConversionRate decimal.Decimal
	AverageTicket  decimal.Decimal
}

// Validate rejects records the engine must not process.
//
// Negative amounts are refused outright rather than clamped; the batch
// orchestrator skips the offending contract and keeps the batch going.
func (r Record) Validate() error {
	if r.ContractID == "" {
		return fmt.Errorf("contract with empty id")
	}
	if r.HousekeeperID == "" {
		return fmt.Errorf("contract %s: empty housekeeper id", r.ContractID)
	}
	if r.ContractAmount.IsNegative() {
		return fmt.Errorf("contract %s: negative contract amount %s", r.ContractID, r.ContractAmount)
	}
	if r.PaidAmount.IsNegative() {
		return fmt.Errorf("contract %s: negative paid amount %s", r.ContractID, r.PaidAmount)
	}
	return nil
}
