package engine

import (
	"errors"
	"fmt"
)

// Code categorizes engine failures. Every error the orchestrator surfaces
// carries exactly one code so callers can react without string matching.
type Code string

const (
	// CodeConfigNotFound: the campaign ID is not in the rule registry.
	// Fatal for that run; the engine never guesses default rules.
	CodeConfigNotFound Code = "CONFIG_NOT_FOUND"

	// CodeInvalidInput: a contract carried a negative amount or count.
	// The offending contract is rejected; the batch continues.
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodePersistenceFailure: the store append failed. The whole batch's
	// in-memory state is discarded and the batch retries wholesale on the
	// next scheduled run.
	CodePersistenceFailure Code = "PERSISTENCE_FAILURE"

	// CodeParseFailure: an upstream numeric field was coerced to zero.
	// Warning-level; flags upstream data quality, never fails a run.
	CodeParseFailure Code = "PARSE_FAILURE"
)

// RunError is a structured engine failure.
type RunError struct {
	Code       Code
	Message    string
	CampaignID string
	ContractID string
	Err        error
}

func (e *RunError) Error() string {
	switch {
	case e.ContractID != "":
		return fmt.Sprintf("%s: %s (campaign=%s, contract=%s)", e.Code, e.Message, e.CampaignID, e.ContractID)
	case e.CampaignID != "":
		return fmt.Sprintf("%s: %s (campaign=%s)", e.Code, e.Message, e.CampaignID)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func (e *RunError) Unwrap() error { return e.Err }

func is(err error, code Code) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsConfigNotFound reports whether err is an unregistered-campaign error.
func IsConfigNotFound(err error) bool { return is(err, CodeConfigNotFound) }

// IsInvalidInput reports whether err is a rejected-contract error.
func IsInvalidInput(err error) bool { return is(err, CodeInvalidInput) }

// IsPersistenceFailure reports whether err is a store append failure.
func IsPersistenceFailure(err error) bool { return is(err, CodePersistenceFailure) }
