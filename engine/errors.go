/*
errors.go - Centralized error types for the performance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The calculators themselves never fail on well-formed input; the errors
  below come from configuration validation (startup) and from the stores.

ERROR CATEGORIES:
  1. Configuration errors - malformed tier schedule, ladder, power config, catalog
  2. Input errors - unparseable periods, unknown employees
  3. Store errors - append-only ledger violations

USAGE:
  if errors.Is(err, engine.ErrInvalidSchedule) {
      log.Fatalf("bad compensation config: %v", err)
  }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidSchedule is returned when a tier schedule is empty, does not
	// start at zero, or has overlapping/gapped bands.
	ErrInvalidSchedule = errors.New("invalid tier schedule")

	// ErrInvalidLadder is returned when a level ladder is empty, does not
	// start at zero, or thresholds are not strictly increasing.
	ErrInvalidLadder = errors.New("invalid level ladder")

	// ErrInvalidPowerConfig is returned when the power rating constants are unusable.
	ErrInvalidPowerConfig = errors.New("invalid power config")

	// ErrUnknownCriteria is returned when an achievement definition names a
	// criteria type the evaluator does not know.
	ErrUnknownCriteria = errors.New("unknown achievement criteria")

	// ErrInvalidCriteria is returned when a known criteria type carries a
	// threshold it cannot use (fractional counts, negative amounts).
	ErrInvalidCriteria = errors.New("invalid achievement criteria value")

	// ErrScheduleNotFound is returned when no tier schedule exists for a role.
	ErrScheduleNotFound = errors.New("tier schedule not found")

	// ErrDuplicateAchievement is returned when an (employee, code, period)
	// triple is already present in the achievement ledger.
	ErrDuplicateAchievement = errors.New("achievement already earned for period")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrInvalidPeriod is returned when a period string is malformed.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidRecord is returned when a sale or return record is malformed.
	ErrInvalidRecord = errors.New("invalid record")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ScheduleError points at the offending tier of a schedule.
type ScheduleError struct {
	Role      string
	TierIndex int
	Reason    string
}

func (e *ScheduleError) Error() string {
	if e.TierIndex < 0 {
		return fmt.Sprintf("tier schedule %q: %s", e.Role, e.Reason)
	}
	return fmt.Sprintf("tier schedule %q, tier %d: %s", e.Role, e.TierIndex, e.Reason)
}

func (e *ScheduleError) Unwrap() error {
	return ErrInvalidSchedule
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidRecord) ||
		errors.Is(err, ErrInvalidSchedule) ||
		errors.Is(err, ErrUnknownCriteria) ||
		errors.Is(err, ErrInvalidCriteria)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrScheduleNotFound)
}

// IsConflict returns true if the error is an append-only ledger violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateAchievement)
}
