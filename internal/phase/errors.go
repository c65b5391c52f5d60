package phase

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode identifies the boundary condition that rejected an input
type ErrorCode int

const (
	// No error occurred
	ErrCodeNone ErrorCode = iota
	// Direction key outside the fixed set of four
	ErrCodeInvalidDirection
	// Demand value below zero
	ErrCodeNegativeCount
	// Clock moved backwards relative to the phase start
	ErrCodeNonMonotonicClock
	// Timing configuration is inconsistent
	ErrCodeInvalidConfiguration
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeInvalidDirection:
		return "InvalidDirection"
	case ErrCodeNegativeCount:
		return "NegativeCount"
	case ErrCodeNonMonotonicClock:
		return "NonMonotonicClock"
	case ErrCodeInvalidConfiguration:
		return "InvalidConfiguration"
	default:
		return "None"
	}
}

// DirectionError reports a direction key outside the fixed set
type DirectionError struct {
	Name string
}

func (e *DirectionError) Error() string {
	return fmt.Sprintf("invalid direction %q: must be one of north, south, east, west", e.Name)
}

// NewDirectionError creates a new invalid direction error
func NewDirectionError(name string) *DirectionError {
	return &DirectionError{Name: name}
}

// CountError reports a negative demand value
type CountError struct {
	Direction Direction
	Count     int
}

func (e *CountError) Error() string {
	return fmt.Sprintf("negative count %d for direction %s", e.Count, e.Direction)
}

// NewCountError creates a new negative count error
func NewCountError(d Direction, count int) *CountError {
	return &CountError{Direction: d, Count: count}
}

// ClockError describes an evaluation instant earlier than the phase start.
// The scheduler clamps instead of returning it; observers receive it for logging.
type ClockError struct {
	Now   time.Time
	Since time.Time
}

func (e *ClockError) Error() string {
	return fmt.Sprintf("non-monotonic clock: now %s is %s before green start %s",
		e.Now.Format(time.RFC3339Nano), e.Since.Sub(e.Now), e.Since.Format(time.RFC3339Nano))
}

// ConfigError reports an invalid timing configuration
type ConfigError struct {
	Field string
	Issue string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid timing configuration: %s %s", e.Field, e.Issue)
}

// NewConfigError creates a new configuration error
func NewConfigError(field, issue string) *ConfigError {
	return &ConfigError{Field: field, Issue: issue}
}

// IsDirectionError checks if an error is a DirectionError
func IsDirectionError(err error) bool {
	var target *DirectionError
	return errors.As(err, &target)
}

// IsCountError checks if an error is a CountError
func IsCountError(err error) bool {
	var target *CountError
	return errors.As(err, &target)
}

// IsClockError checks if an error is a ClockError
func IsClockError(err error) bool {
	var target *ClockError
	return errors.As(err, &target)
}

// IsConfigError checks if an error is a ConfigError
func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

// GetErrorCode returns the error code for known error types
func GetErrorCode(err error) ErrorCode {
	switch {
	case err == nil:
		return ErrCodeNone
	case IsDirectionError(err):
		return ErrCodeInvalidDirection
	case IsCountError(err):
		return ErrCodeNegativeCount
	case IsClockError(err):
		return ErrCodeNonMonotonicClock
	case IsConfigError(err):
		return ErrCodeInvalidConfiguration
	default:
		return ErrCodeNone
	}
}
