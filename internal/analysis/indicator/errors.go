package indicator

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is matched by every InsufficientDataError via errors.Is.
var ErrInsufficientData = errors.New("insufficient data")

// ErrInvalidPeriod is returned for a non-positive lookback period.
var ErrInvalidPeriod = errors.New("period must be positive")

// InsufficientDataError reports a window shorter than an indicator needs.
type InsufficientDataError struct {
	Indicator string
	Required  int
	Actual    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: need %d candles, have %d", e.Indicator, e.Required, e.Actual)
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

func insufficient(name string, required, actual int) error {
	return &InsufficientDataError{Indicator: name, Required: required, Actual: actual}
}

func checkPeriod(name string, period int) error {
	if period <= 0 {
		return fmt.Errorf("%s: %w (got %d)", name, ErrInvalidPeriod, period)
	}
	return nil
}
