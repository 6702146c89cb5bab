package trader

import "errors"

var (
	// ErrInsufficientBalance is returned when sizing sees a zero or negative balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrConfigurationMissing is returned when asset filters or settings were never loaded.
	ErrConfigurationMissing = errors.New("configuration missing")
)
