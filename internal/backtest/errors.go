package backtest

import "errors"

var (
	// ErrEmptyCalendar is returned when there are no trading days to build
	// periods from.
	ErrEmptyCalendar = errors.New("backtest: empty calendar")

	// ErrUnsortedCalendar is returned when calendar dates are not strictly
	// increasing.
	ErrUnsortedCalendar = errors.New("backtest: calendar dates not strictly increasing")

	// ErrUnknownPeriod is returned for a period code that is not supported.
	ErrUnknownPeriod = errors.New("backtest: unknown period")

	// ErrLengthMismatch is returned when forward-return sequences that must
	// line up day by day do not have the same length.
	ErrLengthMismatch = errors.New("backtest: return sequence length mismatch")

	// ErrDuplicatePeriod is returned when two rows claim the same period end.
	ErrDuplicatePeriod = errors.New("backtest: duplicate period")

	// ErrEmptyBasket is returned when composing a basket with no members.
	ErrEmptyBasket = errors.New("backtest: empty basket")

	// ErrInvalidOptions is returned when ranking or cost options are out of
	// range.
	ErrInvalidOptions = errors.New("backtest: invalid options")
)
