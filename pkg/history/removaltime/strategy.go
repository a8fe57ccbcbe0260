package removaltime

import (
	"fmt"
	"strings"
)

// Strategy selects the trigger used to compute removal times.
type Strategy string

const (
	StrategyNone  Strategy = "none"
	StrategyStart Strategy = "start"
	StrategyEnd   Strategy = "end"
)

// DefaultStrategy is used when no strategy is configured.
const DefaultStrategy = StrategyEnd

// StrategyError reports an unrecognized strategy name. It is a configuration
// error and is never retried.
type StrategyError struct {
	Value string
}

// Error implements the error interface.
func (e *StrategyError) Error() string {
	return fmt.Sprintf("invalid history removal time strategy %q (expected none, start or end)", e.Value)
}

// ParseStrategy parses a strategy name case-insensitively. An empty name
// selects DefaultStrategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultStrategy, nil
	case StrategyNone:
		return StrategyNone, nil
	case StrategyStart:
		return StrategyStart, nil
	case StrategyEnd:
		return StrategyEnd, nil
	default:
		return "", &StrategyError{Value: s}
	}
}

// String implements fmt.Stringer.
func (s Strategy) String() string {
	return string(s)
}
