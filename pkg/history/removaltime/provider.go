package removaltime

import (
	"time"

	"mercator-hq/chronicle/pkg/history"
)

// Provider computes removal times. It is pluggable so deployments can
// replace the default calendar arithmetic.
//
// Every method returns nil when the removal time is unknown (END strategy,
// trigger not reached yet) or when the data is retained forever.
type Provider interface {
	// ForRoot computes the removal time for data owned by a root process
	// instance.
	ForRoot(root *history.RootInstance) *time.Time

	// ForStandaloneDecision computes the removal time of a decision
	// evaluated without an enclosing process instance.
	ForStandaloneDecision(ttl *int, evaluationTime time.Time) *time.Time

	// ForBatch computes the removal time of a batch and its job logs and
	// incidents. end is nil while the batch is running.
	ForBatch(ttl *int, start time.Time, end *time.Time) *time.Time

	// Strategy returns the configured strategy.
	Strategy() Strategy
}

// DefaultProvider implements Provider with calendar-day arithmetic.
type DefaultProvider struct {
	strategy Strategy
}

// NewDefaultProvider creates a provider for the given strategy.
func NewDefaultProvider(strategy Strategy) *DefaultProvider {
	if strategy == "" {
		strategy = DefaultStrategy
	}
	return &DefaultProvider{strategy: strategy}
}

// Strategy implements Provider.
func (p *DefaultProvider) Strategy() Strategy {
	return p.strategy
}

// ForRoot implements Provider.
func (p *DefaultProvider) ForRoot(root *history.RootInstance) *time.Time {
	if root == nil || root.HistoryTimeToLiveDays == nil {
		return nil
	}

	switch p.strategy {
	case StrategyStart:
		return AddDays(root.StartTime, root.HistoryTimeToLiveDays)
	case StrategyEnd:
		if root.EndTime == nil {
			return nil
		}
		return AddDays(*root.EndTime, root.HistoryTimeToLiveDays)
	default:
		return nil
	}
}

// ForStandaloneDecision implements Provider. An evaluation starts and ends
// at the same instant, so START and END resolve identically.
func (p *DefaultProvider) ForStandaloneDecision(ttl *int, evaluationTime time.Time) *time.Time {
	if p.strategy == StrategyNone {
		return nil
	}
	return AddDays(evaluationTime, ttl)
}

// ForBatch implements Provider.
func (p *DefaultProvider) ForBatch(ttl *int, start time.Time, end *time.Time) *time.Time {
	switch p.strategy {
	case StrategyStart:
		return AddDays(start, ttl)
	case StrategyEnd:
		if end == nil {
			return nil
		}
		return AddDays(*end, ttl)
	default:
		return nil
	}
}
