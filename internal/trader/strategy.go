package trader

import (
	"context"

	"github.com/Noslix/BinanceBot/internal/models"
)

// Decision is the outcome of a single policy evaluation. Policy outcomes
// that are not trades (below-minimum skip, condition not met) are values
// here, not errors; errors are reserved for gateway faults.
type Decision struct {
	// Intent is the order to place, nil when no trade should happen.
	Intent *models.OrderIntent
	// Skip is set when a trade was considered but deliberately skipped.
	// The reason is reported to the operator.
	Skip string
}

// Strategy decides whether and how much to trade on each tick.
type Strategy interface {
	// Name returns the unique name of the strategy.
	Name() string

	// Decide evaluates market and account data and returns at most one
	// order intent. A returned error means the decision could not be made
	// this tick (gateway fault); the scheduler proceeds regardless.
	Decide(ctx context.Context) (Decision, error)

	// Confirm is called after an intent emitted by Decide was executed,
	// so the strategy can update its durable bookkeeping.
	Confirm(ctx context.Context, intent models.OrderIntent)
}
