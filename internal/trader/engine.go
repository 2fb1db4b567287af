package trader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Noslix/BinanceBot/internal/binance"
	"github.com/Noslix/BinanceBot/internal/config"
	"github.com/Noslix/BinanceBot/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// commandBuffer bounds the queue between the messaging gateway and the
// control plane, so a burst of messages cannot grow without limit while a
// command is being handled.
const commandBuffer = 16

// Engine wires the scheduler, the decision strategy, the control plane and
// the gateways together. Two long-running activities share it: the tick
// loop and the inbound-command loop; the pause gate is the only mutable
// state crossing that boundary.
type Engine struct {
	logger    *zap.Logger
	cfg       *config.Config
	client    binance.RestClientInterface
	notifier  Notifier
	events    *store.EventLog
	gate      *PauseGate
	rules     *RuleCache
	strategy  Strategy
	scheduler *Scheduler
	control   *ControlPlane
	commands  chan string

	StartTime time.Time
}

// NewEngine builds the full trading core from configuration. The strategy
// is selected here; an unknown name is a configuration error.
func NewEngine(logger *zap.Logger, cfg *config.Config, client binance.RestClientInterface, notifier Notifier, db *gorm.DB) (*Engine, error) {
	events := store.NewEventLog(db, logger)
	gate := NewPauseGate()
	rules := NewRuleCache(client, cfg.Trading.Symbol, logger)

	var strategy Strategy
	switch cfg.Trading.Strategy {
	case config.StrategyDCA:
		strategy = NewDCAStrategy(&cfg.Trading, client, rules, logger)
	case config.StrategyVolatility:
		purchases := store.NewPurchaseStore(db, logger)
		strategy = NewVolatilityStrategy(&cfg.Trading, client, rules, purchases, logger)
	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Trading.Strategy)
	}

	interval := time.Duration(cfg.Trading.TickInterval) * time.Second
	scheduler := NewScheduler(interval, cfg.Trading.Iterations, gate, logger)
	control := NewControlPlane(&cfg.Trading, gate, client, events, logger)

	return &Engine{
		logger:    logger.Named("engine"),
		cfg:       cfg,
		client:    client,
		notifier:  notifier,
		events:    events,
		gate:      gate,
		rules:     rules,
		strategy:  strategy,
		scheduler: scheduler,
		control:   control,
		commands:  make(chan string, commandBuffer),
		StartTime: time.Now(),
	}, nil
}

// Commands is the inbound queue the messaging gateway feeds.
func (e *Engine) Commands() chan<- string {
	return e.commands
}

// Strategy returns the name of the active strategy.
func (e *Engine) Strategy() string {
	return e.strategy.Name()
}

// Paused reports the current pause state.
func (e *Engine) Paused() bool {
	return e.gate.Paused()
}

// Schedule returns a snapshot of the remaining schedule.
func (e *Engine) Schedule() ScheduleState {
	return e.scheduler.State()
}

// Run starts the command loop and the tick loop and blocks until the
// iteration budget is exhausted or ctx is cancelled. A final notification
// and log entry are emitted before it returns.
func (e *Engine) Run(ctx context.Context) error {
	e.events.Append("start")
	e.notify(e.startupMessage())

	go e.commandLoop(ctx)

	err := e.scheduler.Run(ctx, e.tick)

	e.notify(e.shutdownMessage())
	e.events.Append("stop")

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (e *Engine) startupMessage() string {
	if summary, err := e.control.AccountSummary(); err == nil {
		return "Bot started. " + summary
	}
	return "Bot started."
}

func (e *Engine) shutdownMessage() string {
	if summary, err := e.control.AccountSummary(); err == nil {
		return "Bot stopped. " + summary
	}
	return "Bot stopped."
}

// commandLoop drains the inbound queue and replies through the notifier.
func (e *Engine) commandLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-e.commands:
			if reply := e.control.Handle(text); reply != "" {
				e.notify(reply)
			}
		}
	}
}

// tick runs one decision cycle. Every failure stays local to this tick: it
// is logged and reported, and the outcome carries it back to the scheduler.
func (e *Engine) tick(ctx context.Context, iteration int) TickOutcome {
	decision, err := e.strategy.Decide(ctx)
	if err != nil {
		e.events.Append("tick failed: " + err.Error())
		e.notify(fmt.Sprintf("Trade check failed: %v", err))
		return TickOutcome{Status: TickFailed, Err: err}
	}

	if decision.Skip != "" {
		e.notify(fmt.Sprintf("Buy skipped: %s", decision.Skip))
		e.events.Append("skip: " + decision.Skip)
		return TickOutcome{Status: TickSkipped, Detail: decision.Skip}
	}

	if decision.Intent == nil {
		return TickOutcome{Status: TickNoDecision}
	}

	intent := *decision.Intent
	e.notify(fmt.Sprintf("Order %d/%d: %s", iteration+1, e.cfg.Trading.Iterations, intent))

	if e.cfg.Trading.DryRun {
		e.logger.Warn("Dry run enabled, no real order will be placed", zap.String("intent", intent.String()))
		e.events.Append("dry-run: " + intent.String())
		e.strategy.Confirm(ctx, intent)
		return TickOutcome{Status: TickPlaced, Detail: "dry-run"}
	}

	if _, err := e.client.CreateOrder(intent); err != nil {
		e.events.Append("order failed: " + err.Error())
		e.notify(fmt.Sprintf("Order failed: %v", err))
		// A notional rejection while the rule was unknown means the cached
		// rule is stale or missing; refetch it before the next tick.
		if strings.Contains(strings.ToUpper(err.Error()), "NOTIONAL") {
			e.rules.Invalidate()
			e.notify("Fetching the minimum order size, will retry next tick.")
		}
		return TickOutcome{Status: TickFailed, Err: err}
	}

	e.strategy.Confirm(ctx, intent)
	e.events.Append(strings.ToLower(string(intent.Side)) + " " + intent.String())
	return TickOutcome{Status: TickPlaced, Detail: intent.String()}
}

func (e *Engine) notify(text string) {
	if err := e.notifier.SendMessage(text); err != nil {
		e.logger.Error("Failed to send notification", zap.Error(err))
	}
}
