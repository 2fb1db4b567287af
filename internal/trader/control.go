package trader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Noslix/BinanceBot/internal/binance"
	"github.com/Noslix/BinanceBot/internal/config"
	"github.com/Noslix/BinanceBot/internal/store"
	"go.uber.org/zap"
)

const helpText = "Commands:\n" +
	"pause - pause the schedule\n" +
	"resume - resume the schedule (alias: reprendre)\n" +
	"status - show balances and open orders\n" +
	"log N - show the log for the last N days\n" +
	"help - this help (alias: aide)"

// ControlPlane interprets operator commands into pause-state transitions and
// queries. Both pause and resume always answer, with distinct wording when
// the command was a no-op, and never mutate twice.
type ControlPlane struct {
	gate   *PauseGate
	client binance.RestClientInterface
	events *store.EventLog
	logger *zap.Logger

	symbol     string
	baseAsset  string
	quoteAsset string
}

// NewControlPlane creates a control plane bound to the shared pause gate.
func NewControlPlane(cfg *config.Trading, gate *PauseGate, client binance.RestClientInterface, events *store.EventLog, logger *zap.Logger) *ControlPlane {
	return &ControlPlane{
		gate:       gate,
		client:     client,
		events:     events,
		logger:     logger.Named("control"),
		symbol:     cfg.Symbol,
		baseAsset:  cfg.BaseAsset,
		quoteAsset: cfg.QuoteAsset,
	}
}

// Handle processes one operator command and returns the reply text. An empty
// reply means the input was not a recognized command and is silently ignored.
func (c *ControlPlane) Handle(text string) string {
	cmd := strings.ToLower(strings.TrimSpace(text))

	switch {
	case cmd == "pause":
		return c.pause()
	case cmd == "resume" || cmd == "reprendre":
		return c.resume()
	case cmd == "status":
		return c.status()
	case strings.HasPrefix(cmd, "log"):
		return c.recentLog(cmd)
	case cmd == "help" || cmd == "aide":
		return helpText
	default:
		return ""
	}
}

func (c *ControlPlane) pause() string {
	if !c.gate.Pause() {
		return "Already paused."
	}
	c.logger.Info("Schedule paused by operator")
	c.events.Append("pause")
	return "Paused. No further buys until resumed."
}

func (c *ControlPlane) resume() string {
	if !c.gate.Resume() {
		return "Not paused."
	}
	c.logger.Info("Schedule resumed by operator")
	c.events.Append("resume")

	// Re-check connectivity before reporting back, an operator resuming
	// after an outage wants to know whether the exchange is reachable.
	if err := c.client.Ping(); err != nil {
		c.logger.Warn("Exchange unreachable after resume", zap.Error(err))
		return fmt.Sprintf("Resumed, but the exchange is unreachable: %v", err)
	}
	summary, err := c.AccountSummary()
	if err != nil {
		return "Resumed."
	}
	return "Resumed. " + summary
}

func (c *ControlPlane) status() string {
	summary, err := c.AccountSummary()
	if err != nil {
		c.logger.Error("Failed to build account summary", zap.Error(err))
		return fmt.Sprintf("Status unavailable: %v", err)
	}
	if c.gate.Paused() {
		return "Paused. " + summary
	}
	return summary
}

// recentLog answers "log N" with the entries of the last N days, oldest
// first. N defaults to 1 when omitted or non-numeric.
func (c *ControlPlane) recentLog(cmd string) string {
	days := 1
	if parts := strings.Fields(cmd); len(parts) > 1 {
		if n, err := strconv.Atoi(parts[1]); err == nil && n > 0 {
			days = n
		}
	}

	entries, err := c.events.Query(days)
	if err != nil {
		c.logger.Error("Failed to query log", zap.Error(err))
		return fmt.Sprintf("Log unavailable: %v", err)
	}
	if len(entries) == 0 {
		return "No recent log entries."
	}

	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.Timestamp.UTC().Format("2006-01-02 15:04:05"))
		b.WriteString(" - ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// AccountSummary reports base and quote holdings (free plus locked) and the
// open-order count for the traded symbol.
func (c *ControlPlane) AccountSummary() (string, error) {
	balances, err := c.client.GetBalances()
	if err != nil {
		return "", fmt.Errorf("could not get balances: %w", err)
	}

	base := "0"
	quote := "0"
	for _, b := range balances {
		switch b.Asset {
		case c.baseAsset:
			base = b.Total().String()
		case c.quoteAsset:
			quote = b.Total().String()
		}
	}

	open, err := c.client.GetOpenOrderCount(c.symbol)
	if err != nil {
		return "", fmt.Errorf("could not get open orders: %w", err)
	}

	return fmt.Sprintf("%s: %s | %s: %s | Open orders: %d",
		c.baseAsset, base, c.quoteAsset, quote, open), nil
}
