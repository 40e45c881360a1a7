package engine

import (
	"time"

	"github.com/fenrir-desktop/sim-backend/internal/agents"
	"github.com/fenrir-desktop/sim-backend/internal/market"
	"github.com/fenrir-desktop/sim-backend/internal/outcome"
	"github.com/shopspring/decimal"
)

// Stats is the engine-level status snapshot.
type Stats struct {
	IsRunning        bool                      `json:"isRunning"`
	CurrentTick      int64                     `json:"currentTick"`
	MarketCondition  market.Condition          `json:"marketCondition"`
	TotalTrades      int64                     `json:"totalTrades"`
	TotalVolume      decimal.Decimal           `json:"totalVolume"`
	MarketEventCount int64                     `json:"marketEventCount"`
	UptimeMs         int64                     `json:"uptimeMs"`
	AgentCount       int                       `json:"agentCount"`
	Leaderboard      []agents.LeaderboardEntry `json:"leaderboard"`
}

// MarketStatus is the current market view.
type MarketStatus struct {
	Condition market.Condition `json:"condition"`
	Tick      int64            `json:"currentTick"`
}

// GetStats returns a consistent engine snapshot; safe to call at any time.
func (e *Engine) GetStats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	uptime := int64(0)
	if e.running {
		uptime = time.Since(e.startedAt).Milliseconds()
	}

	return Stats{
		IsRunning:        e.running,
		CurrentTick:      e.tick,
		MarketCondition:  e.machine.Effective(e.tick),
		TotalTrades:      e.totalTrades,
		TotalVolume:      e.totalVolume,
		MarketEventCount: e.totalEvents,
		UptimeMs:         uptime,
		AgentCount:       e.registry.Len(),
		Leaderboard:      e.topLeaderboard(),
	}
}

// GetAgentStates returns a snapshot per agent in profile order.
func (e *Engine) GetAgentStates() []agents.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.Snapshots()
}

// GetAgent returns a single agent snapshot by ID.
func (e *Engine) GetAgent(id string) (agents.Snapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st, ok := e.registry.Get(id)
	if !ok {
		return agents.Snapshot{}, false
	}
	return st.Snapshot(), true
}

// GetRecentTrades returns up to limit trades, most recent first.
func (e *Engine) GetRecentTrades(limit int) []outcome.Trade {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.trades.Recent(limit)
}

// GetRecentEvents returns up to limit market events, most recent first.
func (e *Engine) GetRecentEvents(limit int) []market.Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.marketEvents.Recent(limit)
}

// GetMarketState returns the effective market condition at the current
// tick, override window included.
func (e *Engine) GetMarketState() MarketStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return MarketStatus{Condition: e.machine.Effective(e.tick), Tick: e.tick}
}

// Leaderboard returns the full ranking from the last completed tick.
func (e *Engine) Leaderboard() []agents.LeaderboardEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]agents.LeaderboardEntry, len(e.leaderboard))
	copy(out, e.leaderboard)
	return out
}

// IsRunning reports whether the scheduler is active.
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Close stops the engine if needed and shuts down the notification bus.
func (e *Engine) Close() {
	if e.IsRunning() {
		e.Stop()
	}
	e.bus.Close()
}
