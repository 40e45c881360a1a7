// Package events provides the simulator's notification bus: typed events
// published by the engine and delivered to host subscribers (terminal, UI,
// WebSocket push) without blocking the tick pipeline.
package events

import (
	"time"

	"github.com/fenrir-desktop/sim-backend/internal/agents"
	"github.com/fenrir-desktop/sim-backend/internal/market"
	"github.com/fenrir-desktop/sim-backend/internal/outcome"
	"github.com/shopspring/decimal"
)

// Type defines the category of notification.
type Type string

const (
	TypeStarted      Type = "started"
	TypeStopped      Type = "stopped"
	TypeTick         Type = "tick"
	TypeTrade        Type = "trade"
	TypeMarketEvent  Type = "market_event"
	TypeMarketChange Type = "market_change"
)

// Event is the base interface for all simulator notifications.
type Event interface {
	EventType() Type
	OccurredAt() time.Time
}

// Base provides common event fields.
type Base struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func (b Base) EventType() Type       { return b.Type }
func (b Base) OccurredAt() time.Time { return b.Timestamp }

func newBase(t Type) Base {
	return Base{Type: t, Timestamp: time.Now()}
}

// Started signals that the engine transitioned to running.
type Started struct {
	Base
	Speed time.Duration `json:"speed"`
}

// NewStarted creates a started notification.
func NewStarted(speed time.Duration) *Started {
	return &Started{Base: newBase(TypeStarted), Speed: speed}
}

// Stopped signals that the engine transitioned to stopped.
type Stopped struct {
	Base
	TotalTrades int64           `json:"totalTrades"`
	TotalVolume decimal.Decimal `json:"totalVolume"`
}

// NewStopped creates a stopped notification.
func NewStopped(totalTrades int64, totalVolume decimal.Decimal) *Stopped {
	return &Stopped{Base: newBase(TypeStopped), TotalTrades: totalTrades, TotalVolume: totalVolume}
}

// Tick carries the end-of-tick state snapshot.
type Tick struct {
	Base
	TickNum     int64                     `json:"tick"`
	Condition   market.Condition          `json:"marketCondition"`
	Agents      []agents.Snapshot         `json:"agents"`
	Leaderboard []agents.LeaderboardEntry `json:"leaderboard"`
}

// NewTick creates a tick notification.
func NewTick(tick int64, cond market.Condition, snaps []agents.Snapshot, board []agents.LeaderboardEntry) *Tick {
	return &Tick{
		Base:        newBase(TypeTick),
		TickNum:     tick,
		Condition:   cond,
		Agents:      snaps,
		Leaderboard: board,
	}
}

// Trade wraps an executed trade record.
type Trade struct {
	Base
	Trade outcome.Trade `json:"trade"`
}

// NewTrade creates a trade notification.
func NewTrade(trade outcome.Trade) *Trade {
	return &Trade{Base: newBase(TypeTrade), Trade: trade}
}

// MarketEvent wraps an emitted market event.
type MarketEvent struct {
	Base
	Event market.Event `json:"event"`
}

// NewMarketEvent creates a market event notification.
func NewMarketEvent(ev market.Event) *MarketEvent {
	return &MarketEvent{Base: newBase(TypeMarketEvent), Event: ev}
}

// MarketChange signals a base condition change from the periodic roll.
type MarketChange struct {
	Base
	Condition market.Condition `json:"condition"`
	TickNum   int64            `json:"tick"`
}

// NewMarketChange creates a market change notification.
func NewMarketChange(cond market.Condition, tick int64) *MarketChange {
	return &MarketChange{Base: newBase(TypeMarketChange), Condition: cond, TickNum: tick}
}
