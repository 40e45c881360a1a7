// Package market provides the synthetic market condition state machine and
// the probabilistic market event generator that drive the simulation.
package market

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Condition is a discrete synthetic market regime.
type Condition string

const (
	ConditionBullish  Condition = "bullish"
	ConditionBearish  Condition = "bearish"
	ConditionNeutral  Condition = "neutral"
	ConditionVolatile Condition = "volatile"
	ConditionPump     Condition = "pump"
	ConditionDump     Condition = "dump"
)

// Conditions returns every condition in a fixed order. Pump and dump are
// transient overrides; the periodic roll never selects them directly.
func Conditions() []Condition {
	return []Condition{
		ConditionBullish,
		ConditionBearish,
		ConditionNeutral,
		ConditionVolatile,
		ConditionPump,
		ConditionDump,
	}
}

// EventType identifies a kind of market event.
type EventType string

const (
	EventWhaleAlert      EventType = "whale_alert"
	EventPump            EventType = "pump"
	EventDump            EventType = "dump"
	EventRug             EventType = "rug"
	EventLiquidityAdd    EventType = "liquidity_add"
	EventLiquidityRemove EventType = "liquidity_remove"
	EventNewListing      EventType = "new_listing"
)

// Impact is the severity tier of a market event.
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// CatalogEntry describes one event type the generator can emit.
type CatalogEntry struct {
	Type   EventType `json:"type"`
	Impact Impact    `json:"impact"`
}

// DefaultCatalog returns the built-in event catalog.
func DefaultCatalog() []CatalogEntry {
	return []CatalogEntry{
		{Type: EventWhaleAlert, Impact: ImpactMedium},
		{Type: EventPump, Impact: ImpactHigh},
		{Type: EventDump, Impact: ImpactHigh},
		{Type: EventRug, Impact: ImpactHigh},
		{Type: EventLiquidityAdd, Impact: ImpactLow},
		{Type: EventLiquidityRemove, Impact: ImpactMedium},
		{Type: EventNewListing, Impact: ImpactLow},
	}
}

// Event is a single emitted market event.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Impact    Impact    `json:"impact"`
	Magnitude float64   `json:"magnitude"` // uniform in [0.5, 1.0]
	Tick      int64     `json:"tick"`
	Timestamp time.Time `json:"timestamp"`
}

// StateMachine tracks the base market condition and the transient
// pump/dump override window. It is not safe for concurrent use; the engine
// serializes access.
type StateMachine struct {
	logger *zap.Logger
	rng    *rand.Rand

	base           Condition
	rollInterval   int64
	overrideWindow int64

	lastPumpTick int64
	lastDumpTick int64
}

// rollWeights are the periodic base-condition draw probabilities.
var rollWeights = []struct {
	condition Condition
	weight    float64
}{
	{ConditionBullish, 0.30},
	{ConditionBearish, 0.25},
	{ConditionNeutral, 0.30},
	{ConditionVolatile, 0.15},
}

// NewStateMachine creates a state machine starting in the neutral condition.
func NewStateMachine(logger *zap.Logger, rng *rand.Rand, rollInterval, overrideWindow int64) *StateMachine {
	if rollInterval <= 0 {
		rollInterval = 10
	}
	if overrideWindow <= 0 {
		overrideWindow = 5
	}
	return &StateMachine{
		logger:         logger.Named("market"),
		rng:            rng,
		base:           ConditionNeutral,
		rollInterval:   rollInterval,
		overrideWindow: overrideWindow,
		lastPumpTick:   -overrideWindow,
		lastDumpTick:   -overrideWindow,
	}
}

// Base returns the current base condition (ignoring transient overrides).
func (sm *StateMachine) Base() Condition { return sm.base }

// Advance rolls a new base condition every rollInterval ticks and reports
// whether the base condition actually changed.
func (sm *StateMachine) Advance(tick int64) (Condition, bool) {
	if tick%sm.rollInterval != 0 {
		return sm.base, false
	}

	rolled := sm.roll()
	if rolled == sm.base {
		return sm.base, false
	}

	sm.logger.Debug("market condition changed",
		zap.String("from", string(sm.base)),
		zap.String("to", string(rolled)),
		zap.Int64("tick", tick))
	sm.base = rolled
	return sm.base, true
}

func (sm *StateMachine) roll() Condition {
	r := sm.rng.Float64()
	cum := 0.0
	for _, w := range rollWeights {
		cum += w.weight
		if r < cum {
			return w.condition
		}
	}
	return rollWeights[len(rollWeights)-1].condition
}

// RecordEvent feeds an emitted event back into the machine. Pump events
// push the base condition bullish and open the pump override window;
// dump and rug events push it bearish and open the dump window.
func (sm *StateMachine) RecordEvent(ev Event) {
	switch ev.Type {
	case EventPump:
		sm.lastPumpTick = ev.Tick
		sm.base = ConditionBullish
	case EventDump, EventRug:
		sm.lastDumpTick = ev.Tick
		sm.base = ConditionBearish
	}
}

// Effective returns the condition the policy engine sees at the given tick:
// the base condition unless a pump or dump window is open. The override is
// recomputed fresh each tick and never persisted.
func (sm *StateMachine) Effective(tick int64) Condition {
	pumpOpen := tick-sm.lastPumpTick < sm.overrideWindow && tick >= sm.lastPumpTick
	dumpOpen := tick-sm.lastDumpTick < sm.overrideWindow && tick >= sm.lastDumpTick

	switch {
	case pumpOpen && dumpOpen:
		// Both windows open: the more recent event wins, dump on a tie.
		if sm.lastPumpTick > sm.lastDumpTick {
			return ConditionPump
		}
		return ConditionDump
	case pumpOpen:
		return ConditionPump
	case dumpOpen:
		return ConditionDump
	default:
		return sm.base
	}
}

// Reset restores the machine to its initial neutral state.
func (sm *StateMachine) Reset() {
	sm.base = ConditionNeutral
	sm.lastPumpTick = -sm.overrideWindow
	sm.lastDumpTick = -sm.overrideWindow
}

// Generator probabilistically emits market events each tick.
type Generator struct {
	logger      *zap.Logger
	rng         *rand.Rand
	probability float64
	catalog     []CatalogEntry
}

// NewGenerator creates an event generator. A non-positive probability
// disables emission; an empty catalog falls back to the default one.
func NewGenerator(logger *zap.Logger, rng *rand.Rand, probability float64, catalog []CatalogEntry) *Generator {
	if len(catalog) == 0 {
		catalog = DefaultCatalog()
	}
	return &Generator{
		logger:      logger.Named("event-gen"),
		rng:         rng,
		probability: probability,
		catalog:     catalog,
	}
}

// MaybeGenerate draws once per tick and returns an event with probability
// g.probability, nil otherwise. Magnitude is uniform in [0.5, 1.0].
func (g *Generator) MaybeGenerate(tick int64) *Event {
	if g.rng.Float64() >= g.probability {
		return nil
	}

	entry := g.catalog[g.rng.Intn(len(g.catalog))]
	ev := &Event{
		ID:        uuid.NewString(),
		Type:      entry.Type,
		Impact:    entry.Impact,
		Magnitude: 0.5 + g.rng.Float64()*0.5,
		Tick:      tick,
		Timestamp: time.Now(),
	}

	g.logger.Debug("market event emitted",
		zap.String("type", string(ev.Type)),
		zap.Float64("magnitude", ev.Magnitude),
		zap.Int64("tick", tick))

	return ev
}
