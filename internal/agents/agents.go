// Package agents provides the immutable agent profile registry and the
// mutable per-agent runtime state store.
package agents

import (
	"math/rand"
	"time"

	"github.com/fenrir-desktop/sim-backend/internal/market"
	"github.com/shopspring/decimal"
)

// Action is one of the fixed trading actions an agent can take.
type Action string

const (
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionHold  Action = "hold"
	ActionScalp Action = "scalp"
	ActionShort Action = "short"
)

// Actions returns the full action space in a fixed order.
func Actions() []Action {
	return []Action{ActionBuy, ActionSell, ActionHold, ActionScalp, ActionShort}
}

// Personality holds the four trait weights, each in [0, 1].
type Personality struct {
	Wisdom     float64 `json:"wisdom"`
	Aggression float64 `json:"aggression"`
	Patience   float64 `json:"patience"`
	Greed      float64 `json:"greed"`
}

// Strategy holds an agent's fixed strategy parameters.
type Strategy struct {
	Type          string  `json:"type"`
	PositionSize  float64 `json:"positionSize"`  // fraction of balance per trade
	RiskTolerance float64 `json:"riskTolerance"` // in [0, 1]
}

// Profile is immutable per-agent configuration, created once at engine
// construction and never mutated.
type Profile struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Realm           string          `json:"realm"`
	Quotes          []string        `json:"quotes,omitempty"`
	Personality     Personality     `json:"personality"`
	Strategy        Strategy        `json:"strategy"`
	StartingBalance decimal.Decimal `json:"startingBalance"`
}

// Decision records metadata about an agent's most recent action selection.
type Decision struct {
	Action   Action    `json:"action"`
	Explored bool      `json:"explored"`
	Tick     int64     `json:"tick"`
	At       time.Time `json:"at"`
}

// State is the mutable runtime state for one agent. It is mutated only by
// the engine's tick pipeline, which serializes access.
type State struct {
	Profile *Profile

	Balance    decimal.Decimal
	TotalPnL   decimal.Decimal
	TradeCount int
	WinCount   int
	LossCount  int

	// QTable has an entry for every (condition, action) pair, initialized
	// to zero before first use.
	QTable map[market.Condition]map[Action]float64

	ExplorationRate float64
	Mood            string
	LastAction      Action
	LastQuote       string
	LastPnL         decimal.Decimal
	LastDecision    Decision
}

// NewState creates the runtime state for a profile with a fully
// pre-initialized Q-table.
func NewState(p *Profile, explorationInitial float64) *State {
	s := &State{Profile: p}
	s.Reset(explorationInitial)
	return s
}

// Reset restores the state to its initial values: starting balance, zeroed
// counters and Q-table, and the configured initial exploration rate.
func (s *State) Reset(explorationInitial float64) {
	s.Balance = s.Profile.StartingBalance
	s.TotalPnL = decimal.Zero
	s.TradeCount = 0
	s.WinCount = 0
	s.LossCount = 0
	s.ExplorationRate = explorationInitial
	s.Mood = "neutral"
	s.LastAction = ""
	s.LastQuote = ""
	s.LastPnL = decimal.Zero
	s.LastDecision = Decision{}

	s.QTable = make(map[market.Condition]map[Action]float64, len(market.Conditions()))
	for _, cond := range market.Conditions() {
		row := make(map[Action]float64, len(Actions()))
		for _, action := range Actions() {
			row[action] = 0
		}
		s.QTable[cond] = row
	}
}

// WinRate returns the fraction of executed trades that were wins.
func (s *State) WinRate() float64 {
	if s.TradeCount == 0 {
		return 0
	}
	return float64(s.WinCount) / float64(s.TradeCount)
}

// RecordTrade applies a realized pnl to the agent's balances and counters
// and refreshes the derived mood and quote.
func (s *State) RecordTrade(pnl decimal.Decimal, rng *rand.Rand) {
	s.Balance = s.Balance.Add(pnl)
	s.TotalPnL = s.TotalPnL.Add(pnl)
	s.TradeCount++
	s.LastPnL = pnl

	switch {
	case pnl.IsPositive():
		s.WinCount++
	case pnl.IsNegative():
		s.LossCount++
	}

	s.Mood = deriveMood(s.WinRate(), pnl)
	if len(s.Profile.Quotes) > 0 {
		s.LastQuote = s.Profile.Quotes[rng.Intn(len(s.Profile.Quotes))]
	}
}

// deriveMood maps recent performance onto a display label.
func deriveMood(winRate float64, lastPnL decimal.Decimal) string {
	switch {
	case winRate >= 0.65 && lastPnL.IsPositive():
		return "euphoric"
	case winRate >= 0.5:
		return "confident"
	case winRate >= 0.35:
		return "neutral"
	case lastPnL.IsNegative() && winRate < 0.2:
		return "defeated"
	default:
		return "anxious"
	}
}

// Snapshot is a read-only view of one agent's state.
type Snapshot struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Realm           string          `json:"realm"`
	Balance         decimal.Decimal `json:"balance"`
	TotalPnL        decimal.Decimal `json:"totalPnl"`
	CurrentAction   Action          `json:"currentAction"`
	Mood            string          `json:"mood"`
	WinRate         float64         `json:"winRate"`
	TradeCount      int             `json:"tradeCount"`
	LastQuote       string          `json:"lastQuote"`
	ExplorationPct  float64         `json:"explorationRatePct"`
	LastPnL         decimal.Decimal `json:"lastPnl"`
}

// Snapshot returns a copy of the agent's externally visible state.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		ID:             s.Profile.ID,
		Name:           s.Profile.Name,
		Realm:          s.Profile.Realm,
		Balance:        s.Balance,
		TotalPnL:       s.TotalPnL,
		CurrentAction:  s.LastAction,
		Mood:           s.Mood,
		WinRate:        s.WinRate(),
		TradeCount:     s.TradeCount,
		LastQuote:      s.LastQuote,
		ExplorationPct: s.ExplorationRate * 100,
		LastPnL:        s.LastPnL,
	}
}

// LeaderboardEntry is a derived ranking row, recomputed each tick.
type LeaderboardEntry struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	TotalPnL   decimal.Decimal `json:"totalPnl"`
	Balance    decimal.Decimal `json:"balance"`
	WinRate    float64         `json:"winRate"`
	TradeCount int             `json:"tradeCount"`
}

// Registry holds the fixed agent population: immutable profiles plus one
// mutable state per profile, in profile order.
type Registry struct {
	profiles []*Profile
	states   []*State
	byID     map[string]*State
}

// NewRegistry builds the population from the supplied profiles.
func NewRegistry(profiles []*Profile, explorationInitial float64) *Registry {
	r := &Registry{
		profiles: profiles,
		states:   make([]*State, 0, len(profiles)),
		byID:     make(map[string]*State, len(profiles)),
	}
	for _, p := range profiles {
		st := NewState(p, explorationInitial)
		r.states = append(r.states, st)
		r.byID[p.ID] = st
	}
	return r
}

// States returns agent states in profile order.
func (r *Registry) States() []*State { return r.states }

// Get returns the state for an agent ID.
func (r *Registry) Get(id string) (*State, bool) {
	st, ok := r.byID[id]
	return st, ok
}

// Len returns the population size.
func (r *Registry) Len() int { return len(r.states) }

// ResetAll restores every agent to its initial state.
func (r *Registry) ResetAll(explorationInitial float64) {
	for _, st := range r.states {
		st.Reset(explorationInitial)
	}
}

// Snapshots returns a snapshot per agent in profile order.
func (r *Registry) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(r.states))
	for _, st := range r.states {
		out = append(out, st.Snapshot())
	}
	return out
}
