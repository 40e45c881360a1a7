// Package outcome computes synthetic trade results. Pnl blends a market
// factor fixed per condition, a personality factor (wisdom skill, aggression
// variance), and independent noise, with a per-action formula on top.
package outcome

import (
	"math"
	"math/rand"
	"time"

	"github.com/fenrir-desktop/sim-backend/internal/agents"
	"github.com/fenrir-desktop/sim-backend/internal/market"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Trade is a single executed synthetic trade.
type Trade struct {
	ID        string           `json:"id"`
	AgentID   string           `json:"agentId"`
	Action    agents.Action    `json:"action"`
	PnL       decimal.Decimal  `json:"pnl"`
	Tick      int64            `json:"tick"`
	Condition market.Condition `json:"marketCondition"`
	Timestamp time.Time        `json:"timestamp"`
}

// marketFactor is the fixed directional drift per condition.
func marketFactor(c market.Condition) float64 {
	switch c {
	case market.ConditionBullish:
		return 0.3
	case market.ConditionBearish:
		return -0.2
	case market.ConditionPump:
		return 0.5
	case market.ConditionDump:
		return -0.4
	default: // neutral, volatile
		return 0
	}
}

// Simulator executes actions against the synthetic market.
type Simulator struct {
	logger *zap.Logger
	rng    *rand.Rand
}

// NewSimulator creates an outcome simulator using the supplied random
// source. All randomness flows through it; results are deterministic given
// the seed.
func NewSimulator(logger *zap.Logger, rng *rand.Rand) *Simulator {
	return &Simulator{
		logger: logger.Named("outcome"),
		rng:    rng,
	}
}

// Execute computes the pnl for the action, mutates the agent's balance and
// counters, and returns the trade record plus the raw float pnl used for
// reward shaping.
func (s *Simulator) Execute(st *agents.State, action agents.Action, cond market.Condition, tick int64) (Trade, float64) {
	p := st.Profile.Personality

	skill := (p.Wisdom - 0.5) * 0.2
	variance := p.Aggression * (s.rng.Float64() - 0.5) * 0.3
	noise := (s.rng.Float64() - 0.5) * 0.2
	blended := marketFactor(cond) + skill + variance + noise

	balance, _ := st.Balance.Float64()
	stake := balance * st.Profile.Strategy.PositionSize

	var pnl float64
	switch action {
	case agents.ActionBuy:
		dir := blended
		if cond == market.ConditionBullish || cond == market.ConditionPump {
			dir += 0.1
		} else {
			dir -= 0.03
		}
		pnl = stake * dir

	case agents.ActionSell:
		// Modest reward for selling into weakness; zero otherwise.
		if cond == market.ConditionBearish || cond == market.ConditionDump {
			pnl = stake * math.Abs(blended) * 0.5
		}

	case agents.ActionHold:
		pnl = stake * blended * 0.05

	case agents.ActionScalp:
		// Scalping ignores the directional bias of the regime.
		pnl = stake * (skill + variance + noise) * 0.15

	case agents.ActionShort:
		dir := -blended
		if cond == market.ConditionBearish || cond == market.ConditionDump {
			dir += 0.1
		} else {
			dir -= 0.05
		}
		pnl = stake * dir
	}

	pnlDec := decimal.NewFromFloat(pnl).Round(6)
	st.LastAction = action
	st.RecordTrade(pnlDec, s.rng)

	trade := Trade{
		ID:        uuid.NewString(),
		AgentID:   st.Profile.ID,
		Action:    action,
		PnL:       pnlDec,
		Tick:      tick,
		Condition: cond,
		Timestamp: time.Now(),
	}

	s.logger.Debug("trade executed",
		zap.String("agent", trade.AgentID),
		zap.String("action", string(action)),
		zap.String("pnl", pnlDec.String()),
		zap.Int64("tick", tick))

	return trade, pnl
}
