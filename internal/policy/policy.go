// Package policy implements the tabular Q-learning policy engine: epsilon
// greedy action selection with personality-weighted exploration, the
// standard Q-update rule, and risk-aware reward shaping.
package policy

import (
	"math/rand"

	"github.com/fenrir-desktop/sim-backend/internal/agents"
	"github.com/fenrir-desktop/sim-backend/internal/market"
	"go.uber.org/zap"
)

// Config holds the engine-wide learning constants.
type Config struct {
	LearningRate       float64 `json:"learningRate"`       // alpha
	Discount           float64 `json:"discount"`           // gamma
	ExplorationInitial float64 `json:"explorationInitial"` // epsilon at reset
	ExplorationDecay   float64 `json:"explorationDecay"`   // geometric decay per decision
	ExplorationMin     float64 `json:"explorationMin"`     // epsilon floor
	RewardScale        float64 `json:"rewardScale"`        // pnl -> reward multiplier
}

// DefaultConfig returns the standard learning constants.
func DefaultConfig() Config {
	return Config{
		LearningRate:       0.1,
		Discount:           0.95,
		ExplorationInitial: 0.30,
		ExplorationDecay:   0.995,
		ExplorationMin:     0.01,
		RewardScale:        10,
	}
}

// weightFloor keeps every action reachable during exploration.
const weightFloor = 0.05

// bonusScale sizes the personality tie-breaker added to learned Q-values.
const bonusScale = 0.1

// Engine selects actions and updates Q-tables for the agent population.
type Engine struct {
	logger *zap.Logger
	cfg    Config
	rng    *rand.Rand
}

// NewEngine creates a policy engine using the supplied random source.
func NewEngine(logger *zap.Logger, cfg Config, rng *rand.Rand) *Engine {
	return &Engine{
		logger: logger.Named("policy"),
		cfg:    cfg,
		rng:    rng,
	}
}

// SelectAction picks an action for the agent in the given market condition
// using epsilon-greedy selection, then decays the agent's exploration rate
// toward the configured floor. It reports whether the agent explored.
func (e *Engine) SelectAction(st *agents.State, cond market.Condition) (agents.Action, bool) {
	explored := e.rng.Float64() < st.ExplorationRate

	var action agents.Action
	if explored {
		action = e.explore(st.Profile.Personality)
	} else {
		action = e.exploit(st, cond)
	}

	st.ExplorationRate *= e.cfg.ExplorationDecay
	if st.ExplorationRate < e.cfg.ExplorationMin {
		st.ExplorationRate = e.cfg.ExplorationMin
	}

	return action, explored
}

// explore draws an action from the personality-weighted distribution. Every
// weight is floored at a small positive minimum so no action has zero
// probability.
func (e *Engine) explore(p agents.Personality) agents.Action {
	weights := explorationWeights(p)

	total := 0.0
	for _, a := range agents.Actions() {
		total += weights[a]
	}

	r := e.rng.Float64() * total
	cum := 0.0
	for _, a := range agents.Actions() {
		cum += weights[a]
		if r < cum {
			return a
		}
	}
	return agents.ActionHold
}

// explorationWeights maps personality traits onto per-action draw weights.
func explorationWeights(p agents.Personality) map[agents.Action]float64 {
	w := map[agents.Action]float64{
		agents.ActionBuy:   p.Aggression + p.Greed,
		agents.ActionSell:  p.Wisdom + (1 - p.Greed),
		agents.ActionHold:  p.Patience,
		agents.ActionScalp: p.Aggression - p.Patience,
		agents.ActionShort: p.Wisdom + (1 - p.Greed),
	}
	for a, v := range w {
		if v < weightFloor {
			w[a] = weightFloor
		}
	}
	return w
}

// exploit returns the argmax over learned Q-values plus a small centered
// personality bonus that breaks ties without overriding large learned
// differences.
func (e *Engine) exploit(st *agents.State, cond market.Condition) agents.Action {
	row := st.QTable[cond]

	best := agents.Actions()[0]
	bestScore := row[best] + personalityBonus(st.Profile.Personality, best)
	for _, a := range agents.Actions()[1:] {
		score := row[a] + personalityBonus(st.Profile.Personality, a)
		if score > bestScore {
			best = a
			bestScore = score
		}
	}
	return best
}

// personalityBonus is a centered trait adjustment: (trait - 0.5) * scale.
func personalityBonus(p agents.Personality, a agents.Action) float64 {
	switch a {
	case agents.ActionBuy:
		return ((p.Aggression - 0.5) + (p.Greed - 0.5)) / 2 * bonusScale
	case agents.ActionSell:
		return ((p.Wisdom - 0.5) + (0.5 - p.Greed)) / 2 * bonusScale
	case agents.ActionHold:
		return (p.Patience - 0.5) * bonusScale
	case agents.ActionScalp:
		return ((p.Aggression - 0.5) + (0.5 - p.Patience)) / 2 * bonusScale
	case agents.ActionShort:
		return ((p.Wisdom - 0.5) + (0.5 - p.Greed)) / 2 * bonusScale
	default:
		return 0
	}
}

// Update applies the tabular Q-learning rule:
//
//	Q(s,a) <- Q(s,a) + alpha * (r + gamma * max_a' Q(s',a') - Q(s,a))
func (e *Engine) Update(st *agents.State, cond market.Condition, action agents.Action, reward float64, next market.Condition) {
	current := st.QTable[cond][action]

	maxNext := 0.0
	for i, a := range agents.Actions() {
		v := st.QTable[next][a]
		if i == 0 || v > maxNext {
			maxNext = v
		}
	}

	st.QTable[cond][action] = current + e.cfg.LearningRate*(reward+e.cfg.Discount*maxNext-current)
}

// ShapeReward converts a realized pnl into the learning signal driving
// Update. Disciplined low-risk wins are rewarded more and risky losses are
// penalized more heavily, accelerating learning away from bad high-risk
// behavior. The shaped reward never touches agent balances.
func (e *Engine) ShapeReward(pnl float64, st *agents.State) float64 {
	reward := pnl * e.cfg.RewardScale

	tolerance := st.Profile.Strategy.RiskTolerance
	if pnl > 0 && tolerance < 0.5 {
		reward *= 1.2
	}
	if pnl < 0 && tolerance > 0.7 {
		reward *= 1.5
	}

	return reward
}
