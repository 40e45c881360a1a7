package policy_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/fenrir-desktop/sim-backend/internal/agents"
	"github.com/fenrir-desktop/sim-backend/internal/market"
	"github.com/fenrir-desktop/sim-backend/internal/policy"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func newEngine(seed int64, cfg policy.Config) *policy.Engine {
	return policy.NewEngine(zap.NewNop(), cfg, rand.New(rand.NewSource(seed)))
}

func newState(eps float64) *agents.State {
	p := &agents.Profile{
		ID:              "a1",
		Name:            "A1",
		Personality:     agents.Personality{Wisdom: 0.5, Aggression: 0.5, Patience: 0.5, Greed: 0.5},
		Strategy:        agents.Strategy{PositionSize: 0.1, RiskTolerance: 0.5},
		StartingBalance: decimal.NewFromInt(1000),
	}
	return agents.NewState(p, eps)
}

func TestUpdateRule(t *testing.T) {
	cfg := policy.DefaultConfig()
	eng := newEngine(1, cfg)
	st := newState(0.3)

	st.QTable[market.ConditionBullish][agents.ActionBuy] = 1.0
	st.QTable[market.ConditionBearish][agents.ActionShort] = 2.0

	eng.Update(st, market.ConditionBullish, agents.ActionBuy, 5.0, market.ConditionBearish)

	// Q <- 1.0 + 0.1*(5.0 + 0.95*2.0 - 1.0) = 1.59
	got := st.QTable[market.ConditionBullish][agents.ActionBuy]
	if math.Abs(got-1.59) > 1e-9 {
		t.Errorf("Q after update = %f, want 1.59", got)
	}
}

func TestUpdateKeepsTableFinite(t *testing.T) {
	cfg := policy.DefaultConfig()
	eng := newEngine(2, cfg)
	st := newState(0.3)

	conds := market.Conditions()
	acts := agents.Actions()
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 5000; i++ {
		c := conds[rng.Intn(len(conds))]
		n := conds[rng.Intn(len(conds))]
		a := acts[rng.Intn(len(acts))]
		eng.Update(st, c, a, rng.NormFloat64()*20, n)
	}

	for _, c := range conds {
		for _, a := range acts {
			v, ok := st.QTable[c][a]
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("Q(%q, %q) = %v (ok=%v), want finite", c, a, v, ok)
			}
		}
	}
}

func TestExplorationDecayMonotonicWithFloor(t *testing.T) {
	cfg := policy.DefaultConfig()
	eng := newEngine(4, cfg)
	st := newState(cfg.ExplorationInitial)

	prev := st.ExplorationRate
	for i := 0; i < 2000; i++ {
		eng.SelectAction(st, market.ConditionNeutral)
		if st.ExplorationRate > prev {
			t.Fatalf("exploration rate increased: %f -> %f", prev, st.ExplorationRate)
		}
		if st.ExplorationRate < cfg.ExplorationMin {
			t.Fatalf("exploration rate %f below floor %f", st.ExplorationRate, cfg.ExplorationMin)
		}
		prev = st.ExplorationRate
	}

	if st.ExplorationRate != cfg.ExplorationMin {
		t.Errorf("exploration rate = %f after 2000 decisions, want floor %f",
			st.ExplorationRate, cfg.ExplorationMin)
	}
}

func TestExploitPicksArgmax(t *testing.T) {
	cfg := policy.DefaultConfig()
	eng := newEngine(5, cfg)
	st := newState(0) // epsilon zero: always exploit

	st.QTable[market.ConditionVolatile][agents.ActionScalp] = 10

	for i := 0; i < 50; i++ {
		st.ExplorationRate = 0
		action, explored := eng.SelectAction(st, market.ConditionVolatile)
		if explored {
			t.Fatal("explored with epsilon 0")
		}
		if action != agents.ActionScalp {
			t.Fatalf("exploit chose %q, want scalp", action)
		}
	}
}

func TestPersonalityBreaksTies(t *testing.T) {
	cfg := policy.DefaultConfig()
	eng := newEngine(6, cfg)

	// All-zero Q-table: a maximally patient, unaggressive agent should
	// hold rather than buy when exploiting.
	p := &agents.Profile{
		ID:              "p",
		Personality:     agents.Personality{Wisdom: 0.2, Aggression: 0.1, Patience: 1.0, Greed: 0.1},
		Strategy:        agents.Strategy{PositionSize: 0.1, RiskTolerance: 0.5},
		StartingBalance: decimal.NewFromInt(1000),
	}
	st := agents.NewState(p, 0)

	action, _ := eng.SelectAction(st, market.ConditionNeutral)
	if action != agents.ActionHold {
		t.Errorf("tie-break chose %q, want hold", action)
	}
}

func TestPersonalityBonusDoesNotOverrideLearning(t *testing.T) {
	cfg := policy.DefaultConfig()
	eng := newEngine(7, cfg)

	p := &agents.Profile{
		ID:              "p",
		Personality:     agents.Personality{Wisdom: 0.2, Aggression: 0.1, Patience: 1.0, Greed: 0.1},
		Strategy:        agents.Strategy{PositionSize: 0.1, RiskTolerance: 0.5},
		StartingBalance: decimal.NewFromInt(1000),
	}
	st := agents.NewState(p, 0)
	st.QTable[market.ConditionNeutral][agents.ActionShort] = 5

	action, _ := eng.SelectAction(st, market.ConditionNeutral)
	if action != agents.ActionShort {
		t.Errorf("learned value overridden: chose %q, want short", action)
	}
}

func TestExploreCoversAllActions(t *testing.T) {
	cfg := policy.DefaultConfig()
	eng := newEngine(8, cfg)

	// Extreme personality: the weight floor must still make every action
	// reachable.
	p := &agents.Profile{
		ID:              "p",
		Personality:     agents.Personality{Wisdom: 0, Aggression: 0, Patience: 0, Greed: 1},
		Strategy:        agents.Strategy{PositionSize: 0.1, RiskTolerance: 0.5},
		StartingBalance: decimal.NewFromInt(1000),
	}
	st := agents.NewState(p, 1) // always explore

	seen := make(map[agents.Action]bool)
	for i := 0; i < 5000; i++ {
		st.ExplorationRate = 1
		action, explored := eng.SelectAction(st, market.ConditionNeutral)
		if !explored {
			t.Fatal("expected exploration with epsilon 1")
		}
		seen[action] = true
	}

	for _, a := range agents.Actions() {
		if !seen[a] {
			t.Errorf("action %q never drawn during exploration", a)
		}
	}
}

func TestShapeReward(t *testing.T) {
	cfg := policy.DefaultConfig()
	eng := newEngine(9, cfg)

	cases := []struct {
		name      string
		pnl       float64
		tolerance float64
		want      float64
	}{
		{"plain win", 2.0, 0.6, 20},
		{"disciplined win boosted", 2.0, 0.3, 24},
		{"plain loss", -2.0, 0.6, -20},
		{"risky loss amplified", -2.0, 0.8, -30},
		{"zero", 0, 0.9, 0},
	}

	for _, tc := range cases {
		st := newState(0.3)
		st.Profile.Strategy.RiskTolerance = tc.tolerance
		got := eng.ShapeReward(tc.pnl, st)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("%s: ShapeReward = %f, want %f", tc.name, got, tc.want)
		}
	}
}
