package outcome_test

import (
	"math/rand"
	"testing"

	"github.com/fenrir-desktop/sim-backend/internal/agents"
	"github.com/fenrir-desktop/sim-backend/internal/market"
	"github.com/fenrir-desktop/sim-backend/internal/outcome"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func newState() *agents.State {
	p := &agents.Profile{
		ID:              "a1",
		Name:            "A1",
		Quotes:          []string{"q"},
		Personality:     agents.Personality{Wisdom: 0.5, Aggression: 0.5, Patience: 0.5, Greed: 0.5},
		Strategy:        agents.Strategy{PositionSize: 0.1, RiskTolerance: 0.5},
		StartingBalance: decimal.NewFromInt(1000),
	}
	return agents.NewState(p, 0.3)
}

func TestExecuteAccounting(t *testing.T) {
	sim := outcome.NewSimulator(zap.NewNop(), rand.New(rand.NewSource(11)))
	st := newState()

	total := decimal.Zero
	for tick := int64(1); tick <= 200; tick++ {
		before := st.Balance
		trade, _ := sim.Execute(st, agents.ActionBuy, market.ConditionBullish, tick)

		if !st.Balance.Sub(before).Equal(trade.PnL) {
			t.Fatalf("balance delta %s != trade pnl %s", st.Balance.Sub(before), trade.PnL)
		}
		total = total.Add(trade.PnL)
	}

	if !st.TotalPnL.Equal(total) {
		t.Errorf("TotalPnL %s != sum of trade pnl %s", st.TotalPnL, total)
	}
	if st.TradeCount != 200 {
		t.Errorf("TradeCount = %d, want 200", st.TradeCount)
	}
	if st.WinCount+st.LossCount > st.TradeCount {
		t.Errorf("win %d + loss %d exceeds trades %d", st.WinCount, st.LossCount, st.TradeCount)
	}
}

func TestSellZeroOutsideWeakness(t *testing.T) {
	sim := outcome.NewSimulator(zap.NewNop(), rand.New(rand.NewSource(12)))

	for _, cond := range []market.Condition{
		market.ConditionBullish,
		market.ConditionNeutral,
		market.ConditionVolatile,
		market.ConditionPump,
	} {
		st := newState()
		trade, pnl := sim.Execute(st, agents.ActionSell, cond, 1)
		if !trade.PnL.IsZero() || pnl != 0 {
			t.Errorf("sell in %q produced pnl %s, want 0", cond, trade.PnL)
		}
	}
}

func TestSellRewardedWhenBearish(t *testing.T) {
	sim := outcome.NewSimulator(zap.NewNop(), rand.New(rand.NewSource(13)))

	for i := 0; i < 100; i++ {
		st := newState()
		trade, _ := sim.Execute(st, agents.ActionSell, market.ConditionBearish, 1)
		if trade.PnL.IsNegative() {
			t.Fatalf("sell in bearish produced negative pnl %s", trade.PnL)
		}
	}
}

func TestBuyProfitsInPumpOnAverage(t *testing.T) {
	sim := outcome.NewSimulator(zap.NewNop(), rand.New(rand.NewSource(14)))
	st := newState()

	total := 0.0
	const n = 500
	for i := 0; i < n; i++ {
		st.Balance = decimal.NewFromInt(1000) // fixed stake per iteration
		_, pnl := sim.Execute(st, agents.ActionBuy, market.ConditionPump, int64(i))
		total += pnl
	}

	// Pump factor 0.5 plus buy bonus 0.1 dwarfs the zero-mean noise terms.
	if total/n <= 0 {
		t.Errorf("mean buy pnl in pump = %f, want > 0", total/n)
	}
}

func TestShortProfitsInDumpOnAverage(t *testing.T) {
	sim := outcome.NewSimulator(zap.NewNop(), rand.New(rand.NewSource(15)))
	st := newState()

	total := 0.0
	const n = 500
	for i := 0; i < n; i++ {
		st.Balance = decimal.NewFromInt(1000)
		_, pnl := sim.Execute(st, agents.ActionShort, market.ConditionDump, int64(i))
		total += pnl
	}

	if total/n <= 0 {
		t.Errorf("mean short pnl in dump = %f, want > 0", total/n)
	}
}

func TestHoldScaledDown(t *testing.T) {
	sim := outcome.NewSimulator(zap.NewNop(), rand.New(rand.NewSource(16)))

	// Hold pnl magnitude is bounded by stake * 0.05 * |blended|; with all
	// factors bounded, |blended| < 1 here, so |pnl| < stake * 0.05.
	for i := 0; i < 200; i++ {
		st := newState()
		trade, _ := sim.Execute(st, agents.ActionHold, market.ConditionBullish, 1)
		limit := decimal.NewFromFloat(1000 * 0.1 * 0.05)
		if trade.PnL.Abs().GreaterThan(limit) {
			t.Fatalf("hold pnl %s exceeds %s", trade.PnL, limit)
		}
	}
}

func TestTradeRecordFields(t *testing.T) {
	sim := outcome.NewSimulator(zap.NewNop(), rand.New(rand.NewSource(17)))
	st := newState()

	trade, _ := sim.Execute(st, agents.ActionScalp, market.ConditionVolatile, 42)

	if trade.ID == "" {
		t.Error("trade without ID")
	}
	if trade.AgentID != "a1" || trade.Action != agents.ActionScalp {
		t.Errorf("unexpected trade identity: %+v", trade)
	}
	if trade.Tick != 42 || trade.Condition != market.ConditionVolatile {
		t.Errorf("unexpected trade context: %+v", trade)
	}
	if st.LastAction != agents.ActionScalp {
		t.Errorf("LastAction = %q, want scalp", st.LastAction)
	}
}
