package agents_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/fenrir-desktop/sim-backend/internal/agents"
	"github.com/fenrir-desktop/sim-backend/internal/market"
	"github.com/shopspring/decimal"
)

func testProfile() *agents.Profile {
	return &agents.Profile{
		ID:              "test",
		Name:            "Test",
		Realm:           "Midgard",
		Quotes:          []string{"a", "b"},
		Personality:     agents.Personality{Wisdom: 0.5, Aggression: 0.5, Patience: 0.5, Greed: 0.5},
		Strategy:        agents.Strategy{Type: "test", PositionSize: 0.1, RiskTolerance: 0.5},
		StartingBalance: decimal.NewFromInt(1000),
	}
}

func TestNewStateQTableComplete(t *testing.T) {
	st := agents.NewState(testProfile(), 0.3)

	for _, cond := range market.Conditions() {
		row, ok := st.QTable[cond]
		if !ok {
			t.Fatalf("missing Q-table row for %q", cond)
		}
		for _, action := range agents.Actions() {
			v, ok := row[action]
			if !ok {
				t.Fatalf("missing Q-table entry (%q, %q)", cond, action)
			}
			if v != 0 || math.IsNaN(v) {
				t.Errorf("Q(%q, %q) = %f, want 0", cond, action, v)
			}
		}
	}
}

func TestRecordTradeAccounting(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	st := agents.NewState(testProfile(), 0.3)

	st.RecordTrade(decimal.NewFromFloat(12.5), rng)
	st.RecordTrade(decimal.NewFromFloat(-4.25), rng)
	st.RecordTrade(decimal.Zero, rng)

	if st.TradeCount != 3 {
		t.Errorf("TradeCount = %d, want 3", st.TradeCount)
	}
	if st.WinCount != 1 || st.LossCount != 1 {
		t.Errorf("win/loss = %d/%d, want 1/1", st.WinCount, st.LossCount)
	}

	wantBalance := decimal.NewFromFloat(1008.25)
	if !st.Balance.Equal(wantBalance) {
		t.Errorf("Balance = %s, want %s", st.Balance, wantBalance)
	}
	wantPnL := decimal.NewFromFloat(8.25)
	if !st.TotalPnL.Equal(wantPnL) {
		t.Errorf("TotalPnL = %s, want %s", st.TotalPnL, wantPnL)
	}
	if st.LastQuote == "" {
		t.Error("LastQuote not set after trade")
	}
}

func TestReset(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	st := agents.NewState(testProfile(), 0.3)

	st.RecordTrade(decimal.NewFromInt(50), rng)
	st.QTable[market.ConditionBullish][agents.ActionBuy] = 3.7
	st.ExplorationRate = 0.05
	st.LastAction = agents.ActionBuy

	st.Reset(0.3)

	if !st.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Balance = %s, want 1000", st.Balance)
	}
	if !st.TotalPnL.IsZero() {
		t.Errorf("TotalPnL = %s, want 0", st.TotalPnL)
	}
	if st.TradeCount != 0 || st.WinCount != 0 || st.LossCount != 0 {
		t.Error("counters not zeroed by reset")
	}
	if st.ExplorationRate != 0.3 {
		t.Errorf("ExplorationRate = %f, want 0.3", st.ExplorationRate)
	}
	if st.QTable[market.ConditionBullish][agents.ActionBuy] != 0 {
		t.Error("Q-table not zeroed by reset")
	}
	if st.LastAction != "" || st.Mood != "neutral" {
		t.Error("derived fields not reset")
	}
}

func TestRegistryOrderAndLookup(t *testing.T) {
	profiles := agents.DefaultProfiles()
	reg := agents.NewRegistry(profiles, 0.3)

	if reg.Len() != len(profiles) {
		t.Fatalf("Len = %d, want %d", reg.Len(), len(profiles))
	}

	states := reg.States()
	for i, p := range profiles {
		if states[i].Profile.ID != p.ID {
			t.Errorf("states[%d] = %q, want %q", i, states[i].Profile.ID, p.ID)
		}
	}

	if _, ok := reg.Get("fenrir"); !ok {
		t.Error("lookup by ID failed")
	}
	if _, ok := reg.Get("nope"); ok {
		t.Error("lookup of unknown ID succeeded")
	}
}

func TestSnapshotFields(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	st := agents.NewState(testProfile(), 0.42)
	st.LastAction = agents.ActionScalp
	st.RecordTrade(decimal.NewFromInt(10), rng)

	snap := st.Snapshot()
	if snap.ID != "test" || snap.Realm != "Midgard" {
		t.Errorf("unexpected identity fields: %+v", snap)
	}
	if snap.CurrentAction != agents.ActionScalp {
		t.Errorf("CurrentAction = %q, want scalp", snap.CurrentAction)
	}
	if snap.ExplorationPct != 42 {
		t.Errorf("ExplorationPct = %f, want 42", snap.ExplorationPct)
	}
	if snap.WinRate != 1 {
		t.Errorf("WinRate = %f, want 1", snap.WinRate)
	}
}
