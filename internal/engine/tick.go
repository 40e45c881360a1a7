package engine

import (
	"sort"
	"time"

	"github.com/fenrir-desktop/sim-backend/internal/agents"
	"github.com/fenrir-desktop/sim-backend/internal/events"
	"github.com/fenrir-desktop/sim-backend/internal/market"
	"go.uber.org/zap"
)

// runTickLocked advances the simulation by exactly one tick: market update,
// event generation, the per-agent decision/execution/learning loop, and the
// leaderboard refresh, as one atomic unit of work. Caller holds e.mu.
func (e *Engine) runTickLocked() {
	started := time.Now()
	e.tick++

	// 1. Periodic base condition roll.
	if cond, changed := e.machine.Advance(e.tick); changed {
		e.bus.Publish(events.NewMarketChange(cond, e.tick))
	}

	// 2. Probabilistic market event.
	if ev := e.generator.MaybeGenerate(e.tick); ev != nil {
		e.marketEvents.Push(*ev)
		e.machine.RecordEvent(*ev)
		e.totalEvents++
		e.metrics.ObserveMarketEvent(string(ev.Type))
		e.bus.Publish(events.NewMarketEvent(*ev))
	}

	// 3. Effective state for this tick, override window included. The
	// Q-update below reuses it as the next state: the update runs
	// synchronously after this tick's transition has been resolved, and
	// the single-step same-tick lookahead is part of the simulator's
	// learning dynamics.
	effective := e.machine.Effective(e.tick)

	// 4. Per-agent pipeline, each run isolated so one agent's fault
	// cannot corrupt the rest of the population or abort the tick.
	for _, st := range e.registry.States() {
		e.stepAgent(st, effective)
	}

	// 5. Leaderboard refresh and tick notification.
	e.leaderboard = e.computeLeaderboard()
	e.metrics.ObserveTick(e.tick, time.Since(started))
	e.bus.Publish(events.NewTick(e.tick, effective, e.registry.Snapshots(), e.topLeaderboard()))
}

// stepAgent runs one agent through decision, execution, and learning.
func (e *Engine) stepAgent(st *agents.State, effective market.Condition) {
	defer func() {
		if r := recover(); r != nil {
			e.metrics.ObserveAgentFault()
			e.logger.Error("agent pipeline fault contained",
				zap.String("agent", st.Profile.ID),
				zap.Int64("tick", e.tick),
				zap.Any("panic", r))
		}
	}()

	action, explored := e.policy.SelectAction(st, effective)
	st.LastDecision = agents.Decision{
		Action:   action,
		Explored: explored,
		Tick:     e.tick,
		At:       time.Now(),
	}

	trade, pnl := e.sim.Execute(st, action, effective, e.tick)
	reward := e.policy.ShapeReward(pnl, st)
	e.policy.Update(st, effective, action, reward, effective)

	e.trades.Push(trade)
	e.totalTrades++
	e.totalVolume = e.totalVolume.Add(trade.PnL.Abs())

	balance, _ := st.Balance.Float64()
	e.metrics.ObserveTrade(st.Profile.ID, string(action), balance)
	e.bus.Publish(events.NewTrade(trade))
}

// computeLeaderboard ranks all agents by total pnl descending, ties broken
// by profile order. Caller holds e.mu.
func (e *Engine) computeLeaderboard() []agents.LeaderboardEntry {
	states := e.registry.States()
	board := make([]agents.LeaderboardEntry, 0, len(states))
	for _, st := range states {
		board = append(board, agents.LeaderboardEntry{
			ID:         st.Profile.ID,
			Name:       st.Profile.Name,
			TotalPnL:   st.TotalPnL,
			Balance:    st.Balance,
			WinRate:    st.WinRate(),
			TradeCount: st.TradeCount,
		})
	}

	sort.SliceStable(board, func(i, j int) bool {
		return board[i].TotalPnL.GreaterThan(board[j].TotalPnL)
	})
	return board
}

// topLeaderboard slices the cached board to the configured display size.
// Caller holds e.mu.
func (e *Engine) topLeaderboard() []agents.LeaderboardEntry {
	n := e.cfg.LeaderboardSize
	if n <= 0 || n > len(e.leaderboard) {
		n = len(e.leaderboard)
	}
	out := make([]agents.LeaderboardEntry, n)
	copy(out, e.leaderboard[:n])
	return out
}
