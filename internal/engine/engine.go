// Package engine ties the simulator together: it owns the agent population,
// the market state machine, the learning pipeline, and the tick scheduler,
// and exposes the operational surface consumed by the host application.
package engine

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/fenrir-desktop/sim-backend/internal/agents"
	"github.com/fenrir-desktop/sim-backend/internal/events"
	"github.com/fenrir-desktop/sim-backend/internal/market"
	"github.com/fenrir-desktop/sim-backend/internal/outcome"
	"github.com/fenrir-desktop/sim-backend/internal/policy"
	"github.com/fenrir-desktop/sim-backend/pkg/metrics"
	"github.com/fenrir-desktop/sim-backend/pkg/ring"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds engine construction parameters.
type Config struct {
	TickInterval    time.Duration `json:"tickInterval"`
	MinTickInterval time.Duration `json:"minTickInterval"`
	MaxTickInterval time.Duration `json:"maxTickInterval"`

	RollInterval     int64   `json:"rollInterval"`     // base condition roll period, in ticks
	OverrideWindow   int64   `json:"overrideWindow"`   // pump/dump override window, in ticks
	EventProbability float64 `json:"eventProbability"` // per-tick market event probability

	TradeBufferCap  int `json:"tradeBufferCap"`
	EventBufferCap  int `json:"eventBufferCap"`
	LeaderboardSize int `json:"leaderboardSize"`

	Seed   int64            `json:"seed"` // 0 seeds from the clock
	Policy policy.Config    `json:"policy"`
	Bus    events.BusConfig `json:"bus"`
}

// DefaultConfig returns the standard simulator parameters.
func DefaultConfig() Config {
	return Config{
		TickInterval:     time.Second,
		MinTickInterval:  100 * time.Millisecond,
		MaxTickInterval:  5 * time.Second,
		RollInterval:     10,
		OverrideWindow:   5,
		EventProbability: 0.15,
		TradeBufferCap:   100,
		EventBufferCap:   50,
		LeaderboardSize:  5,
		Policy:           policy.DefaultConfig(),
		Bus:              events.DefaultBusConfig(),
	}
}

// Engine is a single simulator instance. All mutable state is guarded by
// mu; the tick scheduler is the only writer while running, and operational
// calls synchronize against it through the same mutex so they never observe
// a half-mutated tick.
type Engine struct {
	logger  *zap.Logger
	cfg     Config
	metrics *metrics.Recorder

	mu        sync.RWMutex
	registry  *agents.Registry
	machine   *market.StateMachine
	generator *market.Generator
	policy    *policy.Engine
	sim       *outcome.Simulator
	bus       *events.Bus
	rng       *rand.Rand

	trades       *ring.Buffer[outcome.Trade]
	marketEvents *ring.Buffer[market.Event]
	leaderboard  []agents.LeaderboardEntry

	tick        int64
	running     bool
	startedAt   time.Time
	interval    time.Duration
	totalTrades int64
	totalEvents int64
	totalVolume decimal.Decimal

	stopCh  chan struct{}
	speedCh chan struct{}
	done    chan struct{}
}

// New constructs an engine from injected configuration. A nil profile list
// uses the built-in population; a nil recorder disables metrics.
func New(logger *zap.Logger, cfg Config, profiles []*agents.Profile, recorder *metrics.Recorder) *Engine {
	if profiles == nil {
		profiles = agents.DefaultProfiles()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	log := logger.Named("engine")
	e := &Engine{
		logger:       log,
		cfg:          cfg,
		metrics:      recorder,
		registry:     agents.NewRegistry(profiles, cfg.Policy.ExplorationInitial),
		machine:      market.NewStateMachine(log, rng, cfg.RollInterval, cfg.OverrideWindow),
		generator:    market.NewGenerator(log, rng, cfg.EventProbability, nil),
		policy:       policy.NewEngine(log, cfg.Policy, rng),
		sim:          outcome.NewSimulator(log, rng),
		bus:          events.NewBus(log, cfg.Bus),
		rng:          rng,
		trades:       ring.New[outcome.Trade](cfg.TradeBufferCap),
		marketEvents: ring.New[market.Event](cfg.EventBufferCap),
		interval:     cfg.TickInterval,
		totalVolume:  decimal.Zero,
		speedCh:      make(chan struct{}, 1),
	}
	e.leaderboard = e.computeLeaderboard()

	log.Info("engine constructed",
		zap.Int("agents", e.registry.Len()),
		zap.Duration("tick_interval", e.interval),
		zap.Int64("seed", seed))

	return e
}

// Bus returns the notification bus external subscribers attach to.
func (e *Engine) Bus() *events.Bus { return e.bus }

// Result is the outcome of an operational command.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// StopResult extends Result with run totals.
type StopResult struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	TotalTrades int64           `json:"totalTrades"`
	TotalVolume decimal.Decimal `json:"totalVolume"`
}

// SpeedResult reports the effective tick interval after SetSpeed.
type SpeedResult struct {
	Success bool  `json:"success"`
	Speed   int64 `json:"speed"` // milliseconds
}

// Start begins ticking at the configured interval. Starting an already
// running engine is an expected operator mistake and returns a failure
// result without side effects.
func (e *Engine) Start() Result {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return Result{Success: false, Message: "simulation already running"}
	}

	e.running = true
	e.startedAt = time.Now()
	e.stopCh = make(chan struct{})
	e.done = make(chan struct{})
	interval := e.interval
	e.mu.Unlock()

	go e.run()

	e.logger.Info("simulation started", zap.Duration("interval", interval))
	e.bus.Publish(events.NewStarted(interval))

	return Result{Success: true, Message: "simulation started"}
}

// Stop cancels future tick scheduling. A tick already in flight finishes
// before the engine reports stopped.
func (e *Engine) Stop() StopResult {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return StopResult{Success: false, Message: "simulation not running"}
	}

	e.running = false
	close(e.stopCh)
	done := e.done
	e.mu.Unlock()

	<-done

	// Totals are read after the in-flight tick, if any, has finished so the
	// stop report includes it.
	e.mu.RLock()
	trades := e.totalTrades
	volume := e.totalVolume
	e.mu.RUnlock()

	e.logger.Info("simulation stopped",
		zap.Int64("total_trades", trades),
		zap.String("total_volume", volume.String()))
	e.bus.Publish(events.NewStopped(trades, volume))

	return StopResult{
		Success:     true,
		Message:     "simulation stopped",
		TotalTrades: trades,
		TotalVolume: volume,
	}
}

// SetSpeed changes the tick interval, clamping to the configured bounds.
// While running, the driver reschedules so the new interval applies from
// the next tick boundary without truncating a tick in progress.
func (e *Engine) SetSpeed(ms int64) SpeedResult {
	interval := time.Duration(ms) * time.Millisecond
	if interval < e.cfg.MinTickInterval {
		interval = e.cfg.MinTickInterval
	}
	if interval > e.cfg.MaxTickInterval {
		interval = e.cfg.MaxTickInterval
	}

	e.mu.Lock()
	e.interval = interval
	running := e.running
	e.mu.Unlock()

	if running {
		select {
		case e.speedCh <- struct{}{}:
		default: // reschedule already pending
		}
	}

	e.logger.Info("tick interval updated", zap.Duration("interval", interval))
	return SpeedResult{Success: true, Speed: interval.Milliseconds()}
}

// ResetLearning restores every agent to its initial state, empties both
// ring buffers, and zeroes the tick counter. Callable while stopped or
// running; while running it applies atomically between ticks.
func (e *Engine) ResetLearning() Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.registry.ResetAll(e.cfg.Policy.ExplorationInitial)
	e.machine.Reset()
	e.trades.Clear()
	e.marketEvents.Clear()
	e.tick = 0
	e.totalTrades = 0
	e.totalEvents = 0
	e.totalVolume = decimal.Zero
	e.leaderboard = e.computeLeaderboard()
	e.metrics.ResetTick()

	e.logger.Info("learning state reset")
	return Result{Success: true, Message: "all agents reset to initial state"}
}

// RunTicks executes n full pipeline ticks synchronously. It is rejected
// while the scheduler is running; it exists for deterministic headless runs
// and tests.
func (e *Engine) RunTicks(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return fmt.Errorf("cannot step synchronously while the scheduler is running")
	}
	for i := 0; i < n; i++ {
		e.runTickLocked()
	}
	return nil
}

// run is the tick driver: a single goroutine, so ticks never overlap. The
// timer is re-armed only after the previous tick's full pipeline finished.
func (e *Engine) run() {
	defer close(e.done)

	for {
		e.mu.RLock()
		interval := e.interval
		e.mu.RUnlock()

		timer := time.NewTimer(interval)
		select {
		case <-e.stopCh:
			timer.Stop()
			return
		case <-e.speedCh:
			timer.Stop()
			continue
		case <-timer.C:
			e.tickOnce()
		}
	}
}

func (e *Engine) tickOnce() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		// Stop raced with the timer; drop the tick.
		return
	}
	e.runTickLocked()
}
