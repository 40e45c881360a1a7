// Package config loads simulator configuration from defaults, an optional
// YAML file, and SIM_-prefixed environment variables, in that precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Sim    SimConfig    `mapstructure:"sim"`
}

// ServerConfig configures the HTTP/WebSocket server.
type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	EnableMetrics bool   `mapstructure:"enable_metrics"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SimConfig configures the simulation engine.
type SimConfig struct {
	TickIntervalMs    int64   `mapstructure:"tick_interval_ms"`
	MinTickIntervalMs int64   `mapstructure:"min_tick_interval_ms"`
	MaxTickIntervalMs int64   `mapstructure:"max_tick_interval_ms"`
	Seed              int64   `mapstructure:"seed"`
	EventProbability  float64 `mapstructure:"event_probability"`
	RollInterval      int64   `mapstructure:"roll_interval"`
	OverrideWindow    int64   `mapstructure:"override_window"`
	TradeBufferCap    int     `mapstructure:"trade_buffer_cap"`
	EventBufferCap    int     `mapstructure:"event_buffer_cap"`
	LeaderboardSize   int     `mapstructure:"leaderboard_size"`

	LearningRate       float64 `mapstructure:"learning_rate"`
	Discount           float64 `mapstructure:"discount"`
	ExplorationInitial float64 `mapstructure:"exploration_initial"`
	ExplorationDecay   float64 `mapstructure:"exploration_decay"`
	ExplorationMin     float64 `mapstructure:"exploration_min"`
	RewardScale        float64 `mapstructure:"reward_scale"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.enable_metrics", true)

	v.SetDefault("log.level", "info")

	v.SetDefault("sim.tick_interval_ms", 1000)
	v.SetDefault("sim.min_tick_interval_ms", 100)
	v.SetDefault("sim.max_tick_interval_ms", 5000)
	v.SetDefault("sim.seed", 0)
	v.SetDefault("sim.event_probability", 0.15)
	v.SetDefault("sim.roll_interval", 10)
	v.SetDefault("sim.override_window", 5)
	v.SetDefault("sim.trade_buffer_cap", 100)
	v.SetDefault("sim.event_buffer_cap", 50)
	v.SetDefault("sim.leaderboard_size", 5)

	v.SetDefault("sim.learning_rate", 0.1)
	v.SetDefault("sim.discount", 0.95)
	v.SetDefault("sim.exploration_initial", 0.30)
	v.SetDefault("sim.exploration_decay", 0.995)
	v.SetDefault("sim.exploration_min", 0.01)
	v.SetDefault("sim.reward_scale", 10)
}

// Load reads configuration. An empty path skips the file layer.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
