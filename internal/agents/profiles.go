package agents

import "github.com/shopspring/decimal"

// DefaultProfiles returns the built-in wolfpack population used when no
// external profile list is supplied.
func DefaultProfiles() []*Profile {
	return []*Profile{
		{
			ID:    "fenrir",
			Name:  "Fenrir",
			Realm: "Jotunheim",
			Quotes: []string{
				"The chain that binds me was forged from whispers.",
				"I do not chase the market. The market runs from me.",
				"Patience is for those who fear the hunt.",
			},
			Personality: Personality{Wisdom: 0.55, Aggression: 0.92, Patience: 0.20, Greed: 0.85},
			Strategy: Strategy{
				Type:          "momentum",
				PositionSize:  0.25,
				RiskTolerance: 0.90,
			},
			StartingBalance: decimal.NewFromInt(10000),
		},
		{
			ID:    "odin",
			Name:  "Odin",
			Realm: "Asgard",
			Quotes: []string{
				"I traded an eye for wisdom. The spread was fair.",
				"The ravens see every candle.",
				"A position unhedged is a saga unfinished.",
			},
			Personality: Personality{Wisdom: 0.95, Aggression: 0.35, Patience: 0.80, Greed: 0.30},
			Strategy: Strategy{
				Type:          "value",
				PositionSize:  0.10,
				RiskTolerance: 0.25,
			},
			StartingBalance: decimal.NewFromInt(10000),
		},
		{
			ID:    "loki",
			Name:  "Loki",
			Realm: "Asgard",
			Quotes: []string{
				"Every rug has two sides. I sell both.",
				"Volatility is just the market telling jokes.",
				"Trust me. Or better: don't.",
			},
			Personality: Personality{Wisdom: 0.70, Aggression: 0.75, Patience: 0.30, Greed: 0.90},
			Strategy: Strategy{
				Type:          "scalper",
				PositionSize:  0.15,
				RiskTolerance: 0.80,
			},
			StartingBalance: decimal.NewFromInt(10000),
		},
		{
			ID:    "freya",
			Name:  "Freya",
			Realm: "Vanaheim",
			Quotes: []string{
				"Gold is heavy. Conviction is heavier.",
				"I hold what is worth holding.",
				"The calm field yields the richest harvest.",
			},
			Personality: Personality{Wisdom: 0.85, Aggression: 0.25, Patience: 0.95, Greed: 0.40},
			Strategy: Strategy{
				Type:          "swing",
				PositionSize:  0.12,
				RiskTolerance: 0.35,
			},
			StartingBalance: decimal.NewFromInt(10000),
		},
	}
}
