package server

import "strings"

const defaultWorldSeed = "prototype"

// NodeTypeConfig captures the placement and radio parameters for one node
// type. Range variance is applied once per node at creation time.
type NodeTypeConfig struct {
	Count         int     `json:"count" yaml:"count"`
	Size          float64 `json:"size" yaml:"size"`
	Hitbox        float64 `json:"hitbox" yaml:"hitbox"`
	Range         float64 `json:"range" yaml:"range"`
	RangeVariance float64 `json:"rangeVariance" yaml:"rangeVariance"`
	GridPlacement bool    `json:"gridPlacement" yaml:"gridPlacement"`
}

// StrategyConfig tunes one routing strategy. Unicast strategies use Size,
// Speed, and MaxHops; flood strategies use Speed and FadeOpacity.
type StrategyConfig struct {
	Kind        string  `json:"kind" yaml:"kind"` // "unicast" or "flood"
	Size        float64 `json:"size" yaml:"size"`
	Speed       float64 `json:"speed" yaml:"speed"`
	MaxHops     int     `json:"maxHops" yaml:"maxHops"`
	FadeOpacity float64 `json:"fadeOpacity" yaml:"fadeOpacity"`
}

// AutonomousConfig schedules the background traffic generator.
type AutonomousConfig struct {
	Enabled        bool    `json:"enabled" yaml:"enabled"`
	MinIntervalSec float64 `json:"minIntervalSec" yaml:"minIntervalSec"`
	MaxIntervalSec float64 `json:"maxIntervalSec" yaml:"maxIntervalSec"`
	BatchSize      int     `json:"batchSize" yaml:"batchSize"`
	StaggerMillis  int     `json:"staggerMillis" yaml:"staggerMillis"`
	FloodChance    float64 `json:"floodChance" yaml:"floodChance"`
}

// Config captures the toggles used when generating and running a network.
type Config struct {
	Seed              string                    `json:"seed" yaml:"seed"`
	Width             float64                   `json:"width" yaml:"width"`
	Height            float64                   `json:"height" yaml:"height"`
	TickRate          int                       `json:"tickRate" yaml:"tickRate"`
	MinSpacing        float64                   `json:"minSpacing" yaml:"minSpacing"`
	PlacementAttempts int                       `json:"placementAttempts" yaml:"placementAttempts"`
	NodeTypes         map[string]NodeTypeConfig `json:"nodeTypes" yaml:"nodeTypes"`
	Strategies        map[string]StrategyConfig `json:"strategies" yaml:"strategies"`
	Autonomous        AutonomousConfig          `json:"autonomous" yaml:"autonomous"`
}

const (
	StrategyDirect = "direct"
	StrategyFlood  = "flood"
)

// normalized returns a config with defaults applied. Zero-valued sections are
// replaced wholesale; partially filled node types and strategies keep their
// explicit values.
func (cfg Config) normalized() Config {
	normalized := cfg
	normalized.Seed = strings.TrimSpace(normalized.Seed)
	if normalized.Seed == "" {
		normalized.Seed = defaultWorldSeed
	}
	if normalized.Width <= 0 {
		normalized.Width = defaultWorldWidth
	}
	if normalized.Height <= 0 {
		normalized.Height = defaultWorldHeight
	}
	if normalized.TickRate <= 0 {
		normalized.TickRate = defaultTickRate
	}
	if normalized.MinSpacing <= 0 {
		normalized.MinSpacing = defaultMinSpacing
	}
	if normalized.PlacementAttempts <= 0 {
		normalized.PlacementAttempts = defaultPlacementAttempts
	}
	if len(normalized.NodeTypes) == 0 {
		normalized.NodeTypes = defaultNodeTypes()
	}
	if len(normalized.Strategies) == 0 {
		normalized.Strategies = defaultStrategies()
	}
	normalized.Autonomous = normalized.Autonomous.normalized()
	return normalized
}

func (cfg AutonomousConfig) normalized() AutonomousConfig {
	normalized := cfg
	if normalized.MinIntervalSec <= 0 {
		normalized.MinIntervalSec = 2
	}
	if normalized.MaxIntervalSec < normalized.MinIntervalSec {
		normalized.MaxIntervalSec = normalized.MinIntervalSec + 4
	}
	if normalized.BatchSize <= 0 {
		normalized.BatchSize = 2
	}
	if normalized.StaggerMillis <= 0 {
		normalized.StaggerMillis = 150
	}
	if normalized.FloodChance < 0 || normalized.FloodChance > 1 {
		normalized.FloodChance = 0.2
	}
	return normalized
}

func defaultNodeTypes() map[string]NodeTypeConfig {
	return map[string]NodeTypeConfig{
		string(NodeClient): {
			Count:         8,
			Size:          10,
			Hitbox:        12,
			Range:         170,
			RangeVariance: 30,
		},
		string(NodeRepeater): {
			Count:         3,
			Size:          13,
			Hitbox:        14,
			Range:         240,
			RangeVariance: 40,
			GridPlacement: true,
		},
	}
}

func defaultStrategies() map[string]StrategyConfig {
	return map[string]StrategyConfig{
		StrategyDirect: {
			Kind:    "unicast",
			Size:    6,
			Speed:   220,
			MaxHops: 5,
		},
		StrategyFlood: {
			Kind:        "flood",
			Speed:       160,
			FadeOpacity: 0.55,
		},
	}
}

// DefaultConfig enables every feature with the default seed.
func DefaultConfig() Config {
	return Config{}.normalized()
}
