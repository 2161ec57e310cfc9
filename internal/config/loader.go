package config

import (
	"context"
	"errors"
	"math"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if RAINSTREAM_CONFIG is set
//  3. env (prefix RAINSTREAM_)
//
// After layering, every numeric knob is clamped to its valid range.
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("RAINSTREAM_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: RAINSTREAM_SENSITIVITY, RAINSTREAM_MERGE_RADIUS, ...
	// Keys map to the koanf tags on the struct, underscores preserved.
	envProvider := env.Provider("RAINSTREAM_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "rainstream_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}

	cfg.Clamp()
	return &cfg, nil
}

// Clamp forces every numeric field into its documented range. NaN or
// otherwise malformed values fall back to the default rather than
// propagating into geometry math.
func (c *Config) Clamp() {
	def := New()

	c.Sensitivity = clampFloat(c.Sensitivity, 0, 1, def.Sensitivity)
	c.BlurRadius = clampFloat(c.BlurRadius, 0, 50, def.BlurRadius)
	c.GradientThreshold = clampFloat(c.GradientThreshold, 0, 1, def.GradientThreshold)
	c.HoughVoteThreshold = clampFloat(c.HoughVoteThreshold, 0, 1, def.HoughVoteThreshold)
	c.HueMin = clampFloat(c.HueMin, 0, 360, def.HueMin)
	c.HueMax = clampFloat(c.HueMax, 0, 360, def.HueMax)
	c.MergeRadius = clampFloat(c.MergeRadius, 1, 1000, def.MergeRadius)
	c.MaxClusterRadius = clampFloat(c.MaxClusterRadius, 1, 1000, def.MaxClusterRadius)
	c.HighClustering = clampFloat(c.HighClustering, 0, 1, def.HighClustering)
	c.LowClustering = clampFloat(c.LowClustering, 0, 1, def.LowClustering)
	c.PromoteThreshold = clampFloat(c.PromoteThreshold, 0, 1, def.PromoteThreshold)
	c.DemoteThreshold = clampFloat(c.DemoteThreshold, 0, 1, def.DemoteThreshold)

	c.FrameWidth = clampInt(c.FrameWidth, 16, 8192)
	c.FrameHeight = clampInt(c.FrameHeight, 16, 8192)
	c.TickIntervalMS = clampInt(c.TickIntervalMS, 1, 10_000)
	c.MinClusterSize = clampInt(c.MinClusterSize, 1, 100_000)
	c.MinArea = clampInt(c.MinArea, 1, 1_000_000)
	c.MaxArea = clampInt(c.MaxArea, c.MinArea, 10_000_000)
	c.DetectorTimeoutMS = clampInt(c.DetectorTimeoutMS, 1, 60_000)
	c.BucketCols = clampInt(c.BucketCols, 1, 64)
	c.BucketRows = clampInt(c.BucketRows, 1, 64)
	c.IsolatedMax = clampInt(c.IsolatedMax, 1, 1_000_000)
	c.SparseMax = clampInt(c.SparseMax, c.IsolatedMax, 1_000_000)
	c.ScatteredMax = clampInt(c.ScatteredMax, c.SparseMax, 1_000_000)
	c.ClusteredMax = clampInt(c.ClusteredMax, c.ScatteredMax, 1_000_000)
	c.DenseMax = clampInt(c.DenseMax, c.ClusteredMax, 1_000_000)
	c.RoundDurationSec = clampInt(c.RoundDurationSec, 1, 86_400)
	c.MatchWindowMS = clampInt(c.MatchWindowMS, 1, 60_000)
	c.ClickQueueSize = clampInt(c.ClickQueueSize, 1, 1_000_000)

	if len(c.HoughRadii) == 0 {
		c.HoughRadii = append([]int(nil), def.HoughRadii...)
	}
	for i, r := range c.HoughRadii {
		c.HoughRadii[i] = clampInt(r, 2, 512)
	}

	switch strings.ToLower(c.Difficulty) {
	case "easy", "medium", "hard":
		c.Difficulty = strings.ToLower(c.Difficulty)
	default:
		c.Difficulty = def.Difficulty
	}

	if c.AIRates == nil {
		c.AIRates = map[string]float64{}
	}
	for level, rate := range def.AIRates {
		v, ok := c.AIRates[level]
		if !ok {
			c.AIRates[level] = rate
			continue
		}
		c.AIRates[level] = clampFloat(v, 0, 1, rate)
	}
}

func clampFloat(v, lo, hi, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
