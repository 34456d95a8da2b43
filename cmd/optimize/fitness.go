package main

import (
	"math"
	"sync"
	"time"

	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/game"
	"github.com/pthm-cable/slime/telemetry"
)

// FitnessEvaluator runs headless simulations and scores the final trail.
type FitnessEvaluator struct {
	params         *ParamVector
	configPath     string
	frames         int
	seeds          []int64
	targetCoverage float64
	timeout        time.Duration

	// Best run tracking
	mu          sync.Mutex
	bestFitness float64
	bestStats   *telemetry.FrameStats
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator. Every run loads a fresh
// config from configPath.
func NewFitnessEvaluator(params *ParamVector, configPath string, frames int, seeds []int64, targetCoverage float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:         params,
		configPath:     configPath,
		frames:         frames,
		seeds:          seeds,
		targetCoverage: targetCoverage,
		timeout:        time.Minute,
		bestFitness:    math.Inf(1),
	}
}

// BestStats returns the trail stats of the best evaluation's best seed.
func (fe *FitnessEvaluator) BestStats() *telemetry.FrameStats {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestStats
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	quality float64
	stats   *telemetry.FrameStats
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is the negated mean quality over all seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			stats, err := fe.runSimulation(x, s)
			if err != nil {
				// Failed runs score zero
				return
			}
			results[idx] = seedResult{quality: fe.computeQuality(stats), stats: stats}
		}(i, seed)
	}
	wg.Wait()

	var totalQuality float64
	bestSeed := -1.0
	var bestSeedStats *telemetry.FrameStats
	for _, r := range results {
		totalQuality += r.quality
		if r.stats != nil && r.quality > bestSeed {
			bestSeed = r.quality
			bestSeedStats = r.stats
		}
	}

	quality := totalQuality / float64(len(fe.seeds))
	fitness := -quality

	fe.mu.Lock()
	if fitness < fe.bestFitness {
		fe.bestFitness = fitness
		fe.bestStats = bestSeedStats
	}
	fe.lastQuality = quality
	fe.mu.Unlock()

	return fitness
}

// runSimulation executes a single headless run and returns the stats of
// the trail after the configured number of swapped frames.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) (*telemetry.FrameStats, error) {
	cfg, err := config.Load(fe.configPath)
	if err != nil {
		return nil, err
	}
	if err := fe.params.ApplyToConfig(cfg, x); err != nil {
		return nil, err
	}

	g, err := game.NewGameWithOptions(game.Options{
		Seed:           seed,
		Headless:       true,
		StepsPerUpdate: 1,
		Config:         cfg,
	})
	if err != nil {
		return nil, err
	}
	defer g.Unload()

	if err := g.RunSwapped(fe.frames, fe.timeout); err != nil {
		return nil, err
	}
	stats, err := g.TrailStats()
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// Quality component weights.
const (
	qualityWeightCoverage = 0.6
	qualityWeightContrast = 0.4

	coverageTolerance = 0.15
	contrastTarget    = 0.3 // luminance std treated as fully contrasted
)

// computeQuality scores a trail in [0, 1]: coverage close to the target
// and a high luminance spread (networks rather than uniform haze).
func (fe *FitnessEvaluator) computeQuality(s *telemetry.FrameStats) float64 {
	covErr := (s.Coverage - fe.targetCoverage) / coverageTolerance
	coverageScore := math.Exp(-covErr * covErr)
	contrastScore := clamp01(s.LumStd / contrastTarget)

	return clamp01(qualityWeightCoverage*coverageScore + qualityWeightContrast*contrastScore)
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
