// Package stats implements the covariance engine: pairwise and portfolio
// covariance, correlation, and hedge-ratio derivation from historical return
// series.
package stats

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/syntharb/syntharb/internal/domain"
)

// ReturnPair is one timestamped observation of returns for two named series.
// Pairs are input-only and owned by the caller for the duration of a single
// calculation.
type ReturnPair struct {
	Timestamp time.Time
	Return1   float64
	Return2   float64
	Series1   string
	Series2   string
	Period    string
}

// CovarianceResult holds the statistical relationship between two series.
type CovarianceResult struct {
	Covariance  float64
	Correlation float64 // -1..1; 0 when either variance is zero
	Variance1   float64
	Variance2   float64
	SampleSize  int
	StdError    float64
	Significant bool
	Confidence  float64 // 0..1
}

// EngineConfig holds the tunable defaults for the covariance engine.
type EngineConfig struct {
	MinSampleSize   int     // default 30
	ConfidenceLevel float64 // default 0.95
	DecayFactor     float64 // default 0.94, used when weighting is enabled
}

// DefaultEngineConfig returns the standard engine parameters.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MinSampleSize:   30,
		ConfidenceLevel: 0.95,
		DecayFactor:     0.94,
	}
}

// Engine computes covariance, correlation, and hedge ratios from paired
// historical return series. All operations are pure and in-memory; the engine
// is safe for concurrent use.
type Engine struct {
	cfg    EngineConfig
	logger *slog.Logger
}

// NewEngine creates an Engine with the given configuration.
func NewEngine(cfg EngineConfig, logger *slog.Logger) *Engine {
	if cfg.MinSampleSize <= 0 {
		cfg.MinSampleSize = 30
	}
	if cfg.ConfidenceLevel <= 0 || cfg.ConfidenceLevel >= 1 {
		cfg.ConfidenceLevel = 0.95
	}
	if cfg.DecayFactor <= 0 || cfg.DecayFactor >= 1 {
		cfg.DecayFactor = 0.94
	}
	return &Engine{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "covariance_engine")),
	}
}

// CovarianceOptions adjusts one computation. Zero values fall back to the
// engine defaults.
type CovarianceOptions struct {
	MinSampleSize        int
	ExponentialWeighting bool
	DecayFactor          float64
}

// ComputeCovariance derives covariance, correlation, and significance from
// the given pairs. It fails with domain.ErrInsufficientData when fewer than
// MinSampleSize pairs are supplied; missing data is never substituted with
// defaults.
func (e *Engine) ComputeCovariance(pairs []ReturnPair, opts CovarianceOptions) (CovarianceResult, error) {
	minSamples := opts.MinSampleSize
	if minSamples <= 0 {
		minSamples = e.cfg.MinSampleSize
	}
	if len(pairs) < minSamples {
		return CovarianceResult{}, fmt.Errorf(
			"stats: compute covariance: %d pairs, need %d: %w",
			len(pairs), minSamples, domain.ErrInsufficientData,
		)
	}

	n := len(pairs)
	weights := e.observationWeights(n, opts)

	var wsum, mean1, mean2 float64
	for i, p := range pairs {
		wsum += weights[i]
		mean1 += weights[i] * p.Return1
		mean2 += weights[i] * p.Return2
	}
	mean1 /= wsum
	mean2 /= wsum

	var cov, var1, var2 float64
	for i, p := range pairs {
		d1 := p.Return1 - mean1
		d2 := p.Return2 - mean2
		cov += weights[i] * d1 * d2
		var1 += weights[i] * d1 * d1
		var2 += weights[i] * d2 * d2
	}
	cov /= wsum
	var1 /= wsum
	var2 /= wsum

	corr := 0.0
	if var1 > 0 && var2 > 0 {
		corr = cov / math.Sqrt(var1*var2)
		corr = clamp(corr, -1, 1)
	}

	stdErr := math.Sqrt(var1 * var2 / float64(n-1))
	significant := math.Abs(cov) > 1.96*stdErr

	return CovarianceResult{
		Covariance:  cov,
		Correlation: corr,
		Variance1:   var1,
		Variance2:   var2,
		SampleSize:  n,
		StdError:    stdErr,
		Significant: significant,
		Confidence:  confidenceScore(corr, n),
	}, nil
}

// observationWeights returns per-pair weights: uniform by default, or
// decay^age when exponential weighting is requested (most recent pair gets
// weight 1).
func (e *Engine) observationWeights(n int, opts CovarianceOptions) []float64 {
	weights := make([]float64, n)
	if !opts.ExponentialWeighting {
		for i := range weights {
			weights[i] = 1
		}
		return weights
	}
	decay := opts.DecayFactor
	if decay <= 0 || decay >= 1 {
		decay = e.cfg.DecayFactor
	}
	for i := range weights {
		age := n - 1 - i
		weights[i] = math.Pow(decay, float64(age))
	}
	return weights
}

// confidenceScore blends correlation strength with sample-size adequacy into
// a bounded 0..1 score.
func confidenceScore(corr float64, n int) float64 {
	sizeFactor := math.Min(1, float64(n)/100.0)
	score := 0.6*math.Abs(corr) + 0.4*sizeFactor
	return clamp(score, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
