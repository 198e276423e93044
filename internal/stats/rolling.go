package stats

import (
	"fmt"

	"github.com/syntharb/syntharb/internal/domain"
)

// ComputeRollingCovariance slides a window of windowSize pairs over the
// series, advancing the start by stepSize each step, and returns the ordered
// windowed results. It fails with domain.ErrInsufficientData when fewer than
// windowSize pairs are supplied.
func (e *Engine) ComputeRollingCovariance(pairs []ReturnPair, windowSize, stepSize int) ([]CovarianceResult, error) {
	if windowSize <= 1 {
		return nil, fmt.Errorf("stats: rolling covariance: window size %d must be > 1: %w", windowSize, domain.ErrValidation)
	}
	if stepSize <= 0 {
		stepSize = 1
	}
	if len(pairs) < windowSize {
		return nil, fmt.Errorf(
			"stats: rolling covariance: %d pairs, window %d: %w",
			len(pairs), windowSize, domain.ErrInsufficientData,
		)
	}

	var results []CovarianceResult
	for start := 0; start+windowSize <= len(pairs); start += stepSize {
		window := pairs[start : start+windowSize]
		res, err := e.ComputeCovariance(window, CovarianceOptions{MinSampleSize: windowSize})
		if err != nil {
			return nil, fmt.Errorf("stats: rolling covariance at offset %d: %w", start, err)
		}
		results = append(results, res)
	}
	return results, nil
}
