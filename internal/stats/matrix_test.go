package stats

import (
	"errors"
	"math"
	"testing"

	"github.com/syntharb/syntharb/internal/domain"
)

func linearSeries(n int, slope, offset float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = slope*math.Sin(float64(i))*0.02 + offset
	}
	return out
}

func TestComputePortfolioMatrix(t *testing.T) {
	e := testEngine()

	t.Run("correlated pair", func(t *testing.T) {
		series := map[string][]float64{
			"nba:lakers":  linearSeries(40, 1.0, 0),
			"nba:celtics": linearSeries(40, 2.0, 0.01),
		}
		pm, err := e.ComputePortfolioMatrix(series, 30)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pm.Names) != 2 || pm.Names[0] != "nba:celtics" || pm.Names[1] != "nba:lakers" {
			t.Fatalf("names = %v, want sorted [nba:celtics nba:lakers]", pm.Names)
		}
		if math.Abs(pm.Correlation[0][1]-1) > 1e-9 {
			t.Errorf("off-diagonal correlation = %.6f, want 1", pm.Correlation[0][1])
		}
		for i := 0; i < 2; i++ {
			if math.Abs(pm.Correlation[i][i]-1) > 1e-9 {
				t.Errorf("diagonal correlation[%d][%d] = %.6f, want 1", i, i, pm.Correlation[i][i])
			}
			for j := 0; j < 2; j++ {
				if pm.Covariance[i][j] != pm.Covariance[j][i] {
					t.Errorf("covariance not symmetric at (%d,%d)", i, j)
				}
			}
		}
		// Eigenvalue sum equals the trace of the covariance matrix.
		trace := pm.Covariance[0][0] + pm.Covariance[1][1]
		var eigSum float64
		for _, v := range pm.Eigenvalues {
			eigSum += v
		}
		if math.Abs(eigSum-trace) > 1e-9 {
			t.Errorf("eigenvalue sum %.9f != trace %.9f", eigSum, trace)
		}
		if pm.SampleSize != 40 {
			t.Errorf("sample size = %d, want 40", pm.SampleSize)
		}
	})

	t.Run("needs two series", func(t *testing.T) {
		_, err := e.ComputePortfolioMatrix(map[string][]float64{"only": linearSeries(40, 1, 0)}, 30)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("err = %v, want ErrValidation", err)
		}
	})

	t.Run("unequal lengths", func(t *testing.T) {
		series := map[string][]float64{
			"a": linearSeries(40, 1, 0),
			"b": linearSeries(39, 1, 0),
		}
		_, err := e.ComputePortfolioMatrix(series, 30)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("err = %v, want ErrValidation", err)
		}
	})

	t.Run("too few points", func(t *testing.T) {
		series := map[string][]float64{
			"a": linearSeries(10, 1, 0),
			"b": linearSeries(10, 2, 0),
		}
		_, err := e.ComputePortfolioMatrix(series, 30)
		if !errors.Is(err, domain.ErrInsufficientData) {
			t.Fatalf("err = %v, want ErrInsufficientData", err)
		}
	})
}
