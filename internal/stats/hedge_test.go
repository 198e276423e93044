package stats

import (
	"math"
	"testing"
)

func TestComputeHedgeRatio(t *testing.T) {
	e := testEngine()

	// var1=4, var2=1, cov=1.6 => corr=0.8, minVar ratio 1.6. At the exact
	// minimum-variance ratio the portfolio variance is var1*(1-corr^2), so
	// risk reduction equals corr^2 and efficiency is 1.
	base := CovarianceResult{
		Covariance:  1.6,
		Correlation: 0.8,
		Variance1:   4,
		Variance2:   1,
		SampleSize:  50,
		Confidence:  0.68,
	}

	t.Run("minimum variance ratio", func(t *testing.T) {
		res := e.ComputeHedgeRatio(base, 0, 0)
		if math.Abs(res.MinVarianceRatio-1.6) > 1e-12 {
			t.Errorf("min variance ratio = %.6f, want 1.6", res.MinVarianceRatio)
		}
		if math.Abs(res.OptimalRatio-1.6) > 1e-12 {
			t.Errorf("optimal ratio = %.6f, want 1.6", res.OptimalRatio)
		}
		if math.Abs(res.RiskReduction-0.64) > 1e-9 {
			t.Errorf("risk reduction = %.6f, want 0.64", res.RiskReduction)
		}
		if math.Abs(res.Efficiency-1) > 1e-9 {
			t.Errorf("efficiency = %.6f, want 1", res.Efficiency)
		}
		if res.Confidence != base.Confidence {
			t.Errorf("confidence = %.6f, want %.6f", res.Confidence, base.Confidence)
		}
	})

	t.Run("risk aversion shrinks the ratio", func(t *testing.T) {
		res := e.ComputeHedgeRatio(base, 0.75, 0)
		// 1.6 * 2*(1-0.75) = 0.8
		if math.Abs(res.OptimalRatio-0.8) > 1e-12 {
			t.Errorf("optimal ratio = %.6f, want 0.8", res.OptimalRatio)
		}
		if res.RiskReduction >= 0.64 {
			t.Errorf("off-optimum reduction %.6f should be below 0.64", res.RiskReduction)
		}
		if res.Efficiency >= 1 {
			t.Errorf("off-optimum efficiency %.6f should be below 1", res.Efficiency)
		}
	})

	t.Run("transaction costs shrink the ratio", func(t *testing.T) {
		res := e.ComputeHedgeRatio(base, 0, 0.25)
		if math.Abs(res.OptimalRatio-1.2) > 1e-12 {
			t.Errorf("optimal ratio = %.6f, want 1.2", res.OptimalRatio)
		}
	})

	t.Run("tiny ratio snaps to zero", func(t *testing.T) {
		small := CovarianceResult{Covariance: 0.005, Correlation: 0.005, Variance1: 1, Variance2: 1}
		res := e.ComputeHedgeRatio(small, 0, 0)
		if res.OptimalRatio != 0 {
			t.Errorf("optimal ratio = %.6f, want snapped to 0", res.OptimalRatio)
		}
	})

	t.Run("zero variance yields zero ratio", func(t *testing.T) {
		res := e.ComputeHedgeRatio(CovarianceResult{Covariance: 1, Variance1: 1}, 0, 0)
		if res.MinVarianceRatio != 0 || res.OptimalRatio != 0 {
			t.Errorf("ratios = (%.4f, %.4f), want both 0", res.MinVarianceRatio, res.OptimalRatio)
		}
	})
}
