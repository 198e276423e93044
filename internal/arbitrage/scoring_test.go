package arbitrage

import (
	"testing"
	"time"

	"github.com/syntharb/syntharb/internal/domain"
)

func TestScoreConfidence(t *testing.T) {
	d := testDetector()

	t.Run("deep fresh legs keep the base score", func(t *testing.T) {
		legs := []domain.MarketLeg{
			leg("venue-a", 105, 80_000),
			leg("venue-b", -104, 90_000),
		}
		got := d.scoreConfidence(legs)
		if got != 0.8 {
			t.Errorf("confidence = %.4f, want base 0.8", got)
		}
	})

	t.Run("thin volume is penalised", func(t *testing.T) {
		legs := []domain.MarketLeg{
			leg("venue-a", 105, 5_000),
			leg("venue-b", -104, 5_000),
		}
		got := d.scoreConfidence(legs)
		if got >= 0.8 {
			t.Errorf("confidence = %.4f, want below the base for thin legs", got)
		}
	})

	t.Run("sharp books raise confidence with a cap", func(t *testing.T) {
		legs := []domain.MarketLeg{
			leg("venue-a", 105, 80_000),
			leg("venue-b", -104, 90_000),
			leg("venue-c", 250, 70_000),
		}
		for i := range legs {
			legs[i].Sharp = true
		}
		got := d.scoreConfidence(legs)
		// base 0.8 + capped 0.20 sharp bonus
		if got != 0.99 {
			t.Errorf("confidence = %.4f, want 0.99 (clamped)", got)
		}
	})

	t.Run("stale quotes are penalised", func(t *testing.T) {
		stale := leg("venue-a", 105, 80_000)
		stale.UpdatedAt = fixedNow.Add(-10 * time.Minute)
		fresh := leg("venue-b", -104, 90_000)
		got := d.scoreConfidence([]domain.MarketLeg{stale, fresh})
		if got >= 0.8 {
			t.Errorf("confidence = %.4f, want below the base for stale data", got)
		}
	})

	t.Run("never leaves the clamp band", func(t *testing.T) {
		awful := leg("venue-a", 105, 100)
		awful.UpdatedAt = fixedNow.Add(-time.Hour)
		got := d.scoreConfidence([]domain.MarketLeg{awful})
		if got < 0.05 || got > 0.99 {
			t.Errorf("confidence = %.4f outside [0.05, 0.99]", got)
		}
	})
}

func TestScoreRisk(t *testing.T) {
	d := testDetector()

	t.Run("equal volumes score zero risk", func(t *testing.T) {
		legs := []domain.MarketLeg{
			leg("venue-a", 105, 50_000),
			leg("venue-b", -104, 50_000),
		}
		risk := d.scoreRisk(legs)
		if risk.Score != 0 {
			t.Errorf("risk score = %.4f, want 0 for equal volumes", risk.Score)
		}
		if risk.MaxDrawdown != 0 {
			t.Errorf("max drawdown = %.4f, want 0", risk.MaxDrawdown)
		}
	})

	t.Run("lopsided volumes raise risk", func(t *testing.T) {
		legs := []domain.MarketLeg{
			leg("venue-a", 105, 100_000),
			leg("venue-b", -104, 1_000),
		}
		risk := d.scoreRisk(legs)
		if risk.Score <= 0.3 {
			t.Errorf("risk score = %.4f, want well above 0.3 for a 100:1 disparity", risk.Score)
		}
		if risk.Score < 0 || risk.Score > 1 {
			t.Errorf("risk score %.4f out of [0, 1]", risk.Score)
		}
		if risk.MaxDrawdown != 0.5*risk.Score {
			t.Errorf("max drawdown = %.4f, want half the score", risk.MaxDrawdown)
		}
	})

	t.Run("no legs is maximum risk", func(t *testing.T) {
		risk := d.scoreRisk(nil)
		if risk.Score != 1 {
			t.Errorf("risk score = %.4f, want 1", risk.Score)
		}
	})
}
