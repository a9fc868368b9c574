// Package vitals classifies vital-sign readings into severity tiers.
// All functions are pure; persistence and alerting live elsewhere.
package vitals

import (
	"fmt"
	"math"
	"strings"
)

// GlucoseTier is a named severity bucket for a glucose reading.
type GlucoseTier string

const (
	GlucoseSevereLow  GlucoseTier = "severe_low"
	GlucoseLow        GlucoseTier = "low"
	GlucoseInRange    GlucoseTier = "in_range"
	GlucoseHigh       GlucoseTier = "high"
	GlucoseSevereHigh GlucoseTier = "severe_high"
)

// GlucoseTarget is the target range selected from the reading context.
type GlucoseTarget struct {
	Low   float64
	High  float64
	Label string
}

// GlucoseClassification is the derived result for a single reading.
type GlucoseClassification struct {
	Tier        GlucoseTier   `json:"tier"`
	Target      GlucoseTarget `json:"target"`
	Judgment    string        `json:"judgment"`
	AlertWorthy bool          `json:"alert_worthy"`
}

var (
	fastingMarkers      = []string{"ayuna", "fasting", "preprandial", "antes de comer", "antes de la comida"}
	postprandialMarkers = []string{"postprandial", "después de comer", "despues de comer", "después de la comida", "despues de la comida", "after meal", "post meal"}
)

// TargetForContext selects the glucose target range from a free-text
// context tag describing when the reading was taken.
func TargetForContext(context string) GlucoseTarget {
	tag := strings.ToLower(context)

	for _, m := range fastingMarkers {
		if strings.Contains(tag, m) {
			return GlucoseTarget{Low: 80, High: 130, Label: "80-130 mg/dL (preprandial)"}
		}
	}
	for _, m := range postprandialMarkers {
		if strings.Contains(tag, m) {
			return GlucoseTarget{Low: 80, High: 180, Label: "80-180 mg/dL (postprandial)"}
		}
	}
	return GlucoseTarget{Low: 70, High: 180, Label: "70-180 mg/dL (general)"}
}

// ClassifyGlucose maps a reading in mg/dL plus an optional context tag to a
// severity tier. Precedence: severe thresholds first, then the
// context-dependent target range. Values between 70 and a higher target low
// bound fall through to the low tier.
func ClassifyGlucose(value float64, context string) (GlucoseClassification, error) {
	if math.IsNaN(value) || value <= 0 {
		return GlucoseClassification{}, fmt.Errorf("invalid glucose value %v", value)
	}

	target := TargetForContext(context)

	var tier GlucoseTier
	switch {
	case value < 54:
		tier = GlucoseSevereLow
	case value < 70:
		tier = GlucoseLow
	case value > 250:
		tier = GlucoseSevereHigh
	case value > target.High:
		tier = GlucoseHigh
	case value >= target.Low:
		tier = GlucoseInRange
	default:
		tier = GlucoseLow
	}

	return GlucoseClassification{
		Tier:        tier,
		Target:      target,
		Judgment:    glucoseJudgment(tier, value, target),
		AlertWorthy: tier != GlucoseInRange,
	}, nil
}

func glucoseJudgment(tier GlucoseTier, value float64, target GlucoseTarget) string {
	switch tier {
	case GlucoseSevereLow:
		return fmt.Sprintf("Hipoglucemia severa: %.0f mg/dL. Toma azúcar de inmediato y busca ayuda.", value)
	case GlucoseLow:
		return fmt.Sprintf("Glucosa baja: %.0f mg/dL, por debajo del rango %s.", value, target.Label)
	case GlucoseHigh:
		return fmt.Sprintf("Glucosa alta: %.0f mg/dL, por encima del rango %s.", value, target.Label)
	case GlucoseSevereHigh:
		return fmt.Sprintf("Hiperglucemia severa: %.0f mg/dL. Consulta a tu médico.", value)
	default:
		return fmt.Sprintf("Glucosa en rango: %.0f mg/dL dentro de %s. ¡Bien hecho!", value, target.Label)
	}
}

// GlucoseSample is one reading fed into aggregation.
type GlucoseSample struct {
	Value   float64
	Context string
}

// GlucoseStats summarizes a window of readings. Invalid samples (NaN or
// non-positive) are excluded, not defaulted to a tier.
type GlucoseStats struct {
	Count       int                     `json:"count"`
	Excluded    int                     `json:"excluded"`
	Mean        float64                 `json:"mean"`
	TierPercent map[GlucoseTier]float64 `json:"tier_percent"`
}

// AggregateGlucose computes the share of readings in each tier over a window.
func AggregateGlucose(samples []GlucoseSample) GlucoseStats {
	stats := GlucoseStats{TierPercent: make(map[GlucoseTier]float64)}

	counts := make(map[GlucoseTier]int)
	sum := 0.0
	for _, s := range samples {
		c, err := ClassifyGlucose(s.Value, s.Context)
		if err != nil {
			stats.Excluded++
			continue
		}
		counts[c.Tier]++
		sum += s.Value
		stats.Count++
	}

	if stats.Count == 0 {
		return stats
	}

	stats.Mean = sum / float64(stats.Count)
	for tier, n := range counts {
		stats.TierPercent[tier] = float64(n) / float64(stats.Count) * 100
	}
	return stats
}
