package domain

import (
	"math"
	"time"
)

const (
	// MinSampleSize is the number of subjects both arms need before a
	// comparison is attempted.
	MinSampleSize = 30

	// SignificanceZ is the two-tailed 95% threshold.
	SignificanceZ = 1.96

	// MaxConfidence caps the reported confidence percentage.
	MaxConfidence = 99
)

// VariantResult holds the aggregated outcome of one variant.
type VariantResult struct {
	VariantID      string  `json:"variant_id"`
	Users          int64   `json:"users"`
	Conversions    int64   `json:"conversions"`
	ConversionRate float64 `json:"conversion_rate"`
	ZScore         float64 `json:"z_score"`
	Confidence     int     `json:"confidence"`
	Significant    bool    `json:"significant"`
	Lift           float64 `json:"lift"`
	TotalValue     float64 `json:"total_value"`
	AverageValue   float64 `json:"average_value"`
}

// Analysis is the derived result set of an experiment. It is never persisted.
type Analysis struct {
	ExperimentID   string          `json:"experiment_id"`
	ExperimentName string          `json:"experiment_name"`
	Status         Status          `json:"status"`
	ControlVariant string          `json:"control_variant"`
	StartDate      *time.Time      `json:"start_date,omitempty"`
	DaysRunning    int             `json:"days_running"`
	TotalUsers     int64           `json:"total_users"`
	Results        []VariantResult `json:"results"`
	HasWinner      bool            `json:"has_winner"`
}

// ControlVariant returns the id of the control arm: the "control" variant
// when declared, otherwise the first declared variant.
func (e *Experiment) ControlVariant() string {
	if e.HasVariant(ControlVariantID) {
		return ControlVariantID
	}
	if len(e.Variants) > 0 {
		return e.Variants[0].ID
	}
	return ControlVariantID
}

type tally struct {
	users       int64
	conversions int64
	value       float64
	valued      int64
}

// Analyze aggregates assignments per variant and compares every non-control
// variant against the control arm with a pooled two-proportion z-test.
// Declared variants are reported in declaration order, followed by any
// variant ids found only in the assignments.
func Analyze(e *Experiment, assignments []Assignment, now time.Time) Analysis {
	tallies := make(map[string]*tally, len(e.Variants))
	order := make([]string, 0, len(e.Variants))
	for _, v := range e.Variants {
		if _, ok := tallies[v.ID]; ok {
			continue
		}
		tallies[v.ID] = &tally{}
		order = append(order, v.ID)
	}

	for _, a := range assignments {
		t, ok := tallies[a.VariantID]
		if !ok {
			t = &tally{}
			tallies[a.VariantID] = t
			order = append(order, a.VariantID)
		}
		t.users++
		if a.Converted {
			t.conversions++
			if a.ConversionValue != nil {
				t.value += *a.ConversionValue
				t.valued++
			}
		}
	}

	analysis := Analysis{
		ExperimentID:   e.ID,
		ExperimentName: e.Name,
		Status:         e.Status,
		ControlVariant: e.ControlVariant(),
		StartDate:      e.StartDate,
		DaysRunning:    e.DaysRunning(now),
		TotalUsers:     int64(len(assignments)),
		Results:        make([]VariantResult, 0, len(order)),
	}

	control := tallies[analysis.ControlVariant]
	if control == nil {
		control = &tally{}
	}
	controlRate := conversionRate(control.conversions, control.users)

	for _, id := range order {
		t := tallies[id]
		r := VariantResult{
			VariantID:      id,
			Users:          t.users,
			Conversions:    t.conversions,
			ConversionRate: conversionRate(t.conversions, t.users),
			TotalValue:     round2(t.value),
		}
		if t.valued > 0 {
			r.AverageValue = round2(t.value / float64(t.valued))
		}

		if id != analysis.ControlVariant {
			if controlRate > 0 {
				r.Lift = round2((r.ConversionRate - controlRate) / controlRate * 100)
			}
			if control.users >= MinSampleSize && t.users >= MinSampleSize {
				z := TwoProportionZ(control.conversions, control.users, t.conversions, t.users)
				r.ZScore = round2(z)
				r.Confidence = Confidence(z)
				r.Significant = math.Abs(z) >= SignificanceZ
			}
			if r.Significant && r.ConversionRate > controlRate {
				analysis.HasWinner = true
			}
		}

		analysis.Results = append(analysis.Results, r)
	}

	return analysis
}

// TwoProportionZ returns the pooled two-proportion z-score of the variant
// against the control. It is 0 when the standard error vanishes.
func TwoProportionZ(controlConversions, controlUsers, variantConversions, variantUsers int64) float64 {
	if controlUsers == 0 || variantUsers == 0 {
		return 0
	}
	nc := float64(controlUsers)
	nv := float64(variantUsers)
	pc := float64(controlConversions) / nc
	pv := float64(variantConversions) / nv

	pooled := float64(controlConversions+variantConversions) / (nc + nv)
	se := math.Sqrt(pooled * (1 - pooled) * (1/nc + 1/nv))
	if se == 0 {
		return 0
	}
	return (pv - pc) / se
}

// Confidence converts a z-score into a two-tailed confidence percentage,
// capped at MaxConfidence.
func Confidence(z float64) int {
	c := int(math.Round((1 - 2*(1-NormalCDF(math.Abs(z)))) * 100))
	if c > MaxConfidence {
		return MaxConfidence
	}
	if c < 0 {
		return 0
	}
	return c
}

// Abramowitz & Stegun 7.1.26 coefficients for erf, |error| <= 1.5e-7.
const (
	asP  = 0.3275911
	asA1 = 0.254829592
	asA2 = -0.284496736
	asA3 = 1.421413741
	asA4 = -1.453152027
	asA5 = 1.061405429
)

// NormalCDF approximates the standard normal cumulative distribution
// function through the Abramowitz & Stegun rational approximation of erf.
func NormalCDF(x float64) float64 {
	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	ax := math.Abs(x) / math.Sqrt2

	t := 1 / (1 + asP*ax)
	poly := ((((asA5*t+asA4)*t+asA3)*t+asA2)*t + asA1) * t
	erf := 1 - poly*math.Exp(-ax*ax)

	return 0.5 * (1 + sign*erf)
}

func conversionRate(conversions, users int64) float64 {
	if users == 0 {
		return 0
	}
	return round2(float64(conversions) / float64(users) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
