package domain

// Admit applies the traffic gate: draw is uniform in [0,1) and the subject
// is admitted when draw <= trafficPercentage/100. A zero percentage admits
// nobody.
func Admit(trafficPercentage int, draw float64) bool {
	if trafficPercentage <= 0 {
		return false
	}
	return draw <= float64(trafficPercentage)/100
}

// PickVariant walks the variants accumulating weights and returns the first
// one whose cumulative weight meets or exceeds draw scaled to the weight sum.
// Zero-weight variants are never picked. If nothing is selected the first
// declared variant is returned.
func PickVariant(variants []Variant, draw float64) string {
	if len(variants) == 0 {
		return ControlVariantID
	}

	total := 0
	for _, v := range variants {
		total += v.Weight
	}
	if total <= 0 {
		return variants[0].ID
	}

	target := draw * float64(total)
	cumulative := 0
	for _, v := range variants {
		if v.Weight <= 0 {
			continue
		}
		cumulative += v.Weight
		if float64(cumulative) >= target {
			return v.ID
		}
	}

	return variants[0].ID
}
