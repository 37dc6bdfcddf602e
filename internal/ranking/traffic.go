package ranking

// Organic click-through rate by position for the first page.
var firstPageCTR = [...]float64{0.284, 0.157, 0.110, 0.080, 0.072, 0.051, 0.040, 0.032, 0.028, 0.025}

const (
	secondPageCTR = 0.010
	deepPageCTR   = 0.002
)

// EstimateTraffic derives monthly visits from position and search volume.
// Position 0 (not ranked) yields no traffic.
func EstimateTraffic(position, searchVolume int) float64 {
	if position <= 0 || searchVolume <= 0 {
		return 0
	}

	var ctr float64
	switch {
	case position <= len(firstPageCTR):
		ctr = firstPageCTR[position-1]
	case position <= 20:
		ctr = secondPageCTR
	default:
		ctr = deepPageCTR
	}

	return float64(searchVolume) * ctr
}
