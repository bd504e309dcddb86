package indicator

// Levels are naive support/resistance levels over a window.
type Levels struct {
	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`
}

// SupportResistance returns the minimum low and maximum high. The caller's
// window length is the lookback. Empty inputs leave the level at 0.
func SupportResistance(lows, highs []float64) Levels {
	var lv Levels
	for i, l := range lows {
		if i == 0 || l < lv.Support {
			lv.Support = l
		}
	}
	for i, h := range highs {
		if i == 0 || h > lv.Resistance {
			lv.Resistance = h
		}
	}
	return lv
}
