package indicator

// emaState is a running EMA. O(1) per update, no window storage.
type emaState struct {
	period     int
	multiplier float64
	current    float64
	count      int
	sum        float64
}

func newEMAState(period int) *emaState {
	return &emaState{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

// update feeds one price and reports whether the EMA is seeded.
func (e *emaState) update(price float64) bool {
	e.count++

	if e.count <= e.period {
		// Accumulate for initial SMA seed
		e.sum += price
		if e.count == e.period {
			e.current = e.sum / float64(e.period)
		}
		return e.count == e.period
	}

	// EMA = (Price * multiplier) + (EMA_prev * (1 - multiplier))
	e.current = (price * e.multiplier) + (e.current * (1 - e.multiplier))
	return true
}

// EMA returns the exponential moving average series of prices.
//
// The first value is the simple average of the first period prices; every
// later value is price*k + prev*(1-k) with k = 2/(period+1). The result has
// len(prices)-period+1 elements, or none when len(prices) < period.
func EMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}

	e := newEMAState(period)
	out := make([]float64, 0, len(prices)-period+1)
	for _, p := range prices {
		if e.update(p) {
			out = append(out, e.current)
		}
	}
	return out
}

// LastEMA returns the final EMA value, or 0 when the series is too short.
func LastEMA(prices []float64, period int) float64 {
	line := EMA(prices, period)
	if len(line) == 0 {
		return 0
	}
	return line[len(line)-1]
}
