package indicator

// rsiState is a running RSI using Wilder's smoothing method.
type rsiState struct {
	period    int
	count     int
	prevClose float64
	avgGain   float64
	avgLoss   float64
}

func (r *rsiState) update(price float64) {
	r.count++

	if r.count == 1 {
		// First price, no delta yet
		r.prevClose = price
		return
	}

	delta := price - r.prevClose
	r.prevClose = price

	gain := 0.0
	loss := 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	if r.count <= r.period+1 {
		// Accumulation phase: simple average over the first period deltas
		r.avgGain += gain
		r.avgLoss += loss
		if r.count == r.period+1 {
			r.avgGain /= float64(r.period)
			r.avgLoss /= float64(r.period)
		}
		return
	}

	// Wilder's smoothing: avg = (prevAvg * (period-1) + current) / period
	p := float64(r.period)
	r.avgGain = (r.avgGain*(p-1) + gain) / p
	r.avgLoss = (r.avgLoss*(p-1) + loss) / p
}

func (r *rsiState) value() float64 {
	if r.avgLoss == 0 {
		return 100.0
	}
	rs := r.avgGain / r.avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

// RSI returns the relative strength index of the final price.
//
// Series with no more than period prices yield NeutralRSI. A window without
// any loss yields 100.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) <= period {
		return NeutralRSI
	}

	r := &rsiState{period: period}
	for _, p := range prices {
		r.update(p)
	}
	return r.value()
}
