package calculator

// EMA returns the exponential moving average with alpha = 2/(span+1),
// seeded with the first value (recursive form, no adjustment).
func EMA(xs []float64, span int) []float64 {
	out := nans(len(xs))
	if span <= 0 || len(xs) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = alpha*xs[i] + (1-alpha)*out[i-1]
	}
	return out
}

// MACD returns the 12/26 MACD line, its 9-period EMA signal line, and the
// histogram (line minus signal).
func MACD(closes []float64) (line, signal, hist []float64) {
	ema12 := EMA(closes, 12)
	ema26 := EMA(closes, 26)
	line = make([]float64, len(closes))
	for i := range closes {
		line[i] = ema12[i] - ema26[i]
	}
	signal = EMA(line, 9)
	hist = make([]float64, len(closes))
	for i := range closes {
		hist[i] = line[i] - signal[i]
	}
	return line, signal, hist
}
