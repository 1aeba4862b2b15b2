package calculator

import "math"

// Rolling-window primitives over ordered series. A window only produces a
// value once it is completely filled with non-NaN inputs; everything before
// that is NaN. Comparisons against NaN are false, so warmup rows drop out of
// downstream filters on their own.

func nans(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// Shift returns the series moved forward by n positions, with a NaN head.
func Shift(xs []float64, n int) []float64 {
	out := nans(len(xs))
	if n < 0 {
		return out
	}
	for i := n; i < len(xs); i++ {
		out[i] = xs[i-n]
	}
	return out
}

// PctChange returns the percentage rate of change against the value n
// positions back: (x[i]/x[i-n] - 1) * 100.
func PctChange(xs []float64, n int) []float64 {
	out := nans(len(xs))
	if n <= 0 {
		return out
	}
	for i := n; i < len(xs); i++ {
		if xs[i-n] == 0 {
			continue
		}
		out[i] = (xs[i]/xs[i-n] - 1) * 100
	}
	return out
}

// RollingMean returns the mean over a trailing window of the given size.
func RollingMean(xs []float64, window int) []float64 {
	return roll(xs, window, func(win []float64) float64 {
		sum := 0.0
		for _, v := range win {
			sum += v
		}
		return sum / float64(len(win))
	})
}

// RollingMax returns the maximum over a trailing window of the given size.
func RollingMax(xs []float64, window int) []float64 {
	return roll(xs, window, func(win []float64) float64 {
		m := win[0]
		for _, v := range win[1:] {
			if v > m {
				m = v
			}
		}
		return m
	})
}

// RollingMin returns the minimum over a trailing window of the given size.
func RollingMin(xs []float64, window int) []float64 {
	return roll(xs, window, func(win []float64) float64 {
		m := win[0]
		for _, v := range win[1:] {
			if v < m {
				m = v
			}
		}
		return m
	})
}

func roll(xs []float64, window int, agg func([]float64) float64) []float64 {
	out := nans(len(xs))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(xs); i++ {
		win := xs[i-window+1 : i+1]
		ok := true
		for _, v := range win {
			if math.IsNaN(v) {
				ok = false
				break
			}
		}
		if ok {
			out[i] = agg(win)
		}
	}
	return out
}
