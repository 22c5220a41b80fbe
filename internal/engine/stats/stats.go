package stats

import (
	"math"
	"sort"
)

// Undefined marks positions in a rolling series where the window is not yet
// full or the statistic is degenerate. Callers treat it as "no value", never
// let it reach an output series.
var Undefined = math.NaN()

// IsUndef reports whether v is the undefined marker.
func IsUndef(v float64) bool { return math.IsNaN(v) }

// Mean computes the arithmetic mean. Empty input yields 0.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}

// Std computes the sample standard deviation (n-1 denominator).
// Fewer than two observations yield 0.
func Std(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	m := Mean(xs)
	sum2 := 0.0
	for _, v := range xs {
		d := v - m
		sum2 += d * d
	}
	variance := sum2 / float64(n-1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// Pearson computes the Pearson correlation of two equal-length series.
// Degenerate inputs (short or zero-variance) yield 0.
func Pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || len(ys) != n {
		return 0
	}
	mx := Mean(xs)
	my := Mean(ys)
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx := xs[i] - mx
		dy := ys[i] - my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx <= 0 || syy <= 0 {
		return 0
	}
	return sxy / math.Sqrt(sxx*syy)
}

// OLS fits y = slope*x + intercept by least squares.
// Zero-variance x yields slope 0, intercept mean(y).
func OLS(xs, ys []float64) (slope, intercept float64) {
	n := len(xs)
	if n == 0 || len(ys) != n {
		return 0, 0
	}
	mx := Mean(xs)
	my := Mean(ys)
	var sxy, sxx float64
	for i := 0; i < n; i++ {
		dx := xs[i] - mx
		sxy += dx * (ys[i] - my)
		sxx += dx * dx
	}
	if sxx <= 0 {
		return 0, my
	}
	slope = sxy / sxx
	intercept = my - slope*mx
	return slope, intercept
}

// RollingMean computes a trailing-window mean series aligned to xs.
// Entries before the window is full are Undefined.
func RollingMean(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	if window <= 0 {
		for i := range out {
			out[i] = Undefined
		}
		return out
	}
	sum := 0.0
	for i := range xs {
		sum += xs[i]
		if i >= window {
			sum -= xs[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		} else {
			out[i] = Undefined
		}
	}
	return out
}

// RollingStd computes a trailing-window sample std series aligned to xs.
// Entries before the window is full are Undefined.
func RollingStd(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		if window < 2 || i < window-1 {
			out[i] = Undefined
			continue
		}
		out[i] = Std(xs[i-window+1 : i+1])
	}
	return out
}

// RollingSum computes a trailing-window sum series aligned to xs.
// Entries before the window is full are Undefined.
func RollingSum(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	sum := 0.0
	for i := range xs {
		sum += xs[i]
		if i >= window {
			sum -= xs[i-window]
		}
		if i >= window-1 && window > 0 {
			out[i] = sum
		} else {
			out[i] = Undefined
		}
	}
	return out
}

// RollingCorr computes a trailing-window Pearson correlation series of two
// aligned inputs. Entries before the window is full, or where either window
// has zero variance, are Undefined.
func RollingCorr(xs, ys []float64, window int) []float64 {
	n := len(xs)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if window < 2 || i < window-1 || len(ys) != n {
			out[i] = Undefined
			continue
		}
		wx := xs[i-window+1 : i+1]
		wy := ys[i-window+1 : i+1]
		if Std(wx) == 0 || Std(wy) == 0 {
			out[i] = Undefined
			continue
		}
		out[i] = Pearson(wx, wy)
	}
	return out
}

// Quantile computes the q-quantile of xs with linear interpolation between
// order statistics. Empty input yields 0.
func Quantile(xs []float64, q float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	if q <= 0 {
		q = 0
	}
	if q >= 1 {
		q = 1
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ExpandingQuantile computes, per index i, the q-quantile of xs[:i+1],
// skipping Undefined entries. Positions with fewer than minPeriods defined
// observations are Undefined.
func ExpandingQuantile(xs []float64, q float64, minPeriods int) []float64 {
	out := make([]float64, len(xs))
	defined := make([]float64, 0, len(xs))
	for i, v := range xs {
		if !IsUndef(v) {
			defined = append(defined, v)
		}
		if len(defined) < minPeriods || len(defined) == 0 {
			out[i] = Undefined
			continue
		}
		out[i] = Quantile(defined, q)
	}
	return out
}

// Clip bounds x to [lo, hi].
func Clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Diff returns xs[i] - xs[i-1] for i >= 1 (length len(xs)-1).
func Diff(xs []float64) []float64 {
	if len(xs) < 2 {
		return nil
	}
	out := make([]float64, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		out[i-1] = xs[i] - xs[i-1]
	}
	return out
}

// HalfLife estimates the mean-reversion half-life of a spread in bars via an
// AR(1) fit of the spread's first difference on its lag. A non-reverting fit
// or fewer than minObs observations yields fallback.
func HalfLife(spread []float64, minObs int, fallback float64) float64 {
	if len(spread) < minObs {
		return fallback
	}
	n := len(spread)
	lag := spread[:n-1]
	delta := Diff(spread)
	theta, _ := OLS(lag, delta)
	if theta >= 0 {
		// no mean reversion
		return fallback
	}
	hl := -math.Ln2 / theta
	if math.IsNaN(hl) || math.IsInf(hl, 0) || hl <= 0 {
		return fallback
	}
	return hl
}
