package stats

import (
	"fmt"
	"math"
)

// ADFResult holds the outcome of an Augmented Dickey-Fuller test.
type ADFResult struct {
	Stat   float64 // tau statistic on the lagged level
	PValue float64
	Lags   int // augmentation lags chosen by AIC
	NObs   int // effective observations in the regression
}

// ADF runs an Augmented Dickey-Fuller unit-root test with a constant term.
// The augmentation lag order is chosen by minimizing AIC over 0..maxLag,
// where maxLag follows the Schwert rule when <= 0 is passed. The p-value is
// the MacKinnon (1994) approximation for the constant-only case.
func ADF(series []float64, maxLag int) (ADFResult, error) {
	n := len(series)
	if n < 10 {
		return ADFResult{}, fmt.Errorf("adf: need at least 10 observations, got %d", n)
	}
	if maxLag <= 0 {
		maxLag = int(math.Floor(12 * math.Pow(float64(n)/100, 0.25)))
	}
	if maxLag > n/2-2 {
		maxLag = n/2 - 2
	}
	if maxLag < 0 {
		maxLag = 0
	}

	delta := Diff(series)

	bestAIC := math.Inf(1)
	best := ADFResult{}
	found := false
	for p := 0; p <= maxLag; p++ {
		stat, nobs, aic, err := adfRegression(series, delta, p)
		if err != nil {
			continue
		}
		if aic < bestAIC {
			bestAIC = aic
			best = ADFResult{Stat: stat, Lags: p, NObs: nobs}
			found = true
		}
	}
	if !found {
		return ADFResult{}, fmt.Errorf("adf: singular regression for all lag orders")
	}
	best.PValue = mackinnonP(best.Stat)
	return best, nil
}

// adfRegression fits delta_t = a + g*y_{t-1} + sum_i phi_i*delta_{t-i} and
// returns the t-statistic of g plus the model AIC.
func adfRegression(series, delta []float64, lags int) (tstat float64, nobs int, aic float64, err error) {
	// usable rows: delta index runs from `lags` to len(delta)-1
	nobs = len(delta) - lags
	k := lags + 2 // constant + level + lag terms
	if nobs <= k+1 {
		return 0, 0, 0, fmt.Errorf("adf: insufficient observations for %d lags", lags)
	}

	y := make([]float64, nobs)
	x := make([][]float64, nobs)
	for i := 0; i < nobs; i++ {
		t := i + lags // index into delta
		y[i] = delta[t]
		row := make([]float64, k)
		row[0] = 1
		row[1] = series[t] // y_{t-1} relative to delta[t]
		for j := 1; j <= lags; j++ {
			row[1+j] = delta[t-j]
		}
		x[i] = row
	}

	beta, covDiag, ssr, err := olsMulti(x, y)
	if err != nil {
		return 0, 0, 0, err
	}
	s2 := ssr / float64(nobs-k)
	se := math.Sqrt(s2 * covDiag[1])
	if se <= 0 || math.IsNaN(se) {
		return 0, 0, 0, fmt.Errorf("adf: degenerate standard error")
	}
	tstat = beta[1] / se

	// AIC on the concentrated log-likelihood
	if ssr <= 0 {
		ssr = 1e-300
	}
	nf := float64(nobs)
	ll := -nf/2*math.Log(2*math.Pi*ssr/nf) - nf/2
	aic = -2*ll + 2*float64(k)
	return tstat, nobs, aic, nil
}

// olsMulti solves the normal equations for a small design matrix and returns
// the coefficients, the diagonal of (X'X)^-1, and the residual sum of squares.
func olsMulti(x [][]float64, y []float64) (beta, covDiag []float64, ssr float64, err error) {
	n := len(x)
	k := len(x[0])

	// X'X and X'y
	xtx := make([][]float64, k)
	xty := make([]float64, k)
	for i := 0; i < k; i++ {
		xtx[i] = make([]float64, k)
	}
	for r := 0; r < n; r++ {
		for i := 0; i < k; i++ {
			xty[i] += x[r][i] * y[r]
			for j := i; j < k; j++ {
				xtx[i][j] += x[r][i] * x[r][j]
			}
		}
	}
	for i := 0; i < k; i++ {
		for j := 0; j < i; j++ {
			xtx[i][j] = xtx[j][i]
		}
	}

	inv, err := invertSymmetric(xtx)
	if err != nil {
		return nil, nil, 0, err
	}

	beta = make([]float64, k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			beta[i] += inv[i][j] * xty[j]
		}
	}

	covDiag = make([]float64, k)
	for i := 0; i < k; i++ {
		covDiag[i] = inv[i][i]
	}

	for r := 0; r < n; r++ {
		pred := 0.0
		for i := 0; i < k; i++ {
			pred += x[r][i] * beta[i]
		}
		d := y[r] - pred
		ssr += d * d
	}
	return beta, covDiag, ssr, nil
}

// invertSymmetric inverts a small symmetric matrix by Gauss-Jordan with
// partial pivoting.
func invertSymmetric(m [][]float64) ([][]float64, error) {
	k := len(m)
	a := make([][]float64, k)
	inv := make([][]float64, k)
	for i := 0; i < k; i++ {
		a[i] = make([]float64, k)
		copy(a[i], m[i])
		inv[i] = make([]float64, k)
		inv[i][i] = 1
	}
	for col := 0; col < k; col++ {
		pivot := col
		for r := col + 1; r < k; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular matrix")
		}
		a[col], a[pivot] = a[pivot], a[col]
		inv[col], inv[pivot] = inv[pivot], inv[col]
		p := a[col][col]
		for j := 0; j < k; j++ {
			a[col][j] /= p
			inv[col][j] /= p
		}
		for r := 0; r < k; r++ {
			if r == col {
				continue
			}
			f := a[r][col]
			if f == 0 {
				continue
			}
			for j := 0; j < k; j++ {
				a[r][j] -= f * a[col][j]
				inv[r][j] -= f * inv[col][j]
			}
		}
	}
	return inv, nil
}

// MacKinnon (1994) approximate asymptotic p-value for the ADF tau statistic,
// constant-only regression, single series.
var (
	adfTauStar   = -1.61
	adfTauMin    = -18.83
	adfTauMax    = 2.74
	adfSmallPoly = []float64{2.1659, 1.4412, 0.038269}
	adfLargePoly = []float64{1.7339, 0.93202, -0.12745, -0.010368}
)

func mackinnonP(tau float64) float64 {
	if tau > adfTauMax {
		return 1.0
	}
	if tau < adfTauMin {
		return 0.0
	}
	poly := adfLargePoly
	if tau <= adfTauStar {
		poly = adfSmallPoly
	}
	z := 0.0
	for i := len(poly) - 1; i >= 0; i-- {
		z = z*tau + poly[i]
	}
	return normCDF(z)
}

func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}
