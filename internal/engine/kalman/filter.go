// Package kalman implements the dynamic hedge-ratio estimator: a
// two-state random-walk Kalman filter over [beta, alpha] with an
// adaptive observation-noise estimate.
package kalman

import "math"

// rFloor keeps the observation noise strictly positive so the innovation
// variance can never collapse to zero.
const rFloor = 1e-10

// Config holds the filter's noise parameters.
type Config struct {
	Delta float64 // process-noise mixing, Q = diag(delta/(1-delta))
	Ve    float64 // initial observation-noise variance R
}

// Step is one filtered observation: the hedge coefficients and the
// resulting spread y - beta*x - alpha.
type Step struct {
	Beta   float64
	Alpha  float64
	Spread float64
}

// Filter recursively estimates y_t = beta_t*x_t + alpha_t with a
// random-walk state model. Update must be called exactly once per new
// observation; running it step by step over a history produces the same
// trajectory as any batch driver, which is the engine's determinism
// invariant.
type Filter struct {
	beta  float64
	alpha float64
	p     [2][2]float64 // error covariance
	q     float64       // process noise (diagonal)
	r     float64       // adaptive observation noise
	delta float64
	ready bool
}

// New creates a filter with a diffuse initial covariance.
func New(cfg Config) *Filter {
	delta := cfg.Delta
	if delta <= 0 || delta >= 1 {
		delta = 1e-4
	}
	r := cfg.Ve
	if r < rFloor {
		r = rFloor
	}
	f := &Filter{
		q:     delta / (1 - delta),
		r:     r,
		delta: delta,
	}
	f.p = [2][2]float64{{1, 0}, {0, 1}}
	return f
}

// Update consumes one observation pair (y, x) of log prices and returns the
// posterior hedge state and spread for this step.
func (f *Filter) Update(y, x float64) Step {
	// Predict: random walk, state unchanged, covariance inflated by Q.
	pp := f.p
	pp[0][0] += f.q
	pp[1][1] += f.q

	// Observation H = [x, 1].
	e := y - (f.beta*x + f.alpha)

	// S = H*P*H' + R
	ph0 := pp[0][0]*x + pp[0][1]
	ph1 := pp[1][0]*x + pp[1][1]
	s := x*ph0 + ph1 + f.r
	if s < rFloor {
		s = rFloor
	}

	k0 := ph0 / s
	k1 := ph1 / s

	f.beta += k0 * e
	f.alpha += k1 * e

	// P = P_pred - K*H*P_pred
	hp0 := x*pp[0][0] + pp[1][0]
	hp1 := x*pp[0][1] + pp[1][1]
	f.p[0][0] = pp[0][0] - k0*hp0
	f.p[0][1] = pp[0][1] - k0*hp1
	f.p[1][0] = pp[1][0] - k1*hp0
	f.p[1][1] = pp[1][1] - k1*hp1

	// Enforce symmetry against float drift.
	sym := 0.5 * (f.p[0][1] + f.p[1][0])
	f.p[0][1] = sym
	f.p[1][0] = sym

	// Adaptive observation noise: exponential average of the squared
	// innovation. Heuristic beyond the textbook filter; load-bearing for
	// reported behavior, keep the exact form.
	f.r = (1-f.delta)*f.r + f.delta*e*e
	if f.r < rFloor {
		f.r = rFloor
	}

	f.ready = true
	return Step{Beta: f.beta, Alpha: f.alpha, Spread: y - f.beta*x - f.alpha}
}

// Run drives the filter over full histories. It is defined as repeated
// Update calls so batch and streaming execution cannot diverge.
func (f *Filter) Run(ys, xs []float64) []Step {
	n := len(ys)
	if len(xs) < n {
		n = len(xs)
	}
	out := make([]Step, n)
	for i := 0; i < n; i++ {
		out[i] = f.Update(ys[i], xs[i])
	}
	return out
}

// Beta returns the current hedge ratio estimate.
func (f *Filter) Beta() float64 { return f.beta }

// Alpha returns the current intercept estimate.
func (f *Filter) Alpha() float64 { return f.alpha }

// R returns the current adaptive observation-noise estimate.
func (f *Filter) R() float64 { return f.r }

// Covariance returns a copy of the 2x2 error covariance.
func (f *Filter) Covariance() [2][2]float64 { return f.p }

// Initialized reports whether at least one observation was consumed.
func (f *Filter) Initialized() bool { return f.ready }

// CovarianceValid reports whether the error covariance is symmetric with
// non-negative diagonal and determinant, within tolerance.
func (f *Filter) CovarianceValid() bool {
	p := f.p
	if math.Abs(p[0][1]-p[1][0]) > 1e-9 {
		return false
	}
	if p[0][0] < -1e-12 || p[1][1] < -1e-12 {
		return false
	}
	det := p[0][0]*p[1][1] - p[0][1]*p[1][0]
	return det > -1e-9
}
