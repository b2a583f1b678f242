package advlab

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ExpansionPoint is the (x, y, u) point the line model is linearized around.
type ExpansionPoint struct {
	X, Y, U float64
}

type VertexEstimate struct {
	Combination int
	X, Y        float64
	Chi2        float64
	CovXX       float64
	CovXY       float64
	CovYY       float64
	Rejected    bool
}

// h is the measurement function: abscissa at y = yRef and inverse slope of
// the line through (x, y) with inverse slope u.
func h(x, y, u, yRef float64) *mat.VecDense {
	return mat.NewVecDense(2, []float64{x + u*(yRef-y), u})
}

// lineTerms holds the per line matrices of the linear model
// p = c + A X + B q with the nuisance q eliminated.
type lineTerms struct {
	p   *mat.VecDense
	a   *mat.Dense
	g   *mat.Dense
	w   float64
	gkb *mat.Dense
}

func newLineTerms(k int, s LineState, b *mat.VecDense) (lineTerms, error) {
	if s.Cov == nil {
		return lineTerms{}, fmt.Errorf("line %d has no covariance", k)
	}
	g, err := invert(s.Cov, "V", k)
	if err != nil {
		return lineTerms{}, err
	}

	bgb := mat.Inner(b, g, b)
	if bgb == 0 || math.IsNaN(bgb) || math.IsInf(bgb, 0) {
		return lineTerms{}, &ErrSingularMatrix{Matrix: "BtGB", Line: k, Err: fmt.Errorf("value %g", bgb)}
	}
	w := 1 / bgb

	var gb mat.VecDense
	gb.MulVec(g, b)
	var proj mat.Dense
	proj.Outer(w, &gb, &gb)
	var gkb mat.Dense
	gkb.Sub(g, &proj)

	return lineTerms{
		p:   mat.NewVecDense(2, []float64{s.XK, s.UK}),
		a:   mat.NewDense(2, 2, []float64{1, -s.UK, 0, 0}),
		g:   g,
		w:   w,
		gkb: &gkb,
	}, nil
}

func invert(m mat.Matrix, name string, line int) (*mat.Dense, error) {
	var inv mat.Dense
	err := inv.Inverse(m)
	if err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return nil, &ErrSingularMatrix{Matrix: name, Line: line, Err: err}
		}
		if configuration.Verbosity > 2 {
			logger.Info(fmt.Sprintf("%s of line %d is ill conditioned: %v", name, line, err), "vertex")
		}
	}
	return &inv, nil
}

// ComputeVertex runs one generalized least squares pass over the lines,
// linearized around exp. The chi-square is accumulated line by line and the
// estimate is flagged Rejected as soon as it exceeds settings.Chi2Threshold.
func ComputeVertex(states []LineState, exp ExpansionPoint, settings EstimatorSettings) (VertexEstimate, error) {
	if len(states) == 0 {
		return VertexEstimate{}, ErrNoMeasurements
	}
	if settings.PriorVariance <= 0 {
		return VertexEstimate{}, fmt.Errorf("prior variance must be positive, got %g", settings.PriorVariance)
	}

	yRef := settings.YRef
	priorX, priorY := settings.prior()
	x0 := mat.NewVecDense(2, []float64{priorX, priorY})
	invC0 := mat.NewDiagDense(2, []float64{1 / settings.PriorVariance, 1 / settings.PriorVariance})

	b := mat.NewVecDense(2, []float64{yRef, 1})
	c := h(exp.X, exp.Y, exp.U, yRef)
	c.AddScaledVec(c, -exp.U, b)

	invCn := mat.NewDense(2, 2, nil)
	invCn.Copy(invC0)
	sum := mat.NewVecDense(2, nil)

	terms := make([]lineTerms, len(states))
	for k, s := range states {
		t, err := newLineTerms(k, s, b)
		if err != nil {
			return VertexEstimate{}, err
		}
		terms[k] = t

		var info mat.Dense
		info.Product(t.a.T(), t.gkb, t.a)
		invCn.Add(invCn, &info)

		var ag mat.Dense
		ag.Mul(t.a.T(), t.gkb)
		var diff, weighted mat.VecDense
		diff.SubVec(t.p, c)
		weighted.MulVec(&ag, &diff)
		sum.AddVec(sum, &weighted)
	}

	cn, err := invert(invCn, "InvCn", -1)
	if err != nil {
		return VertexEstimate{}, err
	}
	var rhs, xn mat.VecDense
	rhs.MulVec(invC0, x0)
	rhs.AddVec(&rhs, sum)
	xn.MulVec(cn, &rhs)

	estimate := VertexEstimate{
		X:     xn.AtVec(0),
		Y:     xn.AtVec(1),
		CovXX: cn.At(0, 0),
		CovXY: cn.At(0, 1),
		CovYY: cn.At(1, 1),
	}
	if !finite(estimate.X, estimate.Y, estimate.CovXX, estimate.CovXY, estimate.CovYY) {
		return VertexEstimate{}, fmt.Errorf("non finite vertex (%g, %g)", estimate.X, estimate.Y)
	}

	var d mat.VecDense
	d.SubVec(x0, &xn)
	chi2 := mat.Inner(&d, invC0, &d)
	for _, t := range terms {
		var ax, res mat.VecDense
		ax.MulVec(t.a, &xn)
		res.SubVec(t.p, c)
		res.SubVec(&res, &ax)
		q := t.w * mat.Inner(b, t.g, &res)

		var pkn, r mat.VecDense
		pkn.AddVec(c, &ax)
		pkn.AddScaledVec(&pkn, q, b)
		r.SubVec(t.p, &pkn)
		chi2 += mat.Inner(&r, t.g, &r)

		if chi2 > settings.Chi2Threshold {
			return VertexEstimate{Chi2: chi2, Rejected: true}, nil
		}
	}
	if !finite(chi2) {
		return VertexEstimate{}, fmt.Errorf("non finite chi2 for vertex (%g, %g)", estimate.X, estimate.Y)
	}
	estimate.Chi2 = chi2
	return estimate, nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
