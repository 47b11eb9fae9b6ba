package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/pyncx/ncx/internal/dynamo"
	"github.com/pyncx/ncx/internal/protocol"
)

var ErrNoEigen = errors.New("analysis: eigen decomposition failed")

// Linearized systems expose their Jacobian for a fixed input.
type Linearized interface {
	Jacobian(u dynamo.Control) *mat.Dense
}

type LevelReport struct {
	Stimulus    protocol.Stimulus
	Eigenvalues []complex128
	// DtMax is +Inf when no eigenvalue has a negative real part.
	DtMax float64
}

type Report struct {
	Levels []LevelReport
	DtMax  float64
	Dt     float64
	Stable bool
}

// Worst returns the level that sets the overall bound.
func (r Report) Worst() LevelReport {
	worst := LevelReport{DtMax: math.Inf(1)}
	for _, l := range r.Levels {
		if l.DtMax < worst.DtMax {
			worst = l
		}
	}
	return worst
}

// EulerLimit returns min over eigenvalues of 2*(-Re)/|lambda|^2. Eigenvalues
// with a non-negative real part do not bound the step.
func EulerLimit(eigs []complex128) float64 {
	limit := math.Inf(1)
	for _, l := range eigs {
		re := real(l)
		if re >= 0 {
			continue
		}
		mag := cmplx.Abs(l)
		limit = math.Min(limit, 2*(-re)/(mag*mag))
	}
	return limit
}

func Eigenvalues(j *mat.Dense) ([]complex128, error) {
	var eig mat.Eigen
	if ok := eig.Factorize(j, mat.EigenNone); !ok {
		return nil, ErrNoEigen
	}
	return eig.Values(nil), nil
}

// Analyze evaluates every stimulus level and compares dt with the bound.
func Analyze(sys Linearized, levels []protocol.Stimulus, dt float64) (Report, error) {
	report := Report{Dt: dt, DtMax: math.Inf(1)}
	for _, lvl := range levels {
		eigs, err := Eigenvalues(sys.Jacobian(lvl.Control()))
		if err != nil {
			return report, fmt.Errorf("level %v: %w", lvl, err)
		}
		lr := LevelReport{Stimulus: lvl, Eigenvalues: eigs, DtMax: EulerLimit(eigs)}
		report.Levels = append(report.Levels, lr)
		report.DtMax = math.Min(report.DtMax, lr.DtMax)
	}
	report.Stable = dt < report.DtMax
	return report, nil
}
