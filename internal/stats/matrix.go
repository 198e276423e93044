package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/syntharb/syntharb/internal/domain"
)

// PortfolioMatrix is the multi-asset covariance view: symmetric covariance
// and correlation matrices over the named series in Names order, plus the
// eigen-decomposition of the covariance matrix.
type PortfolioMatrix struct {
	Names        []string
	Covariance   [][]float64
	Correlation  [][]float64
	Eigenvalues  []float64   // ascending
	Eigenvectors [][]float64 // column i corresponds to Eigenvalues[i]
	SampleSize   int
}

// ComputePortfolioMatrix builds the covariance and correlation matrices for
// the given return series. All series must have equal length and at least
// minSampleSize points. Off-diagonal entries are computed once and mirrored,
// so the matrices are symmetric by construction. The eigen-decomposition
// uses a real symmetric solver rather than a diagonal approximation.
func (e *Engine) ComputePortfolioMatrix(seriesByName map[string][]float64, minSampleSize int) (PortfolioMatrix, error) {
	if minSampleSize <= 0 {
		minSampleSize = e.cfg.MinSampleSize
	}
	if len(seriesByName) < 2 {
		return PortfolioMatrix{}, fmt.Errorf("stats: portfolio matrix: need at least 2 series, got %d: %w",
			len(seriesByName), domain.ErrValidation)
	}

	names := make([]string, 0, len(seriesByName))
	for name := range seriesByName {
		names = append(names, name)
	}
	sort.Strings(names)

	length := len(seriesByName[names[0]])
	for _, name := range names {
		series := seriesByName[name]
		if len(series) != length {
			return PortfolioMatrix{}, fmt.Errorf(
				"stats: portfolio matrix: series %q has %d points, expected %d: %w",
				name, len(series), length, domain.ErrValidation,
			)
		}
	}
	if length < minSampleSize {
		return PortfolioMatrix{}, fmt.Errorf(
			"stats: portfolio matrix: %d points, need %d: %w",
			length, minSampleSize, domain.ErrInsufficientData,
		)
	}

	k := len(names)
	means := make([]float64, k)
	for i, name := range names {
		for _, v := range seriesByName[name] {
			means[i] += v
		}
		means[i] /= float64(length)
	}

	covariance := newSquare(k)
	for i := 0; i < k; i++ {
		si := seriesByName[names[i]]
		for j := i; j < k; j++ {
			sj := seriesByName[names[j]]
			var sum float64
			for t := 0; t < length; t++ {
				sum += (si[t] - means[i]) * (sj[t] - means[j])
			}
			c := sum / float64(length)
			covariance[i][j] = c
			covariance[j][i] = c
		}
	}

	correlation := newSquare(k)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			denom := math.Sqrt(covariance[i][i] * covariance[j][j])
			r := 0.0
			if denom > 0 {
				r = clamp(covariance[i][j]/denom, -1, 1)
			}
			correlation[i][j] = r
			correlation[j][i] = r
		}
	}

	eigenvalues, eigenvectors, err := symEigen(covariance)
	if err != nil {
		return PortfolioMatrix{}, fmt.Errorf("stats: portfolio matrix: %w", err)
	}

	return PortfolioMatrix{
		Names:        names,
		Covariance:   covariance,
		Correlation:  correlation,
		Eigenvalues:  eigenvalues,
		Eigenvectors: eigenvectors,
		SampleSize:   length,
	}, nil
}

// symEigen decomposes a symmetric matrix into eigenvalues (ascending) and
// the matching eigenvector columns.
func symEigen(m [][]float64) ([]float64, [][]float64, error) {
	k := len(m)
	sym := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			sym.SetSym(i, j, m[i][j])
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return nil, nil, fmt.Errorf("eigen decomposition did not converge: %w", domain.ErrProcessing)
	}

	values := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	vectors := newSquare(k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			vectors[i][j] = vecs.At(i, j)
		}
	}
	return values, vectors, nil
}

func newSquare(k int) [][]float64 {
	m := make([][]float64, k)
	for i := range m {
		m[i] = make([]float64, k)
	}
	return m
}
