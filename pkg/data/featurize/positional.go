// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package featurize

import (
	"math"
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// electrostaticAggregations are the per-node reductions of the electrostatic interactions.
var electrostaticAggregations = []string{"min", "mean", "max", "std"}

// pinvTolerance is the relative threshold below which singular values are treated as zero.
const pinvTolerance = 1e-10

func adjacencyMatrix(numNodes int, src, dst []int32) *mat.SymDense {
	adjacency := mat.NewSymDense(numNodes, nil)
	for ii := range src {
		adjacency.SetSym(int(src[ii]), int(dst[ii]), 1)
	}
	return adjacency
}

// laplacian returns L = D - A.
func laplacian(adjacency *mat.SymDense) *mat.SymDense {
	n := adjacency.SymmetricDim()
	l := mat.NewSymDense(n, nil)
	for row := range n {
		degree := 0.0
		for col := range n {
			if col != row {
				v := adjacency.At(row, col)
				degree += v
				if col > row {
					l.SetSym(row, col, -v)
				}
			}
		}
		l.SetSym(row, row, degree)
	}
	return l
}

// laplacianEigvecs returns the eigenvectors of the graph Laplacian of the k smallest eigenvalues, skipping the
// first (trivial) one, shaped [numNodes, k]. Graphs with fewer than k+1 nodes are padded with zeros.
//
// Each eigenvector's sign is fixed so its largest absolute component is positive.
func laplacianEigvecs(adjacency *mat.SymDense, k int) ([]float32, error) {
	n := adjacency.SymmetricDim()
	values := make([]float32, n*k)
	if n <= 1 {
		return values, nil
	}
	var eigen mat.EigenSym
	if ok := eigen.Factorize(laplacian(adjacency), true); !ok {
		return nil, errors.New("eigen decomposition of the Laplacian failed")
	}
	eigenvalues := eigen.Values(nil)
	var vectors mat.Dense
	eigen.VectorsTo(&vectors)

	order := make([]int, n)
	for ii := range order {
		order[ii] = ii
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case eigenvalues[a] < eigenvalues[b]:
			return -1
		case eigenvalues[a] > eigenvalues[b]:
			return 1
		}
		return 0
	})
	for col := range min(k, n-1) {
		eigCol := order[col+1]
		sign := 1.0
		largest := 0.0
		for row := range n {
			if v := vectors.At(row, eigCol); math.Abs(v) > largest+1e-9 {
				largest = math.Abs(v)
				sign = math.Copysign(1, v)
			}
		}
		for row := range n {
			values[row*k+col] = float32(sign * vectors.At(row, eigCol))
		}
	}
	return values, nil
}

// pseudoInverse of a symmetric matrix, through its SVD.
func pseudoInverse(m *mat.SymDense) (*mat.Dense, error) {
	n := m.SymmetricDim()
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDFull); !ok {
		return nil, errors.New("singular value decomposition failed")
	}
	singular := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	threshold := pinvTolerance * float64(n)
	if len(singular) > 0 {
		threshold *= singular[0]
	}
	pinv := mat.NewDense(n, n, nil)
	for ii, s := range singular {
		if s <= threshold {
			continue
		}
		for row := range n {
			vi := v.At(row, ii) / s
			if vi == 0 {
				continue
			}
			for col := range n {
				pinv.Set(row, col, pinv.At(row, col)+vi*u.At(col, ii))
			}
		}
	}
	return pinv, nil
}

// electrostaticInteractions computes E = pinv(L) - diag(pinv(L)), that is E[i,j] = pinv(L)[i,j] - pinv(L)[j,j],
// and reduces each row to its min, mean, max and standard deviation, shaped [numNodes, 4].
func electrostaticInteractions(adjacency *mat.SymDense) ([]float32, error) {
	n := adjacency.SymmetricDim()
	pinv, err := pseudoInverse(laplacian(adjacency))
	if err != nil {
		return nil, err
	}
	dim := len(electrostaticAggregations)
	values := make([]float32, n*dim)
	for row := range n {
		minV, maxV := math.Inf(1), math.Inf(-1)
		var sum, sumSq float64
		for col := range n {
			e := pinv.At(row, col) - pinv.At(col, col)
			minV = min(minV, e)
			maxV = max(maxV, e)
			sum += e
			sumSq += e * e
		}
		mean := sum / float64(n)
		variance := max(0, sumSq/float64(n)-mean*mean)
		values[row*dim] = float32(minV)
		values[row*dim+1] = float32(mean)
		values[row*dim+2] = float32(maxV)
		values[row*dim+3] = float32(math.Sqrt(variance))
	}
	return values, nil
}
