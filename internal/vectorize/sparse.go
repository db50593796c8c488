// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

// Package vectorize builds bag-of-words term count matrices from token
// streams, with document-frequency pruning and a bounded vocabulary.
package vectorize

import "fmt"

// CSR is a sparse matrix in compressed sparse row form. Row i occupies
// Indices[Indptr[i]:Indptr[i+1]] and Data[Indptr[i]:Indptr[i+1]].
type CSR struct {
	Rows    int
	Cols    int
	Indptr  []int
	Indices []int
	Data    []float32
}

// NNZ returns the number of stored entries.
func (m *CSR) NNZ() int {
	return len(m.Data)
}

// Row returns the column indices and values of row i. The returned
// slices alias the matrix storage.
func (m *CSR) Row(i int) (indices []int, data []float32) {
	start, end := m.Indptr[i], m.Indptr[i+1]
	return m.Indices[start:end], m.Data[start:end]
}

// RowRange returns a view of rows [start, end). Indptr is rebased so the
// result is a self-contained CSR; index and data slices alias the parent.
func (m *CSR) RowRange(start, end int) (*CSR, error) {
	if start < 0 || end > m.Rows || start > end {
		return nil, fmt.Errorf("row range [%d, %d) out of bounds for %d rows", start, end, m.Rows)
	}

	offset := m.Indptr[start]
	indptr := make([]int, end-start+1)
	for i := range indptr {
		indptr[i] = m.Indptr[start+i] - offset
	}

	return &CSR{
		Rows:    end - start,
		Cols:    m.Cols,
		Indptr:  indptr,
		Indices: m.Indices[offset:m.Indptr[end]],
		Data:    m.Data[offset:m.Indptr[end]],
	}, nil
}

// SelectRows builds a new CSR containing the given rows in the given
// order. Used to apply a shuffle permutation before splitting.
func (m *CSR) SelectRows(order []int) (*CSR, error) {
	indptr := make([]int, 0, len(order)+1)
	indptr = append(indptr, 0)
	var indices []int
	var data []float32

	for _, row := range order {
		if row < 0 || row >= m.Rows {
			return nil, fmt.Errorf("row %d out of bounds for %d rows", row, m.Rows)
		}
		idx, vals := m.Row(row)
		indices = append(indices, idx...)
		data = append(data, vals...)
		indptr = append(indptr, len(indices))
	}

	return &CSR{
		Rows:    len(order),
		Cols:    m.Cols,
		Indptr:  indptr,
		Indices: indices,
		Data:    data,
	}, nil
}

// DenseRow expands row i into a dense float32 slice of length Cols.
func (m *CSR) DenseRow(i int) []float32 {
	row := make([]float32, m.Cols)
	indices, data := m.Row(i)
	for j, col := range indices {
		row[col] = data[j]
	}
	return row
}
