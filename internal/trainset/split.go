// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

// Package trainset prepares a vectorized corpus for training: a seeded
// row shuffle with persisted index files, an 80/20 train/validation
// split, and chunking into upload parts.
package trainset

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"github.com/recolibre/recolibre/internal/vectorize"
)

// Permutation returns a seeded permutation of [0, n). The same seed
// always yields the same row order, so a persisted seed plus the index
// files fully determine which document landed in which split.
func Permutation(n int, seed int64) []int {
	return rand.New(rand.NewSource(seed)).Perm(n)
}

// Identity returns the index sequence 0..n-1.
func Identity(n int) []int {
	index := make([]int, n)
	for i := range index {
		index[i] = i
	}
	return index
}

// SaveIndexCSV writes one index per line.
func SaveIndexCSV(path string, index []int) error {
	f, err := os.Create(path) // #nosec G304 -- path is built from a managed data directory
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	for _, idx := range index {
		if _, err := fmt.Fprintln(w, idx); err != nil {
			return fmt.Errorf("failed to write index entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush index file: %w", err)
	}
	return f.Close()
}

// LoadIndexCSV reads an index file written by SaveIndexCSV.
func LoadIndexCSV(path string) ([]int, error) {
	f, err := os.Open(path) // #nosec G304 -- path is built from a managed data directory
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var index []int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		idx, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("invalid index entry %q: %w", line, err)
		}
		index = append(index, idx)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}
	return index, nil
}

// Split divides a matrix into a training head and validation tail. The
// training set holds int(fraction * rows) rows; the remainder validates.
func Split(m *vectorize.CSR, fraction float64) (train, val *vectorize.CSR, err error) {
	if fraction <= 0 || fraction >= 1 {
		return nil, nil, fmt.Errorf("train fraction must be in (0, 1), got %g", fraction)
	}

	nTrain := int(fraction * float64(m.Rows))
	train, err = m.RowRange(0, nTrain)
	if err != nil {
		return nil, nil, err
	}
	val, err = m.RowRange(nTrain, m.Rows)
	if err != nil {
		return nil, nil, err
	}
	return train, val, nil
}

// Chunks returns the [start, end) row boundaries of nParts chunks.
// Each chunk holds rows/nParts rows; the final chunk absorbs the
// remainder. With fewer rows than parts the leading chunks are empty.
func Chunks(rows, nParts int) [][2]int {
	if nParts <= 0 {
		return nil
	}

	chunkSize := rows / nParts
	bounds := make([][2]int, nParts)
	for i := 0; i < nParts; i++ {
		start := i * chunkSize
		end := (i + 1) * chunkSize
		if i+1 == nParts {
			end = rows
		}
		bounds[i] = [2]int{start, end}
	}
	return bounds
}
