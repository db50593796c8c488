// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

package vectorize

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// ErrEmptyVocabulary is returned when document-frequency pruning removes
// every candidate term.
var ErrEmptyVocabulary = errors.New("no terms survive document frequency pruning")

// Options control vocabulary construction.
//
// MinDF is an absolute document count: terms appearing in fewer
// documents are dropped. MaxDF is a proportion of the corpus: terms
// appearing in more than MaxDF of all documents are dropped. When more
// than MaxFeatures terms survive, the MaxFeatures most frequent by total
// term count are kept, ties broken alphabetically.
type Options struct {
	MaxFeatures int
	MaxDF       float64
	MinDF       int
}

// Vectorizer maps token streams to rows of a term count matrix over a
// fitted vocabulary.
type Vectorizer struct {
	opts  Options
	vocab map[string]int
	terms []string
}

// New creates an unfitted vectorizer.
func New(opts Options) *Vectorizer {
	return &Vectorizer{opts: opts}
}

// Fit builds the vocabulary from the given tokenized documents.
func (v *Vectorizer) Fit(docs [][]string) error {
	if len(docs) == 0 {
		return ErrEmptyVocabulary
	}

	docFreq := make(map[string]int)
	termFreq := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{}, len(doc))
		for _, term := range doc {
			termFreq[term]++
			if _, ok := seen[term]; !ok {
				seen[term] = struct{}{}
				docFreq[term]++
			}
		}
	}

	maxDocs := int(v.opts.MaxDF * float64(len(docs)))
	var candidates []string
	for term, df := range docFreq {
		if df < v.opts.MinDF {
			continue
		}
		if v.opts.MaxDF > 0 && df > maxDocs {
			continue
		}
		candidates = append(candidates, term)
	}
	if len(candidates) == 0 {
		return ErrEmptyVocabulary
	}

	if v.opts.MaxFeatures > 0 && len(candidates) > v.opts.MaxFeatures {
		sort.Slice(candidates, func(i, j int) bool {
			fi, fj := termFreq[candidates[i]], termFreq[candidates[j]]
			if fi != fj {
				return fi > fj
			}
			return candidates[i] < candidates[j]
		})
		candidates = candidates[:v.opts.MaxFeatures]
	}

	// Final vocabulary is alphabetical, so column order is stable across runs
	sort.Strings(candidates)
	v.terms = candidates
	v.vocab = make(map[string]int, len(candidates))
	for i, term := range candidates {
		v.vocab[term] = i
	}
	return nil
}

// Transform counts vocabulary terms per document and returns the result
// as a CSR matrix with one row per document.
func (v *Vectorizer) Transform(docs [][]string) (*CSR, error) {
	if v.vocab == nil {
		return nil, errors.New("vectorizer is not fitted")
	}

	indptr := make([]int, 0, len(docs)+1)
	indptr = append(indptr, 0)
	var indices []int
	var data []float32

	for _, doc := range docs {
		counts := make(map[int]float32)
		for _, term := range doc {
			if col, ok := v.vocab[term]; ok {
				counts[col]++
			}
		}

		cols := make([]int, 0, len(counts))
		for col := range counts {
			cols = append(cols, col)
		}
		sort.Ints(cols)

		for _, col := range cols {
			indices = append(indices, col)
			data = append(data, counts[col])
		}
		indptr = append(indptr, len(indices))
	}

	return &CSR{
		Rows:    len(docs),
		Cols:    len(v.terms),
		Indptr:  indptr,
		Indices: indices,
		Data:    data,
	}, nil
}

// FitTransform fits the vocabulary and transforms the same documents.
func (v *Vectorizer) FitTransform(docs [][]string) (*CSR, error) {
	if err := v.Fit(docs); err != nil {
		return nil, err
	}
	return v.Transform(docs)
}

// Vocabulary returns the fitted terms in column order.
func (v *Vectorizer) Vocabulary() []string {
	return v.terms
}

// SaveVocabulary writes the fitted terms to a single-column CSV, one
// term per row in column order. The NTM auxiliary vocabulary channel
// expects this layout.
func (v *Vectorizer) SaveVocabulary(path string) error {
	if v.vocab == nil {
		return errors.New("vectorizer is not fitted")
	}

	f, err := os.Create(path) // #nosec G304 -- path is built from a managed data directory
	if err != nil {
		return fmt.Errorf("failed to create vocabulary file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	for _, term := range v.terms {
		if err := w.Write([]string{term}); err != nil {
			return fmt.Errorf("failed to write vocabulary term: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush vocabulary file: %w", err)
	}
	return f.Close()
}

// SaveRowCSV writes one matrix row as a single-line CSV of dense counts.
// Each title's counts are persisted next to its source files so a later
// inference pass can reuse them without refitting.
func SaveRowCSV(m *CSR, row int, path string) error {
	f, err := os.Create(path) // #nosec G304 -- path is built from a managed data directory
	if err != nil {
		return fmt.Errorf("failed to create vector file: %w", err)
	}
	defer func() { _ = f.Close() }()

	dense := m.DenseRow(row)
	record := make([]string, len(dense))
	for i, val := range dense {
		record[i] = strconv.FormatFloat(float64(val), 'g', -1, 32)
	}

	w := csv.NewWriter(f)
	if err := w.Write(record); err != nil {
		return fmt.Errorf("failed to write vector row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush vector file: %w", err)
	}
	return f.Close()
}
