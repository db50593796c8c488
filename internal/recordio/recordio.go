// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

package recordio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/recolibre/recolibre/internal/vectorize"
)

// recordIOMagic precedes every record frame.
const recordIOMagic uint32 = 0xced7230a

// padding aligns every frame to a 4-byte boundary.
var padBytes = [4]byte{}

// ErrBadMagic indicates a frame that does not start with the RecordIO
// magic number.
var ErrBadMagic = errors.New("recordio: bad magic number")

// WriteRecord frames one encoded record: magic, length, payload, and
// zero padding up to the next 4-byte boundary.
func WriteRecord(w io.Writer, data []byte) error {
	var header [8]byte
	binary.LittleEndian.PutUint32(header[0:4], recordIOMagic)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(data))) // #nosec G115 -- record length fits uint32

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("recordio: failed to write header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("recordio: failed to write payload: %w", err)
	}
	if pad := (4 - len(data)%4) % 4; pad > 0 {
		if _, err := w.Write(padBytes[:pad]); err != nil {
			return fmt.Errorf("recordio: failed to write padding: %w", err)
		}
	}
	return nil
}

// ReadRecord reads one framed record. Returns io.EOF cleanly at the end
// of the stream.
func ReadRecord(r io.Reader) ([]byte, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("recordio: failed to read header: %w", err)
	}

	if magic := binary.LittleEndian.Uint32(header[0:4]); magic != recordIOMagic {
		return nil, fmt.Errorf("%w: 0x%08x", ErrBadMagic, magic)
	}

	length := binary.LittleEndian.Uint32(header[4:8])
	padded := (int(length) + 3) &^ 3
	buf := make([]byte, padded)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("recordio: truncated payload: %w", err)
	}
	return buf[:length], nil
}

// WriteSparseMatrix writes every row of the matrix as a framed sparse
// tensor record, matching the platform's spmatrix-to-sparse-tensor
// conversion with no labels.
func WriteSparseMatrix(w io.Writer, m *vectorize.CSR) error {
	for i := 0; i < m.Rows; i++ {
		if err := WriteRecord(w, MarshalRecord(RowTensor(m, i))); err != nil {
			return fmt.Errorf("recordio: row %d: %w", i, err)
		}
	}
	return nil
}

// ReadSparseTensors decodes all framed records in the stream.
func ReadSparseTensors(r io.Reader) ([]*SparseTensor, error) {
	var tensors []*SparseTensor
	for {
		data, err := ReadRecord(r)
		if errors.Is(err, io.EOF) {
			return tensors, nil
		}
		if err != nil {
			return nil, err
		}

		tensor, err := UnmarshalRecord(data)
		if err != nil {
			return nil, err
		}
		tensors = append(tensors, tensor)
	}
}
