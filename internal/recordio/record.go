// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

// Package recordio serializes sparse matrices into the RecordIO-wrapped
// protobuf tensor format the managed training platform consumes. One
// protobuf Record is emitted per matrix row, carrying a sparse float32
// tensor under the "values" feature key.
package recordio

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/recolibre/recolibre/internal/vectorize"
)

// Protobuf field numbers of the platform's Record message. The message
// is small and stable, so records are encoded directly with protowire
// rather than generated code.
const (
	recordFeaturesField = 1 // map<string, Value>

	mapKeyField   = 1 // string
	mapValueField = 2 // Value

	valueFloat32TensorField = 2 // Float32Tensor

	tensorValuesField = 1 // repeated float, packed
	tensorKeysField   = 2 // repeated uint64, packed
	tensorShapeField  = 3 // repeated uint64, packed
)

// featureKey is the feature map entry holding the document tensor.
const featureKey = "values"

// SparseTensor is one decoded record row: non-zero values, their column
// keys, and the full row shape.
type SparseTensor struct {
	Values []float32
	Keys   []uint64
	Shape  []uint64
}

// appendFloat32Tensor encodes a Float32Tensor message body.
func appendFloat32Tensor(b []byte, t *SparseTensor) []byte {
	if len(t.Values) > 0 {
		var packed []byte
		for _, v := range t.Values {
			packed = protowire.AppendFixed32(packed, math.Float32bits(v))
		}
		b = protowire.AppendTag(b, tensorValuesField, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	if len(t.Keys) > 0 {
		var packed []byte
		for _, k := range t.Keys {
			packed = protowire.AppendVarint(packed, k)
		}
		b = protowire.AppendTag(b, tensorKeysField, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	if len(t.Shape) > 0 {
		var packed []byte
		for _, s := range t.Shape {
			packed = protowire.AppendVarint(packed, s)
		}
		b = protowire.AppendTag(b, tensorShapeField, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	return b
}

// MarshalRecord encodes one Record message carrying the tensor under the
// "values" feature key.
func MarshalRecord(t *SparseTensor) []byte {
	tensor := appendFloat32Tensor(nil, t)

	var value []byte
	value = protowire.AppendTag(value, valueFloat32TensorField, protowire.BytesType)
	value = protowire.AppendBytes(value, tensor)

	var entry []byte
	entry = protowire.AppendTag(entry, mapKeyField, protowire.BytesType)
	entry = protowire.AppendString(entry, featureKey)
	entry = protowire.AppendTag(entry, mapValueField, protowire.BytesType)
	entry = protowire.AppendBytes(entry, value)

	var record []byte
	record = protowire.AppendTag(record, recordFeaturesField, protowire.BytesType)
	record = protowire.AppendBytes(record, entry)
	return record
}

// RowTensor extracts row i of a CSR matrix as a sparse tensor with the
// row width as its shape.
func RowTensor(m *vectorize.CSR, i int) *SparseTensor {
	indices, data := m.Row(i)
	t := &SparseTensor{
		Values: data,
		Keys:   make([]uint64, len(indices)),
		Shape:  []uint64{uint64(m.Cols)},
	}
	for j, col := range indices {
		t.Keys[j] = uint64(col)
	}
	return t
}

// UnmarshalRecord decodes a Record message produced by MarshalRecord.
func UnmarshalRecord(b []byte) (*SparseTensor, error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("invalid record tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		if num != recordFeaturesField || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("invalid record field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		entry, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, fmt.Errorf("invalid features entry: %w", protowire.ParseError(n))
		}
		b = b[n:]

		tensor, err := parseFeatureEntry(entry)
		if err != nil {
			return nil, err
		}
		if tensor != nil {
			return tensor, nil
		}
	}
	return nil, fmt.Errorf("record has no %q feature", featureKey)
}

// parseFeatureEntry decodes one features map entry, returning a tensor
// when the entry key matches featureKey and nil otherwise.
func parseFeatureEntry(b []byte) (*SparseTensor, error) {
	var key string
	var value []byte

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("invalid entry tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == mapKeyField && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("invalid entry key: %w", protowire.ParseError(n))
			}
			key, b = s, b[n:]
		case num == mapValueField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("invalid entry value: %w", protowire.ParseError(n))
			}
			value, b = v, b[n:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("invalid entry field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if key != featureKey {
		return nil, nil
	}
	return parseValue(value)
}

// parseValue decodes a Value message wrapping a Float32Tensor.
func parseValue(b []byte) (*SparseTensor, error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("invalid value tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		if num != valueFloat32TensorField || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("invalid value field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		tensor, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, fmt.Errorf("invalid tensor bytes: %w", protowire.ParseError(n))
		}
		return parseFloat32Tensor(tensor)
	}
	return nil, fmt.Errorf("value holds no float32 tensor")
}

// parseFloat32Tensor decodes a Float32Tensor message body.
func parseFloat32Tensor(b []byte) (*SparseTensor, error) {
	t := &SparseTensor{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("invalid tensor tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("invalid tensor field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		packed, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, fmt.Errorf("invalid packed field: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case tensorValuesField:
			for len(packed) > 0 {
				bits, n := protowire.ConsumeFixed32(packed)
				if n < 0 {
					return nil, fmt.Errorf("invalid packed float: %w", protowire.ParseError(n))
				}
				t.Values = append(t.Values, math.Float32frombits(bits))
				packed = packed[n:]
			}
		case tensorKeysField:
			for len(packed) > 0 {
				v, n := protowire.ConsumeVarint(packed)
				if n < 0 {
					return nil, fmt.Errorf("invalid packed key: %w", protowire.ParseError(n))
				}
				t.Keys = append(t.Keys, v)
				packed = packed[n:]
			}
		case tensorShapeField:
			for len(packed) > 0 {
				v, n := protowire.ConsumeVarint(packed)
				if n < 0 {
					return nil, fmt.Errorf("invalid packed shape: %w", protowire.ParseError(n))
				}
				t.Shape = append(t.Shape, v)
				packed = packed[n:]
			}
		}
	}
	return t, nil
}
