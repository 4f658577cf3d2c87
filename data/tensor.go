/*
 * Copyright (c) 2018 XLAB d.o.o
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package data

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

// Tensor is an immutable dense array of a fixed element type and shape.
// Elements are stored in row-major order, little-endian encoded.
// A tensor with an empty shape is a scalar holding exactly one element.
type Tensor struct {
	dtype DType
	shape []int
	raw   []byte
}

// NumElements returns the number of elements of a tensor with the given
// shape, or -1 if the shape has a negative dimension.
func NumElements(shape []int) int {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return -1
		}
		n *= d
	}

	return n
}

// NewTensor builds a tensor from its raw little-endian encoding.
// The raw bytes are copied.
func NewTensor(dtype DType, shape []int, raw []byte) (Tensor, error) {
	if !dtype.Valid() {
		return Tensor{}, errors.Errorf("invalid dtype %d", dtype)
	}
	n := NumElements(shape)
	if n < 0 {
		return Tensor{}, errors.Errorf("invalid shape %v", shape)
	}
	if len(raw) != n*dtype.Size() {
		return Tensor{}, errors.Errorf("%s%v needs %d bytes, got %d",
			dtype, shape, n*dtype.Size(), len(raw))
	}

	return Tensor{
		dtype: dtype,
		shape: copyShape(shape),
		raw:   append([]byte(nil), raw...),
	}, nil
}

// NewTensorFromVector encodes the integer vector v as a tensor of the given
// integer dtype and shape. It returns an error if an element does not fit
// the dtype.
func NewTensorFromVector(dtype DType, shape []int, v Vector) (Tensor, error) {
	if !dtype.IsInteger() {
		return Tensor{}, errors.Errorf("cannot encode integers as %s", dtype)
	}
	if NumElements(shape) != len(v) {
		return Tensor{}, errors.Errorf("shape %v does not hold %d elements", shape, len(v))
	}

	min, max := dtype.Bounds()
	size := dtype.Size()
	raw := make([]byte, len(v)*size)
	mod := new(big.Int).Lsh(big.NewInt(1), uint(8*size))
	for i, x := range v {
		if x.Cmp(min) < 0 || x.Cmp(max) > 0 {
			return Tensor{}, errors.Errorf("element %s out of %s range", x, dtype)
		}
		u := new(big.Int).Set(x)
		if u.Sign() < 0 {
			u.Add(u, mod)
		}
		putUint(raw[i*size:(i+1)*size], u.Uint64())
	}

	return Tensor{dtype: dtype, shape: copyShape(shape), raw: raw}, nil
}

// NewTensorFromMatrix encodes matrix m as a tensor of shape [rows, cols].
func NewTensorFromMatrix(dtype DType, m Matrix) (Tensor, error) {
	v := make(Vector, 0, m.Rows()*m.Cols())
	for _, row := range m {
		v = append(v, row...)
	}

	return NewTensorFromVector(dtype, []int{m.Rows(), m.Cols()}, v)
}

// NewInt32Tensor returns an int32 tensor holding vals.
func NewInt32Tensor(shape []int, vals ...int32) (Tensor, error) {
	v := make(Vector, len(vals))
	for i, x := range vals {
		v[i] = big.NewInt(int64(x))
	}

	return NewTensorFromVector(Int32, shape, v)
}

// NewInt64Tensor returns an int64 tensor holding vals.
func NewInt64Tensor(shape []int, vals ...int64) (Tensor, error) {
	v := make(Vector, len(vals))
	for i, x := range vals {
		v[i] = big.NewInt(x)
	}

	return NewTensorFromVector(Int64, shape, v)
}

// NewFloat32Tensor returns a float32 tensor holding vals.
func NewFloat32Tensor(shape []int, vals ...float32) (Tensor, error) {
	raw := make([]byte, 4*len(vals))
	for i, x := range vals {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(x))
	}

	return NewTensor(Float32, shape, raw)
}

// NewFloat64Tensor returns a float64 tensor holding vals.
func NewFloat64Tensor(shape []int, vals ...float64) (Tensor, error) {
	raw := make([]byte, 8*len(vals))
	for i, x := range vals {
		binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(x))
	}

	return NewTensor(Float64, shape, raw)
}

// NewUint8Tensor returns a uint8 tensor holding b.
func NewUint8Tensor(shape []int, b []byte) (Tensor, error) {
	return NewTensor(Uint8, shape, b)
}

// Int32Scalar returns a scalar int32 tensor.
func Int32Scalar(x int32) Tensor {
	t, _ := NewInt32Tensor(nil, x)
	return t
}

// Int64Scalar returns a scalar int64 tensor.
func Int64Scalar(x int64) Tensor {
	t, _ := NewInt64Tensor(nil, x)
	return t
}

// Float32Scalar returns a scalar float32 tensor.
func Float32Scalar(x float32) Tensor {
	t, _ := NewFloat32Tensor(nil, x)
	return t
}

// Float64Scalar returns a scalar float64 tensor.
func Float64Scalar(x float64) Tensor {
	t, _ := NewFloat64Tensor(nil, x)
	return t
}

// DType returns the element type.
func (t Tensor) DType() DType {
	return t.dtype
}

// Shape returns a copy of the tensor shape.
func (t Tensor) Shape() []int {
	return copyShape(t.shape)
}

// NumElements returns the number of elements.
func (t Tensor) NumElements() int {
	return NumElements(t.shape)
}

// Bytes returns a copy of the raw little-endian encoding.
func (t Tensor) Bytes() []byte {
	return append([]byte(nil), t.raw...)
}

// Reshape returns a tensor with the same elements and a new shape.
func (t Tensor) Reshape(shape []int) (Tensor, error) {
	if NumElements(shape) != t.NumElements() {
		return Tensor{}, errors.Errorf("cannot reshape %v into %v", t.shape, shape)
	}

	return Tensor{dtype: t.dtype, shape: copyShape(shape), raw: t.raw}, nil
}

// Vector decodes the elements of an integer tensor.
func (t Tensor) Vector() (Vector, error) {
	if !t.dtype.IsInteger() {
		return nil, errors.Errorf("%s tensor has no integer elements", t.dtype)
	}

	size := t.dtype.Size()
	n := t.NumElements()
	v := make(Vector, n)
	for i := 0; i < n; i++ {
		u := getUint(t.raw[i*size : (i+1)*size])
		if t.dtype.IsSigned() {
			shift := uint(64 - 8*size)
			v[i] = big.NewInt(int64(u<<shift) >> shift)
		} else {
			v[i] = new(big.Int).SetUint64(u)
		}
	}

	return v, nil
}

// Float64s returns all elements converted to float64.
func (t Tensor) Float64s() []float64 {
	n := t.NumElements()
	out := make([]float64, n)
	switch t.dtype {
	case Float32:
		for i := range out {
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(t.raw[4*i:])))
		}
	case Float64:
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(t.raw[8*i:]))
		}
	default:
		v, _ := t.Vector()
		for i, x := range v {
			out[i], _ = new(big.Float).SetInt(x).Float64()
		}
	}

	return out
}

// Equal reports whether t and other have the same dtype, shape and
// elements.
func (t Tensor) Equal(other Tensor) bool {
	if t.dtype != other.dtype || len(t.shape) != len(other.shape) {
		return false
	}
	for i := range t.shape {
		if t.shape[i] != other.shape[i] {
			return false
		}
	}

	return bytes.Equal(t.raw, other.raw)
}

func (t Tensor) String() string {
	var sb strings.Builder
	sb.WriteString(t.dtype.String())
	if len(t.shape) > 0 {
		sb.WriteString(fmt.Sprint(t.shape))
	}
	sb.WriteString("{")
	if t.dtype.IsInteger() {
		v, _ := t.Vector()
		sb.WriteString(strings.TrimSpace(v.String()))
	} else {
		for i, x := range t.Float64s() {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(fmt.Sprint(x))
		}
	}
	sb.WriteString("}")

	return sb.String()
}

func copyShape(shape []int) []int {
	if len(shape) == 0 {
		return nil
	}

	return append([]int(nil), shape...)
}

func putUint(b []byte, u uint64) {
	for i := range b {
		b[i] = byte(u >> (8 * uint(i)))
	}
}

func getUint(b []byte) uint64 {
	var u uint64
	for i := range b {
		u |= uint64(b[i]) << (8 * uint(i))
	}

	return u
}
