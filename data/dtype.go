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
	"math/big"
)

// DType is the element type of a Tensor.
type DType uint8

// Supported element types.
const (
	Invalid DType = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
)

var dtypeNames = [...]string{
	Invalid: "invalid",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	Uint8:   "uint8",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
}

var dtypeSizes = [...]int{
	Int8: 1, Int16: 2, Int32: 4, Int64: 8,
	Uint8: 1, Uint16: 2, Uint32: 4, Uint64: 8,
	Float32: 4, Float64: 8,
}

// ParseDType returns the DType with the given name, e.g. "int32".
func ParseDType(name string) (DType, bool) {
	for i, n := range dtypeNames {
		if n == name && DType(i) != Invalid {
			return DType(i), true
		}
	}

	return Invalid, false
}

// Valid reports whether d is one of the supported element types.
func (d DType) Valid() bool {
	return d > Invalid && int(d) < len(dtypeNames)
}

// Size returns the number of bytes a single element occupies.
func (d DType) Size() int {
	if !d.Valid() {
		return 0
	}

	return dtypeSizes[d]
}

// IsInteger reports whether d is a signed or unsigned integer type.
func (d DType) IsInteger() bool {
	return d >= Int8 && d <= Uint64
}

// IsSigned reports whether d is a signed integer type.
func (d DType) IsSigned() bool {
	return d >= Int8 && d <= Int64
}

// Bounds returns the inclusive range [min, max] of an integer type.
// It returns nil bounds for non integer types.
func (d DType) Bounds() (*big.Int, *big.Int) {
	if !d.IsInteger() {
		return nil, nil
	}

	bits := uint(8 * d.Size())
	if d.IsSigned() {
		max := new(big.Int).Lsh(big.NewInt(1), bits-1)
		min := new(big.Int).Neg(max)
		max.Sub(max, big.NewInt(1))
		return min, max
	}
	max := new(big.Int).Lsh(big.NewInt(1), bits)
	max.Sub(max, big.NewInt(1))

	return big.NewInt(0), max
}

func (d DType) String() string {
	if int(d) >= len(dtypeNames) {
		return dtypeNames[Invalid]
	}

	return dtypeNames[d]
}
