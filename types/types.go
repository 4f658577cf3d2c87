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

// Package types describes the type signatures of values flowing through a
// federated computation.
//
// There are four kinds of types: tensors (element type and shape), tuples
// of types, functions from one parameter type to a result type, and
// federated types that attach a member type to a placement. Types are
// compared structurally with Equal and can be reduced to a fixed size
// Fingerprint for use as map keys.
//
// The textual form mirrors the compact notation used in logs and tests:
//
//	int32            scalar tensor
//	uint8[32]        tensor of shape [32]
//	<int32,uint8[2]> tuple
//	(int32 -> int64) function
//	int32@SERVER     federated, all members equal
//	{int32}@CLIENTS  federated, members may differ
package types

import (
	"fmt"
	"strings"

	"github.com/fentec-project/fedagg/data"
	"github.com/fentec-project/fedagg/placement"
)

// Type is a type signature.
type Type interface {
	// Equal reports whether the receiver and other are structurally equal.
	Equal(other Type) bool
	String() string

	encode(e *encoder)
}

// TensorType is the type of a data.Tensor.
type TensorType struct {
	DType data.DType
	Shape []int
}

// Tensor returns a tensor type with the given element type and shape.
func Tensor(dtype data.DType, shape ...int) TensorType {
	if len(shape) == 0 {
		shape = nil
	}

	return TensorType{DType: dtype, Shape: shape}
}

// TypeOf returns the type of tensor t.
func TypeOf(t data.Tensor) TensorType {
	return Tensor(t.DType(), t.Shape()...)
}

// NumElements returns the number of elements of a tensor of this type.
func (t TensorType) NumElements() int {
	return data.NumElements(t.Shape)
}

// Equal implements Type.
func (t TensorType) Equal(other Type) bool {
	o, ok := other.(TensorType)
	if !ok || o.DType != t.DType || len(o.Shape) != len(t.Shape) {
		return false
	}
	for i := range t.Shape {
		if t.Shape[i] != o.Shape[i] {
			return false
		}
	}

	return true
}

func (t TensorType) String() string {
	if len(t.Shape) == 0 {
		return t.DType.String()
	}
	dims := make([]string, len(t.Shape))
	for i, d := range t.Shape {
		dims[i] = fmt.Sprint(d)
	}

	return fmt.Sprintf("%s[%s]", t.DType, strings.Join(dims, ","))
}

// Conforms reports whether tensor x has this type.
func (t TensorType) Conforms(x data.Tensor) bool {
	return t.Equal(TypeOf(x))
}

// TupleType is an ordered, unnamed collection of types.
type TupleType struct {
	Elements []Type
}

// Tuple returns the tuple of the given element types.
func Tuple(elements ...Type) TupleType {
	return TupleType{Elements: elements}
}

// Repeat returns the tuple of n copies of t.
func Repeat(t Type, n int) TupleType {
	elements := make([]Type, n)
	for i := range elements {
		elements[i] = t
	}

	return TupleType{Elements: elements}
}

// Len returns the number of elements.
func (t TupleType) Len() int {
	return len(t.Elements)
}

// Equal implements Type.
func (t TupleType) Equal(other Type) bool {
	o, ok := other.(TupleType)
	if !ok || len(o.Elements) != len(t.Elements) {
		return false
	}
	for i := range t.Elements {
		if !equal(t.Elements[i], o.Elements[i]) {
			return false
		}
	}

	return true
}

func (t TupleType) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = str(e)
	}

	return "<" + strings.Join(parts, ",") + ">"
}

// FunctionType is the type of a kernel. A nil Param denotes a function
// without arguments.
type FunctionType struct {
	Param  Type
	Result Type
}

// Function returns the function type from param to result.
func Function(param, result Type) FunctionType {
	return FunctionType{Param: param, Result: result}
}

// Equal implements Type.
func (t FunctionType) Equal(other Type) bool {
	o, ok := other.(FunctionType)
	return ok && equal(t.Param, o.Param) && equal(t.Result, o.Result)
}

func (t FunctionType) String() string {
	return fmt.Sprintf("(%s -> %s)", str(t.Param), str(t.Result))
}

// FederatedType is the type of a value distributed over the members of a
// placement.
type FederatedType struct {
	Member    Type
	Placement placement.Placement
	AllEqual  bool
}

// Federated returns the federated type of member at p.
func Federated(member Type, p placement.Placement, allEqual bool) FederatedType {
	return FederatedType{Member: member, Placement: p, AllEqual: allEqual}
}

// Equal implements Type.
func (t FederatedType) Equal(other Type) bool {
	o, ok := other.(FederatedType)
	return ok && o.Placement == t.Placement && o.AllEqual == t.AllEqual && equal(t.Member, o.Member)
}

func (t FederatedType) String() string {
	if t.AllEqual {
		return fmt.Sprintf("%s@%s", str(t.Member), t.Placement)
	}

	return fmt.Sprintf("{%s}@%s", str(t.Member), t.Placement)
}

// IsKeyType reports whether t is a tensor or a tuple whose elements are
// all tensors, the shapes key material is allowed to take.
func IsKeyType(t Type) bool {
	switch tt := t.(type) {
	case TensorType:
		return true
	case TupleType:
		for _, e := range tt.Elements {
			if _, ok := e.(TensorType); !ok {
				return false
			}
		}
		return true
	}

	return false
}

func equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return a.Equal(b)
}

func str(t Type) string {
	if t == nil {
		return ""
	}

	return t.String()
}
