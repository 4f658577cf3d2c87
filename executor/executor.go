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

// Package executor describes the compute capability a single participant
// offers to the aggregation protocol.
//
// An Executor builds handles: literal values, calls of functions on
// values, tuples and selections from tuples. Handles are materialized with
// Value.Compute. Payloads follow a fixed convention keyed by type:
//
//	types.TensorType   data.Tensor
//	types.TupleType    []interface{}
//	types.FunctionType Function
//
// Local is an in-process implementation used by tests and the demo binary.
package executor

import (
	"context"

	"github.com/fentec-project/fedagg/types"
	"github.com/pkg/errors"
)

var (
	// ErrTypeMismatch is returned when a payload or handle does not have
	// the type it is used as.
	ErrTypeMismatch = errors.New("type signature mismatch")
	// ErrForeignValue is returned when a handle created by one executor is
	// passed to another. Values cross executors only by being computed and
	// re-created.
	ErrForeignValue = errors.New("value belongs to another executor")
)

// Value is a handle to a value living on an executor.
type Value interface {
	Type() types.Type
	// Compute materializes the handle into its payload.
	Compute(ctx context.Context) (interface{}, error)
}

// Function is the payload of a value of functional type.
type Function interface {
	Type() types.FunctionType
	Invoke(ctx context.Context, arg interface{}) (interface{}, error)
}

// Executor is the per-participant compute capability.
type Executor interface {
	// CreateValue embeds payload as a value of type t.
	CreateValue(ctx context.Context, payload interface{}, t types.Type) (Value, error)
	// CreateCall applies fn to arg. Arg must be nil for functions without
	// a parameter.
	CreateCall(ctx context.Context, fn, arg Value) (Value, error)
	// CreateTuple bundles elements into one tuple value.
	CreateTuple(ctx context.Context, elements []Value) (Value, error)
	// CreateSelection selects element index of a tuple value.
	CreateSelection(ctx context.Context, v Value, index int) (Value, error)
}
