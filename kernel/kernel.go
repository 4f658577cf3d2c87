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

// Package kernel defines the pure typed functions executed by participants
// and a cache that materializes each kernel definition once per argument
// signature.
package kernel

import (
	"context"
	"sync"

	"github.com/fentec-project/fedagg/executor"
	"github.com/fentec-project/fedagg/types"
)

// Kind names a family of kernels, e.g. "box.encrypt".
type Kind string

// Func is the body of a kernel.
type Func func(ctx context.Context, arg interface{}) (interface{}, error)

// Kernel is a typed pure function. It implements executor.Function, so it
// can be embedded into any executor as a value of its FunctionType.
type Kernel struct {
	kind Kind
	typ  types.FunctionType
	fn   Func
}

// New returns a kernel of the given kind and type.
func New(kind Kind, typ types.FunctionType, fn Func) *Kernel {
	return &Kernel{kind: kind, typ: typ, fn: fn}
}

// Kind returns the kernel family.
func (k *Kernel) Kind() Kind {
	return k.kind
}

// Type returns the function type of the kernel.
func (k *Kernel) Type() types.FunctionType {
	return k.typ
}

// Invoke runs the kernel body.
func (k *Kernel) Invoke(ctx context.Context, arg interface{}) (interface{}, error) {
	return k.fn(ctx, arg)
}

// Call embeds k on ex and applies it to args, bundled into a tuple. With
// no args the kernel is called without an argument.
func Call(ctx context.Context, ex executor.Executor, k *Kernel, args ...executor.Value) (executor.Value, error) {
	fn, err := ex.CreateValue(ctx, k, k.Type())
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return ex.CreateCall(ctx, fn, nil)
	}
	arg, err := ex.CreateTuple(ctx, args)
	if err != nil {
		return nil, err
	}

	return ex.CreateCall(ctx, fn, arg)
}

func (k *Kernel) String() string {
	return string(k.kind) + k.typ.String()
}

// Descriptor is the structural cache key of a kernel: its kind, the
// fingerprint of its argument types, the fingerprint of any type valued
// factory parameters and an optional integer parameter.
type Descriptor struct {
	Kind   Kind
	Args   types.Fingerprint
	Params types.Fingerprint
	Scalar int
}

// Describe returns the descriptor of a kernel of kind over args,
// parameterized by params.
func Describe(kind Kind, args []types.Type, params ...types.Type) Descriptor {
	return Descriptor{
		Kind:   kind,
		Args:   types.FingerprintOf(args...),
		Params: types.FingerprintOf(params...),
	}
}

// WithScalar returns a copy of d carrying the integer parameter x.
func (d Descriptor) WithScalar(x int) Descriptor {
	d.Scalar = x
	return d
}

// Cache memoizes kernel definitions. For a given descriptor the build
// function passed to Materialize runs at most once successfully.
type Cache struct {
	mu      sync.Mutex
	entries map[Descriptor]*Kernel
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[Descriptor]*Kernel)}
}

// Materialize returns the kernel stored under d, building and storing it
// first if needed. Failed builds are not cached.
func (c *Cache) Materialize(d Descriptor, build func() (*Kernel, error)) (*Kernel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if k, ok := c.entries[d]; ok {
		return k, nil
	}
	k, err := build()
	if err != nil {
		return nil, err
	}
	c.entries[d] = k

	return k, nil
}

// Len returns the number of cached kernels.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
