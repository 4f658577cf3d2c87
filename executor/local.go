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

package executor

import (
	"context"
	"sync"

	"github.com/fentec-project/fedagg/data"
	"github.com/fentec-project/fedagg/types"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// Local is an in-process Executor. Calls are evaluated lazily, the first
// time a dependent handle is computed, and their results are memoized.
type Local struct {
	name  string
	calls atomic.Int64
}

// NewLocal returns a new Local executor. The name only shows up in error
// messages.
func NewLocal(name string) *Local {
	return &Local{name: name}
}

// Name returns the name the executor was created with.
func (l *Local) Name() string {
	return l.name
}

// Calls returns the number of function invocations evaluated so far.
func (l *Local) Calls() int64 {
	return l.calls.Load()
}

type localValue struct {
	owner *Local
	typ   types.Type

	mu      sync.Mutex
	done    bool
	payload interface{}
	thunk   func(ctx context.Context) (interface{}, error)
}

func (v *localValue) Type() types.Type {
	return v.typ
}

func (v *localValue) Compute(ctx context.Context) (interface{}, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.done {
		return v.payload, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	payload, err := v.thunk(ctx)
	if err != nil {
		return nil, err
	}
	v.payload, v.done, v.thunk = payload, true, nil

	return payload, nil
}

func (l *Local) own(v Value) (*localValue, error) {
	lv, ok := v.(*localValue)
	if !ok || lv.owner != l {
		return nil, errors.Wrapf(ErrForeignValue, "executor %s", l.name)
	}

	return lv, nil
}

// CreateValue implements Executor.
func (l *Local) CreateValue(_ context.Context, payload interface{}, t types.Type) (Value, error) {
	if err := Conforms(payload, t); err != nil {
		return nil, errors.Wrapf(err, "executor %s", l.name)
	}

	return &localValue{owner: l, typ: t, done: true, payload: payload}, nil
}

// CreateCall implements Executor.
func (l *Local) CreateCall(_ context.Context, fn, arg Value) (Value, error) {
	fv, err := l.own(fn)
	if err != nil {
		return nil, err
	}
	ft, ok := fv.typ.(types.FunctionType)
	if !ok {
		return nil, errors.Wrapf(ErrTypeMismatch, "cannot call a value of type %s", fv.typ)
	}

	var av *localValue
	switch {
	case arg == nil && ft.Param != nil:
		return nil, errors.Wrapf(ErrTypeMismatch, "%s needs an argument", ft)
	case arg != nil:
		if ft.Param == nil || !ft.Param.Equal(arg.Type()) {
			return nil, errors.Wrapf(ErrTypeMismatch, "cannot apply %s to %s", ft, arg.Type())
		}
		if av, err = l.own(arg); err != nil {
			return nil, err
		}
	}

	thunk := func(ctx context.Context) (interface{}, error) {
		p, err := fv.Compute(ctx)
		if err != nil {
			return nil, err
		}
		var a interface{}
		if av != nil {
			if a, err = av.Compute(ctx); err != nil {
				return nil, err
			}
		}

		l.calls.Inc()
		res, err := p.(Function).Invoke(ctx, a)
		if err != nil {
			return nil, err
		}
		if err := Conforms(res, ft.Result); err != nil {
			return nil, errors.Wrapf(err, "result of %s", ft)
		}

		return res, nil
	}

	return &localValue{owner: l, typ: ft.Result, thunk: thunk}, nil
}

// CreateTuple implements Executor.
func (l *Local) CreateTuple(_ context.Context, elements []Value) (Value, error) {
	vs := make([]*localValue, len(elements))
	ts := make([]types.Type, len(elements))
	for i, e := range elements {
		v, err := l.own(e)
		if err != nil {
			return nil, err
		}
		vs[i], ts[i] = v, v.typ
	}

	thunk := func(ctx context.Context) (interface{}, error) {
		out := make([]interface{}, len(vs))
		for i, v := range vs {
			p, err := v.Compute(ctx)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}

		return out, nil
	}

	return &localValue{owner: l, typ: types.Tuple(ts...), thunk: thunk}, nil
}

// CreateSelection implements Executor.
func (l *Local) CreateSelection(_ context.Context, v Value, index int) (Value, error) {
	tv, err := l.own(v)
	if err != nil {
		return nil, err
	}
	tt, ok := tv.typ.(types.TupleType)
	if !ok {
		return nil, errors.Wrapf(ErrTypeMismatch, "cannot select from %s", tv.typ)
	}
	if index < 0 || index >= tt.Len() {
		return nil, errors.Errorf("index %d out of range for %s", index, tt)
	}

	thunk := func(ctx context.Context) (interface{}, error) {
		p, err := tv.Compute(ctx)
		if err != nil {
			return nil, err
		}

		return p.([]interface{})[index], nil
	}

	return &localValue{owner: l, typ: tt.Elements[index], thunk: thunk}, nil
}

// Conforms checks that payload follows the payload convention for type t.
func Conforms(payload interface{}, t types.Type) error {
	switch tt := t.(type) {
	case types.TensorType:
		x, ok := payload.(data.Tensor)
		if !ok {
			return errors.Wrapf(ErrTypeMismatch, "%T is not a tensor", payload)
		}
		if !tt.Conforms(x) {
			return errors.Wrapf(ErrTypeMismatch, "tensor %s is not of type %s", types.TypeOf(x), tt)
		}
	case types.TupleType:
		xs, ok := payload.([]interface{})
		if !ok || len(xs) != tt.Len() {
			return errors.Wrapf(ErrTypeMismatch, "payload is not a tuple %s", tt)
		}
		for i, x := range xs {
			if err := Conforms(x, tt.Elements[i]); err != nil {
				return errors.Wrapf(err, "element %d", i)
			}
		}
	case types.FunctionType:
		f, ok := payload.(Function)
		if !ok {
			return errors.Wrapf(ErrTypeMismatch, "%T is not a function", payload)
		}
		if !tt.Equal(f.Type()) {
			return errors.Wrapf(ErrTypeMismatch, "function %s is not of type %s", f.Type(), tt)
		}
	default:
		return errors.Wrapf(ErrTypeMismatch, "no payload can have type %v", t)
	}

	return nil
}
