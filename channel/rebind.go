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

package channel

import (
	"context"

	"github.com/fentec-project/fedagg/executor"
	"github.com/fentec-project/fedagg/federated"
	"github.com/fentec-project/fedagg/placement"
	"github.com/fentec-project/fedagg/types"
	"github.com/pkg/errors"
)

// Handles cross placements only by being computed on the source executor
// and re-created on the destination one.

// elementwise moves handle i of v to member i of to.
func elementwise(ctx context.Context, rt *federated.Runtime, v *federated.Value, to placement.Placement) (*federated.Value, error) {
	items, err := rt.Gather(ctx, to, v.Len(), func(ctx context.Context, i int, ex executor.Executor) (executor.Value, error) {
		return federated.Move(ctx, v.Item(i), ex)
	})
	if err != nil {
		return nil, err
	}

	return rt.NewValue(v.Member(), to, v.AllEqual(), items)
}

// gather bundles all handles of v into one tuple at the single member of to.
func gather(ctx context.Context, rt *federated.Runtime, v *federated.Value, to placement.Placement) (*federated.Value, error) {
	moved, err := rt.Gather(ctx, to, 1, func(ctx context.Context, _ int, ex executor.Executor) (executor.Value, error) {
		elements := make([]executor.Value, v.Len())
		for i := range elements {
			e, err := federated.Move(ctx, v.Item(i), ex)
			if err != nil {
				return nil, err
			}
			elements[i] = e
		}

		return ex.CreateTuple(ctx, elements)
	})
	if err != nil {
		return nil, err
	}

	return rt.NewValue(types.Repeat(v.Member(), v.Len()), to, true, moved)
}

// replicate copies the single handle of v to every member of to.
func replicate(ctx context.Context, rt *federated.Runtime, v *federated.Value, to placement.Placement, allEqual bool) (*federated.Value, error) {
	m, err := rt.Cardinality(to)
	if err != nil {
		return nil, err
	}
	items, err := rt.Gather(ctx, to, m, func(ctx context.Context, _ int, ex executor.Executor) (executor.Value, error) {
		return federated.Move(ctx, v.Item(0), ex)
	})
	if err != nil {
		return nil, err
	}

	return rt.NewValue(v.Member(), to, allEqual, items)
}

// scatter sends element j of the single tuple handle of v to member j of
// to.
func scatter(ctx context.Context, rt *federated.Runtime, v *federated.Value, to placement.Placement) (*federated.Value, error) {
	tt, ok := v.Member().(types.TupleType)
	if !ok {
		return nil, errors.Wrapf(federated.ErrTypeSignatureMismatch, "cannot scatter %s", v.Type())
	}
	m, err := rt.Cardinality(to)
	if err != nil {
		return nil, err
	}
	if tt.Len() != m {
		return nil, errors.Wrapf(federated.ErrCardinalityMismatch,
			"cannot scatter %d elements to %d members of %s", tt.Len(), m, to)
	}

	payload, err := v.Item(0).Compute(ctx)
	if err != nil {
		return nil, err
	}
	elements := payload.([]interface{})
	items, err := rt.Gather(ctx, to, m, func(ctx context.Context, j int, ex executor.Executor) (executor.Value, error) {
		return ex.CreateValue(ctx, elements[j], tt.Elements[j])
	})
	if err != nil {
		return nil, err
	}

	return rt.NewValue(tt.Elements[0], to, false, items)
}

// route moves a plaintext value to the other placement: one handle is
// replicated, many handles are gathered at a single member, and equal
// counts move member-wise.
func route(ctx context.Context, rt *federated.Runtime, v *federated.Value, to placement.Placement) (*federated.Value, error) {
	v, err := rt.Expand(ctx, v)
	if err != nil {
		return nil, err
	}
	n := v.Len()
	m, err := rt.Cardinality(to)
	if err != nil {
		return nil, err
	}

	switch {
	case n == m:
		return elementwise(ctx, rt, v, to)
	case m == 1:
		return gather(ctx, rt, v, to)
	case n == 1:
		return replicate(ctx, rt, v, to, false)
	}

	return nil, errors.Wrapf(federated.ErrCardinalityMismatch,
		"cannot move %d handles of %s to %d members of %s", n, v.Placement(), m, to)
}
