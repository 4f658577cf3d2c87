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

// Package federated holds values distributed over placements and the
// runtime that maps placements to the executors of their members.
package federated

import (
	"context"
	"io"
	"log/slog"
	"sort"

	"github.com/fentec-project/fedagg/executor"
	"github.com/fentec-project/fedagg/placement"
	"github.com/fentec-project/fedagg/types"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Runtime binds every known placement to the executors of its members.
// The binding is fixed for the lifetime of the runtime.
type Runtime struct {
	executors map[placement.Placement][]executor.Executor
	log       *slog.Logger
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the structured logger inherited by everything built on
// top of the runtime.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRuntime returns a runtime over the given executors. Every placement
// needs at least one executor.
func NewRuntime(executors map[placement.Placement][]executor.Executor, opts ...Option) (*Runtime, error) {
	r := &Runtime{
		executors: make(map[placement.Placement][]executor.Executor, len(executors)),
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for p, exs := range executors {
		if len(exs) == 0 {
			return nil, errors.Wrapf(ErrCardinalityMismatch, "placement %s has no executors", p)
		}
		r.executors[p] = append([]executor.Executor(nil), exs...)
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Logger returns the runtime logger.
func (r *Runtime) Logger() *slog.Logger {
	return r.log
}

// Placements returns the placements known to the runtime, ordered by URI.
func (r *Runtime) Placements() []placement.Placement {
	ps := make([]placement.Placement, 0, len(r.executors))
	for p := range r.executors {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].URI() < ps[j].URI() })

	return ps
}

// Executors returns the executors of the members of p.
func (r *Runtime) Executors(p placement.Placement) ([]executor.Executor, error) {
	exs, ok := r.executors[p]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPlacement, "no executors for %s", p)
	}

	return exs, nil
}

// Cardinality returns the number of members of p.
func (r *Runtime) Cardinality(p placement.Placement) (int, error) {
	exs, err := r.Executors(p)
	if err != nil {
		return 0, err
	}

	return len(exs), nil
}

// NewValue builds a federated value from handles. There must be one
// handle per member of p, or a single handle if allEqual is set, and every
// handle must have the member type.
func (r *Runtime) NewValue(member types.Type, p placement.Placement, allEqual bool, items []executor.Value) (*Value, error) {
	n, err := r.Cardinality(p)
	if err != nil {
		return nil, err
	}
	if len(items) != n && !(allEqual && len(items) == 1) {
		return nil, errors.Wrapf(ErrCardinalityMismatch,
			"%d handles for %d members of %s", len(items), n, p)
	}
	for i, item := range items {
		if !member.Equal(item.Type()) {
			return nil, errors.Wrapf(ErrTypeSignatureMismatch,
				"member %d has type %s, expected %s", i, item.Type(), member)
		}
	}

	return &Value{
		member:    member,
		placement: p,
		allEqual:  allEqual,
		items:     append([]executor.Value(nil), items...),
	}, nil
}

// Embed creates one value per payload on the members of p. With a single
// payload and allEqual set the value is created on the first member only.
func (r *Runtime) Embed(ctx context.Context, member types.Type, p placement.Placement, allEqual bool, payloads ...interface{}) (*Value, error) {
	exs, err := r.Executors(p)
	if err != nil {
		return nil, err
	}
	if len(payloads) != len(exs) && !(allEqual && len(payloads) == 1) {
		return nil, errors.Wrapf(ErrCardinalityMismatch,
			"%d payloads for %d members of %s", len(payloads), len(exs), p)
	}

	items, err := r.Gather(ctx, p, len(payloads), func(ctx context.Context, i int, ex executor.Executor) (executor.Value, error) {
		return ex.CreateValue(ctx, payloads[i], member)
	})
	if err != nil {
		return nil, err
	}

	return r.NewValue(member, p, allEqual, items)
}

// Gather runs fn concurrently for the first n members of p and collects
// the returned handles in member order. The first error cancels the rest.
func (r *Runtime) Gather(ctx context.Context, p placement.Placement, n int,
	fn func(ctx context.Context, i int, ex executor.Executor) (executor.Value, error)) ([]executor.Value, error) {
	exs, err := r.Executors(p)
	if err != nil {
		return nil, err
	}
	if n > len(exs) {
		return nil, errors.Wrapf(ErrCardinalityMismatch, "%d of %d members of %s", n, len(exs), p)
	}

	out := make([]executor.Value, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			v, err := fn(gctx, i, exs[i])
			if err != nil {
				return errors.Wrapf(err, "member %d of %s", i, p)
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// Map applies fn to every handle of v on the executor of its member and
// returns the results. The result type and all-equal flag are given by
// the caller.
func (r *Runtime) Map(ctx context.Context, v *Value, result types.Type, allEqual bool,
	fn func(ctx context.Context, ex executor.Executor, item executor.Value) (executor.Value, error)) (*Value, error) {
	items, err := r.Gather(ctx, v.placement, len(v.items), func(ctx context.Context, i int, ex executor.Executor) (executor.Value, error) {
		return fn(ctx, ex, v.items[i])
	})
	if err != nil {
		return nil, err
	}

	return r.NewValue(result, v.placement, allEqual, items)
}

// Zip applies fn member-wise to values living at the same placement with
// the same number of handles.
func (r *Runtime) Zip(ctx context.Context, vs []*Value, result types.Type, allEqual bool,
	fn func(ctx context.Context, ex executor.Executor, items []executor.Value) (executor.Value, error)) (*Value, error) {
	if len(vs) == 0 {
		return nil, errors.New("nothing to zip")
	}
	p, n := vs[0].placement, len(vs[0].items)
	for _, v := range vs[1:] {
		if v.placement != p {
			return nil, errors.Wrapf(ErrPlacementMismatch, "cannot zip %s with %s", v, vs[0])
		}
		if len(v.items) != n {
			return nil, errors.Wrapf(ErrCardinalityMismatch, "cannot zip %d with %d handles", len(v.items), n)
		}
	}

	items, err := r.Gather(ctx, p, n, func(ctx context.Context, i int, ex executor.Executor) (executor.Value, error) {
		row := make([]executor.Value, len(vs))
		for j, v := range vs {
			row[j] = v.items[i]
		}
		return fn(ctx, ex, row)
	})
	if err != nil {
		return nil, err
	}

	return r.NewValue(result, p, allEqual, items)
}

// Expand returns v with one handle per member. A single all-equal handle
// is replicated onto every member's executor.
func (r *Runtime) Expand(ctx context.Context, v *Value) (*Value, error) {
	n, err := r.Cardinality(v.placement)
	if err != nil {
		return nil, err
	}
	if len(v.items) == n {
		return v, nil
	}
	if !v.allEqual || len(v.items) != 1 {
		return nil, errors.Wrapf(ErrCardinalityMismatch,
			"cannot expand %d handles to %d members of %s", len(v.items), n, v.placement)
	}

	items, err := r.Gather(ctx, v.placement, n, func(ctx context.Context, _ int, ex executor.Executor) (executor.Value, error) {
		return Move(ctx, v.items[0], ex)
	})
	if err != nil {
		return nil, err
	}

	return r.NewValue(v.member, v.placement, v.allEqual, items)
}

// Move materializes item and re-creates it on executor to.
func Move(ctx context.Context, item executor.Value, to executor.Executor) (executor.Value, error) {
	p, err := item.Compute(ctx)
	if err != nil {
		return nil, err
	}

	return to.CreateValue(ctx, p, item.Type())
}
