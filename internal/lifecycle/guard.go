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

// Package lifecycle provides the one-shot setup guard of channels, grids
// and aggregation strategies.
package lifecycle

import (
	"context"

	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"
)

// State is the setup state of a guarded object.
type State int32

// Setup states. The only transitions are Unconfigured -> Configuring,
// Configuring -> Ready and, on failure, Configuring -> Unconfigured.
const (
	Unconfigured State = iota
	Configuring
	Ready
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configuring:
		return "configuring"
	case Ready:
		return "ready"
	}

	return "invalid"
}

// Guard runs a setup function once. Concurrent callers share the single
// in-flight run. The zero value is an unconfigured guard.
type Guard struct {
	state atomic.Int32
	group singleflight.Group
}

// State returns the current state.
func (g *Guard) State() State {
	return State(g.state.Load())
}

// Ready reports whether setup completed.
func (g *Guard) Ready() bool {
	return g.State() == Ready
}

// Do runs setup unless it already completed, or waits for the run in
// flight. The run gets the values of the context of the caller that
// started it but none of its cancellation, so it is shared by every
// waiter. A caller whose own ctx ends stops waiting and the run goes on.
func (g *Guard) Do(ctx context.Context, setup func(ctx context.Context) error) error {
	if g.Ready() {
		return nil
	}

	runCtx := context.WithoutCancel(ctx)
	ch := g.group.DoChan("setup", func() (interface{}, error) {
		if g.Ready() {
			return nil, nil
		}
		g.state.Store(int32(Configuring))
		if err := setup(runCtx); err != nil {
			g.state.Store(int32(Unconfigured))
			return nil, err
		}
		g.state.Store(int32(Ready))

		return nil, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}
