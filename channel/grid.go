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
	"sort"
	"sync"

	"github.com/fentec-project/fedagg/federated"
	"github.com/fentec-project/fedagg/internal/lifecycle"
	"github.com/fentec-project/fedagg/placement"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Grid holds one channel per unordered pair of placements. It is built
// from channel factories; Setup instantiates and sets up all channels at
// once.
type Grid struct {
	factories map[placement.Pair]Factory
	guard     lifecycle.Guard

	mu       sync.RWMutex
	channels map[placement.Pair]Channel
}

// NewGrid returns a grid that will build its channels with factories.
func NewGrid(factories map[placement.Pair]Factory) *Grid {
	g := &Grid{factories: make(map[placement.Pair]Factory, len(factories))}
	for pair, f := range factories {
		g.factories[placement.NewPair(pair.Placements())] = f
	}

	return g
}

// Setup builds every channel against rt and sets them up concurrently.
// Subsequent calls return immediately.
func (g *Grid) Setup(ctx context.Context, rt *federated.Runtime) error {
	return g.guard.Do(ctx, func(ctx context.Context) error {
		built := make(map[placement.Pair]Channel, len(g.factories))
		for pair, f := range g.factories {
			ch, err := f(rt, pair)
			if err != nil {
				return errors.Wrapf(err, "building channel %s", pair)
			}
			built[pair] = ch
		}

		eg, egctx := errgroup.WithContext(ctx)
		for pair, ch := range built {
			pair, ch := pair, ch
			eg.Go(func() error {
				return errors.Wrapf(ch.Setup(egctx), "setting up channel %s", pair)
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}

		g.mu.Lock()
		g.channels = built
		g.mu.Unlock()
		rt.Logger().Info("channel grid ready", "channels", len(built))

		return nil
	})
}

// Ready reports whether Setup completed.
func (g *Grid) Ready() bool {
	return g.guard.Ready()
}

// Lookup returns the channel between a and b in either order, or nil if
// there is none or the grid is not set up.
func (g *Grid) Lookup(a, b placement.Placement) Channel {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.channels[placement.NewPair(a, b)]
}

// Channel is like Lookup but reports why no channel is available.
func (g *Grid) Channel(a, b placement.Placement) (Channel, error) {
	pair := placement.NewPair(a, b)
	if _, ok := g.factories[pair]; !ok {
		return nil, errors.Wrapf(federated.ErrMissingChannel, "no channel registered for %s", pair)
	}
	ch := g.Lookup(a, b)
	if ch == nil {
		return nil, errors.Wrapf(federated.ErrUninitializedKeyMaterial, "channel %s is not set up", pair)
	}

	return ch, nil
}

// Pairs returns the registered pairs in a stable order.
func (g *Grid) Pairs() []placement.Pair {
	pairs := make([]placement.Pair, 0, len(g.factories))
	for pair := range g.factories {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].String() < pairs[j].String()
	})

	return pairs
}
