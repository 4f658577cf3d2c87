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
	"log/slog"

	"github.com/fentec-project/fedagg/executor"
	"github.com/fentec-project/fedagg/federated"
	"github.com/fentec-project/fedagg/internal/lifecycle"
	"github.com/fentec-project/fedagg/kernel"
	"github.com/fentec-project/fedagg/placement"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// SealedBoxChannel encrypts every value it moves with NaCl box under the
// sender member's secret key and the receiver member's public key.
type SealedBoxChannel struct {
	rt      *federated.Runtime
	pair    placement.Pair
	keys    *KeyStore
	kernels boxKernels
	guard   lifecycle.Guard
	log     *slog.Logger

	// by sender
	routes map[placement.Placement]combinator
}

// NewSealedBox is the Factory of sealed box channels. It fails with
// federated.ErrUnsupportedKeyTopology if both placements have more than
// one member.
func NewSealedBox(rt *federated.Runtime, pair placement.Pair) (Channel, error) {
	a, b := pair.Placements()
	na, err := rt.Cardinality(a)
	if err != nil {
		return nil, err
	}
	nb, err := rt.Cardinality(b)
	if err != nil {
		return nil, err
	}
	if na > 1 && nb > 1 {
		return nil, errors.Wrapf(federated.ErrUnsupportedKeyTopology,
			"%d members of %s and %d members of %s", na, a, nb, b)
	}

	return &SealedBoxChannel{
		rt:      rt,
		pair:    pair,
		keys:    NewKeyStore(),
		kernels: boxKernels{cache: kernel.NewCache()},
		log:     rt.Logger().With("channel", pair.String()),
		routes: map[placement.Placement]combinator{
			a: newCombinator(a, na, b, nb),
			b: newCombinator(b, nb, a, na),
		},
	}, nil
}

// Placements implements Channel.
func (c *SealedBoxChannel) Placements() placement.Pair {
	return c.pair
}

// KeyStore returns the key material of the channel. It is populated by
// Setup.
func (c *SealedBoxChannel) KeyStore() *KeyStore {
	return c.keys
}

// Setup implements Channel. It generates a key pair for every member of
// both placements and shares each placement's public keys with the other.
func (c *SealedBoxChannel) Setup(ctx context.Context) error {
	return c.guard.Do(ctx, func(ctx context.Context) error {
		a, b := c.pair.Placements()

		g, gctx := errgroup.WithContext(ctx)
		for _, owner := range []placement.Placement{a, b} {
			owner := owner
			g.Go(func() error {
				return c.provision(gctx, owner)
			})
		}
		if err := g.Wait(); err != nil {
			return errors.Wrap(err, "sealed box setup failed")
		}
		c.log.Info("sealed box channel ready")

		return nil
	})
}

// provision generates the keys of owner, keeps the secret keys there and
// shares the public keys with the other endpoint.
func (c *SealedBoxChannel) provision(ctx context.Context, owner placement.Placement) error {
	peer, _ := c.pair.Other(owner)
	k, err := c.kernels.keygen()
	if err != nil {
		return err
	}

	n, err := c.rt.Cardinality(owner)
	if err != nil {
		return err
	}
	pairs, err := c.rt.Gather(ctx, owner, n, func(ctx context.Context, _ int, ex executor.Executor) (executor.Value, error) {
		return kernel.Call(ctx, ex, k)
	})
	if err != nil {
		return err
	}
	kv, err := c.rt.NewValue(k.Type().Result, owner, n == 1, pairs)
	if err != nil {
		return err
	}

	pk, err := selectKey(ctx, c.rt, kv, 0)
	if err != nil {
		return err
	}
	sk, err := selectKey(ctx, c.rt, kv, 1)
	if err != nil {
		return err
	}

	var shared *federated.Value
	if n > 1 {
		shared, err = gather(ctx, c.rt, pk, peer)
	} else {
		shared, err = replicate(ctx, c.rt, pk, peer, true)
	}
	if err != nil {
		return errors.Wrapf(err, "sharing keys of %s", owner)
	}
	c.log.Debug("public keys shared", "owner", owner.Name(), "at", shared.Type().String())

	return c.keys.UpdateKeys(owner, shared, sk)
}

func selectKey(ctx context.Context, rt *federated.Runtime, kv *federated.Value, index int) (*federated.Value, error) {
	return rt.Map(ctx, kv, KeyType, kv.AllEqual(),
		func(ctx context.Context, ex executor.Executor, item executor.Value) (executor.Value, error) {
			return ex.CreateSelection(ctx, item, index)
		})
}

// Send implements Channel. The result holds sealed box records at the
// sender placement.
func (c *SealedBoxChannel) Send(ctx context.Context, v *federated.Value) (*federated.Value, error) {
	if !c.guard.Ready() {
		return nil, errors.Wrapf(federated.ErrUninitializedKeyMaterial, "channel %s", c.pair)
	}
	comb, ok := c.routes[v.Placement()]
	if !ok {
		return nil, errors.Wrapf(federated.ErrPlacementMismatch,
			"%s is not an endpoint of %s", v.Placement(), c.pair)
	}

	c.log.Debug("sealing", "from", v.Placement().Name(), "type", v.Type().String())
	return comb.seal(ctx, c, v)
}

// Receive implements Channel. Every record opens as the plaintext type it
// was sealed with, which its record type carries.
func (c *SealedBoxChannel) Receive(ctx context.Context, v *federated.Value) (*federated.Value, error) {
	if !c.guard.Ready() {
		return nil, errors.Wrapf(federated.ErrUninitializedKeyMaterial, "channel %s", c.pair)
	}
	from, err := endpoints(c.pair, v.Placement())
	if err != nil {
		return nil, err
	}

	c.log.Debug("opening", "at", v.Placement().Name(), "type", v.Type().String())
	return c.routes[from].open(ctx, c, v)
}

// Transfer implements Channel.
func (c *SealedBoxChannel) Transfer(ctx context.Context, v *federated.Value) (*federated.Value, error) {
	sealed, err := c.Send(ctx, v)
	if err != nil {
		return nil, err
	}
	moved, err := c.routes[v.Placement()].rebind(ctx, c.rt, sealed)
	if err != nil {
		return nil, err
	}

	return c.Receive(ctx, moved)
}
