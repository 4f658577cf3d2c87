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

// Package secagg implements secure summation of client values with the
// Paillier cryptosystem.
//
// The server generates one Paillier key pair and shares the encryption key
// with the clients and the aggregator. Every client encrypts its value,
// the aggregator adds the ciphertexts homomorphically and hands the single
// refreshed sum to the server, which is the only party able to decrypt
// it. All moves between placements go through a channel.Grid, so the hops
// can be plaintext or sealed box channels independently.
package secagg

import (
	"context"
	"log/slog"
	"sync"

	"github.com/fentec-project/fedagg/channel"
	"github.com/fentec-project/fedagg/crypto/paillier"
	"github.com/fentec-project/fedagg/executor"
	"github.com/fentec-project/fedagg/federated"
	"github.com/fentec-project/fedagg/internal/lifecycle"
	"github.com/fentec-project/fedagg/kernel"
	"github.com/fentec-project/fedagg/placement"
	"github.com/fentec-project/fedagg/types"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Strategy is the Paillier secure sum aggregation. It is safe for
// concurrent use; keys are provisioned on the first SecureSum or Setup
// call.
type Strategy struct {
	rt      *federated.Runtime
	grid    *channel.Grid
	kernels kernels
	keygen  *kernel.Kernel
	guard   lifecycle.Guard
	log     *slog.Logger

	modulusLength int

	mu   sync.RWMutex
	keys *keyMaterial
}

// keyMaterial is the placed Paillier key pair.
type keyMaterial struct {
	ekClients    *federated.Value
	ekAggregator *federated.Value
	ekServer     *federated.Value
	dk           *federated.Value
}

// Option configures a Strategy.
type Option func(*Strategy)

// WithModulusLength sets the bit length of the Paillier modulus generated
// by the default key generator.
func WithModulusLength(bits int) Option {
	return func(s *Strategy) {
		s.modulusLength = bits
	}
}

// WithKeyGenerator replaces the default key generator. The kernel takes no
// argument and returns <ek, <lambda, mu>>, all uint8[B] tensors.
func WithKeyGenerator(k *kernel.Kernel) Option {
	return func(s *Strategy) {
		s.keygen = k
	}
}

// New returns a strategy running on rt and moving values through grid.
// The runtime needs a single SERVER and a single AGGREGATOR member and at
// least one CLIENTS member.
func New(rt *federated.Runtime, grid *channel.Grid, opts ...Option) (*Strategy, error) {
	s := &Strategy{
		rt:            rt,
		grid:          grid,
		log:           rt.Logger().With("strategy", "paillier"),
		modulusLength: paillier.DefaultModulusLength,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, p := range []placement.Placement{placement.Server, placement.Aggregator} {
		n, err := rt.Cardinality(p)
		if err != nil {
			return nil, err
		}
		if n != 1 {
			return nil, errors.Wrapf(federated.ErrCardinalityMismatch,
				"%s needs exactly one member, has %d", p, n)
		}
	}
	if _, err := rt.Cardinality(placement.Clients); err != nil {
		return nil, err
	}

	cache := kernel.NewCache()
	if s.keygen == nil {
		s.kernels = kernels{cache: cache, width: paillier.KeyByteLen(s.modulusLength)}
		k, err := s.kernels.keygen(s.modulusLength)
		if err != nil {
			return nil, err
		}
		s.keygen = k
	} else {
		width, err := keyWidth(s.keygen.Type())
		if err != nil {
			return nil, err
		}
		s.kernels = kernels{cache: cache, width: width}
	}

	return s, nil
}

// Ready reports whether keys have been provisioned.
func (s *Strategy) Ready() bool {
	return s.guard.Ready()
}

// Setup sets up the grid and provisions the Paillier keys. It runs once;
// later calls return immediately.
func (s *Strategy) Setup(ctx context.Context) error {
	return s.guard.Do(ctx, func(ctx context.Context) error {
		if err := s.grid.Setup(ctx, s.rt); err != nil {
			return err
		}

		keys, err := s.provision(ctx)
		if err != nil {
			return errors.Wrap(err, "provisioning paillier keys")
		}
		s.mu.Lock()
		s.keys = keys
		s.mu.Unlock()
		s.log.Info("paillier keys provisioned", "key_bytes", s.kernels.width)

		return nil
	})
}

// provision generates the key pair at the server and moves the encryption
// key to the clients and the aggregator.
func (s *Strategy) provision(ctx context.Context) (*keyMaterial, error) {
	pairs, err := s.rt.Gather(ctx, placement.Server, 1, func(ctx context.Context, _ int, ex executor.Executor) (executor.Value, error) {
		return kernel.Call(ctx, ex, s.keygen)
	})
	if err != nil {
		return nil, err
	}
	kv, err := s.rt.NewValue(s.keygen.Type().Result, placement.Server, true, pairs)
	if err != nil {
		return nil, err
	}

	ekType, dkType := keyTypes(s.kernels.width)
	keys := &keyMaterial{}
	if keys.ekServer, err = s.selectKey(ctx, kv, ekType, 0); err != nil {
		return nil, err
	}
	if keys.dk, err = s.selectKey(ctx, kv, dkType, 1); err != nil {
		return nil, err
	}

	toClients, err := s.grid.Channel(placement.Server, placement.Clients)
	if err != nil {
		return nil, err
	}
	toAggregator, err := s.grid.Channel(placement.Server, placement.Aggregator)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		keys.ekClients, err = toClients.Transfer(gctx, keys.ekServer)
		return errors.Wrap(err, "sharing the encryption key with CLIENTS")
	})
	g.Go(func() error {
		var err error
		keys.ekAggregator, err = toAggregator.Transfer(gctx, keys.ekServer)
		return errors.Wrap(err, "sharing the encryption key with AGGREGATOR")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return keys, nil
}

func (s *Strategy) selectKey(ctx context.Context, kv *federated.Value, t types.Type, index int) (*federated.Value, error) {
	return s.rt.Map(ctx, kv, t, true, func(ctx context.Context, ex executor.Executor, item executor.Value) (executor.Value, error) {
		return ex.CreateSelection(ctx, item, index)
	})
}

// SecureSum returns the element-wise sum of the integer tensors held by
// the clients, placed at the server. Bitwidth is the caller's bound on the
// magnitude of the sum; it is logged but not enforced.
func (s *Strategy) SecureSum(ctx context.Context, v *federated.Value, bitwidth int) (*federated.Value, error) {
	if v.Placement() != placement.Clients {
		return nil, errors.Wrapf(federated.ErrPlacementMismatch, "secure sum of a value at %s", v.Placement())
	}
	orig, ok := v.Member().(types.TensorType)
	if !ok || !orig.DType.IsInteger() {
		return nil, errors.Wrapf(federated.ErrTypeSignatureMismatch, "secure sum of %s", v.Type())
	}
	n, err := s.rt.Cardinality(placement.Clients)
	if err != nil {
		return nil, err
	}
	if v, err = s.rt.Expand(ctx, v); err != nil {
		return nil, err
	}
	if v.Len() != n {
		return nil, errors.Wrapf(federated.ErrCardinalityMismatch, "%d values from %d clients", v.Len(), n)
	}

	if err := s.Setup(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	keys := s.keys
	s.mu.RUnlock()
	s.log.Debug("secure sum", "type", v.Type().String(), "clients", n, "bitwidth", bitwidth)

	// matrix form
	flat := orig
	if len(orig.Shape) != 2 {
		flat = types.Tensor(orig.DType, 1, orig.NumElements())
		if v, err = s.reshape(ctx, v, orig, flat, false); err != nil {
			return nil, err
		}
	}

	enc, err := s.kernels.encrypt(flat)
	if err != nil {
		return nil, err
	}
	cipher := enc.Type().Result.(types.TensorType)
	encrypted, err := s.rt.Zip(ctx, []*federated.Value{v, keys.ekClients}, cipher, false, s.call(enc))
	if err != nil {
		return nil, errors.Wrap(err, "encrypting at CLIENTS")
	}
	s.log.Debug("encrypted", "type", encrypted.Type().String())

	collected, err := s.transfer(ctx, encrypted, placement.Aggregator)
	if err != nil {
		return nil, err
	}
	if n == 1 {
		// a single client moves without the tuple around it
		collected, err = s.rt.Map(ctx, collected, types.Repeat(cipher, 1), true,
			func(ctx context.Context, ex executor.Executor, item executor.Value) (executor.Value, error) {
				return ex.CreateTuple(ctx, []executor.Value{item})
			})
		if err != nil {
			return nil, err
		}
	}

	sum, err := s.kernels.sum(cipher, n)
	if err != nil {
		return nil, err
	}
	total, err := s.rt.Zip(ctx, []*federated.Value{collected, keys.ekAggregator}, cipher, true, s.call(sum))
	if err != nil {
		return nil, errors.Wrap(err, "summing at AGGREGATOR")
	}
	s.log.Debug("summed", "type", total.Type().String())

	atServer, err := s.transfer(ctx, total, placement.Server)
	if err != nil {
		return nil, err
	}

	dec, err := s.kernels.decrypt(flat)
	if err != nil {
		return nil, err
	}
	res, err := s.rt.Zip(ctx, []*federated.Value{atServer, keys.ekServer, keys.dk}, flat, true, s.call(dec))
	if err != nil {
		return nil, errors.Wrap(err, "decrypting at SERVER")
	}

	if !flat.Equal(orig) {
		if res, err = s.reshape(ctx, res, flat, orig, true); err != nil {
			return nil, err
		}
	}

	// computed here so that no failure surfaces after a result is returned
	if _, err := res.Compute(ctx); err != nil {
		return nil, err
	}

	return res, nil
}

func (s *Strategy) transfer(ctx context.Context, v *federated.Value, to placement.Placement) (*federated.Value, error) {
	ch, err := s.grid.Channel(v.Placement(), to)
	if err != nil {
		return nil, err
	}
	moved, err := ch.Transfer(ctx, v)
	if err != nil {
		return nil, errors.Wrapf(err, "transfer from %s to %s", v.Placement(), to)
	}

	return moved, nil
}

func (s *Strategy) reshape(ctx context.Context, v *federated.Value, from, to types.TensorType, allEqual bool) (*federated.Value, error) {
	k, err := s.kernels.reshape(from, to)
	if err != nil {
		return nil, err
	}

	return s.rt.Map(ctx, v, to, allEqual, func(ctx context.Context, ex executor.Executor, item executor.Value) (executor.Value, error) {
		fn, err := ex.CreateValue(ctx, k, k.Type())
		if err != nil {
			return nil, err
		}
		return ex.CreateCall(ctx, fn, item)
	})
}

func (s *Strategy) call(k *kernel.Kernel) func(context.Context, executor.Executor, []executor.Value) (executor.Value, error) {
	return func(ctx context.Context, ex executor.Executor, items []executor.Value) (executor.Value, error) {
		return kernel.Call(ctx, ex, k, items...)
	}
}
