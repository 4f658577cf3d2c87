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
	"github.com/fentec-project/fedagg/kernel"
	"github.com/fentec-project/fedagg/placement"
	"github.com/fentec-project/fedagg/types"
	"github.com/pkg/errors"
)

// combinator encrypts, moves and decrypts values in one direction of a
// sealed box channel. It is chosen once from the cardinalities of the
// sender and the receiver.
type combinator interface {
	seal(ctx context.Context, c *SealedBoxChannel, v *federated.Value) (*federated.Value, error)
	rebind(ctx context.Context, rt *federated.Runtime, v *federated.Value) (*federated.Value, error)
	open(ctx context.Context, c *SealedBoxChannel, v *federated.Value) (*federated.Value, error)
}

func newCombinator(sender placement.Placement, ns int, receiver placement.Placement, nr int) combinator {
	switch {
	case ns > 1:
		return fanIn{sender: sender, receiver: receiver}
	case nr > 1:
		return fanOut{sender: sender, receiver: receiver}
	}

	return direct{sender: sender, receiver: receiver}
}

// fanIn moves values from many senders to a single receiver. Every sender
// seals its own value, and the receiver gets the records as one tuple.
type fanIn struct {
	sender, receiver placement.Placement
}

func (f fanIn) seal(ctx context.Context, c *SealedBoxChannel, v *federated.Value) (*federated.Value, error) {
	return sealEach(ctx, c, v, f.sender, f.receiver, false)
}

func (f fanIn) rebind(ctx context.Context, rt *federated.Runtime, v *federated.Value) (*federated.Value, error) {
	return gather(ctx, rt, v, f.receiver)
}

func (f fanIn) open(ctx context.Context, c *SealedBoxChannel, v *federated.Value) (*federated.Value, error) {
	tt, ok := v.Member().(types.TupleType)
	if !ok || tt.Len() == 0 {
		return nil, errors.Wrapf(federated.ErrTypeSignatureMismatch, "expected a tuple of records, got %s", v.Type())
	}
	n := tt.Len()
	ks := make([]*kernel.Kernel, n)
	plains := make([]types.Type, n)
	for i, rec := range tt.Elements {
		k, err := c.kernels.decrypt(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}
		ks[i], plains[i] = k, k.Type().Result
	}
	senderPK, err := c.keys.GetPublicKey(f.sender)
	if err != nil {
		return nil, err
	}
	receiverSK, err := c.keys.GetSecretKey(f.receiver)
	if err != nil {
		return nil, err
	}

	return c.rt.Zip(ctx, []*federated.Value{v, senderPK, receiverSK}, types.Tuple(plains...), true,
		func(ctx context.Context, ex executor.Executor, items []executor.Value) (executor.Value, error) {
			out := make([]executor.Value, n)
			for i := range out {
				rec, err := ex.CreateSelection(ctx, items[0], i)
				if err != nil {
					return nil, err
				}
				pk, err := ex.CreateSelection(ctx, items[1], i)
				if err != nil {
					return nil, err
				}
				if out[i], err = kernel.Call(ctx, ex, ks[i], rec, pk, items[2]); err != nil {
					return nil, err
				}
			}

			return ex.CreateTuple(ctx, out)
		})
}

// fanOut moves a value from a single sender to many receivers. The sender
// seals the value once per receiver key, and receiver j gets record j.
type fanOut struct {
	sender, receiver placement.Placement
}

func (f fanOut) seal(ctx context.Context, c *SealedBoxChannel, v *federated.Value) (*federated.Value, error) {
	k, err := c.kernels.encrypt(v.Member())
	if err != nil {
		return nil, err
	}
	senderSK, err := c.keys.GetSecretKey(f.sender)
	if err != nil {
		return nil, err
	}
	receiverPK, err := c.keys.GetPublicKey(f.receiver)
	if err != nil {
		return nil, err
	}
	tt, ok := receiverPK.Member().(types.TupleType)
	if !ok {
		return nil, errors.Wrapf(federated.ErrTypeSignatureMismatch, "expected a tuple of keys, got %s", receiverPK.Type())
	}

	m := tt.Len()
	return c.rt.Zip(ctx, []*federated.Value{v, senderSK, receiverPK}, types.Repeat(k.Type().Result, m), true,
		func(ctx context.Context, ex executor.Executor, items []executor.Value) (executor.Value, error) {
			out := make([]executor.Value, m)
			for j := range out {
				pk, err := ex.CreateSelection(ctx, items[2], j)
				if err != nil {
					return nil, err
				}
				if out[j], err = kernel.Call(ctx, ex, k, items[0], items[1], pk); err != nil {
					return nil, err
				}
			}

			return ex.CreateTuple(ctx, out)
		})
}

func (f fanOut) rebind(ctx context.Context, rt *federated.Runtime, v *federated.Value) (*federated.Value, error) {
	return scatter(ctx, rt, v, f.receiver)
}

func (f fanOut) open(ctx context.Context, c *SealedBoxChannel, v *federated.Value) (*federated.Value, error) {
	return openEach(ctx, c, v, f.sender, f.receiver, false)
}

// direct moves a value between two single-member placements.
type direct struct {
	sender, receiver placement.Placement
}

func (d direct) seal(ctx context.Context, c *SealedBoxChannel, v *federated.Value) (*federated.Value, error) {
	return sealEach(ctx, c, v, d.sender, d.receiver, v.AllEqual())
}

func (d direct) rebind(ctx context.Context, rt *federated.Runtime, v *federated.Value) (*federated.Value, error) {
	return elementwise(ctx, rt, v, d.receiver)
}

func (d direct) open(ctx context.Context, c *SealedBoxChannel, v *federated.Value) (*federated.Value, error) {
	return openEach(ctx, c, v, d.sender, d.receiver, v.AllEqual())
}

// sealEach seals handle i of v with the secret key of sender member i and
// the replica of the receiver's public key held by that member.
func sealEach(ctx context.Context, c *SealedBoxChannel, v *federated.Value, sender, receiver placement.Placement, allEqual bool) (*federated.Value, error) {
	k, err := c.kernels.encrypt(v.Member())
	if err != nil {
		return nil, err
	}
	senderSK, err := c.keys.GetSecretKey(sender)
	if err != nil {
		return nil, err
	}
	receiverPK, err := c.keys.GetPublicKey(receiver)
	if err != nil {
		return nil, err
	}
	if v, err = c.rt.Expand(ctx, v); err != nil {
		return nil, err
	}

	return c.rt.Zip(ctx, []*federated.Value{v, senderSK, receiverPK}, k.Type().Result, allEqual,
		func(ctx context.Context, ex executor.Executor, items []executor.Value) (executor.Value, error) {
			return kernel.Call(ctx, ex, k, items...)
		})
}

// openEach opens handle i of v, a record, with the replica of the sender's public key
// and the secret key held by receiver member i.
func openEach(ctx context.Context, c *SealedBoxChannel, v *federated.Value, sender, receiver placement.Placement, allEqual bool) (*federated.Value, error) {
	k, err := c.kernels.decrypt(v.Member())
	if err != nil {
		return nil, err
	}
	senderPK, err := c.keys.GetPublicKey(sender)
	if err != nil {
		return nil, err
	}
	receiverSK, err := c.keys.GetSecretKey(receiver)
	if err != nil {
		return nil, err
	}

	return c.rt.Zip(ctx, []*federated.Value{v, senderPK, receiverSK}, k.Type().Result, allEqual,
		func(ctx context.Context, ex executor.Executor, items []executor.Value) (executor.Value, error) {
			return kernel.Call(ctx, ex, k, items...)
		})
}
