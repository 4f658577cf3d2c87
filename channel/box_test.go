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

package channel_test

import (
	"context"
	"sync"
	"testing"

	"github.com/fentec-project/fedagg/channel"
	"github.com/fentec-project/fedagg/crypto/sealedbox"
	"github.com/fentec-project/fedagg/data"
	"github.com/fentec-project/fedagg/executor"
	"github.com/fentec-project/fedagg/federated"
	"github.com/fentec-project/fedagg/placement"
	"github.com/fentec-project/fedagg/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSealedBox(t *testing.T, rt *federated.Runtime, a, b placement.Placement) *channel.SealedBoxChannel {
	ch, err := channel.NewSealedBox(rt, placement.NewPair(a, b))
	require.NoError(t, err)
	require.NoError(t, ch.Setup(context.Background()))

	return ch.(*channel.SealedBoxChannel)
}

func keyBytes(t *testing.T, v *federated.Value, i int) []byte {
	p, err := v.Item(i).Compute(context.Background())
	require.NoError(t, err)

	return p.(data.Tensor).Bytes()
}

func TestSealedBox_KeyRouting(t *testing.T) {
	rt := newRuntime(t, 3)
	ch := newSealedBox(t, rt, placement.Clients, placement.Aggregator)
	keys := ch.KeyStore()

	// many keys to one executor: a tuple at the singleton
	pkClients, err := keys.GetPublicKey(placement.Clients)
	require.NoError(t, err)
	assert.Equal(t, "<uint8[32],uint8[32],uint8[32]>@AGGREGATOR", pkClients.String())
	assert.Equal(t, 1, pkClients.Len())

	// one key to many executors: replicas tagged all equal
	pkAggregator, err := keys.GetPublicKey(placement.Aggregator)
	require.NoError(t, err)
	assert.Equal(t, "uint8[32]@CLIENTS", pkAggregator.String())
	require.Equal(t, 3, pkAggregator.Len())
	for i := 1; i < 3; i++ {
		assert.Equal(t, keyBytes(t, pkAggregator, 0), keyBytes(t, pkAggregator, i))
	}

	skClients, err := keys.GetSecretKey(placement.Clients)
	require.NoError(t, err)
	assert.Equal(t, "{uint8[32]}@CLIENTS", skClients.String())
	assert.NotEqual(t, keyBytes(t, skClients, 0), keyBytes(t, skClients, 1))
	assert.NotEqual(t, keyBytes(t, skClients, 1), keyBytes(t, skClients, 2))

	skAggregator, err := keys.GetSecretKey(placement.Aggregator)
	require.NoError(t, err)
	assert.Equal(t, placement.Aggregator, skAggregator.Placement())
	assert.Equal(t, []string{"AGGREGATOR", "CLIENTS"}, keys.Owners())
}

func TestSealedBox_UnsupportedTopology(t *testing.T) {
	rt := newRuntime(t, 3)

	_, err := channel.NewSealedBox(rt, placement.NewPair(placement.Clients, workers))
	assert.True(t, errors.Is(err, federated.ErrUnsupportedKeyTopology))
}

func TestSealedBox_SendBeforeSetup(t *testing.T) {
	rt := newRuntime(t, 3)
	ch, err := channel.NewSealedBox(rt, placement.NewPair(placement.Clients, placement.Aggregator))
	require.NoError(t, err)

	_, err = ch.Send(context.Background(), clientValues(t, rt))
	assert.True(t, errors.Is(err, federated.ErrUninitializedKeyMaterial))
	_, err = ch.Transfer(context.Background(), clientValues(t, rt))
	assert.True(t, errors.Is(err, federated.ErrUninitializedKeyMaterial))
}

func TestSealedBox_FanIn(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, 4)
	ch := newSealedBox(t, rt, placement.Clients, placement.Aggregator)

	sealed, err := ch.Send(ctx, clientValues(t, rt))
	require.NoError(t, err)
	assert.Equal(t, "{<int32[2],uint8[32],uint8[16],uint8[24]>}@CLIENTS", sealed.String())
	assert.Equal(t, 4, sealed.Len())

	res, err := ch.Transfer(ctx, clientValues(t, rt))
	require.NoError(t, err)
	assert.Equal(t, "<int32[2],int32[2],int32[2],int32[2]>@AGGREGATOR", res.String())

	payloads, err := res.Compute(ctx)
	require.NoError(t, err)
	for i, x := range tuple(t, payloads[0]) {
		want, _ := data.NewInt32Tensor([]int{2}, int32(i), int32(10*i))
		assert.True(t, want.Equal(x), "client %d sent %s", i, x)
	}
}

func TestSealedBox_FanOut(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, 3)
	ch := newSealedBox(t, rt, placement.Clients, placement.Aggregator)

	v, err := rt.Embed(ctx, types.Tensor(data.Float64, 2, 1), placement.Aggregator, true,
		mustTensor(data.NewFloat64Tensor([]int{2, 1}, 1.5, -3)))
	require.NoError(t, err)

	sealed, err := ch.Send(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, placement.Aggregator, sealed.Placement())
	assert.Equal(t, 3, sealed.Member().(types.TupleType).Len())

	res, err := ch.Transfer(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, "{float64[2,1]}@CLIENTS", res.String())
	for _, x := range tensors(t, res) {
		assert.Equal(t, []float64{1.5, -3}, x.Float64s())
	}
}

func TestSealedBox_Direct(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, 3)
	ch := newSealedBox(t, rt, placement.Server, placement.Aggregator)

	v, err := rt.Embed(ctx, types.Tensor(data.Int64), placement.Server, true, data.Int64Scalar(-9))
	require.NoError(t, err)
	res, err := ch.Transfer(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, "int64@AGGREGATOR", res.String())
	assert.True(t, data.Int64Scalar(-9).Equal(tensors(t, res)[0]))

	_, err = ch.Send(ctx, clientValues(t, rt))
	assert.True(t, errors.Is(err, federated.ErrPlacementMismatch))

	// res holds plaintext, not records
	_, err = ch.Receive(ctx, res)
	assert.True(t, errors.Is(err, federated.ErrTypeSignatureMismatch))
}

func TestSealedBox_OtherClientCannotOpen(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, 3)
	ch := newSealedBox(t, rt, placement.Clients, placement.Aggregator)
	keys := ch.KeyStore()

	sealed, err := ch.Send(ctx, clientValues(t, rt))
	require.NoError(t, err)
	payloads, err := sealed.Compute(ctx)
	require.NoError(t, err)
	rec, err := channel.RecordFromPayload(payloads[0])
	require.NoError(t, err)

	pkAggregator, err := keys.GetPublicKey(placement.Aggregator)
	require.NoError(t, err)
	skClients, err := keys.GetSecretKey(placement.Clients)
	require.NoError(t, err)
	pkClients, err := keys.GetPublicKey(placement.Clients)
	require.NoError(t, err)
	skAggregator, err := keys.GetSecretKey(placement.Aggregator)
	require.NoError(t, err)

	aggPK, err := sealedbox.PublicKeyFromBytes(keyBytes(t, pkAggregator, 1))
	require.NoError(t, err)
	otherSK, err := sealedbox.SecretKeyFromBytes(keyBytes(t, skClients, 1))
	require.NoError(t, err)
	_, err = sealedbox.OpenDetached(rec, aggPK, otherSK)
	assert.Equal(t, sealedbox.ErrAuthentication, err)

	// the aggregator opens it with the sender's public key
	pks, err := pkClients.Item(0).Compute(ctx)
	require.NoError(t, err)
	senderPK, err := sealedbox.PublicKeyFromBytes(tuple(t, pks)[0].Bytes())
	require.NoError(t, err)
	aggSK, err := sealedbox.SecretKeyFromBytes(keyBytes(t, skAggregator, 0))
	require.NoError(t, err)
	msg, err := sealedbox.OpenDetached(rec, senderPK, aggSK)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 8), msg[channel.HeaderSize:])
}

func TestSealedBox_NonTensorMember(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, 3)
	ch := newSealedBox(t, rt, placement.Server, placement.Aggregator)

	x := data.Int64Scalar(1)
	v, err := rt.Embed(ctx, types.Tuple(types.TypeOf(x)), placement.Server, true, []interface{}{x})
	require.NoError(t, err)
	_, err = ch.Send(ctx, v)
	assert.True(t, errors.Is(err, federated.ErrTypeSignatureMismatch))
}

// moveTo re-creates the handles of v at p without opening them.
func moveTo(t *testing.T, rt *federated.Runtime, v *federated.Value, p placement.Placement) *federated.Value {
	items, err := rt.Gather(context.Background(), p, v.Len(), func(ctx context.Context, i int, ex executor.Executor) (executor.Value, error) {
		return federated.Move(ctx, v.Item(i), ex)
	})
	require.NoError(t, err)
	moved, err := rt.NewValue(v.Member(), p, v.AllEqual(), items)
	require.NoError(t, err)

	return moved
}

func TestSealedBox_InterleavedSends(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, 3)
	ch := newSealedBox(t, rt, placement.Server, placement.Aggregator)

	ints := mustTensor(data.NewInt32Tensor([]int{2}, 7, 9))
	floats := mustTensor(data.NewFloat32Tensor([]int{2}, 0.25, -1))
	vi, err := rt.Embed(ctx, types.TypeOf(ints), placement.Server, true, ints)
	require.NoError(t, err)
	vf, err := rt.Embed(ctx, types.TypeOf(floats), placement.Server, true, floats)
	require.NoError(t, err)

	first, err := ch.Send(ctx, vi)
	require.NoError(t, err)
	second, err := ch.Send(ctx, vf)
	require.NoError(t, err)

	res, err := ch.Receive(ctx, moveTo(t, rt, first, placement.Aggregator))
	require.NoError(t, err)
	assert.Equal(t, "int32[2]@AGGREGATOR", res.String())
	assert.True(t, ints.Equal(tensors(t, res)[0]))

	res, err = ch.Receive(ctx, moveTo(t, rt, second, placement.Aggregator))
	require.NoError(t, err)
	assert.Equal(t, "float32[2]@AGGREGATOR", res.String())
	assert.True(t, floats.Equal(tensors(t, res)[0]))
}

func TestSealedBox_ConcurrentTransfers(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, 3)
	ch := newSealedBox(t, rt, placement.Clients, placement.Aggregator)

	inputs := []data.Tensor{
		data.Int32Scalar(4),
		mustTensor(data.NewInt64Tensor([]int{2, 1}, -1, 8)),
		mustTensor(data.NewFloat64Tensor([]int{3}, 1, 2, 3)),
		mustTensor(data.NewUint8Tensor([]int{5}, []byte("fedag"))),
	}

	var wg sync.WaitGroup
	for round := 0; round < 5; round++ {
		for _, x := range inputs {
			x := x
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := rt.Embed(ctx, types.TypeOf(x), placement.Clients, true, x)
				if !assert.NoError(t, err) {
					return
				}
				res, err := ch.Transfer(ctx, v)
				if !assert.NoError(t, err) {
					return
				}
				payloads, err := res.Compute(ctx)
				if !assert.NoError(t, err) {
					return
				}
				for _, got := range payloads[0].([]interface{}) {
					assert.True(t, x.Equal(got.(data.Tensor)), "sent %s, received %s", x, got)
				}
			}()
		}
	}
	wg.Wait()
}

func mustTensor(x data.Tensor, err error) data.Tensor {
	if err != nil {
		panic(err)
	}

	return x
}
