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
	"testing"

	"github.com/fentec-project/fedagg/channel"
	"github.com/fentec-project/fedagg/data"
	"github.com/fentec-project/fedagg/federated"
	"github.com/fentec-project/fedagg/placement"
	"github.com/fentec-project/fedagg/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaintext_Broadcast(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, 3)
	ch, err := channel.NewPlaintext(rt, placement.NewPair(placement.Server, placement.Clients))
	require.NoError(t, err)
	require.NoError(t, ch.Setup(ctx))

	v, err := rt.Embed(ctx, types.Tensor(data.Float32), placement.Server, true, data.Float32Scalar(2.0))
	require.NoError(t, err)

	res, err := ch.Transfer(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, placement.Clients, res.Placement())
	assert.False(t, res.AllEqual())
	assert.Equal(t, "{float32}@CLIENTS", res.String())

	xs := tensors(t, res)
	require.Len(t, xs, 3)
	for _, x := range xs {
		assert.Equal(t, []float64{2.0}, x.Float64s())
	}
}

func TestPlaintext_GatherAndMove(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, 3)
	ch, err := channel.NewPlaintext(rt, placement.NewPair(placement.Clients, placement.Aggregator))
	require.NoError(t, err)

	res, err := ch.Transfer(ctx, clientValues(t, rt))
	require.NoError(t, err)
	assert.Equal(t, "<int32[2],int32[2],int32[2]>@AGGREGATOR", res.String())

	payloads, err := res.Compute(ctx)
	require.NoError(t, err)
	for i, x := range tuple(t, payloads[0]) {
		want, _ := data.NewInt32Tensor([]int{2}, int32(i), int32(10*i))
		assert.True(t, want.Equal(x))
	}

	back, err := ch.Send(ctx, res)
	require.NoError(t, err)
	assert.Same(t, res, back)

	sv, err := rt.Embed(ctx, types.Tensor(data.Int64), placement.Server, true, data.Int64Scalar(1))
	require.NoError(t, err)
	_, err = ch.Transfer(ctx, sv)
	assert.True(t, errors.Is(err, federated.ErrPlacementMismatch))
	_, err = ch.Receive(ctx, sv)
	assert.True(t, errors.Is(err, federated.ErrPlacementMismatch))
}

func TestPlaintext_CardinalityMismatch(t *testing.T) {
	rt := newRuntime(t, 3)
	ch, err := channel.NewPlaintext(rt, placement.NewPair(placement.Clients, workers))
	require.NoError(t, err)

	_, err = ch.Transfer(context.Background(), clientValues(t, rt))
	assert.True(t, errors.Is(err, federated.ErrCardinalityMismatch))
}
