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
	"fmt"
	"testing"

	"github.com/fentec-project/fedagg/data"
	"github.com/fentec-project/fedagg/executor"
	"github.com/fentec-project/fedagg/federated"
	"github.com/fentec-project/fedagg/placement"
	"github.com/fentec-project/fedagg/types"
	"github.com/stretchr/testify/require"
)

// workers is a second multi-member placement for topology tests.
var workers = placement.MustRegister("WORKERS", "workers", false)

func locals(prefix string, n int) []executor.Executor {
	exs := make([]executor.Executor, n)
	for i := range exs {
		exs[i] = executor.NewLocal(fmt.Sprintf("%s-%d", prefix, i))
	}

	return exs
}

func newRuntime(t *testing.T, clients int) *federated.Runtime {
	rt, err := federated.NewRuntime(map[placement.Placement][]executor.Executor{
		placement.Clients:    locals("client", clients),
		placement.Server:     locals("server", 1),
		placement.Aggregator: locals("aggregator", 1),
		workers:              locals("worker", 2),
	})
	require.NoError(t, err)

	return rt
}

// clientValues embeds int32[2] tensors {i, 10*i} at every client.
func clientValues(t *testing.T, rt *federated.Runtime) *federated.Value {
	n, err := rt.Cardinality(placement.Clients)
	require.NoError(t, err)

	payloads := make([]interface{}, n)
	for i := range payloads {
		x, err := data.NewInt32Tensor([]int{2}, int32(i), int32(10*i))
		require.NoError(t, err)
		payloads[i] = x
	}
	v, err := rt.Embed(context.Background(), types.Tensor(data.Int32, 2), placement.Clients, false, payloads...)
	require.NoError(t, err)

	return v
}

func tensors(t *testing.T, v *federated.Value) []data.Tensor {
	payloads, err := v.Compute(context.Background())
	require.NoError(t, err)

	out := make([]data.Tensor, len(payloads))
	for i, p := range payloads {
		x, ok := p.(data.Tensor)
		require.True(t, ok, "member %d holds %T", i, p)
		out[i] = x
	}

	return out
}

func tuple(t *testing.T, payload interface{}) []data.Tensor {
	xs, ok := payload.([]interface{})
	require.True(t, ok)

	out := make([]data.Tensor, len(xs))
	for i, x := range xs {
		out[i] = x.(data.Tensor)
	}

	return out
}
