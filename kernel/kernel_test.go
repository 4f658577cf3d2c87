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

package kernel_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/fentec-project/fedagg/data"
	"github.com/fentec-project/fedagg/executor"
	"github.com/fentec-project/fedagg/kernel"
	"github.com/fentec-project/fedagg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func identity(t types.Type) *kernel.Kernel {
	return kernel.New("identity", types.Function(t, t),
		func(_ context.Context, arg interface{}) (interface{}, error) {
			return arg, nil
		})
}

func TestCache_MaterializeOnce(t *testing.T) {
	cache := kernel.NewCache()
	x := types.Tensor(data.Int32, 1, 3)
	d := kernel.Describe("identity", []types.Type{x})

	var builds atomic.Int32
	build := func() (*kernel.Kernel, error) {
		builds.Inc()
		return identity(x), nil
	}

	var wg sync.WaitGroup
	got := make([]*kernel.Kernel, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k, err := cache.Materialize(d, build)
			assert.NoError(t, err)
			got[i] = k
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	for _, k := range got {
		assert.Same(t, got[0], k)
	}

	// a structurally equal but separately built signature hits the cache
	same := kernel.Describe("identity", []types.Type{types.Tensor(data.Int32, 1, 3)})
	_, err := cache.Materialize(same, build)
	require.NoError(t, err)
	assert.Equal(t, int32(1), builds.Load())
	assert.Equal(t, 1, cache.Len())
}

func TestCache_DistinctKeys(t *testing.T) {
	cache := kernel.NewCache()
	x := types.Tensor(data.Int32, 1, 3)
	y := types.Tensor(data.Int32, 3, 1)

	keys := []kernel.Descriptor{
		kernel.Describe("identity", []types.Type{x}),
		kernel.Describe("identity", []types.Type{y}),
		kernel.Describe("other", []types.Type{x}),
		kernel.Describe("identity", []types.Type{x}, y),
		kernel.Describe("identity", []types.Type{x}).WithScalar(512),
	}
	for _, d := range keys {
		_, err := cache.Materialize(d, func() (*kernel.Kernel, error) { return identity(x), nil })
		require.NoError(t, err)
	}
	assert.Equal(t, len(keys), cache.Len())
}

func TestCache_FailedBuildNotCached(t *testing.T) {
	cache := kernel.NewCache()
	d := kernel.Describe("broken", nil)

	_, err := cache.Materialize(d, func() (*kernel.Kernel, error) {
		return nil, fmt.Errorf("boom")
	})
	assert.Error(t, err)
	assert.Equal(t, 0, cache.Len())
}

func TestKernel_IsExecutorFunction(t *testing.T) {
	ctx := context.Background()
	x := types.Tensor(data.Int64)
	k := identity(x)
	ex := executor.NewLocal("test")

	f, err := ex.CreateValue(ctx, k, k.Type())
	require.NoError(t, err)
	arg, err := ex.CreateValue(ctx, data.Int64Scalar(7), x)
	require.NoError(t, err)
	call, err := ex.CreateCall(ctx, f, arg)
	require.NoError(t, err)

	res, err := call.Compute(ctx)
	require.NoError(t, err)
	assert.True(t, data.Int64Scalar(7).Equal(res.(data.Tensor)))
	assert.Equal(t, "identity(int64 -> int64)", k.String())
}
