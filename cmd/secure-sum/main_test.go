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

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/fentec-project/fedagg/data"
	"github.com/fentec-project/fedagg/secagg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputs_Seeded(t *testing.T) {
	in := inputs{dtype: data.Int64, length: 4, maxValue: 100, seed: 7}
	a, err := in.client(0)
	require.NoError(t, err)
	b, err := in.client(0)
	require.NoError(t, err)
	c, err := in.client(1)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, []int{4}, a.Shape())
	assert.Equal(t, data.Int64, a.DType())
}

func TestInputs_Ranges(t *testing.T) {
	tests := []struct {
		dtype data.DType
		seed  uint64
		lo    int64
	}{
		{data.Int32, 3, -20},
		{data.Int32, 0, -20},
		{data.Uint16, 3, 0},
		{data.Uint16, 0, 0},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%s/seed=%d", test.dtype, test.seed), func(t *testing.T) {
			in := inputs{dtype: test.dtype, length: 64, maxValue: 20, seed: test.seed}
			x, err := in.client(2)
			require.NoError(t, err)
			assert.Equal(t, test.dtype, x.DType())

			v, err := x.Vector()
			require.NoError(t, err)
			for _, e := range v {
				assert.True(t, e.Int64() >= test.lo && e.Int64() < 20, "%s out of range", e)
			}
		})
	}

	_, err := inputs{dtype: data.Int8, length: 2, maxValue: 0, seed: 1}.client(0)
	assert.Error(t, err)
	_, err = inputs{dtype: data.Int8, length: 64, maxValue: 1000, seed: 1}.client(0)
	assert.Error(t, err, "values do not fit int8")
}

func TestRun(t *testing.T) {
	cfg := secagg.DefaultConfig()
	cfg.Clients = 2
	cfg.ModulusBits = 512
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	assert.NoError(t, run(context.Background(), logger, cfg, inputs{dtype: data.Int64, length: 2, maxValue: 50, seed: 3}))
	assert.NoError(t, run(context.Background(), logger, cfg, inputs{dtype: data.Int16, length: 3, maxValue: 50}))
}
