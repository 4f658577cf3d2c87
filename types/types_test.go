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

package types_test

import (
	"testing"

	"github.com/fentec-project/fedagg/data"
	"github.com/fentec-project/fedagg/placement"
	"github.com/fentec-project/fedagg/types"
	"github.com/stretchr/testify/assert"
)

func TestTypes_String(t *testing.T) {
	key := types.Tensor(data.Uint8, 32)

	cases := []struct {
		typ  types.Type
		want string
	}{
		{types.Tensor(data.Int32), "int32"},
		{types.Tensor(data.Int32, 2, 1), "int32[2,1]"},
		{types.Repeat(key, 3), "<uint8[32],uint8[32],uint8[32]>"},
		{types.Function(nil, types.Tuple(key, key)), "( -> <uint8[32],uint8[32]>)"},
		{types.Federated(key, placement.Clients, false), "{uint8[32]}@CLIENTS"},
		{types.Federated(key, placement.Server, true), "uint8[32]@SERVER"},
		{types.Federated(types.Repeat(key, 3), placement.Server, true), "<uint8[32],uint8[32],uint8[32]>@SERVER"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.typ.String())
	}
}

func TestTypes_Equal(t *testing.T) {
	a := types.Tuple(types.Tensor(data.Int64, 1, 4), types.Tensor(data.Uint8, 32))
	b := types.Tuple(types.Tensor(data.Int64, 1, 4), types.Tensor(data.Uint8, 32))
	c := types.Tuple(types.Tensor(data.Int64, 4, 1), types.Tensor(data.Uint8, 32))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(types.Tensor(data.Int64, 1, 4)))
	assert.True(t, types.Tensor(data.Int8).Equal(types.TensorType{DType: data.Int8, Shape: []int{}}))

	fa := types.Federated(a, placement.Clients, false)
	assert.False(t, fa.Equal(types.Federated(a, placement.Clients, true)))
	assert.False(t, fa.Equal(types.Federated(a, placement.Server, false)))
	assert.True(t, types.Function(nil, a).Equal(types.Function(nil, b)))
}

func TestTypes_Fingerprint(t *testing.T) {
	x := types.Tensor(data.Int32, 1, 5)
	key := types.Tensor(data.Uint8, 256)

	assert.Equal(t, types.FingerprintOf(key, x), types.FingerprintOf(key, types.Tensor(data.Int32, 1, 5)))
	assert.NotEqual(t, types.FingerprintOf(key, x), types.FingerprintOf(x, key))
	assert.NotEqual(t, types.FingerprintOf(x), types.FingerprintOf(types.Tensor(data.Int64, 1, 5)))
	assert.NotEqual(t, types.FingerprintOf(types.Tuple(x)), types.FingerprintOf(x))
	assert.NotEqual(t, types.FingerprintOf(), types.FingerprintOf(nil))
}

func TestTypes_IsKeyType(t *testing.T) {
	key := types.Tensor(data.Uint8, 32)

	assert.True(t, types.IsKeyType(key))
	assert.True(t, types.IsKeyType(types.Tuple(key, key)))
	assert.False(t, types.IsKeyType(types.Tuple(types.Tuple(key))))
	assert.False(t, types.IsKeyType(types.Function(nil, key)))
}
