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

package data

import (
	"math/big"
	"testing"

	"github.com/fentec-project/fedagg/sample"
	"github.com/stretchr/testify/assert"
)

func TestVector(t *testing.T) {
	l := 3
	bound := new(big.Int).Exp(big.NewInt(2), big.NewInt(20), big.NewInt(0))
	sampler := sample.NewUniform(bound)

	x, err := NewRandomVector(l, sampler)
	if err != nil {
		t.Fatalf("Error during random generation: %v", err)
	}

	y, err := NewRandomVector(l, sampler)
	if err != nil {
		t.Fatalf("Error during random generation: %v", err)
	}

	add, err := x.Add(y)
	if err != nil {
		t.Fatalf("Error during vector addition: %v", err)
	}

	for i := 0; i < l; i++ {
		assert.Equal(t, new(big.Int).Add(x[i], y[i]), add[i], "coordinates should sum correctly")
	}
	assert.NoError(t, x.CheckBound(bound))
	assert.Error(t, add.CheckBound(big.NewInt(1)))

	_, err = x.Add(y[:2])
	assert.Error(t, err)
}

func TestVector_Det(t *testing.T) {
	var key [32]byte
	key[0] = 7

	v1, err := NewRandomDetVector(100, big.NewInt(5), &key)
	assert.NoError(t, err)
	v2, err := NewRandomDetVector(100, big.NewInt(5), &key)
	assert.NoError(t, err)

	assert.Len(t, v1, 100)
	assert.True(t, v1.Equal(v2), "same key should give the same vector")
	assert.NoError(t, v1.CheckBound(big.NewInt(5)))

	_, err = NewRandomDetVector(10, big.NewInt(1), &key)
	assert.Error(t, err)
}

func TestVector_FixedBytes(t *testing.T) {
	v := NewVector([]*big.Int{big.NewInt(0), big.NewInt(255), big.NewInt(65535)})

	b, err := v.FixedBytes(2)
	assert.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 255, 255, 255}, b)

	back, err := NewVectorFromFixedBytes(b, 2)
	assert.NoError(t, err)
	assert.True(t, v.Equal(back))

	_, err = v.FixedBytes(1)
	assert.Error(t, err)
	_, err = NewVectorFromFixedBytes(b, 4)
	assert.Error(t, err)
}
