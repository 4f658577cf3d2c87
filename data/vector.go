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
	"fmt"
	"math/big"

	"github.com/fentec-project/fedagg/sample"
	"github.com/pkg/errors"
	"golang.org/x/crypto/salsa20"
)

// Vector wraps a slice of *big.Int elements. It is the arithmetic view of
// an integer tensor and of a vector of Paillier ciphertexts.
type Vector []*big.Int

// NewVector returns a new Vector instance.
func NewVector(coordinates []*big.Int) Vector {
	return Vector(coordinates)
}

// NewRandomVector returns a new Vector instance
// with random elements sampled by the provided sample.Sampler.
func NewRandomVector(n int, sampler sample.Sampler) (Vector, error) {
	vec := make(Vector, n)
	for i := range vec {
		x, err := sampler.Sample()
		if err != nil {
			return nil, errors.Wrap(err, "error while sampling")
		}
		vec[i] = x
	}

	return vec, nil
}

// NewRandomDetVector returns a Vector of n elements from [0, max),
// expanded deterministically from key with the salsa20 stream cipher.
// The same key always yields the same vector, which makes it suitable for
// reproducible participant inputs.
func NewRandomDetVector(n int, max *big.Int, key *[32]byte) (Vector, error) {
	if max.Cmp(big.NewInt(2)) < 0 {
		return nil, fmt.Errorf("upper bound on samples should be at least 2")
	}

	maxBits := new(big.Int).Sub(max, big.NewInt(1)).BitLen()
	maxBytes := (maxBits + 7) / 8
	over := uint(8*maxBytes - maxBits)
	nonce := make([]byte, 8)

	// rejection sampling, the stream grows until n candidates fall below max
	for blocks := 2; ; blocks++ {
		stream := make([]byte, blocks*(n+1)*maxBytes)
		salsa20.XORKeyStream(stream, stream, nonce, key)

		ret := make(Vector, 0, n)
		for j := 0; j+maxBytes <= len(stream) && len(ret) < n; j += maxBytes {
			chunk := stream[j : j+maxBytes]
			chunk[0] >>= over
			if x := new(big.Int).SetBytes(chunk); x.Cmp(max) < 0 {
				ret = append(ret, x)
			}
		}
		if len(ret) == n {
			return ret, nil
		}
	}
}

// CheckBound checks whether the absolute values of all vector elements
// are strictly smaller than the provided bound.
func (v Vector) CheckBound(bound *big.Int) error {
	abs := new(big.Int)
	for _, c := range v {
		abs.Abs(c)
		if abs.Cmp(bound) > -1 {
			return fmt.Errorf("all coordinates of a vector should be smaller than bound")
		}
	}

	return nil
}

// Add adds vectors v and other element-wise.
// The result is returned in a new Vector.
func (v Vector) Add(other Vector) (Vector, error) {
	if len(v) != len(other) {
		return nil, fmt.Errorf("vectors should be of same length")
	}

	sum := make(Vector, len(v))
	for i, c := range v {
		sum[i] = new(big.Int).Add(c, other[i])
	}

	return sum, nil
}

// Equal reports whether v and other hold the same values.
func (v Vector) Equal(other Vector) bool {
	if len(v) != len(other) {
		return false
	}
	for i := range v {
		if v[i].Cmp(other[i]) != 0 {
			return false
		}
	}

	return true
}

// FixedBytes encodes every element as a big-endian unsigned integer of
// exactly width bytes and concatenates them. Elements must be non-negative
// and fit the width.
func (v Vector) FixedBytes(width int) ([]byte, error) {
	out := make([]byte, len(v)*width)
	for i, x := range v {
		if x.Sign() < 0 || (x.BitLen()+7)/8 > width {
			return nil, errors.Errorf("element %d does not fit %d bytes", i, width)
		}
		x.FillBytes(out[i*width : (i+1)*width])
	}

	return out, nil
}

// NewVectorFromFixedBytes is the inverse of Vector.FixedBytes.
func NewVectorFromFixedBytes(b []byte, width int) (Vector, error) {
	if width <= 0 || len(b)%width != 0 {
		return nil, errors.Errorf("%d bytes are not a multiple of width %d", len(b), width)
	}

	v := make(Vector, len(b)/width)
	for i := range v {
		v[i] = new(big.Int).SetBytes(b[i*width : (i+1)*width])
	}

	return v, nil
}

// String produces a string representation of a vector.
func (v Vector) String() string {
	vStr := ""
	for _, yi := range v {
		vStr = vStr + " " + yi.String()
	}
	return vStr
}
