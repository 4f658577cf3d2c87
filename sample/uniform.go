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

package sample

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/pkg/errors"
)

// Sampler samples random values from some distribution.
type Sampler interface {
	Sample() (*big.Int, error)
}

// UniformRange samples random values from the interval [min, max).
type UniformRange struct {
	min    *big.Int
	max    *big.Int
	source io.Reader
}

// NewUniformRange returns an instance of the UniformRange sampler.
// It accepts lower and upper bounds on the sampled values.
func NewUniformRange(min, max *big.Int) *UniformRange {
	return &UniformRange{
		min:    min,
		max:    max,
		source: rand.Reader,
	}
}

// NewUniform returns an instance of the UniformRange sampler
// over the interval [0, max).
func NewUniform(max *big.Int) *UniformRange {
	return NewUniformRange(big.NewInt(0), max)
}

// Sample samples a random value from the interval [min, max).
func (u *UniformRange) Sample() (*big.Int, error) {
	width := new(big.Int).Sub(u.max, u.min)
	if width.Sign() <= 0 {
		return nil, errors.Errorf("empty sampling interval [%s, %s)", u.min, u.max)
	}

	x, err := rand.Int(u.source, width)
	if err != nil {
		return nil, err
	}

	return x.Add(x, u.min), nil
}

// UnitMod samples uniformly from the multiplicative group Z_n*, i.e. the
// values in [1, n) coprime to n.
type UnitMod struct {
	n      *big.Int
	source io.Reader
}

// NewUnitMod returns an instance of the UnitMod sampler for modulus n.
func NewUnitMod(n *big.Int) *UnitMod {
	return &UnitMod{n: n, source: rand.Reader}
}

// Sample returns a random unit modulo n. It returns an error if n < 2.
func (u *UnitMod) Sample() (*big.Int, error) {
	if u.n.Cmp(big.NewInt(2)) < 0 {
		return nil, errors.Errorf("modulus %s has no units to sample", u.n)
	}

	one := big.NewInt(1)
	gcd := new(big.Int)
	for {
		r, err := rand.Int(u.source, u.n)
		if err != nil {
			return nil, err
		}
		if r.Sign() == 0 {
			continue
		}
		if gcd.GCD(nil, nil, r, u.n).Cmp(one) == 0 {
			return r, nil
		}
	}
}
