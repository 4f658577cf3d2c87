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

package keygen

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/pkg/errors"
)

// MinModulusLength is the smallest modulus bit length accepted by
// NewPrimePair.
const MinModulusLength = 64

// PrimePair holds the factorization of a Paillier modulus N = P * Q.
type PrimePair struct {
	P *big.Int
	Q *big.Int
	N *big.Int
}

// NewPrimePair samples two distinct primes of modulusLength/2 bits each
// such that N = P*Q is coprime to (P-1)(Q-1), as required for the
// generator 1 + N of Z_{N^2}*.
func NewPrimePair(modulusLength int) (*PrimePair, error) {
	return newPrimePair(rand.Reader, modulusLength)
}

func newPrimePair(source io.Reader, modulusLength int) (*PrimePair, error) {
	if modulusLength < MinModulusLength || modulusLength%2 != 0 {
		return nil, errors.Errorf("modulus length should be an even number of at least %d bits",
			MinModulusLength)
	}

	one := big.NewInt(1)
	for {
		p, err := rand.Prime(source, modulusLength/2)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate prime")
		}
		q, err := rand.Prime(source, modulusLength/2)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate prime")
		}
		if p.Cmp(q) == 0 {
			continue
		}

		n := new(big.Int).Mul(p, q)
		phi := new(big.Int).Mul(new(big.Int).Sub(p, one), new(big.Int).Sub(q, one))
		if new(big.Int).GCD(nil, nil, n, phi).Cmp(one) != 0 {
			continue
		}

		return &PrimePair{P: p, Q: q, N: n}, nil
	}
}
