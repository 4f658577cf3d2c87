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

// Package paillier implements the additively homomorphic Paillier
// cryptosystem with generator g = 1 + n:
//
//	Enc(x; r) = (1 + x*n) * r^n mod n^2
//	Dec(c)    = L(c^lambda mod n^2) * mu mod n
//
// Plaintexts are signed integers from (-n/2, n/2]. Ciphertexts of the same
// key can be added without decryption; Refresh re-randomizes a ciphertext
// without changing its plaintext.
package paillier

import (
	"math/big"

	"github.com/fentec-project/fedagg/data"
	"github.com/fentec-project/fedagg/internal"
	"github.com/fentec-project/fedagg/internal/keygen"
	"github.com/fentec-project/fedagg/sample"
	"github.com/pkg/errors"
)

// DefaultModulusLength is the bit length of n used unless configured
// otherwise.
const DefaultModulusLength = 2048

// ErrOverflow is returned when a plaintext does not fit the message space
// of the key or the element type it is decoded into.
var ErrOverflow = errors.New("plaintext overflow")

// PublicKey is the encryption key.
type PublicKey struct {
	N       *big.Int // modulus, a product of two primes
	NSquare *big.Int // N^2, the modulus of ciphertexts
	bound   *big.Int // largest absolute plaintext value, floor(N/2)
}

// SecretKey is the decryption key. It is only usable together with the
// PublicKey it was generated with.
type SecretKey struct {
	Lambda *big.Int // lcm(p-1, q-1)
	Mu     *big.Int // Lambda^-1 mod N
}

// NewPublicKey returns the public key with modulus n.
func NewPublicKey(n *big.Int) *PublicKey {
	return &PublicKey{
		N:       new(big.Int).Set(n),
		NSquare: new(big.Int).Mul(n, n),
		bound:   new(big.Int).Rsh(n, 1),
	}
}

// GenerateKey generates a fresh key pair with a modulus of the given bit
// length.
func GenerateKey(modulusLength int) (*PublicKey, *SecretKey, error) {
	pp, err := keygen.NewPrimePair(modulusLength)
	if err != nil {
		return nil, nil, err
	}

	one := big.NewInt(1)
	lambda := internal.Lcm(new(big.Int).Sub(pp.P, one), new(big.Int).Sub(pp.Q, one))
	// with g = 1 + n, L(g^lambda mod n^2) = lambda mod n
	mu := new(big.Int).ModInverse(lambda, pp.N)
	if mu == nil {
		return nil, nil, errors.New("key generation failed, lambda is not invertible")
	}

	return NewPublicKey(pp.N), &SecretKey{Lambda: lambda, Mu: mu}, nil
}

// Encrypt encrypts a single plaintext under fresh randomness.
func (pk *PublicKey) Encrypt(x *big.Int) (*big.Int, error) {
	if x.CmpAbs(pk.bound) > 0 {
		return nil, errors.Wrapf(ErrOverflow, "%s does not fit a %d bit modulus", x, pk.N.BitLen())
	}

	// (1 + n)^x = 1 + x*n mod n^2
	m := new(big.Int).Mod(x, pk.N)
	c := m.Mul(m, pk.N)
	c.Add(c, big.NewInt(1))

	rn, err := pk.blinding()
	if err != nil {
		return nil, err
	}
	c.Mul(c, rn)

	return c.Mod(c, pk.NSquare), nil
}

// EncryptVector encrypts every element of x independently. Nothing is
// encrypted unless every element fits the plaintext range.
func (pk *PublicKey) EncryptVector(x data.Vector) (data.Vector, error) {
	if err := x.CheckBound(new(big.Int).Add(pk.bound, big.NewInt(1))); err != nil {
		return nil, errors.Wrapf(ErrOverflow, "%v for a %d bit modulus", err, pk.N.BitLen())
	}

	cipher := make(data.Vector, len(x))
	for i, xi := range x {
		ct, err := pk.Encrypt(xi)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}
		cipher[i] = ct
	}

	return cipher, nil
}

// Decrypt recovers the signed plaintext of c.
func (pk *PublicKey) Decrypt(sk *SecretKey, c *big.Int) (*big.Int, error) {
	if sk == nil || sk.Lambda == nil || sk.Mu == nil {
		return nil, internal.MalformedDecKey
	}
	if err := pk.checkCipher(c); err != nil {
		return nil, err
	}

	u := new(big.Int).Exp(c, sk.Lambda, pk.NSquare)
	m := internal.L(u, pk.N)
	m.Mul(m, sk.Mu)

	return internal.Signed(m, pk.N), nil
}

// DecryptVector decrypts every element of c.
func (pk *PublicKey) DecryptVector(sk *SecretKey, c data.Vector) (data.Vector, error) {
	plain := make(data.Vector, len(c))
	for i, ci := range c {
		x, err := pk.Decrypt(sk, ci)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}
		plain[i] = x
	}

	return plain, nil
}

// Add homomorphically adds ciphertext vectors a and b element-wise. With
// doRefresh set the result is re-randomized.
func (pk *PublicKey) Add(a, b data.Vector, doRefresh bool) (data.Vector, error) {
	if len(a) != len(b) {
		return nil, errors.Wrapf(internal.MalformedCipher, "cannot add %d to %d elements", len(a), len(b))
	}

	sum := make(data.Vector, len(a))
	for i := range a {
		if err := pk.checkCipher(a[i]); err != nil {
			return nil, err
		}
		if err := pk.checkCipher(b[i]); err != nil {
			return nil, err
		}
		sum[i] = new(big.Int).Mul(a[i], b[i])
		sum[i].Mod(sum[i], pk.NSquare)
	}
	if doRefresh {
		return pk.Refresh(sum)
	}

	return sum, nil
}

// Refresh multiplies every ciphertext of c by a fresh encryption of zero.
func (pk *PublicKey) Refresh(c data.Vector) (data.Vector, error) {
	fresh := make(data.Vector, len(c))
	for i, ci := range c {
		rn, err := pk.blinding()
		if err != nil {
			return nil, err
		}
		fresh[i] = rn.Mul(rn, ci)
		fresh[i].Mod(fresh[i], pk.NSquare)
	}

	return fresh, nil
}

// Sum adds the ciphertext vectors cs with a balanced binary combiner and
// refreshes the result once. Intermediate sums are not re-randomized.
func (pk *PublicKey) Sum(cs []data.Vector) (data.Vector, error) {
	if len(cs) == 0 {
		return nil, errors.New("nothing to sum")
	}

	acc, err := pk.sum(cs)
	if err != nil {
		return nil, err
	}

	return pk.Refresh(acc)
}

func (pk *PublicKey) sum(cs []data.Vector) (data.Vector, error) {
	if len(cs) == 1 {
		return cs[0], nil
	}

	mid := len(cs) / 2
	left, err := pk.sum(cs[:mid])
	if err != nil {
		return nil, err
	}
	right, err := pk.sum(cs[mid:])
	if err != nil {
		return nil, err
	}

	return pk.Add(left, right, false)
}

// blinding returns r^n mod n^2 for a random unit r.
func (pk *PublicKey) blinding() (*big.Int, error) {
	r, err := sample.NewUnitMod(pk.N).Sample()
	if err != nil {
		return nil, errors.Wrap(err, "failed to sample randomness")
	}

	return r.Exp(r, pk.N, pk.NSquare), nil
}

func (pk *PublicKey) checkCipher(c *big.Int) error {
	if c == nil || c.Sign() <= 0 || c.Cmp(pk.NSquare) >= 0 {
		return internal.MalformedCipher
	}

	return nil
}
