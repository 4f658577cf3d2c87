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

package paillier

import (
	"math/big"

	"github.com/fentec-project/fedagg/data"
	"github.com/fentec-project/fedagg/internal"
	"github.com/pkg/errors"
)

// KeyByteLen returns the number of bytes of an exported key of a modulus
// with the given bit length.
func KeyByteLen(modulusLength int) int {
	return (modulusLength + 7) / 8
}

// ByteLen returns the number of bytes of the exported modulus. Exported
// ciphertext elements take twice as many.
func (pk *PublicKey) ByteLen() int {
	return KeyByteLen(pk.N.BitLen())
}

// Bytes exports the modulus as width big-endian bytes.
func (pk *PublicKey) Bytes(width int) ([]byte, error) {
	b, err := data.Vector{pk.N}.FixedBytes(width)
	if err != nil {
		return nil, errors.Wrap(internal.MalformedPubKey, err.Error())
	}

	return b, nil
}

// NewPublicKeyFromBytes imports a key exported with PublicKey.Bytes.
func NewPublicKeyFromBytes(b []byte) (*PublicKey, error) {
	n := new(big.Int).SetBytes(b)
	if n.Cmp(big.NewInt(3)) < 0 || n.Bit(0) == 0 {
		return nil, internal.MalformedPubKey
	}

	return NewPublicKey(n), nil
}

// Bytes exports lambda and mu as width big-endian bytes each.
func (sk *SecretKey) Bytes(width int) (lambda, mu []byte, err error) {
	b, err := data.Vector{sk.Lambda, sk.Mu}.FixedBytes(width)
	if err != nil {
		return nil, nil, errors.Wrap(internal.MalformedSecKey, err.Error())
	}

	return b[:width], b[width:], nil
}

// NewSecretKeyFromBytes imports a key exported with SecretKey.Bytes.
func NewSecretKeyFromBytes(lambda, mu []byte) (*SecretKey, error) {
	sk := &SecretKey{
		Lambda: new(big.Int).SetBytes(lambda),
		Mu:     new(big.Int).SetBytes(mu),
	}
	if sk.Lambda.Sign() == 0 || sk.Mu.Sign() == 0 {
		return nil, internal.MalformedSecKey
	}

	return sk, nil
}

// CiphertextBytes exports a ciphertext vector with 2*width bytes per
// element.
func (pk *PublicKey) CiphertextBytes(c data.Vector, width int) ([]byte, error) {
	for _, ci := range c {
		if err := pk.checkCipher(ci); err != nil {
			return nil, err
		}
	}

	return c.FixedBytes(2 * width)
}

// CiphertextFromBytes imports a ciphertext vector exported with
// CiphertextBytes.
func (pk *PublicKey) CiphertextFromBytes(b []byte, width int) (data.Vector, error) {
	c, err := data.NewVectorFromFixedBytes(b, 2*width)
	if err != nil {
		return nil, errors.Wrap(internal.MalformedCipher, err.Error())
	}
	for _, ci := range c {
		if err := pk.checkCipher(ci); err != nil {
			return nil, err
		}
	}

	return c, nil
}
