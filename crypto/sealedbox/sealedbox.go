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

// Package sealedbox provides authenticated public-key encryption between
// two key pairs with a detached authentication tag.
//
// It is NaCl box (Curve25519, XSalsa20, Poly1305). A Record keeps the
// ciphertext, the 16 byte tag and the 24 byte nonce apart so that each can
// travel as its own tensor.
package sealedbox

import (
	"io"

	"github.com/fentec-project/fedagg/internal"
	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/box"
)

// Sizes of the record and key components.
const (
	KeySize   = 32
	TagSize   = box.Overhead
	NonceSize = 24
)

// ErrAuthentication is returned when a record does not open under the
// given keys.
var ErrAuthentication = errors.New("message authentication failed")

// PublicKey is a Curve25519 public key.
type PublicKey [KeySize]byte

// SecretKey is a Curve25519 secret key.
type SecretKey [KeySize]byte

// Record is a detached sealed box.
type Record struct {
	Ciphertext []byte
	Tag        [TagSize]byte
	Nonce      [NonceSize]byte
}

// GenerateKey generates a key pair from the randomness in source.
func GenerateKey(source io.Reader) (*PublicKey, *SecretKey, error) {
	pk, sk, err := box.GenerateKey(source)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to generate box key pair")
	}

	return (*PublicKey)(pk), (*SecretKey)(sk), nil
}

// PublicKeyFromBytes parses a public key.
func PublicKeyFromBytes(b []byte) (*PublicKey, error) {
	if len(b) != KeySize {
		return nil, internal.MalformedPubKey
	}
	var pk PublicKey
	copy(pk[:], b)

	return &pk, nil
}

// SecretKeyFromBytes parses a secret key.
func SecretKeyFromBytes(b []byte) (*SecretKey, error) {
	if len(b) != KeySize {
		return nil, internal.MalformedSecKey
	}
	var sk SecretKey
	copy(sk[:], b)

	return &sk, nil
}

// SealDetached encrypts and authenticates msg from the owner of sender to
// the owner of peer under a random nonce.
func SealDetached(source io.Reader, msg []byte, peer *PublicKey, sender *SecretKey) (*Record, error) {
	rec := &Record{}
	if _, err := io.ReadFull(source, rec.Nonce[:]); err != nil {
		return nil, errors.Wrap(err, "failed to generate nonce")
	}

	// box output is tag || ciphertext
	sealed := box.Seal(nil, msg, &rec.Nonce, (*[KeySize]byte)(peer), (*[KeySize]byte)(sender))
	copy(rec.Tag[:], sealed[:TagSize])
	rec.Ciphertext = sealed[TagSize:]

	return rec, nil
}

// OpenDetached authenticates and decrypts rec, sent by the owner of peer
// to the owner of receiver.
func OpenDetached(rec *Record, peer *PublicKey, receiver *SecretKey) ([]byte, error) {
	sealed := make([]byte, 0, TagSize+len(rec.Ciphertext))
	sealed = append(sealed, rec.Tag[:]...)
	sealed = append(sealed, rec.Ciphertext...)

	msg, ok := box.Open(nil, sealed, &rec.Nonce, (*[KeySize]byte)(peer), (*[KeySize]byte)(receiver))
	if !ok {
		return nil, ErrAuthentication
	}
	if msg == nil {
		msg = []byte{}
	}

	return msg, nil
}
