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

package channel

import (
	"bytes"
	"context"
	"crypto/rand"

	"github.com/fentec-project/fedagg/crypto/sealedbox"
	"github.com/fentec-project/fedagg/data"
	"github.com/fentec-project/fedagg/executor"
	"github.com/fentec-project/fedagg/federated"
	"github.com/fentec-project/fedagg/kernel"
	"github.com/fentec-project/fedagg/types"
	"github.com/pkg/errors"
)

// Kernel kinds of the sealed box channel.
const (
	KindBoxKeygen  kernel.Kind = "box.keygen"
	KindBoxEncrypt kernel.Kind = "box.encrypt"
	KindBoxDecrypt kernel.Kind = "box.decrypt"
)

// KeyType is the type of a sealed box key.
var KeyType = types.Tensor(data.Uint8, sealedbox.KeySize)

// HeaderSize is the length of the sealed type header of a record.
const HeaderSize = len(types.Fingerprint{})

// RecordType returns the type of a sealed box record of a plaintext of
// type plain: <body, header, tag, nonce>. The body is the ciphertext of the
// tensor bytes, typed like the plaintext. The header is the ciphertext of
// the plaintext type fingerprint, so a record opens only as the type it
// was sealed with.
func RecordType(plain types.TensorType) types.TupleType {
	return types.Tuple(
		plain,
		types.Tensor(data.Uint8, HeaderSize),
		types.Tensor(data.Uint8, sealedbox.TagSize),
		types.Tensor(data.Uint8, sealedbox.NonceSize),
	)
}

// SealedType returns the plaintext type of a record type.
func SealedType(record types.Type) (types.TensorType, error) {
	tt, ok := record.(types.TupleType)
	if !ok || tt.Len() != 4 {
		return types.TensorType{}, errors.Wrapf(federated.ErrTypeSignatureMismatch, "%s is not a sealed record", record)
	}
	plain, ok := tt.Elements[0].(types.TensorType)
	if !ok || !RecordType(plain).Equal(tt) {
		return types.TensorType{}, errors.Wrapf(federated.ErrTypeSignatureMismatch, "%s is not a sealed record", record)
	}

	return plain, nil
}

type boxKernels struct {
	cache *kernel.Cache
}

// keygen returns the kernel generating a <public, secret> key pair.
func (b boxKernels) keygen() (*kernel.Kernel, error) {
	typ := types.Function(nil, types.Tuple(KeyType, KeyType))
	d := kernel.Describe(KindBoxKeygen, nil)

	return b.cache.Materialize(d, func() (*kernel.Kernel, error) {
		return kernel.New(KindBoxKeygen, typ, func(context.Context, interface{}) (interface{}, error) {
			pk, sk, err := sealedbox.GenerateKey(rand.Reader)
			if err != nil {
				return nil, err
			}
			pkt, err := data.NewUint8Tensor([]int{sealedbox.KeySize}, pk[:])
			if err != nil {
				return nil, err
			}
			skt, err := data.NewUint8Tensor([]int{sealedbox.KeySize}, sk[:])
			if err != nil {
				return nil, err
			}

			return []interface{}{pkt, skt}, nil
		}), nil
	})
}

// encrypt returns the kernel sealing a tensor of type plain:
// <plain, sender secret key, peer public key> -> record.
func (b boxKernels) encrypt(plain types.Type) (*kernel.Kernel, error) {
	pt, ok := plain.(types.TensorType)
	if !ok {
		return nil, errors.Wrapf(federated.ErrTypeSignatureMismatch, "cannot encrypt %s", plain)
	}
	param := types.Tuple(pt, KeyType, KeyType)
	typ := types.Function(param, RecordType(pt))
	d := kernel.Describe(KindBoxEncrypt, []types.Type{param})

	return b.cache.Materialize(d, func() (*kernel.Kernel, error) {
		return kernel.New(KindBoxEncrypt, typ, func(_ context.Context, arg interface{}) (interface{}, error) {
			args := arg.([]interface{})
			x := args[0].(data.Tensor)
			sk, err := sealedbox.SecretKeyFromBytes(args[1].(data.Tensor).Bytes())
			if err != nil {
				return nil, err
			}
			pk, err := sealedbox.PublicKeyFromBytes(args[2].(data.Tensor).Bytes())
			if err != nil {
				return nil, err
			}

			header := types.FingerprintOf(pt)
			msg := append(header[:], x.Bytes()...)
			rec, err := sealedbox.SealDetached(rand.Reader, msg, pk, sk)
			if err != nil {
				return nil, err
			}

			return recordToTensors(rec, pt)
		}), nil
	})
}

// decrypt returns the kernel opening a record into the plaintext type it
// was sealed with: <record, peer public key, receiver secret key> -> plain.
func (b boxKernels) decrypt(record types.Type) (*kernel.Kernel, error) {
	pt, err := SealedType(record)
	if err != nil {
		return nil, err
	}
	param := types.Tuple(record, KeyType, KeyType)
	typ := types.Function(param, pt)
	d := kernel.Describe(KindBoxDecrypt, []types.Type{param})

	return b.cache.Materialize(d, func() (*kernel.Kernel, error) {
		return kernel.New(KindBoxDecrypt, typ, func(_ context.Context, arg interface{}) (interface{}, error) {
			args := arg.([]interface{})
			rec := tensorsToRecord(args[0].([]interface{}))
			pk, err := sealedbox.PublicKeyFromBytes(args[1].(data.Tensor).Bytes())
			if err != nil {
				return nil, err
			}
			sk, err := sealedbox.SecretKeyFromBytes(args[2].(data.Tensor).Bytes())
			if err != nil {
				return nil, err
			}

			msg, err := sealedbox.OpenDetached(rec, pk, sk)
			if err != nil {
				return nil, err
			}
			header := types.FingerprintOf(pt)
			if !bytes.Equal(msg[:HeaderSize], header[:]) {
				return nil, errors.Wrapf(federated.ErrTypeSignatureMismatch, "record was not sealed as %s", pt)
			}

			return data.NewTensor(pt.DType, pt.Shape, msg[HeaderSize:])
		}), nil
	})
}

// recordToTensors splits the ciphertext of rec into the sealed header and
// a body typed as plain.
func recordToTensors(rec *sealedbox.Record, plain types.TensorType) ([]interface{}, error) {
	body, err := data.NewTensor(plain.DType, plain.Shape, rec.Ciphertext[HeaderSize:])
	if err != nil {
		return nil, err
	}
	header, err := data.NewUint8Tensor([]int{HeaderSize}, rec.Ciphertext[:HeaderSize])
	if err != nil {
		return nil, err
	}
	tag, err := data.NewUint8Tensor([]int{sealedbox.TagSize}, rec.Tag[:])
	if err != nil {
		return nil, err
	}
	nonce, err := data.NewUint8Tensor([]int{sealedbox.NonceSize}, rec.Nonce[:])
	if err != nil {
		return nil, err
	}

	return []interface{}{body, header, tag, nonce}, nil
}

func tensorsToRecord(ts []interface{}) *sealedbox.Record {
	rec := &sealedbox.Record{
		Ciphertext: append(ts[1].(data.Tensor).Bytes(), ts[0].(data.Tensor).Bytes()...),
	}
	copy(rec.Tag[:], ts[2].(data.Tensor).Bytes())
	copy(rec.Nonce[:], ts[3].(data.Tensor).Bytes())

	return rec
}

// RecordFromPayload converts a computed record payload back into a
// sealed box record. The opened message starts with the HeaderSize byte
// type header.
func RecordFromPayload(payload interface{}) (*sealedbox.Record, error) {
	ts, ok := payload.([]interface{})
	if !ok || len(ts) != 4 {
		return nil, errors.Wrapf(federated.ErrTypeSignatureMismatch, "%T is not a sealed record", payload)
	}
	body, ok := ts[0].(data.Tensor)
	if !ok {
		return nil, errors.Wrapf(federated.ErrTypeSignatureMismatch, "record body is %T", ts[0])
	}
	if err := executor.Conforms(payload, RecordType(types.TypeOf(body))); err != nil {
		return nil, err
	}

	return tensorsToRecord(ts), nil
}
