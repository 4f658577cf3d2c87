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

package secagg

import (
	"context"

	"github.com/fentec-project/fedagg/crypto/paillier"
	"github.com/fentec-project/fedagg/data"
	"github.com/fentec-project/fedagg/federated"
	"github.com/fentec-project/fedagg/kernel"
	"github.com/fentec-project/fedagg/types"
	"github.com/pkg/errors"
)

// Kernel kinds of the Paillier secure sum.
const (
	KindPaillierKeygen  kernel.Kind = "paillier.keygen"
	KindPaillierEncrypt kernel.Kind = "paillier.encrypt"
	KindPaillierSum     kernel.Kind = "paillier.sum"
	KindPaillierDecrypt kernel.Kind = "paillier.decrypt"
	KindReshape         kernel.Kind = "reshape"
)

// keyTypes returns the types of an exported Paillier key pair of width
// bytes: the encryption key and the <lambda, mu> decryption key.
func keyTypes(width int) (types.TensorType, types.TupleType) {
	ek := types.Tensor(data.Uint8, width)
	return ek, types.Tuple(ek, ek)
}

// KeygenType returns the signature of a Paillier key generation kernel
// producing keys of width bytes.
func KeygenType(width int) types.FunctionType {
	ek, dk := keyTypes(width)
	return types.Function(nil, types.Tuple(ek, dk))
}

// keyWidth checks that t is a key generation signature and returns the
// key width.
func keyWidth(t types.FunctionType) (int, error) {
	bad := errors.Wrapf(federated.ErrTypeSignatureMismatch,
		"%s is not a key generator of <uint8[B],<uint8[B],uint8[B]>>", t)
	res, ok := t.Result.(types.TupleType)
	if t.Param != nil || !ok || res.Len() != 2 {
		return 0, bad
	}
	ek, ok := res.Elements[0].(types.TensorType)
	if !ok || ek.DType != data.Uint8 || len(ek.Shape) != 1 || ek.Shape[0] <= 0 {
		return 0, bad
	}
	if !KeygenType(ek.Shape[0]).Equal(t) {
		return 0, bad
	}

	return ek.Shape[0], nil
}

// cipherType is the type of the encryption of n elements under a key of
// width bytes.
func cipherType(n, width int) types.TensorType {
	return types.Tensor(data.Uint8, n, 2*width)
}

type kernels struct {
	cache *kernel.Cache
	width int
}

// keygen returns the default key generation kernel at a modulus of the
// given bit length.
func (k kernels) keygen(modulusLength int) (*kernel.Kernel, error) {
	typ := KeygenType(k.width)
	d := kernel.Describe(KindPaillierKeygen, nil, typ).WithScalar(modulusLength)

	return k.cache.Materialize(d, func() (*kernel.Kernel, error) {
		return kernel.New(KindPaillierKeygen, typ, func(context.Context, interface{}) (interface{}, error) {
			pk, sk, err := paillier.GenerateKey(modulusLength)
			if err != nil {
				return nil, err
			}
			ek, err := pk.Bytes(k.width)
			if err != nil {
				return nil, err
			}
			lambda, mu, err := sk.Bytes(k.width)
			if err != nil {
				return nil, err
			}

			shape := []int{k.width}
			ekt, err := data.NewUint8Tensor(shape, ek)
			if err != nil {
				return nil, err
			}
			lt, err := data.NewUint8Tensor(shape, lambda)
			if err != nil {
				return nil, err
			}
			mt, err := data.NewUint8Tensor(shape, mu)
			if err != nil {
				return nil, err
			}

			return []interface{}{ekt, []interface{}{lt, mt}}, nil
		}), nil
	})
}

// reshape returns the kernel changing the shape of a tensor.
func (k kernels) reshape(from, to types.TensorType) (*kernel.Kernel, error) {
	if from.DType != to.DType || from.NumElements() != to.NumElements() {
		return nil, errors.Wrapf(federated.ErrTypeSignatureMismatch, "cannot reshape %s into %s", from, to)
	}
	typ := types.Function(from, to)
	d := kernel.Describe(KindReshape, []types.Type{from}, to)

	return k.cache.Materialize(d, func() (*kernel.Kernel, error) {
		return kernel.New(KindReshape, typ, func(_ context.Context, arg interface{}) (interface{}, error) {
			return arg.(data.Tensor).Reshape(to.Shape)
		}), nil
	})
}

// encrypt returns the kernel <x, ek> -> ciphertext for integer tensors x
// of type plain.
func (k kernels) encrypt(plain types.TensorType) (*kernel.Kernel, error) {
	if !plain.DType.IsInteger() {
		return nil, errors.Wrapf(federated.ErrTypeSignatureMismatch, "cannot encrypt %s", plain)
	}
	ek, _ := keyTypes(k.width)
	param := types.Tuple(plain, ek)
	typ := types.Function(param, cipherType(plain.NumElements(), k.width))
	d := kernel.Describe(KindPaillierEncrypt, []types.Type{param})

	return k.cache.Materialize(d, func() (*kernel.Kernel, error) {
		return kernel.New(KindPaillierEncrypt, typ, func(_ context.Context, arg interface{}) (interface{}, error) {
			args := arg.([]interface{})
			x, err := args[0].(data.Tensor).Vector()
			if err != nil {
				return nil, err
			}
			pk, err := paillier.NewPublicKeyFromBytes(args[1].(data.Tensor).Bytes())
			if err != nil {
				return nil, err
			}

			c, err := pk.EncryptVector(x)
			if err != nil {
				return nil, err
			}

			return k.cipherTensor(pk, c)
		}), nil
	})
}

// sum returns the kernel <<c_1, ..., c_n>, ek> -> ciphertext adding n
// ciphertexts of type cipher.
func (k kernels) sum(cipher types.TensorType, n int) (*kernel.Kernel, error) {
	ek, _ := keyTypes(k.width)
	param := types.Tuple(types.Repeat(cipher, n), ek)
	typ := types.Function(param, cipher)
	d := kernel.Describe(KindPaillierSum, []types.Type{param})

	return k.cache.Materialize(d, func() (*kernel.Kernel, error) {
		return kernel.New(KindPaillierSum, typ, func(_ context.Context, arg interface{}) (interface{}, error) {
			args := arg.([]interface{})
			pk, err := paillier.NewPublicKeyFromBytes(args[1].(data.Tensor).Bytes())
			if err != nil {
				return nil, err
			}

			summands := args[0].([]interface{})
			cs := make([]data.Vector, len(summands))
			for i, s := range summands {
				if cs[i], err = pk.CiphertextFromBytes(s.(data.Tensor).Bytes(), k.width); err != nil {
					return nil, errors.Wrapf(err, "summand %d", i)
				}
			}

			acc, err := pk.Sum(cs)
			if err != nil {
				return nil, err
			}

			return k.cipherTensor(pk, acc)
		}), nil
	})
}

// decrypt returns the kernel <c, ek, dk> -> plain for a matrix type plain.
// Sums that do not fit the element type of plain fail with
// paillier.ErrOverflow.
func (k kernels) decrypt(plain types.TensorType) (*kernel.Kernel, error) {
	if !plain.DType.IsInteger() || len(plain.Shape) != 2 {
		return nil, errors.Wrapf(federated.ErrTypeSignatureMismatch, "cannot decrypt into %s", plain)
	}
	ek, dk := keyTypes(k.width)
	param := types.Tuple(cipherType(plain.NumElements(), k.width), ek, dk)
	typ := types.Function(param, plain)
	d := kernel.Describe(KindPaillierDecrypt, []types.Type{param}, plain)

	return k.cache.Materialize(d, func() (*kernel.Kernel, error) {
		return kernel.New(KindPaillierDecrypt, typ, func(_ context.Context, arg interface{}) (interface{}, error) {
			args := arg.([]interface{})
			pk, err := paillier.NewPublicKeyFromBytes(args[1].(data.Tensor).Bytes())
			if err != nil {
				return nil, err
			}
			dkParts := args[2].([]interface{})
			sk, err := paillier.NewSecretKeyFromBytes(
				dkParts[0].(data.Tensor).Bytes(), dkParts[1].(data.Tensor).Bytes())
			if err != nil {
				return nil, err
			}
			c, err := pk.CiphertextFromBytes(args[0].(data.Tensor).Bytes(), k.width)
			if err != nil {
				return nil, err
			}

			x, err := pk.DecryptVector(sk, c)
			if err != nil {
				return nil, err
			}
			lo, hi := plain.DType.Bounds()
			for i, xi := range x {
				if xi.Cmp(lo) < 0 || xi.Cmp(hi) > 0 {
					return nil, errors.Wrapf(paillier.ErrOverflow, "element %d is %s, out of %s range", i, xi, plain.DType)
				}
			}

			rows, cols := plain.Shape[0], plain.Shape[1]
			vs := make([]data.Vector, rows)
			for i := range vs {
				vs[i] = x[i*cols : (i+1)*cols]
			}
			m, err := data.NewMatrix(vs)
			if err != nil {
				return nil, err
			}

			return data.NewTensorFromMatrix(plain.DType, m)
		}), nil
	})
}

func (k kernels) cipherTensor(pk *paillier.PublicKey, c data.Vector) (data.Tensor, error) {
	raw, err := pk.CiphertextBytes(c, k.width)
	if err != nil {
		return data.Tensor{}, err
	}

	return data.NewUint8Tensor([]int{len(c), 2 * k.width}, raw)
}
