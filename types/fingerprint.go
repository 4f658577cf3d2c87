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

package types

import (
	"encoding/binary"
	"hash"

	"golang.org/x/crypto/sha3"
)

// Fingerprint is a fixed size structural digest of a sequence of types.
// Structurally equal sequences have equal fingerprints.
type Fingerprint [32]byte

const (
	tagNil byte = iota
	tagTensor
	tagTuple
	tagFunction
	tagFederated
)

type encoder struct {
	h   hash.Hash
	buf [binary.MaxVarintLen64]byte
}

func (e *encoder) byte(b byte) {
	e.h.Write([]byte{b})
}

func (e *encoder) int(x int) {
	n := binary.PutVarint(e.buf[:], int64(x))
	e.h.Write(e.buf[:n])
}

func (e *encoder) string(s string) {
	e.int(len(s))
	e.h.Write([]byte(s))
}

func (e *encoder) typ(t Type) {
	if t == nil {
		e.byte(tagNil)
		return
	}
	t.encode(e)
}

func (t TensorType) encode(e *encoder) {
	e.byte(tagTensor)
	e.byte(byte(t.DType))
	e.int(len(t.Shape))
	for _, d := range t.Shape {
		e.int(d)
	}
}

func (t TupleType) encode(e *encoder) {
	e.byte(tagTuple)
	e.int(len(t.Elements))
	for _, el := range t.Elements {
		e.typ(el)
	}
}

func (t FunctionType) encode(e *encoder) {
	e.byte(tagFunction)
	e.typ(t.Param)
	e.typ(t.Result)
}

func (t FederatedType) encode(e *encoder) {
	e.byte(tagFederated)
	e.string(t.Placement.Name())
	if t.AllEqual {
		e.byte(1)
	} else {
		e.byte(0)
	}
	e.typ(t.Member)
}

// FingerprintOf computes the fingerprint of the given type sequence.
// The encoding is length prefixed, so sequences of different length never
// collide structurally.
func FingerprintOf(ts ...Type) Fingerprint {
	e := &encoder{h: sha3.New256()}
	e.int(len(ts))
	for _, t := range ts {
		e.typ(t)
	}

	var fp Fingerprint
	copy(fp[:], e.h.Sum(nil))
	return fp
}
