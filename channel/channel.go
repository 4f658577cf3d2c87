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

// Package channel implements point-to-point transports between two
// placements and the grid that holds one transport per placement pair.
//
// Two transports are provided. The plaintext channel moves values as they
// are. The sealed box channel generates a Curve25519 key pair for every
// member of both placements, exchanges the public keys, and encrypts
// every value with NaCl box before it leaves its placement.
//
// Key exchange supports two topologies, decided by the cardinalities of
// the two placements. Many keys shared with a single member arrive there
// as one tuple; a single key shared with many members is replicated to
// each of them. Any other combination fails with
// federated.ErrUnsupportedKeyTopology when the channel is built.
package channel

import (
	"context"
	"strings"

	"github.com/fentec-project/fedagg/federated"
	"github.com/fentec-project/fedagg/placement"
	"github.com/pkg/errors"
)

// Channel is a transport between the two placements of a pair.
type Channel interface {
	// Placements returns the two endpoints.
	Placements() placement.Pair
	// Setup performs the one-time bootstrap of the channel. It is
	// idempotent.
	Setup(ctx context.Context) error
	// Send prepares v for transport. The result lives at the sender.
	Send(ctx context.Context, v *federated.Value) (*federated.Value, error)
	// Receive turns a sent value, already rebound to the receiver, back
	// into a plaintext value at the receiver.
	Receive(ctx context.Context, v *federated.Value) (*federated.Value, error)
	// Transfer sends v, moves it to the other placement and receives it.
	Transfer(ctx context.Context, v *federated.Value) (*federated.Value, error)
}

// Factory builds a channel bound to a runtime and a pair of placements.
type Factory func(rt *federated.Runtime, pair placement.Pair) (Channel, error)

// Kind names a channel implementation.
type Kind string

// Channel kinds.
const (
	Plaintext Kind = "plaintext"
	SealedBox Kind = "box"
)

// ParseKind returns the kind with the given name.
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(name)))
	if _, err := k.Factory(); err != nil {
		return "", err
	}

	return k, nil
}

// Factory returns the constructor of channels of kind k.
func (k Kind) Factory() (Factory, error) {
	switch k {
	case Plaintext:
		return NewPlaintext, nil
	case SealedBox:
		return NewSealedBox, nil
	}

	return nil, errors.Errorf("unknown channel kind %q", string(k))
}

// endpoints returns the endpoint of pair opposite to from.
func endpoints(pair placement.Pair, from placement.Placement) (placement.Placement, error) {
	to, ok := pair.Other(from)
	if !ok {
		return placement.Placement{}, errors.Wrapf(federated.ErrPlacementMismatch,
			"%s is not an endpoint of %s", from, pair)
	}

	return to, nil
}
