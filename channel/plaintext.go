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
	"context"

	"github.com/fentec-project/fedagg/federated"
	"github.com/fentec-project/fedagg/internal/lifecycle"
	"github.com/fentec-project/fedagg/placement"
)

// PlaintextChannel moves values between its placements unencrypted.
type PlaintextChannel struct {
	rt    *federated.Runtime
	pair  placement.Pair
	guard lifecycle.Guard
}

// NewPlaintext is the Factory of plaintext channels.
func NewPlaintext(rt *federated.Runtime, pair placement.Pair) (Channel, error) {
	a, b := pair.Placements()
	for _, p := range []placement.Placement{a, b} {
		if _, err := rt.Cardinality(p); err != nil {
			return nil, err
		}
	}

	return &PlaintextChannel{rt: rt, pair: pair}, nil
}

// Placements implements Channel.
func (c *PlaintextChannel) Placements() placement.Pair {
	return c.pair
}

// Setup implements Channel. There is nothing to set up.
func (c *PlaintextChannel) Setup(ctx context.Context) error {
	return c.guard.Do(ctx, func(context.Context) error { return nil })
}

// Send implements Channel. The value is returned as is.
func (c *PlaintextChannel) Send(_ context.Context, v *federated.Value) (*federated.Value, error) {
	if _, err := endpoints(c.pair, v.Placement()); err != nil {
		return nil, err
	}

	return v, nil
}

// Receive implements Channel. The value is returned as is.
func (c *PlaintextChannel) Receive(_ context.Context, v *federated.Value) (*federated.Value, error) {
	if _, err := endpoints(c.pair, v.Placement()); err != nil {
		return nil, err
	}

	return v, nil
}

// Transfer implements Channel.
func (c *PlaintextChannel) Transfer(ctx context.Context, v *federated.Value) (*federated.Value, error) {
	to, err := endpoints(c.pair, v.Placement())
	if err != nil {
		return nil, err
	}
	c.rt.Logger().Debug("plaintext transfer",
		"from", v.Placement().Name(), "to", to.Name(), "type", v.Type().String())

	return route(ctx, c.rt, v, to)
}
