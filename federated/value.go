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

package federated

import (
	"context"

	"github.com/fentec-project/fedagg/executor"
	"github.com/fentec-project/fedagg/placement"
	"github.com/fentec-project/fedagg/types"
	"github.com/pkg/errors"
)

// Value is an immutable value distributed over the members of a placement.
// It holds one executor handle per member, or a single handle standing for
// every member when all members hold the same value.
type Value struct {
	member    types.Type
	placement placement.Placement
	allEqual  bool
	items     []executor.Value
}

// Type returns the federated type of v.
func (v *Value) Type() types.FederatedType {
	return types.Federated(v.member, v.placement, v.allEqual)
}

// Member returns the type of each member's value.
func (v *Value) Member() types.Type {
	return v.member
}

// Placement returns the placement v lives at.
func (v *Value) Placement() placement.Placement {
	return v.placement
}

// AllEqual reports whether every member holds the same value.
func (v *Value) AllEqual() bool {
	return v.allEqual
}

// Len returns the number of handles.
func (v *Value) Len() int {
	return len(v.items)
}

// Item returns the i-th handle.
func (v *Value) Item(i int) executor.Value {
	return v.items[i]
}

// Items returns a copy of the handles.
func (v *Value) Items() []executor.Value {
	return append([]executor.Value(nil), v.items...)
}

// Compute materializes every handle, in member order.
func (v *Value) Compute(ctx context.Context) ([]interface{}, error) {
	out := make([]interface{}, len(v.items))
	for i, item := range v.items {
		p, err := item.Compute(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "member %d of %s", i, v.Type())
		}
		out[i] = p
	}

	return out, nil
}

func (v *Value) String() string {
	return v.Type().String()
}
