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

package placement

import "fmt"

// Pair is an unordered pair of placements. Pairs built with NewPair are
// always stored in canonical order (by URI), so two pairs holding the same
// placements compare equal regardless of the argument order.
type Pair struct {
	first, second Placement
}

// NewPair returns the canonical pair of a and b.
func NewPair(a, b Placement) Pair {
	if b.uri < a.uri {
		a, b = b, a
	}

	return Pair{first: a, second: b}
}

// Placements returns both members of the pair in canonical order.
func (p Pair) Placements() (Placement, Placement) {
	return p.first, p.second
}

// Contains reports whether x is one of the two members.
func (p Pair) Contains(x Placement) bool {
	return p.first == x || p.second == x
}

// Other returns the member of the pair that is not x. The second return
// value is false if x is not a member.
func (p Pair) Other(x Placement) (Placement, bool) {
	switch x {
	case p.first:
		return p.second, true
	case p.second:
		return p.first, true
	}

	return Placement{}, false
}

func (p Pair) String() string {
	return fmt.Sprintf("(%s,%s)", p.first, p.second)
}
