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

// Package placement defines the named participant groups of a federated
// computation.
//
// A Placement is a small comparable value. Two placements are equal if and
// only if they were registered under the same name, so placements can be
// used directly as map keys. The registry is closed over the lifetime of a
// process: a name can be registered once and never removed.
//
// Three placements are predefined: Clients (the data holders), Server (the
// coordinator) and Aggregator (the intermediate party that combines
// encrypted contributions).
package placement

import (
	"regexp"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Placement is a named group of participants.
type Placement struct {
	name            string
	uri             string
	defaultAllEqual bool
}

// Name returns the upper-case name of the placement, e.g. "CLIENTS".
func (p Placement) Name() string {
	return p.name
}

// URI returns the lower-case identifier of the placement, used for
// canonical ordering.
func (p Placement) URI() string {
	return p.uri
}

// DefaultAllEqual reports whether every member of the placement holds an
// identical value unless stated otherwise.
func (p Placement) DefaultAllEqual() bool {
	return p.defaultAllEqual
}

// IsZero reports whether p is the zero Placement.
func (p Placement) IsZero() bool {
	return p.name == ""
}

func (p Placement) String() string {
	return p.name
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Placement)

	nameRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

// Register adds a new placement to the process-wide registry.
// It returns an error if the name is malformed or already taken.
func Register(name, uri string, defaultAllEqual bool) (Placement, error) {
	if !nameRe.MatchString(name) {
		return Placement{}, errors.Errorf("invalid placement name %q", name)
	}
	if uri == "" {
		return Placement{}, errors.Errorf("placement %s needs a uri", name)
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, ok := registry[name]; ok {
		return Placement{}, errors.Errorf("placement %s already registered", name)
	}
	for _, p := range registry {
		if p.uri == uri {
			return Placement{}, errors.Errorf("placement uri %q already used by %s", uri, p.name)
		}
	}

	p := Placement{name: name, uri: uri, defaultAllEqual: defaultAllEqual}
	registry[name] = p

	return p, nil
}

// MustRegister is like Register but panics on error. It is meant for
// package-level placement declarations.
func MustRegister(name, uri string, defaultAllEqual bool) Placement {
	p, err := Register(name, uri, defaultAllEqual)
	if err != nil {
		panic(err)
	}

	return p
}

// Lookup returns the registered placement with the given name.
func Lookup(name string) (Placement, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	p, ok := registry[name]
	return p, ok
}

// All returns every registered placement ordered by URI.
func All() []Placement {
	registryMu.RLock()
	all := make([]Placement, 0, len(registry))
	for _, p := range registry {
		all = append(all, p)
	}
	registryMu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].uri < all[j].uri })
	return all
}

// Predefined placements.
var (
	Clients    = MustRegister("CLIENTS", "clients", false)
	Server     = MustRegister("SERVER", "server", true)
	Aggregator = MustRegister("AGGREGATOR", "aggregator", true)
)
