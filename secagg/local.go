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
	"fmt"

	"github.com/fentec-project/fedagg/channel"
	"github.com/fentec-project/fedagg/executor"
	"github.com/fentec-project/fedagg/federated"
	"github.com/fentec-project/fedagg/placement"
)

// Local is an in-process deployment: one local executor per client, one
// for the server and one for the aggregator.
type Local struct {
	Runtime  *federated.Runtime
	Grid     *channel.Grid
	Strategy *Strategy

	Clients    []*executor.Local
	Server     *executor.Local
	Aggregator *executor.Local
}

// NewLocal builds a Local deployment from cfg.
func NewLocal(cfg Config, opts ...federated.Option) (*Local, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	factories, err := cfg.Factories()
	if err != nil {
		return nil, err
	}

	l := &Local{
		Clients:    make([]*executor.Local, cfg.Clients),
		Server:     executor.NewLocal("server"),
		Aggregator: executor.NewLocal("aggregator"),
	}
	clients := make([]executor.Executor, cfg.Clients)
	for i := range clients {
		l.Clients[i] = executor.NewLocal(fmt.Sprintf("client-%d", i))
		clients[i] = l.Clients[i]
	}

	l.Runtime, err = federated.NewRuntime(map[placement.Placement][]executor.Executor{
		placement.Clients:    clients,
		placement.Server:     {l.Server},
		placement.Aggregator: {l.Aggregator},
	}, opts...)
	if err != nil {
		return nil, err
	}
	l.Grid = channel.NewGrid(factories)
	l.Strategy, err = New(l.Runtime, l.Grid, WithModulusLength(cfg.ModulusBits))
	if err != nil {
		return nil, err
	}

	return l, nil
}
