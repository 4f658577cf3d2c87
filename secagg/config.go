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
	"os"
	"strings"

	"github.com/fentec-project/fedagg/channel"
	"github.com/fentec-project/fedagg/crypto/paillier"
	"github.com/fentec-project/fedagg/internal/keygen"
	"github.com/fentec-project/fedagg/placement"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config describes a secure sum deployment.
type Config struct {
	// Clients is the number of CLIENTS members created by NewLocal.
	Clients int `yaml:"clients"`
	// ModulusBits is the bit length of the Paillier modulus.
	ModulusBits int             `yaml:"modulus_bits"`
	Channels    []ChannelConfig `yaml:"channels"`
}

// ChannelConfig selects the channel kind between two placements, given by
// name (e.g. "clients", "AGGREGATOR").
type ChannelConfig struct {
	Between []string     `yaml:"between"`
	Kind    channel.Kind `yaml:"kind"`
}

// DefaultConfig returns three clients, a 2048 bit modulus, a sealed box
// channel between the clients and the aggregator and plaintext channels
// to the server.
func DefaultConfig() Config {
	return Config{
		Clients:     3,
		ModulusBits: paillier.DefaultModulusLength,
		Channels: []ChannelConfig{
			{Between: []string{"CLIENTS", "AGGREGATOR"}, Kind: channel.SealedBox},
			{Between: []string{"CLIENTS", "SERVER"}, Kind: channel.Plaintext},
			{Between: []string{"AGGREGATOR", "SERVER"}, Kind: channel.Plaintext},
		},
	}
}

// LoadConfig reads a YAML config from path. Fields missing from the file
// keep their DefaultConfig values; a channels list replaces the default
// one entry by entry for the pairs it names.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "reading config")
	}

	var file Config
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Config{}, errors.Wrapf(err, "parsing config %s", path)
	}

	cfg := DefaultConfig()
	if file.Clients != 0 {
		cfg.Clients = file.Clients
	}
	if file.ModulusBits != 0 {
		cfg.ModulusBits = file.ModulusBits
	}
	cfg.Channels = append(cfg.Channels, file.Channels...)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the client count, the modulus length and every channel
// entry.
func (c Config) Validate() error {
	if c.Clients < 1 {
		return errors.Errorf("need at least one client, got %d", c.Clients)
	}
	if c.ModulusBits < keygen.MinModulusLength || c.ModulusBits%2 != 0 {
		return errors.Errorf("modulus length must be even and at least %d bits, got %d",
			keygen.MinModulusLength, c.ModulusBits)
	}
	_, err := c.Factories()

	return err
}

// Factories returns the channel factory of every configured pair. Later
// entries for the same pair override earlier ones.
func (c Config) Factories() (map[placement.Pair]channel.Factory, error) {
	factories := make(map[placement.Pair]channel.Factory, len(c.Channels))
	for i, cc := range c.Channels {
		pair, err := cc.pair()
		if err != nil {
			return nil, errors.Wrapf(err, "channel %d", i)
		}
		kind, err := channel.ParseKind(string(cc.Kind))
		if err != nil {
			return nil, errors.Wrapf(err, "channel %d", i)
		}
		f, err := kind.Factory()
		if err != nil {
			return nil, err
		}
		factories[pair] = f
	}

	return factories, nil
}

func (cc ChannelConfig) pair() (placement.Pair, error) {
	if len(cc.Between) != 2 {
		return placement.Pair{}, errors.Errorf("a channel is between two placements, got %v", cc.Between)
	}
	var ps [2]placement.Placement
	for i, name := range cc.Between {
		p, ok := placement.Lookup(strings.ToUpper(strings.TrimSpace(name)))
		if !ok {
			return placement.Pair{}, errors.Errorf("unknown placement %q", name)
		}
		ps[i] = p
	}
	if ps[0] == ps[1] {
		return placement.Pair{}, errors.Errorf("channel from %s to itself", ps[0])
	}

	return placement.NewPair(ps[0], ps[1]), nil
}
