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

package secagg_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fentec-project/fedagg/channel"
	"github.com/fentec-project/fedagg/placement"
	"github.com/fentec-project/fedagg/secagg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "secagg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := secagg.DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2048, cfg.ModulusBits)

	factories, err := cfg.Factories()
	require.NoError(t, err)
	assert.Len(t, factories, 3)
	assert.Contains(t, factories, placement.NewPair(placement.Aggregator, placement.Clients))
	assert.Contains(t, factories, placement.NewPair(placement.Server, placement.Clients))
	assert.Contains(t, factories, placement.NewPair(placement.Server, placement.Aggregator))
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
clients: 7
modulus_bits: 1024
channels:
  - between: [aggregator, server]
    kind: BOX
`)
	cfg, err := secagg.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Clients)
	assert.Equal(t, 1024, cfg.ModulusBits)

	l, err := secagg.NewLocal(cfg)
	require.NoError(t, err)
	assert.Len(t, l.Clients, 7)
	assert.Len(t, l.Grid.Pairs(), 3)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := secagg.LoadConfig(writeConfig(t, "clients: 4\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Clients)
	assert.Equal(t, secagg.DefaultConfig().ModulusBits, cfg.ModulusBits)
	assert.Equal(t, secagg.DefaultConfig().Channels, cfg.Channels)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"syntax":         "clients: [",
		"odd modulus":    "modulus_bits: 513\n",
		"small modulus":  "modulus_bits: 32\n",
		"unknown kind":   "channels:\n  - between: [clients, server]\n    kind: carrier-pigeon\n",
		"unknown name":   "channels:\n  - between: [clients, moon]\n    kind: box\n",
		"self loop":      "channels:\n  - between: [server, server]\n    kind: box\n",
		"three ends":     "channels:\n  - between: [clients, server, aggregator]\n    kind: box\n",
		"negative count": "clients: -1\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := secagg.LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := secagg.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	cfg := secagg.DefaultConfig()
	cfg.Clients = 0
	assert.Error(t, cfg.Validate())

	_, err := secagg.NewLocal(cfg)
	assert.Error(t, err)

	cfg = secagg.DefaultConfig()
	cfg.Channels = append(cfg.Channels, secagg.ChannelConfig{
		Between: []string{"SERVER", "CLIENTS"},
		Kind:    channel.SealedBox,
	})
	require.NoError(t, cfg.Validate())
}
