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

package channel_test

import (
	"context"
	"testing"

	"github.com/fentec-project/fedagg/channel"
	"github.com/fentec-project/fedagg/data"
	"github.com/fentec-project/fedagg/federated"
	"github.com/fentec-project/fedagg/placement"
	"github.com/fentec-project/fedagg/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyStore(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, 2)
	ks := channel.NewKeyStore()

	_, err := ks.GetPublicKey(placement.Server)
	assert.True(t, errors.Is(err, federated.ErrUnknownPlacement))
	_, err = ks.GetKeyPair(placement.Server)
	assert.True(t, errors.Is(err, federated.ErrUnknownPlacement))

	key := make([]byte, 32)
	kt, err := data.NewUint8Tensor([]int{32}, key)
	require.NoError(t, err)
	atServer, err := rt.Embed(ctx, channel.KeyType, placement.Server, true, kt)
	require.NoError(t, err)
	atClients, err := rt.Embed(ctx, channel.KeyType, placement.Clients, true, kt)
	require.NoError(t, err)

	// public key only; the secret key is still missing
	require.NoError(t, ks.UpdateKeys(placement.Server, atClients, nil))
	pk, err := ks.GetPublicKey(placement.Server)
	require.NoError(t, err)
	assert.Same(t, atClients, pk)
	_, err = ks.GetSecretKey(placement.Server)
	assert.True(t, errors.Is(err, federated.ErrUnknownPlacement))

	// a secret key must stay with its owner
	err = ks.UpdateKeys(placement.Server, nil, atClients)
	assert.True(t, errors.Is(err, federated.ErrPlacementMismatch))

	require.NoError(t, ks.UpdateKeys(placement.Server, nil, atServer))
	kp, err := ks.GetKeyPair(placement.Server)
	require.NoError(t, err)
	assert.Same(t, atClients, kp.Public)
	assert.Same(t, atServer, kp.Secret)

	fn, err := rt.Embed(ctx, types.Tuple(types.Tuple(channel.KeyType)), placement.Server, true,
		[]interface{}{[]interface{}{kt}})
	require.NoError(t, err)
	err = ks.UpdateKeys(placement.Server, fn, nil)
	assert.True(t, errors.Is(err, federated.ErrTypeSignatureMismatch))
}
