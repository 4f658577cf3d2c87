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
	"sort"
	"sync"

	"github.com/fentec-project/fedagg/federated"
	"github.com/fentec-project/fedagg/placement"
	"github.com/fentec-project/fedagg/types"
	"github.com/pkg/errors"
)

// KeyPair is the key material of one placement. The secret key lives at
// its owner; the public key may have been shared to another placement.
type KeyPair struct {
	Public *federated.Value
	Secret *federated.Value
}

// KeyStore caches key material by owner placement.
type KeyStore struct {
	mu   sync.RWMutex
	keys map[string]KeyPair
}

// NewKeyStore returns an empty store.
func NewKeyStore() *KeyStore {
	return &KeyStore{keys: make(map[string]KeyPair)}
}

// GetPublicKey returns the public key of owner.
func (s *KeyStore) GetPublicKey(owner placement.Placement) (*federated.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kp, ok := s.keys[owner.Name()]
	if !ok || kp.Public == nil {
		return nil, errors.Wrapf(federated.ErrUnknownPlacement, "no public key of %s", owner)
	}

	return kp.Public, nil
}

// GetSecretKey returns the secret key of owner.
func (s *KeyStore) GetSecretKey(owner placement.Placement) (*federated.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kp, ok := s.keys[owner.Name()]
	if !ok || kp.Secret == nil {
		return nil, errors.Wrapf(federated.ErrUnknownPlacement, "no secret key of %s", owner)
	}

	return kp.Secret, nil
}

// GetKeyPair returns both keys of owner.
func (s *KeyStore) GetKeyPair(owner placement.Placement) (KeyPair, error) {
	pk, err := s.GetPublicKey(owner)
	if err != nil {
		return KeyPair{}, err
	}
	sk, err := s.GetSecretKey(owner)
	if err != nil {
		return KeyPair{}, err
	}

	return KeyPair{Public: pk, Secret: sk}, nil
}

// UpdateKeys replaces the supplied keys of owner and leaves a nil key
// untouched. Keys must have a tensor or tuple of tensors member type, and
// a secret key must live at its owner.
func (s *KeyStore) UpdateKeys(owner placement.Placement, pk, sk *federated.Value) error {
	for _, k := range []*federated.Value{pk, sk} {
		if k != nil && !types.IsKeyType(k.Member()) {
			return errors.Wrapf(federated.ErrTypeSignatureMismatch, "%s is not a key type", k.Type())
		}
	}
	if sk != nil && sk.Placement() != owner {
		return errors.Wrapf(federated.ErrPlacementMismatch,
			"secret key of %s placed at %s", owner, sk.Placement())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kp := s.keys[owner.Name()]
	if pk != nil {
		kp.Public = pk
	}
	if sk != nil {
		kp.Secret = sk
	}
	s.keys[owner.Name()] = kp

	return nil
}

// Owners returns the names of the placements with stored keys.
func (s *KeyStore) Owners() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.keys))
	for name := range s.keys {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
