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

package internal

import (
	"github.com/pkg/errors"
)

const malformedStr = "is not of the proper form"

// Sentinel errors for key material and ciphertexts that cannot be parsed
// or do not belong to the key they are used with.
var (
	MalformedPubKey = errors.Errorf("public key %s", malformedStr)
	MalformedSecKey = errors.Errorf("secret key %s", malformedStr)
	MalformedDecKey = errors.Errorf("decryption key %s", malformedStr)
	MalformedCipher = errors.Errorf("ciphertext %s", malformedStr)
	MalformedInput  = errors.Errorf("input data %s", malformedStr)
)
