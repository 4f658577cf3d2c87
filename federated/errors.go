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
	"github.com/fentec-project/fedagg/executor"
	"github.com/pkg/errors"
)

// Errors aborting an aggregation. They are returned wrapped with context;
// test for them with errors.Is.
var (
	ErrUnsupportedKeyTopology   = errors.New("unsupported key topology")
	ErrUninitializedKeyMaterial = errors.New("key material is not initialized")
	ErrPlacementMismatch        = errors.New("placement mismatch")
	ErrCardinalityMismatch      = errors.New("cardinality mismatch")
	ErrMissingChannel           = errors.New("missing channel")
	ErrUnknownPlacement         = errors.New("unknown placement")

	// ErrTypeSignatureMismatch is shared with the executor layer, so a
	// payload rejected by an executor is reported the same way as a
	// signature rejected while building a kernel.
	ErrTypeSignatureMismatch = executor.ErrTypeMismatch
)
