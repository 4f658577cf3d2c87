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

// Command secure-sum runs one Paillier secure sum over in-process
// participants and prints the inputs and the result.
//
// # Configuration File
//
//	clients: 5
//	modulus_bits: 2048
//	channels:
//	  - between: [clients, aggregator]
//	    kind: box
//	  - between: [aggregator, server]
//	    kind: plaintext
//
// # Usage
//
//	go run ./cmd/secure-sum --config=secagg.yaml
//	go run ./cmd/secure-sum --clients=10 --length=4 --seed=7 --verbose
//	go run ./cmd/secure-sum --dtype=int32 --max=50 --seed=0
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fentec-project/fedagg/data"
	"github.com/fentec-project/fedagg/federated"
	"github.com/fentec-project/fedagg/placement"
	"github.com/fentec-project/fedagg/sample"
	"github.com/fentec-project/fedagg/secagg"
	"github.com/fentec-project/fedagg/types"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file")
		clients     = flag.Int("clients", 0, "Number of clients (overrides config)")
		modulusBits = flag.Int("modulus-bits", 0, "Paillier modulus length in bits (overrides config)")
		length      = flag.Int("length", 3, "Number of elements held by every client")
		dtypeName   = flag.String("dtype", "int64", "Integer element type of the client inputs")
		maxValue    = flag.Int64("max", 1000, "Client values are drawn from [0, max), or [-max, max) for signed types")
		seed        = flag.Uint64("seed", 1, "Seed of the client inputs, 0 draws fresh random inputs")
		verbose     = flag.Bool("verbose", false, "Log every protocol step")
	)
	flag.Parse()

	cfg := secagg.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = secagg.LoadConfig(*configPath); err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	if *clients != 0 {
		cfg.Clients = *clients
	}
	if *modulusBits != 0 {
		cfg.ModulusBits = *modulusBits
	}
	dtype, ok := data.ParseDType(*dtypeName)
	if !ok || !dtype.IsInteger() {
		fmt.Printf("Error: %q is not an integer type\n", *dtypeName)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	in := inputs{dtype: dtype, length: *length, maxValue: *maxValue, seed: *seed}
	if err := run(ctx, logger, cfg, in); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// inputs describes the client inputs of a run.
type inputs struct {
	dtype    data.DType
	length   int
	maxValue int64
	seed     uint64
}

func run(ctx context.Context, logger *slog.Logger, cfg secagg.Config, in inputs) error {
	l, err := secagg.NewLocal(cfg, federated.WithLogger(logger))
	if err != nil {
		return err
	}

	payloads := make([]interface{}, cfg.Clients)
	for i := range payloads {
		x, err := in.client(i)
		if err != nil {
			return err
		}
		fmt.Printf("client %d: %s\n", i, x)
		payloads[i] = x
	}

	v, err := l.Runtime.Embed(ctx, types.Tensor(in.dtype, in.length), placement.Clients, false, payloads...)
	if err != nil {
		return err
	}

	start := time.Now()
	sum, err := l.Strategy.SecureSum(ctx, v, 64)
	if err != nil {
		return err
	}
	res, err := sum.Compute(ctx)
	if err != nil {
		return err
	}
	logger.Info("secure sum done", "clients", cfg.Clients, "elapsed", time.Since(start))
	fmt.Printf("sum at %s: %s\n", sum.Placement(), res[0])

	return nil
}

// client returns the input of client i. With a zero seed the input is
// drawn from crypto/rand, otherwise it is derived from the seed.
func (in inputs) client(i int) (data.Tensor, error) {
	if in.maxValue <= 0 {
		return data.Tensor{}, errors.Errorf("max must be positive, got %d", in.maxValue)
	}
	max := big.NewInt(in.maxValue)
	lo := new(big.Int)
	if in.dtype.IsSigned() {
		lo.Neg(max)
	}

	var v data.Vector
	var err error
	switch {
	case in.seed != 0:
		var buf [16]byte
		binary.BigEndian.PutUint64(buf[:8], in.seed)
		binary.BigEndian.PutUint64(buf[8:], uint64(i))
		key := sha3.Sum256(buf[:])
		v, err = data.NewRandomDetVector(in.length, new(big.Int).Sub(max, lo), &key)
		for _, x := range v {
			x.Add(x, lo)
		}
	case in.dtype.IsSigned():
		v, err = data.NewRandomVector(in.length, sample.NewUniformRange(lo, max))
	default:
		v, err = data.NewRandomVector(in.length, sample.NewUniform(max))
	}
	if err != nil {
		return data.Tensor{}, err
	}

	return data.NewTensorFromVector(in.dtype, []int{in.length}, v)
}
