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

import "math/big"

var one = big.NewInt(1)

// ModExp calculates g^x in Z_m*, even if x < 0.
func ModExp(g, x, m *big.Int) *big.Int {
	ret := new(big.Int)
	if x.Sign() == -1 {
		xNeg := new(big.Int).Neg(x)
		ret.Exp(g, xNeg, m)
		ret.ModInverse(ret, m)
	} else {
		ret.Exp(g, x, m)
	}

	return ret
}

// L computes (x - 1) / n, the discrete logarithm of x in base 1 + n for
// x from the subgroup of Z_{n^2}* generated by 1 + n.
func L(x, n *big.Int) *big.Int {
	ret := new(big.Int).Sub(x, one)
	return ret.Quo(ret, n)
}

// Signed maps x from [0, n) to the symmetric interval (-n/2, n/2].
func Signed(x, n *big.Int) *big.Int {
	ret := new(big.Int).Mod(x, n)
	if ret.Cmp(new(big.Int).Rsh(n, 1)) > 0 {
		ret.Sub(ret, n)
	}

	return ret
}

// Lcm returns the least common multiple of a and b.
func Lcm(a, b *big.Int) *big.Int {
	gcd := new(big.Int).GCD(nil, nil, a, b)
	ret := new(big.Int).Mul(a, b)
	return ret.Quo(ret, gcd)
}
