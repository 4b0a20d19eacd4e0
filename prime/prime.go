// Package prime implements exact primality testing for 64-bit integers.
//
// The test is deterministic Miller-Rabin preceded by trial division
// against small primes. The witness set covers the full uint64 range,
// so results are bit-exact with naive trial division for every
// representable input.
package prime

import "math/bits"

// smallPrimes are used both for quick trial-division screening and as
// the Miller-Rabin witness set. The first twelve primes as witnesses
// decide primality correctly for every uint64.
var smallPrimes = [...]uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37}

// IsPrime reports whether v is prime. Values below 2, including all
// negatives, are not prime.
func IsPrime(v int64) bool {
	if v < 2 {
		return false
	}
	return IsPrimeUint64(uint64(v))
}

// IsPrimeUint64 reports whether v is prime, over the full uint64 range.
func IsPrimeUint64(v uint64) bool {
	if v < 2 {
		return false
	}
	for _, p := range smallPrimes {
		if v == p {
			return true
		}
		if v%p == 0 {
			return false
		}
	}
	// v is odd, > 37 and coprime to every small prime.
	return millerRabin(v)
}

// millerRabin runs the deterministic Miller-Rabin rounds for n > 37 odd.
func millerRabin(n uint64) bool {
	// n-1 = d * 2^r with d odd
	d := n - 1
	r := uint(0)
	for d&1 == 0 {
		d >>= 1
		r++
	}

	for _, a := range smallPrimes {
		if !witness(n, d, r, a) {
			return false
		}
	}
	return true
}

// witness reports whether n passes the Miller-Rabin round for base a.
func witness(n, d uint64, r uint, a uint64) bool {
	x := powMod(a, d, n)
	if x == 1 || x == n-1 {
		return true
	}
	for i := uint(1); i < r; i++ {
		x = mulMod(x, x, n)
		if x == n-1 {
			return true
		}
	}
	return false
}

// mulMod computes a*b mod m without overflow. Both operands must be
// reduced mod m already, which keeps the 128-bit product's high word
// below m as bits.Div64 requires.
func mulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi, lo, m)
	return rem
}

// powMod computes a^e mod m by square-and-multiply.
func powMod(a, e, m uint64) uint64 {
	a %= m
	result := uint64(1)
	for e > 0 {
		if e&1 == 1 {
			result = mulMod(result, a, m)
		}
		a = mulMod(a, a, m)
		e >>= 1
	}
	return result
}
