// Package prime holds the fixed bucket-count sequence every Table is
// sized against. It is a direct port of ModHashTableBase::_primeTable /
// verifySize (mod/1.0/m.common/src/ModHashTable.cpp): an ascending list
// of 30 primes, doubling approximately each step, topping out just
// under 2^32.
package prime

import "sort"

// table is the fixed prime sequence. Never mutate; RoundUp relies on it
// staying sorted and immutable.
var table = [...]uint64{
	1, 7, 17, 53, 97,
	193, 389, 769, 1543, 3079,
	6151, 12289, 24593, 49157, 98317,
	196613, 393241, 786433, 1572869, 3145739,
	6291469, 12582917, 25165843, 50331653, 100663319,
	201326611, 402653189, 805306457, 1610612741, 3221225473,
}

// Largest is the last (largest) entry in the fixed table.
const Largest = uint64(3221225473)

// RoundUp returns the smallest prime in the fixed table that is >= n,
// or Largest if n exceeds every entry. It runs in O(log len(table)) via
// binary search, matching ModLowerBound's contract.
func RoundUp(n uint64) uint64 {
	idx := sort.Search(len(table), func(i int) bool { return table[i] >= n })
	if idx == len(table) {
		return table[len(table)-1]
	}
	return table[idx]
}

// Len reports how many entries the fixed table has.
func Len() int { return len(table) }

// At returns the i'th entry of the fixed table. It panics if i is out
// of range, mirroring normal Go slice semantics.
func At(i int) uint64 { return table[i] }
