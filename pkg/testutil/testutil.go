// Package testutil supplies randomized test data: gofuzz for string
// generation, crypto/rand for fixed-size byte payloads.
package testutil

import (
	"crypto/rand"
	mathrand "math/rand"

	fuzz "github.com/google/gofuzz"
)

var f = fuzz.New().NilChance(0)

// RandomKV returns a map of size distinct non-empty random string keys to
// random string values. Useful for populating a string-keyed index before
// exercising Get/Remove against a known-good oracle map.
func RandomKV(size int) map[string]string {
	kvs := make(map[string]string, size)
	for len(kvs) < size {
		var key, value string
		f.Fuzz(&key)
		f.Fuzz(&value)
		if key == "" {
			continue
		}
		if _, exist := kvs[key]; exist {
			continue
		}
		kvs[key] = value
	}
	return kvs
}

// RandomInts returns a slice of n distinct ints in [0, n*4), permuted into
// random insertion order. Used by out-of-order bulk-insert tests that
// still need to check the final sorted order.
func RandomInts(n int) []int {
	pool := make([]int, n*4)
	for i := range pool {
		pool[i] = i
	}
	mathrand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:n]
}

// RandomByteArray returns size cryptographically random bytes, for tests
// that want fixed-width values to force a particular leaf or internal
// fanout via page.LeafCapacity / page.InternalCapacity.
func RandomByteArray(size int) []byte {
	arr := make([]byte, size)
	rand.Read(arr)
	return arr
}
