package page

import (
	"unsafe"

	"github.com/dcgrounds/bptree/pkg/common"
)

// LeafCapacity computes max_size for a leaf storing (K,V) slots:
// floor((pageSize - H) / (sizeof(K) + sizeof(V))). Pass common.PageSize
// for a standard fixed 4096-byte page, or a smaller value (as
// index.Options does) to force small fanout in tests.
//
// sizeof(K)/sizeof(V) are taken from unsafe.Sizeof on a zero value, which
// is exact for fixed-size key/value types (ints, fixed arrays, small
// structs) and is the slice/string header size for []byte or string keys —
// an approximation, since the header size undercounts the backing array a
// variable-length payload actually occupies.
func LeafCapacity[K, V any](pageSize int) int {
	var k K
	var v V
	pairSize := int(unsafe.Sizeof(k)) + int(unsafe.Sizeof(v))
	return capacityFor(pageSize, pairSize)
}

// InternalCapacity computes max_size for an internal page storing (K,V)
// separator slots plus a parallel Pgid child array:
// floor((pageSize - H) / (sizeof(K) + sizeof(V) + sizeof(P))).
func InternalCapacity[K, V any](pageSize int) int {
	var k K
	var v V
	var p common.Pgid
	slotSize := int(unsafe.Sizeof(k)) + int(unsafe.Sizeof(v)) + int(unsafe.Sizeof(p))
	return capacityFor(pageSize, slotSize)
}

func capacityFor(pageSize, slotSize int) int {
	if slotSize <= 0 {
		panic("page: zero-size key/value type has no well-defined capacity")
	}
	return (pageSize - common.HeaderSize) / slotSize
}
