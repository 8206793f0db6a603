// Package leaf implements the leaf page: a sorted sequence of (K,V) slots
// with insert-with-split, point update, point lookup, and delete.
// Borrow/merge orchestration needs a resolved sibling and the parent's
// separator, both of which require the page table — so leaf.Page exposes
// pop/push primitives (the same shape internal pages expose) and the
// index driver, which owns the table, drives the borrow/merge protocol.
package leaf

import (
	"errors"
	"sort"

	"github.com/go-logr/logr"

	"github.com/dcgrounds/bptree/pkg/common"
	"github.com/dcgrounds/bptree/pkg/kv"
	"github.com/dcgrounds/bptree/pkg/page"
)

// ErrKeyNotFound and ErrKeyDuplicate are the non-fatal, caller-surfaced
// error kinds for get/update/remove and insert respectively.
var (
	ErrKeyNotFound  = errors.New("bptree: key not found")
	ErrKeyDuplicate = errors.New("bptree: key duplicate")
)

// Pair is a (key, value) slot, used both for leaf storage and for the
// split pivot / rotated separator handed to an ancestor.
type Pair[K, V any] struct {
	Key   K
	Value V
}

// Page is a leaf page: sorted keys[0..size) and values[0..size), strictly
// increasing under cmp. No child pointers, no sibling chaining.
type Page[K, V any] struct {
	hdr    page.Header
	Keys   []K
	Values []V
	cmp    kv.Compare[K]
	log    logr.Logger
}

// New allocates a leaf page of the given capacity. It is not yet
// registered with a page.Table; the caller does that via (*page.Table).Create.
func New[K, V any](maxSize int, cmp kv.Compare[K], log logr.Logger) *Page[K, V] {
	return &Page[K, V]{
		hdr: page.Header{Kind: page.Leaf, MaxSize: maxSize},
		cmp: cmp,
		log: log,
	}
}

// PageHeader and SetID implement page.Node.
func (p *Page[K, V]) PageHeader() page.Header { return p.hdr }
func (p *Page[K, V]) SetID(id common.Pgid)    { p.hdr.ID = id }

func (p *Page[K, V]) Size() int    { return p.hdr.Size }
func (p *Page[K, V]) MaxSize() int { return p.hdr.MaxSize }
func (p *Page[K, V]) MinSize() int { return p.hdr.MinSize() }

// lowerBound returns the first index i with cmp(Keys[i], k) >= 0.
func (p *Page[K, V]) lowerBound(k K) int {
	return sort.Search(len(p.Keys), func(i int) bool {
		return p.cmp(p.Keys[i], k) >= 0
	})
}

// InsertResult is the structural outcome of Insert: either Ok (zero value)
// or Split, carrying the pivot pair to install in an ancestor and the
// freshly allocated (but not yet table-registered) sibling leaf.
type InsertResult[K, V any] struct {
	Split   bool
	Mid     Pair[K, V]
	NewLeaf *Page[K, V]
}

// Insert places (k,v) in sorted position and splits if the page overflows
// its max_size. Duplicate keys are rejected here rather than only at the
// internal-page level, so a tree whose root is still a single leaf can
// report KeyDuplicate too.
func (p *Page[K, V]) Insert(k K, v V) (InsertResult[K, V], error) {
	i := p.lowerBound(k)
	if i < len(p.Keys) && p.cmp(p.Keys[i], k) == 0 {
		return InsertResult[K, V]{}, ErrKeyDuplicate
	}

	p.insertAt(i, k, v)
	p.hdr.Size++

	if p.hdr.Size < p.hdr.MaxSize {
		return InsertResult[K, V]{}, nil
	}

	m := p.MinSize()
	mid := Pair[K, V]{Key: p.Keys[m], Value: p.Values[m]}

	newLeaf := New[K, V](p.hdr.MaxSize, p.cmp, p.log)
	newLeaf.Keys = append(newLeaf.Keys, p.Keys[m+1:]...)
	newLeaf.Values = append(newLeaf.Values, p.Values[m+1:]...)
	newLeaf.hdr.Size = p.hdr.Size - m - 1

	p.Keys = p.Keys[:m]
	p.Values = p.Values[:m]
	p.hdr.Size = m

	p.log.Info("leaf split", "pgid", p.hdr.ID, "mid", mid.Key)

	return InsertResult[K, V]{Split: true, Mid: mid, NewLeaf: newLeaf}, nil
}

func (p *Page[K, V]) insertAt(i int, k K, v V) {
	var zeroK K
	var zeroV V
	p.Keys = append(p.Keys, zeroK)
	copy(p.Keys[i+1:], p.Keys[i:])
	p.Keys[i] = k

	p.Values = append(p.Values, zeroV)
	copy(p.Values[i+1:], p.Values[i:])
	p.Values[i] = v
}

// Update overwrites the value at an existing key, or reports KeyNotFound.
func (p *Page[K, V]) Update(k K, v V) error {
	i := p.lowerBound(k)
	if i >= len(p.Keys) || p.cmp(p.Keys[i], k) != 0 {
		return ErrKeyNotFound
	}
	p.Values[i] = v
	return nil
}

// Get returns the value stored for k, or KeyNotFound.
func (p *Page[K, V]) Get(k K) (V, error) {
	i := p.lowerBound(k)
	if i >= len(p.Keys) || p.cmp(p.Keys[i], k) != 0 {
		var zero V
		return zero, ErrKeyNotFound
	}
	return p.Values[i], nil
}

// RemoveCase tags the outcome of Remove.
type RemoveCase int

const (
	RemoveOk RemoveCase = iota
	RemoveKeyNotFound
	RemoveUnderflow
)

// Remove deletes k. When the page is the root, or stays at or above
// min_size, it reports Ok. Otherwise it reports Underflow and leaves
// borrow/merge orchestration to the caller — the index package, since it
// alone holds the page table needed to resolve a sibling pgid to a page.
func (p *Page[K, V]) Remove(k K, isRoot bool) (RemoveCase, error) {
	i := p.lowerBound(k)
	if i >= len(p.Keys) || p.cmp(p.Keys[i], k) != 0 {
		return RemoveKeyNotFound, ErrKeyNotFound
	}

	copy(p.Keys[i:], p.Keys[i+1:])
	p.Keys = p.Keys[:len(p.Keys)-1]
	copy(p.Values[i:], p.Values[i+1:])
	p.Values = p.Values[:len(p.Values)-1]
	p.hdr.Size--

	if isRoot || p.hdr.Size >= p.MinSize() {
		return RemoveOk, nil
	}
	return RemoveUnderflow, nil
}

// PopFront removes and returns the first (key, value) pair.
func (p *Page[K, V]) PopFront() Pair[K, V] {
	pr := Pair[K, V]{Key: p.Keys[0], Value: p.Values[0]}
	p.Keys = p.Keys[1:]
	p.Values = p.Values[1:]
	p.hdr.Size--
	return pr
}

// PopBack removes and returns the last (key, value) pair.
func (p *Page[K, V]) PopBack() Pair[K, V] {
	last := len(p.Keys) - 1
	pr := Pair[K, V]{Key: p.Keys[last], Value: p.Values[last]}
	p.Keys = p.Keys[:last]
	p.Values = p.Values[:last]
	p.hdr.Size--
	return pr
}

// PushFront inserts a (key, value) pair at the start.
func (p *Page[K, V]) PushFront(pr Pair[K, V]) {
	p.Keys = append([]K{pr.Key}, p.Keys...)
	p.Values = append([]V{pr.Value}, p.Values...)
	p.hdr.Size++
}

// PushBack inserts a (key, value) pair at the end.
func (p *Page[K, V]) PushBack(pr Pair[K, V]) {
	p.Keys = append(p.Keys, pr.Key)
	p.Values = append(p.Values, pr.Value)
	p.hdr.Size++
}

// AppendAll moves all of other's keys/values onto the end of p. Used by
// merge: the caller has already pushed the rotated parent separator onto p
// before calling AppendAll, so the separator is materialized as a real
// data pair rather than dropped.
func (p *Page[K, V]) AppendAll(other *Page[K, V]) {
	p.Keys = append(p.Keys, other.Keys...)
	p.Values = append(p.Values, other.Values...)
	p.hdr.Size = len(p.Keys)
	p.log.Info("leaf merge", "into", p.hdr.ID, "from", other.hdr.ID)
}

// FirstKeyValue returns the leaf's smallest pair. Used by the index driver
// to synthesize the in-order successor when an internal separator is
// removed.
func (p *Page[K, V]) FirstKeyValue() Pair[K, V] {
	return Pair[K, V]{Key: p.Keys[0], Value: p.Values[0]}
}
