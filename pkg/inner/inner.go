// Package inner implements the internal page: a sorted sequence of (K,V)
// separator slots plus a parallel child-id array. This is an "indexed
// internal" design — the separator carries a value, so an exact-match
// lookup can terminate here without descending to a leaf.
//
// Storage is 0-indexed: Keys and Values hold only the size-1 real
// separators, with Pids holding all size children. Keys[i] is the
// separator between Pids[i] and Pids[i+1].
package inner

import (
	"sort"

	"github.com/go-logr/logr"

	"github.com/dcgrounds/bptree/pkg/common"
	"github.com/dcgrounds/bptree/pkg/kv"
	"github.com/dcgrounds/bptree/pkg/page"
)

// Pair is a (key, value) separator slot.
type Pair[K, V any] struct {
	Key   K
	Value V
}

// Page is an internal page: size-1 separators and size child ids.
// Invariant: len(Pids) == len(Keys)+1.
type Page[K, V any] struct {
	hdr    page.Header
	Keys   []K
	Values []V
	Pids   []common.Pgid
	cmp    kv.Compare[K]
	log    logr.Logger
}

// New allocates an internal page of the given capacity (not yet
// table-registered).
func New[K, V any](maxSize int, cmp kv.Compare[K], log logr.Logger) *Page[K, V] {
	return &Page[K, V]{
		hdr: page.Header{Kind: page.Internal, MaxSize: maxSize},
		cmp: cmp,
		log: log,
	}
}

func (p *Page[K, V]) PageHeader() page.Header { return p.hdr }
func (p *Page[K, V]) SetID(id common.Pgid)    { p.hdr.ID = id }

func (p *Page[K, V]) Size() int    { return p.hdr.Size }
func (p *Page[K, V]) MaxSize() int { return p.hdr.MaxSize }
func (p *Page[K, V]) MinSize() int { return p.hdr.MinSize() }

// NumSeparators is len(Keys) — one less than the child count.
func (p *Page[K, V]) NumSeparators() int { return len(p.Keys) }

func (p *Page[K, V]) PairAt(i int) Pair[K, V] { return Pair[K, V]{Key: p.Keys[i], Value: p.Values[i]} }
func (p *Page[K, V]) PidAt(i int) common.Pgid { return p.Pids[i] }

func (p *Page[K, V]) SetPairAt(i int, pr Pair[K, V]) {
	p.Keys[i] = pr.Key
	p.Values[i] = pr.Value
}

// IndexOfPid returns the slot index of pid within Pids, or -1.
func (p *Page[K, V]) IndexOfPid(pid common.Pgid) int {
	for i, id := range p.Pids {
		if id == pid {
			return i
		}
	}
	return -1
}

// InitRoot sets up a freshly split root: separator mid between the old
// root (left) and the new sibling (right). Used only by the index driver
// when growing the tree.
func (p *Page[K, V]) InitRoot(mid Pair[K, V], left, right common.Pgid) {
	p.Keys = []K{mid.Key}
	p.Values = []V{mid.Value}
	p.Pids = []common.Pgid{left, right}
	p.hdr.Size = 2
}

// syncSize keeps hdr.Size in sync with len(Pids) — the size of an
// internal page is its child count: for any internal page of size s,
// there are s child ids and s-1 separators.
func (p *Page[K, V]) syncSize() { p.hdr.Size = len(p.Pids) }

// lowerBound returns the first index i with cmp(Keys[i], k) >= 0.
func (p *Page[K, V]) lowerBound(k K) int {
	return sort.Search(len(p.Keys), func(i int) bool {
		return p.cmp(p.Keys[i], k) >= 0
	})
}

// InsertResult is the structural outcome of Insert.
type InsertResult[K, V any] struct {
	Split    bool
	Mid      Pair[K, V]
	NewInner *Page[K, V]
}

// Insert places separator (k,v) with its right-hand child pid in sorted
// position and splits if the page overflows max_size. The caller
// guarantees k is not already present (internal separators are
// only ever installed by splits and by the driver, never by a user
// insert that could collide — user inserts land in leaves).
func (p *Page[K, V]) Insert(k K, v V, pid common.Pgid) (InsertResult[K, V], error) {
	i := p.lowerBound(k)

	var zeroK K
	var zeroV V
	p.Keys = append(p.Keys, zeroK)
	copy(p.Keys[i+1:], p.Keys[i:])
	p.Keys[i] = k

	p.Values = append(p.Values, zeroV)
	copy(p.Values[i+1:], p.Values[i:])
	p.Values[i] = v

	p.Pids = append(p.Pids, 0)
	copy(p.Pids[i+2:], p.Pids[i+1:])
	p.Pids[i+1] = pid

	p.syncSize()

	if p.hdr.Size < p.hdr.MaxSize {
		return InsertResult[K, V]{}, nil
	}

	// Split symmetrically to the leaf, with m = min_size: the separator
	// Keys[m] is the pivot, rises to the grandparent and is dropped from
	// both pages. This page keeps m separators and m+1 children
	// (Keys[:m]/Pids[:m+1]) and the new
	// page inherits Keys[m+1:]/Pids[m+1:] (the pivot's right child
	// becomes the new page's slot-0 pid).
	m := p.MinSize()
	mid := Pair[K, V]{Key: p.Keys[m], Value: p.Values[m]}

	newInner := New[K, V](p.hdr.MaxSize, p.cmp, p.log)
	newInner.Keys = append(newInner.Keys, p.Keys[m+1:]...)
	newInner.Values = append(newInner.Values, p.Values[m+1:]...)
	newInner.Pids = append(newInner.Pids, p.Pids[m+1:]...)
	newInner.syncSize()

	p.Keys = p.Keys[:m]
	p.Values = p.Values[:m]
	p.Pids = p.Pids[:m+1]
	p.syncSize()

	p.log.Info("internal split", "pgid", p.hdr.ID, "mid", mid.Key)

	return InsertResult[K, V]{Split: true, Mid: mid, NewInner: newInner}, nil
}

// Route is the outcome of GetChildOrValue: either the value stored
// alongside a matching separator, or the child to descend into.
type Route[V any] struct {
	Found bool
	Value V
	Child common.Pgid
}

// GetChildOrValue implements the early-termination lookup: if k matches a
// separator, its value is returned directly; otherwise the child to
// descend into is returned.
func (p *Page[K, V]) GetChildOrValue(k K) Route[V] {
	i := p.lowerBound(k)
	if i == len(p.Keys) {
		return Route[V]{Child: p.Pids[len(p.Pids)-1]}
	}
	if p.cmp(p.Keys[i], k) == 0 {
		return Route[V]{Found: true, Value: p.Values[i]}
	}
	return Route[V]{Child: p.Pids[i]}
}

// UpdateResult is the outcome of UpdateOrGetChild.
type UpdateResult struct {
	Updated bool
	Child   common.Pgid
}

// UpdateOrGetChild overwrites the separator's value in place on an exact
// match, else returns the child to descend into.
func (p *Page[K, V]) UpdateOrGetChild(k K, v V) UpdateResult {
	i := p.lowerBound(k)
	if i < len(p.Keys) && p.cmp(p.Keys[i], k) == 0 {
		p.Values[i] = v
		return UpdateResult{Updated: true}
	}
	if i == len(p.Keys) {
		return UpdateResult{Child: p.Pids[len(p.Pids)-1]}
	}
	return UpdateResult{Child: p.Pids[i]}
}

// RemoveRoute is the outcome of RemoveHereOrDescend.
type RemoveRoute[K, V any] struct {
	// FoundHere is true when k matched a separator in this page. SepIndex
	// names the matched slot; RightChild is the subtree whose first
	// element must replace the separator — the caller resolves that first
	// element, writes it back with SetPairAt, and then deletes that same
	// successor key from RightChild.
	FoundHere  bool
	SepIndex   int
	RightChild common.Pgid
	// Child is populated when FoundHere is false: descend into Child
	// looking for the same key that was passed in.
	Child common.Pgid
}

// RemoveHereOrDescend locates k among the separators. An exact match
// defers the actual rewrite to the caller (it needs the page table to
// find the successor); a miss names the child to descend into.
func (p *Page[K, V]) RemoveHereOrDescend(k K) RemoveRoute[K, V] {
	i := p.lowerBound(k)
	if i < len(p.Keys) && p.cmp(p.Keys[i], k) == 0 {
		return RemoveRoute[K, V]{FoundHere: true, SepIndex: i, RightChild: p.Pids[i+1]}
	}
	if i == len(p.Keys) {
		return RemoveRoute[K, V]{Child: p.Pids[len(p.Pids)-1]}
	}
	return RemoveRoute[K, V]{Child: p.Pids[i]}
}

// RemovePairAndPidAt removes the separator at sepIndex together with the
// child pid immediately to its right (pidIndex == sepIndex+1). A removed
// separator always takes its right neighbor's child slot with it, since
// the left neighbor is the page that absorbed the merge.
func (p *Page[K, V]) RemovePairAndPidAt(sepIndex int) {
	copy(p.Keys[sepIndex:], p.Keys[sepIndex+1:])
	p.Keys = p.Keys[:len(p.Keys)-1]
	copy(p.Values[sepIndex:], p.Values[sepIndex+1:])
	p.Values = p.Values[:len(p.Values)-1]

	pidIndex := sepIndex + 1
	copy(p.Pids[pidIndex:], p.Pids[pidIndex+1:])
	p.Pids = p.Pids[:len(p.Pids)-1]
	p.syncSize()
}

// PopFront removes and returns the leading separator along with the child
// that sat to its left (Pids[0]).
func (p *Page[K, V]) PopFront() (Pair[K, V], common.Pgid) {
	pr := Pair[K, V]{Key: p.Keys[0], Value: p.Values[0]}
	leftChild := p.Pids[0]
	p.Keys = p.Keys[1:]
	p.Values = p.Values[1:]
	p.Pids = p.Pids[1:]
	p.syncSize()
	return pr, leftChild
}

// PopBack removes and returns the trailing separator along with the child
// that sat to its right.
func (p *Page[K, V]) PopBack() (Pair[K, V], common.Pgid) {
	lastSep := len(p.Keys) - 1
	lastPid := len(p.Pids) - 1
	pr := Pair[K, V]{Key: p.Keys[lastSep], Value: p.Values[lastSep]}
	rightChild := p.Pids[lastPid]
	p.Keys = p.Keys[:lastSep]
	p.Values = p.Values[:lastSep]
	p.Pids = p.Pids[:lastPid]
	p.syncSize()
	return pr, rightChild
}

// PushFront inserts a separator and its left-hand child at the start.
func (p *Page[K, V]) PushFront(pr Pair[K, V], leftChild common.Pgid) {
	p.Keys = append([]K{pr.Key}, p.Keys...)
	p.Values = append([]V{pr.Value}, p.Values...)
	p.Pids = append([]common.Pgid{leftChild}, p.Pids...)
	p.syncSize()
}

// PushBack inserts a separator and its right-hand child at the end.
func (p *Page[K, V]) PushBack(pr Pair[K, V], rightChild common.Pgid) {
	p.Keys = append(p.Keys, pr.Key)
	p.Values = append(p.Values, pr.Value)
	p.Pids = append(p.Pids, rightChild)
	p.syncSize()
}

// AppendMerge appends the rotated separator (materializing it as a real
// slot, mirroring the leaf merge) followed by all of other's separators
// and children onto p. other's slot-0 pid becomes paired with sep at the
// merge boundary.
func (p *Page[K, V]) AppendMerge(sep Pair[K, V], other *Page[K, V]) {
	p.Keys = append(p.Keys, sep.Key)
	p.Values = append(p.Values, sep.Value)
	p.Keys = append(p.Keys, other.Keys...)
	p.Values = append(p.Values, other.Values...)
	p.Pids = append(p.Pids, other.Pids...)
	p.syncSize()
	p.log.Info("internal merge", "into", p.hdr.ID, "from", other.hdr.ID)
}
