// Package index is the driver that ties page.Table, leaf.Page, and
// inner.Page into a tree: recursive descent for insert/update/get/remove,
// growing a new root on split, and collapsing the root when it shrinks to
// a single child. Pages refer to one another only by common.Pgid, and only
// this package resolves those ids through the table, which is what makes
// borrow/merge possible without either page package knowing the table
// exists.
package index

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/dcgrounds/bptree/pkg/common"
	"github.com/dcgrounds/bptree/pkg/inner"
	"github.com/dcgrounds/bptree/pkg/kv"
	"github.com/dcgrounds/bptree/pkg/leaf"
	"github.com/dcgrounds/bptree/pkg/page"
)

// ErrKeyNotFound and ErrKeyDuplicate are re-exported so callers never need
// to import pkg/leaf just to compare errors.
var (
	ErrKeyNotFound  = leaf.ErrKeyNotFound
	ErrKeyDuplicate = leaf.ErrKeyDuplicate
)

// Index is a single B+Tree keyed by K with values V. It is not safe for
// concurrent use; callers serialize their own access (see SPEC_FULL.md).
type Index[K, V any] struct {
	table *page.Table
	cmp   kv.Compare[K]
	log   logr.Logger
	root  common.Pgid

	leafMax  int
	innerMax int
}

// New creates an empty index: a single leaf as root.
func New[K, V any](cmp kv.Compare[K], opts Options) *Index[K, V] {
	lg := opts.logger()
	pageSize := opts.pageSize()

	idx := &Index[K, V]{
		table:    page.NewTable(lg),
		cmp:      cmp,
		log:      lg,
		leafMax:  page.LeafCapacity[K, V](pageSize),
		innerMax: page.InternalCapacity[K, V](pageSize),
	}

	root := leaf.New[K, V](idx.leafMax, cmp, lg)
	idx.root = idx.table.Create(root)
	return idx
}

func (idx *Index[K, V]) assertf(cond bool, format string, args ...any) {
	if cond {
		return
	}
	err := fmt.Errorf(format, args...)
	idx.log.Error(err, "internal invariant violated")
	panic(err)
}

func (idx *Index[K, V]) mustGet(id common.Pgid) page.Node {
	n, ok := idx.table.Get(id)
	idx.assertf(ok, "page id %d unresolved", id)
	return n
}

func (idx *Index[K, V]) mustGetLeaf(id common.Pgid) *leaf.Page[K, V] {
	n := idx.mustGet(id)
	lp, ok := n.(*leaf.Page[K, V])
	idx.assertf(ok, "expected leaf at pgid %d, got %s", id, n.PageHeader().Kind)
	return lp
}

func (idx *Index[K, V]) mustGetInner(id common.Pgid) *inner.Page[K, V] {
	n := idx.mustGet(id)
	ip, ok := n.(*inner.Page[K, V])
	idx.assertf(ok, "expected internal page at pgid %d, got %s", id, n.PageHeader().Kind)
	return ip
}

// ---- Insert ----

// splitInfo carries a child's split pivot up to its parent's Insert call.
type splitInfo[K, V any] struct {
	mid   inner.Pair[K, V]
	newID common.Pgid
}

// Insert adds (k,v), returning ErrKeyDuplicate if k is already present.
func (idx *Index[K, V]) Insert(k K, v V) error {
	root := idx.mustGet(idx.root)
	switch root.PageHeader().Kind {
	case page.Leaf:
		lp := root.(*leaf.Page[K, V])
		res, err := lp.Insert(k, v)
		if err != nil {
			return err
		}
		if res.Split {
			newID := idx.table.Create(res.NewLeaf)
			idx.growRoot(inner.Pair[K, V]{Key: res.Mid.Key, Value: res.Mid.Value}, idx.root, newID)
		}
		return nil
	case page.Internal:
		ip := root.(*inner.Page[K, V])
		split, err := idx.insertDescend(ip, k, v)
		if err != nil {
			return err
		}
		if split != nil {
			idx.growRoot(split.mid, idx.root, split.newID)
		}
		return nil
	default:
		idx.assertf(false, "root has invalid kind %s", root.PageHeader().Kind)
		return nil
	}
}

func (idx *Index[K, V]) growRoot(mid inner.Pair[K, V], left, right common.Pgid) {
	newRoot := inner.New[K, V](idx.innerMax, idx.cmp, idx.log)
	newRoot.InitRoot(mid, left, right)
	idx.root = idx.table.Create(newRoot)
	idx.log.Info("root grown", "new_root", idx.root, "left", left, "right", right)
}

// insertDescend recurses to the leaf owning k, then carries any split
// pivot back up one level at a time, installing it in each ancestor in
// turn until either an ancestor absorbs it without splitting or the
// recursion unwinds to the caller (which, at the top, grows a new root).
func (idx *Index[K, V]) insertDescend(ip *inner.Page[K, V], k K, v V) (*splitInfo[K, V], error) {
	route := ip.GetChildOrValue(k)
	if route.Found {
		return nil, ErrKeyDuplicate
	}

	child := idx.mustGet(route.Child)
	var childSplit *splitInfo[K, V]

	switch child.PageHeader().Kind {
	case page.Leaf:
		lp := child.(*leaf.Page[K, V])
		res, err := lp.Insert(k, v)
		if err != nil {
			return nil, err
		}
		if res.Split {
			newID := idx.table.Create(res.NewLeaf)
			childSplit = &splitInfo[K, V]{mid: inner.Pair[K, V]{Key: res.Mid.Key, Value: res.Mid.Value}, newID: newID}
		}
	case page.Internal:
		cip := child.(*inner.Page[K, V])
		cs, err := idx.insertDescend(cip, k, v)
		if err != nil {
			return nil, err
		}
		childSplit = cs
	default:
		idx.assertf(false, "child has invalid kind %s", child.PageHeader().Kind)
	}

	if childSplit == nil {
		return nil, nil
	}

	res, err := ip.Insert(childSplit.mid.Key, childSplit.mid.Value, childSplit.newID)
	idx.assertf(err == nil, "installing split pivot in parent failed: %v", err)
	if !res.Split {
		return nil, nil
	}
	newID := idx.table.Create(res.NewInner)
	return &splitInfo[K, V]{mid: res.Mid, newID: newID}, nil
}

// ---- Update ----

// Update overwrites the value stored for an existing key, or reports
// ErrKeyNotFound.
func (idx *Index[K, V]) Update(k K, v V) error {
	root := idx.mustGet(idx.root)
	switch root.PageHeader().Kind {
	case page.Leaf:
		return root.(*leaf.Page[K, V]).Update(k, v)
	case page.Internal:
		return idx.updateDescend(root.(*inner.Page[K, V]), k, v)
	default:
		idx.assertf(false, "root has invalid kind %s", root.PageHeader().Kind)
		return nil
	}
}

func (idx *Index[K, V]) updateDescend(ip *inner.Page[K, V], k K, v V) error {
	res := ip.UpdateOrGetChild(k, v)
	if res.Updated {
		return nil
	}
	child := idx.mustGet(res.Child)
	switch child.PageHeader().Kind {
	case page.Leaf:
		return child.(*leaf.Page[K, V]).Update(k, v)
	case page.Internal:
		return idx.updateDescend(child.(*inner.Page[K, V]), k, v)
	default:
		idx.assertf(false, "child has invalid kind %s", child.PageHeader().Kind)
		return nil
	}
}

// ---- Get ----

// Get returns the value stored for k, or ErrKeyNotFound. A match on an
// internal separator resolves without descending to a leaf.
func (idx *Index[K, V]) Get(k K) (V, error) {
	root := idx.mustGet(idx.root)
	switch root.PageHeader().Kind {
	case page.Leaf:
		return root.(*leaf.Page[K, V]).Get(k)
	case page.Internal:
		return idx.getDescend(root.(*inner.Page[K, V]), k)
	default:
		idx.assertf(false, "root has invalid kind %s", root.PageHeader().Kind)
		var zero V
		return zero, nil
	}
}

func (idx *Index[K, V]) getDescend(ip *inner.Page[K, V], k K) (V, error) {
	route := ip.GetChildOrValue(k)
	if route.Found {
		return route.Value, nil
	}
	child := idx.mustGet(route.Child)
	switch child.PageHeader().Kind {
	case page.Leaf:
		return child.(*leaf.Page[K, V]).Get(k)
	case page.Internal:
		return idx.getDescend(child.(*inner.Page[K, V]), k)
	default:
		idx.assertf(false, "child has invalid kind %s", child.PageHeader().Kind)
		var zero V
		return zero, nil
	}
}

// ---- Remove ----

// removeOutcome tells a removeDescend caller whether its child merged with
// a sibling (and so may itself now be underflowed).
type removeOutcome int

const (
	removeOk removeOutcome = iota
	removeDidMerge
)

// Remove deletes k, or reports ErrKeyNotFound. Deleting a key that exists
// only as an internal separator rewrites that separator with its in-order
// successor and removes the successor's original leaf occurrence instead.
func (idx *Index[K, V]) Remove(k K) error {
	root := idx.mustGet(idx.root)
	switch root.PageHeader().Kind {
	case page.Leaf:
		lp := root.(*leaf.Page[K, V])
		_, err := lp.Remove(k, true)
		return err
	case page.Internal:
		ip := root.(*inner.Page[K, V])
		childID, targetKey := idx.resolveRemoveTarget(ip, k)
		child := idx.mustGet(childID)
		outcome, err := idx.removeDescend(child, ip, targetKey)
		if err != nil {
			return err
		}
		if outcome == removeDidMerge && ip.Size() == 1 {
			idx.root = ip.PidAt(0)
			idx.log.Info("root collapsed", "new_root", idx.root)
		}
		return nil
	default:
		idx.assertf(false, "root has invalid kind %s", root.PageHeader().Kind)
		return nil
	}
}

// resolveRemoveTarget finds the child to descend into for k against ip. If
// k matches a separator in ip, the separator is rewritten in place with
// the subtree's in-order successor and the key actually sought below
// becomes that successor's key.
func (idx *Index[K, V]) resolveRemoveTarget(ip *inner.Page[K, V], k K) (childID common.Pgid, targetKey K) {
	route := ip.RemoveHereOrDescend(k)
	if !route.FoundHere {
		return route.Child, k
	}
	succ := idx.firstKeyValue(route.RightChild)
	ip.SetPairAt(route.SepIndex, inner.Pair[K, V]{Key: succ.Key, Value: succ.Value})
	return route.RightChild, succ.Key
}

// firstKeyValue descends Pids[0] repeatedly to find the smallest (key,
// value) pair reachable under id.
func (idx *Index[K, V]) firstKeyValue(id common.Pgid) leaf.Pair[K, V] {
	for {
		node := idx.mustGet(id)
		switch node.PageHeader().Kind {
		case page.Leaf:
			return node.(*leaf.Page[K, V]).FirstKeyValue()
		case page.Internal:
			id = node.(*inner.Page[K, V]).PidAt(0)
		default:
			idx.assertf(false, "node has invalid kind %s", node.PageHeader().Kind)
		}
	}
}

// removeDescend deletes targetKey from the subtree rooted at node, parent
// being node's immediate ancestor (needed to resolve node's siblings on
// underflow). It reports removeDidMerge when node merged with a sibling,
// so parent's caller can check whether parent itself now underflows.
func (idx *Index[K, V]) removeDescend(node page.Node, parent *inner.Page[K, V], targetKey K) (removeOutcome, error) {
	switch node.PageHeader().Kind {
	case page.Leaf:
		lp := node.(*leaf.Page[K, V])
		c, err := lp.Remove(targetKey, false)
		if err != nil {
			return removeOk, err
		}
		if c == leaf.RemoveUnderflow {
			return idx.resolveLeafUnderflow(lp, parent), nil
		}
		return removeOk, nil

	case page.Internal:
		ip := node.(*inner.Page[K, V])
		childID, nextKey := idx.resolveRemoveTarget(ip, targetKey)
		child := idx.mustGet(childID)
		outcome, err := idx.removeDescend(child, ip, nextKey)
		if err != nil {
			return removeOk, err
		}
		if outcome != removeDidMerge {
			return removeOk, nil
		}
		return idx.resolveInnerUnderflowCheck(ip, parent)

	default:
		idx.assertf(false, "node has invalid kind %s", node.PageHeader().Kind)
		return removeOk, nil
	}
}

// resolveLeafUnderflow borrows from or merges with lp's sibling, chosen
// via parent. The merger is always the sibling with the smaller pid index
// (the left one of the pair); its pid survives in parent, the other's
// separator and pid are removed.
func (idx *Index[K, V]) resolveLeafUnderflow(lp *leaf.Page[K, V], parent *inner.Page[K, V]) removeOutcome {
	j := parent.IndexOfPid(lp.PageHeader().ID)
	idx.assertf(j >= 0, "underflowed leaf %d not found among parent's children", lp.PageHeader().ID)

	if j < parent.NumSeparators() {
		rightSib := idx.mustGetLeaf(parent.PidAt(j + 1))
		return idx.resolveLeafPair(lp, rightSib, parent, j)
	}
	idx.assertf(j > 0, "underflowed leaf %d has no sibling", lp.PageHeader().ID)
	leftSib := idx.mustGetLeaf(parent.PidAt(j - 1))
	return idx.resolveLeafPair(leftSib, lp, parent, j-1)
}

// resolveLeafPair runs the borrow/merge protocol between adjacent leaves
// left and right, where parent.PairAt(sepIndex) is the separator between
// them. left is always the merger on a merge.
func (idx *Index[K, V]) resolveLeafPair(left, right *leaf.Page[K, V], parent *inner.Page[K, V], sepIndex int) removeOutcome {
	sep := parent.PairAt(sepIndex)

	if right.Size() > right.MinSize() {
		borrowed := right.PopFront()
		left.PushBack(leaf.Pair[K, V]{Key: sep.Key, Value: sep.Value})
		parent.SetPairAt(sepIndex, inner.Pair[K, V]{Key: borrowed.Key, Value: borrowed.Value})
		return removeOk
	}
	if left.Size() > left.MinSize() {
		borrowed := left.PopBack()
		right.PushFront(leaf.Pair[K, V]{Key: sep.Key, Value: sep.Value})
		parent.SetPairAt(sepIndex, inner.Pair[K, V]{Key: borrowed.Key, Value: borrowed.Value})
		return removeOk
	}

	left.PushBack(leaf.Pair[K, V]{Key: sep.Key, Value: sep.Value})
	left.AppendAll(right)
	parent.RemovePairAndPidAt(sepIndex)
	return removeDidMerge
}

// resolveInnerUnderflowCheck checks whether ip fell below min_size after
// one of its children merged away a pid, and if so runs the same
// borrow/merge protocol one level up using parent.
func (idx *Index[K, V]) resolveInnerUnderflowCheck(ip *inner.Page[K, V], parent *inner.Page[K, V]) (removeOutcome, error) {
	if ip.Size() >= ip.MinSize() {
		return removeOk, nil
	}

	j := parent.IndexOfPid(ip.PageHeader().ID)
	idx.assertf(j >= 0, "underflowed internal page %d not found among parent's children", ip.PageHeader().ID)

	if j < parent.NumSeparators() {
		rightSib := idx.mustGetInner(parent.PidAt(j + 1))
		return idx.resolveInnerPair(ip, rightSib, parent, j), nil
	}
	idx.assertf(j > 0, "underflowed internal page %d has no sibling", ip.PageHeader().ID)
	leftSib := idx.mustGetInner(parent.PidAt(j - 1))
	return idx.resolveInnerPair(leftSib, ip, parent, j-1), nil
}

// resolveInnerPair mirrors resolveLeafPair for internal pages: the rotated
// separator always comes from parent, and the sibling's boundary child
// moves across with it.
func (idx *Index[K, V]) resolveInnerPair(left, right *inner.Page[K, V], parent *inner.Page[K, V], sepIndex int) removeOutcome {
	sep := parent.PairAt(sepIndex)

	if right.Size() > right.MinSize() {
		borrowed, movedChild := right.PopFront()
		left.PushBack(inner.Pair[K, V]{Key: sep.Key, Value: sep.Value}, movedChild)
		parent.SetPairAt(sepIndex, borrowed)
		return removeOk
	}
	if left.Size() > left.MinSize() {
		borrowed, movedChild := left.PopBack()
		right.PushFront(inner.Pair[K, V]{Key: sep.Key, Value: sep.Value}, movedChild)
		parent.SetPairAt(sepIndex, borrowed)
		return removeOk
	}

	left.AppendMerge(sep, right)
	parent.RemovePairAndPidAt(sepIndex)
	return removeDidMerge
}

// ---- Enumeration ----

// All returns every (key, value) pair in ascending order via an in-order
// traversal of the whole tree. Internal separators are real, distinct
// pairs under the indexed-internal design (a split's pivot is dropped from
// both leaves and lives only at its parent), so a leaf-only walk would
// silently skip every key that ever served as a pivot; visiting separators
// in their in-order position is what actually yields every inserted key.
func (idx *Index[K, V]) All() []leaf.Pair[K, V] {
	var out []leaf.Pair[K, V]
	idx.collect(idx.root, &out)
	return out
}

func (idx *Index[K, V]) collect(id common.Pgid, out *[]leaf.Pair[K, V]) {
	node := idx.mustGet(id)
	switch node.PageHeader().Kind {
	case page.Leaf:
		lp := node.(*leaf.Page[K, V])
		for i := range lp.Keys {
			*out = append(*out, leaf.Pair[K, V]{Key: lp.Keys[i], Value: lp.Values[i]})
		}
	case page.Internal:
		ip := node.(*inner.Page[K, V])
		idx.collect(ip.PidAt(0), out)
		for i := 0; i < ip.NumSeparators(); i++ {
			pr := ip.PairAt(i)
			*out = append(*out, leaf.Pair[K, V]{Key: pr.Key, Value: pr.Value})
			idx.collect(ip.PidAt(i+1), out)
		}
	default:
		idx.assertf(false, "node has invalid kind %s", node.PageHeader().Kind)
	}
}

// Height reports the number of page levels from root to leaf, inclusive.
// A single-leaf tree has height 1.
func (idx *Index[K, V]) Height() int {
	h := 1
	id := idx.root
	for {
		node := idx.mustGet(id)
		ip, ok := node.(*inner.Page[K, V])
		if !ok {
			return h
		}
		h++
		id = ip.PidAt(0)
	}
}
