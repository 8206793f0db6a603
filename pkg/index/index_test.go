package index

import (
	"errors"
	"strings"
	"testing"

	"github.com/dcgrounds/bptree/pkg/common"
	"github.com/dcgrounds/bptree/pkg/inner"
	"github.com/dcgrounds/bptree/pkg/kv"
	"github.com/dcgrounds/bptree/pkg/leaf"
	"github.com/dcgrounds/bptree/pkg/page"
	"github.com/dcgrounds/bptree/pkg/testutil"
)

// smallPageSize forces a leaf/internal fanout of only a handful of slots,
// so a few dozen keys are enough to exercise splits, merges, and
// multi-level trees without needing thousands of insertions per test.
const smallPageSize = 120

func newIntIndex() *Index[int, string] {
	return New[int, string](kv.Ints[int], Options{PageSize: smallPageSize})
}

// walkCheck recurses through the tree verifying occupancy, key ordering,
// and collecting the depth of every leaf reached.
func (idx *Index[K, V]) walkCheck(t *testing.T, id common.Pgid, depth int, isRoot bool, leafDepths map[int]bool) {
	t.Helper()
	node := idx.mustGet(id)

	switch node.PageHeader().Kind {
	case page.Leaf:
		lp := node.(*leaf.Page[K, V])
		if !isRoot && (lp.Size() < lp.MinSize() || lp.Size() > lp.MaxSize()-1) {
			t.Errorf("leaf %d occupancy out of range: size=%d min=%d max=%d", id, lp.Size(), lp.MinSize(), lp.MaxSize())
		}
		for i := 1; i < len(lp.Keys); i++ {
			if idx.cmp(lp.Keys[i-1], lp.Keys[i]) >= 0 {
				t.Errorf("leaf %d keys not strictly ascending: %v", id, lp.Keys)
				break
			}
		}
		leafDepths[depth] = true

	case page.Internal:
		ip := node.(*inner.Page[K, V])
		if !isRoot && (ip.Size() < ip.MinSize() || ip.Size() > ip.MaxSize()-1) {
			t.Errorf("internal %d occupancy out of range: size=%d min=%d max=%d", id, ip.Size(), ip.MinSize(), ip.MaxSize())
		}
		for i := 1; i < ip.NumSeparators(); i++ {
			if idx.cmp(ip.PairAt(i-1).Key, ip.PairAt(i).Key) >= 0 {
				t.Errorf("internal %d separators not strictly ascending", id)
				break
			}
		}
		for i := 0; i <= ip.NumSeparators(); i++ {
			idx.walkCheck(t, ip.PidAt(i), depth+1, false, leafDepths)
		}

	default:
		t.Fatalf("page %d has invalid kind %s", id, node.PageHeader().Kind)
	}
}

func checkInvariants[K, V any](t *testing.T, idx *Index[K, V]) {
	t.Helper()
	leafDepths := make(map[int]bool)
	idx.walkCheck(t, idx.root, 0, true, leafDepths)
	if len(leafDepths) > 1 {
		t.Errorf("leaves found at inconsistent depths: %v", leafDepths)
	}
}

// Scenario 1: insert 0..10 with a large value, update each, get each — all
// updates must be observed, and height must be >= 2 given the capacity.
func TestScenarioUpdateThenGetWithLargeValues(t *testing.T) {
	idx := newIntIndex()
	big := strings.Repeat("x", 800)

	for i := 0; i <= 10; i++ {
		if err := idx.Insert(i, big); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	checkInvariants(t, idx)

	updated := strings.Repeat("y", 800)
	for i := 0; i <= 10; i++ {
		if err := idx.Update(i, updated); err != nil {
			t.Fatalf("Update(%d): %v", i, err)
		}
	}
	for i := 0; i <= 10; i++ {
		v, err := idx.Get(i)
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		if v != updated {
			t.Errorf("Get(%d) returned stale value", i)
		}
	}

	if h := idx.Height(); h < 2 {
		t.Errorf("Height() = %d, want >= 2", h)
	}
}

// Scenario 2: insert 0..10, update, get, then remove in order; after each
// remove the tree must remain well-formed, and after all removals every
// key must report not-found.
func TestScenarioRemoveInOrder(t *testing.T) {
	idx := newIntIndex()
	for i := 0; i <= 10; i++ {
		if err := idx.Insert(i, "v"); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	for i := 0; i <= 10; i++ {
		idx.Update(i, "v2")
	}
	for i := 0; i <= 10; i++ {
		if _, err := idx.Get(i); err != nil {
			t.Fatalf("Get(%d) before removal: %v", i, err)
		}
	}

	for i := 0; i <= 10; i++ {
		if err := idx.Remove(i); err != nil {
			t.Fatalf("Remove(%d): %v", i, err)
		}
		checkInvariants(t, idx)
	}

	for i := 0; i <= 10; i++ {
		if _, err := idx.Get(i); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("Get(%d) after all removals = %v, want ErrKeyNotFound", i, err)
		}
	}
}

// Scenario 3: insert 0..400 with a large-ish value; every key must resolve
// and height must be >= 3.
func TestScenarioDeepTree(t *testing.T) {
	idx := newIntIndex()
	val := strings.Repeat("z", 300)

	for i := 0; i < 400; i++ {
		if err := idx.Insert(i, val); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	checkInvariants(t, idx)

	for i := 0; i < 400; i++ {
		if v, err := idx.Get(i); err != nil || v != val {
			t.Fatalf("Get(%d) = (%q, %v)", i, v, err)
		}
	}

	if h := idx.Height(); h < 3 {
		t.Errorf("Height() = %d, want >= 3", h)
	}
}

// Scenario 4: insert a key, remove it, insert it again with a new value;
// get must return the new value.
func TestScenarioReinsertAfterRemove(t *testing.T) {
	idx := newIntIndex()
	if err := idx.Insert(42, "first"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := idx.Remove(42); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := idx.Insert(42, "second"); err != nil {
		t.Fatalf("Insert after remove: %v", err)
	}
	v, err := idx.Get(42)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != "second" {
		t.Errorf("Get(42) = %q, want %q", v, "second")
	}
}

// Scenario 5: insert 0..N, remove in reverse order; at every intermediate
// state the tree must remain well-formed.
func TestScenarioRemoveInReverseOrder(t *testing.T) {
	const n = 150
	idx := newIntIndex()
	for i := 0; i < n; i++ {
		if err := idx.Insert(i, "v"); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	checkInvariants(t, idx)

	for i := n - 1; i >= 0; i-- {
		if err := idx.Remove(i); err != nil {
			t.Fatalf("Remove(%d): %v", i, err)
		}
		checkInvariants(t, idx)
	}
}

// Scenario 6: insert N distinct random keys (drawn from [0, 4N)) in
// shuffled order; the final enumeration must return exactly N pairs in
// strictly ascending key order. Internal separators are included
// since (unlike a canonical B+Tree) a split's pivot only lives at its
// parent, never duplicated back into a leaf.
func TestScenarioRandomInsertThenEnumerate(t *testing.T) {
	const n = 200
	idx := newIntIndex()

	keys := testutil.RandomInts(n)
	seen := make(map[int]bool, n)
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		if err := idx.Insert(k, "v"); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
	}
	checkInvariants(t, idx)

	all := idx.All()
	if len(all) != len(seen) {
		t.Fatalf("All() returned %d pairs, want %d", len(all), len(seen))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Key >= all[i].Key {
			t.Fatalf("All() not sorted at index %d: %v then %v", i, all[i-1].Key, all[i].Key)
		}
	}
}

func TestInsertDuplicateReturnsErrKeyDuplicate(t *testing.T) {
	idx := newIntIndex()
	if err := idx.Insert(1, "a"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := idx.Insert(1, "b"); !errors.Is(err, ErrKeyDuplicate) {
		t.Errorf("Insert duplicate = %v, want ErrKeyDuplicate", err)
	}
}

func TestRemoveUnknownKeyReturnsErrKeyNotFound(t *testing.T) {
	idx := newIntIndex()
	idx.Insert(1, "a")
	if err := idx.Remove(2); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Remove(2) = %v, want ErrKeyNotFound", err)
	}
}

// TestRemoveInternalSeparatorRewritesSuccessor exercises
// RemoveHereOrDescend's FoundHere path directly: once the tree has grown
// past a single leaf, removing a key that became an internal separator
// must not lose track of it.
func TestRemoveInternalSeparatorRewritesSuccessor(t *testing.T) {
	idx := newIntIndex()
	for i := 0; i < 60; i++ {
		if err := idx.Insert(i, "v"); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	if idx.Height() < 2 {
		t.Fatal("test setup expected a multi-level tree")
	}

	// Find a key currently resident only as an internal separator.
	root := idx.mustGet(idx.root).(*inner.Page[int, string])
	if root.NumSeparators() == 0 {
		t.Fatal("root has no separators to exercise")
	}
	sepKey := root.PairAt(0).Key

	if err := idx.Remove(sepKey); err != nil {
		t.Fatalf("Remove(%d): %v", sepKey, err)
	}
	checkInvariants(t, idx)
	if _, err := idx.Get(sepKey); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get(%d) after removing separator key = %v, want ErrKeyNotFound", sepKey, err)
	}

	// Every other key must remain reachable.
	for i := 0; i < 60; i++ {
		if i == sepKey {
			continue
		}
		if _, err := idx.Get(i); err != nil {
			t.Errorf("Get(%d) after removing separator %d: %v", i, sepKey, err)
		}
	}
}
