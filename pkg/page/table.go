package page

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/dcgrounds/bptree/pkg/common"
)

// Node is the interface both leaf.Page[K,V] and inner.Page[K,V] implement
// so a single Table can dispatch on the header's Kind tag instead of
// resolving to a kind-specific table.
type Node interface {
	PageHeader() Header
	SetID(id common.Pgid)
}

// Table is the page-table allocator: it assigns monotonically increasing
// page ids and resolves id to page. It is scoped per-index rather than
// process-wide, so multiple Index values never share id space. Ownership
// of storage is shared between the table and any in-flight descent;
// nothing is ever freed once allocated.
type Table struct {
	pages  map[common.Pgid]Node
	nextID common.Pgid
	log    logr.Logger
}

// NewTable returns an empty page table. log may be logr.Discard().
func NewTable(log logr.Logger) *Table {
	return &Table{
		pages: make(map[common.Pgid]Node),
		log:   log,
	}
}

// Create allocates the next id, assigns it to n, and records the mapping.
// The caller has already initialized n's kind-specific header fields.
func (t *Table) Create(n Node) common.Pgid {
	pid := t.nextID
	t.nextID++
	n.SetID(pid)
	t.pages[pid] = n
	t.log.V(Debug).Info("allocated page", "pgid", pid, "kind", n.PageHeader().Kind)
	return pid
}

// Get resolves an id to a page. A miss is never expected on the hot path —
// it means a dangling pgid escaped somewhere — so this logs at Error
// before the caller's assert panics.
func (t *Table) Get(id common.Pgid) (Node, bool) {
	n, ok := t.pages[id]
	if !ok {
		t.log.Error(fmt.Errorf("unresolved page id"), "page table miss", "pgid", id)
	}
	return n, ok
}

// Debug is the verbosity level for per-page allocation logging.
const Debug = 1
