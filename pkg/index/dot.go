package index

import (
	"fmt"
	"strings"

	"github.com/dcgrounds/bptree/pkg/common"
	"github.com/dcgrounds/bptree/pkg/inner"
	"github.com/dcgrounds/bptree/pkg/leaf"
	"github.com/dcgrounds/bptree/pkg/page"
)

// DumpGraphviz renders the tree as Graphviz DOT text: one record-shaped
// node per page, with one DOT-level edge per child pointer. It is a
// diagnostic aid for tests and the demo command, not a persistence format —
// nothing here is ever parsed back.
func (idx *Index[K, V]) DumpGraphviz() string {
	var b strings.Builder
	b.WriteString("digraph BPlusTree {\n")
	b.WriteString("  node [shape=record];\n")
	idx.dumpNode(&b, idx.root, make(map[common.Pgid]bool))
	b.WriteString("}\n")
	return b.String()
}

func (idx *Index[K, V]) dumpNode(b *strings.Builder, id common.Pgid, visited map[common.Pgid]bool) {
	if visited[id] {
		return
	}
	visited[id] = true

	node := idx.mustGet(id)
	switch node.PageHeader().Kind {
	case page.Leaf:
		lp := node.(*leaf.Page[K, V])
		fmt.Fprintf(b, "  p%d [label=\"%s\"];\n", id, leafLabel(lp))

	case page.Internal:
		ip := node.(*inner.Page[K, V])
		fmt.Fprintf(b, "  p%d [label=\"%s\"];\n", id, innerLabel(ip))
		for i := 0; i <= ip.NumSeparators(); i++ {
			fmt.Fprintf(b, "  p%d:f%d -> p%d;\n", id, i, ip.PidAt(i))
		}
		for i := 0; i <= ip.NumSeparators(); i++ {
			idx.dumpNode(b, ip.PidAt(i), visited)
		}

	default:
		idx.assertf(false, "node has invalid kind %s", node.PageHeader().Kind)
	}
}

func leafLabel[K, V any](lp *leaf.Page[K, V]) string {
	parts := make([]string, 0, lp.Size())
	for i := 0; i < lp.Size(); i++ {
		parts = append(parts, fmt.Sprintf("<f%d> %v", i, lp.Keys[i]))
	}
	return strings.Join(parts, "|")
}

// innerLabel renders slot 0 as a placeholder (it borders Pids[0], which
// has no separator of its own) followed by one field per real separator.
func innerLabel[K, V any](ip *inner.Page[K, V]) string {
	parts := make([]string, 0, ip.NumSeparators()+1)
	parts = append(parts, "<f0> *")
	for i := 0; i < ip.NumSeparators(); i++ {
		parts = append(parts, fmt.Sprintf("<f%d> %v", i+1, ip.PairAt(i).Key))
	}
	return strings.Join(parts, "|")
}
