// Command bptreedemo builds an int-keyed index, inserts, looks up, and
// removes a batch of random keys, and optionally prints a Graphviz dump of
// the resulting structure. It exists only to exercise pkg/index from
// outside its own test suite; it is not a client library.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dcgrounds/bptree/pkg/index"
	"github.com/dcgrounds/bptree/pkg/kv"
	"github.com/dcgrounds/bptree/pkg/log"
	"github.com/dcgrounds/bptree/pkg/testutil"
)

func main() {
	n := flag.Int("n", 100, "number of keys to insert")
	pageSize := flag.Int("page-size", 256, "page size in bytes (small forces visible fanout)")
	removeFrac := flag.Float64("remove-frac", 0.25, "fraction of inserted keys to remove afterward")
	verbosity := flag.Int("v", 0, "log verbosity (0=split/merge, 1=page allocation)")
	dot := flag.Bool("dot", false, "print a Graphviz dump of the final tree")
	flag.Parse()

	lg := log.New(*verbosity)
	idx := index.New[int, int](kv.Ints[int], index.Options{PageSize: *pageSize, Logger: lg})

	keys := testutil.RandomInts(*n)
	for _, k := range keys {
		if err := idx.Insert(k, k*k); err != nil {
			fmt.Fprintf(os.Stderr, "insert %d: %v\n", k, err)
			os.Exit(1)
		}
	}
	fmt.Printf("inserted %d keys, height=%d\n", len(keys), idx.Height())

	for _, k := range keys {
		v, err := idx.Get(k)
		if err != nil {
			fmt.Fprintf(os.Stderr, "get %d: %v\n", k, err)
			os.Exit(1)
		}
		if v != k*k {
			fmt.Fprintf(os.Stderr, "get %d: want %d, got %d\n", k, k*k, v)
			os.Exit(1)
		}
	}
	fmt.Println("all inserted keys resolve to their expected values")

	removeCount := int(float64(len(keys)) * *removeFrac)
	for _, k := range keys[:removeCount] {
		if err := idx.Remove(k); err != nil {
			fmt.Fprintf(os.Stderr, "remove %d: %v\n", k, err)
			os.Exit(1)
		}
	}
	fmt.Printf("removed %d keys, height=%d, %d pairs remain\n", removeCount, idx.Height(), len(idx.All()))

	if *dot {
		fmt.Println(idx.DumpGraphviz())
	}
}
