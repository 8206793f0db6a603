// Package page implements the page header shared by leaf and internal
// pages and the page-table allocator that dispatches pages by integer id.
// Pages never carry a byte-packed mmap layout here — the 4096-byte budget
// only bounds max_size (see capacity.go) — because this index is purely
// in-memory, with no on-disk representation.
package page

import (
	"fmt"

	"github.com/dcgrounds/bptree/pkg/common"
)

// ID identifies a page, shared with common.Pgid so every package agrees on
// one id type.
type ID = common.Pgid

// Kind tags a page as leaf, internal, or invalid: a tag byte plus a small
// dispatch at entry points, rather than runtime polymorphism, since the
// fan-out is two.
type Kind uint8

const (
	// Invalid marks a zero-value Header that hasn't been initialized by
	// a leaf or internal constructor yet.
	Invalid Kind = iota
	Leaf
	Internal
)

// String renders the kind as a short label, used by DumpGraphviz and
// logging.
func (k Kind) String() string {
	switch k {
	case Leaf:
		return "leaf"
	case Internal:
		return "internal"
	default:
		return "invalid"
	}
}

// Header is the common metadata every page starts with: id, kind, current
// size (populated slot count), and max size (capacity for this page's
// kind). min_size is derived, not stored.
type Header struct {
	ID      ID
	Kind    Kind
	Size    int
	MaxSize int
}

// MinSize is the underflow threshold used by deletion: (max_size-1)/2.
func (h Header) MinSize() int {
	return (h.MaxSize - 1) / 2
}

func (h Header) String() string {
	return fmt.Sprintf("page[%d] %s size=%d/%d", h.ID, h.Kind, h.Size, h.MaxSize)
}
