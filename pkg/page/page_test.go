package page

import "testing"

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		Leaf:     "leaf",
		Internal: "internal",
		Invalid:  "invalid",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

func TestHeaderMinSize(t *testing.T) {
	cases := []struct {
		maxSize, want int
	}{
		{5, 2},
		{6, 2},
		{7, 3},
		{3, 1},
	}
	for _, c := range cases {
		h := Header{MaxSize: c.maxSize}
		if got := h.MinSize(); got != c.want {
			t.Errorf("MinSize() with MaxSize=%d = %d, want %d", c.maxSize, got, c.want)
		}
	}
}
