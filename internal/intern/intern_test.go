package intern

import "testing"

import "github.com/stretchr/testify/require"

func TestInternRoundTrip(t *testing.T) {
	in := New()
	id := in.Intern("foo")
	require.Equal(t, "foo", in.Lookup(id))
	id2 := in.Intern("foo")
	require.Equal(t, id, id2, "interning the same bytes twice must return the same id")
}

func TestInternDenseFromZero(t *testing.T) {
	in := New()
	a := in.Intern("a")
	b := in.Intern("b")
	require.Equal(t, ID(0), a)
	require.Equal(t, ID(1), b)
	require.Equal(t, 2, in.Len())
}

func TestRegistryIdempotent(t *testing.T) {
	r := NewRegistry()
	id1 := r.RegisterPath("/usr/include/stdio.h")
	id2 := r.RegisterPath("/usr/include/stdio.h")
	require.Equal(t, id1, id2)
	require.Equal(t, "/usr/include/stdio.h", r.Path(id1))
}

func TestPosString(t *testing.T) {
	r := NewRegistry()
	id := r.RegisterPath("/a/b.h")
	p := Pos{File: id, Line: 3, Column: 7}
	require.Equal(t, "/a/b.h:3:7", p.String(r))
}
