package lower

import (
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slices"
)

// local is everything the lowerer tracks about one bound identifier:
// its slot index, its place in the Kind/Category model, and (for
// strings) whether its value is a string-table index or an argv index.
type local struct {
	index        int
	kind         Kind
	category     Category
	mutable      bool
	stringSource StringSource
	// elemKind is the element Kind for an Array-category local (the T in
	// array<T>); it is Unknown for every other category.
	elemKind Kind

	// stringTableIndex holds the string table slot a String-kind,
	// TableIndex-sourced local is permanently bound to. String values
	// never occupy a runtime stack/local slot: every string is resolved
	// to its table index at lowering time (index is unused, left at its
	// zero value, for such locals).
	stringTableIndex uint32
}

// scope is a flat, per-compilation local symbol table, backed by the same
// swiss.Map the teacher's machine.Map wraps around dolthub/swiss (the
// table is rebuilt per then/else/loop nesting level via clone, so look up
// and insert dominate its workload the same way a dynamic dict does in
// the teacher's interpreter).
type scope struct {
	byName *swiss.Map[string, *local]
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{byName: swiss.NewMap[string, *local](8), parent: parent}
}

func (s *scope) lookup(name string) (*local, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if l, ok := cur.byName.Get(name); ok {
			return l, true
		}
	}
	return nil, false
}

// definedHere reports whether name is bound directly in s, ignoring
// parents — used to reject redefinition within the same block.
func (s *scope) definedHere(name string) bool {
	_, ok := s.byName.Get(name)
	return ok
}

func (s *scope) define(name string, l *local) {
	s.byName.Put(name, l)
}

// namesHere returns the names bound directly in s (ignoring parents),
// sorted, for use in diagnostics where the swiss.Map's own iteration
// order isn't stable across runs.
func (s *scope) namesHere() []string {
	names := make([]string, 0, s.byName.Count())
	s.byName.Iter(func(k string, _ *local) bool {
		names = append(names, k)
		return false
	})
	slices.Sort(names)
	return names
}

// clone makes a shallow copy of s suitable for passing into a then/else
// or loop body: new bindings made inside do not leak back out, but
// bindings already visible remain visible (a fresh scope chained to the
// same parent would also work, but a shallow copy keeps lookups O(1)
// without growing the parent chain per nesting level).
func (s *scope) clone() *scope {
	cp := &scope{byName: swiss.NewMap[string, *local](uint32(s.byName.Count())), parent: s.parent}
	s.byName.Iter(func(k string, v *local) bool {
		cp.byName.Put(k, v)
		return false
	})
	return cp
}
