package vm

import (
	"sync"
	"testing"
)

func TestSymbolTableIntern(t *testing.T) {
	st := NewSymbolTable()

	id1 := st.Intern("at:")
	id2 := st.Intern("at:")
	if id1 != id2 {
		t.Errorf("re-Intern got %d, want %d", id2, id1)
	}

	id3 := st.Intern("at:put:")
	if id3 == id1 {
		t.Error("different names should get different IDs")
	}
}

func TestSymbolTableLookup(t *testing.T) {
	st := NewSymbolTable()
	foo := st.Intern("foo")

	if id, ok := st.Lookup("foo"); !ok || id != foo {
		t.Error("Lookup should find interned names without creating")
	}
	if _, ok := st.Lookup("bar"); ok {
		t.Error("Lookup should not create entries")
	}
	if st.Len() != 1 {
		t.Errorf("Len = %d, want 1", st.Len())
	}
}

func TestSymbolTableName(t *testing.T) {
	st := NewSymbolTable()
	hello := st.Intern("hello")

	if name := st.Name(hello); name != "hello" {
		t.Errorf("Name = %q, want hello", name)
	}
	if name := st.Name(Symbol(100)); name != "" {
		t.Errorf("invalid ID should give empty name, got %q", name)
	}
}

func TestSymbolTableAll(t *testing.T) {
	st := NewSymbolTable()
	st.Intern("x")
	st.Intern("y")
	st.Intern("z")

	all := st.All()
	if len(all) != 3 || all[0] != "x" || all[1] != "y" || all[2] != "z" {
		t.Errorf("All() = %v, want [x y z]", all)
	}
}

func TestSymbolTableConcurrency(t *testing.T) {
	st := NewSymbolTable()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, name := range []string{"a", "b", "c", "d"} {
				st.Intern(name)
			}
		}()
	}
	wg.Wait()

	if st.Len() != 4 {
		t.Errorf("concurrent interning should dedupe, Len = %d", st.Len())
	}
}

func TestSymbolValueInterns(t *testing.T) {
	st := NewSymbolTable()
	v := st.SymbolValue("blah")
	if !v.IsSymbol() {
		t.Fatal("SymbolValue should produce a symbol")
	}
	if st.Name(v.SymbolID()) != "blah" {
		t.Error("SymbolValue should intern the name")
	}
}
