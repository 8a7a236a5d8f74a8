package vm

import "testing"

func TestModuleMethodTable(t *testing.T) {
	st := NewVMState()
	mod := st.NewModule("M")
	cm := zeroArgMethod("greet", 0)

	greet := st.Symbol("greet")
	mod.AddMethod(greet, cm)

	if got, ok := mod.Method(greet); !ok || got != Executable(cm) {
		t.Error("stored method should be retrievable")
	}
	if mod.MethodCount() != 1 {
		t.Errorf("MethodCount = %d, want 1", mod.MethodCount())
	}

	mod.RemoveMethod(greet)
	if _, ok := mod.Method(greet); ok {
		t.Error("removed method should be gone")
	}
}

func TestModuleMethodIsLocalOnly(t *testing.T) {
	st := NewVMState()
	cm := zeroArgMethod("greet", 0)

	greet := st.Symbol("greet")
	st.ObjectClass.AddMethod(greet, cm)

	if _, ok := st.TrueClass.Method(greet); ok {
		t.Error("Method should not walk the superclass chain")
	}
}

func TestModuleConstants(t *testing.T) {
	st := NewVMState()
	mod := st.NewModule("M")

	age := st.Symbol("Age")
	if _, ok := mod.ConstGet(age); ok {
		t.Error("unbound constant should be absent")
	}

	mod.ConstSet(age, FromSmallInt(28))
	if v, ok := mod.ConstGet(age); !ok || v != FromSmallInt(28) {
		t.Error("bound constant should be retrievable")
	}
}

func TestIsSubclassOf(t *testing.T) {
	st := NewVMState()
	sub := st.NewClass("Sub", st.TrueClass)

	if !sub.IsSubclassOf(st.TrueClass) || !sub.IsSubclassOf(st.ObjectClass) {
		t.Error("a class descends from its whole chain")
	}
	if !sub.IsSubclassOf(sub) {
		t.Error("a class descends from itself")
	}
	if st.TrueClass.IsSubclassOf(sub) {
		t.Error("descent is not symmetric")
	}
}

func TestSuperclasses(t *testing.T) {
	st := NewVMState()
	sub := st.NewClass("Sub", st.TrueClass)

	chain := sub.Superclasses()
	if len(chain) != 2 || chain[0] != st.TrueClass || chain[1] != st.ObjectClass {
		t.Errorf("Superclasses = %v", chain)
	}
}

func TestClassKinds(t *testing.T) {
	st := NewVMState()
	if !st.ObjectClass.IsClass() {
		t.Error("Object is a class")
	}
	if st.NewModule("M").IsClass() {
		t.Error("NewModule should make a plain module")
	}
}
