package vm

import (
	"math"
	"testing"
)

func TestSmallIntRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, -1, 42, -42, MaxSmallInt, MinSmallInt} {
		v := FromSmallInt(n)
		if !v.IsSmallInt() {
			t.Errorf("FromSmallInt(%d) should be a small int", n)
		}
		if v.SmallInt() != n {
			t.Errorf("round trip of %d gave %d", n, v.SmallInt())
		}
		if v.IsFloat() || v.IsObject() || v.IsSymbol() || v.IsModule() {
			t.Errorf("small int %d should have exactly one type", n)
		}
	}
}

func TestTryFromSmallIntRange(t *testing.T) {
	if _, ok := TryFromSmallInt(MaxSmallInt + 1); ok {
		t.Error("value above range should be rejected")
	}
	if _, ok := TryFromSmallInt(MinSmallInt - 1); ok {
		t.Error("value below range should be rejected")
	}
	if v, ok := TryFromSmallInt(7); !ok || v.SmallInt() != 7 {
		t.Error("in-range value should round trip")
	}
}

func TestFloatRoundTrip(t *testing.T) {
	for _, f := range []float64{0, 1.5, -2.25, math.Inf(1), math.Inf(-1)} {
		v := FromFloat64(f)
		if !v.IsFloat() {
			t.Errorf("FromFloat64(%v) should be a float", f)
		}
		if v.Float64() != f {
			t.Errorf("round trip of %v gave %v", f, v.Float64())
		}
	}

	nan := FromFloat64(math.NaN())
	if !nan.IsFloat() {
		t.Error("a real NaN is still a float, not a tagged value")
	}
}

func TestSpecials(t *testing.T) {
	if !Nil.IsNil() || !Nil.IsSpecial() {
		t.Error("Nil should be the nil special")
	}
	if !True.Bool() || False.Bool() {
		t.Error("boolean specials should convert")
	}
	if FromBool(true) != True || FromBool(false) != False {
		t.Error("FromBool should map onto the specials")
	}
	if Nil == True || True == False {
		t.Error("specials should be distinct")
	}
}

func TestTruthiness(t *testing.T) {
	if Nil.IsTruthy() || False.IsTruthy() {
		t.Error("nil and false are falsy")
	}
	if !True.IsTruthy() || !FromSmallInt(0).IsTruthy() {
		t.Error("everything but nil and false is truthy")
	}
}

func TestSymbolValueRoundTrip(t *testing.T) {
	v := FromSymbol(Symbol(12))
	if !v.IsSymbol() {
		t.Error("FromSymbol should produce a symbol value")
	}
	if v.SymbolID() != Symbol(12) {
		t.Errorf("SymbolID = %d, want 12", v.SymbolID())
	}
}

func TestModuleValueRoundTrip(t *testing.T) {
	st := NewVMState()
	v := st.TrueClass.ToValue()
	if !v.IsModule() {
		t.Fatal("ToValue should produce a module value")
	}
	if v.Module() != st.TrueClass {
		t.Error("round trip should preserve the pointer")
	}
	if v.IsObject() || v.IsSymbol() {
		t.Error("module values should have exactly one type")
	}
}

func TestObjectValueRoundTrip(t *testing.T) {
	st := NewVMState()
	obj := st.Memory.NewStruct(st.ArrayClass, 2)
	v := obj.ToValue()
	if !v.IsObject() {
		t.Fatal("ToValue should produce an object value")
	}
	if ObjectFromValue(v) != obj {
		t.Error("round trip should preserve the pointer")
	}
	if ObjectFromValue(FromSmallInt(1)) != nil {
		t.Error("non-object values should extract to nil")
	}
}
