package vm

import (
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// Resolver
// ---------------------------------------------------------------------------

func TestResolveWalksSuperclassChain(t *testing.T) {
	st := NewVMState()
	cm := zeroArgMethod("greet", 0)

	greet := st.Symbol("greet")
	st.ObjectClass.AddMethod(greet, cm)

	msg := &Message{Recv: True, LookupFrom: st.TrueClass, Name: greet}
	if !st.Resolve(msg) {
		t.Fatal("resolution should walk to the superclass")
	}
	if msg.Method != Executable(cm) {
		t.Error("resolved method should be the stored executable")
	}
	if msg.Module != st.ObjectClass {
		t.Error("the defining module should be where the walk hit")
	}
}

func TestResolveSubclassShadowsSuperclass(t *testing.T) {
	st := NewVMState()
	inherited := zeroArgMethod("greet", 0)
	own := zeroArgMethod("greet", 0)

	greet := st.Symbol("greet")
	st.ObjectClass.AddMethod(greet, inherited)
	st.TrueClass.AddMethod(greet, own)

	msg := &Message{Recv: True, LookupFrom: st.TrueClass, Name: greet}
	if !st.Resolve(msg) {
		t.Fatal("resolution failed")
	}
	if msg.Method != Executable(own) {
		t.Error("the subclass definition should shadow the superclass")
	}
}

func TestResolveNotFound(t *testing.T) {
	st := NewVMState()
	msg := &Message{Recv: True, LookupFrom: st.TrueClass, Name: st.Symbol("nothing")}
	if st.Resolve(msg) {
		t.Error("an unbound selector should not resolve")
	}
}

func TestResolveRetainsInGlobalCache(t *testing.T) {
	st := NewVMState()
	cm := zeroArgMethod("greet", 0)

	greet := st.Symbol("greet")
	st.TrueClass.AddMethod(greet, cm)

	msg := &Message{Recv: True, LookupFrom: st.TrueClass, Name: greet}
	if !st.Resolve(msg) {
		t.Fatal("resolution failed")
	}

	entry := st.Cache.Lookup(st.TrueClass, greet)
	if entry == nil {
		t.Fatal("resolution should retain the result in the global cache")
	}
	if entry.Method != Executable(cm) || entry.Module != st.TrueClass {
		t.Error("cache entry should record the resolved method and module")
	}
}

func TestResolvePrivateRequiresPrivacy(t *testing.T) {
	st := NewVMState()
	cm := zeroArgMethod("secret", 0)

	secret := st.Symbol("secret")
	st.TrueClass.AddMethod(secret, NewPrivate(cm))

	msg := &Message{Recv: True, LookupFrom: st.TrueClass, Name: secret}
	if st.Resolve(msg) {
		t.Error("a private method should not resolve without privacy")
	}

	msg = &Message{Recv: True, LookupFrom: st.TrueClass, Name: secret, Priv: true}
	if !st.Resolve(msg) {
		t.Fatal("a private method should resolve with privacy asserted")
	}
	if msg.Vis != VisPrivate {
		t.Error("resolution should surface the wrapper's visibility")
	}
}

// ---------------------------------------------------------------------------
// SendSite
// ---------------------------------------------------------------------------

func TestSendSiteMonomorphicHit(t *testing.T) {
	st := NewVMState()
	cm := zeroArgMethod("greet", 0)

	greet := st.Symbol("greet")
	st.TrueClass.AddMethod(greet, cm)

	site := NewSendSite(greet)
	msg := &Message{Recv: True, LookupFrom: st.TrueClass, Name: greet, Site: site}
	if !site.Locate(st, msg) {
		t.Fatal("first locate should resolve")
	}
	if site.Misses != 1 || site.Hits != 0 {
		t.Errorf("first locate: hits=%d misses=%d, want 0/1", site.Hits, site.Misses)
	}

	msg = &Message{Recv: True, LookupFrom: st.TrueClass, Name: greet, Site: site}
	if !site.Locate(st, msg) {
		t.Fatal("second locate should hit the inline entry")
	}
	if site.Hits != 1 {
		t.Errorf("second locate should be an inline hit, hits=%d", site.Hits)
	}
	if msg.Method != Executable(cm) {
		t.Error("inline hit should fill the method")
	}
}

func TestSendSiteRefillsOnClassChange(t *testing.T) {
	st := NewVMState()
	cmTrue := zeroArgMethod("greet", 0)
	cmFalse := zeroArgMethod("greet", 0)

	greet := st.Symbol("greet")
	st.TrueClass.AddMethod(greet, cmTrue)
	st.FalseClass.AddMethod(greet, cmFalse)

	site := NewSendSite(greet)

	msg := &Message{Recv: True, LookupFrom: st.TrueClass, Name: greet, Site: site}
	site.Locate(st, msg)

	msg = &Message{Recv: False, LookupFrom: st.FalseClass, Name: greet, Site: site}
	if !site.Locate(st, msg) {
		t.Fatal("locate should fall through to the resolver for a new class")
	}
	if msg.Method != Executable(cmFalse) {
		t.Error("the refilled entry should carry the new class's method")
	}

	msg = &Message{Recv: False, LookupFrom: st.FalseClass, Name: greet, Site: site}
	site.Locate(st, msg)
	if site.Hits != 1 {
		t.Errorf("repeat on the refilled class should hit, hits=%d", site.Hits)
	}
}

// ---------------------------------------------------------------------------
// method_missing
// ---------------------------------------------------------------------------

func TestMethodMissingDispatch(t *testing.T) {
	st := NewVMState()

	// method_missing(*args): locals[0] holds [selector, args...].
	b := NewCompiledMethodBuilder("method_missing")
	b.SetArgs(0, 0).SetLocals(1).SetSplat(0)
	st.TrueClass.AddMethod(st.Symbol("method_missing"), b.Build())

	task := NewTask(st, Nil, zeroArgMethod("boot", 2))
	task.stack[0] = FromSmallInt(7)
	task.sp = 0

	missing := st.Symbol("no_such")
	msg := &Message{Recv: True, LookupFrom: st.TrueClass, Name: missing, Site: NewSendSite(missing)}
	msg.UseFromTask(task, 1)
	if err := task.SendMessage(msg); err != nil {
		t.Fatalf("method_missing dispatch failed: %v", err)
	}

	got := ArrayElements(task.Stack()[0])
	if len(got) != 2 {
		t.Fatalf("method_missing args = %d values, want 2", len(got))
	}
	if got[0] != FromSymbol(missing) {
		t.Error("the original selector should be prepended")
	}
	if got[1] != FromSmallInt(7) {
		t.Error("the original arguments should follow the selector")
	}
}

func TestMethodMissingUnresolvable(t *testing.T) {
	st := NewVMState()
	task := NewTask(st, Nil, zeroArgMethod("boot", 0))

	missing := st.Symbol("no_such")
	msg := &Message{Recv: True, LookupFrom: st.TrueClass, Name: missing, Site: NewSendSite(missing)}
	msg.UseFromTask(task, 0)

	err := task.SendMessage(msg)
	var mmErr *MethodMissingError
	if !errors.As(err, &mmErr) {
		t.Fatalf("want MethodMissingError, got %v", err)
	}
	if mmErr.Selector != "no_such" {
		t.Errorf("error selector = %q, want no_such", mmErr.Selector)
	}
}

// ---------------------------------------------------------------------------
// Native methods
// ---------------------------------------------------------------------------

func TestNativeMethodDispatch(t *testing.T) {
	st := NewVMState()

	var gotRecv Value
	native := &NativeMethod{MethodName: "answer", Fn: func(_ *VMState, _ *Task, msg *Message) (Value, error) {
		gotRecv = msg.Recv
		return FromSmallInt(42), nil
	}}
	answer := st.Symbol("answer")
	st.TrueClass.AddMethod(answer, native)

	task := NewTask(st, Nil, zeroArgMethod("boot", 1))
	prior := task.Active()

	sendTo(t, task, True, st.TrueClass, answer, NewSendSite(answer), 0)

	if task.Active() != prior {
		t.Error("a native send should not switch contexts")
	}
	if gotRecv != True {
		t.Error("the native function should see the receiver")
	}
	if task.Stack()[task.SP()] != FromSmallInt(42) {
		t.Error("the native result should be pushed onto the caller's stack")
	}
}

// ---------------------------------------------------------------------------
// Serial bumping on redefinition
// ---------------------------------------------------------------------------

func TestRedefinitionBumpsSerial(t *testing.T) {
	st := NewVMState()
	greet := st.Symbol("greet")

	first := zeroArgMethod("greet", 0)
	st.TrueClass.AddMethod(greet, first)

	second := zeroArgMethod("greet", 0)
	st.TrueClass.AddMethod(greet, second)

	if second.Serial <= first.Serial {
		t.Errorf("redefinition should bump the serial: first=%d second=%d",
			first.Serial, second.Serial)
	}

	task := NewIdleTask(st)
	if task.CheckSerial(True, greet, first.Serial) {
		t.Error("a call site holding the old serial should fail CheckSerial")
	}
	if !task.CheckSerial(True, greet, second.Serial) {
		t.Error("the new serial should match")
	}
}
