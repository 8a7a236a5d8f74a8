package vm

// Constant lookup and class/module opening: the namespace side-effects
// of executing class and module definitions.

// ---------------------------------------------------------------------------
// Constant lookup
// ---------------------------------------------------------------------------

// ConstGetFrom finds name by looking in mod, then up mod's superclass
// chain. The walk stops at the object root: starting there consults it,
// but supertypes past it are never reached.
func (t *Task) ConstGetFrom(mod *Module, name Symbol) (Value, bool) {
	for mod != nil {
		if v, ok := mod.ConstGet(name); ok {
			return v, true
		}
		if mod == t.state.ObjectClass {
			break
		}
		mod = mod.Superclass
	}
	return Nil, false
}

// ConstGet finds name contextually: up the active method's lexical
// scope chain, then up the superclass chain of the innermost lexical
// module, then the object root once explicitly. Lexical beats
// inherited.
func (t *Task) ConstGet(name Symbol) (Value, bool) {
	scope := t.active.CM.Scope

	for cur := scope; cur != nil; cur = cur.Parent {
		if v, ok := cur.Module.ConstGet(name); ok {
			return v, true
		}
		if cur.Module == t.state.ObjectClass {
			break
		}
	}

	if scope != nil {
		for mod := scope.Module; mod != nil; mod = mod.Superclass {
			if v, ok := mod.ConstGet(name); ok {
				return v, true
			}
		}
	}

	if v, ok := t.state.ObjectClass.ConstGet(name); ok {
		return v, true
	}
	return Nil, false
}

// ConstSetIn binds name under mod.
func (t *Task) ConstSetIn(mod *Module, name Symbol, val Value) {
	mod.ConstSet(name, val)
}

// ConstSet binds name under the current lexical module.
func (t *Task) ConstSet(name Symbol, val Value) {
	t.active.CM.Scope.Module.ConstSet(name, val)
}

// CurrentModule returns the active method's innermost lexical module.
func (t *Task) CurrentModule() *Module {
	return t.active.CM.Scope.Module
}

// ---------------------------------------------------------------------------
// Class and module opening
// ---------------------------------------------------------------------------

// checkSuperclass verifies a reopened class against a requested
// superclass. A nil super accepts any.
func checkSuperclass(cls *Module, super *Module) (*Module, error) {
	if super == nil {
		return cls, nil
	}
	if cls.Superclass != super {
		return nil, &TypeError{Expected: "class", Message: "superclass mismatch"}
	}
	return cls, nil
}

// asOpenedClass type-checks a constant found while opening a class.
func asOpenedClass(v Value) (*Module, error) {
	if !v.IsModule() || !v.Module().IsClass() {
		return nil, &TypeError{Expected: "class", Message: "constant is not a class"}
	}
	return v.Module(), nil
}

// addClass creates a class named name under under, inheriting from
// super (the object root when nil), and binds the constant.
func (t *Task) addClass(under *Module, super *Module, name Symbol) *Module {
	if super == nil {
		super = t.state.ObjectClass
	}
	cls := t.state.Memory.NewClass("", super.Fields)
	cls.Superclass = super
	t.nameUnder(cls, under, name)
	under.ConstSet(name, cls.ToValue())
	return cls
}

// nameUnder sets a module's name: bare under the object root,
// qualified with "::" elsewhere.
func (t *Task) nameUnder(mod *Module, under *Module, name Symbol) {
	if under == t.state.ObjectClass {
		mod.Name = t.state.Symbols.Name(name)
	} else {
		mod.Name = under.Name + "::" + t.state.Symbols.Name(name)
	}
}

// OpenClassUnder opens (or creates) the class bound to name under
// under. An existing binding must be a class whose superclass matches
// super when one is given; created reports whether a new class was
// made.
func (t *Task) OpenClassUnder(under *Module, super *Module, name Symbol) (cls *Module, created bool, err error) {
	if v, found := t.ConstGetFrom(under, name); found {
		existing, err := asOpenedClass(v)
		if err != nil {
			return nil, false, err
		}
		cls, err = checkSuperclass(existing, super)
		return cls, false, err
	}
	return t.addClass(under, super, name), true, nil
}

// OpenClass opens (or creates) a class via contextual constant lookup,
// creating under the innermost lexical module (the object root when
// the scope is nil).
func (t *Task) OpenClass(super *Module, name Symbol) (cls *Module, created bool, err error) {
	if v, found := t.ConstGet(name); found {
		existing, err := asOpenedClass(v)
		if err != nil {
			return nil, false, err
		}
		cls, err = checkSuperclass(existing, super)
		return cls, false, err
	}

	under := t.state.ObjectClass
	if scope := t.active.CM.Scope; scope != nil {
		under = scope.Module
	}
	return t.addClass(under, super, name), true, nil
}

// OpenModuleUnder opens (or creates) the module bound to name under
// under. An existing binding must be a module.
func (t *Task) OpenModuleUnder(under *Module, name Symbol) (*Module, error) {
	if v, found := t.ConstGetFrom(under, name); found {
		if !v.IsModule() {
			return nil, &TypeError{Expected: "module", Message: "constant is not a module"}
		}
		return v.Module(), nil
	}

	mod := t.state.NewModule("")
	t.nameUnder(mod, under, name)
	under.ConstSet(name, mod.ToValue())
	return mod, nil
}

// OpenModule opens (or creates) a module via contextual constant
// lookup, creating under the innermost lexical module.
func (t *Task) OpenModule(name Symbol) (*Module, error) {
	if v, found := t.ConstGet(name); found {
		if !v.IsModule() {
			return nil, &TypeError{Expected: "module", Message: "constant is not a module"}
		}
		return v.Module(), nil
	}

	under := t.state.ObjectClass
	if scope := t.active.CM.Scope; scope != nil {
		under = scope.Module
	}

	mod := t.state.NewModule("")
	t.nameUnder(mod, under, name)
	under.ConstSet(name, mod.ToValue())
	return mod, nil
}
