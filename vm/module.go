package vm

// Module is a namespace: a method table, a constant table, and a
// superclass link. A class is a module that can be instantiated; one
// struct covers both, discriminated by kind, and class-opening
// type-checks the kind.
type Module struct {
	Name       string
	Superclass *Module
	Fields     int // instance slot shape, classes only

	kind      moduleKind
	methods   map[Symbol]Executable
	constants map[Symbol]Value
}

type moduleKind uint8

const (
	kindModule moduleKind = iota
	kindClass
)

// IsClass returns true if this module is a class.
func (m *Module) IsClass() bool { return m.kind == kindClass }

// ToValue returns the module as a NaN-boxed Value.
func (m *Module) ToValue() Value { return FromModule(m) }

// String implements Stringer.
func (m *Module) String() string { return m.Name }

// ---------------------------------------------------------------------------
// Method table
// ---------------------------------------------------------------------------

// AddMethod stores an executable in the method table. Redefining a
// selector bumps the incoming compiled method's serial past the old
// one, so call sites holding the old serial fail CheckSerial.
func (m *Module) AddMethod(name Symbol, x Executable) {
	if old, ok := m.methods[name]; ok {
		oldExec, _ := Unwrap(old)
		newExec, _ := Unwrap(x)
		if oldCM, ok := oldExec.(*CompiledMethod); ok {
			if newCM, ok := newExec.(*CompiledMethod); ok && newCM.Serial <= oldCM.Serial {
				newCM.Serial = oldCM.Serial + 1
			}
		}
	}
	m.methods[name] = x
}

// Method returns the stored executable for a selector in this module
// only; no superclass walk.
func (m *Module) Method(name Symbol) (Executable, bool) {
	x, ok := m.methods[name]
	return x, ok
}

// RemoveMethod removes a selector from the method table.
func (m *Module) RemoveMethod(name Symbol) {
	delete(m.methods, name)
}

// MethodCount returns the number of selectors defined locally.
func (m *Module) MethodCount() int { return len(m.methods) }

// ---------------------------------------------------------------------------
// Constant table
// ---------------------------------------------------------------------------

// ConstGet returns the constant bound in this module only.
func (m *Module) ConstGet(name Symbol) (Value, bool) {
	v, ok := m.constants[name]
	return v, ok
}

// ConstSet binds a constant in this module.
func (m *Module) ConstSet(name Symbol, val Value) {
	m.constants[name] = val
}

// ---------------------------------------------------------------------------
// Hierarchy helpers
// ---------------------------------------------------------------------------

// IsSubclassOf returns true if m is other or a descendant of other.
func (m *Module) IsSubclassOf(other *Module) bool {
	for cur := m; cur != nil; cur = cur.Superclass {
		if cur == other {
			return true
		}
	}
	return false
}

// Superclasses returns all ancestors from immediate parent to root.
func (m *Module) Superclasses() []*Module {
	var result []*Module
	for cur := m.Superclass; cur != nil; cur = cur.Superclass {
		result = append(result, cur)
	}
	return result
}
