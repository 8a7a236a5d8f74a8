package vm

import "unsafe"

// Object is a heap-allocated instance: a class pointer plus a fixed
// tuple of slots. Arrays are plain objects whose slots are the
// elements.
type Object struct {
	class *Module
	slots []Value
}

// Class returns the object's class.
func (o *Object) Class() *Module { return o.class }

// NumSlots returns the number of slots in this object.
func (o *Object) NumSlots() int { return len(o.slots) }

// GetSlot returns the value at the given slot index.
// Panics if index is out of range.
func (o *Object) GetSlot(index int) Value {
	if index < 0 || index >= len(o.slots) {
		panic("Object.GetSlot: index out of range")
	}
	return o.slots[index]
}

// SetSlot sets the value at the given slot index.
// Panics if index is out of range.
func (o *Object) SetSlot(index int, value Value) {
	if index < 0 || index >= len(o.slots) {
		panic("Object.SetSlot: index out of range")
	}
	o.slots[index] = value
}

// ToValue converts an Object pointer to a NaN-boxed Value.
func (o *Object) ToValue() Value {
	return FromObjectPtr(unsafe.Pointer(o))
}

// ObjectFromValue extracts an Object pointer from a NaN-boxed Value.
// Returns nil if the value is not an object.
func ObjectFromValue(v Value) *Object {
	if !v.IsObject() {
		return nil
	}
	return (*Object)(v.ObjectPtr())
}

// ---------------------------------------------------------------------------
// ObjectMemory: the allocator collaborator
// ---------------------------------------------------------------------------

// ObjectMemory is the object memory / GC collaborator. Every allocation
// may trigger collection at an interrupt check, never mid-opcode.
type ObjectMemory interface {
	// NewStruct allocates an instance of class with the given slot
	// count, slots initialized to nil.
	NewStruct(class *Module, slots int) *Object

	// NewClass allocates a class with the given name and instance
	// field shape. The superclass is bound by the caller.
	NewClass(name string, fields int) *Module
}

// heapMemory is the in-process ObjectMemory. NaN-boxed pointers are
// invisible to Go's collector, so every allocation is kept in a root
// set until released.
type heapMemory struct {
	objects map[*Object]struct{}
	modules []*Module
}

func newHeapMemory() *heapMemory {
	return &heapMemory{objects: make(map[*Object]struct{})}
}

func (m *heapMemory) NewStruct(class *Module, slots int) *Object {
	o := &Object{class: class, slots: make([]Value, slots)}
	for i := range o.slots {
		o.slots[i] = Nil
	}
	m.objects[o] = struct{}{}
	return o
}

func (m *heapMemory) NewClass(name string, fields int) *Module {
	cls := &Module{
		Name:      name,
		kind:      kindClass,
		Fields:    fields,
		methods:   make(map[Symbol]Executable),
		constants: make(map[Symbol]Value),
	}
	m.modules = append(m.modules, cls)
	return cls
}

func (m *heapMemory) newModule(name string) *Module {
	mod := &Module{
		Name:      name,
		kind:      kindModule,
		methods:   make(map[Symbol]Executable),
		constants: make(map[Symbol]Value),
	}
	m.modules = append(m.modules, mod)
	return mod
}

// Release drops an object from the root set, making it collectable.
func (m *heapMemory) Release(o *Object) {
	delete(m.objects, o)
}
