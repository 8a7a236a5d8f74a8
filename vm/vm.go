package vm

import (
	"syscall"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("garnet.vm")

// ---------------------------------------------------------------------------
// VMState: the explicit process-wide state
// ---------------------------------------------------------------------------

// VMState carries everything the core would otherwise reach for
// globally: the symbol table, the global method cache, the object
// memory, the bootstrap class graph, and the scheduler's queues. Every
// core operation receives it explicitly; there are no package-level
// registries and no thread-local fallbacks.
type VMState struct {
	Symbols *SymbolTable
	Cache   *GlobalCache
	Memory  ObjectMemory

	// Well-known classes. ObjectClass is the object root at which
	// superclass walks terminate.
	ObjectClass  *Module
	ModuleClass  *Module
	ClassClass   *Module
	TrueClass    *Module
	FalseClass   *Module
	NilClass     *Module
	IntegerClass *Module
	FloatClass   *Module
	SymbolClass  *Module
	ArrayClass   *Module
	TaskClass    *Module
	ChannelClass *Module
	ThreadClass  *Module

	// ScheduledThreads are the scheduler's seven ordered run queues.
	// Their exact semantics belong to the scheduler; the core only
	// creates and exposes them.
	ScheduledThreads [7]*TaskQueue

	// DebugSignal is raised by YieldDebugger; zero selects the default.
	DebugSignal syscall.Signal

	heap             *heapMemory
	symMethodMissing Symbol
}

// NewVMState creates and bootstraps a fresh state.
func NewVMState() *VMState {
	heap := newHeapMemory()
	st := &VMState{
		Symbols: NewSymbolTable(),
		Cache:   NewGlobalCache(),
		Memory:  heap,
		heap:    heap,
	}
	st.bootstrap()
	return st
}

// bootstrap builds the root class graph and the scheduler queues.
func (st *VMState) bootstrap() {
	// Object first: everything else inherits from it, including (by
	// convention here) Module and Class themselves.
	st.ObjectClass = st.Memory.NewClass("Object", 0)
	st.ModuleClass = st.newRootedClass("Module")
	st.ClassClass = st.newRootedClass("Class")
	st.ClassClass.Superclass = st.ModuleClass

	st.TrueClass = st.newRootedClass("True")
	st.FalseClass = st.newRootedClass("False")
	st.NilClass = st.newRootedClass("UndefinedObject")
	st.IntegerClass = st.newRootedClass("Integer")
	st.FloatClass = st.newRootedClass("Float")
	st.SymbolClass = st.newRootedClass("Symbol")
	st.ArrayClass = st.newRootedClass("Array")
	st.TaskClass = st.newRootedClass("Task")
	st.ChannelClass = st.newRootedClass("Channel")
	st.ThreadClass = st.newRootedClass("Thread")

	for name, cls := range map[string]*Module{
		"Object":          st.ObjectClass,
		"Module":          st.ModuleClass,
		"Class":           st.ClassClass,
		"True":            st.TrueClass,
		"False":           st.FalseClass,
		"UndefinedObject": st.NilClass,
		"Integer":         st.IntegerClass,
		"Float":           st.FloatClass,
		"Symbol":          st.SymbolClass,
		"Array":           st.ArrayClass,
		"Task":            st.TaskClass,
		"Channel":         st.ChannelClass,
		"Thread":          st.ThreadClass,
	} {
		st.ObjectClass.ConstSet(st.Symbols.Intern(name), cls.ToValue())
	}

	for i := range st.ScheduledThreads {
		st.ScheduledThreads[i] = NewTaskQueue()
	}

	st.symMethodMissing = st.Symbols.Intern("method_missing")
}

func (st *VMState) newRootedClass(name string) *Module {
	cls := st.Memory.NewClass(name, 0)
	cls.Superclass = st.ObjectClass
	return cls
}

// NewClass creates a class inheriting from super (the object root when
// nil) and returns it. The caller binds it wherever it belongs.
func (st *VMState) NewClass(name string, super *Module) *Module {
	if super == nil {
		super = st.ObjectClass
	}
	cls := st.Memory.NewClass(name, super.Fields)
	cls.Superclass = super
	return cls
}

// NewModule creates a detached module.
func (st *VMState) NewModule(name string) *Module {
	return st.heap.newModule(name)
}

// Symbol interns a name.
func (st *VMState) Symbol(name string) Symbol {
	return st.Symbols.Intern(name)
}

// ClassOf returns the class a method lookup on v begins at.
func (st *VMState) ClassOf(v Value) *Module {
	switch {
	case v == Nil:
		return st.NilClass
	case v == True:
		return st.TrueClass
	case v == False:
		return st.FalseClass
	case v.IsSmallInt():
		return st.IntegerClass
	case v.IsSymbol():
		return st.SymbolClass
	case v.IsModule():
		if v.Module().IsClass() {
			return st.ClassClass
		}
		return st.ModuleClass
	case v.IsObject():
		return ObjectFromValue(v).Class()
	default:
		return st.FloatClass
	}
}

// NewArray allocates an array object holding elems.
func (st *VMState) NewArray(elems []Value) Value {
	obj := st.Memory.NewStruct(st.ArrayClass, len(elems))
	for i, v := range elems {
		obj.SetSlot(i, v)
	}
	return obj.ToValue()
}

// ArrayElements returns the elements of an array value, or nil if v is
// not an object.
func ArrayElements(v Value) []Value {
	obj := ObjectFromValue(v)
	if obj == nil {
		return nil
	}
	out := make([]Value, obj.NumSlots())
	for i := range out {
		out[i] = obj.GetSlot(i)
	}
	return out
}

// ---------------------------------------------------------------------------
// TaskQueue: one scheduler run queue
// ---------------------------------------------------------------------------

// TaskQueue is an ordered FIFO of tasks. The scheduler owns the
// semantics; the core only provides the structure.
type TaskQueue struct {
	tasks []*Task
}

// NewTaskQueue creates an empty queue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{}
}

// Push appends a task.
func (q *TaskQueue) Push(t *Task) {
	q.tasks = append(q.tasks, t)
}

// Shift removes and returns the oldest task, or nil when empty.
func (q *TaskQueue) Shift() *Task {
	if len(q.tasks) == 0 {
		return nil
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	return t
}

// Len returns the number of queued tasks.
func (q *TaskQueue) Len() int { return len(q.tasks) }
