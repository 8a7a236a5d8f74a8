package vm

// ---------------------------------------------------------------------------
// CompiledMethod: bytecode plus metadata
// ---------------------------------------------------------------------------

// CompiledMethod is the immutable unit the compiler hands to the core:
// an opcode vector, a literal pool, and the argument/stack metadata the
// Task needs to build an activation for it.
type CompiledMethod struct {
	MethodName string // for diagnostics
	File       string // defining file, may be empty

	Opcodes   []uint32    // word-coded instructions, operands inline
	Literals  []Value     // constant pool
	SendSites []*SendSite // per-call-site inline caches, indexed by send operands

	RequiredArgs int
	TotalArgs    int // required + optional
	LocalCount   int
	StackSize    int // locals + operand stack
	Splat        int // local index of the splat slot, -1 if absent

	Scope  *StaticScope // static lexical scope, nil at the outermost level
	Serial int          // identity for cache-validation call sites

	vmm *VMMethod // cached decoded form
}

// SplatAbsent marks a method without a variadic slot.
const SplatAbsent = -1

// Name returns the method name.
func (cm *CompiledMethod) Name() string { return cm.MethodName }

// VMMethod returns the decoded form of the method, computing and
// caching it on first use. Tasks read opcodes through this, never
// through the raw vector.
func (cm *CompiledMethod) VMMethod() *VMMethod {
	if cm.vmm == nil {
		cm.vmm = &VMMethod{
			Opcodes:   cm.Opcodes,
			StackSize: cm.StackSize,
		}
	}
	return cm.vmm
}

// GetLiteral returns the literal at the given index.
// Panics if index is out of range.
func (cm *CompiledMethod) GetLiteral(index int) Value {
	if index < 0 || index >= len(cm.Literals) {
		panic("CompiledMethod.GetLiteral: index out of range")
	}
	return cm.Literals[index]
}

// VMMethod is the decoded, execution-ready view of a compiled method:
// the opcode base the hot register file's cursor walks, and the
// computed stack size.
type VMMethod struct {
	Opcodes   []uint32
	StackSize int
}

// ---------------------------------------------------------------------------
// StaticScope: the lexical chain carried by compiled code
// ---------------------------------------------------------------------------

// StaticScope is one link of the lexical scope chain a method was
// compiled under. The outermost scope has a nil parent.
type StaticScope struct {
	Module *Module
	Parent *StaticScope
}

// NewStaticScope creates a scope link.
func NewStaticScope(module *Module, parent *StaticScope) *StaticScope {
	return &StaticScope{Module: module, Parent: parent}
}

// ---------------------------------------------------------------------------
// CompiledMethodBuilder
// ---------------------------------------------------------------------------

// CompiledMethodBuilder assembles CompiledMethod instances. It stands
// in for the compiler in tests and in the bootstrap path.
type CompiledMethodBuilder struct {
	method   *CompiledMethod
	bytecode *BytecodeBuilder
}

// NewCompiledMethodBuilder creates a builder for a named method.
func NewCompiledMethodBuilder(name string) *CompiledMethodBuilder {
	return &CompiledMethodBuilder{
		method: &CompiledMethod{
			MethodName: name,
			Splat:      SplatAbsent,
		},
		bytecode: NewBytecodeBuilder(),
	}
}

// SetArgs sets the required and total argument counts.
func (b *CompiledMethodBuilder) SetArgs(required, total int) *CompiledMethodBuilder {
	b.method.RequiredArgs = required
	b.method.TotalArgs = total
	return b
}

// SetLocals sets the local count and grows the stack size to cover it.
func (b *CompiledMethodBuilder) SetLocals(n int) *CompiledMethodBuilder {
	b.method.LocalCount = n
	if b.method.StackSize < n {
		b.method.StackSize = n
	}
	return b
}

// SetStackSize sets the full stack size (locals + operand stack).
func (b *CompiledMethodBuilder) SetStackSize(n int) *CompiledMethodBuilder {
	b.method.StackSize = n
	return b
}

// SetSplat sets the splat slot index.
func (b *CompiledMethodBuilder) SetSplat(slot int) *CompiledMethodBuilder {
	b.method.Splat = slot
	return b
}

// SetScope sets the static lexical scope.
func (b *CompiledMethodBuilder) SetScope(scope *StaticScope) *CompiledMethodBuilder {
	b.method.Scope = scope
	return b
}

// SetSerial sets the method serial.
func (b *CompiledMethodBuilder) SetSerial(n int) *CompiledMethodBuilder {
	b.method.Serial = n
	return b
}

// SetFile sets the defining file.
func (b *CompiledMethodBuilder) SetFile(file string) *CompiledMethodBuilder {
	b.method.File = file
	return b
}

// AddLiteral adds a literal and returns its index.
func (b *CompiledMethodBuilder) AddLiteral(v Value) int {
	idx := len(b.method.Literals)
	b.method.Literals = append(b.method.Literals, v)
	return idx
}

// AddSendSite adds a call-site cache for a selector and returns its index.
func (b *CompiledMethodBuilder) AddSendSite(name Symbol) int {
	idx := len(b.method.SendSites)
	b.method.SendSites = append(b.method.SendSites, NewSendSite(name))
	return idx
}

// Bytecode returns the bytecode builder for direct emission.
func (b *CompiledMethodBuilder) Bytecode() *BytecodeBuilder {
	return b.bytecode
}

// Build finalizes and returns the compiled method.
func (b *CompiledMethodBuilder) Build() *CompiledMethod {
	b.method.Opcodes = b.bytecode.Words()
	return b.method
}
