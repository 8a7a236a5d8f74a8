package vm

// ---------------------------------------------------------------------------
// MethodContext: one activation frame
// ---------------------------------------------------------------------------

// ctxRef is an arena handle. ctxNone marks the bottom of a chain.
type ctxRef int32

const ctxNone ctxRef = -1

// MethodContext is a call frame. Locals and the operand stack share one
// tuple: locals occupy [0, LocalCount) and the operand stack grows from
// LocalCount upward, so SP starts at LocalCount-1 and the first push
// lands immediately above the locals.
//
// Frames link through arena handles rather than pointers; the chain is
// reclaimed handle by handle as frames return.
type MethodContext struct {
	Self   Value
	CM     *CompiledMethod
	VMM    *VMMethod
	Module *Module // lexical owner at call time
	Stack  []Value
	IP     int
	SP     int
	Args   int   // count of args actually passed by the caller
	Block  Value // optional callable, Nil if absent

	sender ctxRef
	ref    ctxRef
	arena  *contextArena
}

// Sender returns the calling context, or nil at the bottom of the chain.
func (ctx *MethodContext) Sender() *MethodContext {
	if ctx.sender == ctxNone {
		return nil
	}
	return ctx.arena.get(ctx.sender)
}

// ---------------------------------------------------------------------------
// contextArena: handle-indexed frame storage
// ---------------------------------------------------------------------------

// contextArena owns a task's contexts. Handles break the ownership
// cycle of the sender chain: the walk uses integers, and a slot freed
// on return leaves the frame to the collector once no handle refers in.
type contextArena struct {
	slots []*MethodContext
	free  []ctxRef
}

func newContextArena() *contextArena {
	return &contextArena{}
}

// retain stores ctx and stamps it with its handle.
func (a *contextArena) retain(ctx *MethodContext) ctxRef {
	ctx.arena = a
	if n := len(a.free); n > 0 {
		ref := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[ref] = ctx
		ctx.ref = ref
		return ref
	}
	ref := ctxRef(len(a.slots))
	a.slots = append(a.slots, ctx)
	ctx.ref = ref
	return ref
}

// get resolves a handle. Returns nil for ctxNone or a released slot.
func (a *contextArena) get(ref ctxRef) *MethodContext {
	if ref == ctxNone || int(ref) >= len(a.slots) {
		return nil
	}
	return a.slots[ref]
}

// release frees a handle for reuse.
func (a *contextArena) release(ref ctxRef) {
	if ref == ctxNone || int(ref) >= len(a.slots) || a.slots[ref] == nil {
		return
	}
	a.slots[ref] = nil
	a.free = append(a.free, ref)
}

// live returns the number of occupied slots.
func (a *contextArena) live() int {
	n := 0
	for _, ctx := range a.slots {
		if ctx != nil {
			n++
		}
	}
	return n
}
