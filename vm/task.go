package vm

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Task: an executing fibre
// ---------------------------------------------------------------------------

// Task owns one activation chain and the hot register file that shadows
// the active context. The shadow copies (ip, sp, self, literals, stack,
// ops) keep the inner loop register-resident; they are written back to
// the active context at every suspension point — send, return, and the
// interrupt check between opcodes — and reloaded after.
//
// A Task is never entered from two goroutines at once. The external
// scheduler swaps whole Tasks and may preempt only at interrupt checks.
type Task struct {
	ID    string
	state *VMState
	arena *contextArena

	active    *MethodContext
	activeRef ctxRef

	// Hot register file. Valid iff the Task is executing; every public
	// operation that mutates the context chain re-establishes it.
	ip       int
	sp       int
	self     Value
	literals []Value
	stack    []Value
	ops      []uint32 // decoded opcode base the cursor walks

	interrupt atomic.Bool
	cancelled atomic.Bool
	hooks     []func(*Task) // safepoint hooks: GC, signal delivery
}

// NewTask creates a task with a bootstrap context executing cm with
// recv as self.
func NewTask(st *VMState, recv Value, cm *CompiledMethod) *Task {
	t := newIdle(st)
	t.makeActive(t.generateContext(recv, cm))
	log.Debugf("task %s created for %s", t.ID, cm.Name())
	return t
}

// NewIdleTask creates a task with no active context. It is terminated
// until the scheduler gives it one.
func NewIdleTask(st *VMState) *Task {
	return newIdle(st)
}

func newIdle(st *VMState) *Task {
	return &Task{
		ID:        uuid.NewString(),
		state:     st,
		arena:     newContextArena(),
		activeRef: ctxNone,
	}
}

// State returns the VM state this task runs against.
func (t *Task) State() *VMState { return t.state }

// Active returns the current context, nil when terminated.
func (t *Task) Active() *MethodContext { return t.active }

// Terminated reports whether the task has returned past its bottom
// context or been cancelled.
func (t *Task) Terminated() bool { return t.active == nil }

// SP returns the hot stack pointer.
func (t *Task) SP() int { return t.sp }

// IP returns the hot instruction pointer.
func (t *Task) IP() int { return t.ip }

// Self returns the hot self register.
func (t *Task) Self() Value { return t.self }

// Stack returns the hot stack tuple.
func (t *Task) Stack() []Value { return t.stack }

// ---------------------------------------------------------------------------
// Context generation and activation
// ---------------------------------------------------------------------------

// generateContext builds a fresh frame for cm with recv as self. The
// stack tuple is sized by the compiled method; sp starts just below the
// operand area so the first push lands above the locals.
func (t *Task) generateContext(recv Value, cm *CompiledMethod) *MethodContext {
	ctx := &MethodContext{
		Self:   recv,
		CM:     cm,
		VMM:    cm.VMMethod(),
		Module: t.state.ObjectClass,
		Stack:  make([]Value, cm.StackSize),
		IP:     0,
		SP:     cm.LocalCount - 1,
		Block:  Nil,
		sender: ctxNone,
	}
	for i := range ctx.Stack {
		ctx.Stack[i] = Nil
	}
	t.arena.retain(ctx)
	return ctx
}

// makeActive loads ctx into the hot register file. A nil ctx terminates
// the task; the execute loop observes this before the next opcode.
func (t *Task) makeActive(ctx *MethodContext) {
	if ctx == nil {
		t.active = nil
		t.activeRef = ctxNone
		return
	}
	t.ip = ctx.IP
	t.sp = ctx.SP
	t.self = ctx.Self
	t.literals = ctx.CM.Literals
	t.stack = ctx.Stack
	t.ops = ctx.VMM.Opcodes
	t.active = ctx
	t.activeRef = ctx.ref
}

// ---------------------------------------------------------------------------
// Argument binding
// ---------------------------------------------------------------------------

// importArguments binds msg's arguments into ctx's locals: fixed slots
// one-to-one, the overflow collected into an array at the splat slot.
// A declared splat always receives an array, empty when nothing
// overflows.
func (t *Task) importArguments(ctx *MethodContext, msg *Message) {
	ctx.Args = msg.Args
	cm := ctx.CM

	tot := cm.TotalArgs
	fixed := tot
	if msg.Args < tot {
		fixed = msg.Args
	}
	for i := 0; i < fixed; i++ {
		ctx.Stack[i] = msg.Argument(i)
	}

	if cm.Splat != SplatAbsent {
		splatSize := msg.Args - tot
		if splatSize < 0 {
			splatSize = 0
		}
		elems := make([]Value, splatSize)
		for i := 0; i < splatSize; i++ {
			elems[i] = msg.Argument(tot + i)
		}
		ctx.Stack[cm.Splat] = t.state.NewArray(elems)
	}
}

// checkArity enforces the argument-count constraints a splat cannot
// absorb. Runs before any context is created so a failed send leaves
// the task unchanged.
func (t *Task) checkArity(cm *CompiledMethod, given int) error {
	if given < cm.RequiredArgs || (cm.Splat == SplatAbsent && given > cm.TotalArgs) {
		return &ArgumentError{
			Method:   cm.Name(),
			Required: cm.RequiredArgs,
			Total:    cm.TotalArgs,
			Given:    given,
		}
	}
	return nil
}

// PassedArg reports whether the caller of the active context passed at
// least pos arguments.
func (t *Task) PassedArg(pos int) bool {
	return t.active.Args >= pos
}

// ---------------------------------------------------------------------------
// Message send
// ---------------------------------------------------------------------------

// SendMessage locates the method for msg through its send site and
// activates it. With no site attached the slow path is taken. An
// unresolvable selector is re-dispatched as method_missing before
// failing.
func (t *Task) SendMessage(msg *Message) error {
	if msg.Site == nil {
		return t.SendMessageSlowly(msg)
	}
	if !msg.Site.Locate(t.state, msg) {
		return t.sendMethodMissing(msg)
	}
	return t.activate(msg)
}

// SendMessageSlowly is SendMessage without the send-site probe: the
// resolver is consulted directly. Used when the call site is absent or
// invalidated.
func (t *Task) SendMessageSlowly(msg *Message) error {
	if !t.state.Resolve(msg) {
		return t.sendMethodMissing(msg)
	}
	return t.activate(msg)
}

// activate runs the resolved method: a native executable is invoked in
// place and its result pushed; a compiled method gets a fresh context
// chained onto the active one.
func (t *Task) activate(msg *Message) error {
	switch m := msg.Method.(type) {
	case *NativeMethod:
		result, err := m.Fn(t.state, t, msg)
		if err != nil {
			return err
		}
		t.sp++
		t.stack[t.sp] = result
		t.active.SP = t.sp
		return nil

	case *CompiledMethod:
		if err := t.checkArity(m, msg.Args); err != nil {
			return err
		}
		ctx := t.generateContext(msg.Recv, m)
		t.importArguments(ctx, msg)

		// Snapshot hot state into the outgoing frame, then switch.
		t.active.IP = t.ip
		t.active.SP = t.sp
		ctx.sender = t.activeRef
		t.makeActive(ctx)
		return nil

	default:
		return &FatalError{Reason: "unexecutable method in resolved message"}
	}
}

// sendMethodMissing re-dispatches an unresolvable send as
// method_missing on the same receiver, with the original selector
// prepended to the arguments. Privacy is asserted so a private
// method_missing is reachable.
func (t *Task) sendMethodMissing(msg *Message) error {
	if msg.Name == t.state.symMethodMissing {
		return &MethodMissingError{
			Receiver: msg.Recv,
			Selector: t.state.Symbols.Name(msg.Name),
		}
	}

	log.Debugf("task %s: %s not found, dispatching method_missing", t.ID,
		t.state.Symbols.Name(msg.Name))

	args := make([]Value, msg.Args+1)
	args[0] = FromSymbol(msg.Name)
	for i := 0; i < msg.Args; i++ {
		args[i+1] = msg.Argument(i)
	}

	mm := &Message{
		Recv:       msg.Recv,
		LookupFrom: msg.LookupFrom,
		Name:       t.state.symMethodMissing,
		Priv:       true,
	}
	mm.UseTuple(args)

	if !t.state.Resolve(mm) {
		return &MethodMissingError{
			Receiver: msg.Recv,
			Selector: t.state.Symbols.Name(msg.Name),
		}
	}
	return t.activate(mm)
}

// ---------------------------------------------------------------------------
// Return
// ---------------------------------------------------------------------------

// SimpleReturn pops the active context, reactivates its sender, and
// pushes value onto the caller's operand stack. Returning from the
// bottom context terminates the task.
func (t *Task) SimpleReturn(value Value) {
	returning := t.active
	if returning == nil {
		return
	}
	target := returning.Sender()
	t.arena.release(returning.ref)

	t.makeActive(target)
	if target == nil {
		return
	}
	t.sp++
	t.stack[t.sp] = value
}

// ---------------------------------------------------------------------------
// Reflection helpers
// ---------------------------------------------------------------------------

// LocateMethodOn resolves sel on recv's class chain and returns the
// unwrapped executable. Private methods are hidden unless priv is
// asserted; nil means not found.
func (t *Task) LocateMethodOn(recv Value, sel Symbol, priv bool) Executable {
	msg := &Message{
		Recv:       recv,
		LookupFrom: t.state.ClassOf(recv),
		Name:       sel,
		Priv:       priv,
	}
	if !t.state.Resolve(msg) {
		return nil
	}
	return msg.Method
}

// AttachMethod installs method for recv's class. Singleton classes are
// outside the core's object model; specials and instances share their
// class's table.
func (t *Task) AttachMethod(recv Value, name Symbol, method *CompiledMethod) {
	t.AddMethod(t.state.ClassOf(recv), name, method)
}

// AddMethod installs method in mod's method table.
func (t *Task) AddMethod(mod *Module, name Symbol, method *CompiledMethod) {
	mod.AddMethod(name, method)
}

// CheckSerial resolves sel on obj and compares the method's serial to
// ser. An absent method counts as a match: a purged call site must not
// force recompilation. A native method never matches.
func (t *Task) CheckSerial(obj Value, sel Symbol, ser int) bool {
	x := t.LocateMethodOn(obj, sel, true)
	if x == nil {
		return true
	}
	if cm, ok := x.(*CompiledMethod); ok {
		return cm.Serial == ser
	}
	return false
}

// ---------------------------------------------------------------------------
// Cancellation and interrupts
// ---------------------------------------------------------------------------

// ScheduledThreads returns the scheduler's run queues.
func (t *Task) ScheduledThreads() [7]*TaskQueue {
	return t.state.ScheduledThreads
}

// ---------------------------------------------------------------------------
// Stubbed contracts
// ---------------------------------------------------------------------------

// RaiseException will unwind the context chain to the nearest frame
// whose handler range covers its current ip, terminating the task when
// none does. The unwinder is not designed yet; until then raising is a
// no-op.
func (t *Task) RaiseException(exc Value) {}

// ActivateMethod will activate msg's method without consulting any
// cache, for use by reflective invocation. Not implemented.
func (t *Task) ActivateMethod(msg *Message) {}

// PerformHook will run a runtime hook (inherited-hook, method-added) as
// a send on recv. Hooks always answer nil until implemented.
func (t *Task) PerformHook(recv, hook, arg Value) Value { return Nil }

// CacheIP will let an instruction memoize its decoded position. The
// decoded cursor already lives in the register file, so this is a
// no-op.
func (t *Task) CacheIP() {}

// Cancel asks the task to stop. The execute loop observes it at the
// next interrupt check and drops the active chain; no in-flight send is
// interrupted mid-binding.
func (t *Task) Cancel() {
	t.cancelled.Store(true)
	t.interrupt.Store(true)
}

// Interrupt requests that the safepoint hooks run between the next two
// opcodes.
func (t *Task) Interrupt() {
	t.interrupt.Store(true)
}

// AddInterruptHook registers a safepoint hook (GC, signal delivery).
// Hooks run with the hot register file written back.
func (t *Task) AddInterruptHook(fn func(*Task)) {
	t.hooks = append(t.hooks, fn)
}

// checkInterrupts is the between-opcodes suspension point. Hot state is
// reconciled with the active context before any hook may observe the
// task, and reloaded after.
func (t *Task) checkInterrupts() {
	if !t.interrupt.Swap(false) {
		return
	}
	if t.active != nil {
		t.active.IP = t.ip
		t.active.SP = t.sp
	}
	for _, fn := range t.hooks {
		fn(t)
	}
	if t.cancelled.Load() {
		t.makeActive(nil)
		return
	}
	if t.active != nil {
		t.makeActive(t.active)
	}
}
