package vm

import "fmt"

// ---------------------------------------------------------------------------
// Execute loop
// ---------------------------------------------------------------------------

// Execute runs the task until it terminates: until a return past the
// bottom context or a cancellation drops the active chain. Reads come
// from the hot registers, writes go to the hot registers, and the
// active context is reconciled at every suspension point — sends,
// returns, and the interrupt check between opcodes.
func (t *Task) Execute() error {
	for {
		t.checkInterrupts()
		if t.active == nil {
			return nil
		}

		if t.ip >= len(t.ops) {
			// Falling off the end of the opcode vector returns self.
			t.SimpleReturn(t.self)
			continue
		}

		op := Opcode(t.ops[t.ip])
		t.ip++

		switch op {
		case OpNoop:

		case OpPop:
			t.sp--

		case OpDup:
			top := t.stack[t.sp]
			t.sp++
			t.stack[t.sp] = top

		case OpPushSelf:
			t.sp++
			t.stack[t.sp] = t.self

		case OpPushNil:
			t.sp++
			t.stack[t.sp] = Nil

		case OpPushTrue:
			t.sp++
			t.stack[t.sp] = True

		case OpPushFalse:
			t.sp++
			t.stack[t.sp] = False

		case OpPushLiteral:
			idx := int(t.ops[t.ip])
			t.ip++
			t.sp++
			t.stack[t.sp] = t.literals[idx]

		case OpPushLocal:
			idx := int(t.ops[t.ip])
			t.ip++
			t.sp++
			t.stack[t.sp] = t.stack[idx]

		case OpSetLocal:
			idx := int(t.ops[t.ip])
			t.ip++
			t.stack[idx] = t.stack[t.sp]

		case OpSend:
			site := int(t.ops[t.ip])
			argc := int(t.ops[t.ip+1])
			t.ip += 2
			if err := t.sendFromStack(t.active.CM.SendSites[site], 0, argc); err != nil {
				return err
			}

		case OpSendSlow:
			lit := int(t.ops[t.ip])
			argc := int(t.ops[t.ip+1])
			t.ip += 2
			sel := t.literals[lit].SymbolID()
			if err := t.sendFromStack(nil, sel, argc); err != nil {
				return err
			}

		case OpRetTop:
			value := t.stack[t.sp]
			t.sp--
			t.SimpleReturn(value)

		case OpRetSelf:
			t.SimpleReturn(t.self)

		case OpPushConst:
			lit := int(t.ops[t.ip])
			t.ip++
			v, _ := t.ConstGet(t.literals[lit].SymbolID())
			t.sp++
			t.stack[t.sp] = v

		case OpSetConst:
			lit := int(t.ops[t.ip])
			t.ip++
			t.ConstSet(t.literals[lit].SymbolID(), t.stack[t.sp])

		case OpOpenClass:
			lit := int(t.ops[t.ip])
			t.ip++
			cls, _, err := t.OpenClass(nil, t.literals[lit].SymbolID())
			if err != nil {
				return err
			}
			t.sp++
			t.stack[t.sp] = cls.ToValue()

		case OpOpenModule:
			lit := int(t.ops[t.ip])
			t.ip++
			mod, err := t.OpenModule(t.literals[lit].SymbolID())
			if err != nil {
				return err
			}
			t.sp++
			t.stack[t.sp] = mod.ToValue()

		case OpYieldDebugger:
			t.YieldDebugger()

		default:
			return &FatalError{Reason: fmt.Sprintf("unknown opcode %d at ip %d", op, t.ip-1)}
		}
	}
}

// sendFromStack performs a send whose receiver and argc arguments sit
// on top of the operand stack. They are consumed before dispatch; the
// matched return push lands in the receiver's slot. A nil site takes
// the slow path with sel as the selector.
func (t *Task) sendFromStack(site *SendSite, sel Symbol, argc int) error {
	recvIdx := t.sp - argc
	if recvIdx < t.active.CM.LocalCount {
		return &FatalError{Reason: "operand stack underflow in send"}
	}
	recv := t.stack[recvIdx]

	msg := &Message{
		Recv:       recv,
		LookupFrom: t.state.ClassOf(recv),
		Site:       site,
	}
	if site != nil {
		msg.Name = site.Name
	} else {
		msg.Name = sel
	}
	msg.UseStack(t.stack, recvIdx+1, argc)

	t.sp = recvIdx - 1
	return t.SendMessage(msg)
}
