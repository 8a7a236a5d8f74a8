package vm

import (
	"fmt"
	"strings"
)

// Word-coded instructions: each opcode is one 32-bit word, operands
// follow as whole words. The full instruction set belongs to the
// compiler; this is the working subset the execute loop guarantees the
// register discipline for.

// Opcode identifies one instruction.
type Opcode uint32

const (
	OpNoop Opcode = iota

	// Stack operations
	OpPop
	OpDup

	// Pushes
	OpPushSelf
	OpPushNil
	OpPushTrue
	OpPushFalse
	OpPushLiteral // operand: literal index
	OpPushLocal   // operand: local index
	OpSetLocal    // operand: local index; value stays on the stack

	// Sends
	OpSend     // operands: send-site index, argc
	OpSendSlow // operands: selector literal index, argc

	// Returns
	OpRetTop
	OpRetSelf

	// Constants and namespaces
	OpPushConst  // operand: selector literal index
	OpSetConst   // operand: selector literal index; value stays on the stack
	OpOpenClass  // operand: selector literal index; pushes the class
	OpOpenModule // operand: selector literal index; pushes the module

	OpYieldDebugger
)

var opcodeNames = [...]string{
	OpNoop:          "noop",
	OpPop:           "pop",
	OpDup:           "dup",
	OpPushSelf:      "push_self",
	OpPushNil:       "push_nil",
	OpPushTrue:      "push_true",
	OpPushFalse:     "push_false",
	OpPushLiteral:   "push_literal",
	OpPushLocal:     "push_local",
	OpSetLocal:      "set_local",
	OpSend:          "send",
	OpSendSlow:      "send_slow",
	OpRetTop:        "ret_top",
	OpRetSelf:       "ret_self",
	OpPushConst:     "push_const",
	OpSetConst:      "set_const",
	OpOpenClass:     "open_class",
	OpOpenModule:    "open_module",
	OpYieldDebugger: "yield_debugger",
}

// String returns the opcode mnemonic.
func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return "unknown"
}

// operandCounts gives the number of operand words per opcode.
var operandCounts = [...]int{
	OpPushLiteral: 1,
	OpPushLocal:   1,
	OpSetLocal:    1,
	OpSend:        2,
	OpSendSlow:    2,
	OpPushConst:   1,
	OpSetConst:    1,
	OpOpenClass:   1,
	OpOpenModule:  1,
}

// OperandCount returns how many operand words follow op.
func (op Opcode) OperandCount() int {
	if int(op) < len(operandCounts) {
		return operandCounts[op]
	}
	return 0
}

// Disassemble renders an opcode vector as one instruction per line.
func Disassemble(ops []uint32) string {
	var sb strings.Builder
	for i := 0; i < len(ops); {
		op := Opcode(ops[i])
		fmt.Fprintf(&sb, "%04d  %s", i, op)
		i++
		for j := 0; j < op.OperandCount() && i < len(ops); j++ {
			fmt.Fprintf(&sb, " %d", ops[i])
			i++
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Disassemble renders the method's opcode vector.
func (cm *CompiledMethod) Disassemble() string {
	return Disassemble(cm.Opcodes)
}

// ---------------------------------------------------------------------------
// BytecodeBuilder
// ---------------------------------------------------------------------------

// BytecodeBuilder emits word-coded instructions.
type BytecodeBuilder struct {
	words []uint32
}

// NewBytecodeBuilder creates an empty builder.
func NewBytecodeBuilder() *BytecodeBuilder {
	return &BytecodeBuilder{words: make([]uint32, 0, 32)}
}

// Op emits an opcode with no operands.
func (b *BytecodeBuilder) Op(op Opcode) *BytecodeBuilder {
	b.words = append(b.words, uint32(op))
	return b
}

// OpI emits an opcode with one operand word.
func (b *BytecodeBuilder) OpI(op Opcode, operand int) *BytecodeBuilder {
	b.words = append(b.words, uint32(op), uint32(operand))
	return b
}

// OpII emits an opcode with two operand words.
func (b *BytecodeBuilder) OpII(op Opcode, a, c int) *BytecodeBuilder {
	b.words = append(b.words, uint32(op), uint32(a), uint32(c))
	return b
}

// Len returns the number of words emitted so far.
func (b *BytecodeBuilder) Len() int { return len(b.words) }

// Words returns the emitted instruction vector.
func (b *BytecodeBuilder) Words() []uint32 {
	out := make([]uint32, len(b.words))
	copy(out, b.words)
	return out
}
