package vm

import (
	"os"
	"syscall"
)

// ---------------------------------------------------------------------------
// Debugger yield
// ---------------------------------------------------------------------------

// DefaultDebuggerSignal is the signal raised by YieldDebugger when the
// state does not configure one. A debugger collaborator is expected to
// have installed a handler for it.
const DefaultDebuggerSignal = syscall.SIGTRAP

// YieldDebugger raises the configured debugger signal at the current
// process.
func (t *Task) YieldDebugger() {
	sig := t.state.DebugSignal
	if sig == 0 {
		sig = DefaultDebuggerSignal
	}
	proc, err := os.FindProcess(os.Getpid())
	if err != nil {
		log.Errorf("task %s: yield_debugger: %v", t.ID, err)
		return
	}
	if err := proc.Signal(sig); err != nil {
		log.Errorf("task %s: yield_debugger: %v", t.ID, err)
	}
}
