package vm

import "fmt"

// ---------------------------------------------------------------------------
// Core error kinds
// ---------------------------------------------------------------------------

// MethodMissingError reports a send whose selector could not be
// resolved anywhere on the receiver's chain, including the
// method_missing fallback.
type MethodMissingError struct {
	Receiver Value
	Selector string
}

func (e *MethodMissingError) Error() string {
	return fmt.Sprintf("method missing: %s", e.Selector)
}

// TypeError reports a value of the wrong kind where a specific kind was
// required: reopening a non-class constant as a class, or a superclass
// mismatch.
type TypeError struct {
	Expected string
	Message  string
}

func (e *TypeError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("type error: %s", e.Message)
	}
	return fmt.Sprintf("type error: expected %s", e.Expected)
}

// ArgumentError reports an argument-count mismatch that no splat could
// absorb.
type ArgumentError struct {
	Method   string
	Required int
	Total    int
	Given    int
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("argument error: %s takes %d..%d arguments, given %d",
		e.Method, e.Required, e.Total, e.Given)
}

// FatalError reports corruption of core state: the cache, the context
// chain, or the register file. The owning Task must be aborted.
type FatalError struct {
	Reason string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %s", e.Reason)
}
