package system

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyName         = errors.New("system name must not be empty")
	ErrNilSystem         = errors.New("system must not be nil")
	ErrDuplicateSystem   = errors.New("system already registered")
	ErrUnknownDependency = errors.New("unknown system dependency")
	ErrCyclicDependency  = errors.New("cyclic system dependency")
	ErrNotSetup          = errors.New("dispatcher setup failed")
)

// CycleError names the systems left on a dependency cycle when the graph
// was built.
type CycleError struct {
	Systems []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCyclicDependency, strings.Join(e.Systems, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCyclicDependency }

// PanicError carries a panic raised by a system on a worker goroutine back
// to the goroutine that called Dispatch, where it is raised again.
type PanicError struct {
	System string
	Value  any
	Stack  []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("system %q panicked: %v", e.System, e.Value)
}

// Unwrap exposes the panic value when it was an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
