package entity

import "fmt"

// Fault is the panic value raised when a caller breaks an invariant of the
// slot allocator, the cell lists or the delivery queue. Continuing after a
// fault would silently corrupt the free list or a cell list, so nothing in
// this module recovers it.
type Fault struct {
	Op  string
	Msg string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("entity: %s: %s", f.Op, f.Msg)
}

func check(cond bool, op, format string, args ...any) {
	if !cond {
		panic(&Fault{Op: op, Msg: fmt.Sprintf(format, args...)})
	}
}
