// Package bsem provides a binary semaphore built from a mutex and a
// condition variable.
//
// A Semaphore has two states, available and unavailable. Wait blocks until
// the state is available and then takes it; Signal makes it available and
// wakes at most one waiter.
//
// # Coalescing
//
// The semaphore is a flag, not a counter. Two Signal calls made before any
// Wait leave a single available state behind, so only one Wait passes:
//
//	s := bsem.New() // available
//	s.Wait()        // passes, now unavailable
//	s.Signal()
//	s.Signal()      // no effect, already available
//	s.Wait()        // passes
//	s.Wait()        // blocks until the next Signal
//
// Callers that need several waiters to proceed must chain the wake-up
// themselves: the waiter that passes re-signals when more work remains.
//
// # Cancellation
//
// WaitContext behaves like Wait but gives up when the context is done.
// A cancelled waiter never consumes the available state.
package bsem
