// Package asyncop models the lifecycle of a single asynchronous
// operation as one value instead of separate loading/error/result
// flags, which rules out impossible combinations like a result and an
// error at the same time.
package asyncop

// State identifies where an operation is in its lifecycle
type State int

const (
	Idle State = iota
	Pending
	Success
	Failure
)

// Op tracks one asynchronous operation producing a T
type Op[T any] struct {
	state State
	value T
	err   error
}

// Start marks the operation as in flight, clearing any previous outcome
func (o *Op[T]) Start() {
	var zero T
	o.state = Pending
	o.value = zero
	o.err = nil
}

// Succeed records a successful outcome
func (o *Op[T]) Succeed(value T) {
	o.state = Success
	o.value = value
	o.err = nil
}

// Fail records a failed outcome
func (o *Op[T]) Fail(err error) {
	var zero T
	o.state = Failure
	o.value = zero
	o.err = err
}

// Reset returns the operation to Idle
func (o *Op[T]) Reset() {
	var zero T
	o.state = Idle
	o.value = zero
	o.err = nil
}

// State returns the current lifecycle state
func (o *Op[T]) State() State { return o.state }

// Pending reports whether the operation is in flight
func (o *Op[T]) Pending() bool { return o.state == Pending }

// Value returns the result; valid only in the Success state
func (o *Op[T]) Value() T { return o.value }

// Err returns the failure; valid only in the Failure state
func (o *Op[T]) Err() error { return o.err }
