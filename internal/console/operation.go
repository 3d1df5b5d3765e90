// Package console holds the per-session state of the bot console: the form
// inputs and one independent state record per operation.
package console

import (
	apperrors "github.com/edgard/botconsole/internal/errors"
)

// Status is the lifecycle position of one operation.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Kind names an operation group.
type Kind string

const (
	KindValidate Kind = "validate"
	KindCommands Kind = "commands"
	KindSend     Kind = "send"
	KindCall     Kind = "call"
)

// OperationView is a read-only copy of one operation record.
type OperationView[T any] struct {
	Status    Status
	Result    T
	Error     string
	ErrorCode string
}

// Loading reports whether a request is in flight.
func (v OperationView[T]) Loading() bool { return v.Status == StatusLoading }

// Failed reports whether the last attempt ended in an error.
func (v OperationView[T]) Failed() bool { return v.Status == StatusFailed }

// Succeeded reports whether the last attempt stored a result.
func (v OperationView[T]) Succeeded() bool { return v.Status == StatusSucceeded }

// record is the mutable state of one operation. gen identifies the attempt
// currently owning the record; completions carrying an older gen are dropped.
type record[T any] struct {
	status  Status
	result  T
	errMsg  string
	errCode string
	gen     uint64
}

func (r *record[T]) loading() bool {
	return r.status == StatusLoading
}

// start enters Loading, clearing the previous result and error.
func (r *record[T]) start() uint64 {
	r.clear(StatusLoading)
	return r.gen
}

// reset returns to Idle and invalidates any attempt in flight.
func (r *record[T]) reset() {
	r.clear(StatusIdle)
}

func (r *record[T]) clear(status Status) {
	var zero T
	r.gen++
	r.status = status
	r.result = zero
	r.errMsg = ""
	r.errCode = ""
}

// finish applies the outcome of attempt gen. It reports false when a newer
// attempt or a reset superseded it.
func (r *record[T]) finish(gen uint64, result T, err error) bool {
	if gen != r.gen || r.status != StatusLoading {
		return false
	}
	if err != nil {
		r.status = StatusFailed
		r.errMsg = apperrors.Message(err)
		r.errCode = apperrors.Code(err)
		return true
	}
	r.status = StatusSucceeded
	r.result = result
	return true
}

func (r *record[T]) view() OperationView[T] {
	return OperationView[T]{
		Status:    r.status,
		Result:    r.result,
		Error:     r.errMsg,
		ErrorCode: r.errCode,
	}
}
