package goraster

import (
	"errors"
	"fmt"
)

var (
	// ErrTransformDomain is wrapped by pixel transforms when a coordinate is
	// outside the domain of validity of the transform. The resampler turns
	// such pixels into fill values.
	ErrTransformDomain = errors.New("coordinate outside transform domain")

	// ErrUnsupported reports an operation that cannot be applied to its inputs.
	ErrUnsupported = errors.New("unsupported operation")
)

// ArgumentError reports an invalid argument. It is always returned
// synchronously by the call that detected it, before any work is done.
type ArgumentError struct {
	Arg    string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Arg, e.Reason)
}

func errNilArgument(name string) error {
	return &ArgumentError{Arg: name, Reason: "must not be nil"}
}

// TileError reports the failure to compute one tile.
type TileError struct {
	TX, TY int
	Err    error
}

func (e *TileError) Error() string {
	return fmt.Sprintf("failed to compute tile (%d, %d): %v", e.TX, e.TY, e.Err)
}

func (e *TileError) Unwrap() error { return e.Err }

// OperationError is the error returned by processor operations. Whatever
// subsystem failed, the cause is available through errors.As / errors.Is.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// asOperationError wraps err in an OperationError for op unless it already
// is one. Argument errors are returned as they are.
func asOperationError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*ArgumentError); ok {
		return err
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return err
	}
	return &OperationError{Op: op, Err: err}
}

// tileError wraps err with the tile coordinates unless it already carries them.
func tileError(tx, ty int, err error) error {
	var te *TileError
	if errors.As(err, &te) {
		return err
	}
	return &TileError{TX: tx, TY: ty, Err: err}
}
