package pager

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind int

const (
	KindStorage Kind = iota + 1
	KindNetwork
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindStorage:
		return "storage"
	case KindNetwork:
		return "network"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// ErrOutOfRange reports a page index outside the current page set.
var ErrOutOfRange = errors.New("page index out of range")

// Error is a classified failure of a single operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StorageError wraps err as a storage failure of op.
func StorageError(op string, err error) error {
	return &Error{Kind: KindStorage, Op: op, Err: err}
}

// NetworkError wraps err as a network failure of op.
func NetworkError(op string, err error) error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

// ProtocolError wraps err as a protocol failure of op.
func ProtocolError(op string, err error) error {
	return &Error{Kind: KindProtocol, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or zero.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsStorage(err error) bool  { return KindOf(err) == KindStorage }
func IsNetwork(err error) bool  { return KindOf(err) == KindNetwork }
func IsProtocol(err error) bool { return KindOf(err) == KindProtocol }
