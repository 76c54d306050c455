package xhab

import "errors"

var (
	// ErrNilMessage is returned by Publish when the message is absent.
	ErrNilMessage = errors.New("xhab: message must not be nil")

	// ErrNilFilter is returned by Subscribe when the filter is absent.
	// An empty (non-nil) filter is valid and matches every message.
	ErrNilFilter = errors.New("xhab: filter must not be nil")

	// ErrNilCallback is returned by Subscribe when the callback is absent.
	ErrNilCallback = errors.New("xhab: callback must not be nil")

	// ErrEmptyUID is returned by Unsubscribe when the uid is absent.
	// An unknown uid is not an error; removal is idempotent.
	ErrEmptyUID = errors.New("xhab: uid must not be empty")

	// ErrBusClosed is returned once Close has been called.
	ErrBusClosed = errors.New("xhab: bus is closed")

	// ErrBusNotStarted is returned by Start-dependent operations before Start.
	ErrBusNotStarted = errors.New("xhab: bus not started")

	// ErrBusAlreadyStarted is returned by a second Start.
	ErrBusAlreadyStarted = errors.New("xhab: bus already started")

	// ErrPoolShutdownTimeout indicates the callback pool did not drain within
	// the close timeout.
	ErrPoolShutdownTimeout = errors.New("xhab: callback pool shutdown timeout")
)
