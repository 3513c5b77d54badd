package bitstream

import "fmt"

// ErrorKind categorizes bitstream cursor failures.
type ErrorKind uint8

const (
	// ErrOutOfBounds indicates a read or seek past the end of the buffer.
	ErrOutOfBounds ErrorKind = iota

	// ErrMisaligned indicates a byte-oriented read at an offset that is not
	// a whole number of bytes.
	ErrMisaligned

	// ErrUnsupported indicates an encoding the cursor recognizes but does
	// not implement, such as multi-chunk variable bit-rate values.
	ErrUnsupported
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrOutOfBounds:
		return "OutOfBounds"
	case ErrMisaligned:
		return "Misaligned"
	case ErrUnsupported:
		return "Unsupported"
	default:
		return "Unknown"
	}
}

// Error represents a failed cursor operation.
type Error struct {
	// Kind categorizes the error.
	Kind ErrorKind

	// Offset is the bit position at which the operation was attempted.
	Offset uint64

	// Message provides details about the error.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("bitstream %s at bit %d: %s", e.Kind, e.Offset, e.Message)
}

// NewError creates a new bitstream error at the given bit offset.
func NewError(kind ErrorKind, offset uint64, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Offset:  offset,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsOutOfBounds returns true if the error is ErrOutOfBounds.
func (e *Error) IsOutOfBounds() bool {
	return e.Kind == ErrOutOfBounds
}

// IsMisaligned returns true if the error is ErrMisaligned.
func (e *Error) IsMisaligned() bool {
	return e.Kind == ErrMisaligned
}

// IsUnsupported returns true if the error is ErrUnsupported.
func (e *Error) IsUnsupported() bool {
	return e.Kind == ErrUnsupported
}
