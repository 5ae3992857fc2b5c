package compressor

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode is returned when the input is not a decodable image of the declared kind.
	ErrDecode = errors.New("decode error")
	// ErrInvalidParameter is returned when quality, stride or interval are out of bounds.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrEncode is returned when encoding fails after a successful decode.
	ErrEncode = errors.New("encode error")
)

// Error carries the failing operation along with one of the sentinel kinds.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Code returns a stable identifier for the error kind.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidParameter):
		return "invalid_parameter"
	case errors.Is(err, ErrDecode):
		return "decode_error"
	case errors.Is(err, ErrEncode):
		return "encode_error"
	default:
		return "internal_error"
	}
}

func invalidParam(op, msg string) error {
	return &Error{Kind: ErrInvalidParameter, Op: op, Err: errors.New(msg)}
}

func decodeErr(op string, err error) error {
	return &Error{Kind: ErrDecode, Op: op, Err: err}
}

func encodeErr(op string, err error) error {
	return &Error{Kind: ErrEncode, Op: op, Err: err}
}
