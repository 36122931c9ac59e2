package api

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies a conversion failure.
type Code string

const (
	CodeEngineNotReady        Code = "EngineNotReady"
	CodeEngineInitFailed      Code = "EngineInitFailed"
	CodeWriteFailed           Code = "WriteFailed"
	CodeConversionFailed      Code = "ConversionFailed"
	CodeReadFailed            Code = "ReadFailed"
	CodeUnsupportedConversion Code = "UnsupportedConversion"
	CodePayloadTooLarge       Code = "PayloadTooLarge"
	CodeDecodeFailed          Code = "DecodeFailed"
	CodeEncodeFailed          Code = "EncodeFailed"
)

// Reason explains why a conversion pair is unsupported.
type Reason string

const (
	// ReasonImpossible marks pairs that cannot be expressed at all, such as
	// identity pairs or pairs crossing format families.
	ReasonImpossible Reason = "impossible"
	// ReasonUnimplemented marks pairs that are recognised but not built.
	ReasonUnimplemented Reason = "unimplemented"
)

// Sentinels for errors.Is checks; matching is by Code only.
var (
	ErrEngineNotReady        = &Error{Code: CodeEngineNotReady}
	ErrEngineInitFailed      = &Error{Code: CodeEngineInitFailed}
	ErrWriteFailed           = &Error{Code: CodeWriteFailed}
	ErrConversionFailed      = &Error{Code: CodeConversionFailed}
	ErrReadFailed            = &Error{Code: CodeReadFailed}
	ErrUnsupportedConversion = &Error{Code: CodeUnsupportedConversion}
	ErrPayloadTooLarge       = &Error{Code: CodePayloadTooLarge}
	ErrDecodeFailed          = &Error{Code: CodeDecodeFailed}
	ErrEncodeFailed          = &Error{Code: CodeEncodeFailed}
)

// Error is the single structured error returned by conversions.
type Error struct {
	Code Code
	// Op names the failing step, e.g. "write input-1234.png".
	Op string
	// From and To are set for UnsupportedConversion.
	From, To Format
	Reason   Reason
	// Diagnostic carries the engine's output for ConversionFailed.
	Diagnostic string
	// Limit and Size are set for PayloadTooLarge.
	Limit, Size int64
	Err         error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	switch e.Code {
	case CodeUnsupportedConversion:
		fmt.Fprintf(&sb, ": cannot convert %s to %s", displayFormat(e.From), displayFormat(e.To))
		if e.Reason != "" {
			fmt.Fprintf(&sb, " (%s)", e.Reason)
		}
	case CodePayloadTooLarge:
		fmt.Fprintf(&sb, ": %d bytes exceeds the %d byte limit", e.Size, e.Limit)
	default:
		if e.Op != "" {
			sb.WriteString(": " + e.Op)
		}
	}
	if e.Err != nil {
		sb.WriteString(": " + e.Err.Error())
	}
	if e.Diagnostic != "" {
		sb.WriteString(": " + strings.TrimSpace(e.Diagnostic))
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func displayFormat(f Format) string {
	if f == "" {
		return "unknown"
	}
	return string(f)
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

func NewError(code Code, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

func Unsupported(from, to Format, reason Reason) *Error {
	return &Error{Code: CodeUnsupportedConversion, From: from, To: to, Reason: reason}
}

func TooLarge(size, limit int64) *Error {
	return &Error{Code: CodePayloadTooLarge, Size: size, Limit: limit}
}

func ConversionFailed(op, diagnostic string, err error) *Error {
	return &Error{Code: CodeConversionFailed, Op: op, Diagnostic: diagnostic, Err: err}
}
