package h266

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
)

// Errors reported at the access unit boundary. These originate below the
// bitstream layer or describe the stream as a whole, so they are not
// ParseErrors.
var (
	ErrUnspecified     = errors.New("unspecified error")
	ErrAllocate        = errors.New("could not allocate payload")
	ErrDecInput        = errors.New("invalid decoder input")
	ErrNotEnoughMem    = errors.New("not enough memory for payload")
	ErrParameter       = errors.New("invalid parameter")
	ErrNotSupported    = errors.New("not supported")
	ErrRestartRequired = errors.New("decoder restart required")
	ErrEOF             = errors.New("end of stream")
)

// ErrNoStartCode is returned when an access unit holds bytes but no start
// code prefix.
var ErrNoStartCode = errors.Wrap(ErrDecInput, "no start code in access unit")

// ErrMalformedHeader is returned for a NAL unit header with a layer id above
// 55. It usually means an extension layer rather than corruption, so it is
// kept apart from ParseError.
var ErrMalformedHeader = errors.New("malformed NAL unit header")

// ErrUnrecoverable means the reader has lost sync with the stream and nothing
// after this point can be trusted.
var ErrUnrecoverable = errors.New("unrecoverable bitstream error")

// Error codes returned by Code.
const (
	CodeOK              = 0
	CodeUnspecified     = -1
	CodeInitialize      = -2
	CodeAllocate        = -3
	CodeDecInput        = -4
	CodeNotEnoughMem    = -5
	CodeParameter       = -7
	CodeNotSupported    = -10
	CodeRestartRequired = -11
	CodeCPU             = -30
	CodeTryAgain        = -40
	CodeEOF             = -50
)

// Code maps err to a numeric decoder error code.
func Code(err error) int {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrAllocate):
		return CodeAllocate
	case errors.Is(err, ErrDecInput):
		return CodeDecInput
	case errors.Is(err, ErrNotEnoughMem):
		return CodeNotEnoughMem
	case errors.Is(err, ErrParameter):
		return CodeParameter
	case errors.Is(err, ErrNotSupported):
		return CodeNotSupported
	case errors.Is(err, ErrRestartRequired):
		return CodeRestartRequired
	case errors.Is(err, ErrEOF):
		return CodeEOF
	}
	return CodeUnspecified
}

// ParseError describes a syntax element that failed a range or consistency
// check. The NAL unit holding it should be discarded; the stream may
// continue.
type ParseError struct {
	Element  string // Syntax element or derived variable name.
	Value    int64  // Value as read.
	Min, Max int64  // Inclusive range, valid if HasRange.
	HasRange bool
	Msg      string // Failed condition.
	Location string // file:line of the check.
}

func (e *ParseError) Error() string {
	s := fmt.Sprintf("%s: %s = %d", e.Location, e.Element, e.Value)
	if e.HasRange {
		s += fmt.Sprintf(" not in range [%d, %d]", e.Min, e.Max)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}

// newParseError returns a ParseError located at the caller skip frames above
// this function.
func newParseError(skip int, element string, value int64, msg string) *ParseError {
	loc := "unknown"
	if _, file, line, ok := runtime.Caller(skip + 1); ok {
		loc = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	return &ParseError{Element: element, Value: value, Msg: msg, Location: loc}
}

// IsParseError reports whether err holds a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
