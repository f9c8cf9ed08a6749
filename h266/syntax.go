package h266

import (
	"io"
	mbits "math/bits"

	"github.com/ausocean/h266decode/h266/bits"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// SyntaxOptions controls how syntax structures are checked while parsing.
type SyntaxOptions struct {
	Log *zap.SugaredLogger

	// Strict turns conformance checks that real streams are known to break
	// into errors. Otherwise they are only logged.
	Strict bool
}

// syntaxReader reads syntax elements from an RBSP. The first error is kept
// and all later reads return zero, so callers check r.err once per block.
type syntaxReader struct {
	br     *bits.BitReader
	log    *zap.SugaredLogger
	strict bool
	err    error
}

func newSyntaxReader(br *bits.BitReader, opts SyntaxOptions) *syntaxReader {
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &syntaxReader{br: br, log: log, strict: opts.Strict}
}

// fail records err unless an earlier error is already held.
func (r *syntaxReader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *syntaxReader) readErr(err error, name string) {
	r.fail(errors.Wrapf(err, "could not read %s", name))
}

// code reads u(n).
func (r *syntaxReader) code(n int, name string) uint32 {
	if r.err != nil {
		return 0
	}
	if n == 0 {
		r.fail(errors.WithStack(newParseError(1, name, 0, "code of length 0")))
		return 0
	}
	v, err := r.br.ReadBits(n)
	if err != nil {
		r.readErr(err, name)
		return 0
	}
	return v
}

// flag reads u(1) as a bool.
func (r *syntaxReader) flag(name string) bool {
	if r.err != nil {
		return false
	}
	v, err := r.br.ReadBits(1)
	if err != nil {
		r.readErr(err, name)
		return false
	}
	return v == 1
}

// scode reads an n bit two's complement value.
func (r *syntaxReader) scode(n int, name string) int32 {
	v := r.code(n, name)
	if r.err != nil {
		return 0
	}
	if v&(1<<uint(n-1)) != 0 {
		return int32(int64(v) - 1<<uint(n))
	}
	return int32(v)
}

// ue reads ue(v). The leading zeros are counted from a 32 bit peek, so a code
// is at most 63 bits and the largest value is 2^32 - 2.
func (r *syntaxReader) ue(name string) uint32 {
	if r.err != nil {
		return 0
	}
	p, err := r.br.PeekBits(32)
	if err != nil {
		r.readErr(err, name)
		return 0
	}
	if p == 0 {
		if r.br.BitsLeft() < 32 {
			r.readErr(io.ErrUnexpectedEOF, name)
			return 0
		}
		r.fail(errors.WithStack(newParseError(1, name, 0, "exp-Golomb prefix longer than 31 bits")))
		return 0
	}
	lz := mbits.LeadingZeros32(p)
	if lz > 0 {
		if _, err := r.br.ReadBits(lz); err != nil {
			r.readErr(err, name)
			return 0
		}
	}
	v, err := r.br.ReadBits(lz + 1)
	if err != nil {
		r.readErr(err, name)
		return 0
	}
	return v - 1
}

// se reads se(v).
func (r *syntaxReader) se(name string) int32 {
	k := int64(r.ue(name))
	if k&1 == 1 {
		return int32((k + 1) / 2)
	}
	return int32(-(k / 2))
}

// codeRange reads u(n) and checks it is within [min, max]. Once an error is
// held the result is min, so it is always safe as a size or loop bound.
func (r *syntaxReader) codeRange(n int, name string, min, max int64) uint32 {
	return uint32(r.inRange(2, name, int64(r.code(n, name)), min, max))
}

// ueRange reads ue(v) and checks it is within [min, max]. Once an error is
// held the result is min.
func (r *syntaxReader) ueRange(name string, min, max int64) uint32 {
	return uint32(r.inRange(2, name, int64(r.ue(name)), min, max))
}

// seRange reads se(v) and checks it is within [min, max]. Once an error is
// held the result is min.
func (r *syntaxReader) seRange(name string, min, max int64) int32 {
	return int32(r.inRange(2, name, int64(r.se(name)), min, max))
}

// inRange returns v if it is within [min, max] and no error is held.
// Otherwise it records a ParseError and returns min.
func (r *syntaxReader) inRange(skip int, name string, v, min, max int64) int64 {
	if r.err != nil {
		return min
	}
	if v >= min && v <= max {
		return v
	}
	pe := newParseError(skip, name, v, "")
	pe.Min, pe.Max, pe.HasRange = min, max, true
	r.fail(errors.WithStack(pe))
	return min
}

// ensure records a ParseError for element if ok is false.
func (r *syntaxReader) ensure(ok bool, element string, value int64, msg string) {
	if ok || r.err != nil {
		return
	}
	r.fail(errors.WithStack(newParseError(1, element, value, msg)))
}

// warn logs a conformance violation that is not fatal to parsing, unless
// strict checking is on.
func (r *syntaxReader) warn(ok bool, element string, value int64, msg string) {
	if ok || r.err != nil {
		return
	}
	if r.strict {
		r.fail(errors.WithStack(newParseError(1, element, value, msg)))
		return
	}
	r.log.Warnw("conformance violation", "element", element, "value", value, "condition", msg)
}

// byteAlign reads zero bits named name up to the next byte boundary.
func (r *syntaxReader) byteAlign(name string) {
	for r.err == nil && !r.br.IsByteAligned() {
		b := r.code(1, name)
		r.ensure(b == 0, name, int64(b), "alignment bit not equal to 0")
	}
}

// reservedAlign reads reserved zero bits named name up to the next byte
// boundary. A bit that is not 0 is only a warning, as for any reserved bit.
func (r *syntaxReader) reservedAlign(name string) {
	for r.err == nil && !r.br.IsByteAligned() {
		b := r.code(1, name)
		r.warn(b == 0, name, int64(b), name+" not equal to 0")
	}
}

// moreRBSPData reports whether anything other than rbsp_trailing_bits is
// left. It does not consume any bits.
func (r *syntaxReader) moreRBSPData() bool {
	if r.err != nil {
		return false
	}
	left := r.br.BitsLeft()
	if left > 8 {
		return true
	}
	last, err := r.br.PeekBits(left)
	if err != nil {
		r.readErr(err, "more_rbsp_data")
		return false
	}
	cnt := left
	for cnt > 0 && last&1 == 0 {
		last >>= 1
		cnt--
	}
	// The stop bit.
	cnt--
	if cnt < 0 {
		r.fail(errors.WithStack(newParseError(1, "rbsp_stop_one_bit", 0, "no stop bit before end of RBSP")))
		return false
	}
	return cnt > 0
}

// rbspTrailingBits reads rbsp_stop_one_bit and the alignment zero bits. Zero
// bytes left after alignment count as padding, and 8 or more padding bits is
// an error.
func (r *syntaxReader) rbspTrailingBits() {
	stop := r.code(1, "rbsp_stop_one_bit")
	r.ensure(stop == 1, "rbsp_stop_one_bit", int64(stop), "stop bit not equal to 1")

	cnt := 0
	for r.err == nil && !r.br.IsByteAligned() {
		b := r.code(1, "rbsp_alignment_zero_bit")
		r.ensure(b == 0, "rbsp_alignment_zero_bit", int64(b), "alignment bit not equal to 0")
		cnt++
	}
	for r.err == nil && cnt < 8 && r.br.BitsLeft() > 0 {
		n := r.br.BitsLeft()
		if n > 8 {
			n = 8
		}
		if b, _ := r.br.PeekBits(n); b != 0 {
			break
		}
		r.code(n, "rbsp_alignment_zero_bit")
		cnt += n
	}
	r.ensure(cnt < 8, "rbsp_alignment_zero_bit", int64(cnt), "more than 7 trailing zero bits")
}
