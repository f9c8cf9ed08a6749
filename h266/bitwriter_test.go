package h266

import (
	"bytes"
	"math/bits"
	"testing"

	mcbits "github.com/bluenviron/mediacommon/v2/pkg/bits"
	"github.com/icza/bitio"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// bitWriter writes bits MSB first into an in-memory buffer. Tests use it to
// build syntax structures field by field.
type bitWriter struct {
	buf bytes.Buffer
	w   *bitio.Writer
	n   int
}

func newBitWriter() *bitWriter {
	bw := &bitWriter{}
	bw.w = bitio.NewWriter(&bw.buf)
	return bw
}

// WriteBits writes the n least-significant bits of v, n <= 64.
func (bw *bitWriter) WriteBits(v uint64, n int) error {
	if n < 0 || n > 64 {
		return errors.Errorf("invalid bit count %d", n)
	}
	if n == 0 {
		return nil
	}
	if n < 64 {
		v &= 1<<uint(n) - 1
	}
	if err := bw.w.WriteBits(v, uint8(n)); err != nil {
		return errors.Wrap(err, "could not write bits")
	}
	bw.n += n
	return nil
}

func (bw *bitWriter) WriteFlag(b bool) error {
	if err := bw.w.WriteBool(b); err != nil {
		return errors.Wrap(err, "could not write flag")
	}
	bw.n++
	return nil
}

// WriteUe writes ue(v).
func (bw *bitWriter) WriteUe(v uint32) error {
	x := uint64(v) + 1
	l := bits.Len64(x)
	if err := bw.WriteBits(0, l-1); err != nil {
		return err
	}
	return bw.WriteBits(x, l)
}

// WriteSe writes se(v).
func (bw *bitWriter) WriteSe(v int32) error {
	k := -2 * int64(v)
	if v > 0 {
		k = 2*int64(v) - 1
	}
	return bw.WriteUe(uint32(k))
}

// WriteTrailingBits writes rbsp_stop_one_bit and zero bits up to the next
// byte boundary.
func (bw *bitWriter) WriteTrailingBits() error {
	if err := bw.WriteFlag(true); err != nil {
		return err
	}
	if r := bw.n % 8; r != 0 {
		return bw.WriteBits(0, 8-r)
	}
	return nil
}

// Len returns the number of bits written.
func (bw *bitWriter) Len() int { return bw.n }

// Bytes pads the final partial byte with zeros and returns the buffer.
func (bw *bitWriter) Bytes() []byte {
	skipped, err := bw.w.Align()
	if err == nil {
		bw.n += int(skipped)
	}
	return bw.buf.Bytes()
}

func TestBitWriterUe(t *testing.T) {
	tests := []struct {
		v    uint32
		want []byte
		n    int
	}{
		{v: 0, want: []byte{0x80}, n: 1},          // 1
		{v: 1, want: []byte{0x40}, n: 3},          // 010
		{v: 2, want: []byte{0x60}, n: 3},          // 011
		{v: 3, want: []byte{0x20}, n: 5},          // 00100
		{v: 7, want: []byte{0x10}, n: 7},          // 0001000
		{v: 254, want: []byte{0x01, 0xfe}, n: 15}, // 0000000 11111111
	}

	for i, test := range tests {
		bw := newBitWriter()
		require.NoError(t, bw.WriteUe(test.v))
		require.Equal(t, test.n, bw.Len(), "test %d", i)
		require.Equal(t, test.want, bw.Bytes(), "test %d", i)
	}
}

func TestBitWriterSe(t *testing.T) {
	bw := newBitWriter()
	for _, v := range []int32{0, 1, -1, 2, -2} {
		require.NoError(t, bw.WriteSe(v))
	}
	// 1 010 011 00100 00101
	require.Equal(t, []byte{0xa6, 0x42, 0x80}, bw.Bytes())
}

func TestBitWriterTrailingBits(t *testing.T) {
	bw := newBitWriter()
	require.NoError(t, bw.WriteBits(0x5, 3))
	require.NoError(t, bw.WriteTrailingBits())
	require.Equal(t, 8, bw.Len())
	require.Equal(t, []byte{0xb0}, bw.Bytes())

	bw = newBitWriter()
	require.NoError(t, bw.WriteBits(0xff, 4))
	require.NoError(t, bw.WriteBits(0, 4))
	require.Equal(t, []byte{0xf0}, bw.Bytes())
	require.Error(t, newBitWriter().WriteBits(0, 65))
}

// TestUeReference checks written codes against an independent Exp-Golomb
// reader and against syntaxReader.ue.
func TestUeReference(t *testing.T) {
	bw := newBitWriter()
	values := []uint32{0, 1, 5, 31, 32, 1000, 65535, 1<<20 + 3, 1<<30 - 1}
	for _, v := range values {
		require.NoError(t, bw.WriteUe(v))
	}
	buf := bw.Bytes()

	pos := 0
	r := newTestReader(buf)
	for _, want := range values {
		got, err := mcbits.ReadGolombUnsigned(buf, &pos)
		require.NoError(t, err)
		require.Equal(t, want, got)
		require.Equal(t, want, r.ue("value"))
	}
	require.NoError(t, r.err)
}
