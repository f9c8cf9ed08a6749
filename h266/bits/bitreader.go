/*
DESCRIPTION
  bitreader.go provides a bit reader implementation that reads or peeks MSB
  first from an in-memory RBSP buffer through a 64 bit holding register.

LICENSE
  Copyright (C) 2017-2024 the Australian Ocean Lab (AusOcean)

  It is free software: you can redistribute it and/or modify them
  under the terms of the GNU General Public License as published by the
  Free Software Foundation, either version 3 of the License, or (at your
  option) any later version.

  It is distributed in the hope that it will be useful, but WITHOUT
  ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
  FITNESS FOR A PARTICULAR PURPOSE. See the GNU General Public License
  for more details.

  You should have received a copy of the GNU General Public License
  in gpl.txt.  If not, see http://www.gnu.org/licenses.
*/

// Package bits provides a bit reader for RBSP data and a bit writer for
// producing syntax elements.
package bits

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// MaxReadBits is the largest n accepted by ReadBits and PeekBits.
const MaxReadBits = 32

// ErrTooManyBits is returned when more than MaxReadBits are requested at once.
var ErrTooManyBits = errors.New("cannot read more than 32 bits at once")

// BitReader reads bits MSB first from a byte slice. Bytes are loaded into a
// 64 bit register eight at a time where possible.
type BitReader struct {
	buf []byte

	// idx is the index of the next byte to be loaded into held.
	idx int

	// held holds numHeld unread bits, left justified so the next bit to be
	// read is bit 63.
	held    uint64
	numHeld int
}

// NewBitReader returns a new BitReader reading from buf. buf is borrowed, not
// copied.
func NewBitReader(buf []byte) *BitReader {
	return &BitReader{buf: buf}
}

// Reset discards any state and reads from buf.
func (br *BitReader) Reset(buf []byte) {
	*br = BitReader{buf: buf}
}

// ReadBits reads n bits and returns them in the least-significant part of a
// uint32. The first bit read becomes the most significant bit of the result.
// For example, with a source as []byte{0x8f,0xe3} (1000 1111, 1110 0011), we
// would get the following results for consecutive reads with n values:
// n = 4, res = 0x8 (1000)
// n = 2, res = 0x3 (0011)
// n = 4, res = 0xf (1111)
// n = 6, res = 0x23 (0010 0011)
func (br *BitReader) ReadBits(n int) (uint32, error) {
	if n < 0 || n > MaxReadBits {
		return 0, ErrTooManyBits
	}

	if n <= br.numHeld {
		v := br.held >> uint(64-n)
		br.held <<= uint(n)
		br.numHeld -= n
		return uint32(v), nil
	}

	// Take what is left in the register, then refill for the rest.
	need := n - br.numHeld
	v := br.held >> uint(64-br.numHeld)
	if err := br.load(need); err != nil {
		return 0, err
	}
	v = v<<uint(need) | br.held>>uint(64-need)
	br.held <<= uint(need)
	br.numHeld -= need
	return uint32(v), nil
}

// load refills the empty register. The caller must have consumed all held
// bits. An aligned 8 byte window is loaded as one big endian word, otherwise
// the remaining bytes (at most 8) are loaded one at a time.
func (br *BitReader) load(need int) error {
	if br.idx+8 <= len(br.buf) && br.idx&7 == 0 {
		br.held = binary.BigEndian.Uint64(br.buf[br.idx:])
		br.idx += 8
		br.numHeld = 64
		return nil
	}

	n := len(br.buf) - br.idx
	if n*8 < need {
		return io.ErrUnexpectedEOF
	}
	if n > 8 {
		n = 8
	}
	var v uint64
	for _, b := range br.buf[br.idx : br.idx+n] {
		v = v<<8 | uint64(b)
	}
	br.held = v << uint(64-8*n)
	br.idx += n
	br.numHeld = 8 * n
	return nil
}

// PeekBits provides the next n bits without advancing. If fewer than n bits
// remain, the available bits are returned shifted up to width n with zeros in
// the low bits. io.ErrUnexpectedEOF is returned only if no bits remain.
// For example, with a source as []byte{0x8f,0xe3} (1000 1111, 1110 0011), we
// would get the following results for consecutive peeks with n values:
// n = 4, res = 0x8 (1000)
// n = 8, res = 0x8f (1000 1111)
// n = 16, res = 0x8fe3 (1000 1111, 1110 0011)
// n = 20, res = 0x8fe30 (1000 1111, 1110 0011, 0000)
func (br *BitReader) PeekBits(n int) (uint32, error) {
	if n < 0 || n > MaxReadBits {
		return 0, ErrTooManyBits
	}
	avail := n
	if left := br.BitsLeft(); left < avail {
		avail = left
	}
	if avail == 0 && n > 0 {
		return 0, io.ErrUnexpectedEOF
	}
	saved := *br
	v, err := br.ReadBits(avail)
	*br = saved
	if err != nil {
		return 0, err
	}
	return v << uint(n-avail), nil
}

// ReadFlag reads a single bit as a bool.
func (br *BitReader) ReadFlag() (bool, error) {
	b, err := br.ReadBits(1)
	return b == 1, err
}

// BitsLeft returns the number of unread bits.
func (br *BitReader) BitsLeft() int {
	return 8*(len(br.buf)-br.idx) + br.numHeld
}

// BitsUntilByteAligned returns the number of bits that must be read before
// the reader is on a byte boundary.
func (br *BitReader) BitsUntilByteAligned() int {
	return br.numHeld & 7
}

// IsByteAligned returns true if the next bit to be read starts a byte.
func (br *BitReader) IsByteAligned() bool {
	return br.BitsUntilByteAligned() == 0
}

// Offset returns the number of bits consumed so far.
func (br *BitReader) Offset() int {
	return 8*br.idx - br.numHeld
}
