package h266

import (
	"github.com/ausocean/h266decode/h266/bits"
	"github.com/pkg/errors"
)

// MaxCodedPictureSize is the default limit on the payload of an AccessUnit.
const MaxCodedPictureSize = 800000

// AccessUnit holds the Annex B bytes of one access unit along with its
// timing metadata. Payload has len UsedSize and a capacity equal to the
// allocated size.
type AccessUnit struct {
	Payload  []byte
	UsedSize int

	CTS      uint64 // Composition timestamp.
	DTS      uint64 // Decoding timestamp.
	CTSValid bool
	DTSValid bool
	RAP      bool // Random access point.

	// MaxSize bounds the payload capacity Append may grow to.
	MaxSize int
}

// NewAccessUnit returns an empty access unit with the default size limit.
func NewAccessUnit() *AccessUnit {
	return &AccessUnit{MaxSize: MaxCodedPictureSize}
}

// AllocPayload replaces the payload with an empty buffer of the given
// capacity.
func (au *AccessUnit) AllocPayload(size int) error {
	if size <= 0 {
		return errors.Wrapf(ErrAllocate, "size %d", size)
	}
	if au.MaxSize > 0 && size > au.MaxSize {
		return errors.Wrapf(ErrNotEnoughMem, "size %d exceeds limit %d", size, au.MaxSize)
	}
	au.Payload = make([]byte, 0, size)
	au.UsedSize = 0
	return nil
}

// Append adds b to the payload. The capacity is doubled until b fits, but
// never beyond MaxSize.
func (au *AccessUnit) Append(b []byte) error {
	need := au.UsedSize + len(b)
	if need > cap(au.Payload) {
		if au.MaxSize > 0 && need > au.MaxSize {
			return errors.Wrapf(ErrNotEnoughMem, "need %d bytes, limit %d", need, au.MaxSize)
		}
		size := cap(au.Payload)
		if size == 0 {
			size = 1024
		}
		for size < need {
			size *= 2
		}
		if au.MaxSize > 0 && size > au.MaxSize {
			size = au.MaxSize
		}
		p := make([]byte, au.UsedSize, size)
		copy(p, au.Payload[:au.UsedSize])
		au.Payload = p
	}
	au.Payload = append(au.Payload[:au.UsedSize], b...)
	au.UsedSize = need
	return nil
}

// Discard drops the first n bytes of the payload.
func (au *AccessUnit) Discard(n int) {
	if n >= au.UsedSize {
		au.UsedSize = 0
		au.Payload = au.Payload[:0]
		return
	}
	copy(au.Payload, au.Payload[n:au.UsedSize])
	au.UsedSize -= n
	au.Payload = au.Payload[:au.UsedSize]
}

// Bytes returns the used part of the payload.
func (au *AccessUnit) Bytes() []byte {
	return au.Payload[:au.UsedSize]
}

// Reset empties the payload, keeping its allocation, and clears the timing
// metadata.
func (au *AccessUnit) Reset() {
	au.Payload = au.Payload[:0]
	au.UsedSize = 0
	au.CTS, au.DTS = 0, 0
	au.CTSValid, au.DTSValid = false, false
	au.RAP = false
}

// SetTimestamps sets both timestamps and marks them valid.
func (au *AccessUnit) SetTimestamps(cts, dts uint64) {
	au.CTS, au.DTS = cts, dts
	au.CTSValid, au.DTSValid = true, true
}

// PeekNALUnitType returns the type of the first NAL unit in au without
// converting its payload.
func PeekNALUnitType(au *AccessUnit) (NALUnitType, error) {
	buf := au.Bytes()
	pos, n := findStartCode(buf, 0)
	if pos < 0 {
		return NALUnitInvalid, ErrNoStartCode
	}
	br := bits.NewBitReader(buf[pos+n:])
	if _, err := br.ReadBits(8); err != nil {
		return NALUnitInvalid, errors.Wrap(err, "could not read NAL unit header")
	}
	t, err := br.ReadBits(5)
	if err != nil {
		return NALUnitInvalid, errors.Wrap(err, "could not read nal_unit_type")
	}
	return NALUnitType(t), nil
}
