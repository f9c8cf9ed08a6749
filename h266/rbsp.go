package h266

import (
	"github.com/pkg/errors"
)

// Errors returned by ConvertToRBSP.
var (
	ErrEmulationPrevention = errors.New("invalid emulation prevention sequence")
	ErrTrailingZeros       = errors.New("trailing zero bytes in non-VCL NAL unit")
)

// ConvertToRBSP removes emulation prevention bytes from the NAL unit bytes in
// src and writes the result to dst, which is reused if it has the capacity.
// For VCL units trailing zero bytes (cabac_zero_words) are stripped; for any
// other unit they are an error.
func ConvertToRBSP(dst, src []byte, isVCL bool) ([]byte, error) {
	if cap(dst) < len(src) {
		dst = make([]byte, 0, len(src))
	}
	dst = dst[:0]

	zeros := 0
	for i := 0; i < len(src); i++ {
		b := src[i]
		if zeros >= 2 && b < 0x03 {
			return dst, errors.Wrapf(ErrEmulationPrevention, "%d zero bytes followed by 0x%02x at offset %d", zeros, b, i)
		}
		if zeros == 2 && b == 0x03 {
			if i+1 < len(src) && src[i+1] > 0x03 {
				return dst, errors.Wrapf(ErrEmulationPrevention, "0x%02x after emulation prevention byte at offset %d", src[i+1], i)
			}
			zeros = 0
			continue
		}
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
		dst = append(dst, b)
	}

	n := len(dst)
	for n > 0 && dst[n-1] == 0 {
		n--
	}
	if n != len(dst) && !isVCL {
		return dst, errors.Wrapf(ErrTrailingZeros, "%d bytes", len(dst)-n)
	}
	return dst[:n], nil
}

// InsertEmulationPrevention returns rbsp with an emulation prevention byte
// inserted wherever two zero bytes are followed by a byte no greater than
// 0x03, and after a payload that ends in two zero bytes.
func InsertEmulationPrevention(rbsp []byte) []byte {
	out := make([]byte, 0, len(rbsp)+len(rbsp)/2+1)
	zeros := 0
	for _, b := range rbsp {
		if zeros == 2 && b <= 0x03 {
			out = append(out, 0x03)
			zeros = 0
		}
		out = append(out, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	if zeros == 2 {
		out = append(out, 0x03)
	}
	return out
}
