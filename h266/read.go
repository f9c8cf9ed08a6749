package h266

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// DefaultChunkSize is the number of bytes a StreamReader asks for per read.
const DefaultChunkSize = 4096

var startCodePrefix = []byte{0x00, 0x00, 0x01}

// NALRange locates one NAL unit in an access unit. Start is the first byte
// after the start code and End is one past the last payload byte.
type NALRange struct {
	Start        int
	End          int
	StartCodeLen int // 3 or 4.
}

// findStartCode returns the position and length of the first start code at
// or after from, or -1 if there is none. A zero byte directly before a
// 00 00 01 prefix, and not before from, makes it a 4 byte code.
func findStartCode(buf []byte, from int) (pos, n int) {
	if from >= len(buf) {
		return -1, 0
	}
	i := bytes.Index(buf[from:], startCodePrefix)
	if i < 0 {
		return -1, 0
	}
	pos = from + i
	if i > 0 && buf[pos-1] == 0x00 {
		return pos - 1, 4
	}
	return pos, 3
}

// trimZeros returns end moved back over any zero bytes following start.
func trimZeros(buf []byte, start, end int) int {
	for end > start && buf[end-1] == 0x00 {
		end--
	}
	return end
}

// FindNALUnits splits an Annex B access unit into NAL unit ranges. Bytes
// before the first start code are ignored, trailing zero bytes of each unit
// are treated as stream padding and empty units are skipped. A buffer with no
// start code gives no ranges.
func FindNALUnits(buf []byte) []NALRange {
	var ranges []NALRange
	pos, n := findStartCode(buf, 0)
	for pos >= 0 {
		start := pos + n
		next, nextN := findStartCode(buf, start)
		end := next
		if next < 0 {
			end = len(buf)
		}
		end = trimZeros(buf, start, end)
		if end > start {
			ranges = append(ranges, NALRange{Start: start, End: end, StartCodeLen: n})
		}
		pos, n = next, nextN
	}
	return ranges
}

// StreamReader reads NAL units from an Annex B byte stream. Bytes are
// gathered in an AccessUnit, which bounds the size of a single NAL unit.
type StreamReader struct {
	src   io.Reader
	au    *AccessUnit
	chunk []byte

	// start is the offset of the current unit's payload, or -1 before a
	// start code is found. scan is where the next start code search begins.
	start int
	scan  int
	eof   bool
}

// NewStreamReader returns a StreamReader reading chunkSize bytes at a time
// from r. A single NAL unit may not exceed maxSize bytes; zero selects
// MaxCodedPictureSize.
func NewStreamReader(r io.Reader, chunkSize, maxSize int) *StreamReader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	au := NewAccessUnit()
	if maxSize > 0 {
		au.MaxSize = maxSize
	}
	return &StreamReader{src: r, au: au, chunk: make([]byte, chunkSize), start: -1}
}

// ReadNALUnit returns the next NAL unit, without its start code and with
// emulation prevention bytes still in place. The returned slice is owned by
// the caller. io.EOF is returned once the stream is exhausted.
func (s *StreamReader) ReadNALUnit() ([]byte, error) {
	for {
		buf := s.au.Bytes()

		if s.start < 0 {
			pos, n := findStartCode(buf, s.scan)
			if pos < 0 {
				if s.eof {
					s.au.Reset()
					return nil, io.EOF
				}
				// Keep enough to complete a start code split across reads.
				if drop := len(buf) - 3; drop > 0 {
					s.au.Discard(drop)
				}
				s.scan = 0
				if err := s.fill(); err != nil {
					return nil, err
				}
				continue
			}
			s.start = pos + n
			s.scan = s.start
		}

		next, _ := findStartCode(buf, s.scan)
		if next >= 0 {
			nal := s.take(buf, next)
			s.au.Discard(next)
			s.start, s.scan = -1, 0
			if nal == nil {
				continue
			}
			return nal, nil
		}

		if s.eof {
			nal := s.take(buf, len(buf))
			s.au.Reset()
			s.start, s.scan = -1, 0
			if nal == nil {
				return nil, io.EOF
			}
			return nal, nil
		}

		s.scan = len(buf) - 3
		if s.scan < s.start {
			s.scan = s.start
		}
		if err := s.fill(); err != nil {
			return nil, err
		}
	}
}

// take copies the unit between s.start and end, without trailing zero bytes.
// nil is returned for an empty unit.
func (s *StreamReader) take(buf []byte, end int) []byte {
	end = trimZeros(buf, s.start, end)
	if end <= s.start {
		return nil
	}
	return append([]byte(nil), buf[s.start:end]...)
}

// fill appends the next chunk of the stream to the access unit.
func (s *StreamReader) fill() error {
	n, err := s.src.Read(s.chunk)
	if n > 0 {
		if aerr := s.au.Append(s.chunk[:n]); aerr != nil {
			return errors.Wrap(aerr, "could not buffer NAL unit")
		}
	}
	switch {
	case err == io.EOF:
		s.eof = true
	case err != nil:
		return errors.Wrap(err, "could not read stream")
	}
	return nil
}
