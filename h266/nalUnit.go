package h266

import (
	"github.com/ausocean/h266decode/h266/bits"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MaxLayerID is the largest nuh_layer_id in use. Larger values are reserved.
const MaxLayerID = 55

// NALUnitHeader holds the fields of nal_unit_header().
type NALUnitHeader struct {
	ForbiddenZeroBit bool
	ReservedZeroBit  bool
	LayerID          int
	Type             NALUnitType
	TemporalID       int
}

// NALUnit is a NAL unit converted to RBSP with its header parsed.
type NALUnit struct {
	NALUnitHeader

	CTS      uint64
	DTS      uint64
	CTSValid bool
	DTSValid bool
	RAP      bool

	// RBSP is the converted payload including the two header bytes.
	RBSP []byte

	// br reads RBSP and is positioned after the header.
	br *bits.BitReader
}

// BitReader returns the reader positioned at the first bit after the header.
func (n *NALUnit) BitReader() *bits.BitReader { return n.br }

// ParseNALUnitHeader reads nal_unit_header() from br. Reserved bits that are
// not zero are logged. A layer id above MaxLayerID gives ErrMalformedHeader
// and the remaining checks give a *ParseError.
func ParseNALUnitHeader(br *bits.BitReader, log *zap.SugaredLogger) (NALUnitHeader, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	var h NALUnitHeader
	r := newSyntaxReader(br, SyntaxOptions{Log: log})

	h.ForbiddenZeroBit = r.flag("forbidden_zero_bit")
	r.warn(!h.ForbiddenZeroBit, "forbidden_zero_bit", 1, "forbidden_zero_bit not equal to 0")

	h.ReservedZeroBit = r.flag("nuh_reserved_zero_bit")
	r.warn(!h.ReservedZeroBit, "nuh_reserved_zero_bit", 1, "nuh_reserved_zero_bit not equal to 0")

	h.LayerID = int(r.code(6, "nuh_layer_id"))
	if r.err == nil && h.LayerID > MaxLayerID {
		return h, errors.Wrapf(ErrMalformedHeader, "nuh_layer_id %d", h.LayerID)
	}

	h.Type = NALUnitType(r.code(5, "nal_unit_type"))
	tidPlus1 := int(r.code(3, "nuh_temporal_id_plus1"))
	r.ensure(tidPlus1 != 0, "nuh_temporal_id_plus1", 0, "nuh_temporal_id_plus1 equal to 0")
	h.TemporalID = tidPlus1 - 1

	if h.Type.IsIRAP() {
		r.ensure(h.TemporalID == 0, "TemporalId", int64(h.TemporalID), "TemporalId of IRAP NAL unit not equal to 0")
	}
	if h.Type == NALUnitCodedSliceSTSA && h.LayerID == 0 {
		r.ensure(h.TemporalID != 0, "TemporalId", 0, "TemporalId of base layer STSA NAL unit equal to 0")
	}
	if r.err != nil {
		return h, r.err
	}
	return h, nil
}

// NewNALUnit converts raw, one NAL unit without its start code, to RBSP and
// parses its header. Whether trailing zero bytes are allowed depends on the
// type, which is taken from the raw header before conversion.
func NewNALUnit(raw []byte, log *zap.SugaredLogger) (*NALUnit, error) {
	if len(raw) < 2 {
		return nil, errors.WithStack(newParseError(0, "nal_unit_header", int64(len(raw)), "NAL unit shorter than its header"))
	}
	isVCL := NALUnitType(raw[1]>>3).IsVCL()
	rbsp, err := ConvertToRBSP(nil, raw, isVCL)
	if err != nil {
		return nil, errors.Wrap(err, "could not convert NAL unit to RBSP")
	}

	br := bits.NewBitReader(rbsp)
	h, err := ParseNALUnitHeader(br, log)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse NAL unit header")
	}
	return &NALUnit{NALUnitHeader: h, RBSP: rbsp, br: br}, nil
}
