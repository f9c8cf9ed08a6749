package h266

import "fmt"

// NALUnitType is the 5 bit nal_unit_type, as defined in table 7-1.
type NALUnitType uint8

// NAL unit types.
const (
	NALUnitCodedSliceTrail NALUnitType = iota
	NALUnitCodedSliceSTSA
	NALUnitCodedSliceRADL
	NALUnitCodedSliceRASL
	NALUnitReservedVCL4
	NALUnitReservedVCL5
	NALUnitReservedVCL6
	NALUnitCodedSliceIDRWRADL
	NALUnitCodedSliceIDRNLP
	NALUnitCodedSliceCRA
	NALUnitCodedSliceGDR
	NALUnitReservedIRAPVCL11
	NALUnitOPI
	NALUnitDCI
	NALUnitVPS
	NALUnitSPS
	NALUnitPPS
	NALUnitPrefixAPS
	NALUnitSuffixAPS
	NALUnitPH
	NALUnitAccessUnitDelimiter
	NALUnitEOS
	NALUnitEOB
	NALUnitPrefixSEI
	NALUnitSuffixSEI
	NALUnitFD
	NALUnitReservedNVCL26
	NALUnitReservedNVCL27
	NALUnitUnspecified28
	NALUnitUnspecified29
	NALUnitUnspecified30
	NALUnitUnspecified31
	NALUnitInvalid
)

var (
	// NALUnitTypeName describes the RBSP structure carried by each type.
	NALUnitTypeName = map[NALUnitType]string{
		// slice_layer_rbsp
		NALUnitCodedSliceTrail: "TRAIL",
		NALUnitCodedSliceSTSA:  "STSA",
		NALUnitCodedSliceRADL:  "RADL",
		NALUnitCodedSliceRASL:  "RASL",
		NALUnitReservedVCL4:    "RSV_VCL_4",
		NALUnitReservedVCL5:    "RSV_VCL_5",
		NALUnitReservedVCL6:    "RSV_VCL_6",
		// slice_layer_rbsp, IRAP
		NALUnitCodedSliceIDRWRADL: "IDR_W_RADL",
		NALUnitCodedSliceIDRNLP:   "IDR_N_LP",
		NALUnitCodedSliceCRA:      "CRA",
		NALUnitCodedSliceGDR:      "GDR",
		NALUnitReservedIRAPVCL11:  "RSV_IRAP_11",
		// operating_point_information_rbsp
		NALUnitOPI: "OPI",
		// decoding_capability_information_rbsp
		NALUnitDCI: "DCI",
		// video_parameter_set_rbsp
		NALUnitVPS: "VPS",
		// seq_parameter_set_rbsp
		NALUnitSPS: "SPS",
		// pic_parameter_set_rbsp
		NALUnitPPS: "PPS",
		// adaptation_parameter_set_rbsp
		NALUnitPrefixAPS: "PREFIX_APS",
		NALUnitSuffixAPS: "SUFFIX_APS",
		// picture_header_rbsp
		NALUnitPH: "PH",
		// access_unit_delimiter_rbsp
		NALUnitAccessUnitDelimiter: "AUD",
		// end_of_seq_rbsp
		NALUnitEOS: "EOS",
		// end_of_bitstream_rbsp
		NALUnitEOB: "EOB",
		// sei_rbsp
		NALUnitPrefixSEI: "PREFIX_SEI",
		NALUnitSuffixSEI: "SUFFIX_SEI",
		// filler_data_rbsp
		NALUnitFD:             "FD",
		NALUnitReservedNVCL26: "RSV_NVCL_26",
		NALUnitReservedNVCL27: "RSV_NVCL_27",
		NALUnitUnspecified28:  "UNSPEC_28",
		NALUnitUnspecified29:  "UNSPEC_29",
		NALUnitUnspecified30:  "UNSPEC_30",
		NALUnitUnspecified31:  "UNSPEC_31",
		NALUnitInvalid:        "INVALID",
	}
)

func (t NALUnitType) String() string {
	if s, ok := NALUnitTypeName[t]; ok {
		return s
	}
	return fmt.Sprintf("NALUnitType(%d)", uint8(t))
}

// IsVCL reports whether t carries slice data.
func (t NALUnitType) IsVCL() bool { return t <= NALUnitReservedIRAPVCL11 }

// IsIRAP reports whether t is in the IRAP range, IDR_W_RADL to RSV_IRAP_11.
func (t NALUnitType) IsIRAP() bool {
	return t >= NALUnitCodedSliceIDRWRADL && t <= NALUnitReservedIRAPVCL11
}

// IsSlice reports whether t is a defined coded slice type.
func (t NALUnitType) IsSlice() bool {
	switch t {
	case NALUnitCodedSliceTrail, NALUnitCodedSliceSTSA, NALUnitCodedSliceRADL,
		NALUnitCodedSliceRASL, NALUnitCodedSliceIDRWRADL, NALUnitCodedSliceIDRNLP,
		NALUnitCodedSliceCRA, NALUnitCodedSliceGDR:
		return true
	}
	return false
}

// IsReserved reports whether t is reserved or unspecified.
func (t NALUnitType) IsReserved() bool {
	switch {
	case t >= NALUnitReservedVCL4 && t <= NALUnitReservedVCL6,
		t == NALUnitReservedIRAPVCL11,
		t >= NALUnitReservedNVCL26 && t <= NALUnitUnspecified31:
		return true
	}
	return false
}
