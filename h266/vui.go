package h266

import (
	"github.com/ausocean/h266decode/h266/bits"
)

// Unspecified colour description values, used when none is signalled.
const (
	colourPrimariesUnspecified = 2
	transferUnspecified        = 2
	matrixCoeffsUnspecified    = 2
)

// Aspect ratio idc that signals an explicit sample aspect ratio.
const aspectRatioExtendedSAR = 255

// VUI holds vui_parameters(), H.274 section 7.
type VUI struct {
	ProgressiveSource        bool
	InterlacedSource         bool
	NonPackedConstraint      bool
	NonProjectedConstraint   bool
	AspectRatioInfoPresent   bool
	AspectRatioConstant      bool
	AspectRatioIDC           int
	SARWidth                 int
	SARHeight                int
	OverscanInfoPresent      bool
	OverscanAppropriate      bool
	ColourDescriptionPresent bool
	ColourPrimaries          int
	TransferCharacteristics  int
	MatrixCoeffs             int
	FullRange                bool
	ChromaLocInfoPresent     bool
	// Range 0 - 6
	ChromaSampleLocTypeFrame       int
	ChromaSampleLocTypeTopField    int
	ChromaSampleLocTypeBottomField int
}

// defaultVUI returns the values inferred when no VUI is present.
func defaultVUI() VUI {
	return VUI{
		ColourPrimaries:         colourPrimariesUnspecified,
		TransferCharacteristics: transferUnspecified,
		MatrixCoeffs:            matrixCoeffsUnspecified,
	}
}

// parseVUIPayload reads vui_payload() from its own byte range. Bits after
// vui_parameters() are extension data and are not interpreted.
func parseVUIPayload(payload []byte, opts SyntaxOptions) (VUI, error) {
	v := defaultVUI()
	r := newSyntaxReader(bits.NewBitReader(payload), opts)

	v.ProgressiveSource = r.flag("vui_progressive_source_flag")
	v.InterlacedSource = r.flag("vui_interlaced_source_flag")
	v.NonPackedConstraint = r.flag("vui_non_packed_constraint_flag")
	v.NonProjectedConstraint = r.flag("vui_non_projected_constraint_flag")

	v.AspectRatioInfoPresent = r.flag("vui_aspect_ratio_info_present_flag")
	if v.AspectRatioInfoPresent {
		v.AspectRatioConstant = r.flag("vui_aspect_ratio_constant_flag")
		v.AspectRatioIDC = int(r.code(8, "vui_aspect_ratio_idc"))
		if v.AspectRatioIDC == aspectRatioExtendedSAR {
			v.SARWidth = int(r.code(16, "vui_sar_width"))
			v.SARHeight = int(r.code(16, "vui_sar_height"))
		}
	}

	v.OverscanInfoPresent = r.flag("vui_overscan_info_present_flag")
	if v.OverscanInfoPresent {
		v.OverscanAppropriate = r.flag("vui_overscan_appropriate_flag")
	}

	v.ColourDescriptionPresent = r.flag("vui_colour_description_present_flag")
	if v.ColourDescriptionPresent {
		v.ColourPrimaries = int(r.code(8, "vui_colour_primaries"))
		v.TransferCharacteristics = int(r.code(8, "vui_transfer_characteristics"))
		v.MatrixCoeffs = int(r.code(8, "vui_matrix_coeffs"))
		v.FullRange = r.flag("vui_full_range_flag")
	}

	v.ChromaLocInfoPresent = r.flag("vui_chroma_loc_info_present_flag")
	if v.ChromaLocInfoPresent {
		if v.ProgressiveSource && !v.InterlacedSource {
			v.ChromaSampleLocTypeFrame = int(r.ueRange("vui_chroma_sample_loc_type_frame", 0, 6))
		} else {
			v.ChromaSampleLocTypeTopField = int(r.ueRange("vui_chroma_sample_loc_type_top_field", 0, 6))
			v.ChromaSampleLocTypeBottomField = int(r.ueRange("vui_chroma_sample_loc_type_bottom_field", 0, 6))
		}
	}
	return v, r.err
}
