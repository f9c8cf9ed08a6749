package h266

import (
	mbits "math/bits"

	"github.com/ausocean/h266decode/h266/bits"
	"github.com/pkg/errors"
)

// ChromaFormat is sps_chroma_format_idc.
type ChromaFormat int

const (
	Chroma400 ChromaFormat = iota
	Chroma420
	Chroma422
	Chroma444
)

var chromaFormatName = [...]string{"4:0:0", "4:2:0", "4:2:2", "4:4:4"}

func (c ChromaFormat) String() string {
	if c >= 0 && int(c) < len(chromaFormatName) {
		return chromaFormatName[c]
	}
	return "invalid"
}

// SubWidthC and SubHeightC, table 2.
func (c ChromaFormat) subWidth() int {
	if c == Chroma420 || c == Chroma422 {
		return 2
	}
	return 1
}

func (c ChromaFormat) subHeight() int {
	if c == Chroma420 {
		return 2
	}
	return 1
}

// Indices into SPS.Partition.
const (
	PartitionIntraLuma = iota
	PartitionInter
	PartitionIntraChroma
)

// PartitionConstraints holds the block partitioning limits for one slice and
// channel type, in luma samples.
type PartitionConstraints struct {
	MinQTSize   int
	MaxMTTDepth int
	MaxBTSize   int
	MaxTTSize   int
}

// Window is a conformance window, in chroma sample units.
type Window struct {
	LeftOffset   int
	RightOffset  int
	TopOffset    int
	BottomOffset int
}

// Subpic holds the layout of one subpicture in units of CTUs.
type Subpic struct {
	CTUTopLeftX             int
	CTUTopLeftY             int
	Width                   int
	Height                  int
	TreatedAsPic            bool
	LoopFilterAcrossEnabled bool
	ID                      uint32
}

// ChromaQPTable holds one chroma QP mapping table as its pivot points.
type ChromaQPTable struct {
	// Range -26 - QpBdOffset to 36
	StartMinus26 int
	// Range 0 - 36 - StartMinus26
	NumPointsMinus1    int
	DeltaQPInValMinus1 []int
	DeltaQPDiffVal     []int

	// Derived pivot points, NumPointsMinus1 + 2 of each.
	QPInVal  []int
	QPOutVal []int
}

// RefPicEntry is one entry of a ref_pic_list_struct().
type RefPicEntry struct {
	InterLayer bool
	ShortTerm  bool
	// DeltaPOC is DeltaPocValSt for short term entries.
	DeltaPOC int
	POCLsbLT uint32
	ILRPIdx  int
}

// RefPicList holds ref_pic_list_struct(listIdx, rplsIdx), 7.3.10.
type RefPicList struct {
	// Range 0 - 29
	NumRefEntries int
	LTRPInHeader  bool
	Entries       []RefPicEntry
}

// LADF holds the luma adaptive deblocking filter parameters.
type LADF struct {
	// 2 bits
	NumIntervalsMinus2     int
	LowestIntervalQPOffset int
	QPOffset               []int
	DeltaThresholdMinus1   []int

	// Derived lower bound of each interval.
	IntervalLowerBound []int
}

// SPS holds seq_parameter_set_rbsp(), 7.3.2.4, and its derived variables.
// A new SPS is allocated for every SPS NAL unit and is not modified once
// parsed.
// Range is always inclusive.
type SPS struct {
	// 4 bits
	ID    int
	VPSID int
	// Range 0 - 6; 3 bits
	MaxSublayersMinus1 int
	ChromaFormatIDC    ChromaFormat
	// Range 0 - 2; 2 bits
	Log2CTUSizeMinus5 int

	PTLDPBHRDParamsPresent bool
	ProfileTierLevel       ProfileTierLevel

	GDREnabled              bool
	RefPicResamplingEnabled bool
	ResChangeInCLVSAllowed  bool

	PicWidthMaxInLumaSamples  int
	PicHeightMaxInLumaSamples int

	ConformanceWindowPresent bool
	ConformanceWindow        Window

	SubpicInfoPresent bool
	// Range 0 - 599
	NumSubpicsMinus1                   int
	IndependentSubpics                 bool
	SubpicSameSize                     bool
	Subpics                            []Subpic
	SubpicIDLenMinus1                  int
	SubpicIDMappingExplicitlySignalled bool
	SubpicIDMappingPresent             bool

	// Range 0 - 8
	BitDepthMinus8           int
	EntropyCodingSyncEnabled bool
	EntryPointOffsetsPresent bool
	// Range 0 - 12; 4 bits
	Log2MaxPicOrderCntLsbMinus4 int
	POCMsbCycleFlag             bool
	POCMsbCycleLenMinus1        int

	// Range 0 - 2; 2 bits
	NumExtraPHBytes   int
	ExtraPHBitPresent []bool
	// Range 0 - 2; 2 bits
	NumExtraSHBytes   int
	ExtraSHBitPresent []bool

	SublayerDPBParams bool
	DPB               DPBParameters

	Log2MinLumaCodingBlockSizeMinus2    int
	PartitionConstraintsOverrideEnabled bool
	QTBTTDualTreeIntra                  bool
	// Indexed by PartitionIntraLuma, PartitionInter and PartitionIntraChroma.
	Partition [3]PartitionConstraints

	MaxLumaTransformSize64         bool
	TransformSkipEnabled           bool
	Log2TransformSkipMaxSizeMinus2 int
	BDPCMEnabled                   bool
	MTSEnabled                     bool
	ExplicitMTSIntraEnabled        bool
	ExplicitMTSInterEnabled        bool
	LFNSTEnabled                   bool

	JointCbCrEnabled     bool
	SameQPTableForChroma bool
	ChromaQPTables       []ChromaQPTable

	SAOEnabled   bool
	ALFEnabled   bool
	CCALFEnabled bool
	LMCSEnabled  bool

	WeightedPred                bool
	WeightedBipred              bool
	LongTermRefPics             bool
	InterLayerPredictionEnabled bool
	IDRRPLPresent               bool
	RPL1SameAsRPL0              bool
	// Range 0 - 64
	NumRefPicLists [2]int
	RefPicLists    [2][]RefPicList

	RefWraparoundEnabled   bool
	TemporalMVPEnabled     bool
	SbTMVPEnabled          bool
	AMVREnabled            bool
	BDOFEnabled            bool
	BDOFControlPresentInPH bool
	SMVDEnabled            bool
	DMVREnabled            bool
	DMVRControlPresentInPH bool
	MMVDEnabled            bool
	MMVDFullpelOnly        bool
	// Range 0 - 5
	SixMinusMaxNumMergeCand           int
	SBTEnabled                        bool
	AffineEnabled                     bool
	FiveMinusMaxNumSubblockMergeCand  int
	SixParamAffineEnabled             bool
	AffineAMVREnabled                 bool
	AffinePROFEnabled                 bool
	PROFControlPresentInPH            bool
	BCWEnabled                        bool
	CIIPEnabled                       bool
	GPMEnabled                        bool
	MaxNumMergeCandMinusMaxNumGPMCand int
	Log2ParallelMergeLevelMinus2      int

	ISPEnabled                 bool
	MRLEnabled                 bool
	MIPEnabled                 bool
	CCLMEnabled                bool
	ChromaHorizontalCollocated bool
	ChromaVerticalCollocated   bool
	PaletteEnabled             bool
	ACTEnabled                 bool
	// Range 0 - 8
	MinQPPrimeTS int
	IBCEnabled   bool
	// Range 0 - 5
	SixMinusMaxNumIBCMergeCand int

	LADFEnabled bool
	LADF        LADF

	ExplicitScalingListEnabled                     bool
	ScalingMatrixForLFNSTDisabled                  bool
	ScalingMatrixForAlternativeColourSpaceDisabled bool
	ScalingMatrixDesignatedColourSpace             bool
	DepQuantEnabled                                bool
	SignDataHidingEnabled                          bool

	VirtualBoundariesEnabled bool
	VirtualBoundariesPresent bool
	// In luma samples.
	VirtualBoundaryPosX []int
	VirtualBoundaryPosY []int

	TimingHRDParamsPresent   bool
	GeneralHRD               GeneralTimingHRD
	SublayerCPBParamsPresent bool
	OLSHRD                   OLSTimingHRD

	FieldSeq             bool
	VUIParametersPresent bool
	// Range 1 - 1024
	VUIPayloadSize int
	VUI            VUI

	ExtensionPresent   bool
	ExtensionDataFlags int

	// Derived variables.
	CtbLog2SizeY            int
	CtbSizeY                int
	MinCbLog2SizeY          int
	MinCbSizeY              int
	SubWidthC               int
	SubHeightC              int
	BitDepth                int
	QpBdOffset              int
	Log2MaxTbSize           int
	MaxNumMergeCand         int
	MaxNumGPMMergeCand      int
	MaxNumSubblockMergeCand int
	MaxNumIBCMergeCand      int
}

// PicWidthInCtbsY returns the maximum picture width in CTUs.
func (s *SPS) PicWidthInCtbsY() int {
	return (s.PicWidthMaxInLumaSamples + s.CtbSizeY - 1) / s.CtbSizeY
}

// PicHeightInCtbsY returns the maximum picture height in CTUs.
func (s *SPS) PicHeightInCtbsY() int {
	return (s.PicHeightMaxInLumaSamples + s.CtbSizeY - 1) / s.CtbSizeY
}

// ceilLog2 returns Ceil(Log2(n)) for n >= 1.
func ceilLog2(n int) int {
	if n <= 1 {
		return 0
	}
	return mbits.Len(uint(n - 1))
}

func imin(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func imax(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ParseSPS reads seq_parameter_set_rbsp() from br, which must be positioned
// after the NAL unit header. Any range or consistency violation gives a
// *ParseError and no SPS.
func ParseSPS(br *bits.BitReader, opts SyntaxOptions) (*SPS, error) {
	r := newSyntaxReader(br, opts)
	s := &SPS{VUI: defaultVUI()}

	s.ID = int(r.code(4, "sps_seq_parameter_set_id"))
	s.VPSID = int(r.code(4, "sps_video_parameter_set_id"))
	s.MaxSublayersMinus1 = int(r.codeRange(3, "sps_max_sublayers_minus1", 0, MaxSublayers-1))
	s.ChromaFormatIDC = ChromaFormat(r.code(2, "sps_chroma_format_idc"))
	s.Log2CTUSizeMinus5 = int(r.codeRange(2, "sps_log2_ctu_size_minus5", 0, 2))
	s.CtbLog2SizeY = s.Log2CTUSizeMinus5 + 5
	s.CtbSizeY = 1 << uint(s.CtbLog2SizeY)

	s.PTLDPBHRDParamsPresent = r.flag("sps_ptl_dpb_hrd_params_present_flag")
	r.ensure(s.VPSID != 0 || s.PTLDPBHRDParamsPresent, "sps_ptl_dpb_hrd_params_present_flag", 0,
		"sps_ptl_dpb_hrd_params_present_flag equal to 0 when sps_video_parameter_set_id is 0")
	if s.PTLDPBHRDParamsPresent {
		s.ProfileTierLevel = parseProfileTierLevel(r, true, s.MaxSublayersMinus1)
	}

	s.GDREnabled = r.flag("sps_gdr_enabled_flag")
	s.RefPicResamplingEnabled = r.flag("sps_ref_pic_resampling_enabled_flag")
	if s.RefPicResamplingEnabled {
		s.ResChangeInCLVSAllowed = r.flag("sps_res_change_in_clvs_allowed_flag")
	}

	s.PicWidthMaxInLumaSamples = int(r.ue("sps_pic_width_max_in_luma_samples"))
	s.PicHeightMaxInLumaSamples = int(r.ue("sps_pic_height_max_in_luma_samples"))
	s.SubWidthC = s.ChromaFormatIDC.subWidth()
	s.SubHeightC = s.ChromaFormatIDC.subHeight()

	s.ConformanceWindowPresent = r.flag("sps_conformance_window_flag")
	if s.ConformanceWindowPresent {
		w := &s.ConformanceWindow
		w.LeftOffset = int(r.ue("sps_conf_win_left_offset"))
		w.RightOffset = int(r.ue("sps_conf_win_right_offset"))
		w.TopOffset = int(r.ue("sps_conf_win_top_offset"))
		w.BottomOffset = int(r.ue("sps_conf_win_bottom_offset"))
		horiz := int64(s.SubWidthC) * (int64(w.LeftOffset) + int64(w.RightOffset))
		r.ensure(horiz < int64(s.PicWidthMaxInLumaSamples), "sps_conf_win_left_offset", horiz,
			"SubWidthC * ( sps_conf_win_left_offset + sps_conf_win_right_offset ) not less than sps_pic_width_max_in_luma_samples")
		vert := int64(s.SubHeightC) * (int64(w.TopOffset) + int64(w.BottomOffset))
		r.ensure(vert < int64(s.PicHeightMaxInLumaSamples), "sps_conf_win_top_offset", vert,
			"SubHeightC * ( sps_conf_win_top_offset + sps_conf_win_bottom_offset ) not less than sps_pic_height_max_in_luma_samples")
	}

	s.SubpicInfoPresent = r.flag("sps_subpic_info_present_flag")
	r.ensure(!(s.ResChangeInCLVSAllowed && s.SubpicInfoPresent), "sps_subpic_info_present_flag", 1,
		"sps_subpic_info_present_flag equal to 1 when sps_res_change_in_clvs_allowed_flag is 1")
	if r.err != nil {
		return nil, errors.Wrap(r.err, "could not parse SPS")
	}
	parseSubpicInfo(r, s)

	s.BitDepthMinus8 = int(r.ueRange("sps_bitdepth_minus8", 0, 8))
	s.BitDepth = 8 + s.BitDepthMinus8
	s.QpBdOffset = 6 * s.BitDepthMinus8
	s.EntropyCodingSyncEnabled = r.flag("sps_entropy_coding_sync_enabled_flag")
	s.EntryPointOffsetsPresent = r.flag("sps_entry_point_offsets_present_flag")
	s.Log2MaxPicOrderCntLsbMinus4 = int(r.codeRange(4, "sps_log2_max_pic_order_cnt_lsb_minus4", 0, 12))
	s.POCMsbCycleFlag = r.flag("sps_poc_msb_cycle_flag")
	if s.POCMsbCycleFlag {
		s.POCMsbCycleLenMinus1 = int(r.ueRange("sps_poc_msb_cycle_len_minus1", 0, int64(32-s.Log2MaxPicOrderCntLsbMinus4-5)))
	}

	// Reserved for future use.
	s.NumExtraPHBytes = int(r.codeRange(2, "sps_num_extra_ph_bytes", 0, 2))
	for i := 0; i < s.NumExtraPHBytes*8; i++ {
		s.ExtraPHBitPresent = append(s.ExtraPHBitPresent, r.flag("sps_extra_ph_bit_present_flag"))
	}
	s.NumExtraSHBytes = int(r.codeRange(2, "sps_num_extra_sh_bytes", 0, 2))
	for i := 0; i < s.NumExtraSHBytes*8; i++ {
		s.ExtraSHBitPresent = append(s.ExtraSHBitPresent, r.flag("sps_extra_sh_bit_present_flag"))
	}

	if s.PTLDPBHRDParamsPresent {
		if s.MaxSublayersMinus1 > 0 {
			s.SublayerDPBParams = r.flag("sps_sublayer_dpb_params_flag")
		}
		s.DPB = parseDPBParameters(r, s.MaxSublayersMinus1, s.SublayerDPBParams)
	}

	parsePartitioning(r, s)
	parseTransformTools(r, s)
	if s.ChromaFormatIDC != Chroma400 {
		s.JointCbCrEnabled = r.flag("sps_joint_cbcr_enabled_flag")
		s.SameQPTableForChroma = r.flag("sps_same_qp_table_for_chroma_flag")
		parseChromaQPTables(r, s)
	}

	s.SAOEnabled = r.flag("sps_sao_enabled_flag")
	s.ALFEnabled = r.flag("sps_alf_enabled_flag")
	if s.ALFEnabled && s.ChromaFormatIDC != Chroma400 {
		s.CCALFEnabled = r.flag("sps_ccalf_enabled_flag")
	}
	s.LMCSEnabled = r.flag("sps_lmcs_enable_flag")
	s.WeightedPred = r.flag("sps_weighted_pred_flag")
	s.WeightedBipred = r.flag("sps_weighted_bipred_flag")
	s.LongTermRefPics = r.flag("sps_long_term_ref_pics_flag")
	if s.VPSID > 0 {
		s.InterLayerPredictionEnabled = r.flag("sps_inter_layer_prediction_enabled_flag")
	}
	s.IDRRPLPresent = r.flag("sps_idr_rpl_present_flag")
	s.RPL1SameAsRPL0 = r.flag("sps_rpl1_same_as_rpl0_flag")
	parseRefPicLists(r, s)

	parseInterTools(r, s)
	parseIntraTools(r, s)
	if r.err != nil {
		return nil, errors.Wrap(r.err, "could not parse SPS")
	}

	s.LADFEnabled = r.flag("sps_ladf_enabled_flag")
	if s.LADFEnabled {
		s.LADF = parseLADF(r, s.BitDepth)
	}

	s.ExplicitScalingListEnabled = r.flag("sps_explicit_scaling_list_enabled_flag")
	if s.LFNSTEnabled && s.ExplicitScalingListEnabled {
		s.ScalingMatrixForLFNSTDisabled = r.flag("sps_scaling_matrix_for_lfnst_disabled_flag")
	}
	if s.ACTEnabled && s.ExplicitScalingListEnabled {
		s.ScalingMatrixForAlternativeColourSpaceDisabled = r.flag("sps_scaling_matrix_for_alternative_colour_space_disabled_flag")
	}
	if s.ScalingMatrixForAlternativeColourSpaceDisabled {
		s.ScalingMatrixDesignatedColourSpace = r.flag("sps_scaling_matrix_designated_colour_space_flag")
	}
	s.DepQuantEnabled = r.flag("sps_dep_quant_enabled_flag")
	s.SignDataHidingEnabled = r.flag("sps_sign_data_hiding_enabled_flag")

	parseVirtualBoundaries(r, s)

	if s.PTLDPBHRDParamsPresent {
		s.TimingHRDParamsPresent = r.flag("sps_timing_hrd_params_present_flag")
		if s.TimingHRDParamsPresent {
			s.GeneralHRD = parseGeneralTimingHRD(r)
			if s.MaxSublayersMinus1 > 0 {
				s.SublayerCPBParamsPresent = r.flag("sps_sublayer_cpb_params_present_flag")
			}
			first := s.MaxSublayersMinus1
			if s.SublayerCPBParamsPresent {
				first = 0
			}
			s.OLSHRD = parseOLSTimingHRD(r, &s.GeneralHRD, first, s.MaxSublayersMinus1)
		}
	}

	s.FieldSeq = r.flag("sps_field_seq_flag")
	s.VUIParametersPresent = r.flag("sps_vui_parameters_present_flag")
	if s.VUIParametersPresent {
		s.VUIPayloadSize = int(r.ueRange("sps_vui_payload_size_minus1", 0, 1023)) + 1
		r.byteAlign("sps_vui_alignment_zero_bit")
		if r.err == nil {
			r.ensure(s.VUIPayloadSize*8 <= r.br.BitsLeft(), "sps_vui_payload_size_minus1", int64(s.VUIPayloadSize-1),
				"VUI payload extends past the end of the RBSP")
		}
		var payload []byte
		if r.err == nil {
			payload = make([]byte, 0, s.VUIPayloadSize)
		}
		for i := 0; i < s.VUIPayloadSize && r.err == nil; i++ {
			payload = append(payload, byte(r.code(8, "vui_payload")))
		}
		if r.err == nil {
			vui, err := parseVUIPayload(payload, SyntaxOptions{Log: r.log, Strict: r.strict})
			if err != nil {
				r.fail(errors.Wrap(err, "could not parse VUI"))
			}
			s.VUI = vui
		}
	}

	s.ExtensionPresent = r.flag("sps_extension_present_flag")
	if s.ExtensionPresent {
		for r.moreRBSPData() {
			r.flag("sps_extension_data_flag")
			s.ExtensionDataFlags++
		}
	}

	r.rbspTrailingBits()
	if r.err != nil {
		return nil, errors.Wrap(r.err, "could not parse SPS")
	}
	return s, nil
}

// parseSubpicInfo reads the subpicture layout, or infers a single subpicture
// covering the picture when none is signalled.
func parseSubpicInfo(r *syntaxReader, s *SPS) {
	tmpWidthVal := s.PicWidthInCtbsY()
	tmpHeightVal := s.PicHeightInCtbsY()
	s.IndependentSubpics = true

	if !s.SubpicInfoPresent {
		s.Subpics = []Subpic{{Width: tmpWidthVal, Height: tmpHeightVal, TreatedAsPic: true}}
		return
	}

	s.NumSubpicsMinus1 = int(r.ueRange("sps_num_subpics_minus1", 0, 599))
	r.ensure(int64(s.NumSubpicsMinus1)+1 <= int64(tmpWidthVal)*int64(tmpHeightVal), "sps_num_subpics_minus1",
		int64(s.NumSubpicsMinus1), "more subpictures than CTUs")
	if r.err != nil {
		return
	}
	n := s.NumSubpicsMinus1 + 1
	s.Subpics = make([]Subpic, n)

	if s.NumSubpicsMinus1 == 0 {
		s.Subpics[0] = Subpic{Width: tmpWidthVal, Height: tmpHeightVal, TreatedAsPic: true}
	} else {
		s.IndependentSubpics = r.flag("sps_independent_subpics_flag")
		s.SubpicSameSize = r.flag("sps_subpic_same_size_flag")

		xLen := ceilLog2(tmpWidthVal)
		yLen := ceilLog2(tmpHeightVal)
		w := &s.ConformanceWindow
		for i := 0; i < n && r.err == nil; i++ {
			sp := &s.Subpics[i]
			if !s.SubpicSameSize || i == 0 {
				if i > 0 && s.PicWidthMaxInLumaSamples > s.CtbSizeY {
					sp.CTUTopLeftX = int(r.code(xLen, "sps_subpic_ctu_top_left_x"))
				}
				if i > 0 && s.PicHeightMaxInLumaSamples > s.CtbSizeY {
					sp.CTUTopLeftY = int(r.code(yLen, "sps_subpic_ctu_top_left_y"))
				}
				if i < s.NumSubpicsMinus1 && s.PicWidthMaxInLumaSamples > s.CtbSizeY {
					sp.Width = int(r.code(xLen, "sps_subpic_width_minus1")) + 1
				} else {
					sp.Width = tmpWidthVal - sp.CTUTopLeftX
				}
				if i < s.NumSubpicsMinus1 && s.PicHeightMaxInLumaSamples > s.CtbSizeY {
					sp.Height = int(r.code(yLen, "sps_subpic_height_minus1")) + 1
				} else {
					sp.Height = tmpHeightVal - sp.CTUTopLeftY
				}
			} else {
				w0, h0 := s.Subpics[0].Width, s.Subpics[0].Height
				cols := tmpWidthVal / w0
				r.ensure(cols*tmpHeightVal/h0-1 == s.NumSubpicsMinus1, "sps_num_subpics_minus1", int64(s.NumSubpicsMinus1),
					"numSubpicCols * tmpHeightVal / ( sps_subpic_height_minus1[ 0 ] + 1 ) - 1 not equal to sps_num_subpics_minus1")
				r.ensure(tmpWidthVal%w0 == 0, "sps_subpic_width_minus1", int64(w0-1),
					"tmpWidthVal not a multiple of sps_subpic_width_minus1[ 0 ] + 1")
				r.ensure(tmpHeightVal%h0 == 0, "sps_subpic_height_minus1", int64(h0-1),
					"tmpHeightVal not a multiple of sps_subpic_height_minus1[ 0 ] + 1")
				if r.err != nil {
					return
				}
				sp.CTUTopLeftX = (i % cols) * w0
				sp.CTUTopLeftY = (i / cols) * h0
				sp.Width, sp.Height = w0, h0
			}

			r.ensure(sp.Width > 0 && sp.CTUTopLeftX+sp.Width <= tmpWidthVal, "sps_subpic_width_minus1", int64(sp.Width-1),
				"subpicture extends past the right picture boundary")
			r.ensure(sp.Height > 0 && sp.CTUTopLeftY+sp.Height <= tmpHeightVal, "sps_subpic_height_minus1", int64(sp.Height-1),
				"subpicture extends past the bottom picture boundary")
			r.ensure(sp.CTUTopLeftX*s.CtbSizeY < s.PicWidthMaxInLumaSamples-w.RightOffset*s.SubWidthC,
				"sps_subpic_ctu_top_left_x", int64(sp.CTUTopLeftX),
				"sps_subpic_ctu_top_left_x * CtbSizeY not less than sps_pic_width_max_in_luma_samples - sps_conf_win_right_offset * SubWidthC")
			r.ensure((sp.CTUTopLeftX+sp.Width)*s.CtbSizeY > w.LeftOffset*s.SubWidthC,
				"sps_subpic_width_minus1", int64(sp.Width-1),
				"( sps_subpic_ctu_top_left_x + sps_subpic_width_minus1 + 1 ) * CtbSizeY not greater than sps_conf_win_left_offset * SubWidthC")
			r.ensure(sp.CTUTopLeftY*s.CtbSizeY < s.PicHeightMaxInLumaSamples-w.BottomOffset*s.SubHeightC,
				"sps_subpic_ctu_top_left_y", int64(sp.CTUTopLeftY),
				"sps_subpic_ctu_top_left_y * CtbSizeY not less than sps_pic_height_max_in_luma_samples - sps_conf_win_bottom_offset * SubHeightC")
			r.ensure((sp.CTUTopLeftY+sp.Height)*s.CtbSizeY > w.TopOffset*s.SubHeightC,
				"sps_subpic_height_minus1", int64(sp.Height-1),
				"( sps_subpic_ctu_top_left_y + sps_subpic_height_minus1 + 1 ) * CtbSizeY not greater than sps_conf_win_top_offset * SubHeightC")

			if !s.IndependentSubpics {
				sp.TreatedAsPic = r.flag("sps_subpic_treated_as_pic_flag")
				sp.LoopFilterAcrossEnabled = r.flag("sps_loop_filter_across_subpic_enabled_flag")
			} else {
				sp.TreatedAsPic = true
			}
		}
	}

	s.SubpicIDLenMinus1 = int(r.ueRange("sps_subpic_id_len_minus1", 0, 15))
	r.ensure(1<<uint(s.SubpicIDLenMinus1+1) >= n, "sps_subpic_id_len_minus1", int64(s.SubpicIDLenMinus1),
		"1 << ( sps_subpic_id_len_minus1 + 1 ) less than sps_num_subpics_minus1 + 1")
	s.SubpicIDMappingExplicitlySignalled = r.flag("sps_subpic_id_mapping_explicitly_signalled_flag")
	if s.SubpicIDMappingExplicitlySignalled {
		s.SubpicIDMappingPresent = r.flag("sps_subpic_id_mapping_present_flag")
	}
	if s.SubpicIDMappingPresent {
		seen := make(map[uint32]bool, n)
		for i := 0; i < n && r.err == nil; i++ {
			id := r.code(s.SubpicIDLenMinus1+1, "sps_subpic_id")
			r.ensure(!seen[id], "sps_subpic_id", int64(id), "sps_subpic_id not unique")
			seen[id] = true
			s.Subpics[i].ID = id
		}
		return
	}
	for i := range s.Subpics {
		s.Subpics[i].ID = uint32(i)
	}
}

// parsePartitioning reads the coding block size and the partition
// constraints for intra luma, intra chroma and inter slices.
func parsePartitioning(r *syntaxReader, s *SPS) {
	ctbLog2 := s.CtbLog2SizeY
	s.Log2MinLumaCodingBlockSizeMinus2 = int(r.ueRange("sps_log2_min_luma_coding_block_size_minus2", 0, int64(imin(4, s.Log2CTUSizeMinus5+3))))
	s.MinCbLog2SizeY = s.Log2MinLumaCodingBlockSizeMinus2 + 2
	s.MinCbSizeY = 1 << uint(s.MinCbLog2SizeY)
	minCbLog2 := s.MinCbLog2SizeY
	r.ensure(s.MinCbSizeY <= imin(64, s.CtbSizeY), "MinCbSizeY", int64(s.MinCbSizeY), "MinCbSizeY greater than Min( 64, CtbSizeY )")

	m := int64(imax(8, s.MinCbSizeY))
	r.ensure(s.PicWidthMaxInLumaSamples != 0 && int64(s.PicWidthMaxInLumaSamples)%m == 0,
		"sps_pic_width_max_in_luma_samples", int64(s.PicWidthMaxInLumaSamples),
		"sps_pic_width_max_in_luma_samples equal to 0 or not a multiple of Max( 8, MinCbSizeY )")
	r.ensure(s.PicHeightMaxInLumaSamples != 0 && int64(s.PicHeightMaxInLumaSamples)%m == 0,
		"sps_pic_height_max_in_luma_samples", int64(s.PicHeightMaxInLumaSamples),
		"sps_pic_height_max_in_luma_samples equal to 0 or not a multiple of Max( 8, MinCbSizeY )")

	s.PartitionConstraintsOverrideEnabled = r.flag("sps_partition_constraints_override_enabled_flag")

	// Intra luma.
	minQtLog2IntraY := int(r.ueRange("sps_log2_diff_min_qt_min_cb_intra_slice_luma", 0, int64(imin(6, ctbLog2)-minCbLog2))) + minCbLog2
	luma := &s.Partition[PartitionIntraLuma]
	luma.MaxMTTDepth = int(r.ueRange("sps_max_mtt_hierarchy_depth_intra_slice_luma", 0, int64(2*(ctbLog2-minCbLog2))))
	luma.MinQTSize = 1 << uint(minQtLog2IntraY)
	luma.MaxBTSize, luma.MaxTTSize = luma.MinQTSize, luma.MinQTSize
	diffMaxBTIntraY := 0
	if luma.MaxMTTDepth != 0 {
		diffMaxBTIntraY = int(r.ueRange("sps_log2_diff_max_bt_min_qt_intra_slice_luma", 0, int64(ctbLog2-minQtLog2IntraY)))
		luma.MaxBTSize <<= uint(diffMaxBTIntraY)
		luma.MaxTTSize <<= uint(r.ueRange("sps_log2_diff_max_tt_min_qt_intra_slice_luma", 0, int64(imin(6, ctbLog2)-minQtLog2IntraY)))
	}
	r.ensure(luma.MaxTTSize <= 64, "sps_log2_diff_max_tt_min_qt_intra_slice_luma", int64(luma.MaxTTSize), "MaxTtSizeY greater than 64")

	if s.ChromaFormatIDC != Chroma400 {
		s.QTBTTDualTreeIntra = r.flag("sps_qtbtt_dual_tree_intra_flag")
		// Known conformance streams break this one, so it is only warned by
		// default.
		r.warn(!(diffMaxBTIntraY > imin(6, ctbLog2)-minQtLog2IntraY && s.QTBTTDualTreeIntra),
			"sps_qtbtt_dual_tree_intra_flag", 1,
			"sps_qtbtt_dual_tree_intra_flag equal to 1 when sps_log2_diff_max_bt_min_qt_intra_slice_luma is greater than Min( 6, CtbLog2SizeY ) - MinQtLog2SizeIntraY")
	}

	// Intra chroma, only with a separate chroma tree.
	if s.QTBTTDualTreeIntra {
		minQtLog2IntraC := int(r.ueRange("sps_log2_diff_min_qt_min_cb_intra_slice_chroma", 0, int64(imin(6, ctbLog2)-minCbLog2))) + minCbLog2
		chroma := &s.Partition[PartitionIntraChroma]
		chroma.MaxMTTDepth = int(r.ueRange("sps_max_mtt_hierarchy_depth_intra_slice_chroma", 0, int64(2*(ctbLog2-minCbLog2))))
		chroma.MinQTSize = 1 << uint(minQtLog2IntraC)
		chroma.MaxBTSize, chroma.MaxTTSize = chroma.MinQTSize, chroma.MinQTSize
		if chroma.MaxMTTDepth != 0 {
			chroma.MaxBTSize <<= uint(r.ueRange("sps_log2_diff_max_bt_min_qt_intra_slice_chroma", 0, int64(imin(6, ctbLog2)-minQtLog2IntraC)))
			chroma.MaxTTSize <<= uint(r.ueRange("sps_log2_diff_max_tt_min_qt_intra_slice_chroma", 0, int64(imin(6, ctbLog2)-minQtLog2IntraC)))
			r.ensure(chroma.MaxTTSize <= 64, "sps_log2_diff_max_tt_min_qt_intra_slice_chroma", int64(chroma.MaxTTSize), "MaxTtSizeC greater than 64")
			r.ensure(chroma.MaxBTSize <= 64, "sps_log2_diff_max_bt_min_qt_intra_slice_chroma", int64(chroma.MaxBTSize), "MaxBtSizeC greater than 64")
		}
	}

	// Inter.
	minQtLog2Inter := int(r.ueRange("sps_log2_diff_min_qt_min_cb_inter_slice", 0, int64(imin(6, ctbLog2)-minCbLog2))) + minCbLog2
	inter := &s.Partition[PartitionInter]
	inter.MaxMTTDepth = int(r.ueRange("sps_max_mtt_hierarchy_depth_inter_slice", 0, int64(2*(ctbLog2-minCbLog2))))
	inter.MinQTSize = 1 << uint(minQtLog2Inter)
	inter.MaxBTSize, inter.MaxTTSize = inter.MinQTSize, inter.MinQTSize
	if inter.MaxMTTDepth != 0 {
		inter.MaxBTSize <<= uint(r.ueRange("sps_log2_diff_max_bt_min_qt_inter_slice", 0, int64(ctbLog2-minQtLog2Inter)))
		inter.MaxTTSize <<= uint(r.ueRange("sps_log2_diff_max_tt_min_qt_inter_slice", 0, int64(imin(6, ctbLog2)-minQtLog2Inter)))
	}

	s.Log2MaxTbSize = 5
	if s.CtbSizeY > 32 {
		s.MaxLumaTransformSize64 = r.flag("sps_max_luma_transform_size_64_flag")
		if s.MaxLumaTransformSize64 {
			s.Log2MaxTbSize = 6
		}
	}
}

func parseTransformTools(r *syntaxReader, s *SPS) {
	s.TransformSkipEnabled = r.flag("sps_transform_skip_enabled_flag")
	if s.TransformSkipEnabled {
		s.Log2TransformSkipMaxSizeMinus2 = int(r.ueRange("sps_log2_transform_skip_max_size_minus2", 0, 3))
		s.BDPCMEnabled = r.flag("sps_bdpcm_enabled_flag")
	}
	s.MTSEnabled = r.flag("sps_mts_enabled_flag")
	if s.MTSEnabled {
		s.ExplicitMTSIntraEnabled = r.flag("sps_explicit_mts_intra_enabled_flag")
		s.ExplicitMTSInterEnabled = r.flag("sps_explicit_mts_inter_enabled_flag")
	}
	s.LFNSTEnabled = r.flag("sps_lfnst_enabled_flag")
}

// parseChromaQPTables reads the chroma QP mapping tables and derives their
// pivot points.
func parseChromaQPTables(r *syntaxReader, s *SPS) {
	n := 2
	switch {
	case s.SameQPTableForChroma:
		n = 1
	case s.JointCbCrEnabled:
		n = 3
	}
	for i := 0; i < n && r.err == nil; i++ {
		var t ChromaQPTable
		t.StartMinus26 = int(r.seRange("sps_qp_table_start_minus26", int64(-26-s.QpBdOffset), 36))
		t.NumPointsMinus1 = int(r.ueRange("sps_num_points_in_qp_table_minus1", 0, int64(36-t.StartMinus26)))
		t.QPInVal = append(t.QPInVal, t.StartMinus26+26)
		t.QPOutVal = append(t.QPOutVal, t.StartMinus26+26)
		for j := 0; j <= t.NumPointsMinus1 && r.err == nil; j++ {
			in := int(r.ue("sps_delta_qp_in_val_minus1"))
			diff := int(r.ue("sps_delta_qp_diff_val"))
			t.DeltaQPInValMinus1 = append(t.DeltaQPInValMinus1, in)
			t.DeltaQPDiffVal = append(t.DeltaQPDiffVal, diff)
			qpIn := t.QPInVal[j] + in + 1
			r.ensure(qpIn <= 63, "sps_delta_qp_in_val_minus1", int64(in), "chroma QP table input exceeds 63")
			t.QPInVal = append(t.QPInVal, qpIn)
			t.QPOutVal = append(t.QPOutVal, t.QPOutVal[j]+(in^diff))
		}
		s.ChromaQPTables = append(s.ChromaQPTables, t)
	}
}

// Largest num_ref_entries, MaxDpbSize + 13.
const maxNumRefEntries = 29

func parseRefPicLists(r *syntaxReader, s *SPS) {
	lists := 2
	if s.RPL1SameAsRPL0 {
		lists = 1
	}
	for l := 0; l < lists && r.err == nil; l++ {
		s.NumRefPicLists[l] = int(r.ueRange("sps_num_ref_pic_lists", 0, 64))
		for j := 0; j < s.NumRefPicLists[l] && r.err == nil; j++ {
			s.RefPicLists[l] = append(s.RefPicLists[l], parseRefPicList(r, s))
		}
	}
	if s.RPL1SameAsRPL0 {
		s.NumRefPicLists[1] = s.NumRefPicLists[0]
		s.RefPicLists[1] = append([]RefPicList(nil), s.RefPicLists[0]...)
	}
}

// parseRefPicList reads ref_pic_list_struct() as signalled in the SPS.
func parseRefPicList(r *syntaxReader, s *SPS) RefPicList {
	var l RefPicList
	l.NumRefEntries = int(r.ueRange("num_ref_entries", 0, maxNumRefEntries))
	if s.LongTermRefPics && l.NumRefEntries > 0 {
		l.LTRPInHeader = r.flag("ltrp_in_header_flag")
	}
	for i := 0; i < l.NumRefEntries && r.err == nil; i++ {
		var e RefPicEntry
		if s.InterLayerPredictionEnabled {
			e.InterLayer = r.flag("inter_layer_ref_pic_flag")
		}
		if e.InterLayer {
			e.ILRPIdx = int(r.ueRange("ilrp_idx", 0, MaxLayerID))
			l.Entries = append(l.Entries, e)
			continue
		}
		e.ShortTerm = true
		if s.LongTermRefPics {
			e.ShortTerm = r.flag("st_ref_pic_flag")
		}
		if e.ShortTerm {
			abs := int(r.ueRange("abs_delta_poc_st", 0, 1<<15-1))
			if !((s.WeightedPred || s.WeightedBipred) && i != 0) {
				abs++
			}
			sign := false
			if abs > 0 {
				sign = r.flag("strp_entry_sign_flag")
			}
			e.DeltaPOC = abs
			if sign {
				e.DeltaPOC = -abs
			}
		} else if !l.LTRPInHeader {
			e.POCLsbLT = r.code(s.Log2MaxPicOrderCntLsbMinus4+4, "rpls_poc_lsb_lt")
		}
		l.Entries = append(l.Entries, e)
	}
	return l
}

func parseInterTools(r *syntaxReader, s *SPS) {
	s.RefWraparoundEnabled = r.flag("sps_ref_wraparound_enabled_flag")
	if s.RefWraparoundEnabled {
		for _, sp := range s.Subpics {
			r.ensure(!sp.TreatedAsPic || sp.Width == s.PicWidthInCtbsY(), "sps_ref_wraparound_enabled_flag", 1,
				"sps_ref_wraparound_enabled_flag equal to 1 with a narrower subpicture treated as a picture")
		}
	}

	s.TemporalMVPEnabled = r.flag("sps_temporal_mvp_enabled_flag")
	if s.TemporalMVPEnabled {
		s.SbTMVPEnabled = r.flag("sps_sbtmvp_enabled_flag")
	}
	s.AMVREnabled = r.flag("sps_amvr_enabled_flag")
	s.BDOFEnabled = r.flag("sps_bdof_enabled_flag")
	if s.BDOFEnabled {
		s.BDOFControlPresentInPH = r.flag("sps_bdof_control_present_in_ph_flag")
	}
	s.SMVDEnabled = r.flag("sps_smvd_enabled_flag")
	s.DMVREnabled = r.flag("sps_dmvr_enabled_flag")
	if s.DMVREnabled {
		s.DMVRControlPresentInPH = r.flag("sps_dmvr_control_present_in_ph_flag")
	}
	s.MMVDEnabled = r.flag("sps_mmvd_enabled_flag")
	if s.MMVDEnabled {
		s.MMVDFullpelOnly = r.flag("sps_mmvd_fullpel_only_enabled_flag")
	}
	s.SixMinusMaxNumMergeCand = int(r.ueRange("sps_six_minus_max_num_merge_cand", 0, 5))
	s.MaxNumMergeCand = 6 - s.SixMinusMaxNumMergeCand

	s.SBTEnabled = r.flag("sps_sbt_enabled_flag")
	s.AffineEnabled = r.flag("sps_affine_enabled_flag")
	if s.AffineEnabled {
		sbtmvp := 0
		if s.SbTMVPEnabled {
			sbtmvp = 1
		}
		s.FiveMinusMaxNumSubblockMergeCand = int(r.ueRange("sps_five_minus_max_num_subblock_merge_cand", 0, int64(5-sbtmvp)))
		s.MaxNumSubblockMergeCand = 5 - s.FiveMinusMaxNumSubblockMergeCand
		s.SixParamAffineEnabled = r.flag("sps_6param_affine_enabled_flag")
		if s.AMVREnabled {
			s.AffineAMVREnabled = r.flag("sps_affine_amvr_enabled_flag")
		}
		s.AffinePROFEnabled = r.flag("sps_affine_prof_enabled_flag")
		if s.AffinePROFEnabled {
			s.PROFControlPresentInPH = r.flag("sps_prof_control_present_in_ph_flag")
		}
	} else if s.SbTMVPEnabled {
		s.MaxNumSubblockMergeCand = 1
	}

	s.BCWEnabled = r.flag("sps_bcw_enabled_flag")
	s.CIIPEnabled = r.flag("sps_ciip_enabled_flag")
	if s.MaxNumMergeCand >= 2 {
		s.GPMEnabled = r.flag("sps_gpm_enabled_flag")
		switch {
		case s.GPMEnabled && s.MaxNumMergeCand >= 3:
			s.MaxNumMergeCandMinusMaxNumGPMCand = int(r.ueRange("sps_max_num_merge_cand_minus_max_num_gpm_cand", 0, int64(s.MaxNumMergeCand-2)))
			s.MaxNumGPMMergeCand = s.MaxNumMergeCand - s.MaxNumMergeCandMinusMaxNumGPMCand
		case s.GPMEnabled:
			s.MaxNumGPMMergeCand = 2
		}
	}
	s.Log2ParallelMergeLevelMinus2 = int(r.ueRange("sps_log2_parallel_merge_level_minus2", 0, int64(s.CtbLog2SizeY-2)))
}

func parseIntraTools(r *syntaxReader, s *SPS) {
	s.ISPEnabled = r.flag("sps_isp_enabled_flag")
	s.MRLEnabled = r.flag("sps_mrl_enabled_flag")
	s.MIPEnabled = r.flag("sps_mip_enabled_flag")
	if s.ChromaFormatIDC != Chroma400 {
		s.CCLMEnabled = r.flag("sps_cclm_enabled_flag")
	}
	if s.ChromaFormatIDC == Chroma420 {
		s.ChromaHorizontalCollocated = r.flag("sps_chroma_horizontal_collocated_flag")
		s.ChromaVerticalCollocated = r.flag("sps_chroma_vertical_collocated_flag")
	}
	s.PaletteEnabled = r.flag("sps_palette_enabled_flag")
	r.ensure(!s.PaletteEnabled, "sps_palette_enabled_flag", 1, "palette mode is not supported")
	if s.ChromaFormatIDC == Chroma444 && !s.MaxLumaTransformSize64 {
		s.ACTEnabled = r.flag("sps_act_enabled_flag")
	}
	if s.TransformSkipEnabled || s.PaletteEnabled {
		s.MinQPPrimeTS = int(r.ueRange("sps_min_qp_prime_ts", 0, 8))
	}
	s.IBCEnabled = r.flag("sps_ibc_enabled_flag")
	if s.IBCEnabled {
		s.SixMinusMaxNumIBCMergeCand = int(r.ueRange("sps_six_minus_max_num_ibc_merge_cand", 0, 5))
		s.MaxNumIBCMergeCand = 6 - s.SixMinusMaxNumIBCMergeCand
	}
}

func parseLADF(r *syntaxReader, bitDepth int) LADF {
	var l LADF
	l.NumIntervalsMinus2 = int(r.code(2, "sps_num_ladf_intervals_minus2"))
	l.LowestIntervalQPOffset = int(r.seRange("sps_ladf_lowest_interval_qp_offset", -63, 63))
	l.IntervalLowerBound = []int{0}
	for i := 0; i < l.NumIntervalsMinus2+1 && r.err == nil; i++ {
		l.QPOffset = append(l.QPOffset, int(r.seRange("sps_ladf_qp_offset", -63, 63)))
		d := int(r.ueRange("sps_ladf_delta_threshold_minus1", 0, int64(1<<uint(bitDepth))-3))
		l.DeltaThresholdMinus1 = append(l.DeltaThresholdMinus1, d)
		l.IntervalLowerBound = append(l.IntervalLowerBound, l.IntervalLowerBound[i]+d+1)
	}
	return l
}

// Largest number of vertical or horizontal virtual boundaries.
const maxVirtualBoundaries = 3

func parseVirtualBoundaries(r *syntaxReader, s *SPS) {
	s.VirtualBoundariesEnabled = r.flag("sps_virtual_boundaries_enabled_flag")
	if !s.VirtualBoundariesEnabled {
		return
	}
	s.VirtualBoundariesPresent = r.flag("sps_virtual_boundaries_present_flag")
	r.ensure(!(s.VirtualBoundariesPresent && s.ResChangeInCLVSAllowed), "sps_virtual_boundaries_present_flag", 1,
		"sps_virtual_boundaries_present_flag equal to 1 when sps_res_change_in_clvs_allowed_flag is 1")
	if !s.VirtualBoundariesPresent {
		return
	}

	maxVer := int64(maxVirtualBoundaries)
	if s.PicWidthMaxInLumaSamples <= 8 {
		maxVer = 0
	}
	numVer := int(r.ueRange("sps_num_ver_virtual_boundaries", 0, maxVer))
	for i := 0; i < numVer && r.err == nil; i++ {
		x := int(r.ueRange("sps_virtual_boundary_pos_x_minus1", 0, int64((s.PicWidthMaxInLumaSamples+7)/8-2)))
		s.VirtualBoundaryPosX = append(s.VirtualBoundaryPosX, (x+1)<<3)
	}

	maxHor := int64(maxVirtualBoundaries)
	if s.PicHeightMaxInLumaSamples <= 8 {
		maxHor = 0
	}
	numHor := int(r.ueRange("sps_num_hor_virtual_boundaries", 0, maxHor))
	for i := 0; i < numHor && r.err == nil; i++ {
		y := int(r.ueRange("sps_virtual_boundary_pos_y_minus1", 0, int64((s.PicHeightMaxInLumaSamples+7)/8-2)))
		s.VirtualBoundaryPosY = append(s.VirtualBoundaryPosY, (y+1)<<3)
	}
}
