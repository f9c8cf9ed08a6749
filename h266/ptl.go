package h266

// Profile idc values, A.3.
const (
	ProfileMain10                = 1
	ProfileMain10StillPicture    = 65
	ProfileMultilayerMain10      = 17
	ProfileMain10444             = 33
	ProfileMain10444StillPicture = 97
	ProfileMultilayerMain10444   = 49
	ProfileMain12                = 2
	ProfileMain12Intra           = 10
	ProfileMain12StillPicture    = 66
	ProfileMain12444             = 34
	ProfileMain12444Intra        = 42
	ProfileMain12444StillPicture = 98
	ProfileMain16444             = 35
	ProfileMain16444Intra        = 43
	ProfileMain16444StillPicture = 99
)

var (
	ProfileIDC = map[int]string{
		ProfileMain10:                "Main 10",
		ProfileMain10StillPicture:    "Main 10 Still Picture",
		ProfileMultilayerMain10:      "Multilayer Main 10",
		ProfileMain10444:             "Main 10 4:4:4",
		ProfileMain10444StillPicture: "Main 10 4:4:4 Still Picture",
		ProfileMultilayerMain10444:   "Multilayer Main 10 4:4:4",
		ProfileMain12:                "Main 12",
		ProfileMain12Intra:           "Main 12 Intra",
		ProfileMain12StillPicture:    "Main 12 Still Picture",
		ProfileMain12444:             "Main 12 4:4:4",
		ProfileMain12444Intra:        "Main 12 4:4:4 Intra",
		ProfileMain12444StillPicture: "Main 12 4:4:4 Still Picture",
		ProfileMain16444:             "Main 16 4:4:4",
		ProfileMain16444Intra:        "Main 16 4:4:4 Intra",
		ProfileMain16444StillPicture: "Main 16 4:4:4 Still Picture",
	}
)

// MaxSublayers is the largest number of temporal sublayers.
const MaxSublayers = 7

// ProfileTierLevel holds profile_tier_level(), 7.3.3.1.
type ProfileTierLevel struct {
	// Only set when the profile and tier are present.
	GeneralProfileIDC int
	GeneralTierFlag   bool
	Constraints       ConstraintInfo

	GeneralLevelIDC      int
	FrameOnlyConstraint  bool
	MultilayerEnabled    bool
	SublayerLevelPresent [MaxSublayers]bool
	SublayerLevelIDC     [MaxSublayers]int
	NumSubProfiles       int
	GeneralSubProfileIDC []uint32
}

// ConstraintInfo holds general_constraints_info(), 7.3.3.2. The single bit
// constraint flags after gci_three_minus_max_chroma_format_constraint_idc are
// kept in Flags in syntax order; use Flag to look one up by name.
type ConstraintInfo struct {
	Present bool

	IntraOnly            bool
	AllLayersIndependent bool
	OneAUOnly            bool

	// Range 0 - 8; 4 bits
	SixteenMinusMaxBitDepth int
	// 2 bits
	ThreeMinusMaxChromaFormat int
	// Range 0 - 2; 2 bits
	ThreeMinusMaxLog2CTUSize int

	Flags uint64

	NumAdditionalBits          int
	AllRAPPictures             bool
	NoExtendedPrecisionProc    bool
	NoTSResidualCodingRice     bool
	NoRRCRiceExtension         bool
	NoPersistentRiceAdaptation bool
	NoReverseLastSigCoeff      bool
}

// constraintFlagNames names the bits of ConstraintInfo.Flags. The
// gci_three_minus_max_log2_ctu_size_constraint_idc code sits between
// gci_no_subpic_info_constraint_flag and
// gci_no_partition_constraints_override_constraint_flag.
var constraintFlagNames = [...]string{
	// NAL unit type related.
	"gci_no_mixed_nalu_types_in_pic_constraint_flag",
	"gci_no_trail_constraint_flag",
	"gci_no_stsa_constraint_flag",
	"gci_no_rasl_constraint_flag",
	"gci_no_radl_constraint_flag",
	"gci_no_idr_constraint_flag",
	"gci_no_cra_constraint_flag",
	"gci_no_gdr_constraint_flag",
	"gci_no_aps_constraint_flag",
	"gci_no_idr_rpl_constraint_flag",
	// Tile, slice and subpicture partitioning.
	"gci_one_tile_per_pic_constraint_flag",
	"gci_pic_header_in_slice_header_constraint_flag",
	"gci_one_slice_per_pic_constraint_flag",
	"gci_no_rectangular_slice_constraint_flag",
	"gci_one_slice_per_subpic_constraint_flag",
	"gci_no_subpic_info_constraint_flag",
	// CTU and block partitioning.
	"gci_no_partition_constraints_override_constraint_flag",
	"gci_no_mtt_constraint_flag",
	"gci_no_qtbtt_dual_tree_intra_constraint_flag",
	// Intra.
	"gci_no_palette_constraint_flag",
	"gci_no_ibc_constraint_flag",
	"gci_no_isp_constraint_flag",
	"gci_no_mrl_constraint_flag",
	"gci_no_mip_constraint_flag",
	"gci_no_cclm_constraint_flag",
	// Inter.
	"gci_no_ref_pic_resampling_constraint_flag",
	"gci_no_res_change_in_clvs_constraint_flag",
	"gci_no_weighted_prediction_constraint_flag",
	"gci_no_ref_wraparound_constraint_flag",
	"gci_no_temporal_mvp_constraint_flag",
	"gci_no_sbtmvp_constraint_flag",
	"gci_no_amvr_constraint_flag",
	"gci_no_bdof_constraint_flag",
	"gci_no_smvd_constraint_flag",
	"gci_no_dmvr_constraint_flag",
	"gci_no_mmvd_constraint_flag",
	"gci_no_affine_motion_constraint_flag",
	"gci_no_prof_constraint_flag",
	"gci_no_bcw_constraint_flag",
	"gci_no_ciip_constraint_flag",
	"gci_no_gpm_constraint_flag",
	// Transform, quantization and residual.
	"gci_no_luma_transform_size_64_constraint_flag",
	"gci_no_transform_skip_constraint_flag",
	"gci_no_bdpcm_constraint_flag",
	"gci_no_mts_constraint_flag",
	"gci_no_lfnst_constraint_flag",
	"gci_no_joint_cbcr_constraint_flag",
	"gci_no_sbt_constraint_flag",
	"gci_no_act_constraint_flag",
	"gci_no_explicit_scaling_list_constraint_flag",
	"gci_no_dep_quant_constraint_flag",
	"gci_no_sign_data_hiding_constraint_flag",
	"gci_no_cu_qp_delta_constraint_flag",
	"gci_no_chroma_qp_offset_constraint_flag",
	// Loop filter.
	"gci_no_sao_constraint_flag",
	"gci_no_alf_constraint_flag",
	"gci_no_ccalf_constraint_flag",
	"gci_no_lmcs_constraint_flag",
	"gci_no_ladf_constraint_flag",
	"gci_no_virtual_boundaries_constraint_flag",
}

// Index of the first flag after gci_three_minus_max_log2_ctu_size_constraint_idc.
const ctuSizeConstraintPos = 16

// Flag returns the value of the named constraint flag. Unknown names give
// false.
func (c *ConstraintInfo) Flag(name string) bool {
	for i, n := range constraintFlagNames {
		if n == name {
			return c.Flags&(1<<uint(i)) != 0
		}
	}
	return false
}

// parseConstraintInfo reads general_constraints_info().
func parseConstraintInfo(r *syntaxReader) ConstraintInfo {
	var c ConstraintInfo
	c.Present = r.flag("gci_present_flag")
	if c.Present {
		c.IntraOnly = r.flag("gci_intra_only_constraint_flag")
		c.AllLayersIndependent = r.flag("gci_all_layers_independent_constraint_flag")
		c.OneAUOnly = r.flag("gci_one_au_only_constraint_flag")
		c.SixteenMinusMaxBitDepth = int(r.codeRange(4, "gci_sixteen_minus_max_bitdepth_constraint_idc", 0, 8))
		c.ThreeMinusMaxChromaFormat = int(r.code(2, "gci_three_minus_max_chroma_format_constraint_idc"))

		for i, name := range constraintFlagNames {
			if i == ctuSizeConstraintPos {
				c.ThreeMinusMaxLog2CTUSize = int(r.codeRange(2, "gci_three_minus_max_log2_ctu_size_constraint_idc", 0, 2))
			}
			if r.flag(name) {
				c.Flags |= 1 << uint(i)
			}
		}

		c.NumAdditionalBits = int(r.code(8, "gci_num_additional_bits"))
		used := 0
		if c.NumAdditionalBits > 5 {
			c.AllRAPPictures = r.flag("gci_all_rap_pictures_constraint_flag")
			c.NoExtendedPrecisionProc = r.flag("gci_no_extended_precision_processing_constraint_flag")
			c.NoTSResidualCodingRice = r.flag("gci_no_ts_residual_coding_rice_constraint_flag")
			c.NoRRCRiceExtension = r.flag("gci_no_rrc_rice_extension_constraint_flag")
			c.NoPersistentRiceAdaptation = r.flag("gci_no_persistent_rice_adaptation_constraint_flag")
			c.NoReverseLastSigCoeff = r.flag("gci_no_reverse_last_sig_coeff_constraint_flag")
			used = 6
		}
		for i := 0; i < c.NumAdditionalBits-used && r.err == nil; i++ {
			r.flag("gci_reserved_bit")
		}
	}
	r.reservedAlign("gci_alignment_zero_bit")
	return c
}

// parseProfileTierLevel reads profile_tier_level(profileTierPresent,
// maxNumSublayersMinus1).
func parseProfileTierLevel(r *syntaxReader, profileTierPresent bool, maxNumSublayersMinus1 int) ProfileTierLevel {
	var p ProfileTierLevel
	if profileTierPresent {
		p.GeneralProfileIDC = int(r.code(7, "general_profile_idc"))
		p.GeneralTierFlag = r.flag("general_tier_flag")
	}
	p.GeneralLevelIDC = int(r.code(8, "general_level_idc"))
	p.FrameOnlyConstraint = r.flag("ptl_frame_only_constraint_flag")
	p.MultilayerEnabled = r.flag("ptl_multilayer_enabled_flag")
	if profileTierPresent {
		p.Constraints = parseConstraintInfo(r)
	}

	for i := maxNumSublayersMinus1 - 1; i >= 0; i-- {
		p.SublayerLevelPresent[i] = r.flag("ptl_sublayer_level_present_flag")
	}
	r.reservedAlign("ptl_reserved_zero_bit")

	// Absent sublayer levels are inferred from the next higher sublayer.
	p.SublayerLevelIDC[maxNumSublayersMinus1] = p.GeneralLevelIDC
	for i := maxNumSublayersMinus1 - 1; i >= 0; i-- {
		if p.SublayerLevelPresent[i] {
			p.SublayerLevelIDC[i] = int(r.code(8, "sublayer_level_idc"))
		} else {
			p.SublayerLevelIDC[i] = p.SublayerLevelIDC[i+1]
		}
	}

	if profileTierPresent {
		p.NumSubProfiles = int(r.code(8, "ptl_num_sub_profiles"))
		for i := 0; i < p.NumSubProfiles && r.err == nil; i++ {
			p.GeneralSubProfileIDC = append(p.GeneralSubProfileIDC, r.code(32, "general_sub_profile_idc"))
		}
	}
	return p
}

// ProfileName returns a readable name for the general profile.
func (p *ProfileTierLevel) ProfileName() string {
	if s, ok := ProfileIDC[p.GeneralProfileIDC]; ok {
		return s
	}
	return "Unknown"
}
