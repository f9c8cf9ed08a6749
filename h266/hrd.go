package h266

// MaxCPBCount is the largest number of CPB specifications, hrd_cpb_cnt_minus1 + 1.
const MaxCPBCount = 32

// DPBParameters holds dpb_parameters(), 7.3.4. Values for sublayers that are
// not signalled are inferred from the highest sublayer.
type DPBParameters struct {
	// Range 0 - 15
	MaxDecPicBufferingMinus1 [MaxSublayers]int
	MaxNumReorderPics        [MaxSublayers]int
	MaxLatencyIncreasePlus1  [MaxSublayers]uint32
}

// parseDPBParameters reads dpb_parameters(maxSublayersMinus1, sublayerInfo).
func parseDPBParameters(r *syntaxReader, maxSublayersMinus1 int, sublayerInfo bool) DPBParameters {
	var d DPBParameters
	first := maxSublayersMinus1
	if sublayerInfo {
		first = 0
	}
	for i := first; i <= maxSublayersMinus1 && r.err == nil; i++ {
		d.MaxDecPicBufferingMinus1[i] = int(r.ueRange("dpb_max_dec_pic_buffering_minus1", 0, 15))
		d.MaxNumReorderPics[i] = int(r.ueRange("dpb_max_num_reorder_pics", 0, int64(d.MaxDecPicBufferingMinus1[i])))
		d.MaxLatencyIncreasePlus1[i] = r.ueRange("dpb_max_latency_increase_plus1", 0, 1<<32-2)
		if i > 0 {
			r.ensure(d.MaxDecPicBufferingMinus1[i] >= d.MaxDecPicBufferingMinus1[i-1] || i == first,
				"dpb_max_dec_pic_buffering_minus1", int64(d.MaxDecPicBufferingMinus1[i]),
				"dpb_max_dec_pic_buffering_minus1 less than value for lower sublayer")
		}
	}
	for i := 0; i < first; i++ {
		d.MaxDecPicBufferingMinus1[i] = d.MaxDecPicBufferingMinus1[maxSublayersMinus1]
		d.MaxNumReorderPics[i] = d.MaxNumReorderPics[maxSublayersMinus1]
		d.MaxLatencyIncreasePlus1[i] = d.MaxLatencyIncreasePlus1[maxSublayersMinus1]
	}
	return d
}

// GeneralTimingHRD holds general_timing_hrd_parameters(), 7.3.5.1.
type GeneralTimingHRD struct {
	NumUnitsInTick        uint32
	TimeScale             uint32
	NALHRDParamsPresent   bool
	VCLHRDParamsPresent   bool
	SamePicTimingInAllOLS bool
	DUHRDParamsPresent    bool
	TickDivisorMinus2     int
	BitRateScale          int
	CPBSizeScale          int
	CPBSizeDUScale        int
	// Range 0 - 31
	CPBCntMinus1 int
}

func parseGeneralTimingHRD(r *syntaxReader) GeneralTimingHRD {
	var h GeneralTimingHRD
	h.NumUnitsInTick = r.code(32, "num_units_in_tick")
	r.ensure(h.NumUnitsInTick > 0, "num_units_in_tick", 0, "num_units_in_tick equal to 0")
	h.TimeScale = r.code(32, "time_scale")
	r.ensure(h.TimeScale > 0, "time_scale", 0, "time_scale equal to 0")
	h.NALHRDParamsPresent = r.flag("general_nal_hrd_params_present_flag")
	h.VCLHRDParamsPresent = r.flag("general_vcl_hrd_params_present_flag")
	if h.NALHRDParamsPresent || h.VCLHRDParamsPresent {
		h.SamePicTimingInAllOLS = r.flag("general_same_pic_timing_in_all_ols_flag")
		h.DUHRDParamsPresent = r.flag("general_du_hrd_params_present_flag")
		if h.DUHRDParamsPresent {
			h.TickDivisorMinus2 = int(r.code(8, "tick_divisor_minus2"))
		}
		h.BitRateScale = int(r.code(4, "bit_rate_scale"))
		h.CPBSizeScale = int(r.code(4, "cpb_size_scale"))
		if h.DUHRDParamsPresent {
			h.CPBSizeDUScale = int(r.code(4, "cpb_size_du_scale"))
		}
		h.CPBCntMinus1 = int(r.ueRange("hrd_cpb_cnt_minus1", 0, MaxCPBCount-1))
	}
	return h
}

// SublayerHRD holds sublayer_hrd_parameters(), 7.3.5.3, one entry per CPB.
type SublayerHRD struct {
	BitRateValueMinus1   []uint32
	CPBSizeValueMinus1   []uint32
	CPBSizeDUValueMinus1 []uint32
	BitRateDUValueMinus1 []uint32
	CBR                  []bool
}

func parseSublayerHRD(r *syntaxReader, g *GeneralTimingHRD) SublayerHRD {
	var s SublayerHRD
	for j := 0; j <= g.CPBCntMinus1 && r.err == nil; j++ {
		s.BitRateValueMinus1 = append(s.BitRateValueMinus1, r.ueRange("bit_rate_value_minus1", 0, 1<<32-2))
		s.CPBSizeValueMinus1 = append(s.CPBSizeValueMinus1, r.ueRange("cpb_size_value_minus1", 0, 1<<32-2))
		if g.DUHRDParamsPresent {
			s.CPBSizeDUValueMinus1 = append(s.CPBSizeDUValueMinus1, r.ueRange("cpb_size_du_value_minus1", 0, 1<<32-2))
			s.BitRateDUValueMinus1 = append(s.BitRateDUValueMinus1, r.ueRange("bit_rate_du_value_minus1", 0, 1<<32-2))
		}
		s.CBR = append(s.CBR, r.flag("cbr_flag"))
		if j > 0 {
			r.ensure(s.BitRateValueMinus1[j] > s.BitRateValueMinus1[j-1], "bit_rate_value_minus1", int64(s.BitRateValueMinus1[j]),
				"bit_rate_value_minus1 not greater than value for previous CPB")
		}
	}
	return s
}

// OLSTimingHRD holds ols_timing_hrd_parameters(), 7.3.5.2, indexed by
// sublayer. Sublayers below the first signalled one copy the highest.
type OLSTimingHRD struct {
	FixedPicRateGeneral   [MaxSublayers]bool
	FixedPicRateWithinCVS [MaxSublayers]bool
	// Range 0 - 2047
	ElementalDurationInTcMinus1 [MaxSublayers]int
	LowDelayHRD                 [MaxSublayers]bool
	NAL                         [MaxSublayers]SublayerHRD
	VCL                         [MaxSublayers]SublayerHRD
}

func parseOLSTimingHRD(r *syntaxReader, g *GeneralTimingHRD, firstSublayer, maxSublayersMinus1 int) OLSTimingHRD {
	var o OLSTimingHRD
	for i := firstSublayer; i <= maxSublayersMinus1 && r.err == nil; i++ {
		o.FixedPicRateGeneral[i] = r.flag("fixed_pic_rate_general_flag")
		o.FixedPicRateWithinCVS[i] = true
		if !o.FixedPicRateGeneral[i] {
			o.FixedPicRateWithinCVS[i] = r.flag("fixed_pic_rate_within_cvs_flag")
		}
		if o.FixedPicRateWithinCVS[i] {
			o.ElementalDurationInTcMinus1[i] = int(r.ueRange("elemental_duration_in_tc_minus1", 0, 2047))
		} else if (g.NALHRDParamsPresent || g.VCLHRDParamsPresent) && g.CPBCntMinus1 == 0 {
			o.LowDelayHRD[i] = r.flag("low_delay_hrd_flag")
		}
		if g.NALHRDParamsPresent {
			o.NAL[i] = parseSublayerHRD(r, g)
		}
		if g.VCLHRDParamsPresent {
			o.VCL[i] = parseSublayerHRD(r, g)
		}
	}
	for i := 0; i < firstSublayer; i++ {
		o.FixedPicRateGeneral[i] = o.FixedPicRateGeneral[maxSublayersMinus1]
		o.FixedPicRateWithinCVS[i] = o.FixedPicRateWithinCVS[maxSublayersMinus1]
		o.ElementalDurationInTcMinus1[i] = o.ElementalDurationInTcMinus1[maxSublayersMinus1]
		o.LowDelayHRD[i] = o.LowDelayHRD[maxSublayersMinus1]
		o.NAL[i] = o.NAL[maxSublayersMinus1]
		o.VCL[i] = o.VCL[maxSublayersMinus1]
	}
	return o
}
