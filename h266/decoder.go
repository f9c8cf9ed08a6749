package h266

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// State is the life cycle state of a Decoder.
type State int

const (
	StateInitialized State = iota
	StateDecoding
	StateFlushing
	StateFinished
)

var stateName = [...]string{"initialized", "decoding", "flushing", "finished"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateName) {
		return stateName[s]
	}
	return "unknown"
}

// Options configures a Decoder.
type Options struct {
	// MaxAccessUnitSize bounds the bytes buffered for one access unit. Zero
	// selects MaxCodedPictureSize.
	MaxAccessUnitSize int

	// StrictConformance turns known-broken conformance checks into parse
	// errors.
	StrictConformance bool
}

// Result is what one call to Decode produced.
type Result struct {
	// NALUnits are the units that were parsed, in stream order.
	NALUnits []*NALUnit

	// SPS holds each SPS published while decoding the access unit.
	SPS []*SPS

	// Errors holds the recoverable errors of discarded units.
	Errors []error
}

// Decoder splits access units into NAL units and parses the ones it
// understands. Parameter sets are kept for the session in ParamSets.
type Decoder struct {
	ID        uuid.UUID
	ParamSets *ParameterSets

	opts  Options
	log   *zap.SugaredLogger
	state State
}

// NewDecoder returns a decoder in the initialized state.
func NewDecoder(opts Options, log *zap.SugaredLogger) *Decoder {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.MaxAccessUnitSize <= 0 {
		opts.MaxAccessUnitSize = MaxCodedPictureSize
	}
	id := uuid.New()
	return &Decoder{
		ID:        id,
		ParamSets: &ParameterSets{},
		opts:      opts,
		log:       log.With("session", id.String()),
		state:     StateInitialized,
	}
}

// State returns the current life cycle state.
func (d *Decoder) State() State { return d.state }

// NewAccessUnit returns an access unit bounded by the decoder's size limit.
func (d *Decoder) NewAccessUnit() *AccessUnit {
	au := NewAccessUnit()
	au.MaxSize = d.opts.MaxAccessUnitSize
	return au
}

// Decode splits au into NAL units and decodes each in turn. A unit that fails
// to parse is dropped and its error added to the result. Only ErrUnrecoverable
// stops decoding, after which the decoder must be Reset.
func (d *Decoder) Decode(au *AccessUnit) (*Result, error) {
	switch {
	case au == nil:
		return nil, errors.Wrap(ErrParameter, "nil access unit")
	case d.state == StateFlushing || d.state == StateFinished:
		return nil, errors.Wrapf(ErrRestartRequired, "decoder is %s", d.state)
	}

	res := &Result{}
	buf := au.Bytes()
	if len(buf) == 0 {
		return res, nil
	}
	if pos, _ := findStartCode(buf, 0); pos < 0 {
		return nil, ErrNoStartCode
	}
	d.state = StateDecoding

	for _, rng := range FindNALUnits(buf) {
		nal, sps, err := d.decode(buf[rng.Start:rng.End])
		if err != nil {
			if errors.Is(err, ErrUnrecoverable) {
				d.log.Errorw("lost stream sync", "error", err)
				d.state = StateFinished
				return res, err
			}
			d.log.Warnw("discarding NAL unit", "offset", rng.Start, "error", err)
			res.Errors = append(res.Errors, err)
			continue
		}
		nal.CTS, nal.CTSValid = au.CTS, au.CTSValid
		nal.DTS, nal.DTSValid = au.DTS, au.DTSValid
		nal.RAP = au.RAP || nal.Type.IsIRAP()
		res.NALUnits = append(res.NALUnits, nal)
		if sps != nil {
			res.SPS = append(res.SPS, sps)
		}
	}
	return res, nil
}

// DecodeNALUnit decodes a single NAL unit given without its start code.
func (d *Decoder) DecodeNALUnit(raw []byte) (*NALUnit, error) {
	if d.state == StateFlushing || d.state == StateFinished {
		return nil, errors.Wrapf(ErrRestartRequired, "decoder is %s", d.state)
	}
	d.state = StateDecoding
	nal, _, err := d.decode(raw)
	if errors.Is(err, ErrUnrecoverable) {
		d.state = StateFinished
	}
	return nal, err
}

func (d *Decoder) decode(raw []byte) (*NALUnit, *SPS, error) {
	nal, err := NewNALUnit(raw, d.log)
	if err != nil {
		return nil, nil, err
	}
	d.log.Debugw("NAL unit", "type", nal.Type, "layer", nal.LayerID, "tid", nal.TemporalID, "size", len(nal.RBSP))

	switch t := nal.Type; {
	case t == NALUnitSPS:
		sps, err := ParseSPS(nal.BitReader(), SyntaxOptions{Log: d.log, Strict: d.opts.StrictConformance})
		if err != nil {
			return nil, nil, err
		}
		d.ParamSets.PublishSPS(sps)
		d.log.Infow("published SPS",
			"id", sps.ID,
			"profile", sps.ProfileTierLevel.ProfileName(),
			"chroma", sps.ChromaFormatIDC,
			"width", sps.PicWidthMaxInLumaSamples,
			"height", sps.PicHeightMaxInLumaSamples,
			"bitDepth", sps.BitDepth,
		)
		return nal, sps, nil

	case t == NALUnitEOS || t == NALUnitEOB:
		d.log.Debugw("end of sequence", "type", t)
		return nal, nil, nil

	case t.IsReserved():
		d.log.Debugw("ignoring NAL unit", "type", t)
		return nal, nil, nil

	case t < NALUnitInvalid:
		// OPI, DCI, VPS, PPS, APS, PH, SEI, AUD, FD and slices are
		// recognised but not parsed.
		return nal, nil, nil
	}
	return nil, nil, errors.Wrapf(ErrUnrecoverable, "nal_unit_type %d", nal.Type)
}

// Flush drains the session. The first call after decoding moves the decoder
// to StateFlushing and returns nil; once nothing is left to drain it moves to
// StateFinished and returns ErrEOF. Decode fails with ErrRestartRequired from
// the first Flush until Reset.
func (d *Decoder) Flush() error {
	if d.state == StateDecoding {
		d.state = StateFlushing
		d.log.Debugw("flushing decoder")
		return nil
	}
	if d.state != StateFinished {
		d.log.Debugw("decoder finished")
	}
	d.state = StateFinished
	return ErrEOF
}

// Reset drops all parameter sets and returns the decoder to the initialized
// state.
func (d *Decoder) Reset() {
	d.ParamSets.Reset()
	d.state = StateInitialized
	d.log.Debugw("decoder reset")
}
