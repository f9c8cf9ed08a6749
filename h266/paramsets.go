package h266

import "sync"

// MaxSPSCount is the number of sps_seq_parameter_set_id values.
const MaxSPSCount = 16

// ParameterSets is the table of active parameter sets of a stream. Entries
// are only replaced whole, after a successful parse, so a pointer returned by
// SPS stays valid and unchanged while later units are decoded.
type ParameterSets struct {
	mu  sync.RWMutex
	sps [MaxSPSCount]*SPS
}

// PublishSPS makes s the SPS for its id, replacing any previous one.
func (p *ParameterSets) PublishSPS(s *SPS) {
	if s == nil || s.ID < 0 || s.ID >= MaxSPSCount {
		return
	}
	p.mu.Lock()
	p.sps[s.ID] = s
	p.mu.Unlock()
}

// SPS returns the SPS published for id, or nil.
func (p *ParameterSets) SPS(id int) *SPS {
	if id < 0 || id >= MaxSPSCount {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sps[id]
}

// Reset removes all published parameter sets.
func (p *ParameterSets) Reset() {
	p.mu.Lock()
	p.sps = [MaxSPSCount]*SPS{}
	p.mu.Unlock()
}
