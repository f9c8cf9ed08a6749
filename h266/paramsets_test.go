package h266

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParameterSets(t *testing.T) {
	var p ParameterSets
	assert.Nil(t, p.SPS(0))
	assert.Nil(t, p.SPS(-1))
	assert.Nil(t, p.SPS(MaxSPSCount))

	a := &SPS{ID: 3}
	p.PublishSPS(a)
	assert.Same(t, a, p.SPS(3))

	b := &SPS{ID: 3}
	p.PublishSPS(b)
	assert.Same(t, b, p.SPS(3))

	p.PublishSPS(&SPS{ID: MaxSPSCount})
	p.PublishSPS(nil)

	p.Reset()
	assert.Nil(t, p.SPS(3))
}

// Run with -race.
func TestParameterSetsConcurrent(t *testing.T) {
	var p ParameterSets
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			p.PublishSPS(&SPS{ID: i % MaxSPSCount, BitDepth: i})
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				if s := p.SPS(i % MaxSPSCount); s != nil {
					assert.Equal(t, i%MaxSPSCount, s.ID)
				}
			}
		}()
	}
	wg.Wait()
}
