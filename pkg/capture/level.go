package capture

import (
	"context"
	"math"
	"time"
)

const (
	DefaultLevelInterval = time.Second / 60
	defaultAnalyserSize  = 2048
)

// Level returns the RMS level, between 0 and 1, of unsigned 8-bit time-domain
// samples centered on 128 as produced by an audio analyser.
func Level(samples []byte) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		v := (float64(s) - 128) / 128
		sum += v * v
	}
	return math.Min(1, math.Sqrt(sum/float64(len(samples))))
}

// Analyser fills buf with the latest unsigned 8-bit time-domain samples.
type Analyser interface {
	TimeDomainData(buf []byte)
}

// LevelMeter samples an analyser at a fixed rate and reports the level. It is
// independent of the recording and upload pipeline.
type LevelMeter struct {
	analyser Analyser
	interval time.Duration
	onLevel  func(float64)
	buf      []byte
}

func NewLevelMeter(analyser Analyser, interval time.Duration, onLevel func(float64)) *LevelMeter {
	if interval <= 0 {
		interval = DefaultLevelInterval
	}
	return &LevelMeter{
		analyser: analyser,
		interval: interval,
		onLevel:  onLevel,
		buf:      make([]byte, defaultAnalyserSize),
	}
}

// Sample reads the analyser once and returns the current level.
func (m *LevelMeter) Sample() float64 {
	m.analyser.TimeDomainData(m.buf)
	return Level(m.buf)
}

// Run reports a level every interval until ctx is done.
func (m *LevelMeter) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			level := m.Sample()
			if m.onLevel != nil {
				m.onLevel(level)
			}
		}
	}
}
