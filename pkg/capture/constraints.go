package capture

const (
	DefaultSampleRate   = 48000
	DefaultChannelCount = 1
)

type AudioConstraints struct {
	DeviceId         string
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
	SampleRate       int
	ChannelCount     int
}

// StreamOptions overrides individual capture settings. Nil fields keep the
// default: mono, 48kHz, every enhancement on.
type StreamOptions struct {
	EchoCancellation *bool
	NoiseSuppression *bool
	AutoGainControl  *bool
	SampleRate       *int
	ChannelCount     *int
}

func DefaultConstraints(deviceId string) AudioConstraints {
	return AudioConstraints{
		DeviceId:         deviceId,
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
		SampleRate:       DefaultSampleRate,
		ChannelCount:     DefaultChannelCount,
	}
}

func (o StreamOptions) Resolve(deviceId string) AudioConstraints {
	c := DefaultConstraints(deviceId)
	if o.EchoCancellation != nil {
		c.EchoCancellation = *o.EchoCancellation
	}
	if o.NoiseSuppression != nil {
		c.NoiseSuppression = *o.NoiseSuppression
	}
	if o.AutoGainControl != nil {
		c.AutoGainControl = *o.AutoGainControl
	}
	if o.SampleRate != nil {
		c.SampleRate = *o.SampleRate
	}
	if o.ChannelCount != nil {
		c.ChannelCount = *o.ChannelCount
	}
	return c
}
