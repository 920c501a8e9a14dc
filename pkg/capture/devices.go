package capture

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	DefaultDeviceId    = "default"
	defaultLabelPrefix = "Default - "
)

var (
	ErrDeviceAccess      = errors.New("microphone access denied")
	ErrDeviceUnavailable = errors.New("microphone unavailable")
)

type DeviceKind string

const (
	DeviceKindAudioInput  DeviceKind = "audioinput"
	DeviceKindAudioOutput DeviceKind = "audiooutput"
	DeviceKindVideoInput  DeviceKind = "videoinput"
)

type DeviceInfo struct {
	DeviceId string
	GroupId  string
	Kind     DeviceKind
	Label    string
}

type Track interface {
	Stop()
}

type Stream interface {
	Tracks() []Track
}

// MediaDevices is the platform capture API. Labels are only populated once the
// user granted capture permission.
type MediaDevices interface {
	GetUserMedia(ctx context.Context, constraints AudioConstraints) (Stream, error)
	EnumerateDevices(ctx context.Context) ([]DeviceInfo, error)
}

type Microphone struct {
	DeviceId  string
	Label     string
	IsDefault bool
}

// ListMicrophones asks for capture permission, then lists the audio inputs with
// the default device first and the rest sorted by label. Entries that only
// differ by the "Default - " label prefix are reported once.
func ListMicrophones(ctx context.Context, devices MediaDevices) ([]Microphone, error) {
	stream, err := devices.GetUserMedia(ctx, DefaultConstraints(""))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceAccess, err)
	}
	StopStream(stream)

	infos, err := devices.EnumerateDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}

	var defaultMic *Microphone
	others := make([]Microphone, 0, len(infos))
	seen := make(map[string]bool)

	for _, info := range infos {
		if info.Kind != DeviceKindAudioInput || info.Label == "" {
			continue
		}
		if info.DeviceId == DefaultDeviceId {
			defaultMic = &Microphone{DeviceId: info.DeviceId, Label: info.Label, IsDefault: true}
			seen[strings.TrimPrefix(info.Label, defaultLabelPrefix)] = true
		}
	}

	for _, info := range infos {
		if info.Kind != DeviceKindAudioInput || info.Label == "" || info.DeviceId == DefaultDeviceId {
			continue
		}
		key := strings.TrimPrefix(info.Label, defaultLabelPrefix)
		if seen[key] {
			continue
		}
		seen[key] = true
		others = append(others, Microphone{DeviceId: info.DeviceId, Label: info.Label})
	}

	if defaultMic == nil && len(others) == 0 {
		return nil, ErrDeviceAccess
	}

	sort.SliceStable(others, func(i, j int) bool {
		return others[i].Label < others[j].Label
	})

	if defaultMic == nil {
		return others, nil
	}
	return append([]Microphone{*defaultMic}, others...), nil
}

// OpenStream opens a capture stream on deviceId. An empty deviceId selects the
// platform default.
func OpenStream(ctx context.Context, devices MediaDevices, deviceId string, opts StreamOptions) (Stream, error) {
	stream, err := devices.GetUserMedia(ctx, opts.Resolve(deviceId))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, deviceId, err)
	}
	return stream, nil
}

// StopStream releases every track of the stream.
func StopStream(stream Stream) {
	if stream == nil {
		return
	}
	for _, track := range stream.Tracks() {
		track.Stop()
	}
}
