package audio

import "errors"

// Construction-time errors from the decoder.
var (
	ErrCannotProbe      = errors.New("audio: could not probe container")
	ErrNoDefaultTrack   = errors.New("audio: no default audio track")
	ErrCodecUnsupported = errors.New("audio: unsupported codec")
)

// ErrResamplerConstruction is returned by NewResampler for an invalid
// rate ratio or chunk configuration.
var ErrResamplerConstruction = errors.New("audio: invalid resampler construction parameters")
