package bus

import (
	"image"

	"github.com/josephniet/audiovis/playlist"
)

// Event names. Transport requests flow toward the player; state updates flow out of it.
const (
	Play     = "play"
	Pause    = "pause"
	Stop     = "stop"
	Seek     = "seek"
	Volume   = "volume"
	Next     = "next"
	Previous = "previous"

	TrackChanged    = "track-changed"
	ProgressUpdate  = "progress-update"
	PlayStateUpdate = "play-state-update"
	DurationUpdate  = "duration-update"
	TrackAdded      = "track-added"
	TrackRemoved    = "track-removed"

	RequestAudioData    = "request-audio-data"
	AudioData           = "audio-data"
	RequestControlsData = "request-controls-data"
	ControlsData        = "controls-data"
)

// DurableEvents is the default set of names whose last payload is replayed to new subscribers.
var DurableEvents = []string{DurationUpdate, AudioData, TrackChanged}

type SeekEvent struct {
	Time float64 // seconds
}

type VolumeEvent struct {
	Level float64 // 0..1
}

type TrackEvent struct {
	Track playlist.Track
}

type ProgressEvent struct {
	CurrentTime float64
	Duration    float64
}

type PlayStateEvent struct {
	IsPlaying bool
}

type DurationEvent struct {
	Duration float64
}

// StreamRef is the tapped stream an analyzer can attach to.
type StreamRef interface {
	Samples(n int) [][2]float64
	SampleRate() int
}

// AudioDataEvent hands a loaded stream to consumers that attach analysis to it.
type AudioDataEvent struct {
	Stream   StreamRef
	Analysis AnalysisContext
	Duration float64
	Track    playlist.Track
}

type AnalysisContext struct {
	SampleRate int
}

// ControlsDataEvent exposes the region the controls draw the progress bar in,
// in surface pixel coordinates.
type ControlsDataEvent struct {
	ProgressRect image.Rectangle
}
