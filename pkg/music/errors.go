package music

import "emperror.dev/errors"

var (
	ErrPlayerNotPlaying = errors.New("player is not playing")
	ErrNotConnected     = errors.New("not connected to a voice channel")
	ErrInvalidVolume    = errors.New("volume must be between 1 and 200")
)

// QueueEmptyError is returned when an operation needs queued tracks.
type QueueEmptyError struct {
	Msg string
}

func (e *QueueEmptyError) Error() string {
	if e.Msg == "" {
		return "queue is empty"
	}
	return e.Msg
}

// VoiceError is a voice connection problem that is shown to the user.
type VoiceError struct {
	Msg string
}

func (e *VoiceError) Error() string {
	if e.Msg == "" {
		return "voice connection error"
	}
	return e.Msg
}

// ArgumentError reports a bad command argument.
type ArgumentError struct {
	Msg string
}

func (e *ArgumentError) Error() string {
	return e.Msg
}

// SearchNotFoundError is returned when a query resolves to no tracks.
type SearchNotFoundError struct {
	Query string
}

func (e *SearchNotFoundError) Error() string {
	return "nothing found for " + e.Query
}

// MissingArgumentError is returned when a required argument was not given.
type MissingArgumentError struct {
	Name string
}

func (e *MissingArgumentError) Error() string {
	return "missing required argument " + e.Name
}
