package router

import "emperror.dev/errors"

var (
	// ErrCheckFailure is returned by checks that should fail silently.
	ErrCheckFailure = errors.New("check failed")
	// ErrMissingPermissions is returned when the author lacks a required permission.
	ErrMissingPermissions = errors.New("missing permissions")
)

// CommandNotFoundError is returned for a prefixed message naming no command.
// Content is the whole message.
type CommandNotFoundError struct {
	Content string
}

func (e *CommandNotFoundError) Error() string {
	return "command not found: " + e.Content
}

type MissingArgumentError struct {
	Name string
}

func (e *MissingArgumentError) Error() string {
	return "missing required argument " + e.Name
}

type ArgumentError struct {
	Msg string
}

func (e *ArgumentError) Error() string {
	return e.Msg
}

type ChannelNotFoundError struct {
	Arg string
}

func (e *ChannelNotFoundError) Error() string {
	return "channel not found: " + e.Arg
}
