package errors

import (
	"errors"
	"fmt"
)

var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrEmptyWords        = fmt.Errorf("no words have been found")
	ErrTranslationFailed = fmt.Errorf("translation failed")
	ErrEmptyTranslation  = fmt.Errorf("provider returned an empty translation")
	ErrProviderStatus    = fmt.Errorf("provider returned a non-success status")
	ErrConnectionClosed  = fmt.Errorf("connection closed")
	ErrSinkFull          = fmt.Errorf("connection sink is full")
	ErrUnknownCommand    = fmt.Errorf("unknown command")
	ErrInvalidPayload    = fmt.Errorf("invalid payload")
	ErrInvalidConfig     = fmt.Errorf("invalid configuration")
)

// Wire error codes sent back to clients inside an "error" envelope.
const (
	CodeInvalidPayload = "invalid_payload"
	CodeUnknownCommand = "unknown_command"
	CodeInternal       = "internal"
)

// ToWireError maps an error raised while decoding a client command
// to the code exposed on the wire.
func ToWireError(err error) string {
	switch {
	case errors.Is(err, ErrInvalidPayload):
		return CodeInvalidPayload
	case errors.Is(err, ErrUnknownCommand):
		return CodeUnknownCommand
	default:
		return CodeInternal
	}
}

func Is(err, target error) bool { return errors.Is(err, target) }
