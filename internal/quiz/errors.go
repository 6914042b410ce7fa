package quiz

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotActive is returned for answers or advances outside the Active phase.
	ErrSessionNotActive = errors.New("session is not active")
	// ErrAlreadyStarted is returned when Begin is called twice.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrAwaitingAnswer is returned by Advance before the current item was answered.
	ErrAwaitingAnswer = errors.New("current item has not been answered")
	// ErrAlreadyAnswered is returned by Answer when the current item was already answered.
	ErrAlreadyAnswered = errors.New("current item already answered")
	// ErrInvalidOption matches every *InvalidOptionError.
	ErrInvalidOption = errors.New("invalid option")
)

// InvalidOptionError reports an answer index outside the displayed options.
type InvalidOptionError struct {
	Option  int
	Options int
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("option %d out of range [0,%d)", e.Option, e.Options)
}

func (e *InvalidOptionError) Is(target error) bool {
	return target == ErrInvalidOption
}
