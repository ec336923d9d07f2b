package messages

import (
	"errors"
	"fmt"

	"github.com/Divine-P-77777/studylocal/internal/config"
)

// ErrValidation is wrapped by every rejection of a malformed message.
var ErrValidation = errors.New("validation failed")

var (
	ErrEmptyBody     = fmt.Errorf("%w: message body is empty", ErrValidation)
	ErrBodyTooLong   = fmt.Errorf("%w: message exceeds %d words or %d characters", ErrValidation, config.MaxMessageWords, config.MaxMessageChars)
	ErrInvalidRoom   = fmt.Errorf("%w: malformed room id", ErrValidation)
	ErrMissingSender = fmt.Errorf("%w: sender is required", ErrValidation)
)
