package practice

import (
	"github.com/pkg/errors"

	"github.com/example/korbot/internal/store"
)

var (
	// ErrInvalidReference is returned when a student or item does not exist
	ErrInvalidReference = errors.New("unknown student or item")
	// ErrInvalidOutcome is returned for quality or sub-scores outside [0, 1]
	ErrInvalidOutcome = errors.New("invalid outcome")
)

// reference turns a missing row into ErrInvalidReference
func reference(err error, format string, args ...interface{}) error {
	if errors.Is(err, store.ErrNotFound) {
		return errors.Wrapf(ErrInvalidReference, format, args...)
	}
	return err
}
