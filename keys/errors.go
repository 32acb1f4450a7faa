package keys

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidPath     = errors.New("invalid derivation path")
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
	ErrInvalidKey      = errors.New("invalid extended key")
)

// DerivationError is returned when a path is malformed or a child cannot be derived.
type DerivationError struct {
	Path string
	Err  error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("derivation of %q failed: %v", e.Path, e.Err)
}

func (e *DerivationError) Unwrap() error {
	return e.Err
}
