package software

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrClosed            = errors.New("signer closed")
	ErrMalformedPset     = errors.New("malformed pset")
	ErrMissingUtxo       = errors.New("input is missing its previous output")
	ErrUtxoMismatch      = errors.New("previous transaction does not match the spent outpoint")
	ErrScriptMismatch    = errors.New("previous output script does not pay to the derived key")
	ErrUnsupportedScript = errors.New("unsupported previous output script")
)

// SignError reports the input that could not be signed.
// Input is -1 when the failure concerns the whole transaction.
type SignError struct {
	Input int
	Err   error
}

func (e *SignError) Error() string {
	if e.Input < 0 {
		return fmt.Sprintf("sign pset: %v", e.Err)
	}
	return fmt.Sprintf("sign input %d: %v", e.Input, e.Err)
}

func (e *SignError) Unwrap() error {
	return e.Err
}
