package signer

import (
	"context"
	"fmt"

	"github.com/openweb3-io/liquidsigner/keys"
	"github.com/openweb3-io/liquidsigner/signer/remote"
	"github.com/openweb3-io/liquidsigner/signer/software"
	"github.com/pkg/errors"
)

type Op string

const (
	OpDeriveXpub  Op = "derive_xpub"
	OpBlindingKey Op = "slip77_master_blinding_key"
	OpSign        Op = "sign"
	OpConnect     Op = "connect"
)

type ErrorKind string

const (
	ErrKindDerivation   ErrorKind = "derivation"
	ErrKindSigning      ErrorKind = "signing"
	ErrKindDisconnected ErrorKind = "disconnected"
	ErrKindTimeout      ErrorKind = "timeout"
	ErrKindRejected     ErrorKind = "rejected"
	ErrKindBusy         ErrorKind = "busy"
	ErrKindProtocol     ErrorKind = "protocol"
	ErrKindClosed       ErrorKind = "closed"
)

// ErrNoBackend is returned by an AnySigner built without a backend.
var ErrNoBackend = errors.New("no signer backend")

// Error is what every signer backend failure looks like to callers of AnySigner.
type Error struct {
	Backend Kind
	Op      Op
	Kind    ErrorKind
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s signer %s: %s: %v", e.Backend, e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retriable reports whether the same call may succeed later, possibly after
// reconnecting.
func (e *Error) Retriable() bool {
	switch e.Kind {
	case ErrKindDisconnected, ErrKindTimeout, ErrKindBusy:
		return true
	}
	return false
}

func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func translate(backend Kind, op Op, err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return err
	}
	return &Error{
		Backend: backend,
		Op:      op,
		Kind:    classify(op, err),
		Err:     err,
	}
}

func classify(op Op, err error) ErrorKind {
	var deviceErr *remote.DeviceError
	var derivationErr *keys.DerivationError
	switch {
	case errors.Is(err, remote.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrKindTimeout
	case errors.Is(err, remote.ErrDisconnected):
		return ErrKindDisconnected
	case errors.As(err, &deviceErr) && deviceErr.Rejected():
		return ErrKindRejected
	case deviceErr != nil && deviceErr.Err.Retriable:
		return ErrKindBusy
	case errors.Is(err, remote.ErrProtocol):
		return ErrKindProtocol
	case errors.Is(err, software.ErrClosed), errors.Is(err, ErrNoBackend):
		return ErrKindClosed
	case errors.As(err, &derivationErr):
		return ErrKindDerivation
	case op == OpSign:
		return ErrKindSigning
	}
	return ErrKindDerivation
}
