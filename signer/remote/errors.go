package remote

import (
	"fmt"

	"github.com/openweb3-io/liquidsigner/types"
	"github.com/pkg/errors"
)

var (
	// ErrDisconnected is returned once the session is lost. The session must
	// be dialed again before it can be used.
	ErrDisconnected = errors.New("device disconnected")
	// ErrTimeout is returned when the device does not answer in time.
	ErrTimeout = errors.New("device timeout")
	// ErrProtocol is returned when the device answers something we cannot trust.
	ErrProtocol = errors.New("device protocol violation")
	// ErrInvalidPset is returned when the pset cannot be sent to the device.
	ErrInvalidPset = errors.New("invalid pset")
)

// DeviceError is an error reported by the device itself.
type DeviceError struct {
	Method Method
	Err    *types.Error
}

func (e *DeviceError) Error() string {
	msg := fmt.Sprintf("device %s: %s (code %d)", e.Method, e.Err.Message, e.Err.Code)
	if ctx := e.Err.Context(); ctx != "" {
		msg += ": " + ctx
	}
	return msg
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Rejected reports whether the operator refused the request on the device.
func (e *DeviceError) Rejected() bool {
	return e.Err.Code == types.ErrRejected.Code
}
