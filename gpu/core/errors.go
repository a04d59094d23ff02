package core

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced by the HAL. Callers branch with errors.Is; the
// concrete message carries the operation and the label of the object
// involved.
var (
	// ErrResourceCreationFailed covers any driver-side allocation or
	// object creation that did not complete.
	ErrResourceCreationFailed = errors.New("resource creation failed")
	// ErrInvalidLayout means a bind group layout is malformed, for
	// example two entries sharing a binding index.
	ErrInvalidLayout = errors.New("invalid bind group layout")
	// ErrBindingMismatch means a bind group does not provide exactly
	// the bindings its layout declares.
	ErrBindingMismatch = errors.New("bind group does not match layout")
	// ErrEncoderFinished means a command encoder was used after Finish.
	ErrEncoderFinished = errors.New("command encoder already finished")
	// ErrEncoderMisuse covers ordering violations while recording, such
	// as drawing outside a render pass.
	ErrEncoderMisuse = errors.New("command encoder misuse")
	// ErrSwapchainOutOfDate means the surface changed underneath the
	// swapchain. Reconfigure and retry; the device is still good.
	ErrSwapchainOutOfDate = errors.New("swapchain out of date")
	// ErrDeviceLost is unrecoverable. Tear down and recreate the device.
	ErrDeviceLost = errors.New("device lost")
)

// WrapError attaches the failing operation and object label to a kind
// so that errors.Is still matches the sentinel.
func WrapError(kind error, op, label string) error {
	if label == "" {
		return fmt.Errorf("%s: %w", op, kind)
	}
	return fmt.Errorf("%s (%q): %w", op, label, kind)
}
