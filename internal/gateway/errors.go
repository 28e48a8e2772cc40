package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// GatewayError classifies gateway call failures as transient or
// permanent. Code and Description mirror the API's error envelope.
type GatewayError struct {
	Code        int
	Description string
	Transient   bool
	Cause       error
}

func (e *GatewayError) Error() string {
	if e == nil {
		return "<nil>"
	}

	desc := strings.TrimSpace(e.Description)
	if desc == "" {
		desc = "unknown"
	}
	msg := fmt.Sprintf("%d:%s", e.Code, desc)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Cause.Error())
	}
	return msg
}

func (e *GatewayError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether an error would have been worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var gatewayErr *GatewayError
	if errors.As(err, &gatewayErr) {
		return gatewayErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
