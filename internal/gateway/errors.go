package gateway

import (
	"errors"
	"fmt"
)

// genericDetail is shown when the gateway fails without a structured payload.
const genericDetail = "Unknown error occurred"

// RemoteError is a structured failure returned by the gateway for a single
// request: a non-2xx status with (usually) a {"detail": "..."} body.
type RemoteError struct {
	StatusCode int
	Detail     string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message())
}

// Message is the human-readable detail, with a generic fallback when the
// gateway sent no structured payload.
func (e *RemoteError) Message() string {
	if e.Detail == "" {
		return genericDetail
	}
	return e.Detail
}

// ErrorDetail extracts a renderable message from any gateway failure:
// the structured detail for a RemoteError, a generic message otherwise.
func ErrorDetail(err error) string {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Message()
	}
	return genericDetail
}

// IsRemote reports whether err is a structured gateway failure, as opposed
// to a transport or decode failure.
func IsRemote(err error) bool {
	var remote *RemoteError
	return errors.As(err, &remote)
}
