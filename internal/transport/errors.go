package transport

import "errors"

// ErrTransport indicates a transport call failed: the remote command exited
// non-zero, the copy was interrupted, or the device is unreachable. The
// executor stops issuing further actions when it sees this error.
var ErrTransport = errors.New("transport error")
