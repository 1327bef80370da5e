package stream

import "errors"

// ErrStreamClosed is reported when an event stream ends without a terminal
// done or error event.
var ErrStreamClosed = errors.New("stream closed before completion")
