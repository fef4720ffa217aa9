package delay

import "errors"

// ErrClosed is returned when registering on a closed queue.
var ErrClosed = errors.New("delay queue closed")
