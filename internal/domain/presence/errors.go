package presence

import "errors"

var (
	// ErrUnavailable wraps storage failures. Callers on the routing path
	// treat it as "assume unreachable" rather than failing the request.
	ErrUnavailable = errors.New("presence registry unavailable")
)
