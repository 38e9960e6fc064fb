package note

import "errors"

// ErrConcurrentEdit is returned when a compare-and-swap write loses to a
// concurrent update of the same recording.
var ErrConcurrentEdit = errors.New("recording was modified concurrently")

// ErrNotFound is returned when no recording exists for the given id.
var ErrNotFound = errors.New("recording not found")
