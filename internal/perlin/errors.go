package perlin

import "errors"

var (
	// ErrInvalidArgument marks parameters outside their domain, such as a
	// non-positive octave count.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrOutOfRange marks a sample coordinate at or beyond its tiling period,
	// or a seed outside [0, 255].
	ErrOutOfRange = errors.New("out of range")
)
