// Package cache stores generated noise chunks and their normalisation
// statistics in a SQLite database, so a stimulus can be prepared once and
// rendered many times.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a chunk or stimulus entry is not cached.
var ErrNotFound = errors.New("not found in cache")

// Stats holds the normalisation statistics of a prepared stimulus.
type Stats struct {
	Params string  // JSON encoding of the parameters the key was derived from
	Min    float32 // global minimum after demeaning
	Max    float32 // global maximum after demeaning
	Frames int     // number of frames stored
	Chunks int     // number of chunks stored
}

// Key derives the cache key for a parameter set: the hex md5 of its JSON
// encoding. It also returns the encoding itself for storage alongside Stats.
func Key(params any) (key, encoded string, err error) {
	b, err := json.Marshal(params)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode cache key: %w", err)
	}
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:]), string(b), nil
}
