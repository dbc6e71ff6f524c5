package cache

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/MeKo-Tech/zebranoise/internal/volume"
)

// Chunk loads chunk index of the stimulus identified by key.
func (s *Store) Chunk(key string, index int) (*volume.Volume, error) {
	var compressed []byte
	err := s.db.QueryRow(
		"SELECT chunk_data FROM chunks WHERE key=? AND chunk_index=?",
		key, index,
	).Scan(&compressed)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chunk %d of %s: %w", index, key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk: %w", err)
	}

	raw, err := gzipDecompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress chunk %d: %w", index, err)
	}

	v := &volume.Volume{}
	if err := v.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("failed to decode chunk %d: %w", index, err)
	}
	return v, nil
}

// Stats returns the statistics stored for key. A stimulus only has stats once
// it has been fully prepared.
func (s *Store) Stats(key string) (Stats, error) {
	var st Stats
	var lo, hi float64
	err := s.db.QueryRow(
		"SELECT params, min, max, frames, chunks FROM stimuli WHERE key=?", key,
	).Scan(&st.Params, &lo, &hi, &st.Frames, &st.Chunks)

	if errors.Is(err, sql.ErrNoRows) {
		return Stats{}, fmt.Errorf("stats of %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return Stats{}, fmt.Errorf("failed to query stats: %w", err)
	}
	st.Min, st.Max = float32(lo), float32(hi)
	return st, nil
}

// Complete reports whether key has stats and all of its chunks stored.
func (s *Store) Complete(key string) (bool, error) {
	st, err := s.Stats(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM chunks WHERE key=?", key).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count == st.Chunks, nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	return io.ReadAll(gr)
}
