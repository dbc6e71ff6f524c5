package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/zebranoise/internal/volume"
)

func testVolume(t *testing.T, nt int, offset float32) *volume.Volume {
	t.Helper()
	v, err := volume.New(3, 2, nt)
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}
	for i := range v.Data {
		v.Data[i] = offset + float32(i)/10
	}
	return v
}

func TestStore_Open(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("Database file was not created")
	}

	for _, table := range []string{"stimuli", "chunks"} {
		var count int
		err = s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("Failed to query schema: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected %s table to exist, got count=%d", table, count)
		}
	}
}

func TestStore_ChunkRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	chunks := []*volume.Volume{testVolume(t, 2, 0), testVolume(t, 2, 1), testVolume(t, 1, -1)}
	for i, v := range chunks {
		if err := s.PutChunk("abc", i, v); err != nil {
			t.Fatalf("Failed to write chunk %d: %v", i, err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	// Re-open and read back.
	s, err = Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer s.Close()

	for i, want := range chunks {
		got, err := s.Chunk("abc", i)
		if err != nil {
			t.Fatalf("Failed to read chunk %d: %v", i, err)
		}
		if got.NX != want.NX || got.NY != want.NY || got.NT != want.NT {
			t.Fatalf("Chunk %d shape mismatch: got %dx%dx%d", i, got.NX, got.NY, got.NT)
		}
		for j := range want.Data {
			if got.Data[j] != want.Data[j] {
				t.Fatalf("Chunk %d sample %d: got %v, want %v", i, j, got.Data[j], want.Data[j])
			}
		}
	}

	if _, err := s.Chunk("abc", 3); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing chunk, got %v", err)
	}
	if _, err := s.Chunk("other", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for other key, got %v", err)
	}
}

func TestStore_ReplaceExisting(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	if err := s.PutChunk("k", 0, testVolume(t, 1, 0)); err != nil {
		t.Fatalf("Failed to write first chunk: %v", err)
	}
	if err := s.PutChunk("k", 0, testVolume(t, 1, 5)); err != nil {
		t.Fatalf("Failed to write second chunk: %v", err)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		t.Fatalf("Failed to query chunks: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 chunk (replaced), got %d", count)
	}

	got, err := s.Chunk("k", 0)
	if err != nil {
		t.Fatalf("Failed to read chunk: %v", err)
	}
	if got.Data[0] != 5 {
		t.Errorf("Expected replaced data, got first sample %v", got.Data[0])
	}
}

func TestStore_StatsAndComplete(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	if _, err := s.Stats("k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound before stats are written, got %v", err)
	}
	ok, err := s.Complete("k")
	if err != nil || ok {
		t.Fatalf("Expected incomplete entry, got %v, %v", ok, err)
	}

	if err := s.PutChunk("k", 0, testVolume(t, 2, 0)); err != nil {
		t.Fatalf("Failed to write chunk: %v", err)
	}
	want := Stats{Params: `{"a":1}`, Min: -0.25, Max: 0.75, Frames: 4, Chunks: 2}
	if err := s.PutStats("k", want); err != nil {
		t.Fatalf("Failed to write stats: %v", err)
	}

	got, err := s.Stats("k")
	if err != nil {
		t.Fatalf("Failed to read stats: %v", err)
	}
	if got != want {
		t.Errorf("Stats mismatch: got %+v, want %+v", got, want)
	}

	// One of two chunks stored.
	if ok, _ := s.Complete("k"); ok {
		t.Error("Expected entry with a missing chunk to be incomplete")
	}
	if err := s.PutChunk("k", 1, testVolume(t, 2, 0)); err != nil {
		t.Fatalf("Failed to write chunk: %v", err)
	}
	if ok, _ := s.Complete("k"); !ok {
		t.Error("Expected entry to be complete")
	}

	if err := s.Delete("k"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := s.Chunk("k", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected chunks to be deleted, got %v", err)
	}
	if _, err := s.Stats("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected stats to be deleted, got %v", err)
	}
}

func TestKey(t *testing.T) {
	type params struct {
		Size int
		Rate float64
	}

	k1, enc, err := Key(params{Size: 10, Rate: 0.5})
	if err != nil {
		t.Fatalf("Key failed: %v", err)
	}
	if len(k1) != 32 {
		t.Errorf("Expected 32 hex characters, got %q", k1)
	}
	if enc != `{"Size":10,"Rate":0.5}` {
		t.Errorf("Unexpected encoding %q", enc)
	}

	k2, _, _ := Key(params{Size: 10, Rate: 0.5})
	k3, _, _ := Key(params{Size: 11, Rate: 0.5})
	if k1 != k2 {
		t.Error("Expected equal params to give equal keys")
	}
	if k1 == k3 {
		t.Error("Expected different params to give different keys")
	}
}
