package cache

import (
	"bytes"
	"testing"
	"time"
)

func TestEmbedKey_ModelSeparation(t *testing.T) {
	a := EmbedKey("model-a", "same text")
	b := EmbedKey("model-b", "same text")
	if a == b {
		t.Error("expected different keys for different models")
	}
	if a != EmbedKey("model-a", "same text") {
		t.Error("expected stable key for identical inputs")
	}
}

func TestDiskCache_Roundtrip(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)

	key := EmbedKey("m", "some chunk text")
	value := []byte{1, 2, 3, 4}

	if err := c.Set(key, value, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, found := c.Get(key)
	if !found {
		t.Fatal("expected cache hit")
	}
	if !bytes.Equal(got, value) {
		t.Errorf("expected %v, got %v", value, got)
	}

	if _, found := c.Get(EmbedKey("m", "other text")); found {
		t.Error("expected miss for different text")
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)

	key := EmbedKey("m", "short lived")
	if err := c.Set(key, []byte{9}, time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(time.Millisecond)

	if _, found := c.Get(key); found {
		t.Error("expected expired entry to miss")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	layered := NewLayeredCache(time.Minute, dir, time.Hour)

	key := EmbedKey("m", "text")
	if err := layered.Set(key, []byte{7}, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// A fresh layered cache over the same dir has a cold memory layer
	// but must still find the entry on disk.
	reopened := NewLayeredCache(time.Minute, dir, time.Hour)
	got, found := reopened.Get(key)
	if !found {
		t.Fatal("expected disk hit through fresh layered cache")
	}
	if len(got) != 1 || got[0] != 7 {
		t.Errorf("unexpected value %v", got)
	}
}
