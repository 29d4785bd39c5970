package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores embedding vectors (as raw bytes) keyed by model+text.
// Rerunning a batch over an unchanged book or dataset then costs no
// embedding calls, which also keeps reruns deterministic for a pinned
// model.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// EmbedKey generates the cache key for a text under a given embedding
// model. Vectors from different models are never interchangeable, so
// the model name is part of the hashed input.
func EmbedKey(model, text string) string {
	hash := sha256.Sum256([]byte(model + "\x00" + text))
	return "canoncheck:v1:" + hex.EncodeToString(hash[:])
}
