// Package cache stores rendered slide frames between runs so repeated
// renders of an unchanged deck skip LibreOffice entirely.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key
	// was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A zero ttl means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// Hash computes the SHA-256 hash of data as a 64-character hex string.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashFile computes the SHA-256 hash of a file's contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// TTLRender bounds how long cached frames stay valid.
const TTLRender = 7 * 24 * time.Hour

// FrameKey identifies one rendered page of one deck at one resolution.
// Any change to the deck bytes or the DPI produces a different key.
func FrameKey(deckHash string, dpi, page int) string {
	return fmt.Sprintf("frame:%s:%d:%d", deckHash, dpi, page)
}

// DeckKey identifies the render manifest (page count) of one deck at one
// resolution.
func DeckKey(deckHash string, dpi int) string {
	return fmt.Sprintf("deck:%s:%d", deckHash, dpi)
}

// DefaultDir returns the render cache location under the user cache
// directory.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "deckproof", "render"), nil
}
