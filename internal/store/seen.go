// Package store provides bounded seen-intent tracking for duplicate share
// deliveries, using a Bloom filter fast path in front of an LRU-evicted set.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"

	"songmoment/internal/core"
)

const bloomFalsePositiveRate = 0.001

// SeenStore remembers fingerprints of recently processed share intents.
// Mobile share sheets redeliver intents on app relaunch; exact duplicates
// are dropped at the service boundary so the pipeline sees each share once.
type SeenStore struct {
	fingerprints map[string]struct{}
	bloom        *bloom.BloomFilter
	lru          *lru.Cache[string, struct{}]
	mutex        sync.RWMutex
	capacity     int
}

func NewSeenStore(capacity int) *SeenStore {
	if capacity <= 0 {
		capacity = 1
	}
	cache, _ := lru.New[string, struct{}](capacity)

	return &SeenStore{
		fingerprints: make(map[string]struct{}),
		bloom:        bloom.NewWithEstimates(uint(capacity), bloomFalsePositiveRate),
		lru:          cache,
		capacity:     capacity,
	}
}

// Has checks whether a fingerprint was recorded. The Bloom filter answers
// definite misses without touching the set.
func (s *SeenStore) Has(fingerprint string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.bloom.TestString(fingerprint) {
		return false
	}
	_, exists := s.fingerprints[fingerprint]
	return exists
}

// Add records a fingerprint, evicting the oldest entry past capacity.
func (s *SeenStore) Add(fingerprint string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.fingerprints[fingerprint]; exists {
		return
	}

	s.fingerprints[fingerprint] = struct{}{}
	s.bloom.AddString(fingerprint)
	s.lru.Add(fingerprint, struct{}{})

	if len(s.fingerprints) > s.capacity {
		s.evictOldest()
	}
}

// Size returns the number of fingerprints currently stored.
func (s *SeenStore) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.fingerprints)
}

func (s *SeenStore) evictOldest() {
	oldest, _, ok := s.lru.GetOldest()
	if !ok {
		return
	}
	delete(s.fingerprints, oldest)
	s.lru.Remove(oldest)
	// The Bloom filter cannot forget; stale positives still hit the set and
	// resolve correctly there.
}

// Fingerprint derives a stable identity for one share intent from its
// visible content.
func Fingerprint(intent core.ShareIntent) string {
	var b strings.Builder
	b.WriteString(intent.DeviceID)
	b.WriteByte(0)
	b.WriteString(intent.URL)
	b.WriteByte(0)
	b.WriteString(intent.Text)
	for _, a := range intent.Attachments {
		b.WriteByte(0)
		b.WriteString(a.MIMEType)
		b.WriteByte(':')
		b.WriteString(a.LocalPath)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
