// Package cache holds the in-memory caches used while correlating votes.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SignatureLength is the size of an ed25519 transaction signature.
const SignatureLength = 64

// DefaultSignatureCacheSize is the number of encoded signatures kept by default.
const DefaultSignatureCacheSize = 2048

var (
	signatureCacheHit = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voteperf_signature_cache_hit_total",
		Help: "The number of signature encodings served from the cache.",
	})
	signatureCacheMiss = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voteperf_signature_cache_miss_total",
		Help: "The number of signatures that had to be base58 encoded.",
	})
)

// ErrInvalidCacheSize is returned for a non-positive cache size.
var ErrInvalidCacheSize = errors.New("cache size must be positive")

// SignatureCache interns base58 encodings of raw signatures so a signature
// seen in both a vote transaction and a finalized block is encoded once.
// Lookups do not refresh an entry, so eviction follows insertion order.
type SignatureCache struct {
	lru *lru.Cache[[SignatureLength]byte, string]
}

// NewSignatureCache creates a cache holding at most size encodings.
func NewSignatureCache(size int) (*SignatureCache, error) {
	if size <= 0 {
		return nil, ErrInvalidCacheSize
	}
	c, err := lru.New[[SignatureLength]byte, string](size)
	if err != nil {
		return nil, errors.Wrap(err, "could not create signature lru")
	}
	return &SignatureCache{lru: c}, nil
}

// GetOrInsert returns the base58 text of sig, encoding and caching it on a
// miss. Inputs shorter than SignatureLength are zero padded, longer inputs
// are truncated.
func (c *SignatureCache) GetOrInsert(sig []byte) string {
	key := signatureKey(sig)
	if text, ok := c.lru.Peek(key); ok {
		signatureCacheHit.Inc()
		return text
	}
	signatureCacheMiss.Inc()
	text := base58.Encode(key[:])
	c.lru.Add(key, text)
	return text
}

// Contains reports whether sig is cached without touching its position.
func (c *SignatureCache) Contains(sig []byte) bool {
	return c.lru.Contains(signatureKey(sig))
}

// Len returns the number of cached encodings.
func (c *SignatureCache) Len() int {
	return c.lru.Len()
}

func signatureKey(sig []byte) [SignatureLength]byte {
	var key [SignatureLength]byte
	copy(key[:], sig)
	return key
}
