// Package cachestore holds captured upstream responses in named, versioned
// partitions. Partition names embed a version tag; bumping the tag orphans
// the old partitions so activation can delete them wholesale.
package cachestore

import (
	"context"
	"net/http"
	"time"
)

const partitionPrefix = "posd"

// Entry is a captured response body plus enough metadata to replay it.
type Entry struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"stored_at"`
}

// Clone returns a deep copy so callers can mutate safely.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	return &Entry{
		Status:   e.Status,
		Header:   e.Header.Clone(),
		Body:     append([]byte(nil), e.Body...),
		StoredAt: e.StoredAt,
	}
}

// Store is a partitioned request-identity -> response mapping.
// Writes are last-write-wins; no cross-key atomicity is promised.
type Store interface {
	// Match returns the entry stored for key, or found=false on a miss.
	Match(ctx context.Context, partition, key string) (entry *Entry, found bool, err error)
	// Put stores entry under key, overwriting any previous value. The
	// partition is created lazily on first write.
	Put(ctx context.Context, partition, key string, entry *Entry) error
	// Partitions enumerates every partition currently holding entries.
	Partitions(ctx context.Context) ([]string, error)
	// DeletePartition drops a partition and all of its entries.
	DeletePartition(ctx context.Context, partition string) error
}

// Names carries the two partition names derived from one version tag.
type Names struct {
	Static  string
	Runtime string
}

// NamesFor derives the static and runtime partition names for a version tag.
func NamesFor(version string) Names {
	return Names{
		Static:  partitionPrefix + "-static-" + version,
		Runtime: partitionPrefix + "-runtime-" + version,
	}
}

// Current reports whether partition is one of the two names.
func (n Names) Current(partition string) bool {
	return partition == n.Static || partition == n.Runtime
}

// Key builds the request identity used as a cache key.
func Key(method, url string) string {
	return method + " " + url
}

// RequestKey builds the cache key for an incoming request.
func RequestKey(r *http.Request) string {
	return Key(r.Method, r.URL.String())
}

// Cacheable reports whether a captured status may be written by the
// opportunistic strategies. Navigation responses bypass this check: a
// redirect still has to render when replayed offline.
func Cacheable(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}
