// Package cache implements the result cache (J): a TTL-bounded, best-effort
// cache over three fixed TTL classes, with concurrent fills for the same
// key deduplicated.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// TTL classes, per §4.10.
const (
	ColumnMappingTTL = 2 * time.Hour
	ResultTTL        = 30 * time.Minute
	WarmUpTTL        = 5 * time.Minute
)

// MaxFullValueBytes is the size above which a value is replaced with its
// compressed summary form rather than stored whole.
const MaxFullValueBytes = 1 << 20 // 1 MiB

// Entry is what the cache stores and returns: the value (or its summary)
// plus whether it was summarized.
type Entry struct {
	Value      []byte
	Summarized bool
}

// Cache is the J contract: get(key) -> value?, put(key, value, ttl). It
// never guarantees presence; every caller must tolerate a miss.
type Cache struct {
	columnMapping *expirable.LRU[string, Entry]
	result        *expirable.LRU[string, Entry]
	warmUp        *expirable.LRU[string, Entry]
	fills         singleflight.Group
}

// New builds a Cache with size entries per TTL class.
func New(size int) *Cache {
	return &Cache{
		columnMapping: expirable.NewLRU[string, Entry](size, nil, ColumnMappingTTL),
		result:        expirable.NewLRU[string, Entry](size, nil, ResultTTL),
		warmUp:        expirable.NewLRU[string, Entry](size, nil, WarmUpTTL),
	}
}

// Key builds a stable hash of (op, file_id, sorted_parts, mode, page_size,
// show_all), per §4.10.
func Key(op string, fileID int64, parts []string, mode string, pageSize int, showAll bool) string {
	sorted := make([]string, len(parts))
	copy(sorted, parts)
	sort.Strings(sorted)

	var b strings.Builder
	b.WriteString(op)
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(fileID, 10))
	b.WriteByte('|')
	b.WriteString(strings.Join(sorted, ","))
	b.WriteByte('|')
	b.WriteString(mode)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(pageSize))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(showAll))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) bucketFor(ttl time.Duration) *expirable.LRU[string, Entry] {
	switch {
	case ttl >= ColumnMappingTTL:
		return c.columnMapping
	case ttl <= WarmUpTTL:
		return c.warmUp
	default:
		return c.result
	}
}

// Get returns the cached entry for key, if present and unexpired.
func (c *Cache) Get(key string, ttl time.Duration) (Entry, bool) {
	return c.bucketFor(ttl).Get(key)
}

// Put stores value under key for ttl. Values larger than
// MaxFullValueBytes are replaced with their summary form (see Summarize).
func (c *Cache) Put(key string, value []byte, ttl time.Duration) {
	entry := Entry{Value: value}
	if len(value) > MaxFullValueBytes {
		entry.Value = Summarize(value)
		entry.Summarized = true
	}
	c.bucketFor(ttl).Add(key, entry)
}

// GetOrFill returns the cached entry for key, or calls fill to produce and
// cache one. Concurrent GetOrFill calls for the same key share a single
// in-flight fill.
func (c *Cache) GetOrFill(key string, ttl time.Duration, fill func() ([]byte, error)) (Entry, error) {
	if entry, ok := c.Get(key, ttl); ok {
		return entry, nil
	}

	v, err, _ := c.fills.Do(key, func() (interface{}, error) {
		value, err := fill()
		if err != nil {
			return nil, err
		}
		c.Put(key, value, ttl)
		entry, _ := c.Get(key, ttl)
		return entry, nil
	})
	if err != nil {
		return Entry{}, err
	}
	return v.(Entry), nil
}

// Summarize replaces a large result payload with a short text that records
// only the payload's length in bytes. No totals or per-part match counts
// are kept; the summarized entry holds nothing of the result itself.
func Summarize(value []byte) []byte {
	return []byte(fmt.Sprintf("summary: %d bytes omitted", len(value)))
}
