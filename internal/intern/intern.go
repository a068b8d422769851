// Package intern deduplicates repeated strings (town, district and street
// names) across parsed records.
//
// Cells produced by encoding/csv are substrings of the whole decoded line, so
// keeping one alive keeps the line alive. Interning stores a clone on first
// sight and hands that clone out afterwards, which drops both the duplicates
// and the line buffers.
package intern

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Pool is a bounded, concurrency-safe string interner. Least recently used
// strings are evicted once Size distinct values have been seen; evicted
// values are simply cloned again on their next appearance.
type Pool struct {
	cache *lru.Cache[string, string]
}

// New returns a Pool holding at most size distinct strings.
func New(size int) (*Pool, error) {
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("intern: %w", err)
	}
	return &Pool{cache: c}, nil
}

// Intern returns the canonical copy of s.
func (p *Pool) Intern(s string) string {
	if s == "" {
		return ""
	}
	if v, ok := p.cache.Get(s); ok {
		return v
	}
	v := strings.Clone(s)
	p.cache.Add(v, v)
	return v
}

// Len reports how many distinct strings are currently held.
func (p *Pool) Len() int { return p.cache.Len() }
