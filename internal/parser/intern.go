package parser

import "sync"

// StringIntern provides thread-safe string interning. The same handful of
// user, host and feature names repeat for every checkout in a large log;
// interning makes all of those entries share one backing string.
type StringIntern struct {
	mu   sync.RWMutex
	pool map[string]string
}

// MaxInternPoolSize caps the pool so pathological logs with endless unique
// tokens cannot grow it without bound.
const MaxInternPoolSize = 100000

// NewStringIntern creates a new string interner.
func NewStringIntern() *StringIntern {
	return &StringIntern{pool: make(map[string]string, 1024)}
}

// Intern returns the canonical version of s, storing it if the pool has
// room. Past the size cap the input is returned unpooled.
func (si *StringIntern) Intern(s string) string {
	si.mu.RLock()
	if pooled, ok := si.pool[s]; ok {
		si.mu.RUnlock()
		return pooled
	}
	full := len(si.pool) >= MaxInternPoolSize
	si.mu.RUnlock()
	if full {
		return s
	}

	si.mu.Lock()
	defer si.mu.Unlock()
	if pooled, ok := si.pool[s]; ok {
		return pooled
	}
	if len(si.pool) >= MaxInternPoolSize {
		return s
	}
	si.pool[s] = s
	return s
}

// Len returns the number of unique strings in the pool.
func (si *StringIntern) Len() int {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return len(si.pool)
}

// Clear removes all interned strings.
func (si *StringIntern) Clear() {
	si.mu.Lock()
	defer si.mu.Unlock()
	si.pool = make(map[string]string, 1024)
}
