// Package completion holds the per-suggestion state of the engine: the
// character cursor validated against typing, the candidate set returned by the
// backend, and the line tracking used for acceptance statistics.
package completion

import "sync"

// Cache is a cursor over one pending suggestion. It is Invalid (cursor -1)
// when empty and Valid(cursor) with cursor in [0, len) otherwise.
//
// Exhaustion is not invalidation: Next on the last character reports
// exhaustion and leaves the cursor in place until the caller resets.
type Cache struct {
	mu      sync.RWMutex
	content []rune
	cursor  int
}

// NewCache returns an Invalid cache.
func NewCache() *Cache {
	return &Cache{cursor: -1}
}

// Reset replaces the cached suggestion and returns the previous content and
// cursor. An empty content leaves the cache Invalid.
func (c *Cache) Reset(content string) (prev string, prevCursor int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, prevCursor = string(c.content), c.cursor
	c.content = []rune(content)
	if len(c.content) == 0 {
		c.content = nil
		c.cursor = -1
	} else {
		c.cursor = 0
	}
	return prev, prevCursor
}

// Valid reports whether a suggestion is cached.
func (c *Cache) Valid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cursor >= 0
}

// Next returns the character under the cursor. When more characters follow it
// advances and returns the remaining suffix with ok set; on the last character
// it returns ok false without moving. It is a no-op on an Invalid cache.
func (c *Cache) Next() (r rune, rest string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next()
}

func (c *Cache) next() (rune, string, bool) {
	if c.cursor < 0 {
		return 0, "", false
	}
	r := c.content[c.cursor]
	if c.cursor == len(c.content)-1 {
		return r, "", false
	}
	c.cursor++
	return r, string(c.content[c.cursor:]), true
}

// Previous moves the cursor back one character and returns the character now
// under it with the remaining suffix. At position 0 it returns ok false.
func (c *Cache) Previous() (r rune, rest string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previous()
}

func (c *Cache) previous() (rune, string, bool) {
	if c.cursor <= 0 {
		return 0, "", false
	}
	c.cursor--
	return c.content[c.cursor], string(c.content[c.cursor:]), true
}

// Step advances over typed character r if it matches the cursor.
// hit is false on a mismatch or an Invalid cache, in which case nothing moves.
// exhausted is true when r matched the last character.
func (c *Cache) Step(r rune) (hit, exhausted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cursor < 0 || c.content[c.cursor] != r {
		return false, false
	}
	_, _, more := c.next()
	return true, !more
}

// StepBack moves back over deleted character r if it is the character just
// before the cursor.
func (c *Cache) StepBack(r rune) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cursor <= 0 || c.content[c.cursor-1] != r {
		return false
	}
	c.previous()
	return true
}

// Remaining returns the suggestion text from the cursor to the end.
func (c *Cache) Remaining() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cursor < 0 {
		return ""
	}
	return string(c.content[c.cursor:])
}

// Cursor returns the cursor index, -1 when Invalid.
func (c *Cache) Cursor() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cursor
}
