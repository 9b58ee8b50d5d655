// Package expreval implements the sandboxed formula/condition evaluator (C1):
// it compiles and runs expr-lang programs against a restricted environment,
// rejecting anything the sandbox does not allow and caching compiled
// programs (grounded on the pack's expr-lang condition cache).
package expreval

import (
	"container/list"
	"sync"

	"github.com/expr-lang/expr/vm"
)

// programCache is a thread-safe LRU cache for compiled expr-lang programs,
// keyed on the raw expression source.
type programCache struct {
	capacity int
	entries  map[string]*list.Element
	order    *list.List
	mu       sync.RWMutex
}

type cacheEntry struct {
	key     string
	program *vm.Program
}

func newProgramCache(capacity int) *programCache {
	if capacity <= 0 {
		capacity = 256
	}
	return &programCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *programCache) get(expr string) (*vm.Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[expr]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).program, true
}

func (c *programCache) put(expr string, program *vm.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[expr]; ok {
		c.order.MoveToFront(el)
		el.Value.(*cacheEntry).program = program
		return
	}
	el := c.order.PushFront(&cacheEntry{key: expr, program: program})
	c.entries[expr] = el
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
}

func (c *programCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}
