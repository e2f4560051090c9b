// Package hits counts how often each post's detail page was viewed.
package hits

import (
	"context"
	"sync"
)

// Counter keeps a view count per post.
type Counter interface {
	// Incr adds one view to the post and returns the new count.
	Incr(ctx context.Context, postID int64) (int64, error)
	// Get returns the current count, zero for posts never viewed.
	Get(ctx context.Context, postID int64) (int64, error)
	// Reset forgets all counts.
	Reset(ctx context.Context) error
}

// MemoryCounter is a Counter local to the process.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[int64]int64
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[int64]int64)}
}

func (c *MemoryCounter) Incr(_ context.Context, postID int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[postID]++
	return c.counts[postID], nil
}

func (c *MemoryCounter) Get(_ context.Context, postID int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[postID], nil
}

func (c *MemoryCounter) Reset(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[int64]int64)
	return nil
}
