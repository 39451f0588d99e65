package mission

import (
	"sync"
)

// Context holds the currently active mission tracker. The engine swaps it
// when the player starts or leaves a mission; readers may poll concurrently.
type Context struct {
	mu     sync.RWMutex
	active *Tracker
}

// NewContext creates a Context with no active mission.
func NewContext() *Context {
	return &Context{}
}

// Active returns the current tracker, or nil outside a mission.
func (c *Context) Active() *Tracker {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// SetActive installs a tracker as the current mission.
func (c *Context) SetActive(t *Tracker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = t
}

// Clear removes the active mission.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = nil
}
