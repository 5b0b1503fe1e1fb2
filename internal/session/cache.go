// Package session provides the process-local conversation history cache.
package session

import (
	"sync"

	"github.com/lumenchat/lumenchat/internal/domain"
)

// entry distinguishes an un-hydrated conversation from one that is loaded
// and genuinely empty.
type entry struct {
	messages []domain.Message
}

// Cache is an in-process cache of conversation histories. It is not the
// source of truth: callers hydrate it from durable storage on a miss, and it
// never survives a restart. Constructed once at startup and injected.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	locks   map[string]*sync.Mutex
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		locks:   make(map[string]*sync.Mutex),
	}
}

// Lock acquires the per-conversation lock and returns its unlock func. Two
// concurrent turns on one conversation would otherwise interleave history
// reads and writes.
func (c *Cache) Lock(conversationID string) func() {
	c.mu.Lock()
	l, ok := c.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[conversationID] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Get returns the cached history and whether the conversation has been
// hydrated at all. A loaded, empty conversation returns (nil, true).
func (c *Cache) Get(conversationID string) ([]domain.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[conversationID]
	if !ok {
		return nil, false
	}
	out := make([]domain.Message, len(e.messages))
	copy(out, e.messages)
	return out, true
}

// Put replaces the cached history, marking the conversation hydrated even
// when messages is empty.
func (c *Cache) Put(conversationID string, messages []domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry{messages: make([]domain.Message, len(messages))}
	copy(e.messages, messages)
	c.entries[conversationID] = e
}

// Append adds messages to an already-hydrated conversation. Appending to an
// un-hydrated one hydrates it with just these messages, which is only
// correct for brand-new conversations.
func (c *Cache) Append(conversationID string, messages ...domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[conversationID]
	if !ok {
		e = &entry{}
		c.entries[conversationID] = e
	}
	e.messages = append(e.messages, messages...)
}

// Invalidate drops a conversation from the cache.
func (c *Cache) Invalidate(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, conversationID)
}
