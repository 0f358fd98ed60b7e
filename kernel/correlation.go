package kernel

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// correlations maps outgoing request msg ids to execution ids.
type correlations interface {
	add(msgID, executionID string)
	lookup(msgID string) (string, bool)
	remove(msgID string)
	len() int
}

// newCorrelations returns an unbounded table for limit <= 0 and an LRU
// holding at most limit entries otherwise.
func newCorrelations(limit int) (correlations, error) {
	if limit <= 0 {
		return correlationMap{}, nil
	}
	cache, err := lru.New[string, string](limit)
	if err != nil {
		return nil, fmt.Errorf("failed to create correlation cache: %w", err)
	}
	return &correlationLRU{cache: cache}, nil
}

type correlationMap map[string]string

func (c correlationMap) add(msgID, executionID string) {
	c[msgID] = executionID
}

func (c correlationMap) lookup(msgID string) (string, bool) {
	id, ok := c[msgID]
	return id, ok
}

func (c correlationMap) remove(msgID string) {
	delete(c, msgID)
}

func (c correlationMap) len() int {
	return len(c)
}

type correlationLRU struct {
	cache *lru.Cache[string, string]
}

func (c *correlationLRU) add(msgID, executionID string) {
	c.cache.Add(msgID, executionID)
}

// lookup marks the entry as recently used.
func (c *correlationLRU) lookup(msgID string) (string, bool) {
	return c.cache.Get(msgID)
}

func (c *correlationLRU) remove(msgID string) {
	c.cache.Remove(msgID)
}

func (c *correlationLRU) len() int {
	return c.cache.Len()
}
