package crdt

import (
	"sync"
	"time"
)

// Clock выдает метки времени для локальных изменений.
type Clock interface {
	Now() time.Time
}

// WallClock - системные часы в UTC.
type WallClock struct{}

// Now возвращает текущее время в UTC.
func (WallClock) Now() time.Time {
	return time.Now().UTC()
}

// HybridClock - часы по схеме Лампорта поверх физического времени.
// Метки строго возрастают и никогда не отстают от уже увиденных меток других реплик,
// поэтому локальная правка, сделанная после импорта, всегда новее импортированной версии.
type HybridClock struct {
	source Clock
	last   time.Time
	mu     sync.Mutex
}

// NewHybridClock создает часы поверх source (nil - системные часы).
func NewHybridClock(source Clock) *HybridClock {
	if source == nil {
		source = WallClock{}
	}
	return &HybridClock{source: source}
}

// Now возвращает max(физическое время, последняя метка + 1мкс).
func (c *HybridClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.source.Now().UTC()
	if !now.After(c.last) {
		now = c.last.Add(time.Microsecond)
	}
	c.last = now
	return now
}

// Observe учитывает метку, полученную от другой реплики.
// Согласно алгоритму Лампорта: last = max(last, remote)
func (c *HybridClock) Observe(remote time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if remote.After(c.last) {
		c.last = remote.UTC()
	}
}

// Last возвращает последнюю выданную или увиденную метку.
func (c *HybridClock) Last() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.last
}
