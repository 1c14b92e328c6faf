package raster

import (
	"fmt"
	"sync"
)

// Pool переиспользует буферы кадров одного размера, чтобы пиковая память
// оставалась O(width*height) независимо от числа кадров.
type Pool struct {
	pools map[string]*sync.Pool
	mu    sync.RWMutex
}

var globalPool = NewPool()

func NewPool() *Pool {
	return &Pool{pools: make(map[string]*sync.Pool)}
}

func key(width, height int) string {
	return fmt.Sprintf("%dx%d", width, height)
}

// Get returns a zero-initialized buffer of the given size.
func (p *Pool) Get(width, height int) *Buffer {
	k := key(width, height)
	p.mu.RLock()
	pool, exists := p.pools[k]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		pool, exists = p.pools[k]
		if !exists {
			pool = &sync.Pool{
				New: func() any {
					return NewBuffer(width, height)
				},
			}
			p.pools[k] = pool
		}
		p.mu.Unlock()
	}

	b := pool.Get().(*Buffer)
	clear(b.Pix)
	return b
}

func (p *Pool) Put(b *Buffer) {
	if b == nil {
		return
	}
	k := key(b.Width, b.Height)
	p.mu.RLock()
	pool, exists := p.pools[k]
	p.mu.RUnlock()

	if exists {
		pool.Put(b)
	}
}
