package idgenerator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdGenerator(t *testing.T) {
	t.Run("zero value starts at one", func(t *testing.T) {
		var g IdGenerator
		assert.Equal(t, uint32(1), g.Next())
		assert.Equal(t, uint32(2), g.Next())
	})

	t.Run("custom start", func(t *testing.T) {
		g := NewIdGenerator(100)
		assert.Equal(t, uint32(101), g.Next())
	})

	t.Run("wraps after the maximum", func(t *testing.T) {
		g := NewIdGenerator(^uint32(0))
		assert.Equal(t, uint32(0), g.Next())
	})
}

func TestIdGenerator_ConcurrentIdsAreUnique(t *testing.T) {
	g := NewIdGenerator(0)

	var (
		mu   sync.Mutex
		seen = make(map[uint32]bool)
		wg   sync.WaitGroup
	)
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := g.Next()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000)
}
