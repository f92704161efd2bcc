package safemap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeMap(t *testing.T) {
	t.Run("zero value is usable", func(t *testing.T) {
		var m SafeMap[uint32, string]
		assert.Equal(t, 0, m.Len())

		v, ok := m.Load(1)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("store replaces and delete removes", func(t *testing.T) {
		m := New[uint32, string]()
		m.Store(1, "alice")
		m.Store(1, "bob")

		v, ok := m.Load(1)
		assert.True(t, ok)
		assert.Equal(t, "bob", v)

		m.Delete(1)
		m.Delete(42)
		assert.Equal(t, 0, m.Len())
	})

	t.Run("range stops when f returns false", func(t *testing.T) {
		m := New[uint32, string]()
		for i := uint32(0); i < 5; i++ {
			m.Store(i, "p")
		}

		visited := 0
		m.Range(func(uint32, string) bool {
			visited++
			return visited < 2
		})
		assert.Equal(t, 2, visited)
		assert.Equal(t, 5, m.Len())
	})
}

func TestSafeMap_Concurrent(t *testing.T) {
	m := New[int, int]()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.Store(g*100+i, i)
				if i%2 == 0 {
					m.Delete(g*100 + i)
				}
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 400, m.Len())
}
