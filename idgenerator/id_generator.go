// Package idgenerator hands out increasing uint32 ids, such as player ids
// on the dev server.
package idgenerator

import "sync/atomic"

// IdGenerator is safe for concurrent use. The zero value starts at 1.
type IdGenerator struct {
	id atomic.Uint32
}

// NewIdGenerator returns a generator whose first id is start+1.
//
// Parameters:
//   - start: Value before the first id
//
// Returns:
//   - A new IdGenerator
func NewIdGenerator(start uint32) *IdGenerator {
	g := &IdGenerator{}
	g.id.Store(start)

	return g
}

// Next returns the next id. It wraps to 0 after math.MaxUint32.
func (g *IdGenerator) Next() uint32 {
	return g.id.Add(1)
}
