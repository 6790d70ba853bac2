package server

// Resettable is the capability contract for pooled entities: Reset must be
// idempotent and clear every instance-specific field back to its default,
// releasing any entities the instance exclusively owns.
type Resettable interface {
	Reset()
}

// Pool is a free-list reuse pool for transient simulation entities. It is not
// safe for concurrent use; all engine mutation happens under the hub mutex.
type Pool[T Resettable] struct {
	factory func() T
	free    []T
}

// NewPool constructs a pool around a factory producing fresh instances.
func NewPool[T Resettable](factory func() T) *Pool[T] {
	return &Pool[T]{factory: factory}
}

// Acquire pops a previously released instance or invokes the factory.
func (p *Pool[T]) Acquire() T {
	if n := len(p.free); n > 0 {
		item := p.free[n-1]
		var zero T
		p.free[n-1] = zero
		p.free = p.free[:n-1]
		return item
	}
	return p.factory()
}

// Release resets the instance and pushes it onto the free list.
func (p *Pool[T]) Release(item T) {
	item.Reset()
	p.free = append(p.free, item)
}

// Clear empties the free list without resetting the discarded instances;
// they are simply garbage collected. Used on full simulation reset.
func (p *Pool[T]) Clear() {
	for i := range p.free {
		var zero T
		p.free[i] = zero
	}
	p.free = p.free[:0]
}

// FreeLen reports how many instances are parked on the free list.
func (p *Pool[T]) FreeLen() int {
	return len(p.free)
}
