package ecs

// EntityID packs a 32-bit slot index (low bits) and a 32-bit generation
// (high bits). Despawning bumps the generation so stale IDs stop resolving.
type EntityID uint64

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }

// entityPool hands out slots, recycling freed ones with a new generation.
type entityPool struct {
	generations []uint32
	free        []uint32
}

func newEntityPool() *entityPool {
	return &entityPool{
		generations: make([]uint32, 0, 256),
		free:        make([]uint32, 0, 64),
	}
}

func (p *entityPool) create() EntityID {
	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		return NewEntityID(idx, p.generations[idx])
	}
	idx := uint32(len(p.generations))
	p.generations = append(p.generations, 0)
	return NewEntityID(idx, 0)
}

func (p *entityPool) alive(id EntityID) bool {
	idx := id.Index()
	return int(idx) < len(p.generations) && p.generations[idx] == id.Generation()
}

// destroy returns false for stale or unknown IDs.
func (p *entityPool) destroy(id EntityID) bool {
	if !p.alive(id) {
		return false
	}
	idx := id.Index()
	p.generations[idx]++
	p.free = append(p.free, idx)
	return true
}

func (p *entityPool) count() int {
	return len(p.generations) - len(p.free)
}
