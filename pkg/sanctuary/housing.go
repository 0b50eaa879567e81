package sanctuary

import "sync"

// Housing is a place a primate can occupy: an isolation unit holding a single
// occupant, or a species enclosure.
//
// Housing provisioned by a Registry shares the registry's lock, so the exported
// accessors are safe to call while the registry is being mutated. Registry code
// uses the unexported variants while already holding the lock.
type Housing struct {
	mu        *sync.RWMutex
	id        string
	kind      HousingKind
	capacity  int
	species   Species
	occupants []*Primate
}

// NewIsolationUnit returns a standalone single-occupant unit.
func NewIsolationUnit(id string) *Housing {
	return newIsolationUnit(id, new(sync.RWMutex))
}

// NewEnclosure returns a standalone enclosure restricted to species.
func NewEnclosure(species Species) *Housing {
	return newEnclosure(species, Unlimited, new(sync.RWMutex))
}

func newIsolationUnit(id string, mu *sync.RWMutex) *Housing {
	return &Housing{mu: mu, id: id, kind: KindIsolation, capacity: 1}
}

func newEnclosure(species Species, capacity int, mu *sync.RWMutex) *Housing {
	return &Housing{mu: mu, id: string(species), kind: KindEnclosure, capacity: capacity, species: species}
}

// ID returns the housing identifier: the unit index for isolation, the species
// name for enclosures.
func (h *Housing) ID() string { return h.id }

// Kind returns whether this is an isolation unit or an enclosure.
func (h *Housing) Kind() HousingKind { return h.kind }

// Capacity returns the occupancy ceiling, or Unlimited.
func (h *Housing) Capacity() int { return h.capacity }

// Species returns the species filter of an enclosure. Isolation units return "".
func (h *Housing) Species() Species { return h.species }

// Len returns the number of occupants.
func (h *Housing) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.occupants)
}

// Full reports whether no further primate can be added.
func (h *Housing) Full() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.full()
}

// Accepts reports whether p could be added right now.
func (h *Housing) Accepts(p *Primate) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.accepts(p)
}

// Add appends p. It returns false and leaves the housing untouched when there
// is no room or the species does not match.
func (h *Housing) Add(p *Primate) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.add(p)
}

// Remove removes the first occupant identical to p. It returns false if p is
// not present.
func (h *Housing) Remove(p *Primate) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.remove(p)
}

// Contains reports whether p occupies this housing.
func (h *Housing) Contains(p *Primate) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.contains(p)
}

// Occupants returns a copy of the occupants in arrival order. Mutating the
// returned slice does not affect the housing.
func (h *Housing) Occupants() []*Primate {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshot()
}

func (h *Housing) full() bool {
	return h.capacity != Unlimited && len(h.occupants) >= h.capacity
}

func (h *Housing) accepts(p *Primate) bool {
	if p == nil || h.full() {
		return false
	}
	if h.kind == KindEnclosure && p.Species() != h.species {
		return false
	}
	return true
}

func (h *Housing) add(p *Primate) bool {
	if !h.accepts(p) {
		return false
	}
	h.occupants = append(h.occupants, p)
	return true
}

func (h *Housing) remove(p *Primate) bool {
	for i, o := range h.occupants {
		if o.Same(p) {
			h.occupants = append(h.occupants[:i:i], h.occupants[i+1:]...)
			return true
		}
	}
	return false
}

func (h *Housing) contains(p *Primate) bool {
	for _, o := range h.occupants {
		if o.Same(p) {
			return true
		}
	}
	return false
}

func (h *Housing) snapshot() []*Primate {
	out := make([]*Primate, len(h.occupants))
	copy(out, h.occupants)
	return out
}

func (h *Housing) findByName(name string) *Primate {
	for _, o := range h.occupants {
		if o.Name() == name {
			return o
		}
	}
	return nil
}
