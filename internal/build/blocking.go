package build

import (
	"github.com/mattjoyce/accrete/internal/entity"
)

// blockingIndex owns every blocked action driver and the forward edges from
// the entity ids they wait on. Drivers are tracked by their stable ids, never
// by pointer, so a driver can only ever live in one slot.
//
// Consistency: a driver is in blocked iff it appears in at least one forward
// bucket, and for every id in its missing set there is a forward edge back to
// it.
type blockingIndex struct {
	blocked map[int]*actionDriver
	forward map[entity.ID][]int // waiter ids in registration order
}

func newBlockingIndex() *blockingIndex {
	return &blockingIndex{
		blocked: make(map[int]*actionDriver),
		forward: make(map[entity.ID][]int),
	}
}

// block takes ownership of d, registering a forward edge for every missing
// dependency. d.missing must be non-empty.
func (b *blockingIndex) block(d *actionDriver) {
	b.blocked[d.id] = d
	for id := range d.missing {
		b.forward[id] = append(b.forward[id], d.id)
	}
}

// onEntityAvailable removes id from every waiter's missing set and returns,
// in forward-edge order, the drivers whose missing set became empty. Those
// drivers are released from the blocked set; the id's bucket is dropped.
func (b *blockingIndex) onEntityAvailable(id entity.ID) []*actionDriver {
	waiters := b.forward[id]
	if len(waiters) == 0 {
		return nil
	}
	delete(b.forward, id)

	var promoted []*actionDriver
	for _, did := range waiters {
		d, ok := b.blocked[did]
		if !ok {
			continue // already promoted via another entity in this commit
		}
		delete(d.missing, id)
		if len(d.missing) == 0 {
			delete(b.blocked, did)
			promoted = append(promoted, d)
		}
	}
	return promoted
}

// all returns every blocked driver, in unspecified order.
func (b *blockingIndex) all() []*actionDriver {
	out := make([]*actionDriver, 0, len(b.blocked))
	for _, d := range b.blocked {
		out = append(out, d)
	}
	return out
}

// contains reports whether the driver with the given id is blocked.
func (b *blockingIndex) contains(id int) bool {
	_, ok := b.blocked[id]
	return ok
}

// hasEdge reports whether id has a forward edge to the driver. Used by
// invariant checks.
func (b *blockingIndex) hasEdge(id entity.ID, driverID int) bool {
	for _, did := range b.forward[id] {
		if did == driverID {
			return true
		}
	}
	return false
}

func (b *blockingIndex) size() int {
	return len(b.blocked)
}
