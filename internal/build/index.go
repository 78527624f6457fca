package build

import (
	"github.com/mattjoyce/accrete/internal/entity"
	"github.com/mattjoyce/accrete/internal/vfs"
)

// entityIndex maps entity ids to their providing files. Files referenced here
// are owned by the driver's file pool; entries are never removed during a
// run, and publishing an id again replaces the provider (last writer wins).
type entityIndex struct {
	providers map[entity.ID]vfs.File
}

func newEntityIndex() *entityIndex {
	return &entityIndex{providers: make(map[entity.ID]vfs.File)}
}

func (idx *entityIndex) lookup(id entity.ID) (vfs.File, bool) {
	f, ok := idx.providers[id]
	return f, ok
}

func (idx *entityIndex) publish(id entity.ID, file vfs.File) {
	idx.providers[id] = file
}

func (idx *entityIndex) size() int {
	return len(idx.providers)
}
