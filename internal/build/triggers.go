package build

import (
	"github.com/mattjoyce/accrete/internal/entity"
)

// triggerRegistry maps entity ids to the factories that want to react when
// the entity is provided. Populated once per factory at registration; no
// removal.
type triggerRegistry struct {
	triggers map[entity.ID][]ActionFactory
}

func newTriggerRegistry() *triggerRegistry {
	return &triggerRegistry{triggers: make(map[entity.ID][]ActionFactory)}
}

// register records the factory against every entity id it declares.
func (r *triggerRegistry) register(factory ActionFactory) {
	for _, id := range factory.TriggerEntities() {
		r.triggers[id] = append(r.triggers[id], factory)
	}
}

// factoriesFor returns the factories triggered by id, in registration order.
func (r *triggerRegistry) factoriesFor(id entity.ID) []ActionFactory {
	return r.triggers[id]
}
