package systems

import (
	"fmt"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/slime/components"
	"github.com/pthm-cable/slime/shaders"
	"github.com/pthm-cable/slime/sim"
)

// MaxAgents caps the agent count reachable by doubling.
const MaxAgents = 1 << 22

// CountAction is a requested change to one species' agent count.
type CountAction int

const (
	ActionHalve CountAction = iota
	ActionDouble
	ActionRemove
)

// ApplyCount returns the agent count after a halve or double action.
// Halving never goes below one agent; removal is a separate action.
func ApplyCount(n uint32, action CountAction) uint32 {
	switch action {
	case ActionHalve:
		return max(n/2, 1)
	case ActionDouble:
		if n == 0 {
			return 1
		}
		return uint32(min(uint64(n)*2, MaxAgents))
	case ActionRemove:
		return 0
	}
	return n
}

// SpeciesRegistry owns the host-side species entities. Species that carry
// all four components are live; dropping NumAgents disables one without
// losing its identity.
type SpeciesRegistry struct {
	world *ecs.World

	mapper *ecs.Map4[
		components.SpeciesID,
		components.Name,
		components.NumAgents,
		components.Qualities,
	]
	filter *ecs.Filter4[
		components.SpeciesID,
		components.Name,
		components.NumAgents,
		components.Qualities,
	]
	nameMap  *ecs.Map[components.Name]
	countMap *ecs.Map[components.NumAgents]
	qualMap  *ecs.Map[components.Qualities]

	byID   map[uint64]ecs.Entity
	nextID uint64
}

// NewSpeciesRegistry creates a registry over world.
func NewSpeciesRegistry(world *ecs.World) *SpeciesRegistry {
	return &SpeciesRegistry{
		world: world,
		mapper: ecs.NewMap4[
			components.SpeciesID,
			components.Name,
			components.NumAgents,
			components.Qualities,
		](world),
		filter: ecs.NewFilter4[
			components.SpeciesID,
			components.Name,
			components.NumAgents,
			components.Qualities,
		](world),
		nameMap:  ecs.NewMap[components.Name](world),
		countMap: ecs.NewMap[components.NumAgents](world),
		qualMap:  ecs.NewMap[components.Qualities](world),
		byID:     make(map[uint64]ecs.Entity),
		nextID:   1,
	}
}

// Spawn creates a species entity and returns its id. Ids are never reused.
func (r *SpeciesRegistry) Spawn(name string, numAgents uint32, q components.Qualities) uint64 {
	id := components.SpeciesID{Value: r.nextID}
	r.nextID++

	e := r.mapper.NewEntity(&id, &components.Name{Value: name}, &components.NumAgents{Value: numAgents}, &q)
	r.byID[id.Value] = e
	return id.Value
}

func (r *SpeciesRegistry) entity(id uint64) (ecs.Entity, error) {
	e, ok := r.byID[id]
	if !ok || !r.world.Alive(e) {
		return ecs.Entity{}, fmt.Errorf("species %d not found", id)
	}
	return e, nil
}

// Remove despawns a species.
func (r *SpeciesRegistry) Remove(id uint64) error {
	e, err := r.entity(id)
	if err != nil {
		return err
	}
	r.world.RemoveEntity(e)
	delete(r.byID, id)
	return nil
}

// SetAgentCount changes the agent count, re-enabling a disabled species.
// A count of zero keeps the entity but makes it not live.
func (r *SpeciesRegistry) SetAgentCount(id uint64, n uint32) error {
	e, err := r.entity(id)
	if err != nil {
		return err
	}
	if r.countMap.Has(e) {
		r.countMap.Get(e).Value = n
		return nil
	}
	r.countMap.Add(e, &components.NumAgents{Value: n})
	return nil
}

// Disable removes the agent count so extraction skips the species.
func (r *SpeciesRegistry) Disable(id uint64) error {
	e, err := r.entity(id)
	if err != nil {
		return err
	}
	if r.countMap.Has(e) {
		r.countMap.Remove(e)
	}
	return nil
}

// SetQualities replaces the qualities of a species.
func (r *SpeciesRegistry) SetQualities(id uint64, q components.Qualities) error {
	e, err := r.entity(id)
	if err != nil {
		return err
	}
	*r.qualMap.Get(e) = q
	return nil
}

// Apply performs a count action: halve, double or remove.
func (r *SpeciesRegistry) Apply(id uint64, action CountAction) error {
	if action == ActionRemove {
		return r.Remove(id)
	}
	e, err := r.entity(id)
	if err != nil {
		return err
	}
	var n uint32
	if r.countMap.Has(e) {
		n = r.countMap.Get(e).Value
	}
	return r.SetAgentCount(id, ApplyCount(n, action))
}

// Len returns the number of species entities, live or not.
func (r *SpeciesRegistry) Len() int { return len(r.byID) }

// Extract returns the live species sorted by id, with qualities clamped.
// Entities with a zero agent count or without one are skipped.
func (r *SpeciesRegistry) Extract() []sim.Species {
	var out []sim.Species
	query := r.filter.Query()
	for query.Next() {
		id, name, count, q := query.Get()
		if count.Value == 0 {
			continue
		}
		out = append(out, sim.Species{
			ID:        sim.SpeciesID(id.Value),
			Name:      name.Value,
			NumAgents: count.Value,
			Qualities: shaders.Qualities(q.Clamped()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SpeciesInfo describes one species for display, live or not.
type SpeciesInfo struct {
	ID        uint64
	Name      string
	NumAgents uint32
	Enabled   bool
	Color     [3]float32
}

// List returns every species entity sorted by id.
func (r *SpeciesRegistry) List() []SpeciesInfo {
	out := make([]SpeciesInfo, 0, len(r.byID))
	for id, e := range r.byID {
		info := SpeciesInfo{
			ID:    id,
			Name:  r.nameMap.Get(e).Value,
			Color: r.qualMap.Get(e).Color,
		}
		if r.countMap.Has(e) {
			info.NumAgents = r.countMap.Get(e).Value
			info.Enabled = info.NumAgents > 0
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
