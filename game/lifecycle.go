package game

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/pthm-cable/slime/components"
	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/shaders"
)

// spawnInitialSpecies creates one entity per configured species.
func (g *Game) spawnInitialSpecies(species []config.SpeciesConfig) {
	for _, sp := range species {
		id := g.species.Spawn(sp.Name, uint32(max(sp.NumAgents, 0)), components.Qualities(sp.Qualities()))
		slog.Info("species spawned", "species", sp.Name, "id", id, "agents", sp.NumAgents)
	}
}

// spawnRandomSpecies adds a species with a random color and the default
// behavior, seeded from the frame counter so runs stay reproducible.
func (g *Game) spawnRandomSpecies() uint64 {
	g.spawnCount++
	rng := rand.New(rand.NewSource(int64(g.Frame())*7919 + int64(g.spawnCount)))

	q := components.Qualities(shaders.DefaultQualities)
	q.Color = [3]float32{rng.Float32(), rng.Float32(), rng.Float32()}
	q.Speed *= 0.5 + rng.Float32()
	q.TurnSpeed *= 0.5 + rng.Float32()

	name := fmt.Sprintf("spawned-%d", g.spawnCount)
	id := g.species.Spawn(name, 4096, q)
	slog.Info("species spawned", "species", name, "id", id, "agents", 4096)
	return id
}
