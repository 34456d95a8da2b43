package game

import (
	"fmt"
	"io"

	"github.com/pthm-cable/slime/sim"
)

// logWriter is the destination for log output.
var logWriter io.Writer

// SetLogWriter sets the log output destination.
func SetLogWriter(w io.Writer) {
	logWriter = w
}

// Logf writes a formatted log message.
func Logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if logWriter != nil {
		fmt.Fprintln(logWriter, msg)
	} else {
		fmt.Println(msg)
	}
}

// LogWorldState prints the species table and the device counters.
func (g *Game) LogWorldState() {
	r := g.lastReport
	Logf("=== Frame %d | pipelines %s | %d species, %d agents ===", r.Frame, r.State, r.Species, r.Agents)
	for _, sp := range g.species.List() {
		state := "off"
		if entry, ok := g.simulation.Cache().Entry(sim.SpeciesID(sp.ID)); ok {
			state = entry.State.String()
		} else if sp.Enabled {
			state = "pending"
		}
		Logf("  #%-4d %-16s %8d agents  color %.2f,%.2f,%.2f  %s",
			sp.ID, sp.Name, sp.NumAgents, sp.Color[0], sp.Color[1], sp.Color[2], state)
	}

	sync := g.simulation.LastSync()
	Logf("  last sync: %d live, allocated %v, freed %v, failed %v",
		len(sync.Live), sync.Allocated, sync.Freed, sync.Failed)

	st := g.device.Stats()
	Logf("  device: %d submits, %d workgroups, %d live buffers, %d/%d textures (%d bytes)",
		st.Submits, st.Workgroups, st.LiveBuffers, st.TexturesCreated-st.TexturesDestroyed, st.TexturesCreated, st.LiveBytes)
	if err := g.simulation.PipelineErr(); err != nil {
		Logf("  pipelines failed: %v", err)
	}
	Logf("")
}
