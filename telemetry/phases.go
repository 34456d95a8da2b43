package telemetry

// PhaseInfo describes a frame phase for display.
type PhaseInfo struct {
	ID          string // Phase name as recorded by the collector
	Name        string // Display name
	Description string
	Category    string // "simulation" or "present"
}

// PhaseRegistry holds display metadata for the frame phases so the perf
// panel and the CSV columns stay in sync.
type PhaseRegistry struct {
	phases []PhaseInfo
	byID   map[string]PhaseInfo
}

// NewPhaseRegistry creates a registry with every phase in Phases.
func NewPhaseRegistry() *PhaseRegistry {
	reg := &PhaseRegistry{
		byID: make(map[string]PhaseInfo),
	}
	reg.Register(PhaseInfo{ID: PhaseBroadcast, Name: "Broadcast", Description: "Pipeline readiness fan-out", Category: "simulation"})
	reg.Register(PhaseInfo{ID: PhaseSync, Name: "Sync", Description: "Species cache and uniform uploads", Category: "simulation"})
	reg.Register(PhaseInfo{ID: PhaseRecord, Name: "Record", Description: "Pass encoding", Category: "simulation"})
	reg.Register(PhaseInfo{ID: PhaseSubmit, Name: "Submit", Description: "Device execution of the command buffer", Category: "simulation"})
	reg.Register(PhaseInfo{ID: PhasePresent, Name: "Present", Description: "Readback and drawing", Category: "present"})
	return reg
}

// Register adds a phase to the registry.
func (r *PhaseRegistry) Register(info PhaseInfo) {
	r.phases = append(r.phases, info)
	r.byID[info.ID] = info
}

// Get returns phase info by ID.
func (r *PhaseRegistry) Get(id string) (PhaseInfo, bool) {
	info, ok := r.byID[id]
	return info, ok
}

// GetName returns the display name for a phase ID.
// Falls back to the ID itself if not found.
func (r *PhaseRegistry) GetName(id string) string {
	if info, ok := r.byID[id]; ok {
		return info.Name
	}
	return id
}

// ByCategory returns phases filtered by category.
func (r *PhaseRegistry) ByCategory(category string) []PhaseInfo {
	var result []PhaseInfo
	for _, info := range r.phases {
		if info.Category == category {
			result = append(result, info)
		}
	}
	return result
}

// IDs returns all phase IDs in registration order.
func (r *PhaseRegistry) IDs() []string {
	ids := make([]string, len(r.phases))
	for i, info := range r.phases {
		ids[i] = info.ID
	}
	return ids
}
