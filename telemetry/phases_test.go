package telemetry

import "testing"

func TestPhaseRegistry(t *testing.T) {
	reg := NewPhaseRegistry()

	ids := reg.IDs()
	if len(ids) != len(Phases) {
		t.Fatalf("registered %d phases, want %d", len(ids), len(Phases))
	}
	for i, id := range ids {
		if id != Phases[i] {
			t.Errorf("phase %d = %q, want %q", i, id, Phases[i])
		}
	}

	if got := reg.GetName(PhaseSubmit); got != "Submit" {
		t.Errorf("GetName(submit) = %q", got)
	}
	if got := reg.GetName("unknown"); got != "unknown" {
		t.Errorf("GetName fallback = %q", got)
	}
	if _, ok := reg.Get("unknown"); ok {
		t.Error("Get found an unregistered phase")
	}

	if n := len(reg.ByCategory("simulation")); n != 4 {
		t.Errorf("simulation phases = %d, want 4", n)
	}
}
