package sim

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/pthm-cable/slime/gpu"
	"github.com/pthm-cable/slime/gpu/soft"
	"github.com/pthm-cable/slime/shaders"
)

const testWorkgroup = 64

func testConfig() Config {
	return Config{
		Width:          32,
		Height:         32,
		Format:         gpu.FormatRGBA8Unorm,
		WorkgroupSize:  testWorkgroup,
		CompileRetries: 2,
		Seed:           7,
	}
}

func newTestDevice(t *testing.T, opts soft.Options) *soft.Device {
	t.Helper()
	if opts.Modules == nil {
		opts.Modules = map[string]soft.Module{shaders.Module: shaders.Simulate(testWorkgroup)}
	}
	dev := soft.New(opts)
	t.Cleanup(dev.Close)
	return dev
}

func newTestSim(t *testing.T, dev *soft.Device, cfg Config) *Simulation {
	t.Helper()
	s, err := New(dev, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Release)
	return s
}

// waitReady runs the allocation frame and waits for compilation, leaving
// the simulation one Poll away from Cached. The next Frame records.
func waitReady(t *testing.T, s *Simulation, dev *soft.Device) {
	t.Helper()
	if r := s.Frame(nil, Options{}); r.Ready {
		t.Fatal("first frame already ready")
	}
	dev.WaitIdle()
	s.loader.Poll(s.trail)
	if !s.Ready() {
		t.Fatalf("pipelines not cached: %s (%v)", StateName(s.PipelineState()), s.PipelineErr())
	}
}

func species(id SpeciesID, name string, n uint32, color [3]float32) Species {
	q := shaders.DefaultQualities
	q.Color = color
	return Species{ID: id, Name: name, NumAgents: n, Qualities: q}
}

var (
	red   = [3]float32{1, 0, 0}
	green = [3]float32{0, 1, 0}
)

func TestSyncIdempotent(t *testing.T) {
	dev := newTestDevice(t, soft.Options{})
	s := newTestSim(t, dev, testConfig())
	snap := []Species{species(1, "a", 100, red), species(2, "b", 50, green)}

	first := s.cache.Sync(snap)
	if len(first.Allocated) != 2 {
		t.Fatalf("allocated %v, want 2 species", first.Allocated)
	}
	created := dev.Stats().BuffersCreated

	second := s.cache.Sync(snap)
	if len(second.Allocated) != 0 || len(second.Freed) != 0 || len(second.Events) != 0 {
		t.Errorf("second sync changed state: %+v", second)
	}
	if got := dev.Stats().BuffersCreated; got != created {
		t.Errorf("buffers created %d -> %d", created, got)
	}
	for i := range first.Live {
		a, b := first.Live[i], second.Live[i]
		if a.Agents != b.Agents || a.Qualities != b.Qualities || a.Group != b.Group {
			t.Errorf("species %d handles changed", a.Species.ID)
		}
	}
}

func TestResizeReallocates(t *testing.T) {
	dev := newTestDevice(t, soft.Options{})
	s := newTestSim(t, dev, testConfig())
	waitReady(t, s, dev)

	a := species(1, "a", 100, red)
	s.Frame([]Species{a}, Options{})
	if r := s.Frame([]Species{a}, Options{}); r.Updates != 1 || r.Inits != 0 {
		t.Fatalf("steady frame: %+v", r)
	}
	old, _ := s.cache.Entry(1)

	a.NumAgents = 200
	r := s.Frame([]Species{a}, Options{})
	if r.Inits != 1 || r.Updates != 0 || r.Allocated != 1 || r.Freed != 1 {
		t.Errorf("resize frame: %+v", r)
	}
	e, ok := s.cache.Entry(1)
	if !ok {
		t.Fatal("entry missing after resize")
	}
	if e.Agents.Size() != 200*shaders.AgentSize {
		t.Errorf("agents buffer %d bytes, want %d", e.Agents.Size(), 200*shaders.AgentSize)
	}
	if e.Agents == old.Agents {
		t.Error("agents buffer not reallocated")
	}
	if _, err := dev.ReadBuffer(old.Agents); !errors.Is(err, gpu.ErrDestroyed) {
		t.Errorf("old agents buffer still alive: %v", err)
	}
	if e.State != Active {
		t.Errorf("state after init frame = %s, want active", e.State)
	}
}

func TestRequalifyRewritesInPlace(t *testing.T) {
	dev := newTestDevice(t, soft.Options{})
	s := newTestSim(t, dev, testConfig())

	a := species(1, "a", 10, red)
	s.cache.Sync([]Species{a})
	before, _ := s.cache.Entry(1)
	created := dev.Stats().BuffersCreated

	a.Qualities.Speed *= 2
	res := s.cache.Sync([]Species{a})
	if len(res.Events) != 1 || res.Events[0].Kind != EventRequalified {
		t.Fatalf("events = %+v", res.Events)
	}
	if dev.Stats().BuffersCreated != created {
		t.Error("requalify allocated")
	}
	after, _ := s.cache.Entry(1)
	if after.Agents != before.Agents {
		t.Error("agents buffer replaced")
	}
	raw, err := dev.ReadBuffer(after.Qualities)
	if err != nil {
		t.Fatal(err)
	}
	if got := shaders.ReadQualities(raw); got != a.Qualities {
		t.Errorf("qualities buffer = %+v, want %+v", got, a.Qualities)
	}
}

func TestRemovalFrees(t *testing.T) {
	dev := newTestDevice(t, soft.Options{})
	s := newTestSim(t, dev, testConfig())
	waitReady(t, s, dev)
	baseline := dev.Stats().LiveBuffers

	a, b := species(1, "a", 100, red), species(2, "b", 100, green)
	s.Frame([]Species{a, b}, Options{})
	if got := dev.Stats().LiveBuffers; got != baseline+4 {
		t.Fatalf("live buffers %d, want %d", got, baseline+4)
	}

	r := s.Frame([]Species{a}, Options{})
	if r.Species != 1 || r.Projects != 1 || r.Freed != 1 {
		t.Errorf("after removal: %+v", r)
	}
	if _, ok := s.cache.Entry(2); ok {
		t.Error("removed species still cached")
	}
	if got := dev.Stats().LiveBuffers; got != baseline+2 {
		t.Errorf("live buffers %d, want %d", got, baseline+2)
	}

	// zero agents counts as absent
	a.NumAgents = 0
	s.Frame([]Species{a}, Options{})
	if s.cache.Len() != 0 || dev.Stats().LiveBuffers != baseline {
		t.Errorf("zero-count species kept: %d entries, %d live buffers", s.cache.Len(), dev.Stats().LiveBuffers)
	}
}

func TestReadinessGating(t *testing.T) {
	t.Run("pending", func(t *testing.T) {
		dev := soft.New(soft.Options{
			Modules:        map[string]soft.Module{shaders.Module: shaders.Simulate(testWorkgroup)},
			CompileLatency: 200 * time.Millisecond,
		})
		s := newTestSim(t, dev, testConfig())
		for i := 0; i < 3; i++ {
			r := s.Frame([]Species{species(1, "a", 100, red)}, Options{})
			if r.Ready || r.Inits+r.Updates+r.Projects+r.Draws != 0 {
				t.Errorf("frame %d recorded while %s: %+v", i, r.State, r)
			}
		}
		if st := dev.Stats(); st.Submits != 0 || len(st.Dispatches) != 0 {
			t.Errorf("device ran work before readiness: %+v", st)
		}
		if _, ok := s.PipelineState().(Pending); !ok {
			t.Errorf("state = %s, want pending", StateName(s.PipelineState()))
		}
		if s.cache.Len() != 0 {
			t.Error("species buffers allocated before readiness")
		}
		dev.Close()
	})

	t.Run("waiting for trail", func(t *testing.T) {
		// too small for three 32x32 RGBA8 images
		dev := newTestDevice(t, soft.Options{MemoryLimit: 4096})
		s := newTestSim(t, dev, testConfig())
		r := s.Frame([]Species{species(1, "a", 1, red)}, Options{})
		if r.Ready || r.State != "waiting_for_trail" {
			t.Errorf("report = %+v", r)
		}
		if dev.Stats().PipelinesQueued != 0 {
			t.Error("pipelines queued without trail images")
		}
	})
}

func TestSwapParity(t *testing.T) {
	dev := newTestDevice(t, soft.Options{})
	s := newTestSim(t, dev, testConfig())
	waitReady(t, s, dev)

	first := s.trail.Current()
	snap := []Species{species(1, "a", 64, red)}
	for k := 1; k <= 5; k++ {
		if r := s.Frame(snap, Options{}); !r.Swapped {
			t.Fatalf("frame %d not swapped", k)
		}
		if s.trail.Primary() != k%2 {
			t.Errorf("after %d frames primary = %d", k, s.trail.Primary())
		}
		if (s.trail.Current() == first) != (k%2 == 0) {
			t.Errorf("after %d frames current image has wrong parity", k)
		}
		if s.trail.Current() == s.trail.Scratch() {
			t.Fatal("current and scratch alias")
		}
	}
	if s.trail.Swaps() != 5 {
		t.Errorf("swaps = %d, want 5", s.trail.Swaps())
	}
}

func TestOneSpeciesEndToEnd(t *testing.T) {
	dev := newTestDevice(t, soft.Options{Workers: 4})
	s := newTestSim(t, dev, testConfig())
	waitReady(t, s, dev)
	dev.ResetStats()

	a := species(1, "first", 1000, red)
	opts := Options{Evaporation: 0.001, Diffusion: 0.5}

	r := s.Frame([]Species{a}, opts)
	if r.Inits != 1 || r.Updates != 0 || r.Projects != 1 || r.Draws != 2 || !r.Swapped {
		t.Fatalf("first frame: %+v", r)
	}
	st := dev.Stats()
	// ceil(1000/64) workgroups each for init and project
	if st.Dispatches[shaders.EntryInit] != 1 || st.Dispatches[shaders.EntryProject] != 1 || st.Workgroups != 32 {
		t.Errorf("first frame dispatches: %+v, workgroups %d", st.Dispatches, st.Workgroups)
	}
	if st.Draws[shaders.EntryBlur] != 2 {
		t.Errorf("blur draws = %d, want 2", st.Draws[shaders.EntryBlur])
	}

	for i := 0; i < 10; i++ {
		r = s.Frame([]Species{a}, opts)
		if r.Inits != 0 || r.Updates != 1 {
			t.Fatalf("frame %d: %+v", i+2, r)
		}
	}

	e, _ := s.cache.Entry(1)
	raw, err := dev.ReadBuffer(e.Agents)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < int(a.NumAgents); i++ {
		ag := shaders.ReadAgent(raw[i*shaders.AgentSize:])
		if ag.Pos[0] < 0 || ag.Pos[0] > 1 || ag.Pos[1] < 0 || ag.Pos[1] > 1 {
			t.Fatalf("agent %d left the field: %+v", i, ag)
		}
	}

	px, w, h, err := s.ReadCurrent()
	if err != nil {
		t.Fatal(err)
	}
	if int(w*h*4) != len(px) {
		t.Fatalf("read %d bytes for %dx%d", len(px), w, h)
	}
	var redSum, greenSum int
	for i := 0; i < len(px); i += 4 {
		redSum += int(px[i])
		greenSum += int(px[i+1])
		if px[i+3] != 255 {
			t.Fatalf("texel %d alpha = %d", i/4, px[i+3])
		}
	}
	if redSum == 0 {
		t.Error("no trail deposited")
	}
	if greenSum != 0 {
		t.Errorf("green trail from a red species: %d", greenSum)
	}
}

func TestHundredAgentsFirstFrame(t *testing.T) {
	dev := newTestDevice(t, soft.Options{Workers: 2})
	s := newTestSim(t, dev, testConfig())
	waitReady(t, s, dev)
	dev.ResetStats()

	r := s.Frame([]Species{species(1, "hundred", 100, red)}, Options{Evaporation: 0.001, Diffusion: 1.0})
	if r.Species != 1 || r.Agents != 100 || r.Inits != 1 || r.Projects != 1 || r.Draws != 2 || !r.Swapped {
		t.Fatalf("frame: %+v", r)
	}
	st := dev.Stats()
	if st.Dispatches[shaders.EntryInit] != 1 || st.Dispatches[shaders.EntryProject] != 1 || st.Dispatches[shaders.EntryUpdate] != 0 {
		t.Errorf("dispatches: %+v", st.Dispatches)
	}
	if st.Draws[shaders.EntryBlur] != 2 {
		t.Errorf("blur draws = %d, want 2", st.Draws[shaders.EntryBlur])
	}
	if st.Submits != 1 || s.trail.Swaps() != 1 {
		t.Errorf("submits %d, swaps %d, want 1 each", st.Submits, s.trail.Swaps())
	}
	e, ok := s.cache.Entry(1)
	if !ok {
		t.Fatal("species 1 not cached")
	}
	if got := e.Agents.Size(); got != 100*shaders.AgentSize {
		t.Errorf("agent buffer = %d bytes, want %d", got, 100*shaders.AgentSize)
	}
}

func TestDepositOrderIndependence(t *testing.T) {
	run := func(idA, idB SpeciesID) []byte {
		dev := newTestDevice(t, soft.Options{Workers: 4})
		s := newTestSim(t, dev, testConfig())
		waitReady(t, s, dev)
		snap := []Species{
			species(idA, "a", 500, [3]float32{0.6, 0.2, 0}),
			species(idB, "b", 500, [3]float32{0.5, 0.3, 0.1}),
		}
		opts := Options{Evaporation: 0.002, Diffusion: 0.3}
		for i := 0; i < 8; i++ {
			s.Frame(snap, opts)
		}
		px, _, _, err := s.ReadCurrent()
		if err != nil {
			t.Fatal(err)
		}
		return px
	}

	// swapping ids reverses the project pass order
	ab := run(1, 2)
	ba := run(2, 1)
	if !bytes.Equal(ab, ba) {
		t.Error("trail depends on project pass order")
	}
}

// Agents written in two array orders into the same buffer must project to
// identical fields, however the invocations are scheduled.
func TestProjectAgentOrderIndependence(t *testing.T) {
	const n = 512
	positions := make([][2]float32, n)
	for i := range positions {
		// 16 distinct texels, 32 agents each
		k := i % 16
		positions[i] = [2]float32{float32(k%4) / 3, float32(k/4) / 3}
	}

	project := func(order func(i int) int) []byte {
		dev := newTestDevice(t, soft.Options{Workers: 4})
		s := newTestSim(t, dev, testConfig())
		waitReady(t, s, dev)
		programs, _ := s.loader.Ready()

		sync := s.cache.Sync([]Species{species(1, "a", n, [3]float32{0.02, 0.01, 0.025})})
		e := sync.Live[0]
		raw := make([]byte, n*shaders.AgentSize)
		for i := 0; i < n; i++ {
			j := order(i)
			shaders.PutAgent(raw[i*shaders.AgentSize:], shaders.Agent{Pos: positions[j], Angle: float32(j)})
		}
		if err := dev.WriteBuffer(e.Agents, 0, raw); err != nil {
			t.Fatal(err)
		}

		enc := dev.CreateCommandEncoder("project only")
		pass := enc.BeginComputePass("project")
		pass.SetPipeline(programs.Project)
		pass.SetBindGroup(0, e.Group)
		pass.SetBindGroup(1, s.layouts.EmptyGroup)
		pass.SetBindGroup(2, s.trail.CurrentStorage())
		pass.SetBindGroup(3, s.layouts.EmptyGroup)
		pass.SetBindGroup(4, s.broadcaster.OptionsGroup)
		pass.DispatchWorkgroups(gpu.WorkgroupCount(n, testWorkgroup), 1, 1)
		pass.End()
		if err := dev.Submit(enc.Finish()); err != nil {
			t.Fatal(err)
		}
		if st := dev.Stats(); st.Dispatches[shaders.EntryProject] != 1 || st.Draws[shaders.EntryBlur] != 0 {
			t.Fatalf("unexpected passes: %+v %+v", st.Dispatches, st.Draws)
		}
		px, err := dev.ReadTexture(s.trail.Current())
		if err != nil {
			t.Fatal(err)
		}
		return px
	}

	forward := project(func(i int) int { return i })
	// stride 7 is coprime with n, so this is a permutation
	shuffled := project(func(i int) int { return (i*7 + 3) % n })
	if !bytes.Equal(forward, shuffled) {
		t.Error("projected field depends on agent array order")
	}

	var lit int
	for i := 0; i < len(forward); i += 4 {
		if forward[i] != 0 {
			lit++
		}
	}
	if lit != 16 {
		t.Errorf("lit texels = %d, want 16", lit)
	}
}

func TestFullEvaporationClears(t *testing.T) {
	dev := newTestDevice(t, soft.Options{})
	s := newTestSim(t, dev, testConfig())
	waitReady(t, s, dev)

	s.Frame([]Species{species(1, "a", 500, red)}, Options{Diffusion: 0.5})
	s.Frame(nil, Options{Evaporation: 1, Diffusion: 0.5})

	px, _, _, err := s.ReadCurrent()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(px); i += 4 {
		if px[i] != 0 || px[i+1] != 0 || px[i+2] != 0 {
			t.Fatalf("texel %d = %v after full evaporation", i/4, px[i:i+4])
		}
	}
}

func TestOptionsWrittenOnlyOnChange(t *testing.T) {
	dev := newTestDevice(t, soft.Options{})
	s := newTestSim(t, dev, testConfig())
	waitReady(t, s, dev)

	opts := Options{Evaporation: 0.01, Diffusion: 0.4}
	seeds := make(map[uint32]bool)
	for i := 0; i < 4; i++ {
		r := s.Frame(nil, opts)
		if r.OptionsWritten != (i == 0) {
			t.Errorf("frame %d: options written = %v", i, r.OptionsWritten)
		}
		seeds[r.Seed] = true
	}
	opts.Diffusion = 0.9
	if r := s.Frame(nil, opts); !r.OptionsWritten {
		t.Error("changed options not written")
	}

	st := dev.Stats()
	if st.BufferWrites["options"] != 2 {
		t.Errorf("options writes = %d, want 2", st.BufferWrites["options"])
	}
	if st.BufferWrites["seed"] != 5 {
		t.Errorf("seed writes = %d, want 5", st.BufferWrites["seed"])
	}
	if len(seeds) < 2 {
		t.Error("seed did not change between frames")
	}
	if got, _ := s.Options(); got != opts {
		t.Errorf("last options = %+v, want %+v", got, opts)
	}
}

func TestOptionsClamped(t *testing.T) {
	got := ClampOptions(Options{Evaporation: -1, Diffusion: 3})
	if got.Evaporation != 0 || got.Diffusion != 1 {
		t.Errorf("ClampOptions = %+v", got)
	}
}

func TestCompileFailureIsTerminal(t *testing.T) {
	broken := shaders.Simulate(testWorkgroup)
	broken.Fragment = nil
	dev := newTestDevice(t, soft.Options{Modules: map[string]soft.Module{shaders.Module: broken}})
	cfg := testConfig()
	s := newTestSim(t, dev, cfg)

	for i := 0; i < 10 && s.PipelineErr() == nil; i++ {
		s.Frame(nil, Options{})
		dev.WaitIdle()
	}
	f, ok := s.PipelineState().(Failed)
	if !ok {
		t.Fatalf("state = %s, want failed", StateName(s.PipelineState()))
	}
	if f.Program != ProgramBlur || !errors.Is(f.Err, gpu.ErrUnknownEntryPoint) {
		t.Errorf("failed = %+v", f)
	}
	// one initial compile plus the retries
	if got := dev.Stats().PipelinesQueued; got != 4+cfg.CompileRetries {
		t.Errorf("pipelines queued = %d, want %d", got, 4+cfg.CompileRetries)
	}
	if r := s.Frame([]Species{species(1, "a", 10, red)}, Options{}); r.Ready || dev.Stats().Submits != 0 {
		t.Error("failed loader recorded work")
	}
}

func TestCompileRetryRecovers(t *testing.T) {
	broken := shaders.Simulate(testWorkgroup)
	broken.Fragment = nil
	// latency keeps the re-queued compile in flight until the module is fixed
	dev := newTestDevice(t, soft.Options{
		Modules:        map[string]soft.Module{shaders.Module: broken},
		CompileLatency: 50 * time.Millisecond,
	})
	s := newTestSim(t, dev, testConfig())

	s.Frame(nil, Options{})
	dev.WaitIdle()
	s.Frame(nil, Options{}) // sees the failure and re-queues blur
	if _, ok := s.PipelineState().(Pending); !ok {
		t.Fatalf("state = %s, want pending", StateName(s.PipelineState()))
	}

	dev.RegisterModule(shaders.Module, shaders.Simulate(testWorkgroup))
	dev.WaitIdle()
	if r := s.Frame(nil, Options{}); !r.Ready {
		t.Errorf("state after recovery = %s", r.State)
	}
}

func TestBindingMismatchDropsFrame(t *testing.T) {
	dev := newTestDevice(t, soft.Options{})
	s := newTestSim(t, dev, testConfig())
	waitReady(t, s, dev)

	good, _ := s.loader.Ready()
	// project expects a storage texture at slot 2, init binds the empty group
	s.loader.state = Cached{Init: good.Project, Update: good.Update, Project: good.Project, Blur: good.Blur}

	r := s.Frame([]Species{species(1, "a", 10, red)}, Options{})
	if r.Swapped || s.trail.Swaps() != 0 {
		t.Error("dropped frame swapped the trail")
	}
	if e, _ := s.cache.Entry(1); e.State != NeedsInit {
		t.Errorf("state = %s, want needs_init after dropped frame", e.State)
	}
	if dev.Stats().Submits != 0 {
		t.Error("mismatched submission executed")
	}

	s.loader.state = good
	if r := s.Frame([]Species{species(1, "a", 10, red)}, Options{}); !r.Swapped || r.Inits != 1 {
		t.Errorf("recovered frame: %+v", r)
	}
}

func TestAllocationFailureRetries(t *testing.T) {
	dev := newTestDevice(t, soft.Options{MemoryLimit: 64 * 1024})
	s := newTestSim(t, dev, testConfig())
	waitReady(t, s, dev)

	huge := species(1, "huge", 1<<20, red)
	r := s.Frame([]Species{huge}, Options{})
	if r.AllocFailed != 1 || r.Species != 0 || !r.Swapped {
		t.Errorf("failed allocation frame: %+v", r)
	}
	s.Frame([]Species{huge}, Options{})
	if s.cache.AllocFailures() != 2 {
		t.Errorf("alloc failures = %d, want 2 (retried each frame)", s.cache.AllocFailures())
	}

	huge.NumAgents = 100
	if r := s.Frame([]Species{huge}, Options{}); r.Allocated != 1 || r.Inits != 1 {
		t.Errorf("smaller retry: %+v", r)
	}
}

func TestTrailAllocationFailureReleasesImages(t *testing.T) {
	const (
		uniforms = shaders.OptionsSize + shaders.SeedSize + 2*shaders.DirectionSize
		image    = 32 * 32 * 4
	)
	// room for two of the three trail images
	dev := newTestDevice(t, soft.Options{MemoryLimit: uniforms + 2*image + 100})
	s := newTestSim(t, dev, testConfig())

	for i := 1; i <= 5; i++ {
		r := s.Frame(nil, Options{})
		if r.State != "waiting_for_trail" || s.Trail() != nil {
			t.Fatalf("frame %d: state %s, trail %v", i, r.State, s.Trail())
		}
		st := dev.Stats()
		if st.LiveBytes != uniforms {
			t.Fatalf("frame %d: live bytes = %d, want %d", i, st.LiveBytes, uniforms)
		}
		if st.TexturesCreated != 2*i || st.TexturesDestroyed != st.TexturesCreated {
			t.Fatalf("frame %d: textures created %d, destroyed %d", i, st.TexturesCreated, st.TexturesDestroyed)
		}
	}
}

func TestReleaseFreesAllAllocations(t *testing.T) {
	dev := newTestDevice(t, soft.Options{})
	s := newTestSim(t, dev, testConfig())
	waitReady(t, s, dev)
	s.Frame([]Species{species(1, "a", 100, red), species(2, "b", 50, green)}, Options{Diffusion: 0.5})

	s.Release()
	st := dev.Stats()
	if st.LiveBuffers != 0 || st.LiveBytes != 0 {
		t.Errorf("after release: %d buffers, %d bytes live", st.LiveBuffers, st.LiveBytes)
	}
	if st.TexturesDestroyed != st.TexturesCreated {
		t.Errorf("textures created %d, destroyed %d", st.TexturesCreated, st.TexturesDestroyed)
	}
	if s.Trail() != nil {
		t.Error("trail still attached")
	}
}
