package shaders

import (
	"github.com/chewxy/math32"

	"github.com/pthm-cable/slime/gpu/soft"
)

const (
	twoPi = 2 * math32.Pi

	// salts keep the init and update random streams apart for equal seeds
	initSalt   = 0
	updateSalt = 0x632be5ab
)

// blurWeights is the 5-tap binomial kernel, normalised.
var blurWeights = [5]float32{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16}

// Simulate returns the simulation module with the given compute workgroup
// size. The size must match the one the driver dispatches with.
func Simulate(workgroupSize uint32) soft.Module {
	return soft.Module{
		Compute: map[string]soft.ComputeKernel{
			EntryInit:    {WorkgroupSize: workgroupSize, Run: initAgent},
			EntryUpdate:  {WorkgroupSize: workgroupSize, Run: updateAgent},
			EntryProject: {WorkgroupSize: workgroupSize, Run: projectAgent},
		},
		Fragment: map[string]soft.FragmentKernel{
			EntryBlur: blurFragment,
		},
	}
}

// hash is a 32-bit integer mixer (lowbias32).
func hash(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return x
}

// unit maps a hash to [0, 1).
func unit(h uint32) float32 {
	return float32(h>>8) / (1 << 24)
}

func agentHash(seed, id, salt uint32) uint32 {
	return hash(seed ^ (id * 0x9e3779b9) ^ salt)
}

func initAgent(b *soft.Bindings, id uint32) {
	agents := b.Buffer(GroupSpecies, BindingAgents)
	if int(id) >= len(agents)/AgentSize {
		return
	}
	seed := ReadSeed(b.Buffer(GroupScalar, 0))

	h := agentHash(seed, id, initSalt)
	x := unit(h)
	h = hash(h)
	y := unit(h)
	h = hash(h)
	angle := unit(h) * twoPi

	PutAgent(agents[id*AgentSize:], Agent{Pos: [2]float32{x, y}, Angle: angle})
}

func updateAgent(b *soft.Bindings, id uint32) {
	agents := b.Buffer(GroupSpecies, BindingAgents)
	if int(id) >= len(agents)/AgentSize {
		return
	}
	q := ReadQualities(b.Buffer(GroupSpecies, BindingQualities))
	trail := b.Texture(GroupTexture, BindingTexture)
	smp := b.Sampler(GroupTexture, BindingSampler)
	seed := ReadSeed(b.Buffer(GroupScalar, 0))

	ag := ReadAgent(agents[id*AgentSize:])

	// attraction to own color, repulsion from the rest
	var weight [3]float32
	for c := range weight {
		weight[c] = 2*q.Color[c] - 1
	}
	sense := func(angle float32) float32 {
		u := ag.Pos[0] + q.ViewDistance*math32.Cos(angle)
		v := ag.Pos[1] + q.ViewDistance*math32.Sin(angle)
		t := trail.Sample(u, v, smp)
		return t[0]*weight[0] + t[1]*weight[1] + t[2]*weight[2]
	}

	forward := sense(ag.Angle)
	left := sense(ag.Angle + q.FieldOfView)
	right := sense(ag.Angle - q.FieldOfView)

	r := unit(agentHash(seed, id, updateSalt))
	switch {
	case forward > left && forward > right:
	case forward < left && forward < right:
		ag.Angle += (2*r - 1) * q.TurnSpeed
	case right > left:
		ag.Angle -= r * q.TurnSpeed
	case left > right:
		ag.Angle += r * q.TurnSpeed
	}

	ag.Pos[0] += q.Speed * math32.Cos(ag.Angle)
	ag.Pos[1] += q.Speed * math32.Sin(ag.Angle)
	ag = reflect(ag)

	PutAgent(agents[id*AgentSize:], ag)
}

// reflect bounces an agent off the unit square.
func reflect(ag Agent) Agent {
	if ag.Pos[0] < 0 {
		ag.Pos[0] = -ag.Pos[0]
		ag.Angle = math32.Pi - ag.Angle
	} else if ag.Pos[0] > 1 {
		ag.Pos[0] = 2 - ag.Pos[0]
		ag.Angle = math32.Pi - ag.Angle
	}
	if ag.Pos[1] < 0 {
		ag.Pos[1] = -ag.Pos[1]
		ag.Angle = -ag.Angle
	} else if ag.Pos[1] > 1 {
		ag.Pos[1] = 2 - ag.Pos[1]
		ag.Angle = -ag.Angle
	}
	ag.Pos[0] = clamp01(ag.Pos[0])
	ag.Pos[1] = clamp01(ag.Pos[1])

	ag.Angle = math32.Mod(ag.Angle, twoPi)
	if ag.Angle < 0 {
		ag.Angle += twoPi
	}
	return ag
}

func projectAgent(b *soft.Bindings, id uint32) {
	agents := b.Buffer(GroupSpecies, BindingAgents)
	if int(id) >= len(agents)/AgentSize {
		return
	}
	q := ReadQualities(b.Buffer(GroupSpecies, BindingQualities))
	field := b.Texture(GroupStorage, 0)
	ag := ReadAgent(agents[id*AgentSize:])

	x, y := Texel(ag.Pos, int(field.Width()), int(field.Height()))
	field.Accumulate(x, y, Deposit(q.Color[0]), Deposit(q.Color[1]), Deposit(q.Color[2]))
}

// Texel maps a unit-square position to the nearest texel of a w×h field.
func Texel(pos [2]float32, w, h int) (int, int) {
	x := int(math32.Floor(clamp01(pos[0])*float32(w-1) + 0.5))
	y := int(math32.Floor(clamp01(pos[1])*float32(h-1) + 0.5))
	return x, y
}

// Deposit quantises a color channel to 1/255 units.
func Deposit(c float32) uint32 {
	return uint32(math32.Floor(clamp01(c)*255 + 0.5))
}

func blurFragment(b *soft.Bindings, x, y int) [4]float32 {
	src := b.Texture(GroupTexture, BindingTexture)
	dx, dy := ReadDirection(b.Buffer(GroupScalar, 0))
	opts := ReadOptions(b.Buffer(GroupOptions, 0))

	center := src.Load(x, y)
	var blurred [3]float32
	for k, w := range blurWeights {
		off := k - 2
		t := src.Load(x+off*int(dx), y+off*int(dy))
		blurred[0] += t[0] * w
		blurred[1] += t[1] * w
		blurred[2] += t[2] * w
	}

	out := [4]float32{0, 0, 0, 1}
	for c := 0; c < 3; c++ {
		v := center[c] + (blurred[c]-center[c])*opts.Diffusion - opts.Evaporation
		out[c] = math32.Max(v, 0)
	}
	return out
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
