package sim

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"

	"github.com/pthm-cable/slime/gpu"
	"github.com/pthm-cable/slime/shaders"
)

// SpeciesID is the stable host-side identity of a species.
type SpeciesID uint64

// Qualities are the per-species movement parameters and trail color.
type Qualities = shaders.Qualities

// Species is one entry of the host snapshot.
type Species struct {
	ID        SpeciesID
	Name      string
	NumAgents uint32
	Qualities Qualities
}

// AgentState records whether a species' agents have been initialised.
// It only moves from NeedsInit to Active.
type AgentState uint8

const (
	NeedsInit AgentState = iota
	Active
)

func (s AgentState) String() string {
	switch s {
	case NeedsInit:
		return "needs_init"
	case Active:
		return "active"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// EventKind classifies a difference between two snapshots.
type EventKind uint8

const (
	EventAdded EventKind = iota
	EventResized
	EventRequalified
	EventRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventResized:
		return "resized"
	case EventRequalified:
		return "requalified"
	case EventRemoved:
		return "removed"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Event is one change found by Reconcile. Species is the new value;
// Previous is the cached value for Resized, Requalified and Removed.
type Event struct {
	Kind     EventKind
	ID       SpeciesID
	Species  Species
	Previous Species
}

// Reconcile diffs the cached snapshot against the next one. Species with
// zero agents count as absent; a repeated id keeps its last occurrence.
// Events are ordered by id.
func Reconcile(old map[SpeciesID]Species, next []Species) []Event {
	live := make(map[SpeciesID]Species, len(next))
	for _, s := range next {
		if s.NumAgents == 0 {
			delete(live, s.ID)
			continue
		}
		live[s.ID] = s
	}

	var events []Event
	for id, s := range live {
		prev, ok := old[id]
		switch {
		case !ok:
			events = append(events, Event{Kind: EventAdded, ID: id, Species: s})
		case prev.NumAgents != s.NumAgents:
			events = append(events, Event{Kind: EventResized, ID: id, Species: s, Previous: prev})
		case prev.Qualities != s.Qualities || prev.Name != s.Name:
			events = append(events, Event{Kind: EventRequalified, ID: id, Species: s, Previous: prev})
		}
	}
	for id, prev := range old {
		if _, ok := live[id]; !ok {
			events = append(events, Event{Kind: EventRemoved, ID: id, Previous: prev})
		}
	}

	slices.SortFunc(events, func(a, b Event) int { return cmp.Compare(a.ID, b.ID) })
	return events
}

// Entry is the device state of one live species.
type Entry struct {
	Species   Species
	Agents    gpu.Buffer
	Qualities gpu.Buffer
	Group     gpu.BindGroup
	State     AgentState
}

// SyncResult reports what one Sync did. Live is ordered by id.
type SyncResult struct {
	Live      []Entry
	Events    []Event
	Allocated []SpeciesID
	Freed     []SpeciesID
	Failed    []SpeciesID
}

// Cache owns the id to buffer mapping. It is the only writer of species
// buffers other than the programs themselves.
type Cache struct {
	dev     gpu.Device
	layouts *Layouts
	entries map[SpeciesID]*Entry

	allocFailures int
}

func NewCache(dev gpu.Device, layouts *Layouts) *Cache {
	return &Cache{dev: dev, layouts: layouts, entries: make(map[SpeciesID]*Entry)}
}

// Snapshot returns the species each entry was built from.
func (c *Cache) Snapshot() map[SpeciesID]Species {
	out := make(map[SpeciesID]Species, len(c.entries))
	for id, e := range c.entries {
		out[id] = e.Species
	}
	return out
}

// Sync brings the cache in line with next.
func (c *Cache) Sync(next []Species) SyncResult {
	var res SyncResult
	res.Events = Reconcile(c.Snapshot(), next)

	for _, ev := range res.Events {
		switch ev.Kind {
		case EventAdded:
			c.allocate(ev.Species, &res)
		case EventResized:
			c.free(ev.ID)
			res.Freed = append(res.Freed, ev.ID)
			c.allocate(ev.Species, &res)
		case EventRequalified:
			e := c.entries[ev.ID]
			if err := c.dev.WriteBuffer(e.Qualities, 0, ev.Species.Qualities.Bytes()); err != nil {
				slog.Warn("qualities write failed", "species", ev.Species.Name, "err", err)
				continue
			}
			e.Species = ev.Species
		case EventRemoved:
			c.free(ev.ID)
			res.Freed = append(res.Freed, ev.ID)
		}
	}

	res.Live = c.live()
	return res
}

func (c *Cache) allocate(s Species, res *SyncResult) {
	e, err := c.build(s)
	if err != nil {
		c.allocFailures++
		res.Failed = append(res.Failed, s.ID)
		slog.Debug("species allocation failed",
			"species", s.Name,
			"agents", s.NumAgents,
			"err", err,
		)
		return
	}
	c.entries[s.ID] = e
	res.Allocated = append(res.Allocated, s.ID)
}

func (c *Cache) build(s Species) (*Entry, error) {
	prefix := fmt.Sprintf("[species %s]", s.Name)

	agents, err := c.dev.CreateBuffer(gpu.BufferDescriptor{
		Label: prefix + " agents",
		Size:  uint64(s.NumAgents) * shaders.AgentSize,
		Usage: gpu.BufferUsageStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("agents buffer: %w", err)
	}

	quals, err := c.dev.CreateBuffer(gpu.BufferDescriptor{
		Label:    prefix + " qualities",
		Size:     shaders.QualitiesSize,
		Usage:    gpu.BufferUsageUniform | gpu.BufferUsageCopyDst,
		Contents: s.Qualities.Bytes(),
	})
	if err != nil {
		agents.Destroy()
		return nil, fmt.Errorf("qualities buffer: %w", err)
	}

	group, err := c.dev.CreateBindGroup(gpu.BindGroupDescriptor{
		Label:  prefix + " bind group",
		Layout: c.layouts.Species,
		Entries: []gpu.BindGroupEntry{
			{Binding: shaders.BindingAgents, Buffer: agents},
			{Binding: shaders.BindingQualities, Buffer: quals},
		},
	})
	if err != nil {
		agents.Destroy()
		quals.Destroy()
		return nil, fmt.Errorf("bind group: %w", err)
	}

	return &Entry{Species: s, Agents: agents, Qualities: quals, Group: group, State: NeedsInit}, nil
}

func (c *Cache) free(id SpeciesID) {
	e, ok := c.entries[id]
	if !ok {
		return
	}
	e.Agents.Destroy()
	e.Qualities.Destroy()
	delete(c.entries, id)
}

func (c *Cache) live() []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return cmp.Compare(a.Species.ID, b.Species.ID) })
	return out
}

// Activate latches the given species to Active. Called after a frame that
// ran their init program was submitted.
func (c *Cache) Activate(ids ...SpeciesID) {
	for _, id := range ids {
		if e, ok := c.entries[id]; ok {
			e.State = Active
		}
	}
}

// Entry returns a copy of the cached entry for id.
func (c *Cache) Entry(id SpeciesID) (Entry, bool) {
	e, ok := c.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

func (c *Cache) Len() int { return len(c.entries) }

// AllocFailures counts allocation failures since creation.
func (c *Cache) AllocFailures() int { return c.allocFailures }

// Release destroys every cached buffer.
func (c *Cache) Release() {
	for id := range c.entries {
		c.free(id)
	}
}
