// Package gpu declares the device abstraction the simulation records its
// passes against. Implementations own resource lifetimes, compile pipelines
// asynchronously and execute submitted command buffers in order.
package gpu

import "fmt"

// MaxBindGroups is the number of bind-group slots a pipeline layout may use.
const MaxBindGroups = 5

// BufferUsage is a bit set describing how a buffer may be bound.
type BufferUsage uint32

const (
	BufferUsageStorage BufferUsage = 1 << iota
	BufferUsageUniform
	BufferUsageCopyDst
)

// TextureFormat is the texel format of a texture.
type TextureFormat uint8

const (
	FormatRGBA8Unorm TextureFormat = iota
	FormatRGBA32Float
)

func (f TextureFormat) String() string {
	switch f {
	case FormatRGBA8Unorm:
		return "rgba8unorm"
	case FormatRGBA32Float:
		return "rgba32float"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// BytesPerTexel returns the storage cost of one texel.
func (f TextureFormat) BytesPerTexel() uint64 {
	if f == FormatRGBA32Float {
		return 16
	}
	return 4
}

// ParseTextureFormat maps a config string to a format.
func ParseTextureFormat(s string) (TextureFormat, error) {
	switch s {
	case "rgba8unorm", "":
		return FormatRGBA8Unorm, nil
	case "rgba32float":
		return FormatRGBA32Float, nil
	}
	return 0, fmt.Errorf("unknown texture format %q", s)
}

// TextureUsage is a bit set describing how a texture may be bound.
type TextureUsage uint32

const (
	TextureUsageBinding TextureUsage = 1 << iota
	TextureUsageStorage
	TextureUsageRenderAttachment
	TextureUsageCopySrc
)

// ShaderStage is a visibility mask for layout entries.
type ShaderStage uint32

const (
	StageCompute ShaderStage = 1 << iota
	StageFragment
)

// BindingType names the kind of resource a layout entry expects.
type BindingType uint8

const (
	BindingStorageBuffer BindingType = iota
	BindingReadOnlyStorageBuffer
	BindingUniformBuffer
	BindingTexture
	BindingSampler
	BindingStorageTexture
)

func (t BindingType) String() string {
	switch t {
	case BindingStorageBuffer:
		return "storage"
	case BindingReadOnlyStorageBuffer:
		return "read-only storage"
	case BindingUniformBuffer:
		return "uniform"
	case BindingTexture:
		return "texture"
	case BindingSampler:
		return "sampler"
	case BindingStorageTexture:
		return "storage texture"
	default:
		return fmt.Sprintf("binding(%d)", uint8(t))
	}
}

// IsBuffer reports whether the binding expects a buffer resource.
func (t BindingType) IsBuffer() bool {
	return t == BindingStorageBuffer || t == BindingReadOnlyStorageBuffer || t == BindingUniformBuffer
}

// FilterMode selects texel filtering for samplers.
type FilterMode uint8

const (
	FilterNearest FilterMode = iota
	FilterLinear
)

// AddressMode selects out-of-range coordinate handling for samplers.
type AddressMode uint8

const (
	AddressClampToEdge AddressMode = iota
	AddressRepeat
)

// Color is a linear RGBA color used for texture fills and pass clears.
type Color struct {
	R, G, B, A float32
}

// Black is the opaque black every trail field starts as.
var Black = Color{A: 1}

// BufferDescriptor describes a buffer allocation. A non-nil Contents
// initialises the buffer and must not exceed Size.
type BufferDescriptor struct {
	Label    string
	Size     uint64
	Usage    BufferUsage
	Contents []byte
}

// TextureDescriptor describes a 2D texture filled with Fill on creation.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format TextureFormat
	Usage  TextureUsage
	Fill   Color
}

// SamplerDescriptor describes a sampler.
type SamplerDescriptor struct {
	Label   string
	Filter  FilterMode
	Address AddressMode
}

// BindGroupLayoutEntry declares one binding of a layout.
type BindGroupLayoutEntry struct {
	Binding        uint32
	Visibility     ShaderStage
	Type           BindingType
	MinBindingSize uint64        // buffers only; zero means unchecked
	Format         TextureFormat // storage textures only
}

// BindGroupLayoutDescriptor describes a layout. An empty Entries slice is a
// valid layout that fills unused slots.
type BindGroupLayoutDescriptor struct {
	Label   string
	Entries []BindGroupLayoutEntry
}

// BindGroupEntry binds one resource. Exactly one of Buffer, Texture or
// Sampler is set, matching the layout entry's type.
type BindGroupEntry struct {
	Binding uint32
	Buffer  Buffer
	Texture Texture
	Sampler Sampler
}

// BindGroupDescriptor describes a bind group conforming to Layout.
type BindGroupDescriptor struct {
	Label   string
	Layout  BindGroupLayout
	Entries []BindGroupEntry
}

// ComputePipelineDescriptor describes a compute program to compile.
type ComputePipelineDescriptor struct {
	Label      string
	Layout     []BindGroupLayout
	Module     string
	EntryPoint string
}

// RenderPipelineDescriptor describes a fullscreen fragment program to compile.
type RenderPipelineDescriptor struct {
	Label         string
	Layout        []BindGroupLayout
	Module        string
	FragmentEntry string
	TargetFormat  TextureFormat
}

// RenderPassDescriptor names the color target of a render pass. The target
// is cleared to Clear when the pass begins.
type RenderPassDescriptor struct {
	Label  string
	Target Texture
	Clear  Color
}

// PipelineID identifies a queued pipeline compilation.
type PipelineID uint64

// PipelineStatus is the compilation state of a queued pipeline.
type PipelineStatus uint8

const (
	PipelineQueued PipelineStatus = iota
	PipelineReady
	PipelineFailed
)

func (s PipelineStatus) String() string {
	switch s {
	case PipelineQueued:
		return "queued"
	case PipelineReady:
		return "ready"
	case PipelineFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Buffer is a linear allocation in device memory.
type Buffer interface {
	Label() string
	Size() uint64
	// Destroy releases the allocation. Destroying twice is a no-op.
	Destroy()
}

// Texture is a 2D image in device memory.
type Texture interface {
	Label() string
	Width() uint32
	Height() uint32
	Format() TextureFormat
	// Destroy releases the allocation. Destroying twice is a no-op.
	Destroy()
}

type Sampler interface {
	Label() string
}

type BindGroupLayout interface {
	Label() string
}

type BindGroup interface {
	Label() string
	Layout() BindGroupLayout
}

type ComputePipeline interface {
	Label() string
}

type RenderPipeline interface {
	Label() string
}

// CommandBuffer is a finished, submittable recording.
type CommandBuffer interface {
	Label() string
}

// ComputePass records dispatches. Bind groups persist across dispatches
// within the pass.
type ComputePass interface {
	SetPipeline(p ComputePipeline)
	SetBindGroup(index uint32, group BindGroup)
	DispatchWorkgroups(x, y, z uint32)
	End()
}

// RenderPass records fullscreen draws into a single color target.
type RenderPass interface {
	SetPipeline(p RenderPipeline)
	SetBindGroup(index uint32, group BindGroup)
	Draw(vertexCount, instanceCount uint32)
	End()
}

// CommandEncoder records passes into one command buffer.
type CommandEncoder interface {
	BeginComputePass(label string) ComputePass
	BeginRenderPass(desc RenderPassDescriptor) RenderPass
	Finish() CommandBuffer
}

// Device creates resources, compiles pipelines and runs command buffers.
type Device interface {
	CreateBuffer(desc BufferDescriptor) (Buffer, error)
	WriteBuffer(buf Buffer, offset uint64, data []byte) error
	CreateTexture(desc TextureDescriptor) (Texture, error)
	CreateSampler(desc SamplerDescriptor) Sampler
	CreateBindGroupLayout(desc BindGroupLayoutDescriptor) BindGroupLayout
	CreateBindGroup(desc BindGroupDescriptor) (BindGroup, error)

	// QueueComputePipeline starts an asynchronous compilation and returns
	// immediately. Poll with ComputePipeline.
	QueueComputePipeline(desc ComputePipelineDescriptor) PipelineID
	QueueRenderPipeline(desc RenderPipelineDescriptor) PipelineID
	ComputePipeline(id PipelineID) (ComputePipeline, PipelineStatus, error)
	RenderPipeline(id PipelineID) (RenderPipeline, PipelineStatus, error)

	CreateCommandEncoder(label string) CommandEncoder
	// Submit validates every recorded pass before executing any of them.
	// Command buffers run in order.
	Submit(cmds ...CommandBuffer) error

	// ReadTexture returns the texture contents as tightly packed RGBA8.
	ReadTexture(tex Texture) ([]byte, error)
	// ReadBuffer returns a copy of the buffer contents.
	ReadBuffer(buf Buffer) ([]byte, error)
}

// WorkgroupCount returns the number of workgroups needed to cover n
// invocations, ceil(n / size).
func WorkgroupCount(n, size uint32) uint32 {
	if size == 0 {
		return 0
	}
	return (n + size - 1) / size
}
