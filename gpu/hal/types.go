package hal

// BufferUsage constrains which pipeline stages may bind a buffer.
type BufferUsage uint32

const (
	BufferUsageCopySrc BufferUsage = 1 << iota
	BufferUsageCopyDst
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageIndex
	BufferUsageVertex
	BufferUsageIndirect
)

type TextureUsage uint32

const (
	TextureUsageCopySrc TextureUsage = 1 << iota
	TextureUsageCopyDst
	TextureUsageSampled
	TextureUsageStorage
	TextureUsageRenderAttachment
)

// TextureFormat zero value is Undefined, which view descriptors use to
// inherit the parent texture's format.
type TextureFormat int

const (
	TextureFormatUndefined TextureFormat = iota
	TextureFormatRGBA8Unorm
	TextureFormatBGRA8Unorm
	TextureFormatRGBA16Float
)

// BytesPerPixel returns the packed size of one texel.
func (f TextureFormat) BytesPerPixel() uint32 {
	switch f {
	case TextureFormatRGBA16Float:
		return 8
	default:
		return 4
	}
}

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA8Unorm:
		return "rgba8unorm"
	case TextureFormatBGRA8Unorm:
		return "bgra8unorm"
	case TextureFormatRGBA16Float:
		return "rgba16float"
	default:
		return "undefined"
	}
}

type TextureDimension int

const (
	TextureDimension2D TextureDimension = iota
	TextureDimensionCube
)

// LayerCount returns how many array layers the dimension implies.
func (d TextureDimension) LayerCount() uint32 {
	if d == TextureDimensionCube {
		return 6
	}
	return 1
}

type FilterMode int

const (
	FilterModeNearest FilterMode = iota
	FilterModeLinear
)

type AddressMode int

const (
	AddressModeClampToEdge AddressMode = iota
	AddressModeRepeat
	AddressModeMirrorRepeat
)

type PrimitiveTopology int

const (
	PrimitiveTopologyPointList PrimitiveTopology = iota
	PrimitiveTopologyLineList
	PrimitiveTopologyLineStrip
	PrimitiveTopologyTriangleList
	PrimitiveTopologyTriangleStrip
)

type CullMode int

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
)

type IndexFormat int

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

type VertexFormat int

const (
	VertexFormatFloat32 VertexFormat = iota
	VertexFormatFloat32x2
	VertexFormatFloat32x3
	VertexFormatFloat32x4
)

// Size returns the byte size of one attribute of this format.
func (v VertexFormat) Size() uint32 {
	switch v {
	case VertexFormatFloat32:
		return 4
	case VertexFormatFloat32x2:
		return 8
	case VertexFormatFloat32x3:
		return 12
	default:
		return 16
	}
}

type VertexStepMode int

const (
	VertexStepModeVertex VertexStepMode = iota
	VertexStepModeInstance
)

type BindingType int

const (
	BindingTypeUniformBuffer BindingType = iota
	BindingTypeStorageBuffer
	BindingTypeSampledTexture
	BindingTypeSampler
	BindingTypeCombinedImageSampler
)

func (b BindingType) String() string {
	switch b {
	case BindingTypeUniformBuffer:
		return "uniform-buffer"
	case BindingTypeStorageBuffer:
		return "storage-buffer"
	case BindingTypeSampledTexture:
		return "sampled-texture"
	case BindingTypeSampler:
		return "sampler"
	case BindingTypeCombinedImageSampler:
		return "combined-image-sampler"
	default:
		return "unknown"
	}
}

// ShaderStage is a visibility bitmask for bind group layout entries.
type ShaderStage uint32

const (
	ShaderStageVertex ShaderStage = 1 << iota
	ShaderStageFragment
	ShaderStageCompute
)

type PresentMode int

const (
	PresentModeFifo PresentMode = iota
	PresentModeMailbox
)

// AdapterInfo is the immutable description of a physical device.
type AdapterInfo struct {
	Name          string
	VendorID      uint32
	DeviceID      uint32
	DeviceType    string
	DriverVersion string
	APIVersion    string
}

type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage BufferUsage
	// Contents, when non-nil, is uploaded right after creation through
	// the staging path (device-local) or a direct write (host-visible).
	Contents []byte
}

type TextureDescriptor struct {
	Label         string
	Width         uint32
	Height        uint32
	Dimension     TextureDimension
	Format        TextureFormat
	MipLevelCount uint32
	SampleCount   uint32
	Usage         TextureUsage
	// Contents, when non-nil, must pack every layer and mip level in
	// layer-major, level-minor order. See Texture.Upload.
	Contents []byte
}

type TextureViewDescriptor struct {
	Label     string
	Dimension TextureDimension
	// Format Undefined inherits the parent texture's format.
	Format       TextureFormat
	BaseMipLevel uint32
	MipLevels    uint32
	BaseLayer    uint32
	Layers       uint32
}

type SamplerDescriptor struct {
	Label        string
	MinFilter    FilterMode
	MagFilter    FilterMode
	AddressModeU AddressMode
	AddressModeV AddressMode
	AddressModeW AddressMode
}

type BindGroupLayoutEntry struct {
	Binding    uint32
	Type       BindingType
	Visibility ShaderStage
}

type BindGroupLayoutDescriptor struct {
	Label   string
	Entries []BindGroupLayoutEntry
}

// BindGroupEntry supplies the concrete resource for one binding slot.
// Exactly one of Buffer, View/Sampler must be set according to the
// layout entry's type; combined image samplers take both View and
// Sampler.
type BindGroupEntry struct {
	Binding uint32
	Buffer  *Buffer
	Offset  uint64
	// Size zero binds the whole buffer from Offset.
	Size    uint64
	View    *TextureView
	Sampler *Sampler
}

type BindGroupDescriptor struct {
	Label   string
	Layout  *BindGroupLayout
	Entries []BindGroupEntry
}

type VertexAttribute struct {
	Format         VertexFormat
	Offset         uint32
	ShaderLocation uint32
}

type VertexBufferLayout struct {
	ArrayStride uint32
	StepMode    VertexStepMode
	Attributes  []VertexAttribute
}

type RenderPipelineDescriptor struct {
	Label    string
	Vertex   *ShaderModule
	Fragment *ShaderModule
	// Layouts is ordered; entry i becomes descriptor set i of the
	// derived pipeline layout.
	Layouts       []*BindGroupLayout
	VertexBuffers []VertexBufferLayout
	Topology      PrimitiveTopology
	CullMode      CullMode
	BlendEnabled  bool
	ColorFormat   TextureFormat
}

type ComputePipelineDescriptor struct {
	Label   string
	Module  *ShaderModule
	Layouts []*BindGroupLayout
}

type RenderPassColorAttachment struct {
	View       *TextureView
	ClearColor [4]float32
}

type RenderPassDescriptor struct {
	Label           string
	ColorAttachment RenderPassColorAttachment
}

// SurfaceConfiguration describes the presentable target. A zero width
// or height falls back to the platform target's current size.
type SurfaceConfiguration struct {
	Width       uint32
	Height      uint32
	Format      TextureFormat
	PresentMode PresentMode
}

// UploadRegion describes one packed mip level of one layer inside a
// staging payload.
type UploadRegion struct {
	Offset     uint64
	MipLevel   uint32
	BaseLayer  uint32
	LayerCount uint32
	Width      uint32
	Height     uint32
}
