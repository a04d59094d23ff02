package hal

// The interfaces below are the driver contract. The front performs all
// descriptor and state-machine validation, so drivers may assume their
// inputs are structurally sound; they still report native failures.

// PlatformTarget is an on-screen rendering target. Drivers type-assert
// it to the windowing integration they need; a nil target selects the
// offscreen fallback path.
type PlatformTarget interface {
	FramebufferSize() (uint32, uint32)
}

type InstanceOptions struct {
	AppName          string
	EnableValidation bool
	// Target is the window the instance presents to, or nil for
	// headless use.
	Target PlatformTarget
}

type AdapterOptions struct {
	// RequirePresent restricts the search to adapters that can present
	// to the instance's target.
	RequirePresent bool
}

type Backend interface {
	Init(opts InstanceOptions) error
	RequestAdapter(opts AdapterOptions) (BackendAdapter, error)
	Shutdown()
}

type BackendAdapter interface {
	Info() AdapterInfo
	CreateDevice() (BackendDevice, error)
}

// BackendBinding is a bind group entry with its resources resolved to
// driver handles.
type BackendBinding struct {
	Binding uint32
	Type    BindingType
	Buffer  BackendBuffer
	Offset  uint64
	Size    uint64
	View    BackendTextureView
	Sampler BackendSampler
}

// RenderPipelineState is a render pipeline descriptor with its modules
// and layouts resolved to driver handles.
type RenderPipelineState struct {
	Label         string
	Vertex        BackendShaderModule
	Fragment      BackendShaderModule
	Layouts       []BackendBindGroupLayout
	VertexBuffers []VertexBufferLayout
	Topology      PrimitiveTopology
	CullMode      CullMode
	BlendEnabled  bool
	ColorFormat   TextureFormat
}

type ComputePipelineState struct {
	Label   string
	Module  BackendShaderModule
	Layouts []BackendBindGroupLayout
}

// RenderPassState carries everything a driver needs to begin a pass.
// Swapchain is non-nil when the attachment is an acquired frame, in
// which case the driver binds that image's prebuilt framebuffer and
// handles the presentation layout transition.
type RenderPassState struct {
	Label      string
	View       BackendTextureView
	Format     TextureFormat
	Width      uint32
	Height     uint32
	ClearColor [4]float32
	Swapchain  BackendSwapchain
	ImageIndex uint32
}

// PresentRequest rides a submission whose commands rendered into an
// acquired swapchain image.
type PresentRequest struct {
	Swapchain  BackendSwapchain
	ImageIndex uint32
}

type SwapchainConfig struct {
	Width       uint32
	Height      uint32
	PresentMode PresentMode
}

type BackendDevice interface {
	CreateBuffer(desc *BufferDescriptor) (BackendBuffer, error)
	CreateTexture(desc *TextureDescriptor) (BackendTexture, error)
	CreateSampler(desc *SamplerDescriptor) (BackendSampler, error)
	CreateShaderModule(label string, words []uint32) (BackendShaderModule, error)
	CreateBindGroupLayout(desc *BindGroupLayoutDescriptor) (BackendBindGroupLayout, error)
	CreateBindGroup(layout BackendBindGroupLayout, bindings []BackendBinding) (BackendBindGroup, error)
	CreateRenderPipeline(state *RenderPipelineState) (BackendRenderPipeline, error)
	CreateComputePipeline(state *ComputePipelineState) (BackendComputePipeline, error)
	CreateCommandEncoder(label string) (BackendEncoder, error)
	CreateSwapchain(cfg *SwapchainConfig) (BackendSwapchain, error)
	// Submit consumes one recorded buffer. A non-nil present request
	// makes the driver issue the platform present call after the
	// submission signal.
	Submit(buf BackendCommandBuffer, present *PresentRequest) error
	WaitIdle() error
	Destroy()
}

type BackendBuffer interface {
	Write(data []byte, offset uint64) error
	Read(dst []byte, offset uint64) error
	Destroy()
}

type BackendTexture interface {
	// Upload moves a packed payload into the image through the staging
	// protocol and leaves every touched subresource shader-readable.
	Upload(data []byte, regions []UploadRegion) error
	CreateView(desc *TextureViewDescriptor) (BackendTextureView, error)
	Destroy()
}

type BackendTextureView interface {
	Destroy()
}

type BackendSampler interface {
	Destroy()
}

type BackendShaderModule interface {
	Destroy()
}

type BackendBindGroupLayout interface {
	Destroy()
}

type BackendBindGroup interface {
	Destroy()
}

type BackendRenderPipeline interface {
	Destroy()
}

type BackendComputePipeline interface {
	Destroy()
}

type BackendEncoder interface {
	BeginRenderPass(state *RenderPassState) (BackendRenderPass, error)
	BeginComputePass() (BackendComputePass, error)
	Finish() (BackendCommandBuffer, error)
	// Destroy releases the native recording resource of an encoder that
	// was abandoned without Finish.
	Destroy()
}

type BackendRenderPass interface {
	SetPipeline(p BackendRenderPipeline)
	SetVertexBuffer(slot uint32, buf BackendBuffer, offset uint64)
	SetIndexBuffer(buf BackendBuffer, format IndexFormat, offset uint64)
	SetBindGroup(index uint32, group BackendBindGroup)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	End()
}

type BackendComputePass interface {
	SetPipeline(p BackendComputePipeline)
	SetBindGroup(index uint32, group BackendBindGroup)
	DispatchWorkgroups(x, y, z uint32)
	End()
}

type BackendCommandBuffer interface {
	Destroy()
}

type BackendSwapchain interface {
	ImageCount() uint32
	Extent() (uint32, uint32)
	Format() TextureFormat
	// Acquire blocks for the next presentable image and returns its
	// index plus a non-owning texture and view. An out-of-date surface
	// is reported as core.ErrSwapchainOutOfDate.
	Acquire() (uint32, BackendTexture, BackendTextureView, error)
	Destroy()
}
