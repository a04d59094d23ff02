package hal

import (
	"fmt"

	"github.com/codeyousef/materia/gpu/core"
)

// fakeBackend implements the driver interfaces in memory so the front's
// validation and state machines can be exercised without a GPU.
type fakeBackend struct {
	initialized bool
	target      PlatformTarget

	// knobs for failure injection
	acquireOutOfDate bool

	submits  int
	presents int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{}
}

func (b *fakeBackend) Init(opts InstanceOptions) error {
	b.initialized = true
	b.target = opts.Target
	return nil
}

func (b *fakeBackend) RequestAdapter(opts AdapterOptions) (BackendAdapter, error) {
	return &fakeAdapter{backend: b}, nil
}

func (b *fakeBackend) Shutdown() {
	b.initialized = false
}

type fakeAdapter struct {
	backend *fakeBackend
}

func (a *fakeAdapter) Info() AdapterInfo {
	return AdapterInfo{
		Name:       "Fake GPU",
		VendorID:   0xF0F0,
		DeviceType: "virtual",
	}
}

func (a *fakeAdapter) CreateDevice() (BackendDevice, error) {
	return &fakeDevice{backend: a.backend}, nil
}

type fakeDevice struct {
	backend   *fakeBackend
	destroyed bool
	buffers   int
	textures  int
}

func (d *fakeDevice) CreateBuffer(desc *BufferDescriptor) (BackendBuffer, error) {
	d.buffers++
	return &fakeBuffer{data: make([]byte, desc.Size)}, nil
}

func (d *fakeDevice) CreateTexture(desc *TextureDescriptor) (BackendTexture, error) {
	d.textures++
	return &fakeTexture{desc: *desc}, nil
}

func (d *fakeDevice) CreateSampler(desc *SamplerDescriptor) (BackendSampler, error) {
	return &fakeHandle{}, nil
}

func (d *fakeDevice) CreateShaderModule(label string, words []uint32) (BackendShaderModule, error) {
	return &fakeHandle{}, nil
}

func (d *fakeDevice) CreateBindGroupLayout(desc *BindGroupLayoutDescriptor) (BackendBindGroupLayout, error) {
	return &fakeHandle{}, nil
}

func (d *fakeDevice) CreateBindGroup(layout BackendBindGroupLayout, bindings []BackendBinding) (BackendBindGroup, error) {
	return &fakeHandle{}, nil
}

func (d *fakeDevice) CreateRenderPipeline(state *RenderPipelineState) (BackendRenderPipeline, error) {
	return &fakeHandle{}, nil
}

func (d *fakeDevice) CreateComputePipeline(state *ComputePipelineState) (BackendComputePipeline, error) {
	return &fakeHandle{}, nil
}

func (d *fakeDevice) CreateCommandEncoder(label string) (BackendEncoder, error) {
	return &fakeEncoder{}, nil
}

func (d *fakeDevice) CreateSwapchain(cfg *SwapchainConfig) (BackendSwapchain, error) {
	return &fakeSwapchain{
		backend: d.backend,
		width:   cfg.Width,
		height:  cfg.Height,
		images:  3,
	}, nil
}

func (d *fakeDevice) Submit(buf BackendCommandBuffer, present *PresentRequest) error {
	d.backend.submits++
	if present != nil {
		d.backend.presents++
	}
	return nil
}

func (d *fakeDevice) WaitIdle() error {
	return nil
}

func (d *fakeDevice) Destroy() {
	d.destroyed = true
}

type fakeBuffer struct {
	data      []byte
	destroyed bool
}

func (b *fakeBuffer) Write(data []byte, offset uint64) error {
	copy(b.data[offset:], data)
	return nil
}

func (b *fakeBuffer) Read(dst []byte, offset uint64) error {
	copy(dst, b.data[offset:])
	return nil
}

func (b *fakeBuffer) Destroy() {
	b.destroyed = true
}

type fakeTexture struct {
	desc      TextureDescriptor
	uploads   int
	destroyed bool
}

func (t *fakeTexture) Upload(data []byte, regions []UploadRegion) error {
	t.uploads++
	return nil
}

func (t *fakeTexture) CreateView(desc *TextureViewDescriptor) (BackendTextureView, error) {
	return &fakeHandle{}, nil
}

func (t *fakeTexture) Destroy() {
	t.destroyed = true
}

// fakeHandle stands in for every resource whose behavior the front does
// not observe beyond destruction.
type fakeHandle struct {
	destroyed bool
}

func (h *fakeHandle) Destroy() {
	h.destroyed = true
}

type fakeEncoder struct {
	finished  bool
	destroyed bool
	passes    int
}

func (e *fakeEncoder) BeginRenderPass(state *RenderPassState) (BackendRenderPass, error) {
	e.passes++
	return &fakeRenderPass{}, nil
}

func (e *fakeEncoder) BeginComputePass() (BackendComputePass, error) {
	e.passes++
	return &fakeComputePass{}, nil
}

func (e *fakeEncoder) Finish() (BackendCommandBuffer, error) {
	e.finished = true
	return &fakeHandle{}, nil
}

func (e *fakeEncoder) Destroy() {
	e.destroyed = true
}

type fakeRenderPass struct {
	draws int
	ended bool
}

func (p *fakeRenderPass) SetPipeline(BackendRenderPipeline)                 {}
func (p *fakeRenderPass) SetVertexBuffer(uint32, BackendBuffer, uint64)     {}
func (p *fakeRenderPass) SetIndexBuffer(BackendBuffer, IndexFormat, uint64) {}
func (p *fakeRenderPass) SetBindGroup(uint32, BackendBindGroup)             {}

func (p *fakeRenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.draws++
}

func (p *fakeRenderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	p.draws++
}

func (p *fakeRenderPass) End() {
	p.ended = true
}

type fakeComputePass struct {
	dispatches int
	ended      bool
}

func (p *fakeComputePass) SetPipeline(BackendComputePipeline)    {}
func (p *fakeComputePass) SetBindGroup(uint32, BackendBindGroup) {}

func (p *fakeComputePass) DispatchWorkgroups(x, y, z uint32) {
	p.dispatches++
}

func (p *fakeComputePass) End() {
	p.ended = true
}

type fakeSwapchain struct {
	backend   *fakeBackend
	width     uint32
	height    uint32
	images    uint32
	next      uint32
	destroyed bool
}

func (s *fakeSwapchain) ImageCount() uint32 {
	return s.images
}

func (s *fakeSwapchain) Extent() (uint32, uint32) {
	return s.width, s.height
}

func (s *fakeSwapchain) Format() TextureFormat {
	return TextureFormatBGRA8Unorm
}

func (s *fakeSwapchain) Acquire() (uint32, BackendTexture, BackendTextureView, error) {
	if s.backend.acquireOutOfDate {
		return 0, nil, nil, core.WrapError(core.ErrSwapchainOutOfDate, "acquire next image", "")
	}
	index := s.next
	s.next = (s.next + 1) % s.images
	tex := &fakeTexture{desc: TextureDescriptor{Width: s.width, Height: s.height, Format: s.Format()}}
	return index, tex, &fakeHandle{}, nil
}

func (s *fakeSwapchain) Destroy() {
	s.destroyed = true
}

// fakeTarget is a headful platform target for swapchain-path tests.
type fakeTarget struct {
	width, height uint32
}

func (t *fakeTarget) FramebufferSize() (uint32, uint32) {
	return t.width, t.height
}

// newTestDevice spins up a full fake instance/adapter/device chain.
func newTestDevice(target PlatformTarget) (*Instance, *Device, *fakeBackend, error) {
	backend := newFakeBackend()
	instance, err := CreateInstance(backend, InstanceOptions{AppName: "hal-test", Target: target})
	if err != nil {
		return nil, nil, nil, err
	}
	adapter, err := instance.RequestAdapter(AdapterOptions{}).Resolve()
	if err != nil {
		return nil, nil, nil, err
	}
	device, err := adapter.RequestDevice().Resolve()
	if err != nil {
		return nil, nil, nil, err
	}
	if device == nil {
		return nil, nil, nil, fmt.Errorf("nil device from resolve")
	}
	return instance, device, backend, nil
}
