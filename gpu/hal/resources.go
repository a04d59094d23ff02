package hal

import (
	"fmt"

	"github.com/codeyousef/materia/gpu/core"
	"github.com/codeyousef/materia/gpu/mathutil"
)

// Buffer is a linear device memory region. The descriptor is immutable;
// the contents change only through Write.
type Buffer struct {
	label    string
	size     uint64
	usage    BufferUsage
	backend  BackendBuffer
	registry *resourceRegistry
	slot     uint32
}

func (b *Buffer) Label() string      { return b.label }
func (b *Buffer) Size() uint64       { return b.size }
func (b *Buffer) Usage() BufferUsage { return b.usage }

// Write copies host bytes into the buffer at offset. Device-local
// buffers go through the staging path inside the driver; host-visible
// ones are written directly. A zero-length write is a no-op.
func (b *Buffer) Write(data []byte, offset uint64) error {
	if b.backend == nil {
		return destroyedResource("buffer write", b.label)
	}
	if len(data) == 0 {
		return nil
	}
	if offset+uint64(len(data)) > b.size {
		err := core.WrapError(core.ErrResourceCreationFailed,
			fmt.Sprintf("buffer write: %d bytes at offset %d exceed size %d", len(data), offset, b.size), b.label)
		core.LogError(err.Error())
		return err
	}
	return b.backend.Write(data, offset)
}

// Read copies buffer contents back to the host through a mapped staging
// copy, blocking until the device is done. Intended for readback and
// tests, not per-frame use.
func (b *Buffer) Read(dst []byte, offset uint64) error {
	if b.backend == nil {
		return destroyedResource("buffer read", b.label)
	}
	if len(dst) == 0 {
		return nil
	}
	if offset+uint64(len(dst)) > b.size {
		err := core.WrapError(core.ErrResourceCreationFailed,
			fmt.Sprintf("buffer read: %d bytes at offset %d exceed size %d", len(dst), offset, b.size), b.label)
		core.LogError(err.Error())
		return err
	}
	return b.backend.Read(dst, offset)
}

func (b *Buffer) Destroy() {
	if b.backend == nil {
		return
	}
	b.backend.Destroy()
	b.backend = nil
	b.registry.release(b.slot)
	b.slot = core.InvalidID
}

// Texture is a 2D or cube device image. Views project it for binding
// and attachment use.
type Texture struct {
	label    string
	desc     TextureDescriptor
	backend  BackendTexture
	registry *resourceRegistry
	slot     uint32
	// owned is false for swapchain images, which belong to the driver
	// swapchain and are never destroyed from here.
	owned bool
}

func (t *Texture) Label() string               { return t.label }
func (t *Texture) Extent() (uint32, uint32)    { return t.desc.Width, t.desc.Height }
func (t *Texture) Format() TextureFormat       { return t.desc.Format }
func (t *Texture) Dimension() TextureDimension { return t.desc.Dimension }
func (t *Texture) MipLevelCount() uint32       { return t.desc.MipLevelCount }

// CreateView projects the texture. The view's format and dimension must
// be compatible with the parent: an Undefined format inherits, anything
// else must match, and a cube view requires a cube parent.
func (t *Texture) CreateView(desc *TextureViewDescriptor) (*TextureView, error) {
	if t.backend == nil {
		return nil, destroyedResource("create texture view", t.label)
	}
	label := ensureLabel(desc.Label, "texture-view")
	normalized := *desc
	normalized.Label = label
	if normalized.Format == TextureFormatUndefined {
		normalized.Format = t.desc.Format
	}
	if normalized.Format != t.desc.Format {
		err := core.WrapError(core.ErrResourceCreationFailed,
			fmt.Sprintf("create texture view: format %s is incompatible with parent %s", normalized.Format, t.desc.Format), label)
		core.LogError(err.Error())
		return nil, err
	}
	if normalized.Dimension == TextureDimensionCube && t.desc.Dimension != TextureDimensionCube {
		err := core.WrapError(core.ErrResourceCreationFailed, "create texture view: cube view of a 2D texture", label)
		core.LogError(err.Error())
		return nil, err
	}
	if normalized.MipLevels == 0 {
		normalized.MipLevels = t.desc.MipLevelCount - normalized.BaseMipLevel
	}
	if normalized.Layers == 0 {
		normalized.Layers = normalized.Dimension.LayerCount()
	}
	if normalized.BaseMipLevel+normalized.MipLevels > t.desc.MipLevelCount {
		err := core.WrapError(core.ErrResourceCreationFailed, "create texture view: mip range out of bounds", label)
		core.LogError(err.Error())
		return nil, err
	}
	backend, err := t.backend.CreateView(&normalized)
	if err != nil {
		err = core.WrapError(core.ErrResourceCreationFailed, fmt.Sprintf("create texture view: %s", err), label)
		core.LogError(err.Error())
		return nil, err
	}
	v := &TextureView{
		label:    label,
		texture:  t,
		desc:     normalized,
		backend:  backend,
		registry: t.registry,
	}
	v.slot = t.registry.acquire(v)
	return v, nil
}

// Upload moves a packed payload into the image. The payload must hold
// every array layer in order, each layer carrying its full mip chain
// from level 0 down; UploadRegionsFor describes the expected layout.
func (t *Texture) Upload(data []byte) error {
	if t.backend == nil {
		return destroyedResource("texture upload", t.label)
	}
	regions, total := UploadRegionsFor(&t.desc)
	if uint64(len(data)) < total {
		err := core.WrapError(core.ErrResourceCreationFailed,
			fmt.Sprintf("texture upload: payload %d bytes, need %d", len(data), total), t.label)
		core.LogError(err.Error())
		return err
	}
	return t.backend.Upload(data, regions)
}

func (t *Texture) Destroy() {
	if t.backend == nil {
		return
	}
	if t.owned {
		t.backend.Destroy()
	}
	t.backend = nil
	if t.slot != core.InvalidID {
		t.registry.release(t.slot)
		t.slot = core.InvalidID
	}
}

// UploadRegionsFor lays out the staging buffer for a full upload of the
// described texture: layer-major, mip levels inside each layer, every
// level tightly packed at its own extent. Returns the copy regions and
// the total payload size.
func UploadRegionsFor(desc *TextureDescriptor) ([]UploadRegion, uint64) {
	layers := desc.Dimension.LayerCount()
	mips := desc.MipLevelCount
	if mips == 0 {
		mips = 1
	}
	bpp := uint64(desc.Format.BytesPerPixel())
	regions := make([]UploadRegion, 0, layers*mips)
	var offset uint64
	for layer := uint32(0); layer < layers; layer++ {
		for level := uint32(0); level < mips; level++ {
			w := mathutil.MipExtent(desc.Width, level)
			h := mathutil.MipExtent(desc.Height, level)
			// Copy offsets must be texel-aligned.
			offset = mathutil.AlignUp(offset, bpp)
			regions = append(regions, UploadRegion{
				Offset:     offset,
				MipLevel:   level,
				BaseLayer:  layer,
				LayerCount: 1,
				Width:      w,
				Height:     h,
			})
			offset += uint64(w) * uint64(h) * bpp
		}
	}
	return regions, offset
}

// TextureView is a typed, range-bounded projection of a texture.
type TextureView struct {
	label    string
	texture  *Texture
	desc     TextureViewDescriptor
	backend  BackendTextureView
	registry *resourceRegistry
	slot     uint32
	// frame is set on views handed out by Surface.AcquireFrame, so the
	// encoder can register swapchain-bound passes.
	frame *Frame
}

func (v *TextureView) Label() string         { return v.label }
func (v *TextureView) Texture() *Texture     { return v.texture }
func (v *TextureView) Format() TextureFormat { return v.desc.Format }

func (v *TextureView) live() bool {
	return v != nil && v.backend != nil
}

func (v *TextureView) Destroy() {
	if v.backend == nil {
		return
	}
	if v.frame == nil {
		v.backend.Destroy()
	}
	v.backend = nil
	if v.slot != core.InvalidID {
		v.registry.release(v.slot)
		v.slot = core.InvalidID
	}
}

type Sampler struct {
	label    string
	backend  BackendSampler
	registry *resourceRegistry
	slot     uint32
}

func (s *Sampler) Label() string { return s.label }

func (s *Sampler) Destroy() {
	if s.backend == nil {
		return
	}
	s.backend.Destroy()
	s.backend = nil
	s.registry.release(s.slot)
	s.slot = core.InvalidID
}

// ShaderModule is an opaque pre-compiled shader binary tagged with the
// label it was loaded under.
type ShaderModule struct {
	label    string
	backend  BackendShaderModule
	registry *resourceRegistry
	slot     uint32
}

func (m *ShaderModule) Label() string { return m.label }

func (m *ShaderModule) Destroy() {
	if m.backend == nil {
		return
	}
	m.backend.Destroy()
	m.backend = nil
	m.registry.release(m.slot)
	m.slot = core.InvalidID
}

// BindGroupLayout is the declared shape of a resource binding set.
type BindGroupLayout struct {
	label    string
	entries  []BindGroupLayoutEntry
	backend  BackendBindGroupLayout
	registry *resourceRegistry
	slot     uint32
}

func (l *BindGroupLayout) Label() string { return l.label }

// Entries returns a copy of the declared binding shape.
func (l *BindGroupLayout) Entries() []BindGroupLayoutEntry {
	out := make([]BindGroupLayoutEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *BindGroupLayout) Destroy() {
	if l.backend == nil {
		return
	}
	l.backend.Destroy()
	l.backend = nil
	l.registry.release(l.slot)
	l.slot = core.InvalidID
}

// BindGroup is a concrete resource set instantiated against exactly one
// layout.
type BindGroup struct {
	label    string
	layout   *BindGroupLayout
	backend  BackendBindGroup
	registry *resourceRegistry
	slot     uint32
}

func (g *BindGroup) Label() string            { return g.label }
func (g *BindGroup) Layout() *BindGroupLayout { return g.layout }

func (g *BindGroup) Destroy() {
	if g.backend == nil {
		return
	}
	g.backend.Destroy()
	g.backend = nil
	g.registry.release(g.slot)
	g.slot = core.InvalidID
}

type RenderPipeline struct {
	label    string
	backend  BackendRenderPipeline
	registry *resourceRegistry
	slot     uint32
}

func (p *RenderPipeline) Label() string { return p.label }

func (p *RenderPipeline) Destroy() {
	if p.backend == nil {
		return
	}
	p.backend.Destroy()
	p.backend = nil
	p.registry.release(p.slot)
	p.slot = core.InvalidID
}

type ComputePipeline struct {
	label    string
	backend  BackendComputePipeline
	registry *resourceRegistry
	slot     uint32
}

func (p *ComputePipeline) Label() string { return p.label }

func (p *ComputePipeline) Destroy() {
	if p.backend == nil {
		return
	}
	p.backend.Destroy()
	p.backend = nil
	p.registry.release(p.slot)
	p.slot = core.InvalidID
}

func destroyedResource(op, label string) error {
	err := core.WrapError(core.ErrResourceCreationFailed, op+": resource already destroyed", label)
	core.LogError(err.Error())
	return err
}
