package hal

import (
	"fmt"
	"sync"

	"github.com/codeyousef/materia/gpu/core"
	"github.com/codeyousef/materia/gpu/mathutil"
)

// destroyer is what the device's resource table holds: anything it can
// tear down on device destruction.
type destroyer interface {
	Destroy()
}

// resourceRegistry is the device-owned slot table. Resources keep only
// their slot index, never a reference to the device, so teardown order
// cannot cycle.
type resourceRegistry struct {
	mu    sync.Mutex
	slots core.Owners
}

func (r *resourceRegistry) acquire(res destroyer) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slots.Acquire(res)
}

func (r *resourceRegistry) release(slot uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots.Release(slot)
}

// drain empties the table and returns the occupants in reverse creation
// order, so dependents go down before what they were created from.
func (r *resourceRegistry) drain() []destroyer {
	r.mu.Lock()
	defer r.mu.Unlock()
	live := make([]destroyer, 0, len(r.slots))
	for i := len(r.slots) - 1; i >= 0; i-- {
		if r.slots[i] != nil {
			live = append(live, r.slots[i].(destroyer))
			r.slots[i] = nil
		}
	}
	return live
}

// Device is a logical connection to one adapter and the factory for
// every resource below it. Destroying a device first destroys every
// resource still alive in its table.
type Device struct {
	adapter  *Adapter
	backend  BackendDevice
	queue    *Queue
	registry resourceRegistry

	mu        sync.Mutex
	destroyed bool
}

func newDevice(adapter *Adapter, backend BackendDevice) *Device {
	d := &Device{
		adapter: adapter,
		backend: backend,
	}
	d.queue = &Queue{device: d}
	return d
}

// Queue returns the single submission point of this device.
func (d *Device) Queue() *Queue {
	return d.queue
}

// Adapter returns the adapter this device was created from.
func (d *Device) Adapter() *Adapter {
	return d.adapter
}

func (d *Device) guard(op string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		err := core.WrapError(core.ErrDeviceLost, op, "device already destroyed")
		core.LogError(err.Error())
		return err
	}
	return nil
}

// WaitIdle blocks until the device has finished all submitted work.
func (d *Device) WaitIdle() error {
	if err := d.guard("wait idle"); err != nil {
		return err
	}
	return d.backend.WaitIdle()
}

// Destroy waits for the device to go idle, tears down every resource
// still alive in the table, then releases the driver device. Calling it
// twice is harmless.
func (d *Device) Destroy() error {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return nil
	}
	d.destroyed = true
	d.mu.Unlock()

	if err := d.backend.WaitIdle(); err != nil {
		core.LogWarn("device wait before teardown: %s", err)
	}
	live := d.registry.drain()
	if len(live) > 0 {
		core.LogDebug("device teardown destroying %d live resources", len(live))
	}
	for _, res := range live {
		res.Destroy()
	}
	d.backend.Destroy()
	return nil
}

// CreateBuffer allocates a linear device memory region. Initial
// contents are routed through the transfer subsystem by the driver.
func (d *Device) CreateBuffer(desc *BufferDescriptor) (*Buffer, error) {
	if err := d.guard("create buffer"); err != nil {
		return nil, err
	}
	label := ensureLabel(desc.Label, "buffer")
	if desc.Contents != nil && uint64(len(desc.Contents)) > desc.Size {
		err := core.WrapError(core.ErrResourceCreationFailed, "create buffer: contents exceed size", label)
		core.LogError(err.Error())
		return nil, err
	}
	plain := *desc
	plain.Label = label
	plain.Contents = nil
	backend, err := d.backend.CreateBuffer(&plain)
	if err != nil {
		err = core.WrapError(core.ErrResourceCreationFailed, fmt.Sprintf("create buffer: %s", err), label)
		core.LogError(err.Error())
		return nil, err
	}
	buf := &Buffer{
		label:    label,
		size:     desc.Size,
		usage:    desc.Usage,
		backend:  backend,
		registry: &d.registry,
	}
	buf.slot = d.registry.acquire(buf)
	if desc.Contents != nil {
		if err := buf.Write(desc.Contents, 0); err != nil {
			buf.Destroy()
			return nil, err
		}
	}
	return buf, nil
}

// CreateTexture allocates a 2D or cube device image. Initial contents
// are routed through the transfer subsystem by the driver.
func (d *Device) CreateTexture(desc *TextureDescriptor) (*Texture, error) {
	if err := d.guard("create texture"); err != nil {
		return nil, err
	}
	label := ensureLabel(desc.Label, "texture")
	normalized := *desc
	normalized.Label = label
	if normalized.MipLevelCount == 0 {
		normalized.MipLevelCount = 1
	}
	if normalized.SampleCount == 0 {
		normalized.SampleCount = 1
	}
	if normalized.Format == TextureFormatUndefined {
		normalized.Format = TextureFormatRGBA8Unorm
	}
	if normalized.Width == 0 || normalized.Height == 0 {
		err := core.WrapError(core.ErrResourceCreationFailed, "create texture: zero extent", label)
		core.LogError(err.Error())
		return nil, err
	}
	if max := mathutil.MipLevels(normalized.Width, normalized.Height); normalized.MipLevelCount > max {
		core.LogWarn("texture %q: %d mip levels requested, extent supports %d", label, normalized.MipLevelCount, max)
		normalized.MipLevelCount = max
	}
	contents := normalized.Contents
	normalized.Contents = nil
	backend, err := d.backend.CreateTexture(&normalized)
	if err != nil {
		err = core.WrapError(core.ErrResourceCreationFailed, fmt.Sprintf("create texture: %s", err), label)
		core.LogError(err.Error())
		return nil, err
	}
	tex := &Texture{
		label:    label,
		desc:     normalized,
		backend:  backend,
		registry: &d.registry,
		owned:    true,
	}
	tex.slot = d.registry.acquire(tex)
	if contents != nil {
		if err := tex.Upload(contents); err != nil {
			tex.Destroy()
			return nil, err
		}
	}
	return tex, nil
}

func (d *Device) CreateSampler(desc *SamplerDescriptor) (*Sampler, error) {
	if err := d.guard("create sampler"); err != nil {
		return nil, err
	}
	label := ensureLabel(desc.Label, "sampler")
	backend, err := d.backend.CreateSampler(desc)
	if err != nil {
		err = core.WrapError(core.ErrResourceCreationFailed, fmt.Sprintf("create sampler: %s", err), label)
		core.LogError(err.Error())
		return nil, err
	}
	s := &Sampler{
		label:    label,
		backend:  backend,
		registry: &d.registry,
	}
	s.slot = d.registry.acquire(s)
	return s, nil
}

// CreateShaderModule wraps an already-compiled shader binary. The blob
// is opaque; only its word alignment was checked by the loader.
func (d *Device) CreateShaderModule(label string, words []uint32) (*ShaderModule, error) {
	if err := d.guard("create shader module"); err != nil {
		return nil, err
	}
	label = ensureLabel(label, "shader")
	if len(words) == 0 {
		err := core.WrapError(core.ErrResourceCreationFailed, "create shader module: empty bytecode", label)
		core.LogError(err.Error())
		return nil, err
	}
	backend, err := d.backend.CreateShaderModule(label, words)
	if err != nil {
		err = core.WrapError(core.ErrResourceCreationFailed, fmt.Sprintf("create shader module: %s", err), label)
		core.LogError(err.Error())
		return nil, err
	}
	m := &ShaderModule{
		label:    label,
		backend:  backend,
		registry: &d.registry,
	}
	m.slot = d.registry.acquire(m)
	return m, nil
}

// CreateBindGroupLayout validates the declared binding shape. Two
// entries sharing a binding index, or an empty entry set, fail with
// ErrInvalidLayout.
func (d *Device) CreateBindGroupLayout(desc *BindGroupLayoutDescriptor) (*BindGroupLayout, error) {
	if err := d.guard("create bind group layout"); err != nil {
		return nil, err
	}
	label := ensureLabel(desc.Label, "bind-group-layout")
	if len(desc.Entries) == 0 {
		err := core.WrapError(core.ErrInvalidLayout, "create bind group layout: no entries", label)
		core.LogError(err.Error())
		return nil, err
	}
	seen := make(map[uint32]bool, len(desc.Entries))
	for _, e := range desc.Entries {
		if seen[e.Binding] {
			err := core.WrapError(core.ErrInvalidLayout,
				fmt.Sprintf("create bind group layout: duplicate binding index %d", e.Binding), label)
			core.LogError(err.Error())
			return nil, err
		}
		seen[e.Binding] = true
	}
	backend, err := d.backend.CreateBindGroupLayout(desc)
	if err != nil {
		err = core.WrapError(core.ErrResourceCreationFailed, fmt.Sprintf("create bind group layout: %s", err), label)
		core.LogError(err.Error())
		return nil, err
	}
	entries := make([]BindGroupLayoutEntry, len(desc.Entries))
	copy(entries, desc.Entries)
	l := &BindGroupLayout{
		label:    label,
		entries:  entries,
		backend:  backend,
		registry: &d.registry,
	}
	l.slot = d.registry.acquire(l)
	return l, nil
}

// CreateBindGroup instantiates resources against a layout. The entry
// set must match the layout exactly: same count, same binding indices,
// and a resource of the kind each entry declares.
func (d *Device) CreateBindGroup(desc *BindGroupDescriptor) (*BindGroup, error) {
	if err := d.guard("create bind group"); err != nil {
		return nil, err
	}
	label := ensureLabel(desc.Label, "bind-group")
	layout := desc.Layout
	if layout == nil || layout.backend == nil {
		err := core.WrapError(core.ErrBindingMismatch, "create bind group: nil layout", label)
		core.LogError(err.Error())
		return nil, err
	}
	if len(desc.Entries) != len(layout.entries) {
		err := core.WrapError(core.ErrBindingMismatch,
			fmt.Sprintf("create bind group: layout declares %d bindings, got %d", len(layout.entries), len(desc.Entries)), label)
		core.LogError(err.Error())
		return nil, err
	}
	bindings := make([]BackendBinding, 0, len(desc.Entries))
	for _, want := range layout.entries {
		entry, ok := findEntry(desc.Entries, want.Binding)
		if !ok {
			err := core.WrapError(core.ErrBindingMismatch,
				fmt.Sprintf("create bind group: no resource for binding %d", want.Binding), label)
			core.LogError(err.Error())
			return nil, err
		}
		binding, err := resolveBinding(want, entry, label)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, binding)
	}
	backend, err := d.backend.CreateBindGroup(layout.backend, bindings)
	if err != nil {
		err = core.WrapError(core.ErrResourceCreationFailed, fmt.Sprintf("create bind group: %s", err), label)
		core.LogError(err.Error())
		return nil, err
	}
	g := &BindGroup{
		label:    label,
		layout:   layout,
		backend:  backend,
		registry: &d.registry,
	}
	g.slot = d.registry.acquire(g)
	return g, nil
}

func findEntry(entries []BindGroupEntry, binding uint32) (BindGroupEntry, bool) {
	for _, e := range entries {
		if e.Binding == binding {
			return e, true
		}
	}
	return BindGroupEntry{}, false
}

// resolveBinding checks one entry against its layout slot and swaps the
// front objects for driver handles.
func resolveBinding(want BindGroupLayoutEntry, entry BindGroupEntry, label string) (BackendBinding, error) {
	mismatch := func(detail string) (BackendBinding, error) {
		err := core.WrapError(core.ErrBindingMismatch,
			fmt.Sprintf("create bind group: binding %d (%s) %s", want.Binding, want.Type, detail), label)
		core.LogError(err.Error())
		return BackendBinding{}, err
	}
	out := BackendBinding{
		Binding: want.Binding,
		Type:    want.Type,
		Offset:  entry.Offset,
		Size:    entry.Size,
	}
	switch want.Type {
	case BindingTypeUniformBuffer, BindingTypeStorageBuffer:
		if entry.Buffer == nil || entry.Buffer.backend == nil {
			return mismatch("requires a buffer")
		}
		if entry.View != nil || entry.Sampler != nil {
			return mismatch("got an image resource")
		}
		if out.Size == 0 {
			out.Size = entry.Buffer.size - entry.Offset
		}
		if entry.Offset+out.Size > entry.Buffer.size {
			return mismatch("range exceeds buffer size")
		}
		out.Buffer = entry.Buffer.backend
	case BindingTypeSampledTexture:
		if entry.View == nil || entry.View.backend == nil {
			return mismatch("requires a texture view")
		}
		out.View = entry.View.backend
	case BindingTypeSampler:
		if entry.Sampler == nil || entry.Sampler.backend == nil {
			return mismatch("requires a sampler")
		}
		out.Sampler = entry.Sampler.backend
	case BindingTypeCombinedImageSampler:
		if entry.View == nil || entry.View.backend == nil || entry.Sampler == nil || entry.Sampler.backend == nil {
			return mismatch("requires a texture view and a sampler")
		}
		out.View = entry.View.backend
		out.Sampler = entry.Sampler.backend
	default:
		return mismatch("has an unknown resource type")
	}
	return out, nil
}

// CreateRenderPipeline bakes shader stages, the ordered layout list and
// fixed-function state. Vertex and fragment modules are both required.
func (d *Device) CreateRenderPipeline(desc *RenderPipelineDescriptor) (*RenderPipeline, error) {
	if err := d.guard("create render pipeline"); err != nil {
		return nil, err
	}
	label := ensureLabel(desc.Label, "render-pipeline")
	if desc.Vertex == nil || desc.Vertex.backend == nil {
		err := core.WrapError(core.ErrResourceCreationFailed, "create render pipeline: missing vertex shader", label)
		core.LogError(err.Error())
		return nil, err
	}
	if desc.Fragment == nil || desc.Fragment.backend == nil {
		err := core.WrapError(core.ErrResourceCreationFailed, "create render pipeline: missing fragment shader", label)
		core.LogError(err.Error())
		return nil, err
	}
	layouts := make([]BackendBindGroupLayout, len(desc.Layouts))
	for i, l := range desc.Layouts {
		if l == nil || l.backend == nil {
			err := core.WrapError(core.ErrInvalidLayout,
				fmt.Sprintf("create render pipeline: bind group layout %d is not live", i), label)
			core.LogError(err.Error())
			return nil, err
		}
		layouts[i] = l.backend
	}
	colorFormat := desc.ColorFormat
	if colorFormat == TextureFormatUndefined {
		colorFormat = TextureFormatBGRA8Unorm
	}
	state := &RenderPipelineState{
		Label:         label,
		Vertex:        desc.Vertex.backend,
		Fragment:      desc.Fragment.backend,
		Layouts:       layouts,
		VertexBuffers: desc.VertexBuffers,
		Topology:      desc.Topology,
		CullMode:      desc.CullMode,
		BlendEnabled:  desc.BlendEnabled,
		ColorFormat:   colorFormat,
	}
	backend, err := d.backend.CreateRenderPipeline(state)
	if err != nil {
		err = core.WrapError(core.ErrResourceCreationFailed, fmt.Sprintf("create render pipeline: %s", err), label)
		core.LogError(err.Error())
		return nil, err
	}
	p := &RenderPipeline{
		label:    label,
		backend:  backend,
		registry: &d.registry,
	}
	p.slot = d.registry.acquire(p)
	return p, nil
}

// CreateComputePipeline bakes exactly one compute module and the
// ordered layout list.
func (d *Device) CreateComputePipeline(desc *ComputePipelineDescriptor) (*ComputePipeline, error) {
	if err := d.guard("create compute pipeline"); err != nil {
		return nil, err
	}
	label := ensureLabel(desc.Label, "compute-pipeline")
	if desc.Module == nil || desc.Module.backend == nil {
		err := core.WrapError(core.ErrResourceCreationFailed, "create compute pipeline: missing module", label)
		core.LogError(err.Error())
		return nil, err
	}
	layouts := make([]BackendBindGroupLayout, len(desc.Layouts))
	for i, l := range desc.Layouts {
		if l == nil || l.backend == nil {
			err := core.WrapError(core.ErrInvalidLayout,
				fmt.Sprintf("create compute pipeline: bind group layout %d is not live", i), label)
			core.LogError(err.Error())
			return nil, err
		}
		layouts[i] = l.backend
	}
	state := &ComputePipelineState{
		Label:   label,
		Module:  desc.Module.backend,
		Layouts: layouts,
	}
	backend, err := d.backend.CreateComputePipeline(state)
	if err != nil {
		err = core.WrapError(core.ErrResourceCreationFailed, fmt.Sprintf("create compute pipeline: %s", err), label)
		core.LogError(err.Error())
		return nil, err
	}
	p := &ComputePipeline{
		label:    label,
		backend:  backend,
		registry: &d.registry,
	}
	p.slot = d.registry.acquire(p)
	return p, nil
}

// CreateCommandEncoder opens a new single-use recording object.
func (d *Device) CreateCommandEncoder(label string) (*CommandEncoder, error) {
	if err := d.guard("create command encoder"); err != nil {
		return nil, err
	}
	label = ensureLabel(label, "encoder")
	backend, err := d.backend.CreateCommandEncoder(label)
	if err != nil {
		err = core.WrapError(core.ErrResourceCreationFailed, fmt.Sprintf("create command encoder: %s", err), label)
		core.LogError(err.Error())
		return nil, err
	}
	return &CommandEncoder{
		label:   label,
		device:  d,
		backend: backend,
		state:   encoderRecording,
	}, nil
}

func ensureLabel(label, prefix string) string {
	if label != "" {
		return label
	}
	return core.GenerateLabel(prefix)
}
