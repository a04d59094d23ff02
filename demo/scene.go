package demo

import (
	"path/filepath"

	"github.com/codeyousef/materia/gpu/assets"
	"github.com/codeyousef/materia/gpu/core"
	"github.com/codeyousef/materia/gpu/hal"
)

// drawable is one pipeline plus everything it draws with. The shader
// versions it was built from are remembered so on-disk changes rebuild
// the pipeline on the next frame.
type drawable struct {
	label         string
	pipeline      *hal.RenderPipeline
	layout        *hal.BindGroupLayout
	group         *hal.BindGroup
	vertices      *hal.Buffer
	indices       *hal.Buffer
	vertexCount   uint32
	indexCount    uint32
	vertexLayouts []hal.VertexBufferLayout

	vertLabel   string
	fragLabel   string
	vertVersion uint64
	fragVersion uint64
}

// scene owns the GPU resources of the two draw calls. Everything is
// registered with the device, so teardown rides Device.Destroy.
type scene struct {
	device  *hal.Device
	library *assets.ShaderLibrary
	format  hal.TextureFormat

	tint     *hal.Buffer
	triangle *drawable
	quad     *drawable
}

func newScene(device *hal.Device, library *assets.ShaderLibrary, format hal.TextureFormat, assetsDir string) (*scene, error) {
	s := &scene{
		device:  device,
		library: library,
		format:  format,
	}
	if err := s.buildTriangle(); err != nil {
		return nil, err
	}
	if err := s.buildQuad(assetsDir); err != nil {
		return nil, err
	}
	return s, nil
}

// buildTriangle sets up the left-hand draw: positions and per-vertex
// colors, with a pulsing tint fed through a uniform buffer.
func (s *scene) buildTriangle() error {
	tint, err := s.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "triangle-tint",
		Size:  16,
		Usage: hal.BufferUsageUniform | hal.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	s.tint = tint

	// pos.xy, color.rgb per vertex
	vertices, err := s.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "triangle-vertices",
		Size:  3 * 5 * 4,
		Usage: hal.BufferUsageVertex | hal.BufferUsageCopyDst,
		Contents: packFloats(
			-0.8, 0.6, 1, 0, 0,
			-0.2, 0.6, 0, 1, 0,
			-0.5, -0.6, 0, 0, 1,
		),
	})
	if err != nil {
		return err
	}

	layout, err := s.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "triangle-layout",
		Entries: []hal.BindGroupLayoutEntry{
			{Binding: 0, Type: hal.BindingTypeUniformBuffer, Visibility: hal.ShaderStageFragment},
		},
	})
	if err != nil {
		return err
	}
	group, err := s.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "triangle-group",
		Layout: layout,
		Entries: []hal.BindGroupEntry{
			{Binding: 0, Buffer: tint},
		},
	})
	if err != nil {
		return err
	}

	s.triangle = &drawable{
		label:       "triangle",
		layout:      layout,
		group:       group,
		vertices:    vertices,
		vertexCount: 3,
		vertexLayouts: []hal.VertexBufferLayout{{
			ArrayStride: 5 * 4,
			Attributes: []hal.VertexAttribute{
				{Format: hal.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
				{Format: hal.VertexFormatFloat32x3, Offset: 8, ShaderLocation: 1},
			},
		}},
		vertLabel: "triangle.vert",
		fragLabel: "triangle.frag",
	}
	return s.buildPipeline(s.triangle)
}

// buildQuad sets up the right-hand draw: an indexed quad sampling a
// texture. A decodable image under the assets directory wins; a missing
// or broken one falls back to the checkerboard.
func (s *scene) buildQuad(assetsDir string) error {
	vertices, err := s.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "quad-vertices",
		Size:  4 * 4 * 4,
		Usage: hal.BufferUsageVertex | hal.BufferUsageCopyDst,
		Contents: packFloats(
			0.2, -0.6, 0, 1,
			0.8, -0.6, 1, 1,
			0.8, 0.6, 1, 0,
			0.2, 0.6, 0, 0,
		),
	})
	if err != nil {
		return err
	}
	indices, err := s.device.CreateBuffer(&hal.BufferDescriptor{
		Label:    "quad-indices",
		Size:     6 * 2,
		Usage:    hal.BufferUsageIndex | hal.BufferUsageCopyDst,
		Contents: packIndices(0, 1, 2, 2, 3, 0),
	})
	if err != nil {
		return err
	}

	pixels, err := assets.LoadImage(filepath.Join(assetsDir, "textures", "quad.png"))
	if err != nil {
		core.LogWarn("quad texture unavailable, using checkerboard: %s", err)
		pixels = assets.Checkerboard(256, 256, 16)
	}
	texture, err := s.device.CreateTexture(&hal.TextureDescriptor{
		Label:    "quad-texture",
		Width:    pixels.Width,
		Height:   pixels.Height,
		Format:   hal.TextureFormatRGBA8Unorm,
		Usage:    hal.TextureUsageSampled | hal.TextureUsageCopyDst,
		Contents: pixels.Data,
	})
	if err != nil {
		return err
	}
	view, err := texture.CreateView(&hal.TextureViewDescriptor{Label: "quad-texture-view"})
	if err != nil {
		return err
	}
	sampler, err := s.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "quad-sampler",
		MinFilter:    hal.FilterModeLinear,
		MagFilter:    hal.FilterModeLinear,
		AddressModeU: hal.AddressModeRepeat,
		AddressModeV: hal.AddressModeRepeat,
		AddressModeW: hal.AddressModeRepeat,
	})
	if err != nil {
		return err
	}

	layout, err := s.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "quad-layout",
		Entries: []hal.BindGroupLayoutEntry{
			{Binding: 0, Type: hal.BindingTypeCombinedImageSampler, Visibility: hal.ShaderStageFragment},
		},
	})
	if err != nil {
		return err
	}
	group, err := s.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "quad-group",
		Layout: layout,
		Entries: []hal.BindGroupEntry{
			{Binding: 0, View: view, Sampler: sampler},
		},
	})
	if err != nil {
		return err
	}

	s.quad = &drawable{
		label:      "quad",
		layout:     layout,
		group:      group,
		vertices:   vertices,
		indices:    indices,
		indexCount: 6,
		vertexLayouts: []hal.VertexBufferLayout{{
			ArrayStride: 4 * 4,
			Attributes: []hal.VertexAttribute{
				{Format: hal.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
				{Format: hal.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
			},
		}},
		vertLabel: "quad.vert",
		fragLabel: "quad.frag",
	}
	return s.buildPipeline(s.quad)
}

// buildPipeline loads the drawable's current shader binaries and bakes
// a fresh pipeline from them, replacing any previous one. Modules are
// destroyed right away; the baked pipeline is self-contained.
func (s *scene) buildPipeline(d *drawable) error {
	vert, err := s.library.Load(d.vertLabel)
	if err != nil {
		return err
	}
	frag, err := s.library.Load(d.fragLabel)
	if err != nil {
		return err
	}
	vmod, err := s.device.CreateShaderModule(d.vertLabel, vert.Words)
	if err != nil {
		return err
	}
	fmod, err := s.device.CreateShaderModule(d.fragLabel, frag.Words)
	if err != nil {
		vmod.Destroy()
		return err
	}
	pipeline, err := s.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:         d.label + "-pipeline",
		Vertex:        vmod,
		Fragment:      fmod,
		Layouts:       []*hal.BindGroupLayout{d.layout},
		VertexBuffers: d.vertexLayouts,
		Topology:      hal.PrimitiveTopologyTriangleList,
		CullMode:      hal.CullModeNone,
		ColorFormat:   s.format,
	})
	vmod.Destroy()
	fmod.Destroy()
	if err != nil {
		return err
	}
	if d.pipeline != nil {
		d.pipeline.Destroy()
	}
	d.pipeline = pipeline
	d.vertVersion = vert.Version
	d.fragVersion = frag.Version
	return nil
}

// reloadShaders rebuilds any pipeline whose shaders changed on disk. A
// failed rebuild keeps the previous pipeline running.
func (s *scene) reloadShaders() {
	for _, d := range []*drawable{s.triangle, s.quad} {
		if s.library.Version(d.vertLabel) == d.vertVersion && s.library.Version(d.fragLabel) == d.fragVersion {
			continue
		}
		if err := s.device.WaitIdle(); err != nil {
			core.LogWarn("shader reload wait: %s", err)
			return
		}
		if err := s.buildPipeline(d); err != nil {
			core.LogWarn("shader reload for %s failed: %s", d.label, err)
			continue
		}
		core.LogInfo("pipeline %s rebuilt for shader versions %d/%d", d.label, d.vertVersion, d.fragVersion)
	}
}

// record encodes both draws into an open render pass.
func (s *scene) record(pass *hal.RenderPassEncoder) error {
	if err := pass.SetPipeline(s.triangle.pipeline); err != nil {
		return err
	}
	if err := pass.SetBindGroup(0, s.triangle.group); err != nil {
		return err
	}
	if err := pass.SetVertexBuffer(0, s.triangle.vertices, 0); err != nil {
		return err
	}
	if err := pass.Draw(s.triangle.vertexCount, 1, 0, 0); err != nil {
		return err
	}

	if err := pass.SetPipeline(s.quad.pipeline); err != nil {
		return err
	}
	if err := pass.SetBindGroup(0, s.quad.group); err != nil {
		return err
	}
	if err := pass.SetVertexBuffer(0, s.quad.vertices, 0); err != nil {
		return err
	}
	if err := pass.SetIndexBuffer(s.quad.indices, hal.IndexFormatUint16, 0); err != nil {
		return err
	}
	return pass.DrawIndexed(s.quad.indexCount, 1, 0, 0, 0)
}
