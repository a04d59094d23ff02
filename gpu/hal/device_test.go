package hal

import (
	"bytes"
	"errors"
	"testing"

	"github.com/codeyousef/materia/gpu/core"
)

const testMaxBufferSize = 1 << 20

func TestBufferWriteReadRoundTrip(t *testing.T) {
	_, device, _, err := newTestDevice(nil)
	if err != nil {
		t.Fatalf("device setup failed: %v", err)
	}
	defer device.Destroy()

	sizes := []int{0, 1, 4096, testMaxBufferSize}
	for _, n := range sizes {
		buf, err := device.CreateBuffer(&BufferDescriptor{
			Label: "round-trip",
			Size:  testMaxBufferSize,
			Usage: BufferUsageCopySrc | BufferUsageCopyDst,
		})
		if err != nil {
			t.Fatalf("create buffer: %v", err)
		}
		payload := make([]byte, n)
		for i := range payload {
			payload[i] = byte(i % 251)
		}
		if err := buf.Write(payload, 0); err != nil {
			t.Fatalf("write %d bytes: %v", n, err)
		}
		got := make([]byte, n)
		if err := buf.Read(got, 0); err != nil {
			t.Fatalf("read %d bytes: %v", n, err)
		}
		if !bytes.Equal(payload, got) {
			t.Errorf("round-trip of %d bytes: contents differ", n)
		}
		buf.Destroy()
	}
}

func TestBufferWriteOutOfBounds(t *testing.T) {
	_, device, _, err := newTestDevice(nil)
	if err != nil {
		t.Fatalf("device setup failed: %v", err)
	}
	defer device.Destroy()

	buf, err := device.CreateBuffer(&BufferDescriptor{Size: 16, Usage: BufferUsageCopyDst})
	if err != nil {
		t.Fatalf("create buffer: %v", err)
	}
	if err := buf.Write(make([]byte, 8), 12); err == nil {
		t.Error("expected out-of-bounds write to fail. Got nil")
	}
	// A zero-length write is a legal no-op even at the very end.
	if err := buf.Write(nil, 16); err != nil {
		t.Errorf("expected empty write to succeed. Got %v", err)
	}
}

func TestCreateBindGroupLayoutValidation(t *testing.T) {
	_, device, _, err := newTestDevice(nil)
	if err != nil {
		t.Fatalf("device setup failed: %v", err)
	}
	defer device.Destroy()

	tests := []struct {
		name    string
		entries []BindGroupLayoutEntry
		wantErr error
	}{
		{
			name: "duplicate binding index",
			entries: []BindGroupLayoutEntry{
				{Binding: 2, Type: BindingTypeUniformBuffer, Visibility: ShaderStageFragment},
				{Binding: 2, Type: BindingTypeSampler, Visibility: ShaderStageFragment},
			},
			wantErr: core.ErrInvalidLayout,
		},
		{
			name:    "empty entry set",
			entries: nil,
			wantErr: core.ErrInvalidLayout,
		},
		{
			name: "valid layout",
			entries: []BindGroupLayoutEntry{
				{Binding: 0, Type: BindingTypeUniformBuffer, Visibility: ShaderStageVertex},
				{Binding: 1, Type: BindingTypeCombinedImageSampler, Visibility: ShaderStageFragment},
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := device.CreateBindGroupLayout(&BindGroupLayoutDescriptor{Entries: tc.entries})
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("expected success. Got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v. Got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCreateBindGroupValidation(t *testing.T) {
	_, device, _, err := newTestDevice(nil)
	if err != nil {
		t.Fatalf("device setup failed: %v", err)
	}
	defer device.Destroy()

	layout, err := device.CreateBindGroupLayout(&BindGroupLayoutDescriptor{
		Entries: []BindGroupLayoutEntry{
			{Binding: 0, Type: BindingTypeUniformBuffer, Visibility: ShaderStageFragment},
			{Binding: 1, Type: BindingTypeUniformBuffer, Visibility: ShaderStageFragment},
			{Binding: 2, Type: BindingTypeUniformBuffer, Visibility: ShaderStageFragment},
		},
	})
	if err != nil {
		t.Fatalf("create layout: %v", err)
	}
	buf, err := device.CreateBuffer(&BufferDescriptor{Size: 256, Usage: BufferUsageUniform})
	if err != nil {
		t.Fatalf("create buffer: %v", err)
	}

	// Supplying {0,1} against a layout requiring {0,1,2} must fail.
	_, err = device.CreateBindGroup(&BindGroupDescriptor{
		Layout: layout,
		Entries: []BindGroupEntry{
			{Binding: 0, Buffer: buf},
			{Binding: 1, Buffer: buf},
		},
	})
	if !errors.Is(err, core.ErrBindingMismatch) {
		t.Errorf("missing binding: expected ErrBindingMismatch. Got %v", err)
	}

	// Wrong resource kind at a declared slot must fail too.
	sampler, err := device.CreateSampler(&SamplerDescriptor{})
	if err != nil {
		t.Fatalf("create sampler: %v", err)
	}
	_, err = device.CreateBindGroup(&BindGroupDescriptor{
		Layout: layout,
		Entries: []BindGroupEntry{
			{Binding: 0, Buffer: buf},
			{Binding: 1, Buffer: buf},
			{Binding: 2, Sampler: sampler},
		},
	})
	if !errors.Is(err, core.ErrBindingMismatch) {
		t.Errorf("wrong resource kind: expected ErrBindingMismatch. Got %v", err)
	}

	// A structurally matching group succeeds.
	_, err = device.CreateBindGroup(&BindGroupDescriptor{
		Layout: layout,
		Entries: []BindGroupEntry{
			{Binding: 2, Buffer: buf},
			{Binding: 0, Buffer: buf},
			{Binding: 1, Buffer: buf},
		},
	})
	if err != nil {
		t.Errorf("matching group: expected success. Got %v", err)
	}
}

func TestCreateRenderPipelineRequiresBothStages(t *testing.T) {
	_, device, _, err := newTestDevice(nil)
	if err != nil {
		t.Fatalf("device setup failed: %v", err)
	}
	defer device.Destroy()

	module, err := device.CreateShaderModule("triangle", []uint32{0x07230203, 0})
	if err != nil {
		t.Fatalf("create shader module: %v", err)
	}

	if _, err := device.CreateRenderPipeline(&RenderPipelineDescriptor{Fragment: module}); err == nil {
		t.Error("expected pipeline without vertex stage to fail. Got nil")
	}
	if _, err := device.CreateRenderPipeline(&RenderPipelineDescriptor{Vertex: module}); err == nil {
		t.Error("expected pipeline without fragment stage to fail. Got nil")
	}
	if _, err := device.CreateRenderPipeline(&RenderPipelineDescriptor{Vertex: module, Fragment: module}); err != nil {
		t.Errorf("expected pipeline with both stages to succeed. Got %v", err)
	}
}

func TestDeviceDestroyTearsDownLiveResources(t *testing.T) {
	_, device, _, err := newTestDevice(nil)
	if err != nil {
		t.Fatalf("device setup failed: %v", err)
	}

	buf, err := device.CreateBuffer(&BufferDescriptor{Size: 64, Usage: BufferUsageUniform})
	if err != nil {
		t.Fatalf("create buffer: %v", err)
	}
	tex, err := device.CreateTexture(&TextureDescriptor{Width: 4, Height: 4, Usage: TextureUsageSampled})
	if err != nil {
		t.Fatalf("create texture: %v", err)
	}
	backendBuf := buf.backend.(*fakeBuffer)
	backendTex := tex.backend.(*fakeTexture)

	if err := device.Destroy(); err != nil {
		t.Fatalf("destroy device: %v", err)
	}
	if !backendBuf.destroyed {
		t.Error("expected buffer to be destroyed with the device")
	}
	if !backendTex.destroyed {
		t.Error("expected texture to be destroyed with the device")
	}

	// The device is gone; the factory refuses new work.
	if _, err := device.CreateBuffer(&BufferDescriptor{Size: 4}); !errors.Is(err, core.ErrDeviceLost) {
		t.Errorf("create after destroy: expected ErrDeviceLost. Got %v", err)
	}
}

func TestTextureViewCompatibility(t *testing.T) {
	_, device, _, err := newTestDevice(nil)
	if err != nil {
		t.Fatalf("device setup failed: %v", err)
	}
	defer device.Destroy()

	tex, err := device.CreateTexture(&TextureDescriptor{
		Width: 16, Height: 16,
		Format: TextureFormatRGBA8Unorm,
		Usage:  TextureUsageSampled,
	})
	if err != nil {
		t.Fatalf("create texture: %v", err)
	}

	if _, err := tex.CreateView(&TextureViewDescriptor{Format: TextureFormatBGRA8Unorm}); err == nil {
		t.Error("expected mismatched view format to fail. Got nil")
	}
	if _, err := tex.CreateView(&TextureViewDescriptor{Dimension: TextureDimensionCube}); err == nil {
		t.Error("expected cube view of 2D texture to fail. Got nil")
	}
	view, err := tex.CreateView(&TextureViewDescriptor{})
	if err != nil {
		t.Fatalf("expected default view to succeed. Got %v", err)
	}
	if view.Format() != TextureFormatRGBA8Unorm {
		t.Errorf("expected view to inherit parent format. Got %v", view.Format())
	}
}

func TestCreateTextureClampsMipCount(t *testing.T) {
	_, device, _, err := newTestDevice(nil)
	if err != nil {
		t.Fatalf("device setup failed: %v", err)
	}
	defer device.Destroy()

	tex, err := device.CreateTexture(&TextureDescriptor{
		Label:         "over-mipped",
		Width:         16,
		Height:        16,
		Format:        TextureFormatRGBA8Unorm,
		Usage:         TextureUsageSampled,
		MipLevelCount: 99,
	})
	if err != nil {
		t.Fatalf("create texture: %v", err)
	}
	// 16x16 supports 16, 8, 4, 2, 1.
	if got := tex.MipLevelCount(); got != 5 {
		t.Errorf("expected the mip count clamped to 5. Got %d", got)
	}
}

func TestUploadRegionsForCube(t *testing.T) {
	desc := &TextureDescriptor{
		Width: 8, Height: 8,
		Dimension:     TextureDimensionCube,
		Format:        TextureFormatRGBA8Unorm,
		MipLevelCount: 4,
	}
	regions, total := UploadRegionsFor(desc)

	if len(regions) != 24 {
		t.Fatalf("expected 24 regions (6 faces x 4 mips). Got %d", len(regions))
	}
	// One face: 8x8 + 4x4 + 2x2 + 1x1 texels at 4 bytes.
	perFace := uint64(64+16+4+1) * 4
	if total != perFace*6 {
		t.Errorf("expected total %d. Got %d", perFace*6, total)
	}
	// Regions must be packed back to back with per-level extents.
	var offset uint64
	for i, r := range regions {
		if r.Offset != offset {
			t.Errorf("region %d: expected offset %d. Got %d", i, offset, r.Offset)
		}
		wantW := uint32(8 >> r.MipLevel)
		if r.Width != wantW || r.Height != wantW {
			t.Errorf("region %d: expected extent %dx%d. Got %dx%d", i, wantW, wantW, r.Width, r.Height)
		}
		offset += uint64(r.Width) * uint64(r.Height) * 4
	}
}

func TestAdapterRequestResolvesOnce(t *testing.T) {
	backend := newFakeBackend()
	instance, err := CreateInstance(backend, InstanceOptions{AppName: "hal-test"})
	if err != nil {
		t.Fatalf("create instance: %v", err)
	}
	req := instance.RequestAdapter(AdapterOptions{})
	first, err := req.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := req.Resolve()
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if first != second {
		t.Error("expected repeated Resolve to return the same adapter")
	}
	if first.Info().Name != "Fake GPU" {
		t.Errorf("unexpected adapter info: %+v", first.Info())
	}
}
